// Package client implements the interactive terminal client: it prompts
// for commands, encodes them onto the wire, and formats server responses.
package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/srdc/messageapp/internal/protocol"
)

// sendPause gives the response reader time to print before the next prompt.
const sendPause = 200 * time.Millisecond

// Client drives one connection to the server from a terminal. Responses
// arrive on a separate goroutine so the removal notice is seen even while
// the prompt is waiting for input.
type Client struct {
	conn   net.Conn
	server *bufio.Reader
	stdin  *bufio.Scanner
	out    io.Writer

	mu       sync.Mutex
	loggedIn bool
	admin    bool

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the server at addr and wires the client to the
// process's terminal.
func Dial(addr string, in io.Reader, out io.Writer) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		server: bufio.NewReader(conn),
		stdin:  bufio.NewScanner(in),
		out:    out,
		done:   make(chan struct{}),
	}, nil
}

// Run prompts for commands until the connection closes or the server
// forces the session shut.
func (c *Client) Run() error {
	go c.readResponses()
	defer c.close()

	for {
		select {
		case <-c.done:
			return nil
		default:
		}

		line := c.promptCommand()
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintln(c.conn, line); err != nil {
			select {
			case <-c.done:
				return nil
			default:
				return fmt.Errorf("send: %w", err)
			}
		}
		time.Sleep(sendPause)
	}
}

func (c *Client) readResponses() {
	defer c.close()
	for {
		raw, err := c.server.ReadString('\n')
		if err != nil {
			return
		}
		line := strings.TrimRight(raw, "\r\n")
		if line == "" {
			continue
		}

		switch {
		case isRecordLine(line, protocol.TagListUsers):
			c.printUserTable(line)
		case isRecordLine(line, protocol.TagGetInbox):
			c.printMessageTable(line, "FROM")
		case isRecordLine(line, protocol.TagGetOutbox):
			c.printMessageTable(line, "TO")
		default:
			fmt.Fprintln(c.out, line)
			switch {
			case strings.Contains(line, "Login successful"):
				c.setState(true, strings.Contains(line, "Admin: true"))
			case strings.Contains(line, "Logout successful"):
				c.setState(false, false)
			case strings.Contains(line, "Client will now close"):
				return
			}
		}
	}
}

// promptCommand collects one action from the terminal and returns the
// encoded wire line, or "" when nothing should be sent.
func (c *Client) promptCommand() string {
	loggedIn, admin := c.state()
	if !loggedIn {
		fmt.Fprint(c.out, "Please log in.\nUsername: ")
		username := c.readLine()
		fmt.Fprint(c.out, "Password: ")
		password := c.readLine()
		return protocol.Encode(protocol.TagLogin, username, password)
	}

	menu := "LOGOUT, SENDMSG, "
	if admin {
		menu += "ADDUSER, REMOVEUSER, UPDATEUSER, LISTUSERS, "
	}
	menu += "GETINBOX, GETOUTBOX"
	fmt.Fprintf(c.out, "Enter action (%s): ", menu)

	action := strings.ToUpper(strings.TrimSpace(c.readLine()))
	switch action {
	case protocol.TagLogin:
		fmt.Fprintln(c.out, "A user is already logged in.")
		return ""
	case protocol.TagLogout, protocol.TagGetInbox, protocol.TagGetOutbox:
		return action
	case protocol.TagSendMsg:
		return protocol.Encode(protocol.TagSendMsg,
			c.prompt("Receiver: "),
			c.prompt("Title: "),
			c.prompt("Message: "))
	case protocol.TagAddUser, protocol.TagUpdateUser:
		if !admin {
			fmt.Fprintf(c.out, "Permission denied. Only administrators can %s.\n", strings.ToLower(action))
			return ""
		}
		return protocol.Encode(action,
			c.prompt("Username: "),
			c.prompt("Name: "),
			c.prompt("Surname: "),
			c.prompt("Birthdate (YYYY-MM-DD): "),
			c.prompt("Gender (M or F): "),
			c.prompt("Email: "),
			c.prompt("Location: "),
			c.prompt("Password: "),
			c.prompt("Is Admin (true/false): "))
	case protocol.TagRemoveUser:
		if !admin {
			fmt.Fprintln(c.out, "Permission denied. Only administrators can removeuser.")
			return ""
		}
		return protocol.Encode(protocol.TagRemoveUser, c.prompt("Username: "))
	case protocol.TagListUsers:
		if !admin {
			fmt.Fprintln(c.out, "Permission denied. Only administrators can listusers.")
			return ""
		}
		return protocol.TagListUsers
	default:
		fmt.Fprintln(c.out, "Invalid action. Please try again.")
		return ""
	}
}

func (c *Client) printUserTable(line string) {
	fields := recordFields(line)
	rule := strings.Repeat("-", 119)
	fmt.Fprintln(c.out, "\nUser List:")
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "%-15s %-15s %-15s %-10s %-30s %-20s %-10s\n",
		"USERNAME", "NAME", "SURNAME", "GENDER", "EMAIL", "LOCATION", "ADMIN")
	fmt.Fprintln(c.out, rule)
	for i := 0; i+6 < len(fields); i += 7 {
		fmt.Fprintf(c.out, "%-15s %-15s %-15s %-10s %-30s %-20s %-10s\n",
			fields[i], fields[i+1], fields[i+2], fields[i+3], fields[i+4], fields[i+5], fields[i+6])
	}
	fmt.Fprintln(c.out, rule)
}

func (c *Client) printMessageTable(line, counterpartHeader string) {
	fields := recordFields(line)
	rule := strings.Repeat("-", 103)
	if counterpartHeader == "FROM" {
		fmt.Fprintln(c.out, "\nInbox Messages:")
	} else {
		fmt.Fprintln(c.out, "\nOutbox Messages:")
	}
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "%-25s %-20s %-25s %-50s\n", counterpartHeader, "TITLE", "TIMESTAMP", "CONTENT")
	fmt.Fprintln(c.out, rule)
	for i := 0; i+3 < len(fields); i += 4 {
		fmt.Fprintf(c.out, "%-25s %-20s %-25s %-50s\n", fields[i], fields[i+1], fields[i+3], fields[i+2])
	}
	fmt.Fprintln(c.out, rule)
}

func (c *Client) prompt(label string) string {
	fmt.Fprint(c.out, label)
	return c.readLine()
}

func (c *Client) readLine() string {
	if !c.stdin.Scan() {
		c.close()
		return ""
	}
	return c.stdin.Text()
}

func (c *Client) state() (loggedIn, admin bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn, c.admin
}

func (c *Client) setState(loggedIn, admin bool) {
	c.mu.Lock()
	c.loggedIn = loggedIn
	c.admin = admin
	c.mu.Unlock()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// isRecordLine matches multi-record responses, which echo the command tag
// as their first field. A listing with zero records is the bare tag.
func isRecordLine(line, tag string) bool {
	return line == tag || strings.HasPrefix(line, tag+protocol.Delimiter)
}

func recordFields(line string) []string {
	parts := strings.Split(line, protocol.Delimiter)
	return parts[1:]
}
