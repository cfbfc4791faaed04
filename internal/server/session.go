// Package server implements the per-connection session protocol: the
// authentication state machine, the command dispatcher, the liveness
// monitor, and the TCP listener that ties them together.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/srdc/messageapp/internal/core/domain"
	"github.com/srdc/messageapp/internal/core/ports"
	"github.com/srdc/messageapp/internal/protocol"
)

// Presence records which accounts currently hold a live session. It is an
// observability aid; session correctness never depends on it.
type Presence interface {
	Online(ctx context.Context, username string) error
	Heartbeat(ctx context.Context, username string) error
	Offline(ctx context.Context, username string) error
}

// Deps bundles the collaborators a Session needs.
type Deps struct {
	Accounts ports.AccountService
	Messages ports.MessageService
	Presence Presence // optional
	// LivenessInterval is the period of the account-removal check.
	// Defaults to DefaultLivenessInterval when zero.
	LivenessInterval time.Duration
	Log              zerolog.Logger
}

// Dispatch outcomes, used as the metrics outcome label.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Session owns one client connection: it reads command lines, dispatches
// them against the current authentication state, and writes response lines.
// The read-dispatch loop is the only mutator of the authentication state;
// the liveness monitor reads it and may force the session closed.
type Session struct {
	conn     net.Conn
	reader   *bufio.Reader
	accounts ports.AccountService
	messages ports.MessageService
	presence Presence
	interval time.Duration
	log      zerolog.Logger

	// writeMu serialises response lines with the monitor's removal notice.
	writeMu sync.Mutex

	mu      sync.Mutex
	current *domain.User
	closed  bool
}

func NewSession(conn net.Conn, deps Deps) *Session {
	interval := deps.LivenessInterval
	if interval <= 0 {
		interval = DefaultLivenessInterval
	}
	return &Session{
		conn:     conn,
		reader:   bufio.NewReader(conn),
		accounts: deps.Accounts,
		messages: deps.Messages,
		presence: deps.Presence,
		interval: interval,
		log:      deps.Log.With().Str("remote", conn.RemoteAddr().String()).Logger(),
	}
}

// Run executes the read-dispatch loop until the peer disconnects, an I/O
// error occurs, or the liveness monitor force-closes the connection. It
// spawns the session's monitor, giving each connection exactly two
// concurrent units of work.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	monitor := newLivenessMonitor(s, s.accounts, s.interval, s.log)
	go monitor.Run(ctx)

	sessionsActive.Inc()
	defer sessionsActive.Dec()
	defer s.Close()

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !s.isClosed() {
				s.log.Warn().Err(err).Msg("read failed")
			}
			return
		}
		s.dispatch(ctx, line)
	}
}

// dispatch parses one line and routes it through the command table,
// recording the outcome. All business failures become response lines; only
// socket failures end the session.
func (s *Session) dispatch(ctx context.Context, line string) {
	cmd, err := protocol.Decode(line)
	if err != nil {
		// Blank lines carry no command; ignore them.
		return
	}

	label := cmd.Tag
	if !cmd.Known() {
		label = "unknown"
	}

	start := time.Now()
	var outcome string
	switch cmd.Tag {
	case protocol.TagLogin:
		outcome = s.handleLogin(ctx, cmd)
	case protocol.TagLogout:
		outcome = s.handleLogout(ctx)
	case protocol.TagSendMsg:
		outcome = s.handleSendMsg(ctx, cmd)
	case protocol.TagAddUser:
		outcome = s.handleAddUser(ctx, cmd)
	case protocol.TagRemoveUser:
		outcome = s.handleRemoveUser(ctx, cmd)
	case protocol.TagUpdateUser:
		outcome = s.handleUpdateUser(ctx, cmd)
	case protocol.TagListUsers:
		outcome = s.handleListUsers(ctx)
	case protocol.TagGetInbox:
		outcome = s.handleGetInbox(ctx)
	case protocol.TagGetOutbox:
		outcome = s.handleGetOutbox(ctx)
	default:
		s.writeLine("Unknown command")
		outcome = outcomeRejected
	}

	commandsTotal.WithLabelValues(label, outcome).Inc()
	commandDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
}

func (s *Session) handleLogin(ctx context.Context, cmd protocol.Command) string {
	if s.Current() != nil {
		s.writeLine("Already logged in")
		return outcomeRejected
	}

	// Missing credential fields are treated as empty, like an empty login.
	username, _ := cmd.Field(0)
	password, _ := cmd.Field(1)
	if username == "" || password == "" {
		s.writeLine("Username or password cannot be empty.")
		return outcomeRejected
	}

	user, err := s.accounts.Authenticate(ctx, username, password)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			s.log.Error().Err(err).Str("username", username).Msg("authenticate failed")
		}
		s.writeLine("Login failed")
		return outcomeRejected
	}

	s.setCurrent(user)
	if s.presence != nil {
		if err := s.presence.Online(ctx, user.Username); err != nil {
			s.log.Warn().Err(err).Msg("presence online failed")
		}
	}
	s.log.Info().Str("username", user.Username).Bool("admin", user.Admin).Msg("login")
	s.writeLine(fmt.Sprintf("Login successful. Admin: %t", user.Admin))
	return outcomeOK
}

func (s *Session) handleLogout(ctx context.Context) string {
	user := s.Current()
	if user == nil {
		s.writeLine("No user is logged in.")
		return outcomeRejected
	}

	s.clearCurrent()
	if s.presence != nil {
		if err := s.presence.Offline(ctx, user.Username); err != nil {
			s.log.Warn().Err(err).Msg("presence offline failed")
		}
	}
	s.log.Info().Str("username", user.Username).Msg("logout")
	s.writeLine("Logout successful")
	return outcomeOK
}

func (s *Session) handleSendMsg(ctx context.Context, cmd protocol.Command) string {
	user := s.Current()
	if user == nil {
		s.writeLine("No user is logged in.")
		return outcomeRejected
	}

	receiver, err := cmd.Field(0)
	if err != nil {
		s.writeLine("Missing receiver.")
		return outcomeRejected
	}
	title, err := cmd.Field(1)
	if err != nil {
		s.writeLine("Missing title.")
		return outcomeRejected
	}
	content, err := cmd.Field(2)
	if err != nil {
		s.writeLine("Missing message content.")
		return outcomeRejected
	}

	sentAt, err := s.messages.Send(ctx, user.Username, receiver, title, content)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.writeLine("User " + receiver + " does not exist")
			return outcomeRejected
		}
		s.log.Error().Err(err).Str("receiver", receiver).Msg("send message failed")
		s.writeLine("Error sending message")
		return outcomeError
	}

	s.writeLine("Message sent successfully at " + sentAt.Format(time.RFC3339))
	return outcomeOK
}

func (s *Session) handleAddUser(ctx context.Context, cmd protocol.Command) string {
	actor, ok := s.requireAdmin()
	if !ok {
		return outcomeRejected
	}

	in, err := userInputFromCommand(cmd)
	if err != nil {
		s.writeLine(err.Error())
		return outcomeRejected
	}

	switch err := s.accounts.Add(ctx, actor, in); {
	case err == nil:
		s.writeLine("User added successfully")
		return outcomeOK
	case errors.Is(err, domain.ErrUserExists):
		s.writeLine("Username already taken.")
		return outcomeRejected
	case errors.Is(err, domain.ErrInvalidBirthdate):
		s.writeLine("Invalid birthdate. Please use YYYY-MM-DD, and make sure values are correct.")
		return outcomeRejected
	case errors.Is(err, domain.ErrInvalidGender):
		s.writeLine("Invalid gender. Make sure to enter either M or F.")
		return outcomeRejected
	case errors.Is(err, domain.ErrNotAdmin):
		s.writeLine("Permission denied. Only admins can perform this operation.")
		return outcomeRejected
	default:
		s.log.Error().Err(err).Str("username", in.Username).Msg("add user failed")
		s.writeLine("Error adding user")
		return outcomeError
	}
}

func (s *Session) handleRemoveUser(ctx context.Context, cmd protocol.Command) string {
	actor, ok := s.requireAdmin()
	if !ok {
		return outcomeRejected
	}

	username, err := cmd.Field(0)
	if err != nil {
		s.writeLine("Missing username.")
		return outcomeRejected
	}

	switch err := s.accounts.Remove(ctx, actor, username); {
	case err == nil:
		s.writeLine("User removed successfully")
		return outcomeOK
	case errors.Is(err, domain.ErrUserNotFound):
		s.writeLine("User not found.")
		return outcomeRejected
	case errors.Is(err, domain.ErrNotAdmin):
		s.writeLine("Permission denied. Only admins can perform this operation.")
		return outcomeRejected
	default:
		s.log.Error().Err(err).Str("username", username).Msg("remove user failed")
		s.writeLine("Error removing user")
		return outcomeError
	}
}

func (s *Session) handleUpdateUser(ctx context.Context, cmd protocol.Command) string {
	actor, ok := s.requireAdmin()
	if !ok {
		return outcomeRejected
	}

	in, err := userInputFromCommand(cmd)
	if err != nil {
		s.writeLine(err.Error())
		return outcomeRejected
	}

	switch err := s.accounts.Update(ctx, actor, in); {
	case err == nil:
		s.writeLine("User updated successfully")
		return outcomeOK
	case errors.Is(err, domain.ErrInvalidBirthdate):
		s.writeLine("Invalid birthdate. Please use YYYY-MM-DD, and make sure values are correct.")
		return outcomeRejected
	case errors.Is(err, domain.ErrInvalidGender):
		s.writeLine("Invalid gender. Make sure to enter either M or F.")
		return outcomeRejected
	case errors.Is(err, domain.ErrUserNotFound):
		s.writeLine("User not found.")
		return outcomeRejected
	case errors.Is(err, domain.ErrNotAdmin):
		s.writeLine("Permission denied. Only admins can perform this operation.")
		return outcomeRejected
	default:
		s.log.Error().Err(err).Str("username", in.Username).Msg("update user failed")
		s.writeLine("Error updating user")
		return outcomeError
	}
}

func (s *Session) handleListUsers(ctx context.Context) string {
	actor, ok := s.requireAdmin()
	if !ok {
		return outcomeRejected
	}

	users, err := s.accounts.List(ctx, actor)
	if err != nil {
		s.log.Error().Err(err).Msg("list users failed")
		s.writeLine("Error listing users")
		return outcomeError
	}

	parts := make([]string, 0, 1+7*len(users))
	parts = append(parts, protocol.TagListUsers)
	for _, u := range users {
		parts = append(parts,
			u.Username, u.Name, u.Surname, u.Gender,
			u.Email, u.Location, strconv.FormatBool(u.Admin))
	}
	s.writeLine(protocol.Encode(parts...))
	return outcomeOK
}

func (s *Session) handleGetInbox(ctx context.Context) string {
	user := s.Current()
	if user == nil {
		s.writeLine("Permission denied. User not authenticated.")
		return outcomeRejected
	}

	views, err := s.messages.Inbox(ctx, user.Username)
	if err != nil {
		s.log.Error().Err(err).Msg("inbox query failed")
		s.writeLine("Error retrieving inbox")
		return outcomeError
	}

	s.writeLine(encodeMailbox(protocol.TagGetInbox, views))
	return outcomeOK
}

func (s *Session) handleGetOutbox(ctx context.Context) string {
	user := s.Current()
	if user == nil {
		s.writeLine("Permission denied. User not authenticated.")
		return outcomeRejected
	}

	views, err := s.messages.Outbox(ctx, user.Username)
	if err != nil {
		s.log.Error().Err(err).Msg("outbox query failed")
		s.writeLine("Error retrieving outbox")
		return outcomeError
	}

	s.writeLine(encodeMailbox(protocol.TagGetOutbox, views))
	return outcomeOK
}

// requireAdmin applies the role snapshot captured at login. A denied caller
// gets the rejection line here and causes no service or store call.
func (s *Session) requireAdmin() (*domain.User, bool) {
	user := s.Current()
	if user == nil || !user.Admin {
		s.writeLine("Permission denied. Only admins can perform this operation.")
		return nil, false
	}
	return user, true
}

// userInputFromCommand reads the nine ADDUSER / UPDATEUSER fields in wire
// order: username, name, surname, birthdate, gender, email, location,
// password, admin flag.
func userInputFromCommand(cmd protocol.Command) (ports.UserInput, error) {
	names := []string{
		"username", "name", "surname", "birthdate",
		"gender", "email", "location", "password", "admin flag",
	}
	fields := make([]string, len(names))
	for i, name := range names {
		v, err := cmd.Field(i)
		if err != nil {
			return ports.UserInput{}, fmt.Errorf("Missing %s.", name)
		}
		fields[i] = v
	}

	return ports.UserInput{
		Username:  fields[0],
		Name:      fields[1],
		Surname:   fields[2],
		Birthdate: fields[3],
		Gender:    fields[4],
		Email:     fields[5],
		Location:  fields[6],
		Password:  fields[7],
		// Boolean.parseBoolean semantics: "true" in any case, else false.
		Admin: strings.EqualFold(fields[8], "true"),
	}, nil
}

func encodeMailbox(tag string, views []ports.MessageView) string {
	parts := make([]string, 0, 1+4*len(views))
	parts = append(parts, tag)
	for _, v := range views {
		counterpart := v.Counterpart
		if v.CounterpartDeleted {
			counterpart += " (account deleted)"
		}
		parts = append(parts, counterpart, v.Title, v.Content, v.SentAt.Format(time.RFC3339))
	}
	return protocol.Encode(parts...)
}

// Current returns the authenticated user, or nil while anonymous.
func (s *Session) Current() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Identity returns the authenticated username, or "" while anonymous.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Username
}

func (s *Session) setCurrent(u *domain.User) {
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()
}

func (s *Session) clearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// writeLine sends one response line. Write failures surface on the next
// read, so they are only logged here.
func (s *Session) writeLine(line string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil && !s.isClosed() {
		s.log.Warn().Err(err).Msg("write failed")
	}
}

// Close tears the session down: drops presence, clears the identity, and
// closes the connection, unblocking the read loop. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	user := s.current
	s.current = nil
	s.mu.Unlock()

	if user != nil && s.presence != nil {
		if err := s.presence.Offline(context.Background(), user.Username); err != nil {
			s.log.Warn().Err(err).Msg("presence offline failed")
		}
	}
	_ = s.conn.Close()
	s.log.Info().Msg("session closed")
}

// forceRemove is the liveness monitor's termination path: notify the peer,
// then close. This is the only way a session ends from outside its own
// read loop.
func (s *Session) forceRemove() {
	s.writeLine(RemovalNotice)
	s.Close()
}
