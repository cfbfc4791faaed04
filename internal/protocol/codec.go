// Package protocol implements the line-oriented wire grammar: one UTF-8
// line per request or response, fields joined by the literal ":::" token,
// first field the command tag.
//
// The delimiter is not escaped. A field value containing ":::" shifts every
// following field; this is a known limitation of the wire format, kept for
// compatibility rather than silently fixed.
package protocol

import (
	"errors"
	"strings"
)

// Delimiter separates fields on the wire.
const Delimiter = ":::"

// The nine recognised command tags. Incoming tags match case-insensitively
// and are canonicalised to these values.
const (
	TagLogin      = "LOGIN"
	TagLogout     = "LOGOUT"
	TagSendMsg    = "SENDMSG"
	TagAddUser    = "ADDUSER"
	TagRemoveUser = "REMOVEUSER"
	TagUpdateUser = "UPDATEUSER"
	TagListUsers  = "LISTUSERS"
	TagGetInbox   = "GETINBOX"
	TagGetOutbox  = "GETOUTBOX"
)

var knownTags = map[string]struct{}{
	TagLogin:      {},
	TagLogout:     {},
	TagSendMsg:    {},
	TagAddUser:    {},
	TagRemoveUser: {},
	TagUpdateUser: {},
	TagListUsers:  {},
	TagGetInbox:   {},
	TagGetOutbox:  {},
}

var (
	ErrEmptyLine    = errors.New("protocol: empty line")
	ErrMissingField = errors.New("protocol: missing field")
)

// Command is one parsed request: a tag plus its ordered fields. Field count
// is not checked here; the dispatcher raises ErrMissingField when it reads
// a field the client did not supply.
type Command struct {
	Tag    string
	Fields []string
}

// Decode parses a single line into a Command. Unrecognised tags pass
// through unchanged so the dispatcher can reject them.
func Decode(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Command{}, ErrEmptyLine
	}

	parts := strings.Split(line, Delimiter)
	tag := parts[0]
	if canon := strings.ToUpper(tag); isKnown(canon) {
		tag = canon
	}
	return Command{Tag: tag, Fields: parts[1:]}, nil
}

// Field returns the i-th field, or ErrMissingField when the command was
// sent with fewer fields.
func (c Command) Field(i int) (string, error) {
	if i < 0 || i >= len(c.Fields) {
		return "", ErrMissingField
	}
	return c.Fields[i], nil
}

// Known reports whether the command's tag is one of the nine recognised
// actions.
func (c Command) Known() bool {
	return isKnown(c.Tag)
}

// Encode joins response parts into a single wire line (without the
// terminating newline).
func Encode(parts ...string) string {
	return strings.Join(parts, Delimiter)
}

func isKnown(tag string) bool {
	_, ok := knownTags[tag]
	return ok
}
