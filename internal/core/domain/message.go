package domain

import "time"

// Direction selects which side of a mailbox a query returns.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

// RemovedPlaceholder is substituted for a sender or receiver that was
// detached when its account was removed. It is never stored.
const RemovedPlaceholder = "REMOVED"

// Message is a single delivered message. Immutable once persisted; the
// sender or receiver may reference an account that no longer exists.
type Message struct {
	Sender   string
	Receiver string
	Title    string
	Content  string
	SentAt   time.Time
}
