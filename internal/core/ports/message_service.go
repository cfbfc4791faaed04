package ports

import (
	"context"
	"time"
)

// MessageView is one mailbox entry as presented to a client: the other
// party of the exchange plus the message itself.
type MessageView struct {
	Counterpart        string
	CounterpartDeleted bool
	Title              string
	Content            string
	SentAt             time.Time
}

// MessageService implements message exchange. Send assigns the server-side
// timestamp and returns it; mailbox queries keep entries whose counterpart
// account was removed, flagging them instead of omitting them.
type MessageService interface {
	Send(ctx context.Context, sender, receiver, title, content string) (time.Time, error)
	Inbox(ctx context.Context, username string) ([]MessageView, error)
	Outbox(ctx context.Context, username string) ([]MessageView, error)
}
