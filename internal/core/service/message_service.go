package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/srdc/messageapp/internal/core/domain"
	"github.com/srdc/messageapp/internal/core/ports"
)

// MessageService implements message delivery and mailbox queries.
type MessageService struct {
	messages ports.MessageRepository
	users    ports.UserRepository
	log      zerolog.Logger
}

func NewMessageService(messages ports.MessageRepository, users ports.UserRepository, log zerolog.Logger) *MessageService {
	return &MessageService{messages: messages, users: users, log: log}
}

// Send persists one message from sender to receiver with a server-assigned
// timestamp, which is returned to the caller. Nothing is persisted when the
// receiver does not exist.
func (s *MessageService) Send(ctx context.Context, sender, receiver, title, content string) (time.Time, error) {
	ok, err := s.users.Exists(ctx, receiver)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, domain.ErrUserNotFound
	}

	sentAt := time.Now().UTC()
	msg := &domain.Message{
		Sender:   sender,
		Receiver: receiver,
		Title:    title,
		Content:  content,
		SentAt:   sentAt,
	}

	if err := s.messages.Insert(ctx, msg); err != nil {
		return time.Time{}, err
	}

	s.log.Info().Str("sender", sender).Str("receiver", receiver).Msg("message sent")
	return sentAt, nil
}

func (s *MessageService) Inbox(ctx context.Context, username string) ([]ports.MessageView, error) {
	msgs, err := s.messages.FindByUser(ctx, username, domain.Inbound)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, msgs, domain.Inbound)
}

func (s *MessageService) Outbox(ctx context.Context, username string) ([]ports.MessageView, error) {
	msgs, err := s.messages.FindByUser(ctx, username, domain.Outbound)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, msgs, domain.Outbound)
}

// views resolves each message's counterpart and whether that account still
// exists. Entries are kept either way.
func (s *MessageService) views(ctx context.Context, msgs []domain.Message, dir domain.Direction) ([]ports.MessageView, error) {
	out := make([]ports.MessageView, 0, len(msgs))
	for _, m := range msgs {
		counterpart := m.Sender
		if dir == domain.Outbound {
			counterpart = m.Receiver
		}

		deleted := counterpart == domain.RemovedPlaceholder
		if !deleted {
			ok, err := s.users.Exists(ctx, counterpart)
			if err != nil {
				return nil, err
			}
			deleted = !ok
		}

		out = append(out, ports.MessageView{
			Counterpart:        counterpart,
			CounterpartDeleted: deleted,
			Title:              m.Title,
			Content:            m.Content,
			SentAt:             m.SentAt,
		})
	}
	return out, nil
}
