package ports

import (
	"context"

	"github.com/srdc/messageapp/internal/core/domain"
)

// MessageRepository defines the persistence contract for messages.
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	// FindByUser returns the user's inbox (Inbound) or outbox (Outbound).
	// Detached counterparts are reported as domain.RemovedPlaceholder.
	FindByUser(ctx context.Context, username string, dir domain.Direction) ([]domain.Message, error)
}
