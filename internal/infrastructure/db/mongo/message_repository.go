package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/srdc/messageapp/internal/core/domain"
)

const messagesCollection = "messages"

// MessageRepository persists delivered messages. A detached sender or
// receiver (account removed) is stored as an absent field and surfaces as
// domain.RemovedPlaceholder on read.
type MessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{coll: db.Collection(messagesCollection)}
}

type messageDoc struct {
	Sender   string    `bson:"sender,omitempty"`
	Receiver string    `bson:"receiver,omitempty"`
	Title    string    `bson:"title"`
	Content  string    `bson:"content"`
	SentAt   time.Time `bson:"sent_at"`
}

func (r *MessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	doc := messageDoc{
		Sender:   msg.Sender,
		Receiver: msg.Receiver,
		Title:    msg.Title,
		Content:  msg.Content,
		SentAt:   msg.SentAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepository) FindByUser(ctx context.Context, username string, dir domain.Direction) ([]domain.Message, error) {
	field := "receiver"
	if dir == domain.Outbound {
		field = "sender"
	}

	sort := bson.D{{Key: "sent_at", Value: 1}}
	cur, err := r.coll.Find(ctx, bson.M{field: username}, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cur.Close(ctx)

	var msgs []domain.Message
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, domain.Message{
			Sender:   orRemoved(doc.Sender),
			Receiver: orRemoved(doc.Receiver),
			Title:    doc.Title,
			Content:  doc.Content,
			SentAt:   doc.SentAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	return msgs, nil
}

func orRemoved(username string) string {
	if username == "" {
		return domain.RemovedPlaceholder
	}
	return username
}
