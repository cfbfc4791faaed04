package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/srdc/messageapp/internal/core/domain"
)

const usersCollection = "users"

// UserRepository persists accounts in the users collection. Removal also
// touches the messages collection to detach the removed account from its
// messages without deleting them.
type UserRepository struct {
	users    *mongo.Collection
	messages *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		users:    db.Collection(usersCollection),
		messages: db.Collection(messagesCollection),
	}
}

// userDoc uses the username as the document key, which gives uniqueness
// without a separate index.
type userDoc struct {
	Username     string    `bson:"_id"`
	Name         string    `bson:"name"`
	Surname      string    `bson:"surname"`
	Birthdate    time.Time `bson:"birthdate"`
	Gender       string    `bson:"gender"`
	Email        string    `bson:"email"`
	Location     string    `bson:"location"`
	PasswordHash string    `bson:"password_hash"`
	Admin        bool      `bson:"admin"`
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var doc userDoc
	if err := r.users.FindOne(ctx, bson.M{"_id": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return docToUser(doc), nil
}

func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	n, err := r.users.CountDocuments(ctx, bson.M{"_id": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count user: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, err := r.users.InsertOne(ctx, userToDoc(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	update := bson.M{"$set": bson.M{
		"name":          user.Name,
		"surname":       user.Surname,
		"birthdate":     user.Birthdate,
		"gender":        user.Gender,
		"email":         user.Email,
		"location":      user.Location,
		"password_hash": user.PasswordHash,
		"admin":         user.Admin,
	}}

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": user.Username}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete detaches the account from its messages (unsetting sender or
// receiver) before deleting the account record itself.
func (r *UserRepository) Delete(ctx context.Context, username string) error {
	if _, err := r.messages.UpdateMany(ctx,
		bson.M{"sender": username},
		bson.M{"$unset": bson.M{"sender": ""}},
	); err != nil {
		return fmt.Errorf("detach sent messages: %w", err)
	}
	if _, err := r.messages.UpdateMany(ctx,
		bson.M{"receiver": username},
		bson.M{"$unset": bson.M{"receiver": ""}},
	); err != nil {
		return fmt.Errorf("detach received messages: %w", err)
	}

	res, err := r.users.DeleteOne(ctx, bson.M{"_id": username})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List returns all accounts, admins first, then by username.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	sort := bson.D{{Key: "admin", Value: -1}, {Key: "_id", Value: 1}}
	cur, err := r.users.Find(ctx, bson.M{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var users []domain.User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, *docToUser(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func userToDoc(u *domain.User) userDoc {
	return userDoc{
		Username:     u.Username,
		Name:         u.Name,
		Surname:      u.Surname,
		Birthdate:    u.Birthdate,
		Gender:       u.Gender,
		Email:        u.Email,
		Location:     u.Location,
		PasswordHash: u.PasswordHash,
		Admin:        u.Admin,
	}
}

func docToUser(d userDoc) *domain.User {
	return &domain.User{
		Username:     d.Username,
		Name:         d.Name,
		Surname:      d.Surname,
		Birthdate:    d.Birthdate,
		Gender:       d.Gender,
		Email:        d.Email,
		Location:     d.Location,
		PasswordHash: d.PasswordHash,
		Admin:        d.Admin,
	}
}
