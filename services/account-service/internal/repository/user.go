package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/model"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrConflict     = errors.New("user conflicts with an existing email, phone or uuid")
	// ErrPartialWrite means some documents of a multi-document save were written and some were not.
	ErrPartialWrite = errors.New("partial multi-document write")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	GetUserByUUID(ctx context.Context, uuid string) (*model.User, error)
	GetUserByPasswordUUID(ctx context.Context, passwordUUID string) (*model.User, error)

	// SaveUser replaces the stored document with user.
	SaveUser(ctx context.Context, user *model.User) (*model.User, error)

	// SaveUsers replaces several documents. Without transactions a failure after the first write
	// leaves earlier writes in place and is reported as ErrPartialWrite.
	SaveUsers(ctx context.Context, users ...*model.User) error

	// SetFollowers overwrites only the followers of id, and only while they still equal current. It
	// reports false when the stored list changed since it was read.
	SetFollowers(ctx context.Context, id bson.ObjectID, current, followers []model.FollowEdge) (bool, error)

	ListUsers(ctx context.Context, params ListUsersParams) ([]*model.User, error)
}

// ListUsersParams pages through users in _id order.
type ListUsersParams struct {
	AfterID string
	Limit   int64
}

const userCollection = "users"

type userMongoRepository struct {
	db           *mongo.Database
	timeout      time.Duration
	transactions bool
}

// NewUserMongoRepository creates the repository and its unique indexes. When transactions is set,
// SaveUsers wraps its writes in a multi-document transaction, which needs a replica set.
func NewUserMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
	timeout time.Duration,
	transactions bool,
) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "password_uuid", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{
		db:           db,
		timeout:      timeout,
		transactions: transactions,
	}
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.db.Collection(userCollection).InsertOne(ctx, user)
	if err != nil {
		return nil, translateError(err)
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		user.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return user, nil
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userMongoRepository) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"phone": phone})
}

func (r *userMongoRepository) GetUserByUUID(ctx context.Context, uuid string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"uuid": uuid})
}

func (r *userMongoRepository) GetUserByPasswordUUID(ctx context.Context, passwordUUID string) (*model.User, error) {
	if passwordUUID == "" {
		return nil, ErrUserNotFound
	}

	return r.findOne(ctx, bson.M{"password_uuid": passwordUUID})
}

func (r *userMongoRepository) SaveUser(ctx context.Context, user *model.User) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.replace(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userMongoRepository) SaveUsers(ctx context.Context, users ...*model.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.transactions {
		return r.saveUsersInTransaction(ctx, users)
	}

	for i, user := range users {
		if err := r.replace(ctx, user); err != nil {
			if i > 0 {
				return fmt.Errorf("%w: saved %d of %d users: %w", ErrPartialWrite, i, len(users), err)
			}
			return err
		}
	}

	return nil
}

func (r *userMongoRepository) saveUsersInTransaction(ctx context.Context, users []*model.User) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		for _, user := range users {
			if err := r.replace(ctx, user); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	return err
}

func (r *userMongoRepository) SetFollowers(
	ctx context.Context,
	id bson.ObjectID,
	current, followers []model.FollowEdge,
) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"_id": id}
	if len(current) == 0 {
		filter["$or"] = bson.A{
			bson.M{"followers": bson.M{"$size": 0}},
			bson.M{"followers": nil},
		}
	} else {
		filter["followers"] = current
	}

	if followers == nil {
		followers = []model.FollowEdge{}
	}

	result, err := r.db.Collection(userCollection).UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"followers":  followers,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return false, translateError(err)
	}

	return result.MatchedCount == 1, nil
}

func (r *userMongoRepository) ListUsers(ctx context.Context, params ListUsersParams) ([]*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	filter := bson.M{}
	if params.AfterID != "" {
		afterID, err := bson.ObjectIDFromHex(params.AfterID)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q: %w", params.AfterID, err)
		}
		filter["_id"] = bson.M{"$gt": afterID}
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.db.Collection(userCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*model.User
	for cursor.Next(ctx) {
		var user model.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var user model.User
	if err := r.db.Collection(userCollection).FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translateError(err)
	}

	return &user, nil
}

func (r *userMongoRepository) replace(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := r.db.Collection(userCollection).ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

func translateError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrUserNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}
