package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/rbac"
)

// UserRepository implements UserRepositoryInterface using MongoDB.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection(CollectionUsers),
	}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Role == "" {
		user.Role = rbac.DefaultRole
	}
	user.Version = 1
	user.BeforeSave(time.Now().UTC())

	_, err := r.collection.InsertOne(ctx, user)
	return mapWriteError(err)
}

// FindByEmail finds a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByUsername finds a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// FindByID finds a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Save writes the whole user document. The write only applies if the stored version
// equals the loaded one; on success the version is incremented.
func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	user.BeforeSave(time.Now().UTC())

	expected := user.Version
	user.Version = expected + 1

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID, "version": expected}, user)
	if err != nil {
		user.Version = expected
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		user.Version = expected
		return ErrVersionConflict
	}
	return nil
}

// UpdateRole changes the role of a user who still holds from.
func (r *UserRepository) UpdateRole(ctx context.Context, id primitive.ObjectID, from, to rbac.Role) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "role": from},
		bson.M{
			"$set": bson.M{"role": to, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStateConflict
	}
	return nil
}

// PruneExpiredRefreshTokens pulls expired refresh token records from every user and
// returns how many users were modified.
func (r *UserRepository) PruneExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	expired := bson.M{"expires_at": bson.M{"$lte": now}}
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"refresh_tokens": bson.M{"$elemMatch": expired}},
		bson.M{
			"$pull": bson.M{"refresh_tokens": expired},
			"$inc":  bson.M{"version": 1},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
