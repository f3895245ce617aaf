package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/guttosm/campus-access/internal/domain/model"
)

// TokenRepository stores revoked access token ids using MongoDB.
type TokenRepository struct {
	collection *mongo.Collection
}

// NewTokenRepository creates a new token repository.
func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{
		collection: db.Collection(CollectionTokens),
	}
}

// Create deny-lists a token. Denying the same token twice is a no-op.
func (r *TokenRepository) Create(ctx context.Context, token *model.Token) error {
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	if token.Type == "" {
		token.Type = model.TokenTypeDenied
	}
	token.CreatedAt = time.Now().UTC()

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"token": token.Token},
		bson.M{"$setOnInsert": token},
		options.Update().SetUpsert(true),
	)
	return err
}

// IsBlacklisted checks if a token id is deny-listed.
func (r *TokenRepository) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"token": tokenID,
		"type":  model.TokenTypeDenied,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CleanupExpired removes entries whose token has expired.
func (r *TokenRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lt": now},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
