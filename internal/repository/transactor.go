package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTransactor runs functions inside a MongoDB transaction. Standalone servers do not
// support transactions; there fn runs directly.
type MongoTransactor struct {
	client    *mongo.Client
	supported bool
}

// NewMongoTransactor probes the deployment topology once.
func NewMongoTransactor(ctx context.Context, db *MongoDB) *MongoTransactor {
	t := &MongoTransactor{client: db.Client}
	t.supported = supportsTransactions(ctx, db.Client)
	if !t.supported {
		log.Warn().Msg("MongoDB deployment does not support transactions - role grants rely on compensation")
	}
	return t
}

// Supported reports whether transactions are used.
func (t *MongoTransactor) Supported() bool {
	return t.supported
}

// WithTransaction runs fn in a transaction when supported.
func (t *MongoTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.supported {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

func supportsTransactions(ctx context.Context, client *mongo.Client) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false
	}
	// Replica set members report setName, mongos reports msg "isdbgrid".
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

// NoopTransactor runs fn directly.
type NoopTransactor struct{}

// WithTransaction runs fn without a transaction.
func (NoopTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
