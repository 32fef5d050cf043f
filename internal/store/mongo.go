// Package store persists canonical mail records in MongoDB with
// upsert-by-message-id semantics.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/manogna-24/Email-processor/internal/model"
)

// serverSelectionTimeout bounds how long the driver waits for a
// reachable server before failing initialization.
const serverSelectionTimeout = 5 * time.Second

// StoreError indicates a failure talking to the record store. It wraps
// the underlying driver error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error (%s): %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err (or any error in its chain) is a
// StoreError.
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

// Mongo is a record store backed by one MongoDB collection. The
// connection lives for the rest of the process; there is no Close.
type Mongo struct {
	collection *mongo.Collection
	clock      func() time.Time
	log        *zap.Logger
}

// Connect establishes the MongoDB connection, verifies liveness with a
// ping, and declares the unique index on message_id. Index creation is
// idempotent, so repeated runs are safe.
func Connect(
	ctx context.Context,
	uri, database, collection string,
	log *zap.Logger,
) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(serverSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Error("connecting to MongoDB", zap.Error(err))
		return nil, &StoreError{Op: "connect", Err: err}
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Error("MongoDB server not reachable", zap.Error(err))
		return nil, &StoreError{Op: "ping", Err: err}
	}

	coll := client.Database(database).Collection(collection)

	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "message_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		log.Error("creating message_id index", zap.Error(err))
		return nil, &StoreError{Op: "create index", Err: err}
	}

	log.Info("connected to MongoDB",
		zap.String("database", database),
		zap.String("collection", collection),
	)

	return &Mongo{collection: coll, clock: time.Now, log: log}, nil
}

// Save upserts the record by message_id, setting every field plus a
// fresh processed_at. The unique index and the upsert together
// guarantee that repeated saves of the same id never produce a
// duplicate document. Errors are logged and returned, never swallowed.
func (m *Mongo) Save(ctx context.Context, record *model.Record) error {
	filter := bson.M{"message_id": record.MessageID}
	update := upsertUpdate(record, m.clock())

	_, err := m.collection.UpdateOne(
		ctx, filter, update, options.Update().SetUpsert(true),
	)
	if err != nil {
		m.log.Error("saving mail record",
			zap.String("message_id", record.MessageID),
			zap.Error(err),
		)
		return &StoreError{Op: "save", Err: err}
	}

	m.log.Info("saved mail record",
		zap.String("sender", record.Sender),
		zap.String("message_id", record.MessageID),
	)

	return nil
}

// upsertUpdate builds the $set document for one record, stamping
// processed_at with the given instant.
func upsertUpdate(record *model.Record, now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"message_id":   record.MessageID,
		"sender":       record.Sender,
		"subject":      record.Subject,
		"timestamp":    record.Timestamp,
		"processed_at": now,
	}}
}
