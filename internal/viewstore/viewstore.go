// Package viewstore implements the projector's read-optimized view
// store: a MongoDB collection of account balance documents, updated
// only through idempotent conditional upserts. Grounded on the
// mongo-driver-based read-model repository pattern in the pack's
// event-sourced bank-account example.
package viewstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Record is the view-side projection of an account: cumulative funds
// and the set of event timestamps already applied (idempotency guard).
type Record struct {
	ID         string   `bson:"_id"`
	Funds      int64    `bson:"funds"`
	Timestamps []string `bson:"timestamps"`
}

// Store wraps a Mongo collection with the conditional upsert the
// projector's batch handler needs.
type Store struct {
	coll *mongo.Collection
}

func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// ApplyResult reports whether a call actually changed the document
// (false means the timestamp was already applied — a harmless
// re-delivery).
type ApplyResult struct {
	Applied bool
}

// Apply performs the conditional $inc/$addToSet upsert spec.md
// describes: funds changes by delta and timestamp joins the applied
// set, but only if the document either doesn't exist yet or doesn't
// already contain timestamp. On a duplicate-key race from a concurrent
// first-insert for the same id, retries once with upsert disabled — by
// then the document exists and the same conditional update either
// succeeds or is a no-op.
func (s *Store) Apply(ctx context.Context, id string, delta int64, timestamp string) (ApplyResult, error) {
	res, err := s.upsert(ctx, id, delta, timestamp, true)
	if err == nil {
		return res, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return s.upsert(ctx, id, delta, timestamp, false)
	}
	return ApplyResult{}, fmt.Errorf("viewstore: apply: %w", err)
}

func (s *Store) upsert(ctx context.Context, id string, delta int64, timestamp string, allowUpsert bool) (ApplyResult, error) {
	filter := bson.M{
		"_id":        id,
		"timestamps": bson.M{"$ne": timestamp},
	}
	update := bson.M{
		"$inc":      bson.M{"funds": delta},
		"$addToSet": bson.M{"timestamps": timestamp},
	}

	result, err := s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(allowUpsert))
	if err != nil {
		return ApplyResult{}, err
	}
	applied := result.ModifiedCount > 0 || result.UpsertedCount > 0
	return ApplyResult{Applied: applied}, nil
}

// ErrNotFound is returned by Get when no view record exists for id.
var ErrNotFound = errors.New("viewstore: record not found")

// Get fetches the current view record for id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("viewstore: get: %w", err)
	}
	return rec, nil
}
