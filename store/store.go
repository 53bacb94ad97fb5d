// Package store is the MongoDB adapter behind the domain packages. It owns
// collection handles, index creation and the transactional units the batching
// and submission flows require.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo bundles the collection handles. Construct with New so the indexes the
// domain invariants lean on (unique membership collection id above all) exist
// before any request runs.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database

	users         *mongo.Collection
	collections   *mongo.Collection
	batches       *mongo.Collection
	memberships   *mongo.Collection
	seasonWindows *mongo.Collection
	harvestLimits *mongo.Collection
	alerts        *mongo.Collection
}

// New wires the collections and creates indexes.
func New(ctx context.Context, client *mongo.Client, dbName string) (*Mongo, error) {
	db := client.Database(dbName)
	m := &Mongo{
		client:        client,
		db:            db,
		users:         db.Collection("users"),
		collections:   db.Collection("collection_events"),
		batches:       db.Collection("batches"),
		memberships:   db.Collection("batch_collections"),
		seasonWindows: db.Collection("season_windows"),
		harvestLimits: db.Collection("harvest_limits"),
		alerts:        db.Collection("alerts"),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{m.users, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		{m.users, mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique}},

		{m.collections, mongo.IndexModel{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{m.collections, mongo.IndexModel{Keys: bson.D{{Key: "syncStatus", Value: 1}}}},
		{m.collections, mongo.IndexModel{Keys: bson.D{{Key: "species", Value: 1}}}},

		{m.batches, mongo.IndexModel{Keys: bson.D{{Key: "batchNumber", Value: 1}}, Options: unique}},
		{m.batches, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}}},

		// A collection event belongs to at most one batch. This index, not the
		// application pre-check, decides races between concurrent creations.
		{m.memberships, mongo.IndexModel{Keys: bson.D{{Key: "collectionId", Value: 1}}, Options: unique}},
		{m.memberships, mongo.IndexModel{Keys: bson.D{{Key: "batchId", Value: 1}}}},

		{m.seasonWindows, mongo.IndexModel{Keys: bson.D{{Key: "species", Value: 1}, {Key: "region", Value: 1}}, Options: unique}},
		{m.harvestLimits, mongo.IndexModel{Keys: bson.D{{Key: "species", Value: 1}, {Key: "farmerId", Value: 1}, {Key: "season", Value: 1}}, Options: unique}},

		{m.alerts, mongo.IndexModel{Keys: bson.D{{Key: "assignedTo", Value: 1}}}},
		{m.alerts, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}}},
	}

	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateOne(ctx, ix.model); err != nil {
			return err
		}
	}
	return nil
}

// inTransaction runs fn inside one multi-document transaction. Requires the
// deployment to be a replica set, which is also what the driver requires for
// causal consistency.
func (m *Mongo) inTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
