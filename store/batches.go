package store

import (
	"context"
	"fmt"
	"time"

	"herbtrace/batching"
	"herbtrace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateBatch inserts the batch, its membership rows and the optional
// assignment alert in one transaction. The unique index on
// batch_collections.collectionId turns a concurrent claim of the same
// collection into ErrConflict with nothing written.
func (m *Mongo) CreateBatch(ctx context.Context, batch *models.Batch, collectionIDs []string, alert *models.Alert) error {
	now := time.Now().UTC()
	rows := make([]interface{}, len(collectionIDs))
	for i, cid := range collectionIDs {
		rows[i] = models.BatchMembership{
			BatchID:      batch.ID,
			CollectionID: cid,
			CreatedAt:    now,
		}
	}

	err := m.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := m.batches.InsertOne(sc, batch); err != nil {
			return err
		}
		if _, err := m.memberships.InsertMany(sc, rows); err != nil {
			return err
		}
		if alert != nil {
			if _, err := m.alerts.InsertOne(sc, alert); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: a collection is already batched or the batch number collided", batching.ErrConflict)
		}
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// BatchByID satisfies batching.Store.
func (m *Mongo) BatchByID(ctx context.Context, id primitive.ObjectID) (*models.Batch, error) {
	var b models.Batch
	if err := m.batches.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: batch %s", batching.ErrNotFound, id.Hex())
		}
		return nil, err
	}
	return &b, nil
}

// CollectionsForBatch returns the member collection events of one batch.
func (m *Mongo) CollectionsForBatch(ctx context.Context, batchID primitive.ObjectID) ([]models.CollectionEvent, error) {
	cur, err := m.memberships.Find(ctx, bson.M{"batchId": batchID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.BatchMembership
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.CollectionID
	}
	return m.CollectionsByIDs(ctx, ids)
}

// SetBatchAssignment updates the assignee fields and forces status assigned.
// The filter re-checks that the batch is still assignable, so a concurrent
// transition past assigned loses exactly one of the two races.
func (m *Mongo) SetBatchAssignment(ctx context.Context, id primitive.ObjectID, username, fullName string) (*models.Batch, error) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": bson.A{models.BatchCreated, models.BatchAssigned}},
	}
	return m.updateBatch(ctx, id, filter, bson.M{
		"assignedTo":     username,
		"assignedToName": fullName,
		"status":         models.BatchAssigned,
		"updatedAt":      time.Now().UTC(),
	})
}

// SetBatchStatus advances the lifecycle state. Transition legality is the
// batching package's job, but the filter pins the status the caller decided
// from; if another writer moved the batch in between, no match and
// ErrInvalidState instead of a lost update.
func (m *Mongo) SetBatchStatus(ctx context.Context, id primitive.ObjectID, from, to models.BatchStatus) (*models.Batch, error) {
	filter := bson.M{"_id": id, "status": from}
	return m.updateBatch(ctx, id, filter, bson.M{
		"status":    to,
		"updatedAt": time.Now().UTC(),
	})
}

// SetBatchLedgerTx records the ledger transaction id after a mirror write.
func (m *Mongo) SetBatchLedgerTx(ctx context.Context, id primitive.ObjectID, txID string) error {
	_, err := m.batches.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"ledgerTxId": txID}})
	return err
}

func (m *Mongo) updateBatch(ctx context.Context, id primitive.ObjectID, filter, set bson.M) (*models.Batch, error) {
	var b models.Batch
	err := m.batches.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// No match is either a missing batch or a stale status guard.
			count, cerr := m.batches.CountDocuments(ctx, bson.M{"_id": id})
			if cerr != nil {
				return nil, cerr
			}
			if count == 0 {
				return nil, fmt.Errorf("%w: batch %s", batching.ErrNotFound, id.Hex())
			}
			return nil, fmt.Errorf("%w: batch %s was modified concurrently", batching.ErrInvalidState, id.Hex())
		}
		return nil, err
	}
	return &b, nil
}

// ListBatches satisfies batching.Store: one page, newest first, plus the
// total count regardless of page size.
func (m *Mongo) ListBatches(ctx context.Context, f batching.BatchFilter) ([]models.Batch, int64, error) {
	q := bson.M{}
	if f.Species != "" {
		q["species"] = f.Species
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.AssignedTo != "" {
		q["assignedTo"] = f.AssignedTo
	}
	if f.CreatedBy != "" {
		q["createdBy"] = f.CreatedBy
	}

	total, err := m.batches.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	cur, err := m.batches.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(f.Limit).
		SetSkip(f.Offset))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.Batch
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// BatchStats aggregates counts by status and species plus the grand total
// quantity, for the operator dashboard.
type BatchStats struct {
	TotalBatches  int64            `json:"totalBatches"`
	ByStatus      map[string]int64 `json:"byStatus"`
	BySpecies     map[string]int64 `json:"bySpecies"`
	TotalQuantity float64          `json:"totalQuantity"`
}

func (m *Mongo) BatchStatistics(ctx context.Context) (*BatchStats, error) {
	stats := &BatchStats{
		ByStatus:  map[string]int64{},
		BySpecies: map[string]int64{},
	}

	var err error
	if stats.TotalBatches, err = m.batches.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}

	for _, group := range []struct {
		field string
		into  map[string]int64
	}{
		{"$status", stats.ByStatus},
		{"$species", stats.BySpecies},
	} {
		cur, err := m.batches.Aggregate(ctx, mongo.Pipeline{
			{{Key: "$group", Value: bson.M{"_id": group.field, "count": bson.M{"$sum": 1}}}},
		})
		if err != nil {
			return nil, err
		}
		var rows []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.All(ctx, &rows); err != nil {
			return nil, err
		}
		for _, r := range rows {
			group.into[r.ID] = r.Count
		}
	}

	cur, err := m.batches.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$totalQuantity"}}}},
	})
	if err != nil {
		return nil, err
	}
	var totals []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &totals); err != nil {
		return nil, err
	}
	if len(totals) > 0 {
		stats.TotalQuantity = totals[0].Total
	}
	return stats, nil
}
