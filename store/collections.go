package store

import (
	"context"
	"fmt"
	"time"

	"herbtrace/batching"
	"herbtrace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionFilter narrows ListCollections. Zero values match everything.
type CollectionFilter struct {
	FarmerID   string
	Species    string
	SyncStatus models.SyncStatus
	StartDate  time.Time
	EndDate    time.Time
	Limit      int64
	Offset     int64
}

func (f CollectionFilter) query() bson.M {
	q := bson.M{}
	if f.FarmerID != "" {
		q["farmerId"] = f.FarmerID
	}
	if f.Species != "" {
		q["species"] = f.Species
	}
	if f.SyncStatus != "" {
		q["syncStatus"] = f.SyncStatus
	}
	date := bson.M{}
	if !f.StartDate.IsZero() {
		date["$gte"] = f.StartDate
	}
	if !f.EndDate.IsZero() {
		date["$lte"] = f.EndDate
	}
	if len(date) > 0 {
		q["harvestDate"] = date
	}
	return q
}

// InsertCollection writes the event and, when a harvest limit exists for its
// (species, farmer, season), charges the limit counter in the same
// transaction. Validation already passed by the time this runs, so the charge
// never happens for rejected submissions and cannot be lost to a concurrent
// submission from the same farmer.
func (m *Mongo) InsertCollection(ctx context.Context, ev *models.CollectionEvent) error {
	season := models.SeasonOf(ev.HarvestDate)
	return m.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := m.collections.InsertOne(sc, ev); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: collection %s already exists", batching.ErrConflict, ev.ID)
			}
			return err
		}

		var limit models.HarvestLimit
		err := m.harvestLimits.FindOneAndUpdate(sc,
			bson.M{"species": ev.Species, "farmerId": ev.FarmerID, "season": season},
			bson.M{"$inc": bson.M{"currentQuantity": ev.Quantity}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&limit)
		if err == mongo.ErrNoDocuments {
			return nil // no limit on record, permissive
		}
		if err != nil {
			return fmt.Errorf("charge harvest limit: %w", err)
		}

		status := limit.UsageStatus(limit.CurrentQuantity)
		if status != limit.Status {
			_, err = m.harvestLimits.UpdateOne(sc,
				bson.M{"_id": limit.ID},
				bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}},
			)
		}
		return err
	})
}

func (m *Mongo) CollectionByID(ctx context.Context, id string) (*models.CollectionEvent, error) {
	var ev models.CollectionEvent
	if err := m.collections.FindOne(ctx, bson.M{"_id": id}).Decode(&ev); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: collection %s", batching.ErrNotFound, id)
		}
		return nil, err
	}
	return &ev, nil
}

// ListCollections returns one page, newest first, plus the unpaged total.
func (m *Mongo) ListCollections(ctx context.Context, f CollectionFilter) ([]models.CollectionEvent, int64, error) {
	q := f.query()

	total, err := m.collections.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	cur, err := m.collections.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(f.Offset))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.CollectionEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MarkSynced records a successful ledger write.
func (m *Mongo) MarkSynced(ctx context.Context, id, txID string) error {
	now := time.Now().UTC()
	_, err := m.collections.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"syncStatus": models.SyncSynced,
			"ledgerTxId": txID,
			"syncedAt":   now,
		}, "$unset": bson.M{"errorMessage": ""}},
	)
	return err
}

// MarkSyncFailed records a ledger failure for a later retry sweep.
func (m *Mongo) MarkSyncFailed(ctx context.Context, id, message string) error {
	_, err := m.collections.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"syncStatus":   models.SyncFailed,
			"errorMessage": message,
		}},
	)
	return err
}

// UnsyncedCollections returns the newest records still missing from the
// ledger, capped at limit. Pending is included alongside failed so records
// cached during a disabled-ledger period are swept up once a network is
// configured.
func (m *Mongo) UnsyncedCollections(ctx context.Context, limit int64) ([]models.CollectionEvent, error) {
	cur, err := m.collections.Find(ctx,
		bson.M{"syncStatus": bson.M{"$in": bson.A{models.SyncFailed, models.SyncPending}}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CollectionEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnbatchedSynced returns synced events not yet claimed by any batch,
// optionally narrowed to one species. This is the grouper's input pool.
func (m *Mongo) UnbatchedSynced(ctx context.Context, species string) ([]models.CollectionEvent, error) {
	claimed, err := m.memberships.Distinct(ctx, "collectionId", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list claimed collection ids: %w", err)
	}

	q := bson.M{
		"syncStatus": models.SyncSynced,
		"_id":        bson.M{"$nin": claimed},
	}
	if species != "" {
		q["species"] = species
	}

	cur, err := m.collections.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "species", Value: 1}, {Key: "harvestDate", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CollectionEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CollectionsByIDs satisfies batching.Store; missing ids are simply absent
// from the result.
func (m *Mongo) CollectionsByIDs(ctx context.Context, ids []string) ([]models.CollectionEvent, error) {
	cur, err := m.collections.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CollectionEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BatchedCollectionIDs satisfies batching.Store: the subset of ids already
// claimed by a batch.
func (m *Mongo) BatchedCollectionIDs(ctx context.Context, ids []string) ([]string, error) {
	values, err := m.memberships.Distinct(ctx, "collectionId", bson.M{"collectionId": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
