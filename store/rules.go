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

// SeasonWindow satisfies validation.Rules: the active window for a species in
// a region, or (nil, nil) when no rule is configured.
func (m *Mongo) SeasonWindow(ctx context.Context, species, region string) (*models.SeasonWindow, error) {
	var w models.SeasonWindow
	err := m.seasonWindows.FindOne(ctx, bson.M{
		"species": species,
		"region":  region,
		"active":  true,
	}).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// HarvestLimit satisfies validation.Rules: the limit row for a farmer, species
// and season key, or (nil, nil) when none exists.
func (m *Mongo) HarvestLimit(ctx context.Context, species, farmerID, season string) (*models.HarvestLimit, error) {
	var l models.HarvestLimit
	err := m.harvestLimits.FindOne(ctx, bson.M{
		"species":  species,
		"farmerId": farmerID,
		"season":   season,
	}).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (m *Mongo) InsertSeasonWindow(ctx context.Context, w *models.SeasonWindow) error {
	now := time.Now().UTC()
	w.ID = primitive.NewObjectID()
	w.CreatedAt = now
	w.UpdatedAt = now
	if _, err := m.seasonWindows.InsertOne(ctx, w); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: season window for %s in %s already exists", batching.ErrConflict, w.Species, w.Region)
		}
		return err
	}
	return nil
}

func (m *Mongo) UpdateSeasonWindow(ctx context.Context, id primitive.ObjectID, startMonth, endMonth int, active bool) (*models.SeasonWindow, error) {
	var w models.SeasonWindow
	err := m.seasonWindows.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"startMonth": startMonth,
			"endMonth":   endMonth,
			"active":     active,
			"updatedAt":  time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: season window %s", batching.ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (m *Mongo) DeleteSeasonWindow(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.seasonWindows.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: season window %s", batching.ErrNotFound, id.Hex())
	}
	return nil
}

// ListSeasonWindows returns all windows, optionally narrowed to one species.
func (m *Mongo) ListSeasonWindows(ctx context.Context, species string) ([]models.SeasonWindow, error) {
	q := bson.M{}
	if species != "" {
		q["species"] = species
	}
	cur, err := m.seasonWindows.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "species", Value: 1}, {Key: "region", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SeasonWindow
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) InsertHarvestLimit(ctx context.Context, l *models.HarvestLimit) error {
	now := time.Now().UTC()
	l.ID = primitive.NewObjectID()
	if l.AlertThreshold <= 0 {
		l.AlertThreshold = 80
	}
	l.Status = l.UsageStatus(l.CurrentQuantity)
	l.CreatedAt = now
	l.UpdatedAt = now
	if _, err := m.harvestLimits.InsertOne(ctx, l); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: harvest limit for %s/%s/%s already exists",
				batching.ErrConflict, l.Species, l.FarmerID, l.Season)
		}
		return err
	}
	return nil
}

func (m *Mongo) UpdateHarvestLimit(ctx context.Context, id primitive.ObjectID, maxQuantity, alertThreshold float64) (*models.HarvestLimit, error) {
	// Two steps because the derived status depends on the new cap.
	var l models.HarvestLimit
	err := m.harvestLimits.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"maxQuantity":    maxQuantity,
			"alertThreshold": alertThreshold,
			"updatedAt":      time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: harvest limit %s", batching.ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, err
	}

	if status := l.UsageStatus(l.CurrentQuantity); status != l.Status {
		if _, err := m.harvestLimits.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"status": status}},
		); err != nil {
			return nil, err
		}
		l.Status = status
	}
	return &l, nil
}

func (m *Mongo) DeleteHarvestLimit(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.harvestLimits.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: harvest limit %s", batching.ErrNotFound, id.Hex())
	}
	return nil
}

// ListHarvestLimits returns limit rows filtered by any of species, farmer and
// season.
func (m *Mongo) ListHarvestLimits(ctx context.Context, species, farmerID, season string) ([]models.HarvestLimit, error) {
	q := bson.M{}
	if species != "" {
		q["species"] = species
	}
	if farmerID != "" {
		q["farmerId"] = farmerID
	}
	if season != "" {
		q["season"] = season
	}
	cur, err := m.harvestLimits.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "species", Value: 1}, {Key: "farmerId", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.HarvestLimit
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
