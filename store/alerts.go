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

// InsertAlert satisfies batching.Store for alerts raised outside a batch
// creation transaction.
func (m *Mongo) InsertAlert(ctx context.Context, a *models.Alert) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := m.alerts.InsertOne(ctx, a)
	return err
}

// AlertFilter narrows ListAlerts. Zero values mean "any".
type AlertFilter struct {
	Status     string
	AlertType  string
	AssignedTo string
	Severity   string
	Limit      int64
	Offset     int64
}

// ListAlerts returns one page, newest first, plus the total matching count.
func (m *Mongo) ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, int64, error) {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.AlertType != "" {
		q["alertType"] = f.AlertType
	}
	if f.AssignedTo != "" {
		q["assignedTo"] = f.AssignedTo
	}
	if f.Severity != "" {
		q["severity"] = f.Severity
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}

	total, err := m.alerts.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	cur, err := m.alerts.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(f.Limit).
		SetSkip(f.Offset))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.Alert
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AcknowledgeAlert moves a pending alert to acknowledged and records who did
// it. Acknowledging twice is ErrInvalidState.
func (m *Mongo) AcknowledgeAlert(ctx context.Context, id primitive.ObjectID, username string) (*models.Alert, error) {
	now := time.Now().UTC()
	var a models.Alert
	err := m.alerts.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.AlertPending},
		bson.M{"$set": bson.M{
			"status":         models.AlertAcknowledged,
			"acknowledgedBy": username,
			"acknowledgedAt": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if err == mongo.ErrNoDocuments {
		// Distinguish missing from already handled.
		count, cerr := m.alerts.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, cerr
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: alert %s", batching.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("%w: alert %s is not pending", batching.ErrInvalidState, id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
