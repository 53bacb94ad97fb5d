package batching

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"herbtrace/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the persistence surface the lifecycle drives. Implementations must
// make CreateBatch atomic (batch, memberships and alert land together or not
// at all) and must return ErrConflict when a membership insert hits the
// unique collection-id constraint, ErrNotFound on missing records.
// SetBatchStatus is compare-and-set: it only applies when the stored status
// still equals from, returning ErrInvalidState otherwise, so two racing
// transitions cannot both win.
type Store interface {
	CollectionsByIDs(ctx context.Context, ids []string) ([]models.CollectionEvent, error)
	BatchedCollectionIDs(ctx context.Context, ids []string) ([]string, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)

	CreateBatch(ctx context.Context, batch *models.Batch, collectionIDs []string, alert *models.Alert) error
	BatchByID(ctx context.Context, id primitive.ObjectID) (*models.Batch, error)
	CollectionsForBatch(ctx context.Context, batchID primitive.ObjectID) ([]models.CollectionEvent, error)
	SetBatchAssignment(ctx context.Context, id primitive.ObjectID, username, fullName string) (*models.Batch, error)
	SetBatchStatus(ctx context.Context, id primitive.ObjectID, from, to models.BatchStatus) (*models.Batch, error)
	SetBatchLedgerTx(ctx context.Context, id primitive.ObjectID, txID string) error
	ListBatches(ctx context.Context, f BatchFilter) ([]models.Batch, int64, error)

	InsertAlert(ctx context.Context, alert *models.Alert) error
}

// BatchFilter narrows ListBatches. Empty fields match everything; Limit zero
// defaults to 50.
type BatchFilter struct {
	Species    string
	Status     models.BatchStatus
	AssignedTo string
	CreatedBy  string
	Limit      int64
	Offset     int64
}

// transitions is the full lifecycle table. Absent keys are terminal.
var transitions = map[models.BatchStatus][]models.BatchStatus{
	models.BatchCreated:            {models.BatchAssigned, models.BatchRejected},
	models.BatchAssigned:           {models.BatchInProcessing, models.BatchRejected},
	models.BatchInProcessing:       {models.BatchProcessingComplete, models.BatchRejected},
	models.BatchProcessingComplete: {models.BatchQualityTested, models.BatchRejected},
	models.BatchQualityTested:      {models.BatchApproved, models.BatchRejected},
	models.BatchApproved:           {},
	models.BatchRejected:           {},
}

func transitionAllowed(from, to models.BatchStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// BatchNumber builds the human batch number, BATCH-<SPECIES>-<YYYYMMDD>-<4
// random digits>. Collisions are not checked here; the unique index on the
// batch number turns one into a retryable conflict at insert time.
func BatchNumber(species string, now time.Time) string {
	return fmt.Sprintf("BATCH-%s-%s-%04d",
		strings.ToUpper(species), now.UTC().Format("20060102"), 1000+rand.Intn(9000))
}

// Lifecycle owns batch creation, processor assignment and status transitions,
// emitting alerts as side effects.
type Lifecycle struct {
	store Store
	now   func() time.Time
}

// NewLifecycle builds a lifecycle over the given store.
func NewLifecycle(store Store) *Lifecycle {
	return &Lifecycle{store: store, now: time.Now}
}

// CreateBatchParams carries everything CreateBatch needs. AssignedTo is
// optional; when set the batch starts in the assigned state and the processor
// is notified.
type CreateBatchParams struct {
	Species       string
	CollectionIDs []string
	AssignedTo    string
	Notes         string
	CreatedBy     string
	CreatedByName string
}

// CreateBatch validates the member set, then persists the batch, its
// membership rows and the optional assignment alert in one atomic unit.
// Partial writes are never observable: the store's unique membership index is
// the arbiter when two creations race over the same collection id.
func (l *Lifecycle) CreateBatch(ctx context.Context, p CreateBatchParams) (*models.Batch, error) {
	if p.Species == "" || len(p.CollectionIDs) == 0 {
		return nil, fmt.Errorf("%w: species and collection ids are required", ErrInvalidInput)
	}

	collections, err := l.store.CollectionsByIDs(ctx, p.CollectionIDs)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	if len(collections) != len(p.CollectionIDs) {
		return nil, fmt.Errorf("%w: %d of %d collection ids do not resolve",
			ErrInvalidInput, len(p.CollectionIDs)-len(collections), len(p.CollectionIDs))
	}
	for _, c := range collections {
		if c.SyncStatus != models.SyncSynced {
			return nil, fmt.Errorf("%w: collection %s is not synced", ErrInvalidInput, c.ID)
		}
		if c.Species != p.Species {
			return nil, fmt.Errorf("%w: collection %s is %s, not %s", ErrInvalidInput, c.ID, c.Species, p.Species)
		}
	}

	// Friendly pre-check; the transactional unique index still backstops races.
	claimed, err := l.store.BatchedCollectionIDs(ctx, p.CollectionIDs)
	if err != nil {
		return nil, fmt.Errorf("check memberships: %w", err)
	}
	if len(claimed) > 0 {
		return nil, fmt.Errorf("%w: collections already batched: %s", ErrConflict, strings.Join(claimed, ", "))
	}

	total := 0.0
	for _, c := range collections {
		total += c.Quantity
	}

	var assignedName string
	if p.AssignedTo != "" {
		assignedName, err = l.resolveProcessor(ctx, p.AssignedTo)
		if err != nil {
			return nil, err
		}
	}

	now := l.now().UTC()
	batch := &models.Batch{
		ID:              primitive.NewObjectID(),
		BatchNumber:     BatchNumber(p.Species, now),
		Species:         p.Species,
		TotalQuantity:   total,
		Unit:            collections[0].Unit,
		CollectionCount: len(collections),
		Status:          models.BatchCreated,
		CreatedBy:       p.CreatedBy,
		CreatedByName:   p.CreatedByName,
		Notes:           p.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var alert *models.Alert
	if p.AssignedTo != "" {
		batch.Status = models.BatchAssigned
		batch.AssignedTo = p.AssignedTo
		batch.AssignedToName = assignedName
		alert = assignmentAlert(batch, now)
	}

	if err := l.store.CreateBatch(ctx, batch, p.CollectionIDs, alert); err != nil {
		return nil, err
	}

	batch.Collections = collections
	return batch, nil
}

// AssignProcessor sets or replaces the batch's processor. Reassignment is
// allowed only while the batch is still in created or assigned.
func (l *Lifecycle) AssignProcessor(ctx context.Context, batchID primitive.ObjectID, processor string) (*models.Batch, error) {
	fullName, err := l.resolveProcessor(ctx, processor)
	if err != nil {
		return nil, err
	}

	batch, err := l.store.BatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != models.BatchCreated && batch.Status != models.BatchAssigned {
		return nil, fmt.Errorf("%w: cannot assign processor to batch in status %s", ErrInvalidState, batch.Status)
	}

	updated, err := l.store.SetBatchAssignment(ctx, batchID, processor, fullName)
	if err != nil {
		return nil, err
	}

	if err := l.store.InsertAlert(ctx, assignmentAlert(updated, l.now().UTC())); err != nil {
		return nil, fmt.Errorf("insert assignment alert: %w", err)
	}
	return updated, nil
}

// UpdateBatchStatus advances the state machine. Terminal states have no
// outgoing transitions and skipping states is rejected.
func (l *Lifecycle) UpdateBatchStatus(ctx context.Context, batchID primitive.ObjectID, newStatus models.BatchStatus, updatedBy string) (*models.Batch, error) {
	if !models.KnownBatchStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown batch status %q", ErrInvalidInput, newStatus)
	}

	batch, err := l.store.BatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(batch.Status, newStatus) {
		return nil, fmt.Errorf("%w: cannot transition batch from %s to %s", ErrInvalidState, batch.Status, newStatus)
	}

	updated, err := l.store.SetBatchStatus(ctx, batchID, batch.Status, newStatus)
	if err != nil {
		return nil, err
	}

	if batch.AssignedTo != "" {
		severity := models.SeverityInfo
		if newStatus == models.BatchRejected {
			severity = models.SeverityWarning
		}
		alert := &models.Alert{
			AlertType:  models.AlertBatchStatusUpdated,
			Severity:   severity,
			EntityType: "batch",
			EntityID:   batch.ID.Hex(),
			Title:      "Batch Status Updated",
			Message:    fmt.Sprintf("Batch %s status changed to %s", batch.BatchNumber, newStatus),
			Details: models.AlertDetails{
				BatchNumber: batch.BatchNumber,
				Species:     batch.Species,
				OldStatus:   string(batch.Status),
				NewStatus:   string(newStatus),
				UpdatedBy:   updatedBy,
			},
			Status:     models.AlertPending,
			AssignedTo: batch.AssignedTo,
			CreatedAt:  l.now().UTC(),
		}
		if err := l.store.InsertAlert(ctx, alert); err != nil {
			return nil, fmt.Errorf("insert status alert: %w", err)
		}
	}
	return updated, nil
}

// GetBatch returns the batch with its member collection events embedded.
func (l *Lifecycle) GetBatch(ctx context.Context, batchID primitive.ObjectID) (*models.Batch, error) {
	batch, err := l.store.BatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	collections, err := l.store.CollectionsForBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch collections: %w", err)
	}
	batch.Collections = collections
	return batch, nil
}

// ListBatches returns one page plus the total count regardless of page size.
func (l *Lifecycle) ListBatches(ctx context.Context, f BatchFilter) ([]models.Batch, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return l.store.ListBatches(ctx, f)
}

func (l *Lifecycle) resolveProcessor(ctx context.Context, username string) (string, error) {
	user, err := l.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%w: unknown processor %q", ErrInvalidInput, username)
		}
		return "", fmt.Errorf("resolve processor: %w", err)
	}
	if user.Role != models.RoleProcessor {
		return "", fmt.Errorf("%w: user %q is a %s, not a processor", ErrInvalidInput, username, user.Role)
	}
	return user.FullName, nil
}

func assignmentAlert(batch *models.Batch, now time.Time) *models.Alert {
	return &models.Alert{
		AlertType:  models.AlertBatchAssigned,
		Severity:   models.SeverityInfo,
		EntityType: "batch",
		EntityID:   batch.ID.Hex(),
		Title:      "New Batch Assigned",
		Message:    fmt.Sprintf("Batch %s (%s) has been assigned to you", batch.BatchNumber, batch.Species),
		Details: models.AlertDetails{
			BatchNumber:     batch.BatchNumber,
			Species:         batch.Species,
			TotalQuantity:   batch.TotalQuantity,
			Unit:            batch.Unit,
			CollectionCount: batch.CollectionCount,
		},
		Status:     models.AlertPending,
		AssignedTo: batch.AssignedTo,
		CreatedAt:  now,
	}
}
