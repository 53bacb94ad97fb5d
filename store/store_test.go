package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"herbtrace/batching"
	"herbtrace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Integration tests against a real deployment. Transactions need a replica
// set, so point MONGO_TEST_URI at one (a single-node rs works):
//
//	MONGO_TEST_URI=mongodb://localhost:27017/?replicaSet=rs0 go test ./store/
func testStore(t *testing.T) *Mongo {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	dbName := fmt.Sprintf("herbtrace_test_%d", time.Now().UnixNano())
	m, err := New(ctx, client, dbName)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Database(dbName).Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return m
}

func testEvent(id string) *models.CollectionEvent {
	return &models.CollectionEvent{
		ID:          id,
		FarmerID:    "farmer1",
		FarmerName:  "Ravi Kumar",
		Species:     "Ashwagandha",
		Quantity:    25,
		Unit:        "kg",
		Latitude:    26.9,
		Longitude:   75.8,
		HarvestDate: time.Now().UTC().Add(-24 * time.Hour),
		Region:      "Jaipur, Rajasthan",
		SyncStatus:  models.SyncSynced,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestCreateBatchMembershipConflict(t *testing.T) {
	m := testStore(t)
	ctx := context.Background()

	require.NoError(t, m.InsertCollection(ctx, testEvent("COL-1")))
	require.NoError(t, m.InsertCollection(ctx, testEvent("COL-2")))

	first := &models.Batch{
		ID:          primitive.NewObjectID(),
		BatchNumber: "BATCH-ASHWAGANDHA-20260831-1001",
		Species:     "Ashwagandha",
		Status:      models.BatchCreated,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, m.CreateBatch(ctx, first, []string{"COL-1", "COL-2"}, nil))

	// Second batch claiming COL-2 must fail atomically: no batch row, no
	// membership rows.
	second := &models.Batch{
		ID:          primitive.NewObjectID(),
		BatchNumber: "BATCH-ASHWAGANDHA-20260831-1002",
		Species:     "Ashwagandha",
		Status:      models.BatchCreated,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	err := m.CreateBatch(ctx, second, []string{"COL-2"}, nil)
	require.ErrorIs(t, err, batching.ErrConflict)

	_, err = m.BatchByID(ctx, second.ID)
	assert.ErrorIs(t, err, batching.ErrNotFound)

	claimed, err := m.BatchedCollectionIDs(ctx, []string{"COL-1", "COL-2"})
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
}

func TestInsertCollectionChargesLimit(t *testing.T) {
	m := testStore(t)
	ctx := context.Background()

	ev := testEvent("COL-CHARGE")
	require.NoError(t, m.InsertHarvestLimit(ctx, &models.HarvestLimit{
		Species:     "Ashwagandha",
		FarmerID:    "farmer1",
		Season:      models.SeasonOf(ev.HarvestDate),
		MaxQuantity: 100,
		Unit:        "kg",
	}))

	require.NoError(t, m.InsertCollection(ctx, ev))

	limit, err := m.HarvestLimit(ctx, "Ashwagandha", "farmer1", models.SeasonOf(ev.HarvestDate))
	require.NoError(t, err)
	require.NotNil(t, limit)
	assert.Equal(t, 25.0, limit.CurrentQuantity)
	assert.Equal(t, models.LimitNormal, limit.Status)
}

func TestUnsyncedCollectionsIncludesPending(t *testing.T) {
	m := testStore(t)
	ctx := context.Background()

	failed := testEvent("COL-FAILED")
	failed.SyncStatus = models.SyncFailed
	pending := testEvent("COL-PENDING")
	pending.SyncStatus = models.SyncPending
	synced := testEvent("COL-SYNCED")

	for _, ev := range []*models.CollectionEvent{failed, pending, synced} {
		require.NoError(t, m.InsertCollection(ctx, ev))
	}

	// Records cached while no ledger network was configured sit in pending;
	// the sweep must pick them up alongside failed ones.
	out, err := m.UnsyncedCollections(ctx, 50)
	require.NoError(t, err)
	ids := make([]string, 0, len(out))
	for _, ev := range out {
		ids = append(ids, ev.ID)
	}
	assert.ElementsMatch(t, []string{"COL-FAILED", "COL-PENDING"}, ids)
}

func TestSetBatchStatusGuardsOldStatus(t *testing.T) {
	m := testStore(t)
	ctx := context.Background()

	require.NoError(t, m.InsertCollection(ctx, testEvent("COL-GUARD")))
	b := &models.Batch{
		ID:          primitive.NewObjectID(),
		BatchNumber: "BATCH-ASHWAGANDHA-20260831-1003",
		Species:     "Ashwagandha",
		Status:      models.BatchAssigned,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, m.CreateBatch(ctx, b, []string{"COL-GUARD"}, nil))

	got, err := m.SetBatchStatus(ctx, b.ID, models.BatchAssigned, models.BatchInProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.BatchInProcessing, got.Status)

	// A second writer still holding the stale assigned view must lose.
	_, err = m.SetBatchStatus(ctx, b.ID, models.BatchAssigned, models.BatchInProcessing)
	assert.ErrorIs(t, err, batching.ErrInvalidState)

	_, err = m.SetBatchStatus(ctx, primitive.NewObjectID(), models.BatchAssigned, models.BatchInProcessing)
	assert.ErrorIs(t, err, batching.ErrNotFound)
}

func TestAcknowledgeAlert(t *testing.T) {
	m := testStore(t)
	ctx := context.Background()

	alert := &models.Alert{
		AlertType:  models.AlertBatchAssigned,
		Severity:   models.SeverityInfo,
		EntityType: "batch",
		EntityID:   "whatever",
		Status:     models.AlertPending,
		AssignedTo: "proc1",
	}
	require.NoError(t, m.InsertAlert(ctx, alert))

	got, err := m.AcknowledgeAlert(ctx, alert.ID, "proc1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertAcknowledged, got.Status)
	assert.Equal(t, "proc1", got.AcknowledgedBy)

	_, err = m.AcknowledgeAlert(ctx, alert.ID, "proc1")
	assert.ErrorIs(t, err, batching.ErrInvalidState)

	_, err = m.AcknowledgeAlert(ctx, primitive.NewObjectID(), "proc1")
	assert.ErrorIs(t, err, batching.ErrNotFound)
}
