package batching

import (
	"fmt"
	"testing"
	"time"

	"herbtrace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var groupNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

// event builds a synced collection harvested daysAgo days before groupNow.
// Later calls get older harvest dates, so slice order matches seeding order.
func event(id, species string, qty, lat, lon float64, daysAgo int) models.CollectionEvent {
	return models.CollectionEvent{
		ID:          id,
		FarmerID:    "farmer-" + id,
		Species:     species,
		Quantity:    qty,
		Unit:        "kg",
		Latitude:    lat,
		Longitude:   lon,
		HarvestDate: groupNow.AddDate(0, 0, -daysAgo),
		SyncStatus:  models.SyncSynced,
	}
}

func TestFindGroupsSeedCentricClustering(t *testing.T) {
	// Along a meridian 1 degree of latitude is ~111 km. A sits at 0, B ~10 km
	// away, C ~80 km from A but only ~70 km from B: star clustering around
	// seed A takes B and leaves C out even though C is within reach of B's
	// neighborhood in a transitive reading.
	a := event("A", "Ashwagandha", 40, 0.00, 0, 1)
	b := event("B", "Ashwagandha", 30, 0.09, 0, 2)
	c := event("C", "Ashwagandha", 30, 0.72, 0, 3)

	groups := FindGroups([]models.CollectionEvent{a, b, c}, GroupingParams{MinTotalQuantity: 10}, groupNow)

	require.Len(t, groups, 2)
	assert.Equal(t, []string{"A", "B"}, groups[0].CollectionIDs)
	assert.Equal(t, []string{"C"}, groups[1].CollectionIDs)
}

func TestFindGroupsSpeciesPartition(t *testing.T) {
	events := []models.CollectionEvent{
		event("T1", "Tulsi", 60, 10, 10, 1),
		event("A1", "Ashwagandha", 60, 10, 10, 1),
		event("T2", "Tulsi", 60, 10.01, 10.01, 2),
	}

	groups := FindGroups(events, GroupingParams{}, groupNow)

	// Co-located but different species never merge; output is species-ordered.
	require.Len(t, groups, 2)
	assert.Equal(t, "Ashwagandha", groups[0].Species)
	assert.Equal(t, []string{"A1"}, groups[0].CollectionIDs)
	assert.Equal(t, "Tulsi", groups[1].Species)
	assert.Equal(t, []string{"T1", "T2"}, groups[1].CollectionIDs)
}

func TestFindGroupsMinQuantityDiscard(t *testing.T) {
	events := []models.CollectionEvent{
		event("A", "Tulsi", 20, 0, 0, 1),
		event("B", "Tulsi", 15, 0.01, 0, 2),
	}

	groups := FindGroups(events, GroupingParams{MinTotalQuantity: 50}, groupNow)
	assert.Empty(t, groups, "35 kg total is under the 50 kg floor")

	groups = FindGroups(events, GroupingParams{MinTotalQuantity: 35}, groupNow)
	require.Len(t, groups, 1)
	assert.InDelta(t, 35, groups[0].TotalQuantity, 1e-9)
}

func TestFindGroupsFiltersUnsyncedAndStale(t *testing.T) {
	fresh := event("fresh", "Tulsi", 100, 0, 0, 5)
	stale := event("stale", "Tulsi", 100, 0, 0, 45)
	pending := event("pending", "Tulsi", 100, 0, 0, 5)
	pending.SyncStatus = models.SyncPending
	failed := event("failed", "Tulsi", 100, 0, 0, 5)
	failed.SyncStatus = models.SyncFailed

	groups := FindGroups([]models.CollectionEvent{fresh, stale, pending, failed}, GroupingParams{}, groupNow)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"fresh"}, groups[0].CollectionIDs)
}

func TestFindGroupsSeedsMostRecentFirst(t *testing.T) {
	// The newest harvest seeds first regardless of input order.
	old := event("old", "Tulsi", 60, 0, 0, 20)
	newer := event("newer", "Tulsi", 60, 5, 5, 2)

	for _, input := range [][]models.CollectionEvent{{old, newer}, {newer, old}} {
		groups := FindGroups(input, GroupingParams{}, groupNow)
		require.Len(t, groups, 2)
		assert.Equal(t, []string{"newer"}, groups[0].CollectionIDs)
		assert.Equal(t, []string{"old"}, groups[1].CollectionIDs)
	}
}

func TestFindGroupsTotalsAndUnit(t *testing.T) {
	events := []models.CollectionEvent{
		event("A", "Brahmi", 25.5, 0, 0, 1),
		event("B", "Brahmi", 30.25, 0.05, 0.05, 2),
		event("C", "Brahmi", 10, 0.1, 0.1, 3),
	}

	groups := FindGroups(events, GroupingParams{}, groupNow)
	require.Len(t, groups, 1)
	assert.InDelta(t, 65.75, groups[0].TotalQuantity, 1e-9)
	assert.Equal(t, "kg", groups[0].Unit)
	assert.Len(t, groups[0].Collections, 3)
}

func TestFindGroupsLargeInputDeterminism(t *testing.T) {
	var events []models.CollectionEvent
	for i := 0; i < 40; i++ {
		events = append(events, event(fmt.Sprintf("E%02d", i), "Tulsi", 10, float64(i)*0.01, 0, i%20))
	}

	first := FindGroups(events, GroupingParams{}, groupNow)
	second := FindGroups(events, GroupingParams{}, groupNow)
	assert.Equal(t, first, second)
}
