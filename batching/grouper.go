// Package batching groups collection events into shippable lots and drives the
// batch lifecycle state machine.
package batching

import (
	"sort"
	"time"

	"herbtrace/geo"
	"herbtrace/models"
)

// Grouping defaults, applied when a parameter is zero.
const (
	DefaultMinTotalQuantity = 50.0 // kg
	DefaultMaxAgeDays       = 30
	DefaultLocationRadiusKm = 50.0
)

// GroupingParams tunes FindGroups. Zero values take the defaults above.
type GroupingParams struct {
	MinTotalQuantity float64 `json:"minTotalQuantity"`
	MaxAgeDays       int     `json:"maxAgeDays"`
	LocationRadiusKm float64 `json:"locationRadiusKm"`
}

func (p GroupingParams) withDefaults() GroupingParams {
	if p.MinTotalQuantity <= 0 {
		p.MinTotalQuantity = DefaultMinTotalQuantity
	}
	if p.MaxAgeDays <= 0 {
		p.MaxAgeDays = DefaultMaxAgeDays
	}
	if p.LocationRadiusKm <= 0 {
		p.LocationRadiusKm = DefaultLocationRadiusKm
	}
	return p
}

// Group is one proposed batch: same species, clustered around a seed location,
// meeting the minimum total quantity.
type Group struct {
	Species       string                   `json:"species"`
	CollectionIDs []string                 `json:"collectionIds"`
	TotalQuantity float64                  `json:"totalQuantity"`
	Unit          string                   `json:"unit"`
	Collections   []models.CollectionEvent `json:"collections,omitempty"`
}

// FindGroups partitions eligible collection events into candidate batches.
//
// Events must already exclude batched collections (the store query's job).
// FindGroups additionally drops anything not synced or harvested more than
// MaxAgeDays before now, partitions by exact species, then clusters each
// partition with a single greedy pass: the first unassigned event seeds a
// cluster and every other unassigned event within LocationRadiusKm of the
// seed joins it. Clustering is deliberately seed-centric, not transitive: an
// event near a member but beyond the radius from the seed stays out. Clusters
// under MinTotalQuantity are discarded.
//
// The pass iterates events sorted by species ascending, harvest date
// descending, id ascending, so seeding order and therefore the result are
// deterministic for a given input set.
func FindGroups(events []models.CollectionEvent, params GroupingParams, now time.Time) []Group {
	p := params.withDefaults()
	maxAge := time.Duration(p.MaxAgeDays) * 24 * time.Hour

	eligible := make([]models.CollectionEvent, 0, len(events))
	for _, ev := range events {
		if ev.SyncStatus != models.SyncSynced {
			continue
		}
		if now.Sub(ev.HarvestDate) > maxAge {
			continue
		}
		eligible = append(eligible, ev)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Species != b.Species {
			return a.Species < b.Species
		}
		if !a.HarvestDate.Equal(b.HarvestDate) {
			return a.HarvestDate.After(b.HarvestDate)
		}
		return a.ID < b.ID
	})

	var groups []Group
	assigned := make([]bool, len(eligible))

	for i := range eligible {
		if assigned[i] {
			continue
		}
		seed := eligible[i]
		members := []models.CollectionEvent{seed}
		assigned[i] = true

		// The slice is species-sorted, so the partition ends where the
		// species changes.
		for j := i + 1; j < len(eligible) && eligible[j].Species == seed.Species; j++ {
			if assigned[j] {
				continue
			}
			d := geo.DistanceKm(seed.Latitude, seed.Longitude, eligible[j].Latitude, eligible[j].Longitude)
			if d <= p.LocationRadiusKm {
				members = append(members, eligible[j])
				assigned[j] = true
			}
		}

		total := 0.0
		ids := make([]string, len(members))
		for k, m := range members {
			total += m.Quantity
			ids[k] = m.ID
		}
		if total < p.MinTotalQuantity {
			continue
		}

		groups = append(groups, Group{
			Species:       seed.Species,
			CollectionIDs: ids,
			TotalQuantity: total,
			Unit:          seed.Unit,
			Collections:   members,
		})
	}

	return groups
}
