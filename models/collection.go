package models

import (
	"strings"
	"time"
)

// SyncStatus tracks whether a cached record has been mirrored to the ledger.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// CollectionEvent — one harvest record. Append-only: after insert the only
// mutations are the ledger sync fields (SyncStatus, LedgerTxID, SyncedAt,
// ErrorMessage).
type CollectionEvent struct {
	ID         string  `bson:"_id"        json:"id"`
	FarmerID   string  `bson:"farmerId"   json:"farmerId"`
	FarmerName string  `bson:"farmerName" json:"farmerName"`
	Species    string  `bson:"species"    json:"species"` // normalized, see NormalizeSpecies
	CommonName string  `bson:"commonName,omitempty" json:"commonName,omitempty"`
	Quantity   float64 `bson:"quantity"   json:"quantity"`
	Unit       string  `bson:"unit"       json:"unit"`

	Latitude  float64  `bson:"latitude"           json:"latitude"`
	Longitude float64  `bson:"longitude"          json:"longitude"`
	Altitude  *float64 `bson:"altitude,omitempty" json:"altitude,omitempty"`
	Accuracy  *float64 `bson:"accuracy,omitempty" json:"accuracy,omitempty"`

	HarvestDate   time.Time `bson:"harvestDate" json:"harvestDate"` // UTC
	Region        string    `bson:"region"      json:"region"`
	HarvestMethod string    `bson:"harvestMethod,omitempty" json:"harvestMethod,omitempty"`
	PartCollected string    `bson:"partCollected,omitempty" json:"partCollected,omitempty"`

	SyncStatus   SyncStatus `bson:"syncStatus"             json:"syncStatus"`
	LedgerTxID   string     `bson:"ledgerTxId,omitempty"   json:"ledgerTxId,omitempty"`
	ErrorMessage string     `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	SyncedAt     *time.Time `bson:"syncedAt,omitempty"     json:"syncedAt,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt"              json:"createdAt"`
}

// NormalizeSpecies strips a parenthetical common-name suffix so records match
// rule entries: "Tulsi (Holy Basil)" -> "Tulsi".
func NormalizeSpecies(species string) string {
	if i := strings.Index(species, " ("); i >= 0 {
		species = species[:i]
	}
	return strings.TrimSpace(species)
}
