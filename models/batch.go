package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BatchStatus is the batch lifecycle state. Transitions are enforced by the
// batching package; approved and rejected are terminal.
type BatchStatus string

const (
	BatchCreated            BatchStatus = "created"
	BatchAssigned           BatchStatus = "assigned"
	BatchInProcessing       BatchStatus = "in_processing"
	BatchProcessingComplete BatchStatus = "processing_complete"
	BatchQualityTested      BatchStatus = "quality_tested"
	BatchApproved           BatchStatus = "approved"
	BatchRejected           BatchStatus = "rejected"
)

// KnownBatchStatus reports whether s is one of the seven lifecycle states.
func KnownBatchStatus(s BatchStatus) bool {
	switch s {
	case BatchCreated, BatchAssigned, BatchInProcessing, BatchProcessingComplete,
		BatchQualityTested, BatchApproved, BatchRejected:
		return true
	}
	return false
}

// Batch — a shippable lot of same-species collection events. TotalQuantity is
// the sum of member quantities at creation time and is not recomputed later.
type Batch struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"   json:"id"`
	BatchNumber     string             `bson:"batchNumber"     json:"batchNumber"`
	Species         string             `bson:"species"         json:"species"`
	TotalQuantity   float64            `bson:"totalQuantity"   json:"totalQuantity"`
	Unit            string             `bson:"unit"            json:"unit"`
	CollectionCount int                `bson:"collectionCount" json:"collectionCount"`
	Status          BatchStatus        `bson:"status"          json:"status"`

	AssignedTo     string `bson:"assignedTo,omitempty"     json:"assignedTo,omitempty"`
	AssignedToName string `bson:"assignedToName,omitempty" json:"assignedToName,omitempty"`
	CreatedBy      string `bson:"createdBy"                json:"createdBy"`
	CreatedByName  string `bson:"createdByName"            json:"createdByName"`
	Notes          string `bson:"notes,omitempty"          json:"notes,omitempty"`

	LedgerTxID string    `bson:"ledgerTxId,omitempty" json:"ledgerTxId,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"            json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"            json:"updatedAt"`

	// Injected on reads that embed members; never persisted here.
	Collections []CollectionEvent `bson:"-" json:"collections,omitempty"`
}

// BatchMembership — join row tying one collection event to its batch. A unique
// index on CollectionID makes the store the arbiter of "at most one batch per
// collection" under concurrent creation.
type BatchMembership struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BatchID      primitive.ObjectID `bson:"batchId"       json:"batchId"`
	CollectionID string             `bson:"collectionId"  json:"collectionId"`
	CreatedAt    time.Time          `bson:"createdAt"     json:"createdAt"`
}
