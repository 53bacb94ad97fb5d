package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Alert types emitted by this service. The schema admits more (quality,
// recall, geo-fence) raised by other collaborators against the same log.
const (
	AlertSeasonWindowViolation = "SEASONAL_WINDOW_VIOLATION"
	AlertHarvestLimitExceeded  = "HARVEST_LIMIT_EXCEEDED"
	AlertBatchAssigned         = "BATCH_ASSIGNED"
	AlertBatchStatusUpdated    = "BATCH_STATUS_UPDATED"
)

// Alert severities.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Alert statuses.
const (
	AlertPending      = "pending"
	AlertAcknowledged = "acknowledged"
	AlertResolved     = "resolved"
)

// Alert — one append-only notification event. Details is a typed payload
// stored as a native document; delivery is a separate collaborator's job.
type Alert struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AlertType  string             `bson:"alertType"     json:"alertType"`
	Severity   string             `bson:"severity"      json:"severity"`
	EntityType string             `bson:"entityType"    json:"entityType"` // collection | batch
	EntityID   string             `bson:"entityId"      json:"entityId"`
	Title      string             `bson:"title"         json:"title"`
	Message    string             `bson:"message"       json:"message"`
	Details    AlertDetails       `bson:"details"       json:"details"`
	Status     string             `bson:"status"        json:"status"`
	AssignedTo string             `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt"     json:"createdAt"`

	AcknowledgedBy string     `bson:"acknowledgedBy,omitempty" json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time `bson:"acknowledgedAt,omitempty" json:"acknowledgedAt,omitempty"`
}

// AlertDetails carries the structured payload for every alert type this
// service emits; unused fields stay empty.
type AlertDetails struct {
	BatchNumber     string   `bson:"batchNumber,omitempty"     json:"batchNumber,omitempty"`
	Species         string   `bson:"species,omitempty"         json:"species,omitempty"`
	TotalQuantity   float64  `bson:"totalQuantity,omitempty"   json:"totalQuantity,omitempty"`
	Unit            string   `bson:"unit,omitempty"            json:"unit,omitempty"`
	CollectionCount int      `bson:"collectionCount,omitempty" json:"collectionCount,omitempty"`
	OldStatus       string   `bson:"oldStatus,omitempty"       json:"oldStatus,omitempty"`
	NewStatus       string   `bson:"newStatus,omitempty"       json:"newStatus,omitempty"`
	UpdatedBy       string   `bson:"updatedBy,omitempty"       json:"updatedBy,omitempty"`
	Violations      []string `bson:"violations,omitempty"      json:"violations,omitempty"`
}
