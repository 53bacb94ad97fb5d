package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SeasonWindow — permitted harvest month range for a species in a region.
// StartMonth > EndMonth means the window wraps the year boundary (e.g. 10..3
// admits Oct through Mar). StartMonth=1, EndMonth=12 is the year-round sentinel.
type SeasonWindow struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Species    string             `bson:"species"       json:"species"`
	Region     string             `bson:"region"        json:"region"`
	StartMonth int                `bson:"startMonth"    json:"startMonth"` // 1-12
	EndMonth   int                `bson:"endMonth"      json:"endMonth"`   // 1-12
	Active     bool               `bson:"active"        json:"active"`
	CreatedBy  string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt"     json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"     json:"updatedAt"`
}

// YearRound reports whether the window admits all twelve months.
func (w *SeasonWindow) YearRound() bool {
	return w.StartMonth == 1 && w.EndMonth == 12
}

// Admits reports whether the given calendar month (1-12) falls inside the
// window, handling the wrap-around case.
func (w *SeasonWindow) Admits(month int) bool {
	if w.StartMonth <= w.EndMonth {
		return month >= w.StartMonth && month <= w.EndMonth
	}
	return month >= w.StartMonth || month <= w.EndMonth
}

// HarvestLimit — per-farmer/species/season cumulative quantity cap.
// CurrentQuantity is consumed by admitted collection events; the increment is
// applied by the store in the same transaction as the collection insert.
type HarvestLimit struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"   json:"id"`
	Species         string             `bson:"species"         json:"species"`
	FarmerID        string             `bson:"farmerId"        json:"farmerId"`
	Season          string             `bson:"season"          json:"season"` // e.g. "2026-Monsoon"
	MaxQuantity     float64            `bson:"maxQuantity"     json:"maxQuantity"`
	CurrentQuantity float64            `bson:"currentQuantity" json:"currentQuantity"`
	Unit            string             `bson:"unit"            json:"unit"`
	AlertThreshold  float64            `bson:"alertThreshold"  json:"alertThreshold"` // percent, default 80
	Status          string             `bson:"status"          json:"status"`         // normal | warning | exceeded
	CreatedBy       string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"       json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"       json:"updatedAt"`
}

const (
	LimitNormal   = "normal"
	LimitWarning  = "warning"
	LimitExceeded = "exceeded"
)

// UsageStatus returns the status implied by a current quantity against the cap.
func (l *HarvestLimit) UsageStatus(current float64) string {
	if l.MaxQuantity <= 0 {
		return LimitNormal
	}
	pct := current / l.MaxQuantity * 100
	switch {
	case pct >= 100:
		return LimitExceeded
	case pct >= l.AlertThreshold:
		return LimitWarning
	default:
		return LimitNormal
	}
}

// SeasonOf maps a harvest date to its season key, following the Indian climate
// calendar: Spring Mar-May, Monsoon Jun-Sep, Post-Monsoon Oct-Nov, Winter
// Dec-Feb. The key always carries the harvest date's own year.
func SeasonOf(t time.Time) string {
	t = t.UTC()
	year := t.Year()
	switch m := int(t.Month()); {
	case m >= 3 && m <= 5:
		return fmt.Sprintf("%d-Spring", year)
	case m >= 6 && m <= 9:
		return fmt.Sprintf("%d-Monsoon", year)
	case m >= 10 && m <= 11:
		return fmt.Sprintf("%d-Post-Monsoon", year)
	default:
		return fmt.Sprintf("%d-Winter", year)
	}
}
