// Package validation gatekeeps collection event submissions against seasonal
// and quantity rules before they reach the store.
package validation

import (
	"context"
	"fmt"
	"time"

	"herbtrace/models"
)

// Violation codes. The two rule codes double as alert types.
const (
	CodeSeasonWindow = models.AlertSeasonWindowViolation
	CodeHarvestLimit = models.AlertHarvestLimitExceeded
	CodeInvalidField = "INVALID_FIELD"
)

// futureSkew is how far a harvest timestamp may sit ahead of the wall clock
// before it is rejected, absorbing device clock drift.
const futureSkew = 24 * time.Hour

// Rules resolves the reference data the engine reads. Implementations return
// (nil, nil) when no matching record exists; that absence is permissive.
type Rules interface {
	SeasonWindow(ctx context.Context, species, region string) (*models.SeasonWindow, error)
	HarvestLimit(ctx context.Context, species, farmerID, season string) (*models.HarvestLimit, error)
}

// Candidate is a proposed collection event, pre-normalized species included.
type Candidate struct {
	FarmerID    string
	Species     string
	Quantity    float64
	Unit        string
	Latitude    float64
	Longitude   float64
	HarvestDate time.Time
	Region      string
}

// Violation blocks admission. Overage is set only for harvest-limit breaches.
type Violation struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Overage float64 `json:"overage,omitempty"`
}

// Result aggregates every check. Warnings never block admission.
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// AlertType picks the alert type for a failed result: harvest-limit breaches
// take precedence, otherwise the seasonal violation type.
func (r Result) AlertType() string {
	for _, v := range r.Violations {
		if v.Code == CodeHarvestLimit {
			return models.AlertHarvestLimitExceeded
		}
	}
	return models.AlertSeasonWindowViolation
}

// Messages flattens the violation messages for alert payloads.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Message)
	}
	return out
}

// Engine runs the checks. It only reads reference data; the harvest-limit
// counter is charged by the store write that follows a passing validation, so
// rejected submissions are never double-charged.
type Engine struct {
	rules Rules
	now   func() time.Time
}

// NewEngine builds an engine over the given rule source.
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules, now: time.Now}
}

// Validate runs every check and collects all violations rather than stopping
// at the first, so the caller can report the complete set in one response.
func (e *Engine) Validate(ctx context.Context, c Candidate) (Result, error) {
	var res Result

	res.Violations = append(res.Violations, e.checkFields(c)...)

	seasonViolation, seasonWarning, err := e.checkSeasonWindow(ctx, c)
	if err != nil {
		return Result{}, fmt.Errorf("season window lookup: %w", err)
	}
	if seasonViolation != nil {
		res.Violations = append(res.Violations, *seasonViolation)
	}
	if seasonWarning != "" {
		res.Warnings = append(res.Warnings, seasonWarning)
	}

	limitViolation, limitWarning, err := e.checkHarvestLimit(ctx, c)
	if err != nil {
		return Result{}, fmt.Errorf("harvest limit lookup: %w", err)
	}
	if limitViolation != nil {
		res.Violations = append(res.Violations, *limitViolation)
	}
	if limitWarning != "" {
		res.Warnings = append(res.Warnings, limitWarning)
	}

	res.Valid = len(res.Violations) == 0
	return res, nil
}

func (e *Engine) checkFields(c Candidate) []Violation {
	var out []Violation
	if c.Quantity <= 0 {
		out = append(out, Violation{
			Code:    CodeInvalidField,
			Message: fmt.Sprintf("quantity must be greater than zero, got %g", c.Quantity),
		})
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		out = append(out, Violation{
			Code:    CodeInvalidField,
			Message: fmt.Sprintf("latitude %g outside valid range -90..90", c.Latitude),
		})
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		out = append(out, Violation{
			Code:    CodeInvalidField,
			Message: fmt.Sprintf("longitude %g outside valid range -180..180", c.Longitude),
		})
	}
	if c.HarvestDate.After(e.now().Add(futureSkew)) {
		out = append(out, Violation{
			Code:    CodeInvalidField,
			Message: fmt.Sprintf("harvest date %s is in the future", c.HarvestDate.UTC().Format(time.RFC3339)),
		})
	}
	return out
}

func (e *Engine) checkSeasonWindow(ctx context.Context, c Candidate) (*Violation, string, error) {
	window, err := e.rules.SeasonWindow(ctx, c.Species, c.Region)
	if err != nil {
		return nil, "", err
	}
	if window == nil {
		// Permissive default: no window on record means no restriction.
		return nil, fmt.Sprintf("no season window defined for %s in %s; harvest admitted without seasonal check", c.Species, c.Region), nil
	}
	if window.YearRound() {
		return nil, "", nil
	}
	month := int(c.HarvestDate.UTC().Month())
	if window.Admits(month) {
		return nil, "", nil
	}
	return &Violation{
		Code: CodeSeasonWindow,
		Message: fmt.Sprintf("harvest month %d outside permitted window %d-%d for %s in %s",
			month, window.StartMonth, window.EndMonth, c.Species, c.Region),
	}, "", nil
}

func (e *Engine) checkHarvestLimit(ctx context.Context, c Candidate) (*Violation, string, error) {
	season := models.SeasonOf(c.HarvestDate)
	limit, err := e.rules.HarvestLimit(ctx, c.Species, c.FarmerID, season)
	if err != nil {
		return nil, "", err
	}
	if limit == nil {
		return nil, fmt.Sprintf("no harvest limit defined for %s / farmer %s / %s", c.Species, c.FarmerID, season), nil
	}
	newTotal := limit.CurrentQuantity + c.Quantity
	if newTotal > limit.MaxQuantity {
		return &Violation{
			Code: CodeHarvestLimit,
			Message: fmt.Sprintf("harvest of %g %s would exceed the %s limit of %g (already %g)",
				c.Quantity, limit.Unit, season, limit.MaxQuantity, limit.CurrentQuantity),
			Overage: newTotal - limit.MaxQuantity,
		}, "", nil
	}
	if limit.UsageStatus(newTotal) != models.LimitNormal {
		return nil, fmt.Sprintf("harvest brings %s usage to %g of %g for %s", c.Species, newTotal, limit.MaxQuantity, season), nil
	}
	return nil, "", nil
}
