package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"herbtrace/ledger"
	"herbtrace/models"
	"herbtrace/store"
	"herbtrace/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// newCollectionID mints the record id: COL-<unix millis>-<short random>.
func newCollectionID(now time.Time) string {
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("COL-%d-%s", now.UnixMilli(), short)
}

// handleSubmitCollection records a harvest. The flow is validate, cache,
// then mirror to the ledger; a ledger failure never loses the record, it
// stays in the cache as failed (or pending when the ledger is disabled) for
// the retry endpoint.
func (a *App) handleSubmitCollection(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req submitCollectionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Species == "" || req.HarvestDate.IsZero() {
		http.Error(w, "species and harvestDate are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	farmer, err := a.store.UserByUsername(ctx, user.Username)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	species := models.NormalizeSpecies(req.Species)
	unit := req.Unit
	if unit == "" {
		unit = "kg"
	}

	candidate := validation.Candidate{
		FarmerID:    user.Username,
		Species:     species,
		Quantity:    req.Quantity,
		Unit:        unit,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		HarvestDate: req.HarvestDate,
		Region:      farmer.Region(),
	}
	res, err := a.validator.Validate(ctx, candidate)
	if err != nil {
		http.Error(w, "validation error", http.StatusInternalServerError)
		return
	}

	id := newCollectionID(now)
	if !res.Valid {
		a.raiseValidationAlert(ctx, id, user, candidate, res)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErrorResp{
			Error:      "collection event rejected",
			Validation: res,
		})
		return
	}

	ev := &models.CollectionEvent{
		ID:            id,
		FarmerID:      user.Username,
		FarmerName:    user.FullName,
		Species:       species,
		CommonName:    req.Species,
		Quantity:      req.Quantity,
		Unit:          unit,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Altitude:      req.Altitude,
		Accuracy:      req.Accuracy,
		HarvestDate:   req.HarvestDate.UTC(),
		Region:        farmer.Region(),
		HarvestMethod: req.HarvestMethod,
		PartCollected: req.PartCollected,
		SyncStatus:    models.SyncPending,
		CreatedAt:     now,
	}
	if err := a.store.InsertCollection(ctx, ev); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	a.syncCollection(ctx, ev, user.Username)

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(submitCollectionResp{
		Collection: ev,
		Validation: res,
		Warnings:   res.Warnings,
	})
}

// syncCollection pushes one cached record to the ledger and updates its sync
// fields. Mutates ev in place so the caller can return the fresh state.
func (a *App) syncCollection(ctx context.Context, ev *models.CollectionEvent, identity string) {
	lc, err := a.ledgerFor(identity)
	if err != nil {
		log.Printf("ledger identity %s: %v", identity, err)
		a.markSyncFailure(ctx, ev, err)
		return
	}
	defer lc.Close()

	payload, err := json.Marshal(ev)
	if err != nil {
		a.markSyncFailure(ctx, ev, err)
		return
	}
	txID, err := lc.Submit(ctx, "CreateCollectionEvent", ev.ID, string(payload))
	if err != nil {
		if errors.Is(err, ledger.ErrDisabled) {
			return // stays pending, retryable once a network is configured
		}
		log.Printf("ledger submit %s: %v", ev.ID, err)
		a.markSyncFailure(ctx, ev, err)
		return
	}

	if err := a.sync.MarkSynced(ctx, ev.ID, txID); err != nil {
		log.Printf("mark synced %s: %v", ev.ID, err)
		return
	}
	now := time.Now().UTC()
	ev.SyncStatus = models.SyncSynced
	ev.LedgerTxID = txID
	ev.SyncedAt = &now
	ev.ErrorMessage = ""
}

func (a *App) markSyncFailure(ctx context.Context, ev *models.CollectionEvent, cause error) {
	if err := a.sync.MarkSyncFailed(ctx, ev.ID, cause.Error()); err != nil {
		log.Printf("mark sync failed %s: %v", ev.ID, err)
		return
	}
	ev.SyncStatus = models.SyncFailed
	ev.ErrorMessage = cause.Error()
}

// rejectionAlert builds the alert raised for a failed submission. Rejections
// carry HIGH severity regardless of which rule tripped.
func rejectionAlert(id string, user authUser, c validation.Candidate, res validation.Result) *models.Alert {
	return &models.Alert{
		AlertType:  res.AlertType(),
		Severity:   models.SeverityHigh,
		EntityType: "collection",
		EntityID:   id,
		Title:      "Collection Event Rejected",
		Message:    fmt.Sprintf("Submission by %s for %s failed validation", user.Username, c.Species),
		Details: models.AlertDetails{
			Species:       c.Species,
			TotalQuantity: c.Quantity,
			Unit:          c.Unit,
			Violations:    res.Messages(),
		},
		Status:    models.AlertPending,
		CreatedAt: time.Now().UTC(),
	}
}

func (a *App) raiseValidationAlert(ctx context.Context, id string, user authUser, c validation.Candidate, res validation.Result) {
	if err := a.store.InsertAlert(ctx, rejectionAlert(id, user, c, res)); err != nil {
		log.Printf("insert alert: %v", err)
	}
}

// handleListCollections lists cached records. Farmers only ever see their own.
func (a *App) handleListCollections(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()

	f := store.CollectionFilter{
		FarmerID:   q.Get("farmerId"),
		Species:    q.Get("species"),
		SyncStatus: models.SyncStatus(q.Get("syncStatus")),
		Limit:      queryInt64(q.Get("limit")),
		Offset:     queryInt64(q.Get("offset")),
	}
	if v := q.Get("startDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.StartDate = t
		}
	}
	if v := q.Get("endDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.EndDate = t
		}
	}
	if user.Role == models.RoleFarmer {
		f.FarmerID = user.Username
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, total, err := a.store.ListCollections(ctx, f)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.CollectionEvent{}
	}
	_ = json.NewEncoder(w).Encode(listResp[models.CollectionEvent]{
		Items: items, Total: total, Limit: f.Limit, Offset: f.Offset,
	})
}

// handleGetCollection returns one record; farmers are scoped to their own.
func (a *App) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ev, err := a.store.CollectionByID(ctx, id)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if user.Role == models.RoleFarmer && ev.FarmerID != user.Username {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	_ = json.NewEncoder(w).Encode(ev)
}

// handleRetrySync re-submits unsynced records (failed ones, plus records left
// pending from a disabled-ledger period) to the ledger. Submissions are signed
// as the acting admin, and each record is retried in isolation so one bad
// payload cannot block the rest.
func (a *App) handleRetrySync(w http.ResponseWriter, r *http.Request) {
	admin := currentUser(r)
	limit := queryInt64(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	unsynced, err := a.sync.UnsyncedCollections(ctx, limit)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	resp := retrySyncResp{Attempted: len(unsynced)}
	for i := range unsynced {
		ev := &unsynced[i]
		a.syncCollection(ctx, ev, admin.Username)
		if ev.SyncStatus == models.SyncSynced {
			resp.Synced++
		} else {
			resp.Failed++
			resp.FailedIDs = append(resp.FailedIDs, ev.ID)
		}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func queryInt64(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
