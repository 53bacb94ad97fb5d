package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"herbtrace/batching"
	"herbtrace/ledger"
	"herbtrace/models"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// writeDomainError maps the batching sentinel errors to HTTP statuses. The
// error text goes to the client as-is; these messages are written for users.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, batching.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, batching.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, batching.ErrConflict), errors.Is(err, batching.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func batchIDParam(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}

// handleSmartGroups previews candidate batches without creating anything.
func (a *App) handleSmartGroups(w http.ResponseWriter, r *http.Request) {
	var req smartGroupsReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // empty body means defaults
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	events, err := a.store.UnbatchedSynced(ctx, models.NormalizeSpecies(req.Species))
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	groups := batching.FindGroups(events, req.Params, time.Now().UTC())
	if groups == nil {
		groups = []batching.Group{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"groups": groups})
}

// handleCreateBatch groups the named collections into a new batch, optionally
// assigned to a processor up front.
func (a *App) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req createBatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	batch, err := a.lifecycle.CreateBatch(ctx, batching.CreateBatchParams{
		Species:       models.NormalizeSpecies(req.Species),
		CollectionIDs: req.CollectionIDs,
		AssignedTo:    req.AssignedTo,
		Notes:         req.Notes,
		CreatedBy:     user.Username,
		CreatedByName: user.FullName,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	a.mirrorBatch(ctx, batch, user.Username)

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(batch)
}

// mirrorBatch writes the batch to the ledger, best effort. The cache is the
// source of truth for batches; an unmirrored batch is queryable and carries
// no ledgerTxId.
func (a *App) mirrorBatch(ctx context.Context, batch *models.Batch, identity string) {
	lc, err := a.ledgerFor(identity)
	if err != nil {
		log.Printf("ledger identity %s: %v", identity, err)
		return
	}
	defer lc.Close()

	payload, err := json.Marshal(batch)
	if err != nil {
		return
	}
	txID, err := lc.Submit(ctx, "CreateBatch", batch.BatchNumber, string(payload))
	if err != nil {
		if !errors.Is(err, ledger.ErrDisabled) {
			log.Printf("ledger mirror batch %s: %v", batch.BatchNumber, err)
		}
		return
	}
	if err := a.store.SetBatchLedgerTx(ctx, batch.ID, txID); err != nil {
		log.Printf("record batch tx %s: %v", batch.BatchNumber, err)
		return
	}
	batch.LedgerTxID = txID
}

func (a *App) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := batchIDParam(r)
	if !ok {
		http.Error(w, "bad batch id", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	batch, err := a.lifecycle.GetBatch(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(batch)
}

func (a *App) handleListBatches(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()

	f := batching.BatchFilter{
		Species:    models.NormalizeSpecies(q.Get("species")),
		Status:     models.BatchStatus(q.Get("status")),
		AssignedTo: q.Get("assignedTo"),
		CreatedBy:  q.Get("createdBy"),
		Limit:      queryInt64(q.Get("limit")),
		Offset:     queryInt64(q.Get("offset")),
	}
	// Processors see their own queue by default.
	if user.Role == models.RoleProcessor {
		f.AssignedTo = user.Username
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, total, err := a.lifecycle.ListBatches(ctx, f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []models.Batch{}
	}
	_ = json.NewEncoder(w).Encode(listResp[models.Batch]{
		Items: items, Total: total, Limit: f.Limit, Offset: f.Offset,
	})
}

func (a *App) handleAssignBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := batchIDParam(r)
	if !ok {
		http.Error(w, "bad batch id", http.StatusBadRequest)
		return
	}
	var req assignBatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	batch, err := a.lifecycle.AssignProcessor(ctx, id, req.AssignedTo)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(batch)
}

func (a *App) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, ok := batchIDParam(r)
	if !ok {
		http.Error(w, "bad batch id", http.StatusBadRequest)
		return
	}
	var req batchStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	batch, err := a.lifecycle.UpdateBatchStatus(ctx, id, models.BatchStatus(req.Status), user.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(batch)
}

func (a *App) handleBatchStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stats, err := a.store.BatchStatistics(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(stats)
}
