package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"herbtrace/batching"
	"herbtrace/models"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validMonth(m int) bool { return m >= 1 && m <= 12 }

// handleCreateSeasonWindow registers the allowed harvest months for a species
// in one region.
func (a *App) handleCreateSeasonWindow(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req seasonWindowReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Species == "" || req.Region == "" {
		http.Error(w, "species and region are required", http.StatusBadRequest)
		return
	}
	if !validMonth(req.StartMonth) || !validMonth(req.EndMonth) {
		http.Error(w, "months must be 1-12", http.StatusBadRequest)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	win := &models.SeasonWindow{
		Species:    models.NormalizeSpecies(req.Species),
		Region:     req.Region,
		StartMonth: req.StartMonth,
		EndMonth:   req.EndMonth,
		Active:     active,
		CreatedBy:  user.Username,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.store.InsertSeasonWindow(ctx, win); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(win)
}

func (a *App) handleListSeasonWindows(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := a.store.ListSeasonWindows(ctx, models.NormalizeSpecies(r.URL.Query().Get("species")))
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.SeasonWindow{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

// handleSpeciesRegulations is the public per-species lookup: the active season
// windows, no farmer-specific limits.
func (a *App) handleSpeciesRegulations(w http.ResponseWriter, r *http.Request) {
	species := models.NormalizeSpecies(chi.URLParam(r, "species"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	windows, err := a.store.ListSeasonWindows(ctx, species)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	active := make([]models.SeasonWindow, 0, len(windows))
	for _, win := range windows {
		if win.Active {
			active = append(active, win)
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"species":       species,
		"seasonWindows": active,
	})
}

func (a *App) handleUpdateSeasonWindow(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	var req seasonWindowReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if !validMonth(req.StartMonth) || !validMonth(req.EndMonth) {
		http.Error(w, "months must be 1-12", http.StatusBadRequest)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	win, err := a.store.UpdateSeasonWindow(ctx, id, req.StartMonth, req.EndMonth, active)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(win)
}

func (a *App) handleDeleteSeasonWindow(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.store.DeleteSeasonWindow(ctx, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateHarvestLimit caps one farmer's seasonal take of a species.
func (a *App) handleCreateHarvestLimit(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req harvestLimitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Species == "" || req.FarmerID == "" || req.Season == "" {
		http.Error(w, "species, farmerId and season are required", http.StatusBadRequest)
		return
	}
	if req.MaxQuantity <= 0 {
		http.Error(w, "maxQuantity must be positive", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// The farmer must exist; a limit on a ghost id would never fire.
	if _, err := a.store.UserByUsername(ctx, req.FarmerID); err != nil {
		if errors.Is(err, batching.ErrNotFound) {
			http.Error(w, "unknown farmer", http.StatusBadRequest)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	unit := req.Unit
	if unit == "" {
		unit = "kg"
	}
	limit := &models.HarvestLimit{
		Species:        models.NormalizeSpecies(req.Species),
		FarmerID:       req.FarmerID,
		Season:         req.Season,
		MaxQuantity:    req.MaxQuantity,
		Unit:           unit,
		AlertThreshold: req.AlertThreshold,
		CreatedBy:      user.Username,
	}
	if err := a.store.InsertHarvestLimit(ctx, limit); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(limit)
}

func (a *App) handleListHarvestLimits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := a.store.ListHarvestLimits(ctx,
		models.NormalizeSpecies(q.Get("species")), q.Get("farmerId"), q.Get("season"))
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.HarvestLimit{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

func (a *App) handleUpdateHarvestLimit(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	var req harvestLimitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.MaxQuantity <= 0 {
		http.Error(w, "maxQuantity must be positive", http.StatusBadRequest)
		return
	}
	threshold := req.AlertThreshold
	if threshold <= 0 {
		threshold = 80
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	limit, err := a.store.UpdateHarvestLimit(ctx, id, req.MaxQuantity, threshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(limit)
}

func (a *App) handleDeleteHarvestLimit(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.store.DeleteHarvestLimit(ctx, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
