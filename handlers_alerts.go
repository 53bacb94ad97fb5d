package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"herbtrace/models"
	"herbtrace/store"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// handleListAlerts lists notification events newest first. Processors only see
// alerts addressed to them; admins and regulators see everything.
func (a *App) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()

	f := store.AlertFilter{
		Status:     q.Get("status"),
		AlertType:  q.Get("alertType"),
		Severity:   q.Get("severity"),
		AssignedTo: q.Get("assignedTo"),
		Limit:      queryInt64(q.Get("limit")),
		Offset:     queryInt64(q.Get("offset")),
	}
	if user.Role != models.RoleAdmin && user.Role != models.RoleRegulator {
		f.AssignedTo = user.Username
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, total, err := a.store.ListAlerts(ctx, f)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Alert{}
	}
	_ = json.NewEncoder(w).Encode(listResp[models.Alert]{
		Items: items, Total: total, Limit: f.Limit, Offset: f.Offset,
	})
}

// handleAcknowledgeAlert marks a pending alert as seen by the caller.
func (a *App) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	alert, err := a.store.AcknowledgeAlert(ctx, id, user.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(alert)
}
