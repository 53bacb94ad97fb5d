package main

import (
	"net/http"

	"herbtrace/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	httpSwagger "github.com/swaggo/http-swagger"
)

// routes wires middlewares and endpoints. Adjust CORS for your frontend hosts.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=60")
		w.Write(openapiYAML)
	})

	r.Mount("/swagger", httpSwagger.Handler(
		httpSwagger.URL("/api/openapi.yaml"),
	))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", a.handleRegister)
		api.Post("/auth/login", a.handleLogin)

		// Unauthenticated lookup used by the field app before login.
		api.Get("/regulations/species/{species}", a.handleSpeciesRegulations)

		api.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware)
			pr.Get("/me", a.handleMe)

			pr.Route("/collections", func(cr chi.Router) {
				cr.Get("/", a.handleListCollections)
				cr.Get("/{id}", a.handleGetCollection)
				cr.With(requireRoles(models.RoleFarmer, models.RoleAdmin)).
					Post("/", a.handleSubmitCollection)
				cr.With(requireRoles(models.RoleAdmin, models.RoleRegulator)).
					Post("/retry-sync", a.handleRetrySync)
			})

			pr.Route("/batches", func(br chi.Router) {
				br.Get("/", a.handleListBatches)
				br.Get("/stats", a.handleBatchStats)
				br.Get("/{id}", a.handleGetBatch)

				br.Group(func(wr chi.Router) {
					wr.Use(requireRoles(models.RoleAdmin, models.RoleRegulator))
					wr.Post("/", a.handleCreateBatch)
					wr.Post("/smart-groups", a.handleSmartGroups)
					wr.Put("/{id}/assign", a.handleAssignBatch)
				})
				br.With(requireRoles(models.RoleProcessor, models.RoleLab,
					models.RoleAdmin, models.RoleRegulator)).
					Put("/{id}/status", a.handleBatchStatus)
			})

			pr.Route("/regulations", func(rr chi.Router) {
				rr.Get("/season-windows", a.handleListSeasonWindows)
				rr.Get("/harvest-limits", a.handleListHarvestLimits)

				rr.Group(func(wr chi.Router) {
					wr.Use(requireRoles(models.RoleAdmin, models.RoleRegulator))
					wr.Post("/season-windows", a.handleCreateSeasonWindow)
					wr.Put("/season-windows/{id}", a.handleUpdateSeasonWindow)
					wr.Delete("/season-windows/{id}", a.handleDeleteSeasonWindow)
					wr.Post("/harvest-limits", a.handleCreateHarvestLimit)
					wr.Put("/harvest-limits/{id}", a.handleUpdateHarvestLimit)
					wr.Delete("/harvest-limits/{id}", a.handleDeleteHarvestLimit)
				})
			})

			pr.Route("/alerts", func(ar chi.Router) {
				ar.Get("/", a.handleListAlerts)
				ar.Put("/{id}/acknowledge", a.handleAcknowledgeAlert)
			})
		})
	})

	return r
}
