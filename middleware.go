package main

import (
	"context"
	"net/http"
	"strings"

	"herbtrace/models"
)

type ctxKey string

const authUserKey ctxKey = "authUser"

// authMiddleware extracts and validates the Bearer token and injects the
// acting user into context.
func (a *App) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		raw := strings.TrimPrefix(authz, "Bearer ")
		user, err := parseJWT(a.cfg.JWTSecret, raw)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), authUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRoles gates a route group to the listed roles. Runs after
// authMiddleware.
func requireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := map[models.Role]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[currentUser(r).Role] {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// currentUser returns the acting user from context, zero value if missing.
func currentUser(r *http.Request) authUser {
	val := r.Context().Value(authUserKey)
	if val == nil {
		return authUser{}
	}
	return val.(authUser)
}
