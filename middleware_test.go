package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"herbtrace/batching"
	"herbtrace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func authedRequest(t *testing.T, a *App, role models.Role) *http.Request {
	t.Helper()
	u := &models.User{
		ID:       primitive.NewObjectID(),
		Username: "someone",
		FullName: "Some One",
		Role:     role,
	}
	tok, err := signJWT(a.cfg.JWTSecret, u)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func TestAuthMiddleware(t *testing.T) {
	a := &App{cfg: Config{JWTSecret: "secret"}}
	var seen authUser
	h := a.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = currentUser(r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(t, a, models.RoleLab))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "someone", seen.Username)
	assert.Equal(t, models.RoleLab, seen.Role)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	a := &App{cfg: Config{JWTSecret: "secret"}}
	called := false
	h := a.authMiddleware(requireRoles(models.RoleAdmin, models.RoleRegulator)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(t, a, models.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)

	called = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(t, a, models.RoleFarmer))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestWriteDomainError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad species", batching.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: gone", batching.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: taken", batching.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: terminal", batching.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}

func TestNewCollectionID(t *testing.T) {
	now := time.Now()
	id := newCollectionID(now)
	assert.Regexp(t, regexp.MustCompile(fmt.Sprintf(`^COL-%d-[0-9a-f]{8}$`, now.UnixMilli())), id)
	assert.NotEqual(t, id, newCollectionID(now))
}
