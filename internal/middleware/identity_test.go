package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viagemapp/tripledger/internal/domain"
	"github.com/viagemapp/tripledger/internal/middleware"
)

// actorCapturingHandler stores the actor it finds in context and returns 200.
func actorCapturingHandler(got *domain.Actor, found *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *found = middleware.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityHandler_ExtractsActor(t *testing.T) {
	var got domain.Actor
	var found bool
	h := middleware.NewIdentityHandler()(actorCapturingHandler(&got, &found))

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("X-Actor-Id", "uid-alice")
	req.Header.Set("X-Actor-Name", "Alice")
	req.Header.Set("X-Actor-Admin", "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, found)
	assert.Equal(t, "uid-alice", got.ID)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.True(t, got.Admin)
}

func TestIdentityHandler_MissingID_Returns401(t *testing.T) {
	var got domain.Actor
	var found bool
	h := middleware.NewIdentityHandler()(actorCapturingHandler(&got, &found))

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, found, "handler must not run without an identity")

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthenticated", body["error"]["code"])
}

func TestIdentityHandler_NameDefaultsToID(t *testing.T) {
	var got domain.Actor
	var found bool
	h := middleware.NewIdentityHandler()(actorCapturingHandler(&got, &found))

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("X-Actor-Id", "uid-carol")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uid-carol", got.DisplayName)
	assert.False(t, got.Admin, "admin defaults to false")
}
