package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/viagemapp/tripledger/internal/domain"
)

// Identity headers set by the authenticating reverse proxy in front of the API.
const (
	HeaderActorID    = "X-Actor-Id"
	HeaderActorName  = "X-Actor-Name"
	HeaderActorAdmin = "X-Actor-Admin"
)

type actorContextKey struct{}

// NewIdentityHandler returns a middleware that extracts the caller identity
// from the X-Actor-* headers and stores it in the request context as a
// domain.Actor. Requests without an X-Actor-Id header are rejected with 401;
// the API trusts the proxy to have authenticated the caller, so an absent
// header means the request bypassed it.
func NewIdentityHandler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderActorID))
			if id == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"code":"unauthenticated","message":"missing identity headers"}}`))
				return
			}

			actor := domain.Actor{
				ID:          id,
				DisplayName: strings.TrimSpace(r.Header.Get(HeaderActorName)),
				Admin:       r.Header.Get(HeaderActorAdmin) == "true",
			}
			if actor.DisplayName == "" {
				actor.DisplayName = actor.ID
			}

			ctx := context.WithValue(r.Context(), actorContextKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the actor stored by NewIdentityHandler. The second
// return is false when the middleware did not run for this request.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}
