package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viagemapp/tripledger/internal/domain"
	"github.com/viagemapp/tripledger/internal/notify"
)

// TestEvents_StreamsMatchingTripOnly verifies the SSE endpoint forwards only
// events for the subscribed trip and stops when the client disconnects.
func TestEvents_StreamsMatchingTripOnly(t *testing.T) {
	tripID := uuid.New()
	otherTrip := uuid.New()

	trips := &mockTripServicer{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Trip, error) {
			return domain.Trip{ID: id}, nil
		},
	}

	hub := notify.NewHub()
	in := make(chan notify.Event)
	go hub.Run(in)
	defer close(in)

	h := newHTTPHandler(trips, nil, nil, hub)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/trips/"+tripID.String()+"/events", nil).WithContext(ctx)
	req.Header.Set("X-Actor-Id", "uid-alice")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	// Give the handler time to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	in <- notify.Event{Kind: notify.KindPaymentApplied, TripID: tripID, ExpenseID: uuid.New(), Status: "partial"}
	in <- notify.Event{Kind: notify.KindMemberJoined, TripID: tripID, MemberID: "uid-carol"}
	in <- notify.Event{Kind: notify.KindPaymentApplied, TripID: otherTrip, ExpenseID: uuid.New(), Status: "settled"}
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after client disconnect")
	}

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: payment_applied")
	assert.Contains(t, body, "event: member_joined")
	assert.Contains(t, body, "uid-carol")
	assert.Contains(t, body, tripID.String())
	assert.NotContains(t, body, otherTrip.String(), "events for other trips must be filtered out")
}

// TestEvents_UnknownTrip_404 verifies subscription to a missing trip fails
// fast instead of opening an empty stream.
func TestEvents_UnknownTrip_404(t *testing.T) {
	trips := &mockTripServicer{
		getByID: func(context.Context, uuid.UUID) (domain.Trip, error) {
			return domain.Trip{}, domain.ErrNotFound
		},
	}
	h := newHTTPHandler(trips, nil, nil, notify.NewHub())

	rec := do(t, h, http.MethodGet, "/trips/"+uuid.NewString()+"/events", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
