package notify_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viagemapp/tripledger/internal/notify"
)

func TestHub_BroadcastsToAllSubscribers(t *testing.T) {
	hub := notify.NewHub()
	in := make(chan notify.Event)
	done := make(chan struct{})
	go func() {
		hub.Run(in)
		close(done)
	}()

	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	want := notify.Event{
		Kind:      notify.KindPaymentApplied,
		TripID:    uuid.New(),
		ExpenseID: uuid.New(),
		Status:    "partial",
	}
	in <- want

	for _, ch := range []<-chan notify.Event{a, b} {
		select {
		case got := <-ch:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}

	close(in)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after input closed")
	}
}

func TestHub_CancelClosesChannelAndStopsDelivery(t *testing.T) {
	hub := notify.NewHub()
	in := make(chan notify.Event)
	go hub.Run(in)
	defer close(in)

	ch, cancel := hub.Subscribe()
	cancel()
	// Cancel is safe to call again.
	cancel()

	_, open := <-ch
	require.False(t, open, "channel must be closed after cancel")

	// A broadcast after cancel must not panic on the closed channel.
	in <- notify.Event{Kind: notify.KindExpenseCreated}
}
