package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Listener is a restartable subscription to the ledger-event channel.
// It dedicates one pooled connection to LISTEN and fans events out to a
// single consumer channel. If the connection drops, the listener backs off,
// re-acquires, and resumes — events raised in the gap are lost, which is
// acceptable because consumers treat events as refresh hints, not as truth.
type Listener struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewListener constructs a Listener backed by the given pool.
func NewListener(pool *pgxpool.Pool, log *slog.Logger) *Listener {
	return &Listener{pool: pool, log: log}
}

// Listen blocks, delivering events to out until ctx is cancelled.
// The out channel is closed on return. Sends never block the listener:
// if the consumer is slow, events are dropped rather than queued forever.
func (l *Listener) Listen(ctx context.Context, out chan<- Event) error {
	defer close(out)

	for {
		if err := l.listenOnce(ctx, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Warn("notify listener lost connection, restarting", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

// listenOnce holds one connection for the lifetime of the subscription.
func (l *Listener) listenOnce(ctx context.Context, out chan<- Event) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("notify.Listener: acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("notify.Listener: listen: %w", err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("notify.Listener: wait: %w", err)
		}

		event, err := ParseEvent(n.Payload)
		if err != nil {
			l.log.Warn("notify listener dropped malformed payload", "error", err)
			continue
		}

		select {
		case out <- event:
		default:
			l.log.Debug("notify listener dropped event, consumer is slow",
				"kind", event.Kind, "trip_id", event.TripID)
		}
	}
}
