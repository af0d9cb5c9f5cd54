// Package analytics records card interaction events for later review.
// Writes are queued and flushed off the UI timeline so recording an
// event never blocks frame production.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"

	"github.com/prospectly/leaddeck/internal/logging"
)

// EventKind labels a card interaction.
type EventKind string

const (
	KindDismissed EventKind = "dismissed"
	KindMinimized EventKind = "minimized"
	KindRestored  EventKind = "restored"
	KindOpened    EventKind = "opened"
)

// Event is one recorded card interaction.
type Event struct {
	CardID string
	Kind   EventKind
	At     time.Time
}

const (
	queueSize    = 256
	maxBatchSize = 64
)

// Journal is an append-only sqlite log of card events.
type Journal struct {
	db      *sql.DB
	events  chan Event
	group   *errgroup.Group
	cancel  context.CancelFunc
	limiter *rate.Limiter
	log     *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open creates or opens the journal database and starts the background
// flusher.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal db: %w", err)
	}

	// Single writer; sqlite handles its own locking but concurrent
	// connections only add contention here.
	db.SetMaxOpenConns(1)

	const schema = `
CREATE TABLE IF NOT EXISTS card_events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	card_id TEXT NOT NULL,
	kind    TEXT NOT NULL,
	at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_card_events_card ON card_events(card_id);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	j := &Journal{
		db:     db,
		events: make(chan Event, queueSize),
		group:  g,
		cancel: cancel,
		// Flushes are cheap but bursty; cap them so a storm of synthetic
		// gestures can't monopolize the disk.
		limiter: rate.NewLimiter(rate.Limit(10), maxBatchSize),
		log:     logging.ForComponent(logging.CompJournal),
	}

	g.Go(func() error {
		j.flushLoop(ctx)
		return nil
	})
	return j, nil
}

// Record queues an event. Non-blocking: when the queue is full the
// event is dropped and logged, never stalling the caller.
func (j *Journal) Record(cardID string, kind EventKind) {
	ev := Event{CardID: cardID, Kind: kind, At: time.Now()}
	select {
	case j.events <- ev:
	default:
		j.log.Warn("event queue full, dropping event", "card", cardID, "kind", string(kind))
	}
}

// flushLoop drains the queue in batches until the channel closes.
func (j *Journal) flushLoop(ctx context.Context) {
	for ev := range j.events {
		batch := make([]Event, 1, maxBatchSize)
		batch[0] = ev
	drain:
		for len(batch) < maxBatchSize {
			select {
			case more, ok := <-j.events:
				if !ok {
					break drain
				}
				batch = append(batch, more)
			default:
				break drain
			}
		}

		if err := j.limiter.Wait(ctx); err != nil && ctx.Err() == nil {
			j.log.Warn("rate limiter wait failed", "error", err)
		}
		if err := j.writeBatch(batch); err != nil {
			j.log.Warn("failed to write event batch", "count", len(batch), "error", err)
		}
	}
}

func (j *Journal) writeBatch(batch []Event) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO card_events (card_id, kind, at) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, ev := range batch {
		if _, err := stmt.Exec(ev.CardID, string(ev.Kind), ev.At); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Counts returns per-kind event totals for one card.
func (j *Journal) Counts(cardID string) (map[EventKind]int, error) {
	rows, err := j.db.Query(
		"SELECT kind, COUNT(*) FROM card_events WHERE card_id = ? GROUP BY kind", cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[EventKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[EventKind(kind)] = n
	}
	return counts, rows.Err()
}

// Close drains pending events, stops the flusher, and closes the
// database.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		close(j.events)
		j.closeErr = j.group.Wait()
		j.cancel()
		if err := j.db.Close(); err != nil && j.closeErr == nil {
			j.closeErr = err
		}
	})
	return j.closeErr
}
