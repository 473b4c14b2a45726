// Package queue batches exercise completions before they reach the remote
// store. Items are mirrored to durable local storage on every change, so a
// crash between enqueue and flush loses nothing: the next process start
// loads and drains them.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/readkode/readkode/internal/localstore"
	"github.com/readkode/readkode/internal/logger"
)

const (
	DefaultDelay        = 5000 * time.Millisecond
	DefaultFlushTimeout = 30 * time.Second
	DefaultStorageKey   = "firestore_exercise_queue"
)

// ErrNoWriter is returned by Flush when neither an explicit writer nor a
// default writer has been configured.
var ErrNoWriter = errors.New("queue: no writer configured")

// Item is a single exercise completion waiting to be written.
type Item struct {
	UserID        string `json:"userId"`
	ExerciseLevel string `json:"exerciseLevel"`
	IsCorrect     bool   `json:"isCorrect"`
	XPGained      int    `json:"xpGained"`
	Timestamp     int64  `json:"timestamp"` // unix milliseconds
}

// Aggregate sums the items of one (user, level) group.
type Aggregate struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	XPGained  int `json:"xpGained"`
}

// Answered returns the number of exercises in the aggregate.
func (a Aggregate) Answered() int {
	return a.Correct + a.Incorrect
}

// WriteFunc persists one aggregated group. It must honour ctx.
type WriteFunc func(ctx context.Context, userID, levelID string, agg Aggregate) error

// Options configures a Queue. Zero values fall back to the defaults.
type Options struct {
	Delay        time.Duration
	FlushTimeout time.Duration
	StorageKey   string
	Logger       *logger.Logger
}

// Queue is a durable, debounced completion buffer.
type Queue struct {
	store localstore.Store
	opts  Options
	log   *logger.Logger

	mu     sync.Mutex
	items  []Item
	timer  *time.Timer
	writer WriteFunc
	loaded bool

	// flushSlot holds one token while a flush is in flight.
	flushSlot chan struct{}
}

// New creates a Queue persisting to store.
func New(store localstore.Store, opts Options) *Queue {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	if opts.StorageKey == "" {
		opts.StorageKey = DefaultStorageKey
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Queue{store: store, opts: opts, log: log, flushSlot: make(chan struct{}, 1)}
}

// SetWriter sets the writer used when the debounce timer fires.
func (q *Queue) SetWriter(w WriteFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.writer = w
}

// Load reads previously persisted items ahead of anything already queued.
// The blob is read at most once per Queue: after that the in-memory queue is
// the authority and the blob only mirrors it. Corrupt data is logged and
// discarded. Returns the number of items now queued.
func (q *Queue) Load(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.loaded {
		return len(q.items), nil
	}

	data, err := q.store.Get(ctx, q.opts.StorageKey)
	if errors.Is(err, localstore.ErrNotFound) {
		q.loaded = true
		return len(q.items), nil
	}
	if err != nil {
		return len(q.items), fmt.Errorf("load queue: %w", err)
	}
	q.loaded = true

	var stored []Item
	if err := json.Unmarshal(data, &stored); err != nil {
		q.log.Warn("discarding corrupt completion queue", "error", err, "bytes", len(data))
		return len(q.items), nil
	}

	// Items enqueued before the load were mirrored into the blob already.
	mirrored := make(map[Item]int, len(stored))
	for _, it := range stored {
		mirrored[it]++
	}
	for _, it := range q.items {
		if mirrored[it] > 0 {
			mirrored[it]--
			continue
		}
		stored = append(stored, it)
	}
	q.items = stored
	return len(q.items), nil
}

// Enqueue appends item, persists the queue and restarts the debounce timer.
// The item stays queued in memory even if persisting fails.
func (q *Queue) Enqueue(ctx context.Context, item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)
	err := q.persistLocked(ctx)
	q.scheduleLocked()
	if err != nil {
		return fmt.Errorf("persist queue: %w", err)
	}
	return nil
}

// scheduleLocked restarts the inactivity timer. Every call pushes the flush
// back by a full delay.
func (q *Queue) scheduleLocked() {
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.opts.Delay, q.onTimer)
}

func (q *Queue) onTimer() {
	q.mu.Lock()
	w := q.writer
	q.mu.Unlock()
	if w == nil {
		q.log.Warn("debounce fired with no writer configured", "pending", q.Size())
		return
	}
	if err := q.Flush(context.Background(), w); err != nil {
		q.log.Warn("debounced flush failed", "error", err, "pending", q.Size())
		q.mu.Lock()
		if len(q.items) > 0 {
			q.scheduleLocked()
		}
		q.mu.Unlock()
	}
}

type group struct {
	userID  string
	levelID string
	agg     Aggregate
	items   []Item
}

// groupItems groups by (user, level) in first-seen order.
func groupItems(items []Item) []*group {
	var groups []*group
	index := make(map[[2]string]*group)
	for _, it := range items {
		k := [2]string{it.UserID, it.ExerciseLevel}
		g, ok := index[k]
		if !ok {
			g = &group{userID: it.UserID, levelID: it.ExerciseLevel}
			index[k] = g
			groups = append(groups, g)
		}
		if it.IsCorrect {
			g.agg.Correct++
		} else {
			g.agg.Incorrect++
		}
		g.agg.XPGained += it.XPGained
		g.items = append(g.items, it)
	}
	return groups
}

// Flush drains the queue through write, one call per (user, level) group.
// It is a no-op when another flush is running or the queue is empty. On a
// failed write the unwritten groups go back to the front of the queue.
// A nil write uses the writer set by SetWriter.
func (q *Queue) Flush(ctx context.Context, write WriteFunc) error {
	write, err := q.resolveWriter(write)
	if err != nil {
		return err
	}
	select {
	case q.flushSlot <- struct{}{}:
	default:
		return nil
	}
	defer func() { <-q.flushSlot }()
	return q.flush(ctx, write)
}

// Drain is Flush for callers that must not overtake a write already in
// flight: it waits for a running flush to finish, then flushes whatever is
// left. It gives up when ctx is done.
func (q *Queue) Drain(ctx context.Context, write WriteFunc) error {
	write, err := q.resolveWriter(write)
	if err != nil {
		return err
	}
	select {
	case q.flushSlot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-q.flushSlot }()
	return q.flush(ctx, write)
}

func (q *Queue) resolveWriter(write WriteFunc) (WriteFunc, error) {
	if write != nil {
		return write, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.writer == nil {
		return nil, ErrNoWriter
	}
	return q.writer, nil
}

// flush must be called holding the flush slot.
func (q *Queue) flush(ctx context.Context, write WriteFunc) error {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil
	}
	snapshot := q.items
	q.items = nil
	if q.timer != nil {
		q.timer.Stop()
	}
	if err := q.persistLocked(ctx); err != nil {
		q.log.Warn("persist cleared queue", "error", err)
	}
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, q.opts.FlushTimeout)
	defer cancel()

	groups := groupItems(snapshot)
	for i, g := range groups {
		if err := callWithContext(ctx, write, g); err != nil {
			var rest []Item
			for _, pending := range groups[i:] {
				rest = append(rest, pending.items...)
			}
			q.requeue(rest)
			q.log.Warn("completion batch write failed",
				"user_id", g.userID,
				"level_id", g.levelID,
				"requeued", len(rest),
				"error", err,
			)
			return fmt.Errorf("write level %s: %w", g.levelID, err)
		}
		q.log.Debug("completion batch written",
			"user_id", g.userID,
			"level_id", g.levelID,
			"correct", g.agg.Correct,
			"incorrect", g.agg.Incorrect,
			"xp", g.agg.XPGained,
		)
	}
	return nil
}

// callWithContext runs write but stops waiting once ctx is done, so a hung
// writer cannot hold the flush guard forever.
func callWithContext(ctx context.Context, write WriteFunc, g *group) error {
	done := make(chan error, 1)
	go func() {
		done <- write(ctx, g.userID, g.levelID, g.agg)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) requeue(items []Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := make([]Item, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	merged = append(merged, q.items...)
	q.items = merged
	if err := q.persistLocked(context.Background()); err != nil {
		q.log.Error("persist requeued items", "error", err, "count", len(items))
	}
}

func (q *Queue) persistLocked(ctx context.Context) error {
	if len(q.items) == 0 {
		return q.store.Delete(ctx, q.opts.StorageKey)
	}
	data, err := json.Marshal(q.items)
	if err != nil {
		return err
	}
	return q.store.Put(ctx, q.opts.StorageKey, data)
}

// Size returns the number of queued items.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the queued items.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Item(nil), q.items...)
}

// IsFlushing reports whether a flush is in flight.
func (q *Queue) IsFlushing() bool {
	return len(q.flushSlot) > 0
}

// Clear drops every queued item, in memory and on disk.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	if q.timer != nil {
		q.timer.Stop()
	}
	return q.persistLocked(ctx)
}

// Stop cancels a pending debounce timer. Queued items stay persisted.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}
