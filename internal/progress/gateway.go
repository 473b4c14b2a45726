package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/readkode/readkode/internal/leveling"
	"github.com/readkode/readkode/internal/logger"
	"github.com/readkode/readkode/internal/queue"
	"github.com/readkode/readkode/internal/store"
)

// Gateway is the single writer of remote progress documents. Every call is
// one read-modify-write on the user's document. Calls for the same user are
// serialized within a process; across clients there is no locking, so
// concurrent writers resolve last-write-wins.
type Gateway struct {
	docs store.DocumentStore
	now  func() time.Time
	log  *logger.Logger

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithClock overrides the gateway's time source.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// WithLogger sets the gateway's logger.
func WithLogger(l *logger.Logger) GatewayOption {
	return func(g *Gateway) { g.log = l }
}

// NewGateway creates a Gateway over docs.
func NewGateway(docs store.DocumentStore, opts ...GatewayOption) *Gateway {
	g := &Gateway{docs: docs, now: time.Now, log: logger.Nop(), locks: map[string]chan struct{}{}}
	for _, o := range opts {
		o(g)
	}
	return g
}

// InitializeProgress creates the zero record for userID unless one exists.
// Two racing initializations both write the same zero record.
func (g *Gateway) InitializeProgress(ctx context.Context, userID string) (Record, error) {
	unlock, err := g.lock(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	defer unlock()
	return g.initialize(ctx, userID)
}

func (g *Gateway) initialize(ctx context.Context, userID string) (Record, error) {
	rec, err := g.read(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Record{}, err
	}

	rec = NewRecord(g.now())
	if err := g.create(ctx, userID, rec); err != nil {
		return Record{}, err
	}
	g.log.Info("progress initialized", "user_id", userID)
	return rec, nil
}

// GetUserProgress reads the user's record, creating it if missing.
func (g *Gateway) GetUserProgress(ctx context.Context, userID string) (Record, error) {
	return g.InitializeProgress(ctx, userID)
}

// CompleteLevelBatch credits a finished block of exercises and marks the
// level complete with exactly one write. A level that is already completed
// returns AlreadyCompleted without writing.
func (g *Gateway) CompleteLevelBatch(ctx context.Context, userID, levelID string, res LevelResult) (Completion, error) {
	unlock, err := g.lock(ctx, userID)
	if err != nil {
		return Completion{}, err
	}
	defer unlock()

	rec, err := g.initialize(ctx, userID)
	if err != nil {
		return Completion{}, err
	}

	c := ApplyLevelResult(&rec, levelID, res, Authoritative, g.now())
	if c.AlreadyCompleted {
		g.log.Debug("level already completed", "user_id", userID, "level_id", levelID)
		return c, nil
	}
	if err := g.write(ctx, userID, rec); err != nil {
		return Completion{}, fmt.Errorf("complete level %s: %w", levelID, err)
	}

	g.log.Info("level completed",
		"user_id", userID,
		"level_id", levelID,
		"xp", c.XPGained,
		"total_xp", c.NewTotalXP,
		"leveled_up", c.LeveledUp,
	)
	return c, nil
}

// SaveExerciseBatch adds a queued aggregate to the level's running stats.
// It reports Skipped, not an error, when the level was completed first.
func (g *Gateway) SaveExerciseBatch(ctx context.Context, userID, levelID string, agg queue.Aggregate) (Completion, error) {
	unlock, err := g.lock(ctx, userID)
	if err != nil {
		return Completion{}, err
	}
	defer unlock()

	rec, err := g.initialize(ctx, userID)
	if err != nil {
		return Completion{}, err
	}

	res := LevelResult{CorrectAnswers: agg.Correct, IncorrectAnswers: agg.Incorrect, XPGained: agg.XPGained}
	c := ApplyLevelResult(&rec, levelID, res, Incremental, g.now())
	if c.Skipped {
		g.log.Debug("exercise batch skipped, level completed", "user_id", userID, "level_id", levelID)
		return c, nil
	}
	if err := g.write(ctx, userID, rec); err != nil {
		return Completion{}, fmt.Errorf("save exercise batch %s: %w", levelID, err)
	}
	return c, nil
}

// QueueWriter adapts SaveExerciseBatch to the queue's writer signature.
func (g *Gateway) QueueWriter() queue.WriteFunc {
	return func(ctx context.Context, userID, levelID string, agg queue.Aggregate) error {
		_, err := g.SaveExerciseBatch(ctx, userID, levelID, agg)
		return err
	}
}

// UpdateUserProgress merges top-level fields into the user's document.
// Nested objects are replaced whole; callers merge them first. A patched
// totalXP also rewrites userLevel.
func (g *Gateway) UpdateUserProgress(ctx context.Context, userID string, patch store.Document) error {
	unlock, err := g.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := g.initialize(ctx, userID); err != nil {
		return err
	}

	out := store.Document{}
	for k, v := range patch {
		out[k] = v
	}
	if xp, ok := numeric(out["totalXP"]); ok {
		out["userLevel"] = int64(leveling.CalculateLevelFloat(xp))
	}
	out["updatedAt"] = g.now().UTC().Format(time.RFC3339Nano)

	if err := g.docs.Update(ctx, userID, out); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Mutate applies fn to the user's record and writes the result when fn
// reports a change.
func (g *Gateway) Mutate(ctx context.Context, userID string, fn func(*Record) bool) (Record, error) {
	unlock, err := g.lock(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	defer unlock()

	rec, err := g.initialize(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	if !fn(&rec) {
		return rec, nil
	}
	rec.Normalize()
	if err := g.write(ctx, userID, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// MigrateFromLocal imports the guest record into the remote store. It never
// overwrites an existing remote record, and clears local storage once the
// import succeeds. Reports whether anything was imported.
func (g *Gateway) MigrateFromLocal(ctx context.Context, userID string, local *LocalAdapter) (bool, error) {
	unlock, err := g.lock(ctx, userID)
	if err != nil {
		return false, err
	}
	defer unlock()

	_, err = g.read(ctx, userID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	exists, err := local.Exists(ctx)
	if err != nil || !exists {
		return false, err
	}
	rec, err := local.Load(ctx)
	if err != nil {
		return false, err
	}
	rec.UpdatedAt = g.now().UTC()
	if err := g.create(ctx, userID, rec); err != nil {
		return false, fmt.Errorf("migrate local progress: %w", err)
	}
	if err := local.Clear(ctx); err != nil {
		g.log.Warn("clear local progress after migration", "user_id", userID, "error", err)
	}

	g.log.Info("guest progress migrated", "user_id", userID, "total_xp", rec.TotalXP)
	return true, nil
}

// ResetProgress replaces the user's record with the zero record.
func (g *Gateway) ResetProgress(ctx context.Context, userID string) (Record, error) {
	unlock, err := g.lock(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	defer unlock()

	rec := NewRecord(g.now())
	if err := g.create(ctx, userID, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// lock takes the user's document lock, giving up when ctx is done.
func (g *Gateway) lock(ctx context.Context, userID string) (func(), error) {
	g.locksMu.Lock()
	ch, ok := g.locks[userID]
	if !ok {
		ch = make(chan struct{}, 1)
		g.locks[userID] = ch
	}
	g.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gateway) read(ctx context.Context, userID string) (Record, error) {
	doc, err := g.docs.Read(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("read progress: %w", err)
	}
	var rec Record
	if err := store.FromDocument(doc, &rec); err != nil {
		return Record{}, err
	}
	rec.Normalize()
	return rec, nil
}

func (g *Gateway) create(ctx context.Context, userID string, rec Record) error {
	rec.Normalize()
	doc, err := store.ToDocument(rec)
	if err != nil {
		return err
	}
	if err := g.docs.Create(ctx, userID, doc); err != nil {
		return fmt.Errorf("create progress: %w", err)
	}
	return nil
}

// write stores every field except createdAt in a single update.
func (g *Gateway) write(ctx context.Context, userID string, rec Record) error {
	doc, err := store.ToDocument(rec)
	if err != nil {
		return err
	}
	delete(doc, "createdAt")
	return g.docs.Update(ctx, userID, doc)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
