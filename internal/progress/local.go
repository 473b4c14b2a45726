package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/readkode/readkode/internal/localstore"
	"github.com/readkode/readkode/internal/logger"
	"github.com/readkode/readkode/internal/store"
)

// LocalStorageKey is the blob holding guest progress.
const LocalStorageKey = "userProgress"

// LocalAdapter persists a guest's record as one JSON blob on the device.
type LocalAdapter struct {
	blobs localstore.Store
	now   func() time.Time
	log   *logger.Logger
}

// LocalOption configures a LocalAdapter.
type LocalOption func(*LocalAdapter)

// WithLocalClock overrides the adapter's time source.
func WithLocalClock(now func() time.Time) LocalOption {
	return func(a *LocalAdapter) { a.now = now }
}

// WithLocalLogger sets the adapter's logger.
func WithLocalLogger(l *logger.Logger) LocalOption {
	return func(a *LocalAdapter) { a.log = l }
}

// NewLocalAdapter creates a LocalAdapter over blobs.
func NewLocalAdapter(blobs localstore.Store, opts ...LocalOption) *LocalAdapter {
	a := &LocalAdapter{blobs: blobs, now: time.Now, log: logger.Nop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Exists reports whether a guest record has been saved.
func (a *LocalAdapter) Exists(ctx context.Context) (bool, error) {
	_, err := a.blobs.Get(ctx, LocalStorageKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read local progress: %w", err)
	}
	return true, nil
}

// Load returns the guest record. Missing or unparseable data yields the
// zero record.
func (a *LocalAdapter) Load(ctx context.Context) (Record, error) {
	data, err := a.blobs.Get(ctx, LocalStorageKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return NewRecord(a.now()), nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("read local progress: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		a.log.Warn("local progress unreadable, starting fresh", "error", err, "bytes", len(data))
		return NewRecord(a.now()), nil
	}
	rec.Normalize()
	return rec, nil
}

// Save writes rec, stamping updatedAt.
func (a *LocalAdapter) Save(ctx context.Context, rec Record) error {
	rec.Normalize()
	rec.UpdatedAt = a.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal local progress: %w", err)
	}
	if err := a.blobs.Put(ctx, LocalStorageKey, data); err != nil {
		return fmt.Errorf("write local progress: %w", err)
	}
	return nil
}

// Clear removes the guest record.
func (a *LocalAdapter) Clear(ctx context.Context) error {
	return a.blobs.Delete(ctx, LocalStorageKey)
}

// CompleteLevel marks levelID complete with the block totals in res.
func (a *LocalAdapter) CompleteLevel(ctx context.Context, levelID string, res LevelResult) (Completion, error) {
	return a.apply(ctx, levelID, res, Authoritative)
}

// ApplyExercise credits one answered exercise to levelID.
func (a *LocalAdapter) ApplyExercise(ctx context.Context, levelID string, isCorrect bool, xp int) (Completion, error) {
	res := LevelResult{XPGained: xp}
	if isCorrect {
		res.CorrectAnswers = 1
	} else {
		res.IncorrectAnswers = 1
	}
	return a.apply(ctx, levelID, res, Incremental)
}

func (a *LocalAdapter) apply(ctx context.Context, levelID string, res LevelResult, mode Mode) (Completion, error) {
	rec, err := a.Load(ctx)
	if err != nil {
		return Completion{}, err
	}
	c := ApplyLevelResult(&rec, levelID, res, mode, a.now())
	if c.AlreadyCompleted || c.Skipped {
		return c, nil
	}
	if err := a.Save(ctx, rec); err != nil {
		return Completion{}, err
	}
	return c, nil
}

// Mutate applies fn to the guest record and saves it when fn reports a change.
func (a *LocalAdapter) Mutate(ctx context.Context, fn func(*Record) bool) (Record, error) {
	rec, err := a.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	if !fn(&rec) {
		return rec, nil
	}
	if err := a.Save(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update merges top-level fields into the guest record.
func (a *LocalAdapter) Update(ctx context.Context, patch store.Document) (Record, error) {
	rec, err := a.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	merged, err := PatchRecord(rec, patch)
	if err != nil {
		return Record{}, err
	}
	if err := a.Save(ctx, merged); err != nil {
		return Record{}, err
	}
	return merged, nil
}

// PatchRecord returns rec with the top-level fields in patch replaced.
func PatchRecord(rec Record, patch store.Document) (Record, error) {
	doc, err := store.ToDocument(rec)
	if err != nil {
		return Record{}, err
	}
	for k, v := range patch {
		doc[k] = v
	}
	var out Record
	if err := store.FromDocument(doc, &out); err != nil {
		return Record{}, err
	}
	out.Normalize()
	return out, nil
}
