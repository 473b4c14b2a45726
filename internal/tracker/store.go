package tracker

import (
	"context"
	"time"

	"github.com/readkode/readkode/internal/progress"
	"github.com/readkode/readkode/internal/queue"
	"github.com/readkode/readkode/internal/store"
)

// ProgressStore is where a Tracker's record lives. Guests use the device;
// signed-in users use the remote gateway behind the completion queue.
type ProgressStore interface {
	// Load returns the current record, including any writes still queued.
	Load(ctx context.Context) (progress.Record, error)

	// RecordExercise records one answered exercise and returns the record
	// as the user should now see it.
	RecordExercise(ctx context.Context, cached progress.Record, item queue.Item) (progress.Record, error)

	// CompleteLevel writes a finished block.
	CompleteLevel(ctx context.Context, levelID string, res progress.LevelResult) (progress.Completion, error)

	// Update merges top-level fields into the record.
	Update(ctx context.Context, patch store.Document) (progress.Record, error)

	// Mutate applies fn and persists the record when fn reports a change.
	Mutate(ctx context.Context, fn func(*progress.Record) bool) (progress.Record, error)

	// Flush pushes queued writes, if the store has any. It returns only
	// after any write already in flight has finished.
	Flush(ctx context.Context) error
}

type localProgressStore struct {
	local *progress.LocalAdapter
}

func (s *localProgressStore) Load(ctx context.Context) (progress.Record, error) {
	return s.local.Load(ctx)
}

func (s *localProgressStore) RecordExercise(ctx context.Context, _ progress.Record, item queue.Item) (progress.Record, error) {
	c, err := s.local.ApplyExercise(ctx, item.ExerciseLevel, item.IsCorrect, item.XPGained)
	if err != nil {
		return progress.Record{}, err
	}
	return c.Progress, nil
}

func (s *localProgressStore) CompleteLevel(ctx context.Context, levelID string, res progress.LevelResult) (progress.Completion, error) {
	return s.local.CompleteLevel(ctx, levelID, res)
}

func (s *localProgressStore) Update(ctx context.Context, patch store.Document) (progress.Record, error) {
	return s.local.Update(ctx, patch)
}

func (s *localProgressStore) Mutate(ctx context.Context, fn func(*progress.Record) bool) (progress.Record, error) {
	return s.local.Mutate(ctx, fn)
}

func (s *localProgressStore) Flush(context.Context) error { return nil }

type remoteProgressStore struct {
	userID  string
	gateway *progress.Gateway
	queue   *queue.Queue
	now     func() time.Time
}

func (s *remoteProgressStore) Load(ctx context.Context) (progress.Record, error) {
	rec, err := s.gateway.GetUserProgress(ctx, s.userID)
	if err != nil {
		return progress.Record{}, err
	}
	return s.overlayPending(rec), nil
}

// overlayPending applies queued items that have not reached the gateway.
func (s *remoteProgressStore) overlayPending(rec progress.Record) progress.Record {
	for _, it := range s.queue.Pending() {
		if it.UserID != s.userID {
			continue
		}
		progress.ApplyLevelResult(&rec, it.ExerciseLevel, itemResult(it), progress.Incremental, time.UnixMilli(it.Timestamp))
	}
	return rec
}

// RecordExercise enqueues the item and applies it to the cached record
// optimistically. A failure to persist the queue is reported, but the
// item is already queued in memory.
func (s *remoteProgressStore) RecordExercise(ctx context.Context, cached progress.Record, item queue.Item) (progress.Record, error) {
	err := s.queue.Enqueue(ctx, item)
	rec := cached.Clone()
	progress.ApplyLevelResult(&rec, item.ExerciseLevel, itemResult(item), progress.Incremental, s.now())
	return rec, err
}

func (s *remoteProgressStore) CompleteLevel(ctx context.Context, levelID string, res progress.LevelResult) (progress.Completion, error) {
	c, err := s.gateway.CompleteLevelBatch(ctx, s.userID, levelID, res)
	if err != nil {
		return c, err
	}
	c.Progress = s.overlayPending(c.Progress)
	return c, nil
}

func (s *remoteProgressStore) Update(ctx context.Context, patch store.Document) (progress.Record, error) {
	if err := s.gateway.UpdateUserProgress(ctx, s.userID, patch); err != nil {
		return progress.Record{}, err
	}
	return s.Load(ctx)
}

func (s *remoteProgressStore) Mutate(ctx context.Context, fn func(*progress.Record) bool) (progress.Record, error) {
	rec, err := s.gateway.Mutate(ctx, s.userID, fn)
	if err != nil {
		return progress.Record{}, err
	}
	return s.overlayPending(rec), nil
}

// Flush waits out a debounced flush already in flight, so a direct write
// that follows never races the queue's read-modify-write.
func (s *remoteProgressStore) Flush(ctx context.Context) error {
	return s.queue.Drain(ctx, s.gateway.QueueWriter())
}

func itemResult(it queue.Item) progress.LevelResult {
	res := progress.LevelResult{XPGained: it.XPGained}
	if it.IsCorrect {
		res.CorrectAnswers = 1
	} else {
		res.IncorrectAnswers = 1
	}
	return res
}
