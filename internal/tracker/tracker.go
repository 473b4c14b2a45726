// Package tracker is the progress facade the hosts talk to. It picks guest
// or remote persistence from the identity, rate limits writes, keeps an
// in-memory copy of the record and drains the completion queue.
package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/readkode/readkode/internal/apperr"
	"github.com/readkode/readkode/internal/leveling"
	"github.com/readkode/readkode/internal/logger"
	"github.com/readkode/readkode/internal/progress"
	"github.com/readkode/readkode/internal/queue"
	"github.com/readkode/readkode/internal/ratelimit"
	"github.com/readkode/readkode/internal/store"
)

// DefaultCloseTimeout bounds the teardown flush.
const DefaultCloseTimeout = 2 * time.Second

// Identity is who is playing.
type Identity struct {
	Authenticated bool
	UserID        string
}

// Key returns the identity used for rate limiting and queue items.
func (i Identity) Key() string {
	if i.UserID == "" {
		return "guest"
	}
	return i.UserID
}

// Options wires a Tracker. Authenticated identities need Gateway and Queue;
// guests need Local. Local is also used for migration when signed in.
type Options struct {
	Identity        Identity
	Gateway         *progress.Gateway
	Local           *progress.LocalAdapter
	Queue           *queue.Queue
	ExerciseLimiter *ratelimit.Limiter
	LessonLimiter   *ratelimit.Limiter
	Logger          *logger.Logger
	Retry           apperr.RetryConfig
	Clock           func() time.Time
	CloseTimeout    time.Duration
}

// Stats is the summary shown on the home and stats screens.
type Stats struct {
	TotalXP          int     `json:"totalXP"`
	UserLevel        int     `json:"userLevel"`
	CompletedLevels  int     `json:"completedLevels"`
	CurrentStreak    int     `json:"currentStreak"`
	LongestStreak    int     `json:"longestStreak"`
	TotalExercises   int     `json:"totalExercises"`
	CorrectAnswers   int     `json:"correctAnswers"`
	IncorrectAnswers int     `json:"incorrectAnswers"`
	Accuracy         float64 `json:"accuracy"`
}

// Tracker is the progress facade.
type Tracker struct {
	opts  Options
	store ProgressStore
	log   *logger.Logger
	now   func() time.Time

	mu     sync.RWMutex
	record progress.Record
	ready  atomic.Bool
}

// New validates opts and builds a Tracker. Call Start before use.
func New(opts Options) (*Tracker, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ExerciseLimiter == nil {
		opts.ExerciseLimiter = ratelimit.NewExerciseLimiter()
	}
	if opts.LessonLimiter == nil {
		opts.LessonLimiter = ratelimit.NewLessonLimiter()
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = apperr.DefaultRetryConfig()
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = DefaultCloseTimeout
	}

	t := &Tracker{
		opts: opts,
		log:  opts.Logger.With("user_id", opts.Identity.Key(), "authenticated", opts.Identity.Authenticated),
		now:  opts.Clock,
	}

	switch {
	case opts.Identity.Authenticated:
		if opts.Identity.UserID == "" {
			return nil, errors.New("tracker: authenticated identity needs a user id")
		}
		if opts.Gateway == nil || opts.Queue == nil {
			return nil, errors.New("tracker: authenticated identity needs a gateway and a queue")
		}
		t.store = &remoteProgressStore{
			userID:  opts.Identity.UserID,
			gateway: opts.Gateway,
			queue:   opts.Queue,
			now:     opts.Clock,
		}
	default:
		if opts.Local == nil {
			return nil, errors.New("tracker: guest identity needs a local adapter")
		}
		t.store = &localProgressStore{local: opts.Local}
	}
	return t, nil
}

// Start migrates guest data, drains any queue left by a previous run and
// loads the record. Ready reports true once it returns nil.
func (t *Tracker) Start(ctx context.Context) error {
	if t.opts.Identity.Authenticated {
		if t.opts.Local != nil {
			migrated, err := t.opts.Gateway.MigrateFromLocal(ctx, t.opts.Identity.UserID, t.opts.Local)
			if err != nil {
				t.log.Warn("guest migration failed", "error", err, "kind", apperr.Classify(err))
			} else if migrated {
				t.log.Info("guest progress imported")
			}
		}

		t.opts.Queue.SetWriter(t.opts.Gateway.QueueWriter())
		recovered, err := t.opts.Queue.Load(ctx)
		if err != nil {
			t.log.Warn("load completion queue", "error", err)
		}
		if recovered > 0 {
			t.log.Info("draining recovered completion queue", "items", recovered)
			if err := t.store.Flush(ctx); err != nil {
				t.log.Warn("recovered queue flush failed, items kept", "error", err, "kind", apperr.Classify(err))
			}
		}
	}

	rec, err := t.store.Load(ctx)
	if err != nil {
		return apperr.Wrap("load_progress", err)
	}
	t.setRecord(rec)
	t.ready.Store(true)
	return nil
}

// Ready reports whether Start has completed.
func (t *Tracker) Ready() bool { return t.ready.Load() }

// Identity returns the tracker's identity.
func (t *Tracker) Identity() Identity { return t.opts.Identity }

func (t *Tracker) setRecord(rec progress.Record) {
	rec.Normalize()
	t.mu.Lock()
	t.record = rec
	t.mu.Unlock()
}

// Record returns a copy of the cached record.
func (t *Tracker) Record() progress.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.record.Clone()
}

// IsLevelCompleted reports whether levelID is completed.
func (t *Tracker) IsLevelCompleted(levelID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.record.IsLevelCompleted(levelID)
}

// Stats summarizes the record. The level is always derived from XP.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r := t.record
	s := Stats{
		TotalXP:          r.TotalXP,
		UserLevel:        leveling.CalculateLevel(r.TotalXP),
		CompletedLevels:  len(r.CompletedLevels),
		CurrentStreak:    r.Streak.Current,
		LongestStreak:    r.Streak.Longest,
		TotalExercises:   r.Stats.TotalExercises,
		CorrectAnswers:   r.Stats.CorrectAnswers,
		IncorrectAnswers: r.Stats.IncorrectAnswers,
	}
	if answered := r.Stats.CorrectAnswers + r.Stats.IncorrectAnswers; answered > 0 {
		s.Accuracy = float64(r.Stats.CorrectAnswers) / float64(answered)
	}
	return s
}

// ProgressToNextLevel reports progress within the current level.
func (t *Tracker) ProgressToNextLevel() leveling.Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return leveling.ProgressToNextLevel(t.record.TotalXP)
}

func (t *Tracker) checkLimit(l *ratelimit.Limiter, op string) error {
	key := t.opts.Identity.Key()
	if l.Check(key) {
		return nil
	}
	err := &apperr.RateLimitError{Op: op, Wait: l.TimeUntilReset(key)}
	t.log.Warn("rate limited", "op", op, "wait", err.Wait)
	return &apperr.Error{Kind: apperr.KindRateLimit, Op: op, Err: err}
}

// CompleteExercise records one answered exercise and returns the progress
// the user should see right away. Completed levels earn nothing. For
// signed-in users the write is queued, and a queue persistence failure is
// logged rather than returned.
func (t *Tracker) CompleteExercise(ctx context.Context, levelID string, isCorrect bool, xp int) (leveling.Result, error) {
	if err := t.checkLimit(t.opts.ExerciseLimiter, "complete_exercise"); err != nil {
		return leveling.Result{}, err
	}
	if !isCorrect {
		xp = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	current := leveling.Current{TotalXP: t.record.TotalXP}
	if t.record.IsLevelCompleted(levelID) {
		return leveling.Optimistic(current, leveling.Event{IsCorrect: isCorrect}), nil
	}
	result := leveling.Optimistic(current, leveling.Event{IsCorrect: isCorrect, XPGained: xp})

	item := queue.Item{
		UserID:        t.opts.Identity.Key(),
		ExerciseLevel: levelID,
		IsCorrect:     isCorrect,
		XPGained:      result.XPGained,
		Timestamp:     t.now().UnixMilli(),
	}
	rec, err := t.store.RecordExercise(ctx, t.record, item)
	if err != nil {
		if !t.opts.Identity.Authenticated {
			t.log.Error("save exercise", "level_id", levelID, "error", err, "kind", apperr.Classify(err))
			return leveling.Result{}, apperr.Wrap("complete_exercise", err)
		}
		t.log.Warn("persist completion queue", "level_id", levelID, "error", err)
	}
	rec.Normalize()
	t.record = rec
	return result, nil
}

// CompleteLevelWithBatch pushes queued exercises, then writes the finished
// block. Errors carry a user-facing message via *apperr.Error.
func (t *Tracker) CompleteLevelWithBatch(ctx context.Context, levelID string, res progress.LevelResult) (progress.Completion, error) {
	if err := t.store.Flush(ctx); err != nil {
		t.log.Warn("flush before level completion", "level_id", levelID, "error", err, "kind", apperr.Classify(err))
	}

	var c progress.Completion
	err := apperr.Retry(ctx, t.opts.Retry, func(ctx context.Context) error {
		var err error
		c, err = t.store.CompleteLevel(ctx, levelID, res)
		return err
	})
	if err != nil {
		wrapped := apperr.Wrap("complete_level", err)
		t.log.Error("complete level", "level_id", levelID, "error", err, "kind", apperr.Classify(wrapped))
		return progress.Completion{}, wrapped
	}

	t.setRecord(c.Progress)
	return c, nil
}

// UpdateProgress merges top-level fields into the record.
func (t *Tracker) UpdateProgress(ctx context.Context, patch store.Document) (progress.Record, error) {
	rec, err := t.store.Update(ctx, patch)
	if err != nil {
		return progress.Record{}, t.fail("update_progress", err)
	}
	t.setRecord(rec)
	return rec.Clone(), nil
}

// RecordDailyActivity adds n to today's category count.
func (t *Tracker) RecordDailyActivity(ctx context.Context, category progress.Category, n int) error {
	if !category.Valid() {
		return apperr.Wrap("record_daily_activity", errors.New("unknown activity category "+string(category)))
	}
	if n <= 0 {
		return nil
	}
	_, err := t.mutate(ctx, "record_daily_activity", func(r *progress.Record) bool {
		r.AddDailyActivity(category, n, t.now())
		return true
	})
	return err
}

// CompleteLessonExercise credits a lesson exercise once per exercise id.
// Returns the XP credited.
func (t *Tracker) CompleteLessonExercise(ctx context.Context, language, chapterID, exerciseID string, chapterDone bool, xp int) (int, error) {
	if err := t.checkLimit(t.opts.LessonLimiter, "complete_lesson_exercise"); err != nil {
		return 0, err
	}
	var gained int
	_, err := t.mutate(ctx, "complete_lesson_exercise", func(r *progress.Record) bool {
		gained = r.CompleteLessonExercise(language, chapterID, exerciseID, chapterDone, xp, t.now())
		return true
	})
	return gained, err
}

// CompleteAITopic credits an AI-literacy topic once.
func (t *Tracker) CompleteAITopic(ctx context.Context, topicID string, xp int) (int, error) {
	return t.credit(ctx, "complete_ai_topic", func(r *progress.Record) int {
		return r.CompleteAITopic(topicID, xp, t.now())
	})
}

// CollectXPNode credits an XP node once.
func (t *Tracker) CollectXPNode(ctx context.Context, nodeID string, xp int) (int, error) {
	return t.credit(ctx, "collect_xp_node", func(r *progress.Record) int {
		return r.CollectXPNode(nodeID, xp, t.now())
	})
}

// CompleteBoss credits a boss level once.
func (t *Tracker) CompleteBoss(ctx context.Context, bossID string, xp int) (int, error) {
	return t.credit(ctx, "complete_boss", func(r *progress.Record) int {
		return r.CompleteBoss(bossID, xp, t.now())
	})
}

// RecordChallenge credits a finished challenge.
func (t *Tracker) RecordChallenge(ctx context.Context, xp int) (int, error) {
	return t.credit(ctx, "record_challenge", func(r *progress.Record) int {
		return r.RecordChallenge(xp, t.now())
	})
}

// credit runs an idempotent set-style completion. Nothing is written when
// fn credits nothing.
func (t *Tracker) credit(ctx context.Context, op string, fn func(*progress.Record) int) (int, error) {
	if err := t.checkLimit(t.opts.ExerciseLimiter, op); err != nil {
		return 0, err
	}
	var gained int
	_, err := t.mutate(ctx, op, func(r *progress.Record) bool {
		before := r.UpdatedAt
		gained = fn(r)
		return gained > 0 || !r.UpdatedAt.Equal(before)
	})
	return gained, err
}

func (t *Tracker) mutate(ctx context.Context, op string, fn func(*progress.Record) bool) (progress.Record, error) {
	rec, err := t.store.Mutate(ctx, fn)
	if err != nil {
		return progress.Record{}, t.fail(op, err)
	}
	t.setRecord(rec)
	return rec, nil
}

func (t *Tracker) fail(op string, err error) error {
	wrapped := apperr.Wrap(op, err)
	t.log.Error(op, "error", err, "kind", apperr.Classify(wrapped))
	return wrapped
}

// Refresh reloads the record from its store.
func (t *Tracker) Refresh(ctx context.Context) error {
	rec, err := t.store.Load(ctx)
	if err != nil {
		return t.fail("refresh_progress", err)
	}
	t.setRecord(rec)
	return nil
}

// Flush pushes queued completions now.
func (t *Tracker) Flush(ctx context.Context) error {
	if err := t.store.Flush(ctx); err != nil {
		return t.fail("flush", err)
	}
	return nil
}

// Close stops the debounce timer and makes one bounded attempt to flush.
// Anything left stays in the durable queue for the next start.
func (t *Tracker) Close(ctx context.Context) error {
	if t.opts.Queue != nil {
		t.opts.Queue.Stop()
	}
	ctx, cancel := context.WithTimeout(ctx, t.opts.CloseTimeout)
	defer cancel()
	if err := t.store.Flush(ctx); err != nil {
		t.log.Warn("teardown flush incomplete, queue kept for next start", "error", err)
		return err
	}
	return nil
}
