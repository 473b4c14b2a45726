package tracker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readkode/readkode/internal/apperr"
	"github.com/readkode/readkode/internal/localstore"
	"github.com/readkode/readkode/internal/progress"
	"github.com/readkode/readkode/internal/queue"
	"github.com/readkode/readkode/internal/ratelimit"
	"github.com/readkode/readkode/internal/store"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func fastRetry() apperr.RetryConfig {
	return apperr.RetryConfig{MaxAttempts: 3, Backoff: time.Millisecond}
}

func newGuest(t *testing.T, blobs localstore.Store) *Tracker {
	t.Helper()
	tr, err := New(Options{
		Local: progress.NewLocalAdapter(blobs, progress.WithLocalClock(clock)),
		Clock: clock,
		Retry: fastRetry(),
	})
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	return tr
}

type remoteEnv struct {
	docs    *store.MemoryStore
	blobs   *localstore.MemoryStore
	gateway *progress.Gateway
	queue   *queue.Queue
}

func newRemoteEnv() *remoteEnv {
	docs := store.NewMemoryStore()
	blobs := localstore.NewMemoryStore()
	return &remoteEnv{
		docs:    docs,
		blobs:   blobs,
		gateway: progress.NewGateway(docs, progress.WithClock(clock)),
		queue:   queue.New(blobs, queue.Options{Delay: time.Hour}),
	}
}

func (e *remoteEnv) tracker(t *testing.T, extra func(*Options)) *Tracker {
	t.Helper()
	opts := Options{
		Identity: Identity{Authenticated: true, UserID: "u1"},
		Gateway:  e.gateway,
		Queue:    e.queue,
		Clock:    clock,
		Retry:    fastRetry(),
	}
	if extra != nil {
		extra(&opts)
	}
	tr, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(e.queue.Stop)
	return tr
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{Identity: Identity{Authenticated: true}})
	assert.Error(t, err)
	_, err = New(Options{Identity: Identity{Authenticated: true, UserID: "u"}})
	assert.Error(t, err)
}

func TestGuest_EndToEnd(t *testing.T) {
	ctx := context.Background()
	blobs := localstore.NewMemoryStore()
	seed := progress.NewRecord(now)
	seed.TotalXP = 90
	require.NoError(t, progress.NewLocalAdapter(blobs).Save(ctx, seed))

	tr := newGuest(t, blobs)
	assert.True(t, tr.Ready())
	assert.Equal(t, 90, tr.Stats().TotalXP)

	res, err := tr.CompleteExercise(ctx, "1_1", true, 10)
	require.NoError(t, err)
	assert.Equal(t, 100, res.NewTotalXP)
	assert.Equal(t, 2, res.NewUserLevel)
	assert.True(t, res.LeveledUp)

	stats := tr.Stats()
	assert.Equal(t, 100, stats.TotalXP)
	assert.Equal(t, 2, stats.UserLevel)
	assert.Equal(t, 1, stats.CorrectAnswers)

	c, err := tr.CompleteLevelWithBatch(ctx, "1_1", progress.LevelResult{CorrectAnswers: 1, XPGained: 10})
	require.NoError(t, err)
	assert.False(t, c.AlreadyCompleted)
	assert.True(t, tr.IsLevelCompleted("1_1"))

	again, err := tr.CompleteLevelWithBatch(ctx, "1_1", progress.LevelResult{CorrectAnswers: 1, XPGained: 10})
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	assert.Equal(t, 0, again.XPGained)
	assert.Equal(t, 100, tr.Stats().TotalXP)

	res, err = tr.CompleteExercise(ctx, "1_1", true, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.XPGained)
	assert.Equal(t, 100, res.NewTotalXP)

	// Persisted, not just cached.
	reloaded := newGuest(t, blobs)
	assert.Equal(t, 100, reloaded.Stats().TotalXP)
	assert.True(t, reloaded.IsLevelCompleted("1_1"))
}

func TestGuest_IncorrectAnswerEarnsNoXP(t *testing.T) {
	tr := newGuest(t, localstore.NewMemoryStore())
	res, err := tr.CompleteExercise(context.Background(), "1_1", false, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.XPGained)
	assert.Equal(t, 1, tr.Stats().IncorrectAnswers)
}

func TestRemote_QueuesThenCompletesOnce(t *testing.T) {
	ctx := context.Background()
	env := newRemoteEnv()
	tr := env.tracker(t, nil)

	for i := 0; i < 10; i++ {
		_, err := tr.CompleteExercise(ctx, "2_3", i < 8, 10)
		require.NoError(t, err)
	}
	assert.Equal(t, 10, env.queue.Size())
	assert.Equal(t, 80, tr.Stats().TotalXP, "optimistic before any remote write")

	remote, err := env.gateway.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, remote.TotalXP)

	c, err := tr.CompleteLevelWithBatch(ctx, "2_3", progress.LevelResult{CorrectAnswers: 8, IncorrectAnswers: 2, XPGained: 80})
	require.NoError(t, err)
	assert.Equal(t, 0, env.queue.Size())
	assert.Equal(t, 80, c.NewTotalXP)
	assert.Equal(t, 0, c.XPGained, "queued answers were already credited")

	remote, err = env.gateway.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 80, remote.TotalXP)
	assert.Equal(t, progress.Stats{TotalExercises: 10, CorrectAnswers: 8, IncorrectAnswers: 2}, remote.Stats)
	assert.True(t, remote.IsLevelCompleted("2_3"))
	assert.Equal(t, 80, tr.Stats().TotalXP)
}

func TestRemote_StartDrainsRecoveredQueue(t *testing.T) {
	ctx := context.Background()
	env := newRemoteEnv()

	// A previous run queued answers and died before flushing.
	prev := queue.New(env.blobs, queue.Options{Delay: time.Hour})
	for i := 0; i < 3; i++ {
		require.NoError(t, prev.Enqueue(ctx, queue.Item{UserID: "u1", ExerciseLevel: "1_4", IsCorrect: true, XPGained: 10}))
	}
	prev.Stop()

	tr := env.tracker(t, nil)
	assert.True(t, tr.Ready())
	assert.Equal(t, 0, env.queue.Size())
	assert.Equal(t, 30, tr.Stats().TotalXP)

	remote, err := env.gateway.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 30, remote.TotalXP)
}

func TestRemote_StartMigratesGuestRecord(t *testing.T) {
	ctx := context.Background()
	env := newRemoteEnv()
	guestBlobs := localstore.NewMemoryStore()
	local := progress.NewLocalAdapter(guestBlobs, progress.WithLocalClock(clock))
	_, err := local.ApplyExercise(ctx, "1_1", true, 40)
	require.NoError(t, err)

	tr := env.tracker(t, func(o *Options) { o.Local = local })
	assert.Equal(t, 40, tr.Stats().TotalXP)
	exists, err := local.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

type failingBlobs struct{ *localstore.MemoryStore }

func (failingBlobs) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestRemote_QueuePersistFailureDoesNotFailCall(t *testing.T) {
	env := newRemoteEnv()
	env.queue = queue.New(failingBlobs{localstore.NewMemoryStore()}, queue.Options{Delay: time.Hour})
	tr := env.tracker(t, nil)

	res, err := tr.CompleteExercise(context.Background(), "1_1", true, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, res.NewTotalXP)
	assert.Equal(t, 1, env.queue.Size())
}

func TestCompleteExercise_RateLimited(t *testing.T) {
	blobs := localstore.NewMemoryStore()
	tr, err := New(Options{
		Local:           progress.NewLocalAdapter(blobs),
		ExerciseLimiter: ratelimit.New(2, time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	ctx := context.Background()

	_, err = tr.CompleteExercise(ctx, "1_1", true, 10)
	require.NoError(t, err)
	_, err = tr.CompleteExercise(ctx, "1_1", true, 10)
	require.NoError(t, err)

	_, err = tr.CompleteExercise(ctx, "1_1", true, 10)
	require.Error(t, err)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindRateLimit, ae.Kind)
	assert.Contains(t, ae.UserMessage(), "Please wait")
	assert.Equal(t, 20, tr.Stats().TotalXP, "rejected call is not applied")
}

type countingDocs struct {
	store.DocumentStore
	updates atomic.Int32
	err     error
}

func (d *countingDocs) Update(ctx context.Context, key string, patch store.Document) error {
	d.updates.Add(1)
	if d.err != nil {
		return d.err
	}
	return d.DocumentStore.Update(ctx, key, patch)
}

func TestCompleteLevelWithBatch_NonRetryableFailsFast(t *testing.T) {
	docs := &countingDocs{DocumentStore: store.NewMemoryStore(), err: errors.New("permission denied")}
	env := newRemoteEnv()
	env.gateway = progress.NewGateway(docs, progress.WithClock(clock))
	tr := env.tracker(t, nil)

	_, err := tr.CompleteLevelWithBatch(context.Background(), "1_1", progress.LevelResult{CorrectAnswers: 10, XPGained: 100})
	require.Error(t, err)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindPermission, ae.Kind)
	assert.Equal(t, apperr.UserMessage(apperr.KindPermission), ae.UserMessage())
	assert.Equal(t, int32(1), docs.updates.Load())
}

func TestCompleteLevelWithBatch_RetriesNetworkErrors(t *testing.T) {
	docs := &countingDocs{DocumentStore: store.NewMemoryStore(), err: errors.New("network unavailable")}
	env := newRemoteEnv()
	env.gateway = progress.NewGateway(docs, progress.WithClock(clock))
	tr := env.tracker(t, nil)

	_, err := tr.CompleteLevelWithBatch(context.Background(), "1_1", progress.LevelResult{CorrectAnswers: 10, XPGained: 100})
	require.Error(t, err)
	assert.Equal(t, int32(3), docs.updates.Load())
	assert.Equal(t, apperr.KindNetwork, apperr.Classify(err))
}

func TestSupplementalOperations(t *testing.T) {
	ctx := context.Background()
	env := newRemoteEnv()
	tr := env.tracker(t, nil)

	n, err := tr.CompleteAITopic(ctx, "prompting", 15)
	require.NoError(t, err)
	assert.Equal(t, 15, n)
	n, err = tr.CompleteAITopic(ctx, "prompting", 15)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = tr.CompleteLessonExercise(ctx, "go", "ch1", "ex1", true, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = tr.CollectXPNode(ctx, "node-1", 5)
	require.NoError(t, err)
	_, err = tr.CompleteBoss(ctx, "boss-1", 50)
	require.NoError(t, err)
	_, err = tr.RecordChallenge(ctx, 20)
	require.NoError(t, err)
	require.NoError(t, tr.RecordDailyActivity(ctx, progress.AI, 2))
	assert.Error(t, tr.RecordDailyActivity(ctx, "juggling", 1))

	remote, err := env.gateway.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, remote.TotalXP)
	assert.Equal(t, 100, tr.Stats().TotalXP)
	day := remote.DailyActivity[progress.Day(now)]
	assert.Equal(t, day.Training+day.Lessons+day.AI+day.Challenges, day.Total)
	assert.Equal(t, 3, day.AI)
}

func TestUpdateProgress(t *testing.T) {
	ctx := context.Background()
	tr := newGuest(t, localstore.NewMemoryStore())

	rec, err := tr.UpdateProgress(ctx, store.Document{"totalXP": int64(2100)})
	require.NoError(t, err)
	assert.Equal(t, 6, rec.UserLevel)
	assert.Equal(t, 6, tr.Stats().UserLevel)
	assert.Equal(t, 2100, tr.ProgressToNextLevel().CurrentXP)
}

func TestClose_FlushesQueue(t *testing.T) {
	ctx := context.Background()
	env := newRemoteEnv()
	tr := env.tracker(t, nil)

	_, err := tr.CompleteExercise(ctx, "1_1", true, 10)
	require.NoError(t, err)
	require.NoError(t, tr.Close(ctx))
	assert.Equal(t, 0, env.queue.Size())

	remote, err := env.gateway.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, remote.TotalXP)
}

// gatedDocs blocks the first Update until release is closed.
type gatedDocs struct {
	store.DocumentStore
	entered chan struct{}
	release chan struct{}
	once    atomic.Bool
}

func (d *gatedDocs) Update(ctx context.Context, key string, patch store.Document) error {
	if d.once.CompareAndSwap(false, true) {
		close(d.entered)
		<-d.release
	}
	return d.DocumentStore.Update(ctx, key, patch)
}

func TestCompleteLevelWithBatch_WaitsForInFlightFlush(t *testing.T) {
	ctx := context.Background()
	docs := &gatedDocs{DocumentStore: store.NewMemoryStore(), entered: make(chan struct{}), release: make(chan struct{})}
	env := newRemoteEnv()
	env.gateway = progress.NewGateway(docs, progress.WithClock(clock))
	tr := env.tracker(t, nil)

	_, err := tr.CompleteExercise(ctx, "1_1", true, 10)
	require.NoError(t, err)

	// The debounced flush is mid-write when the block finishes.
	flushErr := make(chan error, 1)
	go func() { flushErr <- env.queue.Flush(ctx, nil) }()
	<-docs.entered

	type outcome struct {
		c   progress.Completion
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		c, err := tr.CompleteLevelWithBatch(ctx, "1_1", progress.LevelResult{CorrectAnswers: 10, XPGained: 100})
		done <- outcome{c, err}
	}()

	time.Sleep(20 * time.Millisecond)
	close(docs.release)
	require.NoError(t, <-flushErr)
	first := <-done
	require.NoError(t, first.err)
	assert.False(t, first.c.AlreadyCompleted)

	remote, err := env.gateway.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, remote.IsLevelCompleted("1_1"))
	assert.Equal(t, 100, remote.TotalXP)

	again, err := tr.CompleteLevelWithBatch(ctx, "1_1", progress.LevelResult{CorrectAnswers: 10, XPGained: 100})
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	assert.Equal(t, 100, tr.Stats().TotalXP)
}

// flakyDocs fails every Read while down is set.
type flakyDocs struct {
	store.DocumentStore
	down atomic.Bool
}

func (d *flakyDocs) Read(ctx context.Context, key string) (store.Document, error) {
	if d.down.Load() {
		return nil, errors.New("network unavailable")
	}
	return d.DocumentStore.Read(ctx, key)
}

func TestStart_RetryAfterFailureCreditsRecoveredItemsOnce(t *testing.T) {
	ctx := context.Background()
	env := newRemoteEnv()
	docs := &flakyDocs{DocumentStore: store.NewMemoryStore()}
	env.gateway = progress.NewGateway(docs, progress.WithClock(clock))

	prev := queue.New(env.blobs, queue.Options{Delay: time.Hour})
	require.NoError(t, prev.Enqueue(ctx, queue.Item{UserID: "u1", ExerciseLevel: "1_1", IsCorrect: true, XPGained: 10}))
	prev.Stop()

	tr, err := New(Options{
		Identity: Identity{Authenticated: true, UserID: "u1"},
		Gateway:  env.gateway,
		Queue:    env.queue,
		Clock:    clock,
		Retry:    fastRetry(),
	})
	require.NoError(t, err)
	t.Cleanup(env.queue.Stop)

	docs.down.Store(true)
	require.Error(t, tr.Start(ctx))
	assert.False(t, tr.Ready())
	assert.Equal(t, 1, env.queue.Size())

	docs.down.Store(false)
	require.NoError(t, tr.Start(ctx))
	assert.Equal(t, 0, env.queue.Size())

	remote, err := env.gateway.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, remote.TotalXP)
	assert.Equal(t, 1, remote.Stats.CorrectAnswers)
	assert.Equal(t, 10, tr.Stats().TotalXP)
}
