package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readkode/readkode/internal/localstore"
	"github.com/readkode/readkode/internal/queue"
	"github.com/readkode/readkode/internal/store"
)

func newTestGateway(t *testing.T) (*Gateway, *store.MemoryStore) {
	t.Helper()
	docs := store.NewMemoryStore()
	return NewGateway(docs, WithClock(func() time.Time { return day0 })), docs
}

func TestInitializeProgress_Idempotent(t *testing.T) {
	g, docs := newTestGateway(t)
	ctx := context.Background()

	rec, err := g.InitializeProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.TotalXP)
	assert.Equal(t, 1, rec.UserLevel)
	assert.Equal(t, 1, docs.Writes())

	_, err = g.InitializeProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, docs.Writes(), "second initialize must not write")
}

func TestGetUserProgress_RecomputesStaleLevel(t *testing.T) {
	g, docs := newTestGateway(t)
	ctx := context.Background()
	require.NoError(t, docs.Create(ctx, "u1", store.Document{"totalXP": int64(600), "userLevel": int64(1)}))

	rec, err := g.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, rec.UserLevel)
	assert.NotNil(t, rec.LevelStats)
}

func TestCompleteLevelBatch_OneWriteThenAlreadyCompleted(t *testing.T) {
	g, docs := newTestGateway(t)
	ctx := context.Background()
	_, err := g.InitializeProgress(ctx, "u1")
	require.NoError(t, err)
	writes := docs.Writes()

	c, err := g.CompleteLevelBatch(ctx, "u1", "1_1", LevelResult{CorrectAnswers: 9, IncorrectAnswers: 1, XPGained: 110})
	require.NoError(t, err)
	assert.Equal(t, writes+1, docs.Writes())
	assert.Equal(t, 110, c.XPGained)
	assert.True(t, c.LeveledUp)
	assert.Equal(t, 110, c.Progress.TotalXP)
	assert.Equal(t, []string{"1_1"}, c.Progress.CompletedLevels)

	again, err := g.CompleteLevelBatch(ctx, "u1", "1_1", LevelResult{CorrectAnswers: 10, XPGained: 200})
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	assert.Equal(t, 0, again.XPGained)
	assert.Equal(t, writes+1, docs.Writes())

	rec, err := g.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 110, rec.TotalXP)
	assert.Equal(t, 110, rec.LevelStats["1_1"].XP)
	assert.Equal(t, 2, rec.CurrentLevels["1"])
}

func TestSaveExerciseBatch_ThenCompleteDoesNotDoubleCount(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()
	write := g.QueueWriter()

	require.NoError(t, write(ctx, "u1", "2_3", queue.Aggregate{Correct: 5, Incorrect: 2, XPGained: 50}))
	rec, err := g.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.TotalXP)
	assert.False(t, rec.IsLevelCompleted("2_3"))

	c, err := g.CompleteLevelBatch(ctx, "u1", "2_3", LevelResult{CorrectAnswers: 8, IncorrectAnswers: 2, XPGained: 80})
	require.NoError(t, err)
	assert.Equal(t, 30, c.XPGained)
	assert.Equal(t, 80, c.NewTotalXP)
	assert.Equal(t, 10, c.Progress.Stats.TotalExercises)

	// A late queued batch for the completed level is skipped, not an error.
	sc, err := g.SaveExerciseBatch(ctx, "u1", "2_3", queue.Aggregate{Correct: 1, XPGained: 10})
	require.NoError(t, err)
	assert.True(t, sc.Skipped)
	rec, _ = g.GetUserProgress(ctx, "u1")
	assert.Equal(t, 80, rec.TotalXP)
}

func TestUpdateUserProgress_TopLevelMerge(t *testing.T) {
	g, docs := newTestGateway(t)
	ctx := context.Background()
	_, err := g.CompleteLevelBatch(ctx, "u1", "1_1", LevelResult{CorrectAnswers: 10, XPGained: 100})
	require.NoError(t, err)

	require.NoError(t, g.UpdateUserProgress(ctx, "u1", store.Document{
		"totalXP":         int64(1200),
		"aiTopicProgress": []any{"prompting"},
	}))

	doc, err := docs.Read(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), doc["userLevel"])

	rec, err := g.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1200, rec.TotalXP)
	assert.Equal(t, []string{"prompting"}, rec.AITopicProgress)
	assert.Equal(t, []string{"1_1"}, rec.CompletedLevels)
}

func TestMutate(t *testing.T) {
	g, docs := newTestGateway(t)
	ctx := context.Background()
	_, err := g.InitializeProgress(ctx, "u1")
	require.NoError(t, err)
	writes := docs.Writes()

	rec, err := g.Mutate(ctx, "u1", func(r *Record) bool {
		return r.CompleteAITopic("prompting", 20, day0) > 0
	})
	require.NoError(t, err)
	assert.Equal(t, 20, rec.TotalXP)
	assert.Equal(t, writes+1, docs.Writes())

	_, err = g.Mutate(ctx, "u1", func(r *Record) bool {
		return r.CompleteAITopic("prompting", 20, day0) > 0
	})
	require.NoError(t, err)
	assert.Equal(t, writes+1, docs.Writes(), "no-op mutation must not write")
}

func TestMigrateFromLocal(t *testing.T) {
	ctx := context.Background()
	blobs := localstore.NewMemoryStore()
	local := NewLocalAdapter(blobs, WithLocalClock(func() time.Time { return day0 }))
	_, err := local.ApplyExercise(ctx, "1_1", true, 40)
	require.NoError(t, err)

	g, _ := newTestGateway(t)
	migrated, err := g.MigrateFromLocal(ctx, "u1", local)
	require.NoError(t, err)
	assert.True(t, migrated)

	rec, err := g.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 40, rec.TotalXP)

	exists, err := local.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists, "local record is cleared after migration")
}

func TestMigrateFromLocal_NeverOverwritesRemote(t *testing.T) {
	ctx := context.Background()
	local := NewLocalAdapter(localstore.NewMemoryStore())
	_, err := local.ApplyExercise(ctx, "1_1", true, 40)
	require.NoError(t, err)

	g, _ := newTestGateway(t)
	_, err = g.CompleteLevelBatch(ctx, "u1", "3_1", LevelResult{CorrectAnswers: 10, XPGained: 300})
	require.NoError(t, err)

	migrated, err := g.MigrateFromLocal(ctx, "u1", local)
	require.NoError(t, err)
	assert.False(t, migrated)

	rec, _ := g.GetUserProgress(ctx, "u1")
	assert.Equal(t, 300, rec.TotalXP)
	exists, _ := local.Exists(ctx)
	assert.True(t, exists, "local record kept when nothing was imported")
}

func TestMigrateFromLocal_NothingToImport(t *testing.T) {
	g, docs := newTestGateway(t)
	migrated, err := g.MigrateFromLocal(context.Background(), "u1", NewLocalAdapter(localstore.NewMemoryStore()))
	require.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, 0, docs.Writes())
}

func TestResetProgress(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()
	_, err := g.CompleteLevelBatch(ctx, "u1", "1_1", LevelResult{CorrectAnswers: 10, XPGained: 100})
	require.NoError(t, err)

	rec, err := g.ResetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.TotalXP)
	got, _ := g.GetUserProgress(ctx, "u1")
	assert.Empty(t, got.CompletedLevels)
}

type failingDocs struct{ store.DocumentStore }

func (failingDocs) Read(context.Context, string) (store.Document, error) {
	return nil, errors.New("unavailable: connection refused")
}

func TestGateway_ReadErrorPropagates(t *testing.T) {
	g := NewGateway(failingDocs{store.NewMemoryStore()})
	_, err := g.CompleteLevelBatch(context.Background(), "u1", "1_1", LevelResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSaveExerciseBatch_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.SaveExerciseBatch(ctx, "u1", "1_1", queue.Aggregate{Correct: 1, XPGained: 5})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rec, err := g.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, rec.TotalXP)
	assert.Equal(t, 20, rec.Stats.CorrectAnswers)
}
