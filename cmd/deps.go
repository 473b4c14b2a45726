package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/readkode/readkode/internal/config"
	"github.com/readkode/readkode/internal/content"
	"github.com/readkode/readkode/internal/explain"
	"github.com/readkode/readkode/internal/llm"
	"github.com/readkode/readkode/internal/localstore"
	"github.com/readkode/readkode/internal/logger"
	"github.com/readkode/readkode/internal/progress"
	"github.com/readkode/readkode/internal/queue"
	"github.com/readkode/readkode/internal/ratelimit"
	"github.com/readkode/readkode/internal/store"
	"github.com/readkode/readkode/internal/tracker"
	"github.com/spf13/cobra"
)

// deps is everything a command may need, built from one Config.
type deps struct {
	cfg       *config.Config
	log       *logger.Logger
	docs      store.DocumentStore
	blobs     localstore.Store
	local     *progress.LocalAdapter
	gateway   *progress.Gateway
	queue     *queue.Queue
	tracker   *tracker.Tracker
	library   *content.Library
	explainer *explain.Service

	closers []func() error
}

type depsOptions struct {
	// logToFile keeps log lines off the terminal while the TUI runs.
	logToFile bool
}

// openDeps loads the config and wires stores, the tracker, content and the
// optional AI provider. The tracker is built but not started.
func openDeps(cmd *cobra.Command, opts depsOptions) (*deps, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg}
	if d.log, err = newLogger(cfg, opts); err != nil {
		return nil, err
	}
	d.closers = append(d.closers, func() error { d.log.Sync(); return nil })

	if err := d.openStores(ctx); err != nil {
		d.Close()
		return nil, err
	}

	d.local = progress.NewLocalAdapter(d.blobs, progress.WithLocalLogger(d.log))
	d.gateway = progress.NewGateway(d.docs, progress.WithLogger(d.log))
	d.queue = queue.New(d.blobs, queue.Options{
		Delay:        cfg.Queue.Delay,
		FlushTimeout: cfg.Queue.FlushTimeout,
		Logger:       d.log,
	})

	topts := tracker.Options{
		Identity:        tracker.Identity{Authenticated: !cfg.Guest(), UserID: cfg.UserID},
		Local:           d.local,
		ExerciseLimiter: ratelimit.NewExerciseLimiter(),
		LessonLimiter:   ratelimit.NewLessonLimiter(),
		Logger:          d.log,
	}
	if !cfg.Guest() {
		topts.Gateway = d.gateway
		topts.Queue = d.queue
	}
	if d.tracker, err = tracker.New(topts); err != nil {
		d.Close()
		return nil, err
	}

	if d.library, err = content.Builtin(); err != nil {
		d.Close()
		return nil, fmt.Errorf("load content: %w", err)
	}

	var provider llm.Provider
	if cfg.LLMEnabled {
		provider, err = llm.New(ctx, cfg.LLM, d.log)
		if err != nil {
			d.log.Warn("AI provider unavailable, using authored explanations only", "error", err)
			provider = nil
		}
	}
	d.explainer = explain.NewService(provider, d.tracker, explain.DefaultConfig(), d.log)
	return d, nil
}

func newLogger(cfg *config.Config, opts depsOptions) (*logger.Logger, error) {
	path := cfg.Log.File
	if path == "" && opts.logToFile {
		path = filepath.Join(cfg.DataDir, "readkode.log")
	}
	if path != "" {
		return logger.NewToFile(path)
	}
	return logger.New(cfg.Log.Mode)
}

func (d *deps) openStores(ctx context.Context) error {
	cfg := d.cfg

	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		d.docs = s
	case config.BackendMongo:
		s, err := store.OpenMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return fmt.Errorf("open mongo store: %w", err)
		}
		d.docs = s
	default:
		d.docs = store.NewMemoryStore()
	}
	d.closers = append(d.closers, d.docs.Close)

	switch cfg.Local.Backend {
	case config.LocalRedis:
		r, err := localstore.NewRedisStore(ctx, cfg.Local.RedisAddr, cfg.Local.RedisPassword, cfg.Local.RedisDB, cfg.Local.RedisPrefix)
		if err != nil {
			return fmt.Errorf("open redis store: %w", err)
		}
		d.blobs = r
		d.closers = append(d.closers, r.Close)
	default:
		f, err := localstore.NewFileStore(filepath.Join(cfg.DataDir, "local"))
		if err != nil {
			return fmt.Errorf("open local store: %w", err)
		}
		d.blobs = f
	}
	return nil
}

// Close releases everything in reverse order of opening.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			fmt.Fprintln(os.Stderr, "close:", err)
		}
	}
	d.closers = nil
}

// startTracker loads progress. For signed-in users it also imports guest
// progress and drains any queue left by a previous run.
func (d *deps) startTracker(ctx context.Context) error {
	if err := d.tracker.Start(ctx); err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	return nil
}

var errGuest = errors.New("this command needs a signed-in user (--user or READKODE_USER)")
