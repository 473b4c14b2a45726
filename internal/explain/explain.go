// Package explain produces walkthroughs for exercises whose content pack
// ships without one.
package explain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/readkode/readkode/internal/exercise"
	"github.com/readkode/readkode/internal/llm"
	"github.com/readkode/readkode/internal/logger"
	"github.com/readkode/readkode/internal/progress"
)

// Source says where an explanation came from.
type Source string

const (
	FromContent Source = "content"
	FromAI      Source = "ai"
)

// Explanation is what the learner sees after expanding the explanation.
type Explanation struct {
	Summary  string
	Steps    []string
	KeyLines []int
	Source   Source
}

// Config tunes generation.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the settings used by the CLI and TUI.
func DefaultConfig() Config {
	return Config{MaxTokens: 1024, Temperature: 0.2}
}

// ActivityRecorder is told when the learner reads an AI explanation.
type ActivityRecorder interface {
	RecordDailyActivity(ctx context.Context, category progress.Category, n int) error
}

// Service explains exercises, caching generated explanations by
// exercise ID for the life of the process.
type Service struct {
	provider llm.Provider
	recorder ActivityRecorder
	cfg      Config
	log      *logger.Logger

	mu    sync.Mutex
	cache map[string]Explanation
}

// NewService creates a Service. provider may be nil, in which case only
// authored explanations are available. recorder may be nil.
func NewService(provider llm.Provider, recorder ActivityRecorder, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		provider: provider,
		recorder: recorder,
		cfg:      cfg,
		log:      log,
		cache:    make(map[string]Explanation),
	}
}

// ErrNoProvider is returned when an exercise needs a generated
// explanation and no provider is configured.
var ErrNoProvider = errors.New("no AI provider configured")

// Explain returns the authored explanation when the exercise has one,
// otherwise a generated one. Each generated explanation read counts as
// one unit of ai activity.
func (s *Service) Explain(ctx context.Context, ex exercise.Exercise) (Explanation, error) {
	if ex.Explanation != "" {
		return Explanation{Summary: ex.Explanation, KeyLines: ex.HighlightedLines, Source: FromContent}, nil
	}

	s.mu.Lock()
	cached, ok := s.cache[ex.ID]
	s.mu.Unlock()
	if !ok {
		var err error
		cached, err = s.generate(ctx, ex)
		if err != nil {
			return Explanation{}, err
		}
		s.mu.Lock()
		s.cache[ex.ID] = cached
		s.mu.Unlock()
	}

	if s.recorder != nil {
		if err := s.recorder.RecordDailyActivity(ctx, progress.AI, 1); err != nil {
			s.log.Warn("record ai activity failed", "exercise", ex.ID, "error", err)
		}
	}
	return cached, nil
}

// Fill returns ex with Explanation and HighlightedLines set.
func (s *Service) Fill(ctx context.Context, ex exercise.Exercise) (exercise.Exercise, error) {
	e, err := s.Explain(ctx, ex)
	if err != nil {
		return ex, err
	}
	ex.Explanation = e.Text()
	ex.HighlightedLines = e.KeyLines
	return ex, nil
}

// Text renders the summary followed by numbered steps.
func (e Explanation) Text() string {
	out := e.Summary
	for i, step := range e.Steps {
		out += fmt.Sprintf("\n%d. %s", i+1, step)
	}
	return out
}

type output struct {
	Summary  string   `json:"summary"`
	Steps    []string `json:"steps"`
	KeyLines []int    `json:"key_lines"`
}

func (s *Service) generate(ctx context.Context, ex exercise.Exercise) (Explanation, error) {
	if s.provider == nil {
		return Explanation{}, ErrNoProvider
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		Purpose:     "explain",
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(ex)}},
		Schema:      Schema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return Explanation{}, fmt.Errorf("explain %s: %w", ex.ID, err)
	}

	var out output
	if err := resp.Decode(&out); err != nil {
		return Explanation{}, fmt.Errorf("explain %s: %w", ex.ID, err)
	}

	// Models sometimes cite lines that don't exist.
	n := len(ex.CodeLines())
	var lines []int
	for _, l := range out.KeyLines {
		if l >= 1 && l <= n {
			lines = append(lines, l)
		}
	}
	return Explanation{Summary: out.Summary, Steps: out.Steps, KeyLines: lines, Source: FromAI}, nil
}
