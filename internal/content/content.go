// Package content loads the exercise packs that levels are played from.
// Packs are JSON documents checked against an embedded JSON Schema and a
// set of structural rules before use.
package content

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"

	"github.com/readkode/readkode/internal/exercise"
	"github.com/readkode/readkode/internal/progress"
)

//go:embed schema.json
var schemaJSON []byte

//go:embed packs/*.json
var builtin embed.FS

// Pack is one versioned collection of levels.
type Pack struct {
	Version string  `json:"version"`
	Title   string  `json:"title"`
	Levels  []Level `json:"levels"`
}

// Level is a block of exercises played in one sitting.
type Level struct {
	ID         string              `json:"id"`
	Difficulty int                 `json:"difficulty"`
	Index      int                 `json:"index"`
	Title      string              `json:"title"`
	Exercises  []exercise.Exercise `json:"exercises"`
}

// Parse validates and decodes a pack.
func Parse(data []byte) (*Pack, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse pack: %w", err)
	}
	sch, err := packSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("pack does not match schema: %w", err)
	}

	var p Pack
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pack: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func packSchema() (*jsonschema.Schema, error) {
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("load pack schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", def); err != nil {
		return nil, fmt.Errorf("add pack schema: %w", err)
	}
	return c.Compile("schema.json")
}

// validate checks the rules a schema can't express.
func (p *Pack) validate() error {
	var errs []string

	if !semver.IsValid(canonicalVersion(p.Version)) {
		errs = append(errs, fmt.Sprintf("version %q is not semver", p.Version))
	}

	levelIDs := make(map[string]bool, len(p.Levels))
	exerciseIDs := make(map[string]bool)
	for _, l := range p.Levels {
		if want := progress.LevelID(strconv.Itoa(l.Difficulty), l.Index); l.ID != want {
			errs = append(errs, fmt.Sprintf("level %q should be named %q", l.ID, want))
		}
		if levelIDs[l.ID] {
			errs = append(errs, fmt.Sprintf("duplicate level ID: %q", l.ID))
		}
		levelIDs[l.ID] = true
		if len(l.Exercises) > exercise.BlockSize {
			errs = append(errs, fmt.Sprintf("level %q has %d exercises, max %d", l.ID, len(l.Exercises), exercise.BlockSize))
		}

		for _, e := range l.Exercises {
			if exerciseIDs[e.ID] {
				errs = append(errs, fmt.Sprintf("duplicate exercise ID: %q", e.ID))
			}
			exerciseIDs[e.ID] = true
			if msg := checkAnswer(e); msg != "" {
				errs = append(errs, fmt.Sprintf("exercise %q: %s", e.ID, msg))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid pack:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func checkAnswer(e exercise.Exercise) string {
	switch e.InputType {
	case exercise.MultipleChoice:
		if len(e.Options) < 2 {
			return "multiple choice needs at least two options"
		}
		i, err := strconv.Atoi(string(e.CorrectAnswer))
		if err != nil || i < 0 || i >= len(e.Options) {
			return fmt.Sprintf("correct answer %q is not an option index", e.CorrectAnswer)
		}
	case exercise.LineSelect:
		lines := len(e.CodeLines())
		i, err := strconv.Atoi(string(e.CorrectAnswer))
		if err != nil || i < 1 || i > lines {
			return fmt.Sprintf("correct answer %q is not a line of the code", e.CorrectAnswer)
		}
	case exercise.Text:
		if strings.TrimSpace(string(e.CorrectAnswer)) == "" {
			return "text answer is empty"
		}
	}
	for _, n := range e.HighlightedLines {
		if n > len(e.CodeLines()) {
			return fmt.Sprintf("highlighted line %d is past the end of the code", n)
		}
	}
	return ""
}

func canonicalVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// ErrUnknownLevel is returned for a level ID no pack defines.
var ErrUnknownLevel = errors.New("unknown level")

// Library indexes the levels of one or more packs.
type Library struct {
	packs  []*Pack
	levels map[string]*Level
	order  []string
}

// NewLibrary indexes packs. Level IDs must be unique across packs since
// progress records key completions by level ID alone.
func NewLibrary(packs ...*Pack) (*Library, error) {
	lib := &Library{packs: packs, levels: make(map[string]*Level)}
	for _, p := range packs {
		for i := range p.Levels {
			l := &p.Levels[i]
			if _, dup := lib.levels[l.ID]; dup {
				return nil, fmt.Errorf("level %q defined by more than one pack", l.ID)
			}
			lib.levels[l.ID] = l
			lib.order = append(lib.order, l.ID)
		}
	}
	sort.SliceStable(lib.order, func(i, j int) bool {
		a, b := lib.levels[lib.order[i]], lib.levels[lib.order[j]]
		if a.Difficulty != b.Difficulty {
			return a.Difficulty < b.Difficulty
		}
		return a.Index < b.Index
	})
	return lib, nil
}

// Builtin returns the library of packs shipped with the binary.
func Builtin() (*Library, error) {
	names, err := fs.Glob(builtin, "packs/*.json")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	packs := make([]*Pack, 0, len(names))
	for _, name := range names {
		data, err := builtin.ReadFile(name)
		if err != nil {
			return nil, err
		}
		p, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(name), err)
		}
		packs = append(packs, p)
	}
	return NewLibrary(packs...)
}

// Packs returns the indexed packs.
func (l *Library) Packs() []*Pack { return l.packs }

// Levels returns every level ordered by difficulty, then index.
func (l *Library) Levels() []*Level {
	out := make([]*Level, len(l.order))
	for i, id := range l.order {
		out[i] = l.levels[id]
	}
	return out
}

// Level looks up a level by ID.
func (l *Library) Level(id string) (*Level, error) {
	lv, ok := l.levels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, id)
	}
	return lv, nil
}

// Exercise finds an exercise by ID along with the level that holds it.
func (l *Library) Exercise(id string) (exercise.Exercise, *Level, bool) {
	for _, lid := range l.order {
		lv := l.levels[lid]
		for _, e := range lv.Exercises {
			if e.ID == id {
				return e, lv, true
			}
		}
	}
	return exercise.Exercise{}, nil, false
}

// Unlocked reports whether a level is playable given a record's
// currentLevels. The first index of every difficulty is always open.
func (lv *Level) Unlocked(currentLevels map[string]int) bool {
	next := currentLevels[strconv.Itoa(lv.Difficulty)]
	return lv.Index <= max(next, 1)
}

// TotalXP is the XP available from a perfect run of the level.
func (lv *Level) TotalXP() int {
	var xp int
	for _, e := range lv.Exercises {
		xp += e.XPGain
	}
	return xp
}
