// Package progress owns the per-user progress record and every rule that
// changes it: level completion, streaks and daily activity. The Gateway
// applies those rules against the remote document store and the
// LocalAdapter against on-device storage.
package progress

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/readkode/readkode/internal/leveling"
)

// LevelStat holds the answers credited to one exercise level.
type LevelStat struct {
	Correct     int        `json:"correct"`
	Incorrect   int        `json:"incorrect"`
	XP          int        `json:"xp"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ChapterProgress tracks one lesson chapter.
type ChapterProgress struct {
	Completed          bool       `json:"completed"`
	ExercisesCompleted []string   `json:"exercisesCompleted"`
	LastCompletedAt    *time.Time `json:"lastCompletedAt,omitempty"`
}

// Streak counts consecutive active days. LastActivityDate is a UTC
// calendar day in YYYY-MM-DD form.
type Streak struct {
	Current          int    `json:"current"`
	Longest          int    `json:"longest"`
	LastActivityDate string `json:"lastActivityDate,omitempty"`
}

// Stats are lifetime answer counters.
type Stats struct {
	TotalExercises   int `json:"totalExercises"`
	CorrectAnswers   int `json:"correctAnswers"`
	IncorrectAnswers int `json:"incorrectAnswers"`
}

// DailyActivity is one day of the activity calendar. Total is always the
// sum of the four categories.
type DailyActivity struct {
	Total      int `json:"total"`
	Training   int `json:"training"`
	Lessons    int `json:"lessons"`
	AI         int `json:"ai"`
	Challenges int `json:"challenges"`
}

// Record is the progress document for one user.
type Record struct {
	TotalXP          int                                   `json:"totalXP"`
	UserLevel        int                                   `json:"userLevel"`
	CompletedLevels  []string                              `json:"completedLevels"`
	CurrentLevels    map[string]int                        `json:"currentLevels"`
	LevelStats       map[string]LevelStat                  `json:"levelStats"`
	LessonProgress   map[string]map[string]ChapterProgress `json:"lessonProgress"`
	Streak           Streak                                `json:"streak"`
	Stats            Stats                                 `json:"stats"`
	DailyActivity    map[string]DailyActivity              `json:"dailyActivity"`
	XPNodesCollected []string                              `json:"xpNodesCollected"`
	BossCompleted    []string                              `json:"bossCompleted"`
	AITopicProgress  []string                              `json:"aiTopicProgress"`
	CreatedAt        time.Time                             `json:"createdAt"`
	UpdatedAt        time.Time                             `json:"updatedAt"`
}

// NewRecord returns the zero-value record for a new user.
func NewRecord(now time.Time) Record {
	r := Record{CreatedAt: now.UTC(), UpdatedAt: now.UTC()}
	r.Normalize()
	return r
}

// Normalize fills nil collections, clamps negative XP and recomputes the
// user level from TotalXP. Stored levels are never trusted.
func (r *Record) Normalize() {
	if r.TotalXP < 0 {
		r.TotalXP = 0
	}
	r.UserLevel = leveling.CalculateLevel(r.TotalXP)
	if r.CompletedLevels == nil {
		r.CompletedLevels = []string{}
	}
	if r.CurrentLevels == nil {
		r.CurrentLevels = map[string]int{}
	}
	if r.LevelStats == nil {
		r.LevelStats = map[string]LevelStat{}
	}
	if r.LessonProgress == nil {
		r.LessonProgress = map[string]map[string]ChapterProgress{}
	}
	if r.DailyActivity == nil {
		r.DailyActivity = map[string]DailyActivity{}
	}
	if r.XPNodesCollected == nil {
		r.XPNodesCollected = []string{}
	}
	if r.BossCompleted == nil {
		r.BossCompleted = []string{}
	}
	if r.AITopicProgress == nil {
		r.AITopicProgress = []string{}
	}
}

// IsLevelCompleted reports whether levelID is in the completed set.
func (r *Record) IsLevelCompleted(levelID string) bool {
	return slices.Contains(r.CompletedLevels, levelID)
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.CompletedLevels = slices.Clone(r.CompletedLevels)
	out.XPNodesCollected = slices.Clone(r.XPNodesCollected)
	out.BossCompleted = slices.Clone(r.BossCompleted)
	out.AITopicProgress = slices.Clone(r.AITopicProgress)

	if r.CurrentLevels != nil {
		out.CurrentLevels = make(map[string]int, len(r.CurrentLevels))
		for k, v := range r.CurrentLevels {
			out.CurrentLevels[k] = v
		}
	}
	if r.LevelStats != nil {
		out.LevelStats = make(map[string]LevelStat, len(r.LevelStats))
		for k, v := range r.LevelStats {
			if v.CompletedAt != nil {
				t := *v.CompletedAt
				v.CompletedAt = &t
			}
			out.LevelStats[k] = v
		}
	}
	if r.DailyActivity != nil {
		out.DailyActivity = make(map[string]DailyActivity, len(r.DailyActivity))
		for k, v := range r.DailyActivity {
			out.DailyActivity[k] = v
		}
	}
	if r.LessonProgress != nil {
		out.LessonProgress = make(map[string]map[string]ChapterProgress, len(r.LessonProgress))
		for lang, chapters := range r.LessonProgress {
			cp := make(map[string]ChapterProgress, len(chapters))
			for id, ch := range chapters {
				ch.ExercisesCompleted = slices.Clone(ch.ExercisesCompleted)
				if ch.LastCompletedAt != nil {
					t := *ch.LastCompletedAt
					ch.LastCompletedAt = &t
				}
				cp[id] = ch
			}
			out.LessonProgress[lang] = cp
		}
	}
	return out
}

// ParseLevelID splits a "{difficulty}_{index}" level id.
func ParseLevelID(levelID string) (difficulty string, index int, err error) {
	d, i, ok := strings.Cut(levelID, "_")
	if !ok || d == "" {
		return "", 0, fmt.Errorf("invalid level id %q", levelID)
	}
	index, err = strconv.Atoi(i)
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("invalid level id %q", levelID)
	}
	return d, index, nil
}

// LevelID builds a level id from its parts.
func LevelID(difficulty string, index int) string {
	return difficulty + "_" + strconv.Itoa(index)
}

// addToSet appends v unless present. Reports whether it was added.
func addToSet(set []string, v string) ([]string, bool) {
	if slices.Contains(set, v) {
		return set, false
	}
	return append(set, v), true
}
