package progress

import (
	"time"

	"github.com/readkode/readkode/internal/leveling"
)

const dayLayout = "2006-01-02"

// Category is a daily-activity bucket.
type Category string

const (
	Training   Category = "training"
	Lessons    Category = "lessons"
	AI         Category = "ai"
	Challenges Category = "challenges"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Training, Lessons, AI, Challenges:
		return true
	}
	return false
}

// Day returns the UTC calendar day of t as YYYY-MM-DD.
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// parseDay accepts a YYYY-MM-DD day or an RFC3339 timestamp and truncates
// it to its UTC calendar day.
func parseDay(s string) (time.Time, bool) {
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// AdvanceStreak records activity at now:
//   - same day: unchanged
//   - next day: current+1
//   - any larger gap, or no prior activity: current resets to 1
//
// Longest never decreases.
func AdvanceStreak(s Streak, now time.Time) Streak {
	today, _ := parseDay(Day(now))
	last, ok := parseDay(s.LastActivityDate)

	switch {
	case !ok:
		s.Current = 1
	default:
		gap := int(today.Sub(last).Hours() / 24)
		switch {
		case gap <= 0:
			if s.Current < 1 {
				s.Current = 1
			}
		case gap == 1:
			s.Current++
		default:
			s.Current = 1
		}
	}

	s.Longest = max(s.Longest, s.Current)
	s.LastActivityDate = Day(now)
	return s
}

// RecordActivity adds n to category on day and recomputes the day's total.
// A nil map is allocated.
func RecordActivity(daily map[string]DailyActivity, day string, category Category, n int) map[string]DailyActivity {
	if daily == nil {
		daily = map[string]DailyActivity{}
	}
	a := daily[day]
	switch category {
	case Training:
		a.Training += n
	case Lessons:
		a.Lessons += n
	case AI:
		a.AI += n
	case Challenges:
		a.Challenges += n
	}
	a.Total = a.Training + a.Lessons + a.AI + a.Challenges
	daily[day] = a
	return daily
}

// LevelResult is the outcome of a block of exercises in one level.
type LevelResult struct {
	CorrectAnswers   int `json:"correctAnswers"`
	IncorrectAnswers int `json:"incorrectAnswers"`
	XPGained         int `json:"xpGained"`
}

// Answered returns the number of answered exercises.
func (r LevelResult) Answered() int {
	return r.CorrectAnswers + r.IncorrectAnswers
}

// Mode selects how ApplyLevelResult credits a result.
type Mode int

const (
	// Incremental adds the result to the level's running stats and leaves
	// the level open. Used for queued exercise batches.
	Incremental Mode = iota

	// Authoritative treats the result as the level's final totals: only the
	// part not already credited is added, and the level is marked complete.
	Authoritative
)

// Completion reports what a completion call did.
type Completion struct {
	AlreadyCompleted bool   `json:"alreadyCompleted,omitempty"`
	Skipped          bool   `json:"skipped,omitempty"`
	XPGained         int    `json:"xpGained"`
	LeveledUp        bool   `json:"leveledUp"`
	NewTotalXP       int    `json:"newTotalXP"`
	NewUserLevel     int    `json:"newUserLevel"`
	Progress         Record `json:"progress"`
}

// ApplyLevelResult reconciles res into rec for levelID. A level that is
// already completed receives nothing: Authoritative calls report
// AlreadyCompleted and Incremental calls report Skipped. rec is left
// untouched in that case.
func ApplyLevelResult(rec *Record, levelID string, res LevelResult, mode Mode, now time.Time) Completion {
	rec.Normalize()
	if rec.IsLevelCompleted(levelID) {
		return Completion{
			AlreadyCompleted: mode == Authoritative,
			Skipped:          mode == Incremental,
			NewTotalXP:       rec.TotalXP,
			NewUserLevel:     rec.UserLevel,
			Progress:         rec.Clone(),
		}
	}

	res.CorrectAnswers = max(res.CorrectAnswers, 0)
	res.IncorrectAnswers = max(res.IncorrectAnswers, 0)
	res.XPGained = max(res.XPGained, 0)

	prev := rec.LevelStats[levelID]
	next := prev
	var dCorrect, dIncorrect, dXP int

	switch mode {
	case Authoritative:
		dCorrect = max(0, res.CorrectAnswers-prev.Correct)
		dIncorrect = max(0, res.IncorrectAnswers-prev.Incorrect)
		dXP = max(0, res.XPGained-prev.XP)
		next.Correct = prev.Correct + dCorrect
		next.Incorrect = prev.Incorrect + dIncorrect
		next.XP = prev.XP + dXP
		completedAt := now.UTC()
		next.CompletedAt = &completedAt

		rec.CompletedLevels, _ = addToSet(rec.CompletedLevels, levelID)
		if difficulty, index, err := ParseLevelID(levelID); err == nil {
			rec.CurrentLevels[difficulty] = max(rec.CurrentLevels[difficulty], index+1)
		}
	default:
		dCorrect, dIncorrect, dXP = res.CorrectAnswers, res.IncorrectAnswers, res.XPGained
		next.Correct += dCorrect
		next.Incorrect += dIncorrect
		next.XP += dXP
	}
	rec.LevelStats[levelID] = next

	return rec.credit(dXP, dCorrect, dIncorrect, Training, now)
}

// credit adds XP and answer counts, refreshes the streak and the daily
// calendar, and recomputes the level.
func (r *Record) credit(xp, correct, incorrect int, category Category, now time.Time) Completion {
	prevLevel := leveling.CalculateLevel(r.TotalXP)

	r.TotalXP += xp
	r.Stats.CorrectAnswers += correct
	r.Stats.IncorrectAnswers += incorrect
	r.Stats.TotalExercises += correct + incorrect
	r.Streak = AdvanceStreak(r.Streak, now)
	if n := correct + incorrect; n > 0 {
		r.DailyActivity = RecordActivity(r.DailyActivity, Day(now), category, n)
	}
	r.UserLevel = leveling.CalculateLevel(r.TotalXP)
	r.UpdatedAt = now.UTC()

	return Completion{
		XPGained:     xp,
		LeveledUp:    r.UserLevel > prevLevel,
		NewTotalXP:   r.TotalXP,
		NewUserLevel: r.UserLevel,
		Progress:     r.Clone(),
	}
}

// CompleteLessonExercise credits a lesson exercise once. Marks the chapter
// complete when chapterDone is set. Returns the XP credited.
func (r *Record) CompleteLessonExercise(language, chapterID, exerciseID string, chapterDone bool, xp int, now time.Time) int {
	r.Normalize()
	chapters := r.LessonProgress[language]
	if chapters == nil {
		chapters = map[string]ChapterProgress{}
		r.LessonProgress[language] = chapters
	}
	ch := chapters[chapterID]
	if ch.ExercisesCompleted == nil {
		ch.ExercisesCompleted = []string{}
	}

	var added bool
	ch.ExercisesCompleted, added = addToSet(ch.ExercisesCompleted, exerciseID)
	if chapterDone {
		ch.Completed = true
	}
	at := now.UTC()
	ch.LastCompletedAt = &at
	chapters[chapterID] = ch

	if !added {
		r.UpdatedAt = at
		return 0
	}
	c := r.creditActivity(max(xp, 0), Lessons, now)
	return c.XPGained
}

// CompleteAITopic credits an AI-literacy topic once.
func (r *Record) CompleteAITopic(topicID string, xp int, now time.Time) int {
	r.Normalize()
	var added bool
	r.AITopicProgress, added = addToSet(r.AITopicProgress, topicID)
	if !added {
		return 0
	}
	return r.creditActivity(max(xp, 0), AI, now).XPGained
}

// CollectXPNode credits a map XP node once.
func (r *Record) CollectXPNode(nodeID string, xp int, now time.Time) int {
	r.Normalize()
	var added bool
	r.XPNodesCollected, added = addToSet(r.XPNodesCollected, nodeID)
	if !added {
		return 0
	}
	return r.creditActivity(max(xp, 0), Training, now).XPGained
}

// CompleteBoss credits a boss level once.
func (r *Record) CompleteBoss(bossID string, xp int, now time.Time) int {
	r.Normalize()
	var added bool
	r.BossCompleted, added = addToSet(r.BossCompleted, bossID)
	if !added {
		return 0
	}
	return r.creditActivity(max(xp, 0), Training, now).XPGained
}

// RecordChallenge credits a finished challenge. Challenges are repeatable.
func (r *Record) RecordChallenge(xp int, now time.Time) int {
	r.Normalize()
	return r.creditActivity(max(xp, 0), Challenges, now).XPGained
}

// AddDailyActivity bumps a calendar category without awarding XP.
func (r *Record) AddDailyActivity(category Category, n int, now time.Time) {
	r.Normalize()
	r.DailyActivity = RecordActivity(r.DailyActivity, Day(now), category, n)
	r.UpdatedAt = now.UTC()
}

// creditActivity is credit for a single non-exercise activity.
func (r *Record) creditActivity(xp int, category Category, now time.Time) Completion {
	c := r.credit(xp, 0, 0, category, now)
	r.DailyActivity = RecordActivity(r.DailyActivity, Day(now), category, 1)
	c.Progress = r.Clone()
	return c
}
