package progress

import (
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/readkode/readkode/internal/leveling"
)

var day0 = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func TestAdvanceStreak(t *testing.T) {
	tests := []struct {
		name string
		in   Streak
		now  time.Time
		want Streak
	}{
		{"no prior activity", Streak{}, day0, Streak{Current: 1, Longest: 1, LastActivityDate: "2026-03-10"}},
		{"same day", Streak{Current: 5, Longest: 7, LastActivityDate: "2026-03-10"}, day0, Streak{Current: 5, Longest: 7, LastActivityDate: "2026-03-10"}},
		{"next day", Streak{Current: 5, Longest: 7, LastActivityDate: "2026-03-09"}, day0, Streak{Current: 6, Longest: 7, LastActivityDate: "2026-03-10"}},
		{"next day beats longest", Streak{Current: 7, Longest: 7, LastActivityDate: "2026-03-09"}, day0, Streak{Current: 8, Longest: 8, LastActivityDate: "2026-03-10"}},
		{"gap of two", Streak{Current: 5, Longest: 7, LastActivityDate: "2026-03-08"}, day0, Streak{Current: 1, Longest: 7, LastActivityDate: "2026-03-10"}},
		{"gap of three", Streak{Current: 5, Longest: 7, LastActivityDate: "2026-03-07"}, day0, Streak{Current: 1, Longest: 7, LastActivityDate: "2026-03-10"}},
		{"timestamp form", Streak{Current: 2, Longest: 2, LastActivityDate: "2026-03-09T23:59:00Z"}, day0, Streak{Current: 3, Longest: 3, LastActivityDate: "2026-03-10"}},
		{"clock went back", Streak{Current: 4, Longest: 4, LastActivityDate: "2026-03-12"}, day0, Streak{Current: 4, Longest: 4, LastActivityDate: "2026-03-10"}},
		{"garbage date", Streak{Current: 4, Longest: 9, LastActivityDate: "yesterday"}, day0, Streak{Current: 1, Longest: 9, LastActivityDate: "2026-03-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdvanceStreak(tt.in, tt.now); got != tt.want {
				t.Errorf("AdvanceStreak(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAdvanceStreak_UsesUTCDays(t *testing.T) {
	// 23:30 in UTC-5 on the 9th is already the 10th in UTC.
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2026, 3, 9, 23, 30, 0, 0, loc)
	got := AdvanceStreak(Streak{Current: 1, Longest: 1, LastActivityDate: "2026-03-09"}, now)
	if got.Current != 2 || got.LastActivityDate != "2026-03-10" {
		t.Errorf("got %+v, want current 2 on 2026-03-10", got)
	}
}

func TestRecordActivity_TotalIsSum(t *testing.T) {
	var daily map[string]DailyActivity
	daily = RecordActivity(daily, "2026-03-10", Training, 3)
	daily = RecordActivity(daily, "2026-03-10", Lessons, 2)
	daily = RecordActivity(daily, "2026-03-10", AI, 1)
	daily = RecordActivity(daily, "2026-03-10", Challenges, 4)
	daily = RecordActivity(daily, "2026-03-11", Training, 1)

	want := DailyActivity{Total: 10, Training: 3, Lessons: 2, AI: 1, Challenges: 4}
	if got := daily["2026-03-10"]; got != want {
		t.Errorf("2026-03-10 = %+v, want %+v", got, want)
	}
	if got := daily["2026-03-11"].Total; got != 1 {
		t.Errorf("2026-03-11 total = %d, want 1", got)
	}
}

func TestApplyLevelResult_AuthoritativeMarksComplete(t *testing.T) {
	rec := NewRecord(day0)
	rec.TotalXP = 90

	c := ApplyLevelResult(&rec, "1_1", LevelResult{CorrectAnswers: 8, IncorrectAnswers: 2, XPGained: 80}, Authoritative, day0)
	if c.AlreadyCompleted || c.XPGained != 80 || !c.LeveledUp {
		t.Errorf("completion = %+v", c)
	}
	if rec.TotalXP != 170 || rec.UserLevel != 2 {
		t.Errorf("totalXP=%d userLevel=%d, want 170/2", rec.TotalXP, rec.UserLevel)
	}
	if !slices.Equal(rec.CompletedLevels, []string{"1_1"}) {
		t.Errorf("CompletedLevels = %v", rec.CompletedLevels)
	}
	if rec.CurrentLevels["1"] != 2 {
		t.Errorf("CurrentLevels[1] = %d, want 2", rec.CurrentLevels["1"])
	}
	if want := (Stats{TotalExercises: 10, CorrectAnswers: 8, IncorrectAnswers: 2}); rec.Stats != want {
		t.Errorf("Stats = %+v, want %+v", rec.Stats, want)
	}
	if got := rec.DailyActivity["2026-03-10"].Training; got != 10 {
		t.Errorf("training activity = %d, want 10", got)
	}
	if rec.Streak.Current != 1 {
		t.Errorf("streak = %d, want 1", rec.Streak.Current)
	}

	ls := rec.LevelStats["1_1"]
	if ls.Correct != 8 || ls.XP != 80 || ls.CompletedAt == nil {
		t.Errorf("level stats = %+v", ls)
	}
}

func TestApplyLevelResult_Idempotent(t *testing.T) {
	rec := NewRecord(day0)
	ApplyLevelResult(&rec, "1_1", LevelResult{CorrectAnswers: 10, XPGained: 100}, Authoritative, day0)
	before := rec.Clone()

	for _, mode := range []Mode{Authoritative, Incremental} {
		c := ApplyLevelResult(&rec, "1_1", LevelResult{CorrectAnswers: 10, XPGained: 100}, mode, day0.Add(time.Hour))
		if c.XPGained != 0 {
			t.Errorf("mode %v: XPGained = %d, want 0", mode, c.XPGained)
		}
		if c.AlreadyCompleted != (mode == Authoritative) || c.Skipped != (mode == Incremental) {
			t.Errorf("mode %v: alreadyCompleted=%v skipped=%v", mode, c.AlreadyCompleted, c.Skipped)
		}
		if rec.TotalXP != before.TotalXP || rec.Stats != before.Stats || !reflect.DeepEqual(rec.LevelStats, before.LevelStats) {
			t.Errorf("mode %v: record changed on a completed level", mode)
		}
	}
}

func TestApplyLevelResult_AuthoritativeCreditsOnlyDelta(t *testing.T) {
	rec := NewRecord(day0)
	// Three answers already credited incrementally.
	ApplyLevelResult(&rec, "2_3", LevelResult{CorrectAnswers: 2, IncorrectAnswers: 1, XPGained: 20}, Incremental, day0)
	if rec.TotalXP != 20 || rec.IsLevelCompleted("2_3") {
		t.Fatalf("after incremental: totalXP=%d completed=%v", rec.TotalXP, rec.IsLevelCompleted("2_3"))
	}

	c := ApplyLevelResult(&rec, "2_3", LevelResult{CorrectAnswers: 7, IncorrectAnswers: 3, XPGained: 70}, Authoritative, day0)
	if c.XPGained != 50 || rec.TotalXP != 70 {
		t.Errorf("xpGained=%d totalXP=%d, want 50/70", c.XPGained, rec.TotalXP)
	}
	if want := (Stats{TotalExercises: 10, CorrectAnswers: 7, IncorrectAnswers: 3}); rec.Stats != want {
		t.Errorf("Stats = %+v, want %+v", rec.Stats, want)
	}
	if got := rec.DailyActivity["2026-03-10"].Training; got != 10 {
		t.Errorf("training activity = %d, want 10", got)
	}
	if rec.CurrentLevels["2"] != 4 {
		t.Errorf("CurrentLevels[2] = %d, want 4", rec.CurrentLevels["2"])
	}
}

func TestApplyLevelResult_UserLevelMatchesXP(t *testing.T) {
	rec := NewRecord(day0)
	rec.UserLevel = 9 // stale stored value
	for i := 0; i < 30; i++ {
		c := ApplyLevelResult(&rec, LevelID("1", i), LevelResult{CorrectAnswers: 10, XPGained: 137}, Authoritative, day0)
		if want := leveling.CalculateLevel(rec.TotalXP); rec.UserLevel != want || c.NewUserLevel != want {
			t.Fatalf("after %d levels: userLevel=%d completion=%d, want %d", i+1, rec.UserLevel, c.NewUserLevel, want)
		}
	}
}

func TestParseLevelID(t *testing.T) {
	d, i, err := ParseLevelID("3_12")
	if err != nil || d != "3" || i != 12 {
		t.Errorf(`ParseLevelID("3_12") = %q, %d, %v`, d, i, err)
	}

	for _, bad := range []string{"", "3", "_1", "3_x", "3_-1"} {
		if _, _, err := ParseLevelID(bad); err == nil {
			t.Errorf("ParseLevelID(%q) should fail", bad)
		}
	}
}

func TestSupplementalCompletionsAreIdempotent(t *testing.T) {
	rec := NewRecord(day0)

	steps := []struct {
		name string
		got  int
		want int
	}{
		{"ai topic", rec.CompleteAITopic("prompting", 15, day0), 15},
		{"ai topic again", rec.CompleteAITopic("prompting", 15, day0), 0},
		{"xp node", rec.CollectXPNode("node-1", 5, day0), 5},
		{"xp node again", rec.CollectXPNode("node-1", 5, day0), 0},
		{"boss", rec.CompleteBoss("boss-1", 50, day0), 50},
		{"boss again", rec.CompleteBoss("boss-1", 50, day0), 0},
		{"lesson exercise", rec.CompleteLessonExercise("go", "ch1", "ex1", false, 10, day0), 10},
		{"lesson exercise again", rec.CompleteLessonExercise("go", "ch1", "ex1", true, 10, day0), 0},
		{"challenge", rec.RecordChallenge(25, day0), 25},
		{"challenge repeats", rec.RecordChallenge(25, day0), 25},
	}
	for _, s := range steps {
		if s.got != s.want {
			t.Errorf("%s: credited %d, want %d", s.name, s.got, s.want)
		}
	}

	if !rec.LessonProgress["go"]["ch1"].Completed {
		t.Error("chapter should be marked completed")
	}
	if rec.TotalXP != 130 || rec.UserLevel != leveling.CalculateLevel(130) {
		t.Errorf("totalXP=%d userLevel=%d", rec.TotalXP, rec.UserLevel)
	}
	want := DailyActivity{Total: 6, Training: 2, Lessons: 1, AI: 1, Challenges: 2}
	if got := rec.DailyActivity["2026-03-10"]; got != want {
		t.Errorf("activity = %+v, want %+v", got, want)
	}
}

func TestClone_IsDeep(t *testing.T) {
	rec := NewRecord(day0)
	ApplyLevelResult(&rec, "1_1", LevelResult{CorrectAnswers: 1, XPGained: 10}, Authoritative, day0)
	rec.CompleteLessonExercise("go", "ch1", "ex1", false, 10, day0)

	cp := rec.Clone()
	cp.CompletedLevels[0] = "x"
	cp.LevelStats["1_1"] = LevelStat{}
	cp.LessonProgress["go"]["ch1"] = ChapterProgress{}

	if rec.CompletedLevels[0] != "1_1" {
		t.Error("CompletedLevels shared with clone")
	}
	if rec.LevelStats["1_1"].XP != 10 {
		t.Error("LevelStats shared with clone")
	}
	if !slices.Equal(rec.LessonProgress["go"]["ch1"].ExercisesCompleted, []string{"ex1"}) {
		t.Error("LessonProgress shared with clone")
	}
}
