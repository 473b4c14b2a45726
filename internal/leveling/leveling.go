// Package leveling maps lifetime XP onto the 1-10 user level scale and
// computes optimistic progress updates before a write is confirmed.
package leveling

import "math"

// MaxLevel is the highest reachable user level.
const MaxLevel = 10

// thresholds[i] is the minimum XP for level i+1.
var thresholds = [MaxLevel]int{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 11000}

// Thresholds returns a copy of the XP breakpoints, indexed by level-1.
func Thresholds() []int {
	out := make([]int, len(thresholds))
	copy(out, thresholds[:])
	return out
}

// CalculateLevel returns the user level for the given lifetime XP.
// Negative XP clamps to level 1.
func CalculateLevel(totalXP int) int {
	for level := MaxLevel; level > 1; level-- {
		if totalXP >= thresholds[level-1] {
			return level
		}
	}
	return 1
}

// CalculateLevelFloat is CalculateLevel for values that may not be finite.
// NaN and -Inf clamp to level 1, +Inf to MaxLevel.
func CalculateLevelFloat(xp float64) int {
	switch {
	case math.IsNaN(xp), math.IsInf(xp, -1), xp < 0:
		return 1
	case math.IsInf(xp, 1), xp >= float64(thresholds[MaxLevel-1]):
		return MaxLevel
	}
	return CalculateLevel(int(xp))
}

// XPForNextLevel returns the breakpoint indexed by level. Levels outside
// 1..9 clamp to the level-10 breakpoint.
func XPForNextLevel(level int) int {
	if level < 1 || level >= MaxLevel {
		return thresholds[MaxLevel-1]
	}
	return thresholds[level]
}

// Progress describes how far a learner is through their current level.
type Progress struct {
	Level        int     `json:"level"`
	CurrentXP    int     `json:"currentXP"`
	LevelStartXP int     `json:"levelStartXP"`
	NextLevelXP  int     `json:"nextLevelXP"`
	Percent      float64 `json:"percent"` // 0.0-1.0, 1.0 at MaxLevel
}

// ProgressToNextLevel computes the in-level progress for totalXP.
func ProgressToNextLevel(totalXP int) Progress {
	level := CalculateLevel(totalXP)
	p := Progress{
		Level:        level,
		CurrentXP:    totalXP,
		LevelStartXP: thresholds[level-1],
		NextLevelXP:  XPForNextLevel(level),
	}
	if level >= MaxLevel {
		p.Percent = 1
		return p
	}
	span := p.NextLevelXP - p.LevelStartXP
	p.Percent = float64(totalXP-p.LevelStartXP) / float64(span)
	if p.Percent < 0 {
		p.Percent = 0
	}
	return p
}
