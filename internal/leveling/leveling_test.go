package leveling

import (
	"math"
	"testing"
)

func TestCalculateLevel_Boundaries(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{-50, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{499, 3},
		{500, 4},
		{999, 4},
		{1000, 5},
		{1999, 5},
		{2000, 6},
		{3499, 6},
		{3500, 7},
		{5499, 7},
		{5500, 8},
		{7999, 8},
		{8000, 9},
		{10999, 9},
		{11000, 10},
		{1 << 30, 10},
	}
	for _, tt := range tests {
		if got := CalculateLevel(tt.xp); got != tt.want {
			t.Errorf("CalculateLevel(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestCalculateLevel_Monotonic(t *testing.T) {
	prev := CalculateLevel(0)
	for xp := 1; xp <= 12000; xp++ {
		got := CalculateLevel(xp)
		if got < prev {
			t.Fatalf("CalculateLevel(%d) = %d < CalculateLevel(%d) = %d", xp, got, xp-1, prev)
		}
		prev = got
	}
}

func TestCalculateLevelFloat_NonFinite(t *testing.T) {
	tests := []struct {
		xp   float64
		want int
	}{
		{math.NaN(), 1},
		{math.Inf(-1), 1},
		{math.Inf(1), 10},
		{-1, 1},
		{150.5, 2},
		{1e12, 10},
	}
	for _, tt := range tests {
		if got := CalculateLevelFloat(tt.xp); got != tt.want {
			t.Errorf("CalculateLevelFloat(%v) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestXPForNextLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{-1, 11000},
		{0, 11000},
		{1, 100},
		{2, 250},
		{5, 2000},
		{9, 11000},
		{10, 11000},
		{42, 11000},
	}
	for _, tt := range tests {
		if got := XPForNextLevel(tt.level); got != tt.want {
			t.Errorf("XPForNextLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestProgressToNextLevel(t *testing.T) {
	p := ProgressToNextLevel(175)
	if p.Level != 2 || p.LevelStartXP != 100 || p.NextLevelXP != 250 {
		t.Fatalf("unexpected progress: %+v", p)
	}
	if p.Percent != 0.5 {
		t.Errorf("percent = %v, want 0.5", p.Percent)
	}

	top := ProgressToNextLevel(20000)
	if top.Level != MaxLevel || top.Percent != 1 {
		t.Errorf("max level progress = %+v", top)
	}
}

func TestThresholdsIsCopy(t *testing.T) {
	th := Thresholds()
	th[1] = 0
	if CalculateLevel(50) != 1 {
		t.Fatal("mutating Thresholds() result changed level math")
	}
}
