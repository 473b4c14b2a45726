package leveling

// Current is the slice of stored progress the optimistic calculator needs.
type Current struct {
	TotalXP int
}

// Event is a single exercise completion that has not been confirmed yet.
type Event struct {
	IsCorrect bool
	XPGained  int
}

// Result is the hypothetical progress after applying an Event.
type Result struct {
	NewTotalXP   int  `json:"newTotalXP"`
	NewUserLevel int  `json:"newUserLevel"`
	LeveledUp    bool `json:"leveledUp"`
	XPGained     int  `json:"xpGained"`
}

// Optimistic applies ev to current without any I/O. It must agree with the
// authoritative reconciliation, so both go through CalculateLevel.
func Optimistic(current Current, ev Event) Result {
	gained := ev.XPGained
	if gained < 0 {
		gained = 0
	}
	newTotal := current.TotalXP + gained
	newLevel := CalculateLevel(newTotal)
	return Result{
		NewTotalXP:   newTotal,
		NewUserLevel: newLevel,
		LeveledUp:    newLevel > CalculateLevel(current.TotalXP),
		XPGained:     gained,
	}
}
