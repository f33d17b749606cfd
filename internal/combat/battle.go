package combat

import (
	"math/rand"

	"github.com/talgya/veloria/internal/config"
)

// BattleReport is the result of a single-pass set-piece battle.
type BattleReport struct {
	Imperials          int     `json:"imperials"`
	Rebels             int     `json:"rebels"`
	ImperialStrength   float64 `json:"imperial_strength"`
	RebelStrength      float64 `json:"rebel_strength"`
	Outcome            Outcome `json:"outcome"`
	ImperialCasualties int     `json:"imperial_casualties"`
	RebelCasualties    int     `json:"rebel_casualties"`
	MoraleDelta        int     `json:"morale_delta"`
}

// Battle resolves a forced or civil-war battle in one pass. Strength is head
// count scaled by morale for imperials, and each leader multiplies its side's
// strength. The imperials need strictly more strength to win; a tie goes to
// the rebels. The winner loses a small random share of its fighters, the
// loser a large one.
func Battle(imperials, rebels, morale, generals, rebelLeaders int, cfg config.CombatTuning, rng *rand.Rand) BattleReport {
	r := BattleReport{Imperials: imperials, Rebels: rebels}
	if imperials <= 0 || rebels <= 0 {
		r.Outcome = Stalemate
		return r
	}

	moraleMod := 0.5 + float64(morale)/100
	r.ImperialStrength = float64(imperials) * moraleMod
	r.RebelStrength = float64(rebels) * cfg.RebelBaseStrength
	for i := 0; i < generals; i++ {
		r.ImperialStrength *= cfg.GeneralBonus
	}
	for i := 0; i < rebelLeaders; i++ {
		r.RebelStrength *= cfg.RebelLeaderBonus
	}

	if r.ImperialStrength > r.RebelStrength {
		r.Outcome = SoldiersWin
		r.RebelCasualties = int(float64(rebels) * (0.6 + float64(rng.Intn(30))/100))
		r.ImperialCasualties = int(float64(imperials) * (0.1 + float64(rng.Intn(20))/100))
		r.MoraleDelta = cfg.MoraleGainOnVictory
	} else {
		r.Outcome = RebelsWin
		r.ImperialCasualties = int(float64(imperials) * (0.5 + float64(rng.Intn(30))/100))
		r.RebelCasualties = int(float64(rebels) * (0.2 + float64(rng.Intn(20))/100))
		r.MoraleDelta = -cfg.MoraleLossOnDefeat
	}
	r.ImperialCasualties = min(r.ImperialCasualties, imperials)
	r.RebelCasualties = min(r.RebelCasualties, rebels)
	return r
}
