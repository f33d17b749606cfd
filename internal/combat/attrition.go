// Package combat resolves fights between a kingdom's soldiers and its rebels.
// Everything here is a pure function of its inputs: callers aggregate the
// agents, pass plain values in and apply the resulting casualties themselves.
package combat

import (
	"math"

	"github.com/talgya/veloria/internal/config"
)

// Outcome tags the state of a fight after a round.
type Outcome uint8

const (
	Continue Outcome = iota
	SoldiersWin
	RebelsWin
	Stalemate
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case SoldiersWin:
		return "soldiers win"
	case RebelsWin:
		return "rebels win"
	case Stalemate:
		return "stalemate"
	}
	return "unknown"
}

// Side is one army's pooled strength.
type Side struct {
	Count   int `json:"count"`
	Health  int `json:"health"`
	Damage  int `json:"damage"`
	Defense int `json:"defense"`
}

// Engage scales a side down to the fraction that actually fights.
func Engage(s Side, fraction float64) Side {
	return Side{
		Count:   int(float64(s.Count) * fraction),
		Health:  int(float64(s.Health) * fraction),
		Damage:  int(float64(s.Damage) * fraction),
		Defense: int(float64(s.Defense) * fraction),
	}
}

// LeaderBonus returns the damage multiplier for n leaders each worth bonus.
func LeaderBonus(n int, bonus float64) float64 {
	if n <= 0 {
		return 1
	}
	return 1 + (bonus-1)*float64(n)
}

// State is an attrition fight in progress. Start* hold the engaged forces
// before the first round; per-unit averages are always taken from them.
type State struct {
	Soldiers      Side    `json:"soldiers"`
	Rebels        Side    `json:"rebels"`
	StartSoldiers Side    `json:"start_soldiers"`
	StartRebels   Side    `json:"start_rebels"`
	SoldierBonus  float64 `json:"soldier_bonus"`
	RebelBonus    float64 `json:"rebel_bonus"`
	Round         int     `json:"round"`
}

// NewState opens a fight between two engaged forces. Leader bonuses multiply
// each side's damage for the whole fight.
func NewState(soldiers, rebels Side, generals, rebelLeaders int, cfg config.CombatTuning) State {
	st := State{
		Soldiers:      soldiers,
		Rebels:        rebels,
		StartSoldiers: soldiers,
		StartRebels:   rebels,
		SoldierBonus:  LeaderBonus(generals, cfg.GeneralBonus),
		RebelBonus:    LeaderBonus(rebelLeaders, cfg.RebelLeaderBonus),
	}
	st.Soldiers.Damage = int(float64(soldiers.Damage) * st.SoldierBonus)
	st.Rebels.Damage = int(float64(rebels.Damage) * st.RebelBonus)
	return st
}

// Step plays one round. Rebels strike first with surprise, a battered army
// trades armor for health, then each side attacks once and both regroup.
func Step(st State, cfg config.CombatTuning) State {
	s := st

	s.Soldiers.Health -= int(float64(s.Rebels.Damage) * cfg.Surprise)

	if float64(s.Soldiers.Health) < float64(s.StartSoldiers.Health)*cfg.TankThreshold {
		moved := int(float64(s.Soldiers.Defense) * cfg.TankConversion)
		s.Soldiers.Defense -= moved
		s.Soldiers.Health += moved
	}
	s.Soldiers = regroup(s.Soldiers, s.StartSoldiers, s.SoldierBonus)

	s.Rebels = strike(s.Rebels, s.Soldiers.Damage, 1)
	s.Rebels = regroup(s.Rebels, s.StartRebels, s.RebelBonus)

	s.Soldiers = strike(s.Soldiers, s.Rebels.Damage, cfg.OrganizedCommand)
	s.Soldiers = regroup(s.Soldiers, s.StartSoldiers, s.SoldierBonus)

	s.Round++
	return s
}

// strike applies damage to a side. Armor absorbs first (scaled by
// armorFactor); whatever exceeds it breaks the armor and spills into health.
func strike(target Side, damage int, armorFactor float64) Side {
	armor := float64(target.Defense) * armorFactor
	if armor > float64(damage) {
		target.Defense -= damage
		return target
	}
	spill := float64(damage) - armor
	target.Defense = 0
	target.Health -= int(spill)
	return target
}

// regroup converts a side's remaining health back into a head count using the
// starting per-unit health, then re-derives damage and defense from it.
// The count never grows.
func regroup(cur, start Side, bonus float64) Side {
	if cur.Count <= 0 || start.Count <= 0 || start.Health <= 0 {
		return Side{}
	}
	per := float64(start.Count)
	hp := float64(start.Health) / per
	n := int(math.Floor(float64(cur.Health) / hp))
	n = min(max(n, 0), cur.Count)
	return Side{
		Count:   n,
		Health:  int(float64(n) * hp),
		Damage:  int(float64(n) * float64(start.Damage) / per * bonus),
		Defense: int(float64(n) * float64(start.Defense) / per),
	}
}

// DeclareResult decides whether a fight goes on. The two branches are not
// mirror images: when soldiers are at least as many as rebels, the fight
// continues only while rebels hold 20% of the soldiers' starting count and
// soldiers have fallen under 30% of it; otherwise the rebels' starting count
// is the yardstick. Equal counts take the soldiers' branch.
func DeclareResult(rebels, soldiers, startRebels, startSoldiers int, cfg config.CombatTuning) Outcome {
	if soldiers <= 0 && rebels <= 0 {
		return Stalemate
	}
	if soldiers >= rebels {
		if float64(rebels) >= float64(startSoldiers)*cfg.RetreatAbsolute &&
			float64(soldiers) < float64(startSoldiers)*cfg.RetreatProportional {
			return Continue
		}
		return SoldiersWin
	}
	if float64(soldiers) >= float64(startRebels)*cfg.RetreatAbsolute &&
		float64(rebels) < float64(startRebels)*cfg.RetreatProportional {
		return Continue
	}
	return RebelsWin
}

// Resolve plays rounds until DeclareResult stops the fight or MaxRounds is
// reached, which counts as a stalemate. A MaxRounds below 1 allows one round.
func Resolve(st State, cfg config.CombatTuning) (State, Outcome) {
	limit := max(cfg.MaxRounds, 1)
	for {
		st = Step(st, cfg)
		out := DeclareResult(st.Rebels.Count, st.Soldiers.Count, st.StartRebels.Count, st.StartSoldiers.Count, cfg)
		if out != Continue {
			return st, out
		}
		if st.Round >= limit {
			return st, Stalemate
		}
	}
}

// Report summarizes a finished attrition fight.
type Report struct {
	Start             State   `json:"start"`
	Final             State   `json:"final"`
	Outcome           Outcome `json:"outcome"`
	SoldierCasualties int     `json:"soldier_casualties"`
	RebelCasualties   int     `json:"rebel_casualties"`
}

// Fight opens and resolves a skirmish between engaged forces.
func Fight(soldiers, rebels Side, generals, rebelLeaders int, cfg config.CombatTuning) Report {
	start := NewState(soldiers, rebels, generals, rebelLeaders, cfg)
	final, out := Resolve(start, cfg)
	return Report{
		Start:             start,
		Final:             final,
		Outcome:           out,
		SoldierCasualties: start.Soldiers.Count - final.Soldiers.Count,
		RebelCasualties:   start.Rebels.Count - final.Rebels.Count,
	}
}

// SplitCasualties distributes total losses over unit types in proportion to
// each type's share of pool, rounding each share to the nearest whole.
func SplitCasualties(total int, pool []int) []int {
	out := make([]int, len(pool))
	sum := 0
	for _, n := range pool {
		sum += n
	}
	if total <= 0 || sum <= 0 {
		return out
	}
	for i, n := range pool {
		out[i] = int(math.Round(float64(total) * float64(n) / float64(sum)))
	}
	return out
}
