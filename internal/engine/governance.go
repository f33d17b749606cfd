// Governance AI: the tiered daily policy each kingdom's governor follows.
package engine

import (
	"errors"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/social"
)

// Decision is what the governor did on a given day.
type Decision uint8

const (
	DecisionNone Decision = iota
	DecisionDivineReinforcements
	DecisionDivineAbsolution
	DecisionDivineSustenance
	DecisionEmergencyFarming
	DecisionRecruit
	DecisionFestival
	DecisionFarming
	DecisionGrowArmy
)

var decisionNames = [...]string{
	"none", "divine reinforcements", "divine absolution", "divine sustenance",
	"emergency farming", "recruit", "festival", "farming", "grow army",
}

func (d Decision) String() string {
	if int(d) >= len(decisionNames) {
		return "unknown"
	}
	return decisionNames[d]
}

// Urgency holds the governor's normalized view of a kingdom's problems.
type Urgency struct {
	FoodDays float64
	Food     float64
	Unrest   float64
	Military float64
	Soldiers int
	Rebels   int
}

// Max returns the highest of the three urgency scores.
func (u Urgency) Max() float64 {
	return max(u.Food, u.Unrest, u.Military)
}

// Assess computes the urgency scores for a kingdom from the live store.
func (w *World) Assess(id agents.KingdomID) Urgency {
	k := w.Kingdoms.Get(id)
	if k == nil {
		return Urgency{}
	}
	gc := w.cfg.Governor
	var u Urgency

	consumption := k.Population + 1
	u.FoodDays = gc.NoFoodSentinelDays
	if consumption > 0 {
		u.FoodDays = float64(k.Food) / float64(consumption)
	}
	if gc.FoodDaysThreshold > 0 && u.FoodDays < gc.FoodDaysThreshold {
		u.Food = 1 - u.FoodDays/gc.FoodDaysThreshold
	}

	if t := w.cfg.Unrest.RebellionThreshold; t > 0 {
		u.Unrest = min(float64(k.Unrest)/float64(t), 1)
	}

	for _, a := range w.Agents.All() {
		if !a.Alive || a.Kingdom != id {
			continue
		}
		switch {
		case a.Job.IsSoldier():
			u.Soldiers++
		case a.Job == agents.JobRebel:
			u.Rebels++
		}
	}
	ratio := float64(u.Soldiers) / float64(u.Rebels+1)
	if ratio < 1 {
		u.Military = 1 - ratio
	}
	return u
}

// RunGovernor applies one day of policy to a kingdom, first match wins:
// divine intervention when rich and desperate, emergency farming when food is
// about to run out, then the single most urgent problem, and finally growing
// the standing army toward its target.
func (w *World) RunGovernor(id agents.KingdomID) Decision {
	k := w.Kingdoms.Get(id)
	gc := w.cfg.Governor
	if k == nil || !k.Active || k.Population < gc.MinPopulation {
		return DecisionNone
	}
	u := w.Assess(id)

	if d := w.divineIntervention(k, u); d != DecisionNone {
		return d
	}

	if u.FoodDays < gc.CriticalFoodDays {
		n := w.convertToFarmers(id, gc.FarmerConversions, agents.JobLumberjack, agents.JobMiner, agents.JobBlacksmith)
		w.emit("governor", "GOVERNOR of %s: the granaries are nearly empty, %d workers sent to the fields", k.Name, n)
		return DecisionEmergencyFarming
	}

	if top := u.Max(); top > gc.ActionThreshold {
		if u.Military == top {
			w.emit("governor", "GOVERNOR of %s: prioritizing recruitment", k.Name)
			w.RecruitSoldiers(id)
			return DecisionRecruit
		}
		if u.Unrest == top && k.CanAfford(gc.FestivalCost) {
			k.Treasury -= gc.FestivalCost
			k.AddUnrest(-gc.FestivalUnrestDrop)
			w.emit("governor", "GOVERNOR of %s: hosting festivals to calm the populace", k.Name)
			return DecisionFestival
		}
		if u.Food == top {
			w.convertToFarmers(id, gc.FarmerConversions/2, agents.JobLumberjack, agents.JobMiner)
			w.emit("governor", "GOVERNOR of %s: assigning more workers to farms", k.Name)
			return DecisionFarming
		}
	}

	if float64(u.Soldiers) < float64(k.Population)*gc.ArmyGoalFraction {
		w.RecruitSoldiers(id)
		return DecisionGrowArmy
	}
	return DecisionNone
}

// divineIntervention is tier 0: at most one miracle a day, paid from the
// treasury and followed by a temporary economic penalty.
func (w *World) divineIntervention(k *social.Kingdom, u Urgency) Decision {
	dc := w.cfg.Divine
	if !k.Divine.Available || k.Treasury <= dc.TreasuryThreshold {
		return DecisionNone
	}

	if u.Military > dc.MilitaryUrgency {
		err := w.spawner.Reinforcements(w.Agents, dc.ReinforcementCount, agents.JobSwordsman, k.ID)
		if err == nil {
			k.Treasury -= dc.ReinforcementCost
			k.ApplyDivinePenalty(dc.PenaltyTaxModifier, 1, dc.PenaltyDays)
			w.emit("divine", "GOVERNOR of %s: our armies are collapsing! %d divine recruits answer the prayer", k.Name, dc.ReinforcementCount)
			return DecisionDivineReinforcements
		}
		if errors.Is(err, agents.ErrCapacityExceeded) {
			w.log.Warn("divine reinforcements dropped", "kingdom", k.Name, "error", err)
		} else {
			w.log.Error("divine reinforcements failed", "kingdom", k.Name, "error", err)
		}
	}

	if k.Unrest > dc.AbsolutionUnrestFloor && u.Unrest > dc.UnrestUrgency {
		k.Treasury -= dc.AbsolutionCost
		k.AddUnrest(-dc.AbsolutionUnrestDrop)
		k.AddMorale(-dc.AbsolutionMoraleDrop)
		k.ApplyDivinePenalty(dc.PenaltyTaxModifier, 1, dc.PenaltyDays)
		w.emit("divine", "GOVERNOR of %s: the people threaten to tear down the walls! Divine absolution is granted", k.Name)
		return DecisionDivineAbsolution
	}

	if u.Food > dc.FoodUrgency {
		k.Treasury -= dc.SustenanceCost
		k.Food += dc.SustenanceFood
		k.ApplyDivinePenalty(1, dc.PenaltyProductionModifier, dc.PenaltyDays)
		w.emit("divine", "GOVERNOR of %s: the people starve! A miracle of sustenance fills the granaries", k.Name)
		return DecisionDivineSustenance
	}
	return DecisionNone
}

// convertToFarmers moves up to n living agents of a kingdom holding one of
// from into farming. It returns the number moved.
func (w *World) convertToFarmers(id agents.KingdomID, n int, from ...agents.Job) int {
	moved := 0
	all := w.Agents.All()
	for i := range all {
		if moved >= n {
			break
		}
		a := &all[i]
		if !a.Alive || a.Kingdom != id {
			continue
		}
		for _, j := range from {
			if a.Job == j {
				a.Job = agents.JobFarmer
				moved++
				break
			}
		}
	}
	return moved
}
