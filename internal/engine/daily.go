// Daily kingdom management: divine countdown, taxes, unrest decay, dissent,
// recruitment, the governor and army morale.
package engine

import (
	"github.com/talgya/veloria/internal/agents"
)

// ManageKingdomDaily runs a kingdom's end-of-day routine.
func (w *World) ManageKingdomDaily(id agents.KingdomID) Decision {
	k := w.Kingdoms.Get(id)
	if k == nil || !k.Active {
		return DecisionNone
	}

	if k.TickDivineDay() {
		w.emit("divine", "Divine collateral has been paid for %s. The economy returns to normal", k.Name)
	}

	taxes := w.CollectTaxes(id)
	w.UpdateUnrest(id)
	rebels := w.HandleDissent(id)
	w.RecruitSoldiers(id)
	decision := w.RunGovernor(id)
	w.updateMorale(id)
	w.RecalculatePopulations()

	w.log.Info("kingdom managed",
		"kingdom", k.Name,
		"taxes", taxes,
		"new_rebels", rebels,
		"decision", decision.String(),
	)
	return decision
}

// UpdateUnrest lets unrest fade by one point with a 1-in-DecayDivisor chance.
func (w *World) UpdateUnrest(id agents.KingdomID) {
	k := w.Kingdoms.Get(id)
	d := w.cfg.Unrest.DecayDivisor
	if k == nil || !k.Active || k.Unrest <= 0 || d <= 0 {
		return
	}
	if w.rng.Intn(d) == 0 {
		k.AddUnrest(-1)
	}
}

// HandleDissent converts subjects to rebels once unrest passes the dissent
// threshold. The chance grows with unrest over the threshold, soldiers defect
// at a reduced rate and cost the army morale, and a few new rebels rise as
// leaders. It returns the number of new rebels.
func (w *World) HandleDissent(id agents.KingdomID) int {
	k := w.Kingdoms.Get(id)
	uc := w.cfg.Unrest
	if k == nil || !k.Active || k.Unrest <= uc.DissentThreshold || uc.RebelChanceDivisor <= 0 {
		return 0
	}
	over := min(k.Unrest-uc.DissentThreshold, uc.MaxUnrestForConversion)
	soldierChance := int(float64(over) * uc.SoldierDefectionModifier)

	converted := 0
	all := w.Agents.All()
	for i := range all {
		if converted >= uc.MaxNewRebelsPerDay {
			break
		}
		a := &all[i]
		if !a.Alive || a.Kingdom != id || a.Job == agents.JobRebel {
			continue
		}
		if a.Job.IsSoldier() {
			if w.rng.Intn(uc.RebelChanceDivisor) >= soldierChance {
				continue
			}
			k.AddMorale(-uc.DefectionMoraleLoss)
		} else if w.rng.Intn(uc.RebelChanceDivisor) >= over {
			continue
		}
		a.Job = agents.JobRebel
		converted++
		if w.rng.Intn(100) < uc.RebelLeaderChancePct {
			a.IsLeader = true
		}
	}
	if converted > 0 {
		w.emit("dissent", "Dissent spreads in %s: %d take up arms against the crown", k.Name, converted)
	}
	return converted
}

// updateMorale rewards a well-fed army and wears it down under unrest.
func (w *World) updateMorale(id agents.KingdomID) {
	k := w.Kingdoms.Get(id)
	uc := w.cfg.Unrest
	if k.Food > k.Population*uc.MoraleFoodSurplusMultiplier && k.Morale < 100 {
		k.AddMorale(uc.MoraleGainFromSurplus)
	}
	if k.Unrest > uc.DissentThreshold && k.Morale > uc.MinimumMoraleForUnrestLoss {
		k.AddMorale(-uc.MoraleLossFromUnrest)
	}
}
