// Conflict: hourly skirmishes, set-piece battles, the civil war and the
// collapse of the empire.
package engine

import (
	"fmt"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/combat"
	"github.com/talgya/veloria/internal/social"
)

// muster is a kingdom's pooled armed forces.
type muster struct {
	soldiers combat.Side
	rebels   combat.Side
	byJob    [len(agents.SoldierJobs)]int // soldier counts in SoldierJobs order
	generals int
	leaders  int
}

func (w *World) muster(id agents.KingdomID) muster {
	var m muster
	for _, a := range w.Agents.All() {
		if !a.Alive || a.Kingdom != id {
			continue
		}
		var side *combat.Side
		switch {
		case a.Job.IsSoldier():
			side = &m.soldiers
			m.byJob[a.Job-agents.JobSwordsman]++
			if a.IsLeader {
				m.generals++
			}
		case a.Job == agents.JobRebel:
			side = &m.rebels
			if a.IsLeader {
				m.leaders++
			}
		default:
			continue
		}
		side.Count++
		side.Health += a.Stats.Health
		side.Damage += a.Stats.Damage
		side.Defense += a.Stats.Defense
	}
	return m
}

// skirmishChance is the hourly percentage chance of a skirmish.
func (w *World) skirmishChance(k *social.Kingdom) int {
	cc := w.cfg.Combat
	chance := float64(cc.SkirmishBaseChancePct)
	if cc.SkirmishUnrestDivisor > 0 {
		chance += float64((k.Unrest + 1) / cc.SkirmishUnrestDivisor)
	}
	chance *= k.Story.SkirmishChance
	return min(int(chance), 100)
}

// TriggerHourlySkirmish may pit part of a kingdom's army against part of its
// rebels. A story override forces or prevents the roll once. It reports
// whether a fight took place.
func (w *World) TriggerHourlySkirmish(id agents.KingdomID) (combat.Report, bool) {
	k := w.Kingdoms.Get(id)
	if k == nil || !k.Active {
		return combat.Report{}, false
	}
	switch k.ConsumeSkirmishOverride() {
	case social.SkirmishPrevent:
		return combat.Report{}, false
	case social.SkirmishNormal:
		if w.rng.Intn(100) >= w.skirmishChance(k) {
			return combat.Report{}, false
		}
	}

	cc := w.cfg.Combat
	m := w.muster(id)
	soldiers := combat.Engage(m.soldiers, cc.SoldiersEngaged)
	rebels := combat.Engage(m.rebels, cc.RebelsEngaged)
	if soldiers.Count == 0 || rebels.Count == 0 {
		return combat.Report{}, false
	}

	w.emit("skirmish", "SKIRMISH in %s! %d imperials against %d rebels", k.Name, soldiers.Count, rebels.Count)
	rep := combat.Fight(soldiers, rebels, m.generals, m.leaders, cc)
	w.log.Debug("skirmish resolved",
		"kingdom", k.Name,
		"rounds", rep.Final.Round,
		"outcome", rep.Outcome.String(),
		"soldier_casualties", rep.SoldierCasualties,
		"rebel_casualties", rep.RebelCasualties,
	)

	w.applySoldierCasualties(id, rep.SoldierCasualties, m.byJob[:])
	w.inflictCasualties(id, agents.JobRebel, rep.RebelCasualties)
	k.AddMorale(cc.SkirmishMoraleDelta)

	w.emit("skirmish", "The skirmish ends (%s): %d imperials and %d rebels fell", rep.Outcome, rep.SoldierCasualties, rep.RebelCasualties)
	return rep, true
}

// applySoldierCasualties spreads losses over the unit types by their share of
// the army.
func (w *World) applySoldierCasualties(id agents.KingdomID, total int, byJob []int) {
	for i, n := range combat.SplitCasualties(total, byJob) {
		w.inflictCasualties(id, agents.SoldierJobs[i], n)
	}
}

// RunBattle resolves a set-piece battle in a kingdom between the given
// numbers of imperials and rebels, applies casualties and morale, and writes
// the battle report to the chronicle as one block.
func (w *World) RunBattle(id agents.KingdomID, imperials, rebels int) combat.BattleReport {
	k := w.Kingdoms.Get(id)
	if k == nil {
		return combat.BattleReport{Outcome: combat.Stalemate}
	}
	m := w.muster(id)
	rep := combat.Battle(imperials, rebels, k.Morale, m.generals, m.leaders, w.cfg.Combat, w.rng)
	if rep.Outcome == combat.Stalemate {
		return rep
	}

	w.applySoldierCasualties(id, rep.ImperialCasualties, m.byJob[:])
	w.inflictCasualties(id, agents.JobRebel, rep.RebelCasualties)
	k.AddMorale(rep.MoraleDelta)

	title := "Rebel Victory!"
	if rep.Outcome == combat.SoldiersWin {
		title = "Imperial Victory!"
	}
	report := fmt.Sprintf("Battle in %s: %s\n", k.Name, title)
	if m.generals > 0 {
		report += fmt.Sprintf("The imperial army is led by %d general(s)\n", m.generals)
	}
	if m.leaders > 0 {
		report += fmt.Sprintf("The rebels are rallied by %d leader(s)\n", m.leaders)
	}
	report += fmt.Sprintf("Engaged: %d imperials vs. %d rebels\n", imperials, rebels)
	report += fmt.Sprintf("Survivors: %d imperials | %d rebels\n", imperials-rep.ImperialCasualties, rebels-rep.RebelCasualties)
	w.sink.AppendMultiline(report)
	w.log.Info("battle",
		"kingdom", k.Name,
		"outcome", rep.Outcome.String(),
		"imperial_strength", rep.ImperialStrength,
		"rebel_strength", rep.RebelStrength,
		"imperial_casualties", rep.ImperialCasualties,
		"rebel_casualties", rep.RebelCasualties,
	)
	return rep
}

// CheckCivilWar reports whether the empire's rebels are numerous enough to
// start a civil war: above an absolute floor and a ratio of its soldiers.
func (w *World) CheckCivilWar() bool {
	if w.Kingdoms.EmpireFallen() {
		return false
	}
	uc := w.cfg.Unrest
	m := w.muster(agents.EmpireID)
	return m.rebels.Count > uc.CivilWarMinimumRebels &&
		float64(m.rebels.Count) > float64(m.soldiers.Count)*uc.CivilWarRebelRatio
}

// civilWar throws every soldier and rebel of the empire into one battle and
// then breaks the empire apart.
func (w *World) civilWar() {
	m := w.muster(agents.EmpireID)
	w.emit("civil war", "CIVIL WAR! %d rebels rise against %d imperial soldiers", m.rebels.Count, m.soldiers.Count)
	w.RunBattle(agents.EmpireID, m.soldiers.Count, m.rebels.Count)
	w.CollapseEmpire()
}

// CollapseEmpire deactivates the empire and activates all seven successors
// in one step. Every living agent swears to a random successor; soldiers and
// rebels lay down arms and become farmers.
func (w *World) CollapseEmpire() {
	if w.Kingdoms.EmpireFallen() {
		return
	}
	w.Kingdoms[agents.EmpireID].Active = false
	for i := range w.Kingdoms {
		if k := &w.Kingdoms[i]; k.ID.IsSuccessor() {
			k.Active = true
			k.Population = 0
		}
	}

	all := w.Agents.All()
	for i := range all {
		a := &all[i]
		if !a.Alive {
			continue
		}
		a.Kingdom = w.spawner.RandomSuccessor()
		if a.Job.IsSoldier() || a.Job == agents.JobRebel {
			a.Job = agents.JobFarmer
			a.IsLeader = false
		}
	}
	w.RecalculatePopulations()
	w.emit("collapse", "--- THE EMPIRE HAS FALLEN! ---")
	w.emit("collapse", "From the ashes, %d new kingdoms arise", w.Kingdoms.ActiveCount())
}

// CheckEmpireCollapse breaks the empire apart once its unrest reaches the
// rebellion threshold. It reports whether the collapse happened.
func (w *World) CheckEmpireCollapse() bool {
	k := &w.Kingdoms[agents.EmpireID]
	if !k.Active || k.Unrest < w.cfg.Unrest.RebellionThreshold {
		return false
	}
	w.CollapseEmpire()
	return true
}
