// Economy: occupation, the hourly work-and-eat cycle over one batch of the
// population, payments, taxes and recruitment.
package engine

import (
	"math"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/social"
)

// Batch is the slice of the store processed in one working hour. The
// population is split into cfg.Economy.Batches contiguous parts; the last
// part takes the remainder.
type Batch struct {
	Index int
	Lo    int
	Hi    int
}

// BatchFor returns the batch that works during hour.
func (w *World) BatchFor(hour int) Batch {
	n := max(w.cfg.Economy.Batches, 1)
	perBatch := max(w.cfg.Clock.HoursPerDay/n, 1)
	idx := min(hour/perBatch, n-1)
	part := w.Agents.Len() / n
	b := Batch{Index: idx, Lo: idx * part, Hi: (idx + 1) * part}
	if idx == n-1 {
		b.Hi = w.Agents.Len()
	}
	return b
}

// AssignOccupations gives every living jobless agent in the batch a random
// civilian job. It returns the number employed.
func (w *World) AssignOccupations(b Batch) int {
	all := w.Agents.All()
	n := 0
	for i := b.Lo; i < b.Hi; i++ {
		a := &all[i]
		if a.Alive && a.Job == agents.JobNone {
			a.Job = agents.CivilianJobs[w.rng.Intn(len(agents.CivilianJobs))]
			n++
		}
	}
	return n
}

// exertion is the health and hunger a shift costs.
type exertion struct{ health, hunger int }

var shiftCost = map[agents.Job]exertion{
	agents.JobFarmer:     {5, 10},
	agents.JobButcher:    {10, 15},
	agents.JobLumberjack: {15, 20},
	agents.JobMiner:      {30, 35},
	agents.JobBlacksmith: {20, 25},
	agents.JobSwordsman:  {5, 10},
	agents.JobArcher:     {5, 10},
	agents.JobCavalry:    {5, 10},
}

// idleSmithHunger is what a blacksmith loses waiting for metal.
const idleSmithHunger = 10

// DailyNeeds runs one hour of work and consumption for the batch. Each agent
// works or rests, then eats from its own kingdom's granary. Production is
// pooled per kingdom and added afterwards, scaled by the harvest, story and
// divine modifiers, with the story food cap applied last.
func (w *World) DailyNeeds(b Batch) {
	var produced [agents.NumKingdoms]social.Ledger
	var famine [agents.NumKingdoms]bool

	all := w.Agents.All()
	for i := b.Lo; i < b.Hi; i++ {
		a := &all[i]
		if !a.Alive {
			continue
		}
		if a.Stats.Health <= 0 {
			a.Kill()
			continue
		}
		k := &w.Kingdoms[a.Kingdom]
		w.work(a, k, &produced[a.Kingdom])
		if a.Job != agents.JobRebel {
			w.eat(a, k, &famine[a.Kingdom])
		}
	}

	for i := range w.Kingdoms {
		k := &w.Kingdoms[i]
		p := produced[i]
		if p.Food > 0 {
			p.Food = int(float64(p.Food) * w.climate.HarvestFactor(i, w.Clock.Day))
		}
		p.Scale(k.Story.ProductionModifier)
		if k.Divine.PenaltyDays > 0 {
			p.Scale(k.Divine.ProductionModifier)
		}
		k.Food += p.Food
		k.Wood += p.Wood
		k.Stone += p.Stone
		k.Metal += p.Metal
		if limit := k.Story.FoodDailyCap; limit > 0 && k.Food > limit {
			k.Food = limit
		}
	}
}

func (w *World) work(a *agents.Agent, k *social.Kingdom, p *social.Ledger) {
	ec := w.cfg.Economy
	if a.Stats.Health <= ec.ExhaustedHealth {
		a.Stats.Health = min(a.Stats.Health+ec.ExhaustedRecovery, w.cfg.Population.StartingHealth)
		return
	}
	if w.rng.Intn(2) == 0 {
		a.Stats.Health = min(a.Stats.Health+ec.RestRecovery, w.cfg.Population.StartingHealth)
		return
	}

	cost, ok := shiftCost[a.Job]
	if !ok {
		return
	}
	switch a.Job {
	case agents.JobFarmer:
		p.Food += w.roll(ec.FarmerFood)
	case agents.JobButcher:
		p.Food += w.roll(ec.ButcherFood)
	case agents.JobLumberjack:
		p.Wood += w.roll(ec.LumberjackWood) + 1
	case agents.JobMiner:
		if w.rng.Intn(100) < ec.MinerMetalPct {
			p.Metal += w.roll(ec.MinerMetal) + 1
		} else {
			p.Stone += w.roll(ec.MinerStone) + 1
		}
	case agents.JobBlacksmith:
		if k.Metal < ec.BlacksmithMetal {
			a.Stats.Hunger -= idleSmithHunger
			return
		}
		k.Metal -= ec.BlacksmithMetal
	}
	a.Stats.Health -= cost.health
	a.Stats.Hunger -= cost.hunger
}

// eat feeds a hungry agent, or starves it when the granary is empty. The
// first empty-granary agent of a kingdom in a call declares the famine.
func (w *World) eat(a *agents.Agent, k *social.Kingdom, famine *bool) {
	ec := w.cfg.Economy
	if k.Food > 1 {
		if a.Stats.Hunger > ec.EatHungerThreshold {
			return
		}
		if a.Bronze < ec.FoodCost {
			a.Stats.Health -= ec.HungryHealthPenalty
			return
		}
		a.Bronze -= ec.FoodCost
		meal := ec.MealFood
		if a.Job.IsSoldier() {
			meal += ec.MilitaryExtraFood
		}
		meal = int(math.Ceil(float64(meal) * k.Story.ConsumptionModifier))
		k.Food = max(k.Food-meal, 0)
		a.Stats.Hunger += w.rng.Intn(40) + 10
		return
	}

	if !*famine {
		*famine = true
		w.declareFamine(k)
	}
	if !a.Alive {
		return
	}
	a.Stats.Hunger -= ec.FamineHungerLoss
	if a.Stats.Hunger <= 0 {
		a.Kill()
	}
}

// declareFamine empties the granary, raises unrest and takes a starvation
// toll of at least one life.
func (w *World) declareFamine(k *social.Kingdom) {
	ec := w.cfg.Economy
	k.Food = 0
	k.AddUnrest(ec.FamineUnrestGain)
	toll := int(float64(k.Population) * ec.FamineLossPct / 100)
	if toll < 1 && k.Population > 0 {
		toll = 1
	}
	dead := w.killWhere(k.ID, toll, w.cfg.Combat.CasualtyAttempts, func(*agents.Agent) bool { return true })
	w.emit("famine", "FAMINE in %s! %d have died of starvation", k.Name, dead)
}

// payRange is a job's daily wage: base plus a roll below spread.
type payRange struct{ spread, base int }

var wages = map[agents.Job]payRange{
	agents.JobFarmer:     {30, 1},
	agents.JobButcher:    {50, 1},
	agents.JobLumberjack: {40, 1},
	agents.JobMiner:      {30, 1},
	agents.JobBlacksmith: {85, 1},
	agents.JobSwordsman:  {41, 20},
	agents.JobArcher:     {41, 20},
	agents.JobCavalry:    {41, 20},
}

// Payments pays every living agent in the batch its job's wage. Rebels and
// the unemployed earn nothing. It returns the bronze paid out.
func (w *World) Payments(b Batch) int {
	all := w.Agents.All()
	total := 0
	for i := b.Lo; i < b.Hi; i++ {
		a := &all[i]
		if !a.Alive {
			continue
		}
		pay, ok := wages[a.Job]
		if !ok {
			continue
		}
		amount := w.roll(pay.spread) + pay.base
		a.Bronze += amount
		total += amount
	}
	return total
}

// CollectTaxes takes the per-capita tax from every subject who can pay it
// and raises unrest whatever the yield. An active divine penalty scales the
// yield. It returns the bronze added to the treasury.
func (w *World) CollectTaxes(id agents.KingdomID) int {
	k := w.Kingdoms.Get(id)
	if k == nil || !k.Active || k.Population == 0 {
		return 0
	}
	tax := w.cfg.Economy.TaxPerPerson
	total := 0
	all := w.Agents.All()
	for i := range all {
		a := &all[i]
		if a.Alive && a.Kingdom == id && a.Bronze >= tax {
			a.Bronze -= tax
			total += tax
		}
	}
	if k.Divine.PenaltyDays > 0 {
		total = int(float64(total) * k.Divine.TaxModifier)
	}
	k.Treasury += total
	k.AddUnrest(w.cfg.Economy.TaxUnrestGain)
	return total
}

// RecruitSoldiers turns civilians into soldiers as a show of force once
// unrest passes the recruitment threshold. Each recruit becomes a random
// unit type among those the kingdom can currently pay for; recruiting stops
// when none is affordable. It returns the number recruited.
func (w *World) RecruitSoldiers(id agents.KingdomID) int {
	k := w.Kingdoms.Get(id)
	ec := w.cfg.Economy
	if k == nil || !k.Active || k.Population == 0 || k.Unrest < ec.RecruitUnrestThreshold {
		return 0
	}
	wanted := ec.RecruitBase
	if ec.RecruitUnrestDivisor > 0 {
		wanted += k.Unrest / ec.RecruitUnrestDivisor
	}

	recruited := 0
	all := w.Agents.All()
	for i := range all {
		if recruited >= wanted {
			break
		}
		a := &all[i]
		if !a.Alive || a.Kingdom != id || !a.Job.IsCivilian() {
			continue
		}
		options := w.affordableUnits(k)
		if len(options) == 0 {
			break
		}
		job := options[w.rng.Intn(len(options))]
		w.payForUnit(k, job)
		a.Job = job
		recruited++
	}
	if recruited > 0 {
		w.log.Info("soldiers recruited", "kingdom", k.Name, "count", recruited)
	}
	return recruited
}

func (w *World) affordableUnits(k *social.Kingdom) []agents.Job {
	ec := w.cfg.Economy
	var out []agents.Job
	if k.Metal >= ec.SwordsmanMetal {
		out = append(out, agents.JobSwordsman)
	}
	if k.Wood >= ec.ArcherWood {
		out = append(out, agents.JobArcher)
	}
	if k.Metal >= ec.CavalryMetal && k.Food >= ec.CavalryFood {
		out = append(out, agents.JobCavalry)
	}
	return out
}

func (w *World) payForUnit(k *social.Kingdom, job agents.Job) {
	ec := w.cfg.Economy
	switch job {
	case agents.JobSwordsman:
		k.Metal -= ec.SwordsmanMetal
	case agents.JobArcher:
		k.Wood -= ec.ArcherWood
	case agents.JobCavalry:
		k.Metal -= ec.CavalryMetal
		k.Food -= ec.CavalryFood
	}
}

// killWhere kills up to count random living agents of a kingdom matching
// match, giving up after attemptsPer tries per agent in the store. A
// shortfall is accepted. It returns the number killed.
func (w *World) killWhere(id agents.KingdomID, count, attemptsPer int, match func(*agents.Agent) bool) int {
	n := w.Agents.Len()
	if count <= 0 || n == 0 {
		return 0
	}
	all := w.Agents.All()
	killed := 0
	for attempts := 0; killed < count && attempts < n*attemptsPer; attempts++ {
		a := &all[w.rng.Intn(n)]
		if a.Alive && a.Kingdom == id && match(a) {
			a.Kill()
			killed++
		}
	}
	return killed
}

// inflictCasualties kills up to count agents of job in a kingdom.
func (w *World) inflictCasualties(id agents.KingdomID, job agents.Job, count int) int {
	return w.killWhere(id, count, w.cfg.Combat.CasualtyAttempts, func(a *agents.Agent) bool {
		return a.Job == job
	})
}

// killCivilians kills up to count agents of a kingdom holding a civilian job.
func (w *World) killCivilians(id agents.KingdomID, count int) int {
	return w.killWhere(id, count, 2, func(a *agents.Agent) bool {
		return a.Job.IsCivilian()
	})
}

// roll returns 0..n-1, or 0 when n is not positive.
func (w *World) roll(n int) int {
	if n <= 0 {
		return 0
	}
	return w.rng.Intn(n)
}
