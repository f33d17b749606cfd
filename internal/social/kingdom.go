// Package social provides the kingdom model: the fixed roster of polities,
// their resource ledgers, unrest, morale and the override knobs that story
// scripting and divine intervention set on them.
package social

import (
	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/config"
)

// SkirmishOverride forces or prevents the next hourly skirmish roll.
type SkirmishOverride int8

const (
	SkirmishPrevent SkirmishOverride = -1
	SkirmishNormal  SkirmishOverride = 0
	SkirmishForce   SkirmishOverride = 1
)

// Ledger is a kingdom's stockpile.
type Ledger struct {
	Food     int `json:"food"`
	Wood     int `json:"wood"`
	Stone    int `json:"stone"`
	Metal    int `json:"metal"`
	Treasury int `json:"treasury"` // bronze
}

// Scale multiplies the four raw resources by f, truncating. Treasury is untouched.
func (l *Ledger) Scale(f float64) {
	if f == 1 {
		return
	}
	l.Food = int(float64(l.Food) * f)
	l.Wood = int(float64(l.Wood) * f)
	l.Stone = int(float64(l.Stone) * f)
	l.Metal = int(float64(l.Metal) * f)
}

// StoryKnobs are the narrative overrides on a kingdom.
type StoryKnobs struct {
	Skirmish            SkirmishOverride `json:"skirmish"`
	SkirmishChance      float64          `json:"skirmish_chance"` // multiplies the base chance
	ProductionModifier  float64          `json:"production_modifier"`
	FoodDailyCap        int              `json:"food_daily_cap"` // 0 means no cap
	ConsumptionModifier float64          `json:"consumption_modifier"`
}

// DivineState tracks the governor's emergency powers and their aftermath.
type DivineState struct {
	TaxModifier        float64 `json:"tax_modifier"`
	ProductionModifier float64 `json:"production_modifier"`
	PenaltyDays        int     `json:"penalty_days"`
	Available          bool    `json:"available"` // once per day
}

// Kingdom is one polity in the roster.
type Kingdom struct {
	ID         agents.KingdomID `json:"id"`
	Name       string           `json:"name"`
	Active     bool             `json:"active"`
	Population int              `json:"population"` // cached, see engine.RecalculatePopulations

	Ledger
	Morale int `json:"morale"` // 0–100
	Unrest int `json:"unrest"` // >= 0

	Story  StoryKnobs  `json:"story"`
	Divine DivineState `json:"divine"`
}

// Names of the roster, indexed by KingdomID.
var Names = [agents.NumKingdoms]string{
	"The Empire of Veloria",
	"Esmere", "Karth", "Varnholt", "Aldmoor", "Ysolde", "Brannoc", "Teshar",
}

// Roster is the fixed set of kingdoms, indexed by KingdomID.
type Roster [agents.NumKingdoms]Kingdom

// NewRoster builds the starting roster: an active empire and seven dormant
// successors holding their opening stockpiles.
func NewRoster(cfg config.KingdomTuning) Roster {
	var r Roster
	for i := range r {
		k := &r[i]
		k.ID = agents.KingdomID(i)
		k.Name = Names[i]
		k.Story = StoryKnobs{SkirmishChance: 1, ProductionModifier: 1, ConsumptionModifier: 1}
		k.Divine = DivineState{TaxModifier: 1, ProductionModifier: 1, Available: true}
		if k.ID == agents.EmpireID {
			k.Active = true
			k.Ledger = Ledger{
				Food:     cfg.EmpireFood,
				Wood:     cfg.EmpireWood,
				Stone:    cfg.EmpireStone,
				Metal:    cfg.EmpireMetal,
				Treasury: cfg.EmpireTreasury,
			}
			k.Morale = cfg.EmpireMorale
			continue
		}
		k.Ledger = Ledger{
			Food:     cfg.SuccessorFood,
			Wood:     cfg.SuccessorWood,
			Treasury: cfg.SuccessorTreasury,
		}
		k.Morale = cfg.SuccessorMorale
	}
	return r
}

// Get returns the kingdom with the given id, or nil when out of range.
func (r *Roster) Get(id agents.KingdomID) *Kingdom {
	if !id.Valid() {
		return nil
	}
	return &r[id]
}

// EmpireFallen reports whether the successors have replaced the empire.
func (r *Roster) EmpireFallen() bool {
	return !r[agents.EmpireID].Active
}

// ActiveCount returns the number of active kingdoms.
func (r *Roster) ActiveCount() int {
	n := 0
	for i := range r {
		if r[i].Active {
			n++
		}
	}
	return n
}

// AddUnrest changes unrest by delta, flooring at zero.
func (k *Kingdom) AddUnrest(delta int) {
	k.Unrest += delta
	if k.Unrest < 0 {
		k.Unrest = 0
	}
}

// AddMorale changes morale by delta, clamped to 0..100.
func (k *Kingdom) AddMorale(delta int) {
	k.Morale = min(100, max(0, k.Morale+delta))
}

// ConsumeSkirmishOverride returns the pending skirmish override and resets it
// to normal, so force and prevent last exactly one evaluation.
func (k *Kingdom) ConsumeSkirmishOverride() SkirmishOverride {
	o := k.Story.Skirmish
	k.Story.Skirmish = SkirmishNormal
	return o
}

// CanAfford reports whether the treasury covers cost.
func (k *Kingdom) CanAfford(cost int) bool {
	return k.Treasury >= cost
}

// ApplyDivinePenalty sets a temporary tax or production multiplier for days.
func (k *Kingdom) ApplyDivinePenalty(tax, production float64, days int) {
	k.Divine.TaxModifier = tax
	k.Divine.ProductionModifier = production
	k.Divine.PenaltyDays = days
	k.Divine.Available = false
}

// TickDivineDay re-arms the once-per-day intervention and counts down any
// penalty. It reports whether a penalty expired today.
func (k *Kingdom) TickDivineDay() bool {
	k.Divine.Available = true
	if k.Divine.PenaltyDays <= 0 {
		return false
	}
	k.Divine.PenaltyDays--
	if k.Divine.PenaltyDays > 0 {
		return false
	}
	k.Divine.TaxModifier = 1
	k.Divine.ProductionModifier = 1
	return true
}
