// Package config holds every simulation constant and the process settings.
// Tuning is immutable once loaded and passed by value into each subsystem.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning groups the named thresholds, rates and costs of the simulation.
type Tuning struct {
	Population PopulationTuning `yaml:"population"`
	Economy    EconomyTuning    `yaml:"economy"`
	Governor   GovernorTuning   `yaml:"governor"`
	Divine     DivineTuning     `yaml:"divine"`
	Unrest     UnrestTuning     `yaml:"unrest"`
	Combat     CombatTuning     `yaml:"combat"`
	Events     EventTuning      `yaml:"events"`
	Kingdoms   KingdomTuning    `yaml:"kingdoms"`
	Clock      ClockTuning      `yaml:"clock"`
	Climate    ClimateTuning    `yaml:"climate"`
	Chronicle  ChronicleTuning  `yaml:"chronicle"`
}

// PopulationTuning covers the agent store and births/deaths.
type PopulationTuning struct {
	Initial             int     `yaml:"initial"`
	GrowthFactor        float64 `yaml:"growth_factor"`
	MaxAgents           int     `yaml:"max_agents"`
	MonthlyDeathRate    float64 `yaml:"monthly_death_rate"` // fraction of population per month
	DaysPerMonth        int     `yaml:"days_per_month"`
	FoodSurplusPerBirth float64 `yaml:"food_surplus_per_birth"`
	GrowthFloor         int     `yaml:"growth_floor"` // below this, deaths never exceed births
	StartingBronze      int     `yaml:"starting_bronze"`
	StartingHealth      int     `yaml:"starting_health"`
	StartingHunger      int     `yaml:"starting_hunger"`
	InitialStatMax      int     `yaml:"initial_stat_max"` // founders roll 1..max
	NewbornStatMax      int     `yaml:"newborn_stat_max"` // newborns roll 0..max-1

	InitialGeneralLimit    int `yaml:"initial_general_limit"`
	GeneralSpawnChancePct  int `yaml:"general_spawn_chance_pct"`
	ReinforcementHealth    int `yaml:"reinforcement_health"`
	ReinforcementDamage    int `yaml:"reinforcement_damage"`
	ReinforcementDefense   int `yaml:"reinforcement_defense"`
	ReinforcementSpeed     int `yaml:"reinforcement_speed"`
	ReinforcementIntellect int `yaml:"reinforcement_intellect"`
}

// EconomyTuning covers work, consumption, taxes, payments and recruitment.
type EconomyTuning struct {
	WorkStartHour int   `yaml:"work_start_hour"`
	WorkEndHour   int   `yaml:"work_end_hour"`
	Batches       int   `yaml:"batches"`
	PaymentHours  []int `yaml:"payment_hours"` // one per batch

	FarmerFood        int `yaml:"farmer_food"`
	ButcherFood       int `yaml:"butcher_food"`
	LumberjackWood    int `yaml:"lumberjack_wood"`
	MinerMetal        int `yaml:"miner_metal"`
	MinerStone        int `yaml:"miner_stone"`
	MinerMetalPct     int `yaml:"miner_metal_pct"`
	BlacksmithMetal   int `yaml:"blacksmith_metal"`
	ExhaustedHealth   int `yaml:"exhausted_health"` // at or below, agents cannot work
	RestRecovery      int `yaml:"rest_recovery"`
	ExhaustedRecovery int `yaml:"exhausted_recovery"`

	EatHungerThreshold  int     `yaml:"eat_hunger_threshold"`
	FoodCost            int     `yaml:"food_cost"`
	MealFood            int     `yaml:"meal_food"`
	MilitaryExtraFood   int     `yaml:"military_extra_food"`
	HungryHealthPenalty int     `yaml:"hungry_health_penalty"`
	FamineUnrestGain    int     `yaml:"famine_unrest_gain"`
	FamineLossPct       float64 `yaml:"famine_loss_pct"`
	FamineHungerLoss    int     `yaml:"famine_hunger_loss"`

	TaxPerPerson  int `yaml:"tax_per_person"`
	TaxUnrestGain int `yaml:"tax_unrest_gain"`

	RecruitUnrestThreshold int `yaml:"recruit_unrest_threshold"`
	RecruitBase            int `yaml:"recruit_base"`
	RecruitUnrestDivisor   int `yaml:"recruit_unrest_divisor"`
	SwordsmanMetal         int `yaml:"swordsman_metal"`
	ArcherWood             int `yaml:"archer_wood"`
	CavalryMetal           int `yaml:"cavalry_metal"`
	CavalryFood            int `yaml:"cavalry_food"`
}

// GovernorTuning covers the tiered governance AI.
type GovernorTuning struct {
	MinPopulation      int     `yaml:"min_population"`
	FoodDaysThreshold  float64 `yaml:"food_days_threshold"`
	CriticalFoodDays   float64 `yaml:"critical_food_days"`
	ActionThreshold    float64 `yaml:"action_threshold"`
	FarmerConversions  int     `yaml:"farmer_conversions"`
	FestivalCost       int     `yaml:"festival_cost"`
	FestivalUnrestDrop int     `yaml:"festival_unrest_drop"`
	ArmyGoalFraction   float64 `yaml:"army_goal_fraction"`
	NoFoodSentinelDays float64 `yaml:"no_food_sentinel_days"`
}

// DivineTuning covers the governor's tier 0 emergency actions.
type DivineTuning struct {
	TreasuryThreshold         int     `yaml:"treasury_threshold"`
	MilitaryUrgency           float64 `yaml:"military_urgency"`
	UnrestUrgency             float64 `yaml:"unrest_urgency"`
	FoodUrgency               float64 `yaml:"food_urgency"`
	ReinforcementCost         int     `yaml:"reinforcement_cost"`
	ReinforcementCount        int     `yaml:"reinforcement_count"`
	AbsolutionCost            int     `yaml:"absolution_cost"`
	AbsolutionUnrestFloor     int     `yaml:"absolution_unrest_floor"`
	AbsolutionUnrestDrop      int     `yaml:"absolution_unrest_drop"`
	AbsolutionMoraleDrop      int     `yaml:"absolution_morale_drop"`
	SustenanceCost            int     `yaml:"sustenance_cost"`
	SustenanceFood            int     `yaml:"sustenance_food"`
	PenaltyTaxModifier        float64 `yaml:"penalty_tax_modifier"`
	PenaltyProductionModifier float64 `yaml:"penalty_production_modifier"`
	PenaltyDays               int     `yaml:"penalty_days"`
}

// UnrestTuning covers decay, dissent, morale and rebellion.
type UnrestTuning struct {
	DissentThreshold         int     `yaml:"dissent_threshold"`
	RebellionThreshold       int     `yaml:"rebellion_threshold"`
	DecayDivisor             int     `yaml:"decay_divisor"`
	MaxNewRebelsPerDay       int     `yaml:"max_new_rebels_per_day"`
	MaxUnrestForConversion   int     `yaml:"max_unrest_for_conversion"`
	RebelChanceDivisor       int     `yaml:"rebel_chance_divisor"`
	SoldierDefectionModifier float64 `yaml:"soldier_defection_modifier"`
	DefectionMoraleLoss      int     `yaml:"defection_morale_loss"`
	RebelLeaderChancePct     int     `yaml:"rebel_leader_chance_pct"`

	MoraleFoodSurplusMultiplier int `yaml:"morale_food_surplus_multiplier"`
	MoraleGainFromSurplus       int `yaml:"morale_gain_from_surplus"`
	MoraleLossFromUnrest        int `yaml:"morale_loss_from_unrest"`
	MinimumMoraleForUnrestLoss  int `yaml:"minimum_morale_for_unrest_loss"`

	CivilWarMinimumRebels int     `yaml:"civil_war_minimum_rebels"`
	CivilWarRebelRatio    float64 `yaml:"civil_war_rebel_ratio"`
}

// CombatTuning covers skirmishes and full battles.
type CombatTuning struct {
	SkirmishBaseChancePct int     `yaml:"skirmish_base_chance_pct"`
	SkirmishUnrestDivisor int     `yaml:"skirmish_unrest_divisor"`
	SoldiersEngaged       float64 `yaml:"soldiers_engaged"`
	RebelsEngaged         float64 `yaml:"rebels_engaged"`
	Surprise              float64 `yaml:"surprise"`
	OrganizedCommand      float64 `yaml:"organized_command"`
	TankThreshold         float64 `yaml:"tank_threshold"`
	TankConversion        float64 `yaml:"tank_conversion"`
	GeneralBonus          float64 `yaml:"general_bonus"`
	RebelLeaderBonus      float64 `yaml:"rebel_leader_bonus"`
	RetreatAbsolute       float64 `yaml:"retreat_absolute"`
	RetreatProportional   float64 `yaml:"retreat_proportional"`
	MaxRounds             int     `yaml:"max_rounds"`
	SkirmishMoraleDelta   int     `yaml:"skirmish_morale_delta"`

	RebelBaseStrength   float64 `yaml:"rebel_base_strength"`
	MoraleGainOnVictory int     `yaml:"morale_gain_on_victory"`
	MoraleLossOnDefeat  int     `yaml:"morale_loss_on_defeat"`
	CasualtyAttempts    int     `yaml:"casualty_attempts"` // per agent in store
}

// EventTuning covers the daily random event catalog.
type EventTuning struct {
	MinPopulation    int     `yaml:"min_population"`
	DailyChancePct   int     `yaml:"daily_chance_pct"`
	HarvestBaseFood  int     `yaml:"harvest_base_food"`
	HarvestPerCapita float64 `yaml:"harvest_per_capita"`
	GoldBonus        int     `yaml:"gold_bonus"`
	PlagueLoss       float64 `yaml:"plague_loss"`
	PlagueUnrest     int     `yaml:"plague_unrest"`
	DroughtRetained  float64 `yaml:"drought_retained"`
	DroughtUnrest    int     `yaml:"drought_unrest"`
	RaidLoss         float64 `yaml:"raid_loss"`
	RaidRetained     float64 `yaml:"raid_retained"`
	RaidUnrest       int     `yaml:"raid_unrest"`
	IntrigueUnrest   int     `yaml:"intrigue_unrest"`
}

// KingdomTuning covers starting ledgers and the player's manual policies.
type KingdomTuning struct {
	EmpireFood     int `yaml:"empire_food"`
	EmpireWood     int `yaml:"empire_wood"`
	EmpireStone    int `yaml:"empire_stone"`
	EmpireMetal    int `yaml:"empire_metal"`
	EmpireTreasury int `yaml:"empire_treasury"`
	EmpireMorale   int `yaml:"empire_morale"`

	SuccessorFood     int `yaml:"successor_food"`
	SuccessorWood     int `yaml:"successor_wood"`
	SuccessorTreasury int `yaml:"successor_treasury"`
	SuccessorMorale   int `yaml:"successor_morale"`

	PlayerFestivalCost       int `yaml:"player_festival_cost"`
	PlayerFestivalUnrestDrop int `yaml:"player_festival_unrest_drop"`
}

// ClockTuning covers the simulated calendar.
type ClockTuning struct {
	HoursPerDay int `yaml:"hours_per_day"`
	StartHour   int `yaml:"start_hour"`
	StartDay    int `yaml:"start_day"`
}

// ClimateTuning covers the seasonal harvest factor.
type ClimateTuning struct {
	Amplitude float64 `yaml:"amplitude"` // 0 disables
	DayScale  float64 `yaml:"day_scale"`
}

// ChronicleTuning covers the event log ring.
type ChronicleTuning struct {
	Capacity        int `yaml:"capacity"`
	MessageLength   int `yaml:"message_length"`
	TTLSeconds      int `yaml:"ttl_seconds"`
	PruneEveryHours int `yaml:"prune_every_hours"`
}

// DefaultTuning returns the built-in balance.
func DefaultTuning() Tuning {
	return Tuning{
		Population: PopulationTuning{
			Initial:             10000,
			GrowthFactor:        1.5,
			MaxAgents:           2_000_000,
			MonthlyDeathRate:    0.01,
			DaysPerMonth:        30,
			FoodSurplusPerBirth: 1000,
			GrowthFloor:         1000,
			StartingBronze:      100,
			StartingHealth:      200,
			StartingHunger:      100,
			InitialStatMax:      30,
			NewbornStatMax:      10,

			InitialGeneralLimit:    5,
			GeneralSpawnChancePct:  2,
			ReinforcementHealth:    100,
			ReinforcementDamage:    12,
			ReinforcementDefense:   12,
			ReinforcementSpeed:     5,
			ReinforcementIntellect: 5,
		},
		Economy: EconomyTuning{
			WorkStartHour: 4,
			WorkEndHour:   23,
			Batches:       3,
			PaymentHours:  []int{6, 14, 22},

			FarmerFood:        12,
			ButcherFood:       15,
			LumberjackWood:    8,
			MinerMetal:        4,
			MinerStone:        6,
			MinerMetalPct:     30,
			BlacksmithMetal:   1,
			ExhaustedHealth:   10,
			RestRecovery:      20,
			ExhaustedRecovery: 5,

			EatHungerThreshold:  50,
			FoodCost:            2,
			MealFood:            2,
			MilitaryExtraFood:   1,
			HungryHealthPenalty: 5,
			FamineUnrestGain:    2,
			FamineLossPct:       1,
			FamineHungerLoss:    10,

			TaxPerPerson:  5,
			TaxUnrestGain: 1,

			RecruitUnrestThreshold: 25,
			RecruitBase:            5,
			RecruitUnrestDivisor:   20,
			SwordsmanMetal:         5,
			ArcherWood:             5,
			CavalryMetal:           5,
			CavalryFood:            10,
		},
		Governor: GovernorTuning{
			MinPopulation:      100,
			FoodDaysThreshold:  10,
			CriticalFoodDays:   3,
			ActionThreshold:    0.3,
			FarmerConversions:  50,
			FestivalCost:       500,
			FestivalUnrestDrop: 30,
			ArmyGoalFraction:   0.15,
			NoFoodSentinelDays: 999,
		},
		Divine: DivineTuning{
			TreasuryThreshold:         5000,
			MilitaryUrgency:           0.8,
			UnrestUrgency:             0.7,
			FoodUrgency:               0.9,
			ReinforcementCost:         3000,
			ReinforcementCount:        100,
			AbsolutionCost:            3000,
			AbsolutionUnrestFloor:     150,
			AbsolutionUnrestDrop:      100,
			AbsolutionMoraleDrop:      10,
			SustenanceCost:            2000,
			SustenanceFood:            5000,
			PenaltyTaxModifier:        0.75,
			PenaltyProductionModifier: 0.8,
			PenaltyDays:               5,
		},
		Unrest: UnrestTuning{
			DissentThreshold:         50,
			RebellionThreshold:       200,
			DecayDivisor:             24,
			MaxNewRebelsPerDay:       20,
			MaxUnrestForConversion:   50,
			RebelChanceDivisor:       1000,
			SoldierDefectionModifier: 0.5,
			DefectionMoraleLoss:      5,
			RebelLeaderChancePct:     2,

			MoraleFoodSurplusMultiplier: 3,
			MoraleGainFromSurplus:       1,
			MoraleLossFromUnrest:        1,
			MinimumMoraleForUnrestLoss:  20,

			CivilWarMinimumRebels: 500,
			CivilWarRebelRatio:    0.75,
		},
		Combat: CombatTuning{
			SkirmishBaseChancePct: 12,
			SkirmishUnrestDivisor: 10,
			SoldiersEngaged:       0.3,
			RebelsEngaged:         0.5,
			Surprise:              1.5,
			OrganizedCommand:      1.2,
			TankThreshold:         0.5,
			TankConversion:        0.5,
			GeneralBonus:          1.15,
			RebelLeaderBonus:      1.25,
			RetreatAbsolute:       0.2,
			RetreatProportional:   0.3,
			MaxRounds:             1000,
			SkirmishMoraleDelta:   -1,

			RebelBaseStrength:   1.0,
			MoraleGainOnVictory: 5,
			MoraleLossOnDefeat:  10,
			CasualtyAttempts:    3,
		},
		Events: EventTuning{
			MinPopulation:    50,
			DailyChancePct:   10,
			HarvestBaseFood:  500,
			HarvestPerCapita: 0.5,
			GoldBonus:        50,
			PlagueLoss:       0.10,
			PlagueUnrest:     15,
			DroughtRetained:  0.15,
			DroughtUnrest:    20,
			RaidLoss:         0.02,
			RaidRetained:     0.8,
			RaidUnrest:       10,
			IntrigueUnrest:   10,
		},
		Kingdoms: KingdomTuning{
			EmpireFood:     50000,
			EmpireWood:     10000,
			EmpireStone:    10000,
			EmpireMetal:    5000,
			EmpireTreasury: 20000,
			EmpireMorale:   80,

			SuccessorFood:     8000,
			SuccessorWood:     2000,
			SuccessorTreasury: 2000,
			SuccessorMorale:   60,

			PlayerFestivalCost:       1500,
			PlayerFestivalUnrestDrop: 50,
		},
		Clock: ClockTuning{
			HoursPerDay: 24,
			StartHour:   3,
			StartDay:    1,
		},
		Climate: ClimateTuning{
			Amplitude: 0.15,
			DayScale:  0.05,
		},
		Chronicle: ChronicleTuning{
			Capacity:        256,
			MessageLength:   256,
			TTLSeconds:      300,
			PruneEveryHours: 6,
		},
	}
}

// LoadTuning overlays a YAML file onto the defaults.
// Fields absent from the file keep their default values.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate rejects values the simulation cannot run with.
func (t Tuning) Validate() error {
	switch {
	case t.Population.GrowthFactor <= 1:
		return fmt.Errorf("population.growth_factor must be > 1, got %v", t.Population.GrowthFactor)
	case t.Population.DaysPerMonth <= 0:
		return fmt.Errorf("population.days_per_month must be positive")
	case t.Population.FoodSurplusPerBirth <= 0:
		return fmt.Errorf("population.food_surplus_per_birth must be positive")
	case t.Clock.HoursPerDay <= 0:
		return fmt.Errorf("clock.hours_per_day must be positive")
	case t.Economy.Batches <= 0 || t.Clock.HoursPerDay%t.Economy.Batches != 0:
		return fmt.Errorf("economy.batches must divide clock.hours_per_day")
	case len(t.Economy.PaymentHours) != t.Economy.Batches:
		return fmt.Errorf("economy.payment_hours needs one hour per batch")
	case t.Chronicle.Capacity < 2:
		return fmt.Errorf("chronicle.capacity must be at least 2")
	case t.Unrest.RebelChanceDivisor <= 0 || t.Unrest.DecayDivisor <= 0:
		return fmt.Errorf("unrest divisors must be positive")
	case t.Combat.MaxRounds < 1:
		return fmt.Errorf("combat.max_rounds must be at least 1, got %d", t.Combat.MaxRounds)
	}
	return nil
}
