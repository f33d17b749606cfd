// Agent spawning: the founding population, natural births, divine
// reinforcements and the opening job distribution.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/veloria/internal/config"
)

// Spawner creates agents and appends them to a Store.
type Spawner struct {
	rng *rand.Rand
	cfg config.PopulationTuning
}

// NewSpawner creates a spawner with its own seeded random source.
func NewSpawner(seed int64, cfg config.PopulationTuning) *Spawner {
	return &Spawner{
		rng: rand.New(rand.NewSource(seed + 300)),
		cfg: cfg,
	}
}

// RandomSuccessor returns a uniformly random successor kingdom (1..7).
func (s *Spawner) RandomSuccessor() KingdomID {
	return KingdomID(s.rng.Intn(NumKingdoms-1) + 1)
}

// InitializePopulation resets the store and fills it with n founders: full
// health, stats rolled in 1..InitialStatMax, unemployed, in the empire.
func (s *Spawner) InitializePopulation(store *Store, n int) error {
	store.Reset()
	if err := store.EnsureCapacity(n); err != nil {
		return fmt.Errorf("initialize population: %w", err)
	}
	batch := make([]Agent, n)
	for i := range batch {
		batch[i] = Agent{
			Name: s.name(),
			Stats: Stats{
				Health:    s.cfg.StartingHealth,
				Hunger:    s.cfg.StartingHunger,
				Speed:     s.roll1(s.cfg.InitialStatMax),
				Damage:    s.roll1(s.cfg.InitialStatMax),
				Defense:   s.roll1(s.cfg.InitialStatMax),
				Intellect: s.roll1(s.cfg.InitialStatMax),
			},
			Kingdom: EmpireID,
			Bronze:  s.cfg.StartingBronze,
			Alive:   true,
		}
	}
	return store.Append(batch...)
}

// Births appends n newborns. After the empire has fallen each newborn joins
// a random successor; before, the empire. It returns the number appended,
// which is 0 when the store cannot grow.
func (s *Spawner) Births(store *Store, n int, fallen bool) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	batch := make([]Agent, n)
	for i := range batch {
		a := Agent{
			Name: s.name(),
			Stats: Stats{
				Health:    s.cfg.StartingHealth,
				Hunger:    s.cfg.StartingHunger,
				Speed:     s.roll0(s.cfg.NewbornStatMax),
				Damage:    s.roll0(s.cfg.NewbornStatMax),
				Defense:   s.roll0(s.cfg.NewbornStatMax),
				Intellect: s.roll0(s.cfg.NewbornStatMax),
			},
			Kingdom: EmpireID,
			Bronze:  s.cfg.StartingBronze,
			Alive:   true,
		}
		for q := range a.Quirks {
			a.Quirks[q] = s.rng.Intn(2) == 1
		}
		if fallen {
			a.Kingdom = s.RandomSuccessor()
		}
		batch[i] = a
	}
	if err := store.Append(batch...); err != nil {
		return 0, fmt.Errorf("births: %w", err)
	}
	return n, nil
}

// Reinforcements appends n agents with the fixed recruit profile, already
// employed in job and sworn to kingdom.
func (s *Spawner) Reinforcements(store *Store, n int, job Job, kingdom KingdomID) error {
	if n <= 0 {
		return nil
	}
	if !job.Valid() || !kingdom.Valid() {
		return fmt.Errorf("reinforcements: invalid job %d or kingdom %d", job, kingdom)
	}
	batch := make([]Agent, n)
	for i := range batch {
		batch[i] = Agent{
			Name: "Divine Recruit",
			Stats: Stats{
				Health:    s.cfg.ReinforcementHealth,
				Hunger:    s.cfg.StartingHunger,
				Speed:     s.cfg.ReinforcementSpeed,
				Damage:    s.cfg.ReinforcementDamage,
				Defense:   s.cfg.ReinforcementDefense,
				Intellect: s.cfg.ReinforcementIntellect,
			},
			Job:     job,
			Kingdom: kingdom,
			Bronze:  s.cfg.StartingBronze,
			Alive:   true,
		}
		if job.IsSoldier() {
			batch[i].Equipment[SlotTorso] = 1
			batch[i].Equipment[SlotRightHand] = 1
		}
	}
	if err := store.Append(batch...); err != nil {
		return fmt.Errorf("reinforcements: %w", err)
	}
	return nil
}

// Opening workforce shares, as cumulative percentages of a 0..99 roll.
const (
	archerPct     = 5
	cavalryPct    = archerPct + 5
	swordsmanPct  = cavalryPct + 5
	blacksmithPct = swordsmanPct + 10
	minerPct      = blacksmithPct + 10
	lumberjackPct = minerPct + 15
)

// AssignInitialJobs gives every living agent an opening job: 15% split
// evenly between archers, cavalry and swordsmen, then blacksmiths, miners and
// lumberjacks, with farmers taking the remaining half. A few swordsmen are
// promoted to general. It returns the number of generals created.
func (s *Spawner) AssignInitialJobs(store *Store) int {
	generals := 0
	all := store.All()
	for i := range all {
		a := &all[i]
		if !a.Alive {
			continue
		}
		roll := s.rng.Intn(100)
		switch {
		case roll < archerPct:
			a.Job = JobArcher
		case roll < cavalryPct:
			a.Job = JobCavalry
		case roll < swordsmanPct:
			a.Job = JobSwordsman
			if generals < s.cfg.InitialGeneralLimit && s.rng.Intn(100) < s.cfg.GeneralSpawnChancePct {
				a.IsLeader = true
				generals++
			}
		case roll < blacksmithPct:
			a.Job = JobBlacksmith
		case roll < minerPct:
			a.Job = JobMiner
		case roll < lumberjackPct:
			a.Job = JobLumberjack
		default:
			a.Job = JobFarmer
		}
	}
	return generals
}

// roll1 returns 1..n.
func (s *Spawner) roll1(n int) int {
	if n <= 0 {
		return 1
	}
	return s.rng.Intn(n) + 1
}

// roll0 returns 0..n-1.
func (s *Spawner) roll0(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

func (s *Spawner) name() string {
	return givenNames[s.rng.Intn(len(givenNames))] + " " + houseNames[s.rng.Intn(len(houseNames))]
}

// Name pools for procedural generation.
var givenNames = []string{
	"Adam", "Alwin", "Berta", "Corvin", "Dagmar", "Edda", "Emeric", "Fenna",
	"Godric", "Hadwin", "Ilse", "Jarek", "Kunig", "Liesel", "Matthis", "Noor",
	"Osric", "Pala", "Radek", "Sigrun", "Tibor", "Ulla", "Vesna", "Wendel",
}

var houseNames = []string{
	"of Veloria", "Ashgrove", "Barrowmere", "Coldbrook", "Dunhallow", "Elmstead",
	"Fairholt", "Greyfield", "Hollin", "Kestrel", "Lowmarsh", "Mirewood",
	"Northam", "Orrin", "Pikeford", "Rushden", "Saltcombe", "Tarnwick",
}
