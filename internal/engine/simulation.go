// Package engine runs the kingdom simulation: the World that owns the agent
// store and the kingdom roster, its hourly Tick, and the Engine that paces
// ticks in real time.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/chronicle"
	"github.com/talgya/veloria/internal/climate"
	"github.com/talgya/veloria/internal/config"
	"github.com/talgya/veloria/internal/social"
)

// Clock is the simulated calendar. Day is 1-based.
type Clock struct {
	Day  int `json:"day"`
	Hour int `json:"hour"`
}

func (c Clock) String() string {
	return fmt.Sprintf("Day %d, %02d:00", c.Day, c.Hour)
}

// Options configures a new World. Zero values pick sensible defaults.
type Options struct {
	Seed      int64
	Logger    *slog.Logger    // base logger, slog.Default() when nil
	Chronicle *chronicle.Sink // narrative ring, created from tuning when nil
	Shared    *Shared         // presentation boundary, created when nil
	WorldID   string          // run identifier, a fresh UUID when empty
}

// World holds the complete simulation state. It is owned by a single
// goroutine; the presentation side only ever sees it through Shared.
type World struct {
	Agents     *agents.Store
	Kingdoms   social.Roster
	Clock      Clock
	Pop        PopulationClock
	Population int // world aggregate, valid after RecalculatePopulations
	Story      StoryProgress
	WorldID    string

	// census counts living agents per kingdom and job.
	census [agents.NumKingdoms][agents.NumJobs]int

	cfg     config.Tuning
	rng     *rand.Rand
	spawner *agents.Spawner
	climate *climate.Field
	log     *slog.Logger
	sink    *chronicle.Sink
	shared  *Shared
	queue   []Command
}

// NewWorld creates an empty world with a founded empire and dormant
// successors. Call Genesis to populate it, or fill it from a save.
func NewWorld(cfg config.Tuning, opts Options) *World {
	base := opts.Logger
	if base == nil {
		base = slog.Default()
	}
	sink := opts.Chronicle
	if sink == nil {
		sink = chronicle.New(cfg.Chronicle.Capacity, cfg.Chronicle.MessageLength)
	}
	shared := opts.Shared
	if shared == nil {
		shared = NewShared()
	}
	id := opts.WorldID
	if id == "" {
		id = uuid.NewString()
	}

	return &World{
		Agents:   agents.NewStore(cfg.Population.Initial, cfg.Population.GrowthFactor, cfg.Population.MaxAgents),
		Kingdoms: social.NewRoster(cfg.Kingdoms),
		Clock:    Clock{Day: cfg.Clock.StartDay, Hour: cfg.Clock.StartHour},
		Story:    NewStoryProgress(),
		WorldID:  id,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(opts.Seed + 100)),
		spawner:  agents.NewSpawner(opts.Seed, cfg.Population),
		climate:  climate.NewField(opts.Seed, cfg.Climate, cfg.Population.DaysPerMonth),
		log:      slog.New(chronicle.NewHandler(base.Handler(), sink)),
		sink:     sink,
		shared:   shared,
	}
}

// Tuning returns the configuration the world runs with.
func (w *World) Tuning() config.Tuning { return w.cfg }

// Chronicle returns the narrative log sink.
func (w *World) Chronicle() *chronicle.Sink { return w.sink }

// Shared returns the presentation boundary.
func (w *World) Shared() *Shared { return w.shared }

// SeasonName names the season of the current day.
func (w *World) SeasonName() string {
	return climate.SeasonName(w.climate.Season(w.Clock.Day))
}

// Genesis fills the store with the founding population, hands out the
// opening jobs and publishes the first snapshot.
func (w *World) Genesis() error {
	if err := w.spawner.InitializePopulation(w.Agents, w.cfg.Population.Initial); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	generals := w.spawner.AssignInitialJobs(w.Agents)
	w.RecalculatePopulations()
	w.emit("founding", "%s is founded with %s souls and %d generals",
		w.Kingdoms[agents.EmpireID].Name, humanize.Comma(int64(w.Population)), generals)
	w.publish()
	return nil
}

// Resume finishes restoring a world filled from a save: it rebuilds the
// census and publishes a snapshot.
func (w *World) Resume() {
	w.RecalculatePopulations()
	w.log.Info("world resumed",
		"world_id", w.WorldID,
		"clock", w.Clock.String(),
		"population", w.Population,
		"fallen", w.Kingdoms.EmpireFallen(),
	)
	w.publish()
}

// Tick advances the world by one simulated hour.
func (w *World) Tick() {
	fallen := w.Kingdoms.EmpireFallen()

	births, deaths := w.Pop.CalculatePopulationChanges(w.birthFood(), w.hourStartPopulation(), w.cfg)

	w.ApplyStoryEffects(w.shared.StoryPosition())
	w.takeRequests()
	w.DrainCommands()

	w.MarkDeaths(deaths)
	w.ApplyBirths(births)

	if !fallen {
		if w.CheckCivilWar() {
			w.civilWar()
		} else {
			w.TriggerHourlySkirmish(agents.EmpireID)
		}
	}

	ec := w.cfg.Economy
	if w.Clock.Hour >= ec.WorkStartHour && w.Clock.Hour < ec.WorkEndHour {
		b := w.BatchFor(w.Clock.Hour)
		w.AssignOccupations(b)
		w.DailyNeeds(b)
		if b.Index < len(ec.PaymentHours) && w.Clock.Hour == ec.PaymentHours[b.Index] {
			w.Payments(b)
		}
	}

	w.RecalculatePopulations()

	if w.Clock.Hour == w.cfg.Clock.HoursPerDay-1 {
		for i := range w.Kingdoms {
			k := &w.Kingdoms[i]
			if !k.Active {
				continue
			}
			w.ManageKingdomDaily(k.ID)
			w.TriggerRandomEvent(k.ID)
		}
		w.CheckEmpireCollapse()
		w.RecalculatePopulations()
		w.dailyReport()
	}

	w.publish()

	if every := w.cfg.Chronicle.PruneEveryHours; every > 0 && w.Clock.Hour%every == 0 {
		ttl := time.Duration(w.cfg.Chronicle.TTLSeconds) * time.Second
		if n := w.sink.Prune(time.Now(), ttl); n > 0 {
			w.log.Debug("chronicle pruned", "expired", n)
		}
	}

	w.advanceClock()
}

// advanceClock moves to the next hour and compacts the store at midnight.
func (w *World) advanceClock() {
	w.Clock.Hour++
	if w.Clock.Hour >= w.cfg.Clock.HoursPerDay {
		w.Clock.Hour = 0
		w.Clock.Day++
	}
	if w.Clock.Hour == 0 {
		removed := w.Agents.Compact()
		w.log.Debug("store compacted", "removed", removed, "count", w.Agents.Len(), "capacity", w.Agents.Cap())
	}
}

// hourStartPopulation is the active population births and deaths are
// computed from, falling back to the living count before the first census.
func (w *World) hourStartPopulation() int {
	if pop := w.TotalPopulation(); pop > 0 {
		return pop
	}
	return w.Agents.Living()
}

// birthFood is the stockpile that drives births: the empire's granary, or
// every active kingdom's combined after the fall.
func (w *World) birthFood() int {
	if !w.Kingdoms.EmpireFallen() {
		return w.Kingdoms[agents.EmpireID].Food
	}
	food := 0
	for i := range w.Kingdoms {
		if w.Kingdoms[i].Active {
			food += w.Kingdoms[i].Food
		}
	}
	return food
}

// emit logs a narrative line that also goes to the chronicle.
func (w *World) emit(category, format string, args ...any) {
	w.log.Info(fmt.Sprintf(format, args...),
		"category", category,
		"day", w.Clock.Day,
		"hour", w.Clock.Hour,
		chronicle.Tag,
	)
}

// dailyReport writes one chronicle line per active kingdom as a single block.
func (w *World) dailyReport() {
	report := fmt.Sprintf("-- End of day %d (%s) --\n", w.Clock.Day, w.SeasonName())
	for i := range w.Kingdoms {
		k := &w.Kingdoms[i]
		if !k.Active {
			continue
		}
		report += fmt.Sprintf("%s: pop %s, food %s, treasury %s, unrest %d, morale %d\n",
			k.Name, humanize.Comma(int64(k.Population)), humanize.Comma(int64(k.Food)),
			humanize.Comma(int64(k.Treasury)), k.Unrest, k.Morale)
		w.log.Info("daily report",
			"day", w.Clock.Day,
			"kingdom", k.Name,
			"population", k.Population,
			"food", k.Food,
			"treasury", k.Treasury,
			"unrest", k.Unrest,
			"morale", k.Morale,
		)
	}
	w.sink.AppendMultiline(report)
}
