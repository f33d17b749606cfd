// Population dynamics: natural deaths and food-driven births prorated to the
// hour, and the per-kingdom census.
package engine

import (
	"errors"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/config"
)

// PopulationClock carries the fractional births and deaths between hourly
// calls so that small populations still see whole events over time.
type PopulationClock struct {
	BirthRemainder float64 `json:"birth_remainder"`
	DeathRemainder float64 `json:"death_remainder"`
}

// CalculatePopulationChanges returns this hour's births and deaths.
// Deaths follow a fixed monthly rate; births follow the food surplus over the
// population. Below the growth floor deaths never outnumber births.
func (c *PopulationClock) CalculatePopulationChanges(food, population int, cfg config.Tuning) (births, deaths int) {
	if population <= 0 {
		return 0, 0
	}
	pc := cfg.Population
	hours := float64(max(cfg.Clock.HoursPerDay, 1))

	daily := float64(population) * pc.MonthlyDeathRate / float64(max(pc.DaysPerMonth, 1))
	c.DeathRemainder += daily / hours
	deaths = int(c.DeathRemainder)
	c.DeathRemainder -= float64(deaths)

	if pc.FoodSurplusPerBirth > 0 {
		surplus := max(food-population, 0)
		c.BirthRemainder += float64(surplus) / pc.FoodSurplusPerBirth / hours
		births = int(c.BirthRemainder)
		c.BirthRemainder -= float64(births)
	}

	if population < pc.GrowthFloor && deaths > births {
		deaths = births
	}
	return births, deaths
}

// ApplyBirths appends n newborns. A store that cannot grow drops the births
// with a warning. It returns the number actually born.
func (w *World) ApplyBirths(n int) int {
	born, err := w.spawner.Births(w.Agents, n, w.Kingdoms.EmpireFallen())
	if err != nil {
		if errors.Is(err, agents.ErrCapacityExceeded) {
			w.log.Warn("births dropped", "requested", n, "capacity", w.Agents.Cap(), "error", err)
		} else {
			w.log.Error("births failed", "requested", n, "error", err)
		}
		return 0
	}
	return born
}

// MarkDeaths kills up to n distinct living agents, scanning from a random
// start with wraparound. It returns the number killed.
func (w *World) MarkDeaths(n int) int {
	count := w.Agents.Len()
	if n <= 0 || count == 0 {
		return 0
	}
	all := w.Agents.All()
	start := w.rng.Intn(count)
	killed := 0
	for i := 0; i < count && killed < n; i++ {
		a := &all[(start+i)%count]
		if a.Alive {
			a.Kill()
			killed++
		}
	}
	return killed
}

// RecalculatePopulations rebuilds every kingdom's cached population and job
// census from the store and returns the world total over active kingdoms.
func (w *World) RecalculatePopulations() int {
	w.census = [agents.NumKingdoms][agents.NumJobs]int{}
	for _, a := range w.Agents.All() {
		if !a.Alive || !a.Kingdom.Valid() || !a.Job.Valid() {
			continue
		}
		w.census[a.Kingdom][a.Job]++
	}
	for i := range w.Kingdoms {
		pop := 0
		for _, n := range w.census[i] {
			pop += n
		}
		w.Kingdoms[i].Population = pop
	}
	w.Population = w.TotalPopulation()
	return w.Population
}

// TotalPopulation sums the cached populations of active kingdoms.
func (w *World) TotalPopulation() int {
	total := 0
	for i := range w.Kingdoms {
		if w.Kingdoms[i].Active {
			total += w.Kingdoms[i].Population
		}
	}
	return total
}

// JobCount returns the census count of job in a kingdom as of the last
// RecalculatePopulations.
func (w *World) JobCount(id agents.KingdomID, job agents.Job) int {
	if !id.Valid() || !job.Valid() {
		return 0
	}
	return w.census[id][job]
}
