// Random events: the daily catalog of windfalls and disasters.
package engine

import (
	"github.com/talgya/veloria/internal/agents"
)

// EventKind is one entry of the random event catalog.
type EventKind uint8

const (
	EventHarvest EventKind = iota
	EventGold
	EventPlague
	EventDrought
	EventRaid
	EventIntrigue

	numEvents
)

var eventNames = [numEvents]string{
	"bountiful harvest", "discovery of gold", "plague", "drought", "barbarian raid", "political intrigue",
}

func (e EventKind) String() string {
	if e >= numEvents {
		return "unknown"
	}
	return eventNames[e]
}

// TriggerRandomEvent rolls the daily event chance for an active, populated
// kingdom and applies a uniformly chosen event on success.
func (w *World) TriggerRandomEvent(id agents.KingdomID) (EventKind, bool) {
	k := w.Kingdoms.Get(id)
	ev := w.cfg.Events
	if k == nil || !k.Active || k.Population < ev.MinPopulation {
		return 0, false
	}
	if w.rng.Intn(100) >= ev.DailyChancePct {
		return 0, false
	}
	kind := EventKind(w.rng.Intn(int(numEvents)))
	w.ApplyEvent(id, kind)
	return kind, true
}

// ApplyEvent applies one catalog event to a kingdom.
func (w *World) ApplyEvent(id agents.KingdomID, kind EventKind) {
	k := w.Kingdoms.Get(id)
	if k == nil {
		return
	}
	ev := w.cfg.Events

	switch kind {
	case EventHarvest:
		gain := ev.HarvestBaseFood + int(float64(k.Population)*ev.HarvestPerCapita)
		k.Food += gain
		w.emit("event", "EVENT: A bountiful harvest in %s brings %d food", k.Name, gain)

	case EventGold:
		all := w.Agents.All()
		for i := range all {
			if a := &all[i]; a.Alive && a.Kingdom == id {
				a.Bronze += ev.GoldBonus
			}
		}
		w.emit("event", "EVENT: A vein of gold is discovered in %s!", k.Name)

	case EventPlague:
		dead := w.killCivilians(id, int(float64(k.Population)*ev.PlagueLoss))
		k.AddUnrest(ev.PlagueUnrest)
		w.emit("event", "EVENT: Sickness and decay in %s claim %d lives", k.Name, dead)

	case EventDrought:
		k.Food = max(int(float64(k.Food)*ev.DroughtRetained), 0)
		k.AddUnrest(ev.DroughtUnrest)
		w.emit("event", "EVENT: A heat wave in %s turns the fields to dust", k.Name)

	case EventRaid:
		dead := w.killCivilians(id, int(float64(k.Population)*ev.RaidLoss))
		k.Wood = int(float64(k.Wood) * ev.RaidRetained)
		k.Stone = int(float64(k.Stone) * ev.RaidRetained)
		k.AddUnrest(ev.RaidUnrest)
		w.emit("event", "EVENT: Barbarians raid %s, %d civilians are slain", k.Name, dead)

	case EventIntrigue:
		k.AddUnrest(ev.IntrigueUnrest)
		w.emit("event", "EVENT: A plot is uncovered in the court of %s!", k.Name)
	}
}
