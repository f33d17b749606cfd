// Story effects and the command queue. Narrative scripting and the
// presentation side never touch kingdoms directly: they enqueue commands
// that the simulation drains, in order, at the start of its next tick.
package engine

import (
	"fmt"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/social"
)

// CommandKind tags a Command.
type CommandKind uint8

const (
	CmdUnrest     CommandKind = iota // add Delta to unrest
	CmdMorale                        // add Delta to morale
	CmdConvert                       // move Count living subjects into Job
	CmdSkirmish                      // set the skirmish override and chance modifier
	CmdProduction                    // set the production modifier and food cap
	CmdBattle                        // fight Imperials against Rebels
	CmdFestival                      // the player's festival
	CmdNarrate                       // chronicle Note only
	CmdRefresh                       // publish a snapshot now
)

var commandNames = [...]string{
	"unrest", "morale", "convert", "skirmish", "production", "battle", "festival", "narrate", "refresh",
}

func (c CommandKind) String() string {
	if int(c) >= len(commandNames) {
		return "unknown"
	}
	return commandNames[c]
}

// Command is one effect on one kingdom.
type Command struct {
	Kind      CommandKind             `json:"kind"`
	Kingdom   agents.KingdomID        `json:"kingdom"`
	Delta     int                     `json:"delta,omitempty"`
	Count     int                     `json:"count,omitempty"`
	Job       agents.Job              `json:"job,omitempty"`
	Override  social.SkirmishOverride `json:"override,omitempty"`
	Modifier  float64                 `json:"modifier,omitempty"`
	FoodCap   int                     `json:"food_cap,omitempty"`
	Imperials int                     `json:"imperials,omitempty"`
	Rebels    int                     `json:"rebels,omitempty"`
	Note      string                  `json:"note,omitempty"`
}

// Enqueue schedules a command for the next drain.
func (w *World) Enqueue(cmds ...Command) {
	w.queue = append(w.queue, cmds...)
}

// Pending returns the number of queued commands.
func (w *World) Pending() int { return len(w.queue) }

// DrainCommands executes every queued command in order and returns how many
// ran. Commands enqueued while draining run in the same pass.
func (w *World) DrainCommands() int {
	n := 0
	for len(w.queue) > 0 {
		cmd := w.queue[0]
		w.queue = w.queue[1:]
		if err := w.execute(cmd); err != nil {
			w.log.Warn("command refused", "kind", cmd.Kind.String(), "kingdom", cmd.Kingdom, "error", err)
		}
		n++
	}
	w.queue = nil
	return n
}

func (w *World) execute(cmd Command) error {
	switch cmd.Kind {
	case CmdRefresh:
		w.publish()
		return nil
	case CmdFestival:
		return w.HostFestival(cmd.Kingdom)
	}

	k := w.Kingdoms.Get(cmd.Kingdom)
	if k == nil {
		return ErrUnknownKingdom
	}
	if !k.Active {
		return fmt.Errorf("%s: %w", k.Name, ErrInactiveKingdom)
	}
	if cmd.Note != "" {
		w.emit("story", "%s", cmd.Note)
	}

	switch cmd.Kind {
	case CmdUnrest:
		k.AddUnrest(cmd.Delta)
	case CmdMorale:
		k.AddMorale(cmd.Delta)
	case CmdConvert:
		w.convert(cmd.Kingdom, cmd.Job, cmd.Count)
		w.RecalculatePopulations()
		w.publish()
	case CmdSkirmish:
		k.Story.Skirmish = cmd.Override
		k.Story.SkirmishChance = cmd.Modifier
	case CmdProduction:
		k.Story.ProductionModifier = cmd.Modifier
		k.Story.FoodDailyCap = cmd.FoodCap
	case CmdBattle:
		w.RunBattle(cmd.Kingdom, cmd.Imperials, cmd.Rebels)
		w.RecalculatePopulations()
		w.publish()
	case CmdNarrate:
	default:
		return fmt.Errorf("command %d: %w", cmd.Kind, ErrUnknownCommand)
	}
	return nil
}

// convert moves up to n living subjects of a kingdom, whatever their job,
// into job. It returns the number converted.
func (w *World) convert(id agents.KingdomID, job agents.Job, n int) int {
	done := 0
	all := w.Agents.All()
	for i := range all {
		if done >= n {
			break
		}
		if a := &all[i]; a.Alive && a.Kingdom == id {
			a.Job = job
			done++
		}
	}
	return done
}

// StoryPosition is a place in the narrative, 0-based.
type StoryPosition struct {
	Chapter   int `json:"chapter"`
	Paragraph int `json:"paragraph"`
}

// StoryProgress remembers which scripted beats have fired.
type StoryProgress struct {
	Position StoryPosition   `json:"position"`
	Applied  map[string]bool `json:"applied"`
}

// NewStoryProgress returns progress with nothing applied.
func NewStoryProgress() StoryProgress {
	return StoryProgress{Applied: map[string]bool{}}
}

// beat is a scripted story effect bound to a paragraph range of a chapter.
type beat struct {
	key     string
	chapter int
	from    int
	to      int
	effects []Command
}

// script is the narrative's effect table. Every beat targets the empire.
var script = []beat{
	{key: "1.3", chapter: 0, from: 3, to: 3, effects: []Command{
		{Kind: CmdUnrest, Delta: 1, Note: "The crossroads meeting stirs the populace..."},
		{Kind: CmdConvert, Job: agents.JobRebel, Count: 15},
	}},
	{key: "1.7", chapter: 0, from: 7, to: 7, effects: []Command{
		{Kind: CmdUnrest, Delta: 1, Note: "News of twisted beasts spreads panic!"},
		{Kind: CmdConvert, Job: agents.JobRebel, Count: 20},
	}},
	{key: "1.9", chapter: 0, from: 9, to: 9, effects: []Command{
		{Kind: CmdMorale, Delta: -2, Note: "The discovery of created monsters terrifies the people!"},
		{Kind: CmdUnrest, Delta: 5},
		{Kind: CmdConvert, Job: agents.JobRebel, Count: 30},
	}},
	{key: "8.0", chapter: 7, from: 0, to: 0, effects: []Command{
		{Kind: CmdUnrest, Delta: 100, Note: "The rebels gain a new charismatic leader!"},
		{Kind: CmdConvert, Job: agents.JobRebel, Count: 1200},
		{Kind: CmdSkirmish, Override: social.SkirmishPrevent, Modifier: 1},
	}},
	{key: "8.12", chapter: 7, from: 1, to: 12, effects: []Command{
		{Kind: CmdSkirmish, Override: social.SkirmishPrevent, Modifier: 1},
	}},
	{key: "8.26", chapter: 7, from: 13, to: 26, effects: []Command{
		{Kind: CmdBattle, Imperials: 360, Rebels: 480, Note: "The armies meet in the field!"},
	}},
}

// ApplyStoryEffects enqueues the effects of the first unapplied beat at pos
// and marks it applied, so repeated calls at the same position do nothing.
// It returns the number of commands enqueued.
func (w *World) ApplyStoryEffects(pos StoryPosition) int {
	w.Story.Position = pos
	if w.Story.Applied == nil {
		w.Story.Applied = map[string]bool{}
	}
	for _, b := range script {
		if b.chapter != pos.Chapter || pos.Paragraph < b.from || pos.Paragraph > b.to || w.Story.Applied[b.key] {
			continue
		}
		w.Story.Applied[b.key] = true
		for _, c := range b.effects {
			c.Kingdom = agents.EmpireID
			w.Enqueue(c)
		}
		w.log.Debug("story beat", "beat", b.key, "chapter", pos.Chapter, "paragraph", pos.Paragraph)
		return len(b.effects)
	}
	return 0
}
