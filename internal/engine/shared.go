// The boundary between the simulation goroutine and its readers: a plain-data
// snapshot behind one lock, a queue of pending requests, and a separate
// condition-guarded signal for story position changes.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/veloria/internal/agents"
)

// KingdomView is the public face of one kingdom.
type KingdomView struct {
	ID          agents.KingdomID    `json:"id"`
	Name        string              `json:"name"`
	Active      bool                `json:"active"`
	Population  int                 `json:"population"`
	Unrest      int                 `json:"unrest"`
	Morale      int                 `json:"morale"`
	Treasury    int                 `json:"treasury"`
	Food        int                 `json:"food"`
	Wood        int                 `json:"wood"`
	Stone       int                 `json:"stone"`
	Metal       int                 `json:"metal"`
	Jobs        [agents.NumJobs]int `json:"jobs"`
	PenaltyDays int                 `json:"penalty_days"`
}

// Snapshot is everything the presentation side may read. It holds no
// references into simulation state.
type Snapshot struct {
	WorldID    string                          `json:"world_id"`
	Kingdoms   [agents.NumKingdoms]KingdomView `json:"kingdoms"`
	Population int                             `json:"population"`
	WorldPop   string                          `json:"world_pop"`
	Clock      Clock                           `json:"clock"`
	Time       string                          `json:"time"`
	Season     string                          `json:"season"`
	Status     string                          `json:"status"`
	Fallen     bool                            `json:"fallen"`
	Story      StoryPosition                   `json:"story"`
	Version    uint64                          `json:"version"`
}

// Status strings shown by the presentation side.
const (
	StatusEmpire   = "Status: The Empire Reigns"
	StatusKingdoms = "Status: Age of Kingdoms"
)

// StorySignal wakes a waiter when the story position changes or a request
// is queued.
type StorySignal struct {
	mu      sync.Mutex
	cond    *sync.Cond
	changed bool
}

// NewStorySignal creates a signal with nothing pending.
func NewStorySignal() *StorySignal {
	s := &StorySignal{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Notify marks a change and wakes every waiter.
func (s *StorySignal) Notify() {
	s.mu.Lock()
	s.changed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// WaitTimeout blocks until a change is signalled, d elapses or ctx is done.
// It consumes the change and reports whether there was one.
func (s *StorySignal) WaitTimeout(ctx context.Context, d time.Duration) bool {
	wake := func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	}
	deadline := time.Now().Add(d)
	timer := time.AfterFunc(d, wake)
	defer timer.Stop()
	stop := context.AfterFunc(ctx, wake)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.changed && ctx.Err() == nil && time.Now().Before(deadline) {
		s.cond.Wait()
	}
	changed := s.changed
	s.changed = false
	return changed
}

// Shared is owned jointly by the simulation and the presentation side.
type Shared struct {
	mu       sync.Mutex
	snap     Snapshot
	story    StoryPosition
	requests []Command
	watchers map[chan Snapshot]struct{}

	signal *StorySignal
}

// NewShared creates an empty boundary.
func NewShared() *Shared {
	return &Shared{
		watchers: map[chan Snapshot]struct{}{},
		signal:   NewStorySignal(),
	}
}

// Snapshot returns a copy of the latest published snapshot.
func (s *Shared) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// StoryPosition returns the current narrative position.
func (s *Shared) StoryPosition() StoryPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.story
}

// SetStoryPosition moves the narrative and wakes the simulation so it can
// apply the new position's effects without waiting out its sleep.
func (s *Shared) SetStoryPosition(pos StoryPosition) {
	s.mu.Lock()
	changed := s.story != pos
	s.story = pos
	s.snap.Story = pos
	s.mu.Unlock()
	if changed {
		s.signal.Notify()
	}
}

// WaitStoryChange sleeps up to d, returning early with true when the story
// position changes.
func (s *Shared) WaitStoryChange(ctx context.Context, d time.Duration) bool {
	return s.signal.WaitTimeout(ctx, d)
}

// RequestPolicy queues a manual policy for a kingdom. Affordability is
// decided by the simulation against live state when it drains the queue.
func (s *Shared) RequestPolicy(name string, id agents.KingdomID) error {
	kind, ok := policyCommands[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownPolicy)
	}
	if !id.Valid() {
		return fmt.Errorf("kingdom %d: %w", id, ErrUnknownKingdom)
	}
	s.enqueue(Command{Kind: kind, Kingdom: id})
	return nil
}

// HostFestival queues the festival policy for a kingdom.
func (s *Shared) HostFestival(id agents.KingdomID) error {
	return s.RequestPolicy(PolicyFestival, id)
}

// RequestRefresh asks the simulation to publish a snapshot now, without
// waiting for the next tick.
func (s *Shared) RequestRefresh() {
	s.enqueue(Command{Kind: CmdRefresh})
}

// enqueue queues a request and wakes a sleeping engine so it is served
// between ticks.
func (s *Shared) enqueue(c Command) {
	s.mu.Lock()
	s.requests = append(s.requests, c)
	s.mu.Unlock()
	s.signal.Notify()
}

// Watch returns a channel receiving every published snapshot and a function
// that stops the subscription. Slow readers miss snapshots rather than block
// the simulation.
func (s *Shared) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.watchers, ch)
		s.mu.Unlock()
	}
}

func (s *Shared) publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Story = s.story
	snap.Version = s.snap.Version + 1
	s.snap = snap
	for ch := range s.watchers {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Shared) takeRequests() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.requests
	s.requests = nil
	return out
}

// Snapshot builds the presentation view of the world.
func (w *World) Snapshot() Snapshot {
	snap := Snapshot{
		WorldID:    w.WorldID,
		Population: w.Population,
		WorldPop:   "World Pop: " + humanize.Comma(int64(w.Population)),
		Clock:      w.Clock,
		Time:       w.Clock.String(),
		Season:     w.SeasonName(),
		Status:     StatusEmpire,
		Fallen:     w.Kingdoms.EmpireFallen(),
		Story:      w.Story.Position,
	}
	if snap.Fallen {
		snap.Status = StatusKingdoms
	}
	for i := range w.Kingdoms {
		k := &w.Kingdoms[i]
		snap.Kingdoms[i] = KingdomView{
			ID:          k.ID,
			Name:        k.Name,
			Active:      k.Active,
			Population:  k.Population,
			Unrest:      k.Unrest,
			Morale:      k.Morale,
			Treasury:    k.Treasury,
			Food:        k.Food,
			Wood:        k.Wood,
			Stone:       k.Stone,
			Metal:       k.Metal,
			Jobs:        w.census[i],
			PenaltyDays: k.Divine.PenaltyDays,
		}
	}
	return snap
}

// publish copies the world into the shared snapshot.
func (w *World) publish() {
	w.shared.publish(w.Snapshot())
}

// takeRequests moves presentation requests into the command queue.
func (w *World) takeRequests() {
	w.Enqueue(w.shared.takeRequests()...)
}

// ServeRequests runs queued presentation requests between ticks without
// advancing the clock. It reports whether the story position has moved
// since the last tick, in which case the caller should tick now.
func (w *World) ServeRequests() bool {
	w.takeRequests()
	if n := w.DrainCommands(); n > 0 {
		w.log.Debug("requests served between ticks", "count", n)
	}
	return w.shared.StoryPosition() != w.Story.Position
}
