package engine

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/config"
)

// testWorld builds a world of n unemployed founders in the empire.
func testWorld(t *testing.T, n int, tweak func(*config.Tuning)) *World {
	t.Helper()
	cfg := config.DefaultTuning()
	cfg.Population.Initial = n
	cfg.Climate.Amplitude = 0
	if tweak != nil {
		tweak(&cfg)
	}
	w := NewWorld(cfg, Options{
		Seed:    7,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		WorldID: "test-world",
	})
	require.NoError(t, w.spawner.InitializePopulation(w.Agents, n))
	w.RecalculatePopulations()
	return w
}

// setJobs gives agents [from, to) a job.
func setJobs(w *World, job agents.Job, from, to int) {
	for i := from; i < to; i++ {
		w.Agents.At(i).Job = job
	}
}

func countJob(w *World, id agents.KingdomID, job agents.Job) int {
	n := 0
	for _, a := range w.Agents.All() {
		if a.Alive && a.Kingdom == id && a.Job == job {
			n++
		}
	}
	return n
}

func livingInActive(w *World) int {
	n := 0
	for _, a := range w.Agents.All() {
		if a.Alive && w.Kingdoms[a.Kingdom].Active {
			n++
		}
	}
	return n
}

func TestClockString(t *testing.T) {
	assert.Equal(t, "Day 1, 03:00", Clock{Day: 1, Hour: 3}.String())
	assert.Equal(t, "Day 12, 23:00", Clock{Day: 12, Hour: 23}.String())
}

func TestGenesisPublishesSnapshot(t *testing.T) {
	cfg := config.DefaultTuning()
	cfg.Population.Initial = 1500
	w := NewWorld(cfg, Options{Seed: 3, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, w.Genesis())

	snap := w.Shared().Snapshot()
	assert.NotEmpty(t, snap.WorldID)
	assert.Equal(t, 1500, snap.Population)
	assert.Equal(t, "World Pop: 1,500", snap.WorldPop)
	assert.Equal(t, "Day 1, 03:00", snap.Time)
	assert.Equal(t, StatusEmpire, snap.Status)
	assert.False(t, snap.Fallen)
	assert.True(t, snap.Kingdoms[0].Active)
	assert.False(t, snap.Kingdoms[1].Active)

	sum := 0
	for _, n := range snap.Kingdoms[0].Jobs {
		sum += n
	}
	assert.Equal(t, 1500, sum)
	assert.Zero(t, snap.Kingdoms[0].Jobs[agents.JobNone])
	assert.NotEmpty(t, w.Chronicle().Unread(), "founding goes to the chronicle")
}

func TestTickAdvancesClockAndCompacts(t *testing.T) {
	w := testWorld(t, 300, nil)
	w.Clock = Clock{Day: 4, Hour: 23}
	w.Agents.At(0).Kill()
	w.Agents.At(1).Kill()

	w.Tick()

	assert.Equal(t, Clock{Day: 5, Hour: 0}, w.Clock)
	for i := 0; i < w.Agents.Len(); i++ {
		assert.True(t, w.Agents.At(i).Alive, "dead agent survived midnight compaction at %d", i)
	}
}

func TestPopulationConservedAcrossTicks(t *testing.T) {
	cfg := config.DefaultTuning()
	cfg.Population.Initial = 1200
	w := NewWorld(cfg, Options{Seed: 11, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, w.Genesis())

	for i := 0; i < 60; i++ {
		w.Tick()
		require.Equal(t, livingInActive(w), w.TotalPopulation(), "tick %d", i)
	}

	w.CollapseEmpire()
	for i := 0; i < 30; i++ {
		w.Tick()
		require.Equal(t, livingInActive(w), w.TotalPopulation(), "post-collapse tick %d", i)
	}
}

func TestEngineRunStopsOnCancel(t *testing.T) {
	w := testWorld(t, 300, nil)
	eng := NewEngine(w, time.Millisecond)
	var hours atomic.Int32
	eng.OnHour = func(Clock) { hours.Add(1) }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	eng.Run(ctx)

	assert.Positive(t, hours.Load())
}

func TestEngineWakesOnStoryChange(t *testing.T) {
	w := testWorld(t, 300, nil)
	eng := NewEngine(w, time.Hour)
	shared := w.Shared()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	shared.SetStoryPosition(StoryPosition{Chapter: 0, Paragraph: 3})
	require.Eventually(t, func() bool {
		return shared.Snapshot().Kingdoms[0].Jobs[agents.JobRebel] == 15
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after cancel")
	}
}

func TestEngineServesRefreshBetweenTicks(t *testing.T) {
	w := testWorld(t, 300, nil)
	eng := NewEngine(w, time.Hour)
	shared := w.Shared()

	ticked := make(chan struct{}, 1)
	eng.OnHour = func(Clock) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not run its first tick")
	}
	before := shared.Snapshot()

	shared.RequestRefresh()
	require.Eventually(t, func() bool {
		return shared.Snapshot().Version > before.Version
	}, 2*time.Second, 5*time.Millisecond)

	after := shared.Snapshot()
	assert.Equal(t, before.Clock, after.Clock, "refresh does not advance the clock")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after cancel")
	}
	assert.Len(t, ticked, 0, "no second tick within the hour")
}

func TestServeRequestsRunsPoliciesWithoutTicking(t *testing.T) {
	w := testWorld(t, 300, nil)
	clock := w.Clock
	treasury := w.Kingdoms[agents.EmpireID].Treasury

	require.NoError(t, w.Shared().HostFestival(agents.EmpireID))
	assert.False(t, w.ServeRequests())
	assert.Equal(t, treasury-w.Tuning().Kingdoms.PlayerFestivalCost, w.Kingdoms[agents.EmpireID].Treasury)
	assert.Equal(t, clock, w.Clock)

	w.Shared().SetStoryPosition(StoryPosition{Chapter: 0, Paragraph: 3})
	assert.True(t, w.ServeRequests(), "story moved since the last tick")
}

func TestEngineDayCallback(t *testing.T) {
	w := testWorld(t, 200, nil)
	eng := NewEngine(w, 0)
	var days []Clock
	eng.OnDay = func(c Clock) { days = append(days, c) }

	for i := 0; i < 21; i++ {
		eng.step()
	}
	require.Len(t, days, 1)
	assert.Equal(t, Clock{Day: 1, Hour: 23}, days[0])
}
