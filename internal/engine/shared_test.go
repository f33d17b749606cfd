package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/veloria/internal/agents"
)

func TestStorySignalTimesOut(t *testing.T) {
	s := NewStorySignal()
	start := time.Now()
	assert.False(t, s.WaitTimeout(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestStorySignalPendingChangeIsConsumed(t *testing.T) {
	s := NewStorySignal()
	s.Notify()

	start := time.Now()
	assert.True(t, s.WaitTimeout(context.Background(), time.Second))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	assert.False(t, s.WaitTimeout(context.Background(), 10*time.Millisecond))
}

func TestStorySignalWakesWaiter(t *testing.T) {
	s := NewStorySignal()
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Notify()
	}()

	start := time.Now()
	assert.True(t, s.WaitTimeout(context.Background(), 5*time.Second))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStorySignalHonorsContext(t *testing.T) {
	s := NewStorySignal()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	assert.False(t, s.WaitTimeout(ctx, 5*time.Second))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSetStoryPositionNotifiesOnlyOnChange(t *testing.T) {
	s := NewShared()
	ctx := context.Background()
	pos := StoryPosition{Chapter: 1, Paragraph: 4}

	s.SetStoryPosition(pos)
	assert.True(t, s.WaitStoryChange(ctx, time.Second))
	assert.Equal(t, pos, s.StoryPosition())
	assert.Equal(t, pos, s.Snapshot().Story)

	s.SetStoryPosition(pos)
	assert.False(t, s.WaitStoryChange(ctx, 10*time.Millisecond))
}

func TestWatchReceivesPublishedSnapshots(t *testing.T) {
	w := testWorld(t, 100, nil)
	ch, stop := w.Shared().Watch()

	w.publish()
	select {
	case snap := <-ch:
		assert.Equal(t, uint64(1), snap.Version)
		assert.Equal(t, 100, snap.Population)
	default:
		t.Fatal("no snapshot delivered")
	}

	// A full buffer drops rather than blocks.
	w.publish()
	w.publish()
	assert.Len(t, ch, 1)
	<-ch

	stop()
	w.publish()
	select {
	case <-ch:
		t.Fatal("delivered after stop")
	default:
	}
	assert.Equal(t, uint64(4), w.Shared().Snapshot().Version)
}

func TestSnapshotIsACopy(t *testing.T) {
	w := testWorld(t, 100, nil)
	w.publish()
	snap := w.Shared().Snapshot()
	food := snap.Kingdoms[agents.EmpireID].Food

	w.Kingdoms[agents.EmpireID].Food = 1
	snap.Kingdoms[agents.EmpireID].Food = 2

	assert.Equal(t, food, w.Shared().Snapshot().Kingdoms[agents.EmpireID].Food)
}

func TestRefreshRequest(t *testing.T) {
	w := testWorld(t, 100, nil)
	w.Shared().RequestRefresh()
	w.takeRequests()
	require.Equal(t, 1, w.Pending())

	w.DrainCommands()
	assert.Equal(t, uint64(1), w.Shared().Snapshot().Version)
}

func TestSnapshotViews(t *testing.T) {
	w := testWorld(t, 100, nil)
	setJobs(w, agents.JobFarmer, 0, 60)
	setJobs(w, agents.JobRebel, 60, 70)
	w.RecalculatePopulations()
	w.Kingdoms[agents.EmpireID].Divine.PenaltyDays = 3

	snap := w.Snapshot()
	empire := snap.Kingdoms[agents.EmpireID]
	assert.Equal(t, "test-world", snap.WorldID)
	assert.Equal(t, "The Empire of Veloria", empire.Name)
	assert.Equal(t, 60, empire.Jobs[agents.JobFarmer])
	assert.Equal(t, 10, empire.Jobs[agents.JobRebel])
	assert.Equal(t, 3, empire.PenaltyDays)
	assert.Equal(t, "World Pop: 100", snap.WorldPop)
	assert.False(t, snap.Kingdoms[5].Active)
}

func TestSnapshotSeason(t *testing.T) {
	w := testWorld(t, 50, nil)
	assert.Equal(t, "Spring", w.Snapshot().Season)

	w.Clock.Day = 91
	assert.Equal(t, "Summer", w.Snapshot().Season)

	w.Clock.Day = 300
	w.publish()
	assert.Equal(t, "Winter", w.Shared().Snapshot().Season)
}
