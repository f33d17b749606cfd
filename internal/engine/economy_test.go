package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/config"
)

func TestBatchFor(t *testing.T) {
	w := testWorld(t, 100, nil)

	assert.Equal(t, Batch{Index: 0, Lo: 0, Hi: 33}, w.BatchFor(4))
	assert.Equal(t, Batch{Index: 1, Lo: 33, Hi: 66}, w.BatchFor(10))
	assert.Equal(t, Batch{Index: 2, Lo: 66, Hi: 100}, w.BatchFor(22), "last batch takes the remainder")
}

func TestAssignOccupationsOnlyEmploysTheJobless(t *testing.T) {
	w := testWorld(t, 60, nil)
	setJobs(w, agents.JobRebel, 0, 10)

	n := w.AssignOccupations(Batch{Lo: 0, Hi: 60})
	assert.Equal(t, 50, n)
	for i, a := range w.Agents.All() {
		if i < 10 {
			assert.Equal(t, agents.JobRebel, a.Job)
			continue
		}
		assert.True(t, a.Job.IsCivilian(), "agent %d got %s", i, a.Job)
	}
}

func TestFamineScenario(t *testing.T) {
	w := testWorld(t, 100, nil)
	empire := &w.Kingdoms[agents.EmpireID]
	empire.Food = 0
	unrest := empire.Unrest

	w.DailyNeeds(Batch{Lo: 0, Hi: 100})

	assert.Equal(t, unrest+w.cfg.Economy.FamineUnrestGain, empire.Unrest, "famine is declared once per call")
	assert.Less(t, w.Agents.Living(), 100)
	assert.Zero(t, empire.Food)
	assert.Contains(t, w.Chronicle().Unread()[0].Message, "FAMINE")
}

func TestDailyNeedsProducesAndFeeds(t *testing.T) {
	w := testWorld(t, 300, nil)
	setJobs(w, agents.JobFarmer, 0, 300)
	empire := &w.Kingdoms[agents.EmpireID]
	empire.Food = 1000
	for i := range w.Agents.All() {
		w.Agents.At(i).Stats.Hunger = 0
	}

	w.DailyNeeds(Batch{Lo: 0, Hi: 300})

	assert.Equal(t, 300, w.Agents.Living())
	fed := 0
	for _, a := range w.Agents.All() {
		if a.Stats.Hunger > 0 {
			fed++
		}
	}
	assert.Positive(t, fed)
}

func TestRebelsDoNotEat(t *testing.T) {
	w := testWorld(t, 50, nil)
	setJobs(w, agents.JobRebel, 0, 50)
	empire := &w.Kingdoms[agents.EmpireID]
	empire.Food = 5000
	for i := range w.Agents.All() {
		w.Agents.At(i).Stats.Hunger = 0
	}

	w.DailyNeeds(Batch{Lo: 0, Hi: 50})

	assert.Equal(t, 5000, empire.Food)
}

func TestFoodDailyCap(t *testing.T) {
	w := testWorld(t, 100, nil)
	setJobs(w, agents.JobFarmer, 0, 100)
	empire := &w.Kingdoms[agents.EmpireID]
	empire.Food = 50000
	empire.Story.FoodDailyCap = 100

	w.DailyNeeds(Batch{Lo: 0, Hi: 100})

	assert.LessOrEqual(t, empire.Food, 100)
}

func TestPaymentsSkipRebelsAndJobless(t *testing.T) {
	w := testWorld(t, 30, nil)
	setJobs(w, agents.JobSwordsman, 0, 10)
	setJobs(w, agents.JobRebel, 10, 20)

	paid := w.Payments(Batch{Lo: 0, Hi: 30})

	assert.GreaterOrEqual(t, paid, 10*20, "soldiers earn at least their base")
	start := w.cfg.Population.StartingBronze
	for i, a := range w.Agents.All() {
		if i < 10 {
			assert.Greater(t, a.Bronze, start)
		} else {
			assert.Equal(t, start, a.Bronze, "agent %d", i)
		}
	}
}

func TestCollectTaxes(t *testing.T) {
	w := testWorld(t, 100, nil)
	w.Agents.At(0).Bronze = 0
	empire := &w.Kingdoms[agents.EmpireID]
	treasury, unrest := empire.Treasury, empire.Unrest

	got := w.CollectTaxes(agents.EmpireID)

	assert.Equal(t, 99*w.cfg.Economy.TaxPerPerson, got, "the penniless pay nothing")
	assert.Equal(t, treasury+got, empire.Treasury)
	assert.Equal(t, unrest+1, empire.Unrest)
}

func TestCollectTaxesUnderDivinePenalty(t *testing.T) {
	w := testWorld(t, 100, nil)
	empire := &w.Kingdoms[agents.EmpireID]
	empire.ApplyDivinePenalty(0.75, 1, 3)

	got := w.CollectTaxes(agents.EmpireID)

	assert.Equal(t, int(float64(100*w.cfg.Economy.TaxPerPerson)*0.75), got)
}

func TestRecruitSoldiers(t *testing.T) {
	w := testWorld(t, 100, nil)
	setJobs(w, agents.JobFarmer, 0, 100)
	w.RecalculatePopulations()
	empire := &w.Kingdoms[agents.EmpireID]

	empire.Unrest = 10
	assert.Zero(t, w.RecruitSoldiers(agents.EmpireID), "calm kingdoms do not recruit")

	empire.Unrest = 40
	got := w.RecruitSoldiers(agents.EmpireID)
	assert.Equal(t, 5+40/20, got)

	soldiers := 0
	for _, j := range agents.SoldierJobs {
		soldiers += countJob(w, agents.EmpireID, j)
	}
	assert.Equal(t, got, soldiers)
}

func TestRecruitStopsWhenUnaffordable(t *testing.T) {
	w := testWorld(t, 100, nil)
	setJobs(w, agents.JobFarmer, 0, 100)
	w.RecalculatePopulations()
	empire := &w.Kingdoms[agents.EmpireID]
	empire.Unrest = 100
	empire.Metal = 0
	empire.Wood = 7 // one archer

	require.Equal(t, 1, w.RecruitSoldiers(agents.EmpireID))
	assert.Equal(t, 1, countJob(w, agents.EmpireID, agents.JobArcher))
	assert.Equal(t, 2, empire.Wood)
}

func TestBlacksmithsNeedConfiguredMetal(t *testing.T) {
	w := testWorld(t, 100, func(cfg *config.Tuning) {
		cfg.Economy.BlacksmithMetal = 4
	})
	setJobs(w, agents.JobBlacksmith, 0, 100)
	empire := &w.Kingdoms[agents.EmpireID]
	empire.Food = 100000
	empire.Metal = 10

	for i := 0; i < 5; i++ {
		w.DailyNeeds(Batch{Lo: 0, Hi: 100})
		require.GreaterOrEqual(t, empire.Metal, 0, "round %d", i)
	}
	assert.Equal(t, 2, empire.Metal, "two shifts fit in ten metal")
}
