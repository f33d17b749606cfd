package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/veloria/internal/config"
)

func TestInitializePopulation(t *testing.T) {
	cfg := config.DefaultTuning().Population
	s := NewStore(0, cfg.GrowthFactor, 0)
	require.NoError(t, NewSpawner(9, cfg).InitializePopulation(s, 200))

	require.Equal(t, 200, s.Len())
	for _, a := range s.All() {
		assert.True(t, a.Alive)
		assert.Equal(t, JobNone, a.Job)
		assert.Equal(t, EmpireID, a.Kingdom)
		assert.Equal(t, cfg.StartingHealth, a.Stats.Health)
		assert.Equal(t, cfg.StartingBronze, a.Bronze)
		assert.GreaterOrEqual(t, a.Stats.Damage, 1)
		assert.LessOrEqual(t, a.Stats.Damage, cfg.InitialStatMax)
	}
}

func TestBirthsAfterCollapseJoinSuccessors(t *testing.T) {
	cfg := config.DefaultTuning().Population
	s := NewStore(0, cfg.GrowthFactor, 0)
	sp := NewSpawner(4, cfg)

	n, err := sp.Births(s, 300, true)
	require.NoError(t, err)
	require.Equal(t, 300, n)

	seen := map[KingdomID]bool{}
	for _, a := range s.All() {
		assert.True(t, a.Kingdom.IsSuccessor(), "kingdom %d", a.Kingdom)
		assert.Less(t, a.Stats.Speed, cfg.NewbornStatMax)
		seen[a.Kingdom] = true
	}
	assert.Len(t, seen, NumKingdoms-1)

	_, err = sp.Births(s, 5, false)
	require.NoError(t, err)
	assert.Equal(t, EmpireID, s.At(s.Len()-1).Kingdom)
}

func TestReinforcements(t *testing.T) {
	cfg := config.DefaultTuning().Population
	s := NewStore(0, cfg.GrowthFactor, 0)
	sp := NewSpawner(4, cfg)

	require.NoError(t, sp.Reinforcements(s, 25, JobSwordsman, 3))
	require.Equal(t, 25, s.Len())
	for _, a := range s.All() {
		assert.Equal(t, JobSwordsman, a.Job)
		assert.Equal(t, KingdomID(3), a.Kingdom)
		assert.Equal(t, cfg.ReinforcementDamage, a.Stats.Damage)
		assert.Equal(t, cfg.ReinforcementDefense, a.Stats.Defense)
	}

	assert.Error(t, sp.Reinforcements(s, 1, JobSwordsman, NumKingdoms))
}

func TestAssignInitialJobs(t *testing.T) {
	cfg := config.DefaultTuning().Population
	cfg.GeneralSpawnChancePct = 100
	s := NewStore(0, cfg.GrowthFactor, 0)
	sp := NewSpawner(11, cfg)
	require.NoError(t, sp.InitializePopulation(s, 5000))

	generals := sp.AssignInitialJobs(s)
	assert.Equal(t, cfg.InitialGeneralLimit, generals)

	counts := [NumJobs]int{}
	leaders := 0
	for _, a := range s.All() {
		counts[a.Job]++
		if a.IsLeader {
			leaders++
			assert.Equal(t, JobSwordsman, a.Job)
		}
	}
	assert.Equal(t, generals, leaders)
	assert.Zero(t, counts[JobNone])
	assert.Zero(t, counts[JobRebel])
	assert.Zero(t, counts[JobButcher])
	// farmers take about half
	assert.InDelta(t, 2500, counts[JobFarmer], 250)
	assert.InDelta(t, 250, counts[JobArcher], 100)
}

func TestJobClassification(t *testing.T) {
	for _, j := range CivilianJobs {
		assert.True(t, j.IsCivilian(), j.String())
		assert.False(t, j.IsSoldier(), j.String())
	}
	for _, j := range SoldierJobs {
		assert.True(t, j.IsSoldier(), j.String())
	}
	assert.False(t, JobRebel.IsSoldier())
	assert.False(t, JobRebel.IsCivilian())
	assert.Equal(t, "unknown", Job(42).String())
	assert.False(t, EmpireID.IsSuccessor())
}

func TestQuirkMaskRoundTrip(t *testing.T) {
	a := Agent{Quirks: [NumQuirks]bool{true, false, true}}
	m := a.QuirkMask()
	var b Agent
	b.SetQuirkMask(m)
	assert.Equal(t, a.Quirks, b.Quirks)
}
