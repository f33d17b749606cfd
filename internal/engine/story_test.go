package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/social"
)

func TestStoryBeatAppliesOnce(t *testing.T) {
	w := testWorld(t, 200, nil)
	empire := &w.Kingdoms[agents.EmpireID]
	unrest := empire.Unrest
	pos := StoryPosition{Chapter: 0, Paragraph: 3}

	require.Equal(t, 2, w.ApplyStoryEffects(pos))
	assert.Zero(t, w.ApplyStoryEffects(pos), "a beat fires once")
	assert.Equal(t, 2, w.Pending())

	assert.Equal(t, 2, w.DrainCommands())
	assert.Zero(t, w.Pending())
	assert.Equal(t, unrest+1, empire.Unrest)
	assert.Equal(t, 15, countJob(w, agents.EmpireID, agents.JobRebel))
	assert.Equal(t, 15, w.JobCount(agents.EmpireID, agents.JobRebel), "conversion refreshes the census")
	assert.Equal(t, "The crossroads meeting stirs the populace...", w.Chronicle().Unread()[0].Message)
}

func TestStoryParagraphsWithoutBeats(t *testing.T) {
	w := testWorld(t, 50, nil)
	assert.Zero(t, w.ApplyStoryEffects(StoryPosition{Chapter: 0, Paragraph: 4}))
	assert.Zero(t, w.ApplyStoryEffects(StoryPosition{Chapter: 3, Paragraph: 0}))
	assert.Zero(t, w.Pending())
}

func TestRebellionChapterOpens(t *testing.T) {
	w := testWorld(t, 200, nil)
	empire := &w.Kingdoms[agents.EmpireID]

	require.Equal(t, 3, w.ApplyStoryEffects(StoryPosition{Chapter: 7, Paragraph: 0}))
	w.DrainCommands()

	assert.Equal(t, 100, empire.Unrest)
	assert.Equal(t, 200, countJob(w, agents.EmpireID, agents.JobRebel), "conversion stops at the living")
	assert.Equal(t, social.SkirmishPrevent, empire.Story.Skirmish)

	// The hold on skirmishes fires once for the whole paragraph range.
	assert.Equal(t, 1, w.ApplyStoryEffects(StoryPosition{Chapter: 7, Paragraph: 5}))
	assert.Zero(t, w.ApplyStoryEffects(StoryPosition{Chapter: 7, Paragraph: 9}))
}

func TestStoryEffectsThroughTick(t *testing.T) {
	w := testWorld(t, 200, nil)
	w.Shared().SetStoryPosition(StoryPosition{Chapter: 0, Paragraph: 3})

	w.Tick()
	assert.Equal(t, 15, countJob(w, agents.EmpireID, agents.JobRebel))
	assert.True(t, w.Story.Applied["1.3"])

	w.Tick()
	assert.Equal(t, 15, countJob(w, agents.EmpireID, agents.JobRebel), "idempotent at the same position")
	assert.Equal(t, StoryPosition{Chapter: 0, Paragraph: 3}, w.Shared().Snapshot().Story)
}

func TestCommandsAgainstInactiveKingdomsAreRefused(t *testing.T) {
	w := testWorld(t, 50, nil)
	w.Enqueue(Command{Kind: CmdUnrest, Kingdom: 3, Delta: 40})

	assert.Equal(t, 1, w.DrainCommands())
	assert.Zero(t, w.Kingdoms[3].Unrest)

	assert.ErrorIs(t, w.execute(Command{Kind: CmdUnrest, Kingdom: 3}), ErrInactiveKingdom)
	assert.ErrorIs(t, w.execute(Command{Kind: CmdMorale, Kingdom: 11}), ErrUnknownKingdom)
	assert.ErrorIs(t, w.execute(Command{Kind: CommandKind(42)}), ErrUnknownCommand)
}

func TestProductionCommand(t *testing.T) {
	w := testWorld(t, 50, nil)
	w.Enqueue(Command{Kind: CmdProduction, Kingdom: agents.EmpireID, Modifier: 0.5, FoodCap: 900})
	w.DrainCommands()

	empire := &w.Kingdoms[agents.EmpireID]
	assert.Equal(t, 0.5, empire.Story.ProductionModifier)
	assert.Equal(t, 900, empire.Story.FoodDailyCap)
}

func TestCommandKindString(t *testing.T) {
	assert.Equal(t, "battle", CmdBattle.String())
	assert.Equal(t, "refresh", CmdRefresh.String())
	assert.Equal(t, "unknown", CommandKind(200).String())
}

func TestHostFestival(t *testing.T) {
	w := testWorld(t, 100, nil)
	empire := &w.Kingdoms[agents.EmpireID]
	empire.Treasury = 2000
	empire.Unrest = 60

	require.NoError(t, w.HostFestival(agents.EmpireID))
	assert.Equal(t, 500, empire.Treasury)
	assert.Equal(t, 10, empire.Unrest)

	err := w.HostFestival(agents.EmpireID)
	assert.ErrorIs(t, err, ErrInsufficientTreasury)
	assert.Equal(t, 500, empire.Treasury)
	assert.Equal(t, 10, empire.Unrest)

	assert.ErrorIs(t, w.HostFestival(3), ErrInactiveKingdom)
	assert.ErrorIs(t, w.HostFestival(9), ErrUnknownKingdom)
}

func TestFestivalUnrestFloorsAtZero(t *testing.T) {
	w := testWorld(t, 100, nil)
	empire := &w.Kingdoms[agents.EmpireID]
	empire.Unrest = 20

	require.NoError(t, w.HostFestival(agents.EmpireID))
	assert.Zero(t, empire.Unrest)
}

func TestFestivalRequestedThroughShared(t *testing.T) {
	w := testWorld(t, 100, nil)
	empire := &w.Kingdoms[agents.EmpireID]
	treasury := empire.Treasury

	require.NoError(t, w.Shared().HostFestival(agents.EmpireID))
	assert.Equal(t, treasury, empire.Treasury, "nothing happens until the next tick")

	w.Tick()
	assert.Equal(t, treasury-w.cfg.Kingdoms.PlayerFestivalCost, empire.Treasury)
	assert.Equal(t, empire.Treasury, w.Shared().Snapshot().Kingdoms[0].Treasury)
}

func TestRequestPolicyValidation(t *testing.T) {
	s := NewShared()
	assert.ErrorIs(t, s.RequestPolicy("tax cut", agents.EmpireID), ErrUnknownPolicy)
	assert.ErrorIs(t, s.RequestPolicy(PolicyFestival, 12), ErrUnknownKingdom)
	assert.Empty(t, s.takeRequests())

	require.NoError(t, s.RequestPolicy(PolicyFestival, 4))
	reqs := s.takeRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, Command{Kind: CmdFestival, Kingdom: 4}, reqs[0])
}
