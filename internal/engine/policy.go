// Manual policies the player can invoke from the presentation side.
package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/veloria/internal/agents"
)

var (
	ErrUnknownKingdom       = errors.New("unknown kingdom")
	ErrInactiveKingdom      = errors.New("kingdom is not active")
	ErrInsufficientTreasury = errors.New("insufficient treasury")
	ErrUnknownPolicy        = errors.New("unknown policy")
	ErrUnknownCommand       = errors.New("unknown command")
)

// Policy names accepted by Shared.RequestPolicy.
const (
	PolicyFestival = "festival"
)

// policyCommands maps a policy name to the command that carries it out.
var policyCommands = map[string]CommandKind{
	PolicyFestival: CmdFestival,
}

// HostFestival spends the festival cost from a kingdom's treasury to calm its
// people. The check runs against the live kingdom, so a request queued
// against a stale snapshot can still be refused here.
func (w *World) HostFestival(id agents.KingdomID) error {
	k := w.Kingdoms.Get(id)
	if k == nil {
		return fmt.Errorf("festival: kingdom %d: %w", id, ErrUnknownKingdom)
	}
	if !k.Active {
		return fmt.Errorf("festival: %s: %w", k.Name, ErrInactiveKingdom)
	}
	kc := w.cfg.Kingdoms
	if !k.CanAfford(kc.PlayerFestivalCost) {
		w.emit("policy", "The treasury of %s cannot pay for a festival", k.Name)
		return fmt.Errorf("festival: %s has %d of %d bronze: %w", k.Name, k.Treasury, kc.PlayerFestivalCost, ErrInsufficientTreasury)
	}
	k.Treasury -= kc.PlayerFestivalCost
	k.AddUnrest(-kc.PlayerFestivalUnrestDrop)
	w.emit("policy", "A grand festival is held in %s! Unrest eases", k.Name)
	w.publish()
	return nil
}
