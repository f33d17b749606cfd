package engine

import (
	"context"
	"log/slog"
	"time"
)

// Engine drives a World forward in real time, one simulated hour per
// Interval scaled by Speed.
type Engine struct {
	World    *World
	Speed    float64       // 1.0 = real time, 0 = paused
	Interval time.Duration // real time per simulated hour

	// Callbacks, populated during setup.
	OnHour func(c Clock) // after every tick
	OnDay  func(c Clock) // after the tick that closes a day
}

// NewEngine creates an engine for w at normal speed.
func NewEngine(w *World, interval time.Duration) *Engine {
	return &Engine{
		World:    w,
		Speed:    1.0,
		Interval: interval,
	}
}

// Run ticks until ctx is cancelled. A tick in progress always finishes.
// Between ticks the engine sleeps, waking to serve presentation requests
// (refresh, policies) without advancing the clock. A story position change
// ends the sleep early so its effects land without waiting out the hour.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("simulation engine started", "clock", e.World.Clock.String(), "speed", e.Speed)
	shared := e.World.Shared()

	for ctx.Err() == nil {
		if e.Speed <= 0 {
			// Paused: requests are still served.
			if shared.WaitStoryChange(ctx, 100*time.Millisecond) {
				e.World.ServeRequests()
			}
			continue
		}

		start := time.Now()
		e.step()

		target := time.Duration(float64(e.Interval) / e.Speed)
		e.sleep(ctx, start.Add(target))
	}

	slog.Info("simulation engine stopped", "clock", e.World.Clock.String())
}

// sleep waits until deadline, serving requests as they arrive. It returns
// early when ctx is done or the story position moves.
func (e *Engine) sleep(ctx context.Context, deadline time.Time) {
	shared := e.World.Shared()
	for ctx.Err() == nil {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if !shared.WaitStoryChange(ctx, remaining) {
			continue
		}
		if e.World.ServeRequests() {
			slog.Debug("story position changed, waking early")
			return
		}
	}
}

// step runs one tick and its callbacks.
func (e *Engine) step() {
	before := e.World.Clock
	e.World.Tick()

	if e.OnHour != nil {
		e.OnHour(before)
	}
	if e.World.Clock.Day != before.Day && e.OnDay != nil {
		e.OnDay(before)
	}
}
