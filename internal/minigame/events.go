package minigame

import (
	"github.com/google/uuid"

	"github.com/playperu/minigames/internal/events"
	"github.com/playperu/minigames/internal/lifecycle"
	"github.com/playperu/minigames/internal/physical"
)

const (
	KindRoundStart      = "round_start"
	KindStageChange     = "stage_change"
	KindTimerTick       = "timer_tick"
	KindTimerChange     = "timer_change"
	KindTimerStop       = "timer_stop"
	KindRoundEnd        = "round_end"
	KindChallengerJoin  = "challenger_join"
	KindJoinRejected    = "challenger_join_rejected"
	KindChallengerLeave = "challenger_leave"
	KindArenaRollback   = "arena_rollback"
)

// roundEvent is embedded by events about a round.
type roundEvent struct {
	Round *Round
}

func (e roundEvent) ArenaID() string { return e.Round.arena.id }
func (e roundEvent) RoundID() string { return e.Round.id.String() }

// RoundStart is published once a round has been created and its arena
// snapshot taken.
type RoundStart struct {
	roundEvent
	Stage lifecycle.Stage
}

func (*RoundStart) Kind() string { return KindRoundStart }
func (e *RoundStart) Payload() any {
	return map[string]any{"stage": e.Stage}
}

// StageChange is published before a round moves to another stage. Cancelling
// it keeps the round where it is.
type StageChange struct {
	events.Cancel
	roundEvent
	Before lifecycle.Stage
	After  lifecycle.Stage
	// Expired is set when the change was caused by the timer running out.
	Expired bool
}

func (*StageChange) Kind() string { return KindStageChange }
func (e *StageChange) Payload() any {
	return map[string]any{"before": e.Before, "after": e.After, "expired": e.Expired}
}

// TimerTick is published each time a running timer advances.
type TimerTick struct {
	roundEvent
	Old, New int64
}

func (*TimerTick) Kind() string { return KindTimerTick }
func (e *TimerTick) Payload() any {
	return map[string]any{"old": e.Old, "new": e.New}
}

// TimerChange is published when the timer is set by hand.
type TimerChange struct {
	roundEvent
	Old, New int64
}

func (*TimerChange) Kind() string { return KindTimerChange }
func (e *TimerChange) Payload() any {
	return map[string]any{"old": e.Old, "new": e.New}
}

// TimerStop is published when a running timer is stopped.
type TimerStop struct {
	roundEvent
	Time int64
}

func (*TimerStop) Kind() string { return KindTimerStop }
func (e *TimerStop) Payload() any {
	return map[string]any{"time": e.Time}
}

// RoundEnd is published after a round has been orphaned. The round itself
// can no longer be queried, so the event carries its final state.
type RoundEnd struct {
	roundEvent
	Natural    bool
	FinalStage lifecycle.Stage
	// Challengers is how many players joined over the round's life.
	Challengers int
}

func (*RoundEnd) Kind() string { return KindRoundEnd }
func (e *RoundEnd) Payload() any {
	return map[string]any{"natural": e.Natural, "finalStage": e.FinalStage, "challengers": e.Challengers}
}

// ChallengerJoin is published after a player has entered a round.
type ChallengerJoin struct {
	roundEvent
	Challenger *Challenger
	Spawn      physical.Location3D
}

func (*ChallengerJoin) Kind() string { return KindChallengerJoin }
func (e *ChallengerJoin) Payload() any {
	return map[string]any{"player": e.Challenger.id, "name": e.Challenger.name, "spawn": e.Spawn}
}

// ChallengerJoinRejected is published when a join attempt did not succeed.
type ChallengerJoinRejected struct {
	roundEvent
	Player uuid.UUID
	Result JoinResult
}

func (*ChallengerJoinRejected) Kind() string { return KindJoinRejected }
func (e *ChallengerJoinRejected) Payload() any {
	p := map[string]any{"player": e.Player, "status": e.Result.Status().String()}
	if err := e.Result.Err(); err != nil {
		p["error"] = err.Error()
	}
	return p
}

// ChallengerLeave is published before a challenger is removed. Listeners may
// change ReturnLocation or clear Relocate.
type ChallengerLeave struct {
	roundEvent
	Challenger     *Challenger
	ReturnLocation physical.Location3D
	Relocate       bool
	// RoundEnding is set when the removal is part of ending the round.
	RoundEnding bool
}

func (*ChallengerLeave) Kind() string { return KindChallengerLeave }
func (e *ChallengerLeave) Payload() any {
	return map[string]any{"player": e.Challenger.id, "name": e.Challenger.name, "roundEnding": e.RoundEnding}
}

// ArenaRollback is published after an arena restore attempt.
type ArenaRollback struct {
	Arena *Arena
	Cells int
	Err   error
}

func (*ArenaRollback) Kind() string     { return KindArenaRollback }
func (e *ArenaRollback) ArenaID() string { return e.Arena.id }
func (e *ArenaRollback) RoundID() string { return "" }
func (e *ArenaRollback) Payload() any {
	p := map[string]any{"cells": e.Cells}
	if e.Err != nil {
		p["error"] = e.Err.Error()
	}
	return p
}
