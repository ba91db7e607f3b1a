package world

import (
	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/protocol"
)

type GameEvent = observerproto.GameEvent

// ActionEnvelope is a player action on its way into the world loop.
// SessionID names the observer session that receives the ACT_RESULT.
type ActionEnvelope struct {
	SessionID string
	Act       protocol.ActMsg
}

type RecordedAction = observerproto.RecordedAction

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type EventLogger interface {
	WriteEvent(ev GameEvent) error
}

// ResultRecorder receives every finished round.
type ResultRecorder interface {
	RecordRound(res RoundResult) error
}

type TickLogEntry struct {
	Tick    uint64           `json:"tick"`
	RoundID string           `json:"round_id"`
	Actions []RecordedAction `json:"actions,omitempty"`
	Digest  string           `json:"digest"`
}

type RoundResult struct {
	RoundID      string  `json:"round_id"`
	WorldID      string  `json:"world_id"`
	Seed         int64   `json:"seed"`
	Outcome      string  `json:"outcome"`
	Score        int     `json:"score"`
	Completed    int     `json:"completed"`
	Swaps        int     `json:"swaps"`
	Satisfaction int     `json:"satisfaction"`
	Patience     int     `json:"patience"`
	Elapsed      float64 `json:"elapsed"`
	StartTick    uint64  `json:"start_tick"`
	EndTick      uint64  `json:"end_tick"`
	Number       int     `json:"round"`

	// Final is the arena as it stood when the round ended.
	Final *observerproto.TickMsg `json:"-"`
}

// ObserverJoinRequest registers an observer session. TickOut receives TICK
// messages and ACT_RESULT replies.
//
// All observer state is maintained by the world loop goroutine.
type ObserverJoinRequest struct {
	SessionID  string
	TickOut    chan []byte
	EveryTicks int
	Events     bool
}

// ObserverSubscribeRequest updates an existing observer session.
type ObserverSubscribeRequest struct {
	SessionID  string
	EveryTicks int
	Events     bool
}

// AdminRestart is the envelope an operator uses to restart the round.
func AdminRestart() ActionEnvelope {
	return ActionEnvelope{SessionID: "admin", Act: protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ID:              "admin-restart",
		Action:          protocol.ActRestart,
	}}
}
