package protocol

import (
	"fmt"
	"math"
)

// Player actions.
const (
	ActMove         = "MOVE"
	ActHarvestStart = "HARVEST_START"
	ActHarvestStop  = "HARVEST_STOP"
	ActPickup       = "PICKUP"
	ActThrow        = "THROW"
	ActDrop         = "DROP"
	ActRestart      = "RESTART"
)

// ACT (client -> server): one player action, applied at the next tick
// boundary.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Tick            uint64 `json:"tick,omitempty"`
	Action          string `json:"action"`

	// Target is a plant id (HARVEST_START) or an item/NPC id (PICKUP).
	Target string `json:"target,omitempty"`
	// Pos is the MOVE destination.
	Pos *[3]float64 `json:"pos,omitempty"`
	// Dir and Strength (0..1) shape a THROW.
	Dir      *[3]float64 `json:"dir,omitempty"`
	Strength float64     `json:"strength,omitempty"`
}

// ACT_RESULT (server -> client).
type ActResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Action          string `json:"action"`
	Tick            uint64 `json:"tick"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

// Validate checks the shape of an action. It does not look at world state.
func (m ActMsg) Validate() (code, msg string) {
	if m.Type != TypeAct {
		return ErrProtoBadRequest, fmt.Sprintf("unexpected type %q", m.Type)
	}
	switch m.Action {
	case ActMove:
		if m.Pos == nil || !finite(m.Pos[:]...) {
			return ErrBadRequest, "MOVE needs pos"
		}
	case ActHarvestStart, ActPickup:
		if m.Target == "" {
			return ErrBadRequest, m.Action + " needs target"
		}
	case ActThrow:
		if m.Dir == nil || !finite(m.Dir[:]...) || !finite(m.Strength) {
			return ErrBadRequest, "THROW needs dir"
		}
		if m.Strength < 0 || m.Strength > 1 {
			return ErrBadRequest, "strength must be in [0,1]"
		}
	case ActHarvestStop, ActDrop, ActRestart:
	default:
		return ErrBadRequest, fmt.Sprintf("unknown action %q", m.Action)
	}
	return "", ""
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
