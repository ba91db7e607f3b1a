package world

import (
	"fmt"
	"strings"

	"dragonpot.game/internal/protocol"
	"dragonpot.game/internal/sim/geom"
)

const PlayerID = "PLAYER"

type Player struct {
	ID  string
	Pos geom.Vec3

	moveTo    geom.Vec3
	moving    bool
	Carried   []string
	harvestID string
}

func newPlayer(spawn geom.Vec3) *Player {
	return &Player{ID: PlayerID, Pos: spawn}
}

type reply struct {
	sessionID string
	msg       protocol.ActResultMsg
}

type actionError struct {
	code string
	msg  string
}

func (e *actionError) Error() string { return e.code + ": " + e.msg }

func reject(code, format string, args ...any) *actionError {
	return &actionError{code: code, msg: fmt.Sprintf(format, args...)}
}

// applyAct runs one player action. Rejections become ACT_RESULT replies,
// never panics.
func (w *World) applyAct(env ActionEnvelope, nowTick uint64) {
	act := env.Act
	res := protocol.ActResultMsg{
		Type:            protocol.TypeActResult,
		ProtocolVersion: protocol.Version,
		ID:              act.ID,
		Action:          act.Action,
		Tick:            nowTick,
		Accepted:        true,
	}
	if err := w.dispatchAct(act); err != nil {
		res.Accepted = false
		res.Code = err.code
		res.Message = err.msg
	}
	if env.SessionID != "" {
		w.replies = append(w.replies, reply{sessionID: env.SessionID, msg: res})
	}
}

func (w *World) dispatchAct(act protocol.ActMsg) *actionError {
	if code, msg := act.Validate(); code != "" {
		return &actionError{code: code, msg: msg}
	}
	if act.Action == protocol.ActRestart {
		w.restart("player")
		return nil
	}
	if w.round.Over() {
		return reject(protocol.ErrRoundOver, "round is over")
	}
	p := w.player
	switch act.Action {
	case protocol.ActMove:
		w.stopPlayerHarvest()
		p.moveTo = geom.V(act.Pos[0], 0, act.Pos[2])
		p.moving = true
	case protocol.ActHarvestStart:
		return w.playerHarvest(act.Target)
	case protocol.ActHarvestStop:
		w.stopPlayerHarvest()
	case protocol.ActPickup:
		return w.playerPickup(act.Target)
	case protocol.ActThrow:
		return w.playerRelease(true, geom.V(act.Dir[0], act.Dir[1], act.Dir[2]), act.Strength)
	case protocol.ActDrop:
		return w.playerRelease(false, geom.Vec3{}, 0)
	}
	return nil
}

func (w *World) playerHarvest(plantID string) *actionError {
	p := w.player
	pl := w.plants[plantID]
	if pl == nil {
		return reject(protocol.ErrInvalidTarget, "no plant %s", plantID)
	}
	if pl.Pos.DistXZ(p.Pos) > w.tune.Player.Reach {
		return reject(protocol.ErrOutOfReach, "plant %s out of reach", plantID)
	}
	if p.harvestID == plantID && pl.Harvester() == p.ID {
		return nil
	}
	if pl.Harvesting() {
		return reject(protocol.ErrConflict, "plant %s is being harvested by %s", plantID, pl.Harvester())
	}
	if !pl.CanHarvest() {
		return reject(protocol.ErrBlocked, "plant %s is %s", plantID, pl.State())
	}
	w.stopPlayerHarvest()
	pl.StartHarvest(p.ID)
	p.harvestID = plantID
	p.moving = false
	return nil
}

func (w *World) stopPlayerHarvest() {
	p := w.player
	if p.harvestID == "" {
		return
	}
	if pl := w.plants[p.harvestID]; pl != nil && pl.Harvester() == p.ID {
		pl.StopHarvest()
	}
	p.harvestID = ""
}

func (w *World) playerPickup(target string) *actionError {
	p := w.player
	if len(p.Carried) >= w.tune.Player.MaxCarry {
		return reject(protocol.ErrNoResource, "hands full")
	}
	if n := w.npcs[target]; n != nil {
		if n.Held() {
			return reject(protocol.ErrConflict, "%s already held", target)
		}
		if n.Pos.DistXZ(p.Pos) > w.tune.Player.Reach {
			return reject(protocol.ErrOutOfReach, "%s out of reach", target)
		}
		n.PickUp(npcEnv{w})
		if z := w.zones[n.ZoneID]; z != nil && z.WorkerID == n.ID {
			z.WorkerID = ""
		}
		n.LeaveZone()
		p.Carried = append(p.Carried, n.ID)
		return nil
	}
	it := w.items[target]
	if it == nil {
		return reject(protocol.ErrInvalidTarget, "no item or npc %s", target)
	}
	if !it.Free() {
		return reject(protocol.ErrConflict, "%s is held by %s", target, it.CarrierID)
	}
	if it.Pos.DistXZ(p.Pos) > w.tune.Player.Reach {
		return reject(protocol.ErrOutOfReach, "%s out of reach", target)
	}
	it.Claim(p.ID)
	it.Attached = true
	p.Carried = append(p.Carried, it.ID)
	w.restackPlayer()
	return nil
}

// playerRelease throws or places the top of the carried stack.
func (w *World) playerRelease(thrown bool, dir geom.Vec3, strength float64) *actionError {
	p := w.player
	if len(p.Carried) == 0 {
		return reject(protocol.ErrNoResource, "not carrying anything")
	}
	id := p.Carried[len(p.Carried)-1]
	p.Carried = p.Carried[:len(p.Carried)-1]

	now := w.now()
	var vel geom.Vec3
	pos := p.Pos.Add(geom.Up.Scale(1.5))
	if thrown {
		flat := dir.Flat().Normalize()
		speed := strength * w.tune.Player.MaxThrowSpeed
		vel = flat.Scale(speed).Add(geom.Up.Scale(w.tune.Player.ThrowLift * strength))
	} else {
		pos = p.Pos.Add(geom.V(0, 0.5, 0))
	}

	if n := w.npcs[id]; n != nil {
		n.Pos = pos
		if !thrown {
			n.Pos.Y = 0
		}
		n.Drop(now, thrown, vel)
		w.restackPlayer()
		return nil
	}
	if it := w.items[id]; it != nil {
		it.Release(pos, vel, now)
		if thrown {
			it.ThrownAt = now
		}
	}
	w.restackPlayer()
	return nil
}

// restackPlayer lays carried items out above the player's head.
func (w *World) restackPlayer() {
	for i, id := range w.player.Carried {
		if it := w.items[id]; it != nil {
			it.Offset = geom.V(0, 2+0.5*float64(i), 0)
		}
	}
}

// restart abandons the current round, recording it, and starts a new one.
func (w *World) restart(by string) {
	if !w.roundClosed {
		w.closeRound("RESTARTED")
	}
	w.log.Printf("round restart requested by %s", strings.ToLower(by))
	w.done.Store(false)
	w.startRound()
}
