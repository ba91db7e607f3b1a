package main

import (
	"fmt"
	"math"

	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/protocol"
	"dragonpot.game/internal/sim/recipe"
	"dragonpot.game/internal/sim/round"
)

// brain plays the player role: harvest what the pot needs, carry it over and
// drop it in. It only sends an action when its intent changes.
type brain struct {
	reach   float64
	restart bool

	seq      int
	lastKey  string
	lastTick uint64
}

// resendTicks repeats an unchanged intent in case the first try was lost.
const resendTicks = 40

func (b *brain) next(tm *observerproto.TickMsg) *protocol.ActMsg {
	act, key := b.plan(tm)
	if act == nil {
		return nil
	}
	if key == b.lastKey && tm.Tick-b.lastTick < resendTicks {
		return nil
	}
	b.lastKey = key
	b.lastTick = tm.Tick
	b.seq++
	act.Type = protocol.TypeAct
	act.ProtocolVersion = protocol.Version
	act.ID = fmt.Sprintf("B%d", b.seq)
	act.Tick = tm.Tick
	return act
}

func (b *brain) plan(tm *observerproto.TickMsg) (*protocol.ActMsg, string) {
	if tm.Round.Outcome != round.Playing {
		if b.restart {
			return &protocol.ActMsg{Action: protocol.ActRestart}, "restart:" + tm.RoundID
		}
		return nil, ""
	}
	me := tm.Player.Pos
	need := needed(tm.Station.Recipe)

	if len(tm.Player.Carried) > 0 {
		pot := tm.Station.Pos
		if distXZ(me, pot) <= b.reach {
			return &protocol.ActMsg{Action: protocol.ActDrop}, fmt.Sprintf("drop:%d", len(tm.Player.Carried))
		}
		return moveTo(approach(me, pot, 1)), "pot"
	}

	if it, ok := nearestItem(tm.Items, me, need); ok {
		if distXZ(me, it.Pos) <= b.reach {
			return &protocol.ActMsg{Action: protocol.ActPickup, Target: it.ID}, "pickup:" + it.ID
		}
		return moveTo(it.Pos), "item:" + it.ID
	}

	if pl, ok := nearestPlant(tm.Plants, me, need); ok {
		if tm.Player.Harvesting == pl.ID {
			return nil, ""
		}
		if distXZ(me, pl.Pos) <= b.reach {
			return &protocol.ActMsg{Action: protocol.ActHarvestStart, Target: pl.ID}, "harvest:" + pl.ID
		}
		return moveTo(pl.Pos), "plant:" + pl.ID
	}
	return nil, ""
}

// needed returns the crops still missing. A nil map means any crop will do
// (the recipe is hidden).
func needed(r *recipe.Recipe) map[string]bool {
	if r == nil {
		return nil
	}
	out := map[string]bool{}
	for _, in := range r.Ingredients {
		if in.Current < in.Required {
			out[in.Crop.String()] = true
		}
	}
	return out
}

func wants(need map[string]bool, crop string) bool {
	return need == nil || need[crop]
}

func nearestItem(items []observerproto.ItemState, me [3]float64, need map[string]bool) (observerproto.ItemState, bool) {
	var best observerproto.ItemState
	bestD := math.Inf(1)
	for _, it := range items {
		if it.Carrier != "" || !wants(need, it.Crop) {
			continue
		}
		if d := distXZ(me, it.Pos); d < bestD {
			best, bestD = it, d
		}
	}
	return best, !math.IsInf(bestD, 1)
}

func nearestPlant(plants []observerproto.PlantState, me [3]float64, need map[string]bool) (observerproto.PlantState, bool) {
	var best observerproto.PlantState
	bestD := math.Inf(1)
	for _, p := range plants {
		if p.State != "FULL" || p.Harvester != "" || !wants(need, p.Crop) {
			continue
		}
		if d := distXZ(me, p.Pos); d < bestD {
			best, bestD = p, d
		}
	}
	return best, !math.IsInf(bestD, 1)
}

func moveTo(p [3]float64) *protocol.ActMsg {
	return &protocol.ActMsg{Action: protocol.ActMove, Pos: &[3]float64{p[0], 0, p[2]}}
}

// approach returns the point short of target by gap along the line from me.
func approach(me, target [3]float64, gap float64) [3]float64 {
	dx, dz := me[0]-target[0], me[2]-target[2]
	d := math.Hypot(dx, dz)
	if d <= gap || d == 0 {
		return me
	}
	return [3]float64{target[0] + dx/d*gap, 0, target[2] + dz/d*gap}
}

func distXZ(a, b [3]float64) float64 {
	return math.Hypot(a[0]-b[0], a[2]-b[2])
}
