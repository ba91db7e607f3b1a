package npc

import (
	"dragonpot.game/internal/sim/geom"
	"dragonpot.game/internal/sim/tasks"
)

type pickupStep uint8

const (
	pickupSettle pickupStep = iota
	pickupSnap
	pickupHold
)

// pickup is the multi-tick procedure of lifting one item onto the stack.
type pickup struct {
	itemID string
	step   pickupStep
	slot   int
	wait   tasks.TickWait
	hold   tasks.Timer
}

// StartPickup claims a free item. It fails when the NPC is already
// lifting something, is at capacity, or the item is held or claimed.
func (n *NPC) StartPickup(env Env, itemID string) bool {
	if n.pickup != nil || len(n.Carried) >= n.cfg.MaxCarry {
		return false
	}
	it := env.Item(itemID)
	if !it.Free() {
		return false
	}
	it.Claim(n.ID)
	n.pickup = &pickup{
		itemID: itemID,
		step:   pickupSettle,
		wait:   tasks.TickWait{Left: n.cfg.PickupSettleTicks},
	}
	return true
}

func (n *NPC) stepPickup(env Env, dt float64) {
	p := n.pickup
	it := env.Item(p.itemID)
	if it == nil || it.Destroyed || it.CarrierID != n.ID {
		n.removeCarried(p.itemID)
		n.pickup = nil
		return
	}
	switch p.step {
	case pickupSettle:
		if !p.wait.Step() {
			return
		}
		n.Carried = append(n.Carried, it.ID)
		p.slot = len(n.Carried) - 1
		it.Attached = true
		it.Offset = it.Pos.Sub(n.Pos)
		p.step = pickupSnap
		p.wait = tasks.TickWait{Left: 1}
	case pickupSnap:
		if !p.wait.Step() {
			return
		}
		it.Offset = n.carryOffset(p.slot)
		p.step = pickupHold
		p.hold.Start(n.cfg.PickupHoldSeconds)
	case pickupHold:
		if want := n.carryOffset(p.slot); it.Offset.Dist(want) > n.cfg.PickupDriftLimit {
			it.Offset = want
		}
		if p.hold.Advance(dt) {
			n.pickup = nil
			n.Stats.PickedUp++
		}
	}
}

func (n *NPC) carryOffset(slot int) geom.Vec3 {
	return geom.V(0, n.cfg.CarryBaseHeight+n.cfg.CarryStackStep*float64(slot), 0)
}

// holdCarried keeps the stack in place and drops references to items that
// no longer exist.
func (n *NPC) holdCarried(env Env) {
	kept := n.Carried[:0]
	for _, id := range n.Carried {
		it := env.Item(id)
		if it == nil || it.Destroyed || it.CarrierID != n.ID {
			continue
		}
		kept = append(kept, id)
	}
	n.Carried = kept

	for i, id := range n.Carried {
		it := env.Item(id)
		lifting := n.pickup != nil && n.pickup.itemID == id && n.pickup.step != pickupHold
		if !lifting {
			if want := n.carryOffset(i); it.Offset.Dist(want) > n.cfg.CarriedDriftLimit {
				it.Offset = want
			}
		}
		it.Pos = n.Pos.Add(it.Offset)
	}
}

func (n *NPC) removeCarried(id string) {
	for i, c := range n.Carried {
		if c == id {
			n.Carried = append(n.Carried[:i], n.Carried[i+1:]...)
			return
		}
	}
}

// abortPickup gives a half-lifted item back to physics where it is.
func (n *NPC) abortPickup(env Env) {
	p := n.pickup
	if p == nil {
		return
	}
	n.pickup = nil
	it := env.Item(p.itemID)
	if it == nil || it.CarrierID != n.ID {
		return
	}
	n.removeCarried(p.itemID)
	it.Release(it.Pos, geom.Vec3{}, env.Now())
}

// dropAll scatters the carried stack around the NPC.
func (n *NPC) dropAll(env Env) {
	rng := env.Rand()
	s := n.cfg.DropScatter
	for _, id := range n.Carried {
		it := env.Item(id)
		if it == nil || it.CarrierID != n.ID {
			continue
		}
		pos := n.Pos.Add(geom.Up).Add(geom.V(uniform(rng.Float64(), -s, s), 0, uniform(rng.Float64(), -s, s)))
		vel := geom.V(uniform(rng.Float64(), -1, 1), uniform(rng.Float64(), 1, 2), uniform(rng.Float64(), -1, 1))
		it.Release(pos, vel, env.Now())
	}
	n.Carried = n.Carried[:0]
}

func uniform(f, lo, hi float64) float64 { return lo + f*(hi-lo) }
