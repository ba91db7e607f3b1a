package world

import (
	"math"

	"dragonpot.game/internal/sim/geom"
)

const settleSpeed = 0.5

// systemPlayer walks the player toward its MOVE target and keeps carried
// things above its head.
func (w *World) systemPlayer() {
	p := w.player
	if p.moving {
		p.Pos = p.Pos.MoveTowardsXZ(p.moveTo, w.tune.Player.MoveSpeed*w.dt)
		if p.Pos.DistXZ(p.moveTo) < 1e-6 {
			p.moving = false
		}
	}
	if p.harvestID != "" {
		pl := w.plants[p.harvestID]
		switch {
		case pl == nil || pl.Harvester() != p.ID:
			// Finished or taken away.
			p.harvestID = ""
		case pl.Pos.DistXZ(p.Pos) > w.tune.Player.Reach:
			w.stopPlayerHarvest()
		}
	}
	for _, id := range p.Carried {
		if it := w.items[id]; it != nil {
			it.Pos = p.Pos.Add(it.Offset)
			continue
		}
		if n := w.npcs[id]; n != nil {
			n.Pos = p.Pos.Add(geom.V(0, 2, 0))
		}
	}
}

// systemPhysics integrates loose items and thrown NPCs, and lets the pot
// pull in nearby produce.
func (w *World) systemPhysics() {
	for _, id := range w.sortedItemIDs() {
		it := w.items[id]
		if it == nil || !it.Physics {
			continue
		}
		if vel, absorb, ok := w.station.Pull(it.Pos); ok && it.Free() {
			if absorb {
				if w.station.TryAddIngredient(it.Crop) {
					w.destroyItem(id)
					continue
				}
				it.Vel = geom.Vec3{}
				continue
			}
			it.Vel = vel
			it.Pos = it.Pos.Add(vel.Scale(w.dt))
			it.Grounded = false
			continue
		}
		it.Pos, it.Vel, it.Grounded = w.integrate(it.Pos, it.Vel)
	}
	for _, id := range w.npcIDs {
		n := w.npcs[id]
		if !n.Airborne() {
			continue
		}
		n.Pos, n.Vel, n.Grounded = w.integrate(n.Pos, n.Vel)
	}
}

// integrate is one ballistic step with a flat ground at y=0.
func (w *World) integrate(pos, vel geom.Vec3) (geom.Vec3, geom.Vec3, bool) {
	ph := w.tune.Physics
	vel.Y -= ph.Gravity * w.dt
	pos = pos.Add(vel.Scale(w.dt))
	grounded := false
	if pos.Y <= 0 {
		pos.Y = 0
		if vel.Y < 0 {
			vel.Y = -vel.Y * ph.Bounce
		}
		if vel.Y < settleSpeed {
			vel.Y = 0
			grounded = true
		}
	}
	if grounded {
		flat := vel.Flat()
		speed := flat.Len()
		slowed := math.Max(0, speed-ph.GroundFriction*w.dt)
		if speed > 0 {
			flat = flat.Scale(slowed / speed)
		}
		vel.X, vel.Z = flat.X, flat.Z
	}
	return pos, vel, grounded
}

// systemItemExpiry removes produce that has been lying around too long.
// Carried or claimed items never expire.
func (w *World) systemItemExpiry() {
	now := w.now()
	ttl := w.tune.Items.LifetimeSeconds
	for _, id := range w.sortedItemIDs() {
		it := w.items[id]
		if it == nil || !it.Free() {
			continue
		}
		if now-it.LooseSince+1e-9 >= ttl {
			w.destroyItem(id)
		}
	}
}

func itemTTL(now, looseSince, ttl float64) float64 {
	return math.Max(0, ttl-(now-looseSince))
}
