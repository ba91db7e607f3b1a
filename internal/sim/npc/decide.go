package npc

import (
	"math"

	"dragonpot.game/internal/sim/entity"
	"dragonpot.game/internal/sim/plant"
)

// decide picks the next job for an idle NPC. The first matching rule wins.
func (n *NPC) decide(env Env) {
	if n.pickup != nil {
		return
	}

	// Deliver what we carry, through a center when one is close enough.
	if len(n.Carried) > 0 {
		if wp := n.nearestWaypoint(env); wp != nil {
			n.waypointID = wp.ID
			n.usedWaypoint = true
			n.state = MovingToCenter
			return
		}
		n.forgetWaypoint()
		n.state = MovingToPot
		return
	}

	if it := n.nearbyItem(env); it != nil {
		n.StartPickup(env, it.ID)
		return
	}

	if p := n.nearestPlant(env, n.cfg.WorkRadius*n.cfg.PlantSearchFactor, false); p != nil {
		n.targetPlant = p.ID
		n.state = MovingToPlant
		return
	}

	if n.hasWorkArea {
		if it := n.itemInWorkArea(env); it != nil {
			n.targetItem = it.ID
			n.state = MovingToItem
			return
		}
		if n.hasLastCrop {
			if p := n.nearestPlant(env, n.cfg.WorkRadius*n.cfg.SameCropSearchFactor, true); p != nil {
				n.targetPlant = p.ID
				n.state = MovingToPlant
				return
			}
		}
		if !n.nearWorkArea() {
			n.state = ReturningToZone
		}
		return
	}

	if z := env.Zone(n.ZoneID); z != nil && !n.nearZone(z) {
		n.state = ReturningToZone
	}
}

func (n *NPC) nearestWaypoint(env Env) *entity.Waypoint {
	var best *entity.Waypoint
	bestD := math.Inf(1)
	for _, wp := range env.Waypoints() {
		d := n.Pos.Dist(wp.Pos)
		if d <= n.cfg.CenterDetectionRange && d < bestD {
			best, bestD = wp, d
		}
	}
	return best
}

func (n *NPC) nearbyItem(env Env) *entity.Item {
	now := env.Now()
	var best *entity.Item
	bestD := math.Inf(1)
	for _, it := range env.Items() {
		if !it.Free() || now-it.ThrownAt < n.cfg.ThrowCooldown {
			continue
		}
		d := n.Pos.Dist(it.Pos)
		if d <= n.cfg.ItemPickupRadius && d < bestD {
			best, bestD = it, d
		}
	}
	return best
}

// nearestPlant finds the closest harvestable plant within radius of the
// NPC. With sameCrop set only plants of the last harvested crop count.
func (n *NPC) nearestPlant(env Env, radius float64, sameCrop bool) *plant.Plant {
	var best *plant.Plant
	bestD := math.Inf(1)
	for _, p := range env.Plants() {
		if !p.CanHarvest() {
			continue
		}
		if sameCrop && (!n.hasLastCrop || p.Crop() != n.lastCrop) {
			continue
		}
		d := n.Pos.Dist(p.Pos)
		if d <= radius && d < bestD {
			best, bestD = p, d
		}
	}
	return best
}

// itemInWorkArea looks for loose items around the remembered work area.
// An item of the last harvested crop is preferred over a closer one.
func (n *NPC) itemInWorkArea(env Env) *entity.Item {
	var best *entity.Item
	bestD := math.Inf(1)
	for _, it := range env.Items() {
		if !it.Free() || it.Pos.Dist(n.workArea) > n.cfg.WorkAreaItemRadius {
			continue
		}
		if n.hasLastCrop && it.Crop == n.lastCrop {
			return it
		}
		if d := n.Pos.Dist(it.Pos); d < bestD {
			best, bestD = it, d
		}
	}
	return best
}

func (n *NPC) nearWorkArea() bool {
	return n.hasWorkArea && n.Pos.Dist(n.workArea) <= n.cfg.NearWorkAreaDistance
}

func (n *NPC) nearZone(z *entity.Zone) bool {
	return n.Pos.Dist(z.Center) <= z.Radius+n.cfg.ZoneMargin
}

func (n *NPC) checkPlantArrival(env Env) {
	p := env.Plant(n.targetPlant)
	if p == nil || !p.CanHarvest() {
		n.targetPlant = ""
		n.state = Idle
		return
	}
	if n.Pos.Dist(p.Pos) > n.cfg.ArriveDistance {
		return
	}
	if !n.hasWorkArea {
		n.workArea = p.Pos
		n.hasWorkArea = true
	}
	n.lastCrop = p.Crop()
	n.hasLastCrop = true
	n.state = Harvesting
	n.harvest.Start(n.cfg.HarvestSeconds)
}

func (n *NPC) checkItemArrival(env Env) {
	it := env.Item(n.targetItem)
	if !it.Free() {
		n.targetItem = ""
		n.state = Idle
		return
	}
	if n.Pos.Dist(it.Pos) > n.cfg.ArriveDistance {
		return
	}
	n.targetItem = ""
	n.state = Idle
	n.StartPickup(env, it.ID)
}

func (n *NPC) checkCenterArrival(env Env) {
	wp := env.Waypoint(n.waypointID)
	if wp == nil {
		n.forgetWaypoint()
		n.state = Idle
		return
	}
	if n.Pos.Dist(wp.Pos) <= n.cfg.ArriveDistance {
		n.state = MovingToPot
	}
}

func (n *NPC) checkCenterAfterPotArrival(env Env) {
	wp := env.Waypoint(n.waypointID)
	if wp == nil {
		n.forgetWaypoint()
		n.state = Idle
		return
	}
	if n.Pos.Dist(wp.Pos) <= n.cfg.ArriveDistance {
		n.forgetWaypoint()
		n.state = ReturningToZone
	}
}

func (n *NPC) checkWorkAreaArrival(env Env) {
	if n.hasWorkArea {
		if n.nearWorkArea() {
			n.state = Idle
		}
		return
	}
	z := env.Zone(n.ZoneID)
	if z == nil || n.nearZone(z) {
		n.state = Idle
	}
}

func (n *NPC) checkPotArrival(env Env) {
	pot := env.Pot()
	if pot == nil {
		n.state = Idle
		return
	}
	if n.Pos.Dist(pot.Pos()) > n.cfg.PotDeliveryDistance {
		return
	}
	n.deliver(env, pot)
}

// deliver submits carried items top of the stack first. Every item is
// destroyed whether the pot wanted it or not.
func (n *NPC) deliver(env Env, pot Pot) {
	for i := len(n.Carried) - 1; i >= 0; i-- {
		id := n.Carried[i]
		if it := env.Item(id); it != nil && !it.Destroyed {
			if pot.TryAddIngredient(it.Crop) {
				n.Stats.Delivered++
			} else {
				n.Stats.Wasted++
			}
		}
		env.DestroyItem(id)
	}
	n.Carried = n.Carried[:0]

	switch {
	case n.usedWaypoint && n.waypointID != "":
		n.state = MovingToCenterAfterPot
	case n.hasWorkArea || n.ZoneID != "":
		n.state = ReturningToZone
	default:
		n.state = Idle
	}
	n.nextDecision = env.Now() + n.cfg.AfterDeliveryDelay
}
