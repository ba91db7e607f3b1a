// Package entity holds the plain arena objects shared by the world and the
// NPC scheduler. Cross references are ids resolved through the world's
// object table, never pointers.
package entity

import (
	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/geom"
)

// Item is a piece of dropped produce.
type Item struct {
	ID   string
	Crop crops.Type

	Pos geom.Vec3
	Vel geom.Vec3

	Physics  bool
	Collider bool
	Grounded bool

	// CarrierID is set from the moment an item is claimed. Attached means it
	// is parented to the carrier and Pos follows carrier position + Offset.
	CarrierID string
	Attached  bool
	Offset    geom.Vec3

	LooseSince float64
	ThrownAt   float64
	Destroyed  bool
}

// Free reports whether nobody holds or is claiming the item.
func (it *Item) Free() bool { return it != nil && !it.Destroyed && it.CarrierID == "" }

// Claim turns off simulation for the item and records the carrier.
func (it *Item) Claim(carrierID string) {
	it.CarrierID = carrierID
	it.Physics = false
	it.Collider = false
	it.Vel = geom.Vec3{}
}

// Release hands the item back to physics at pos with velocity vel.
func (it *Item) Release(pos, vel geom.Vec3, now float64) {
	it.CarrierID = ""
	it.Attached = false
	it.Offset = geom.Vec3{}
	it.Physics = true
	it.Collider = true
	it.Grounded = false
	it.Pos = pos
	it.Vel = vel
	it.LooseSince = now
}

// Waypoint is a "center" NPCs may route through on the way to the pot.
type Waypoint struct {
	ID  string
	Pos geom.Vec3
}

// Zone is a crop field with at most one assigned worker.
type Zone struct {
	ID       string
	Name     string
	Crop     crops.Type
	Center   geom.Vec3
	Radius   float64
	WorkerID string
}

func (z *Zone) Contains(p geom.Vec3) bool { return z.Center.DistXZ(p) <= z.Radius }
