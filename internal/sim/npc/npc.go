// Package npc is the autonomous worker scheduler. Each NPC is a small state
// machine re-evaluated on a fixed poll interval; long actions (walking,
// harvest wind-up, item pickup, landing after a throw) are state carried
// across ticks and can be cut short at any tick boundary.
package npc

import (
	"math/rand"

	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/entity"
	"dragonpot.game/internal/sim/geom"
	"dragonpot.game/internal/sim/plant"
	"dragonpot.game/internal/sim/tasks"
)

type State string

const (
	Idle                   State = "IDLE"
	MovingToPlant          State = "MOVING_TO_PLANT"
	Harvesting             State = "HARVESTING"
	MovingToPot            State = "MOVING_TO_POT"
	ReturningToZone        State = "RETURNING_TO_ZONE"
	MovingToItem           State = "MOVING_TO_ITEM"
	MovingToCenter         State = "MOVING_TO_CENTER"
	MovingToCenterAfterPot State = "MOVING_TO_CENTER_AFTER_POT"
)

type Config struct {
	MoveSpeed        float64
	DecisionInterval float64
	StartDelay       float64

	WorkRadius           float64
	PlantSearchFactor    float64
	SameCropSearchFactor float64
	ItemPickupRadius     float64
	WorkAreaItemRadius   float64
	NearWorkAreaDistance float64
	ZoneMargin           float64
	CenterDetectionRange float64
	ArriveDistance       float64
	PotDeliveryDistance  float64

	MaxCarry        int
	CarryBaseHeight float64
	CarryStackStep  float64

	HarvestSeconds float64
	ThrowCooldown  float64

	PickupSettleTicks  int
	PickupHoldSeconds  float64
	PickupDriftLimit   float64
	CarriedDriftLimit  float64
	DropScatter        float64
	LandingSpeed       float64
	LandingStableTicks int
	LandingTimeout     float64
	RelocateDistance   float64
	AfterDeliveryDelay float64
	AfterLandingDelay  float64
	AfterPlaceDelay    float64
}

func DefaultConfig() Config {
	return Config{
		MoveSpeed:            3,
		DecisionInterval:     0.1,
		StartDelay:           2,
		WorkRadius:           10,
		PlantSearchFactor:    1.5,
		SameCropSearchFactor: 2,
		ItemPickupRadius:     4,
		WorkAreaItemRadius:   12,
		NearWorkAreaDistance: 8,
		ZoneMargin:           2,
		CenterDetectionRange: 50,
		ArriveDistance:       2,
		PotDeliveryDistance:  3,
		MaxCarry:             3,
		CarryBaseHeight:      2.5,
		CarryStackStep:       0.4,
		HarvestSeconds:       5,
		ThrowCooldown:        0.5,
		PickupSettleTicks:    2,
		PickupHoldSeconds:    0.5,
		PickupDriftLimit:     0.1,
		CarriedDriftLimit:    0.2,
		DropScatter:          0.5,
		LandingSpeed:         0.5,
		LandingStableTicks:   2,
		LandingTimeout:       5,
		RelocateDistance:     3,
		AfterDeliveryDelay:   0.2,
		AfterLandingDelay:    1,
		AfterPlaceDelay:      0.5,
	}
}

// Pot is the delivery target.
type Pot interface {
	Pos() geom.Vec3
	TryAddIngredient(crop crops.Type) bool
}

// Env is the world as seen by an NPC. List methods return objects in a
// stable order so nearest-object ties resolve the same way every run.
type Env interface {
	Now() float64
	Rand() *rand.Rand
	Pot() Pot

	Waypoints() []*entity.Waypoint
	Waypoint(id string) *entity.Waypoint
	Plants() []*plant.Plant
	Plant(id string) *plant.Plant
	Items() []*entity.Item
	Item(id string) *entity.Item
	DestroyItem(id string)
	Zone(id string) *entity.Zone
}

type NPC struct {
	ID   string
	Name string

	Pos      geom.Vec3
	Vel      geom.Vec3
	Grounded bool

	// Carried holds item ids in stacking order.
	Carried []string
	ZoneID  string

	cfg   Config
	state State

	workArea    geom.Vec3
	hasWorkArea bool
	lastCrop    crops.Type
	hasLastCrop bool

	waypointID   string
	usedWaypoint bool

	targetPlant string
	targetItem  string

	nextDecision float64
	harvest      tasks.Timer
	pickup       *pickup
	held         bool
	throwStart   geom.Vec3
	landing      *landing

	Stats Stats
}

type Stats struct {
	Harvested int `json:"harvested"`
	Delivered int `json:"delivered"`
	Wasted    int `json:"wasted"`
	PickedUp  int `json:"picked_up"`
}

func New(id, name string, pos geom.Vec3, cfg Config, now float64) *NPC {
	return &NPC{
		ID:           id,
		Name:         name,
		Pos:          pos,
		Grounded:     true,
		cfg:          cfg,
		state:        Idle,
		nextDecision: now + cfg.StartDelay,
	}
}

func (n *NPC) State() State             { return n.state }
func (n *NPC) Held() bool               { return n.held }
func (n *NPC) Airborne() bool           { return n.landing != nil }
func (n *NPC) PickingUp() bool          { return n.pickup != nil }
func (n *NPC) WaypointID() string       { return n.waypointID }
func (n *NPC) UsedWaypoint() bool       { return n.usedWaypoint }
func (n *NPC) TargetPlant() string      { return n.targetPlant }
func (n *NPC) TargetItem() string       { return n.targetItem }
func (n *NPC) NextDecisionAt() float64  { return n.nextDecision }
func (n *NPC) HarvestProgress() float64 { return n.harvest.Fraction() }
func (n *NPC) Config() Config           { return n.cfg }

func (n *NPC) WorkArea() (geom.Vec3, bool) { return n.workArea, n.hasWorkArea }

func (n *NPC) LastCrop() (crops.Type, bool) { return n.lastCrop, n.hasLastCrop }

// AssignZone records zone membership. The zone keeps the matching back
// reference.
func (n *NPC) AssignZone(zoneID string) { n.ZoneID = zoneID }
func (n *NPC) LeaveZone()               { n.ZoneID = "" }

// Tick runs one simulation tick: pickup progress, harvest wind-up, a
// decision when the poll interval has elapsed, then movement.
func (n *NPC) Tick(env Env, dt float64) {
	if n.held {
		return
	}
	now := env.Now()
	if n.landing != nil {
		n.watchLanding(now)
		return
	}
	if n.pickup != nil {
		n.stepPickup(env, dt)
	}
	if n.state == Harvesting {
		n.stepHarvest(env, dt)
	}
	if now+1e-9 >= n.nextDecision {
		n.nextDecision = now + n.cfg.DecisionInterval
		n.evaluate(env)
	}
	n.move(env, dt)
	n.holdCarried(env)
}

func (n *NPC) evaluate(env Env) {
	switch n.state {
	case Idle:
		n.decide(env)
	case MovingToPlant:
		n.checkPlantArrival(env)
	case MovingToPot:
		n.checkPotArrival(env)
	case ReturningToZone:
		n.checkWorkAreaArrival(env)
	case MovingToItem:
		n.checkItemArrival(env)
	case MovingToCenter:
		n.checkCenterArrival(env)
	case MovingToCenterAfterPot:
		n.checkCenterAfterPotArrival(env)
	}
}

func (n *NPC) move(env Env, dt float64) {
	target, ok := n.moveTarget(env)
	if !ok {
		return
	}
	n.Pos = n.Pos.MoveTowardsXZ(target, n.cfg.MoveSpeed*dt)
}

func (n *NPC) moveTarget(env Env) (geom.Vec3, bool) {
	switch n.state {
	case MovingToPlant:
		if p := env.Plant(n.targetPlant); p != nil {
			return p.Pos, true
		}
	case MovingToPot:
		if pot := env.Pot(); pot != nil {
			return pot.Pos(), true
		}
	case MovingToItem:
		if it := env.Item(n.targetItem); it.Free() {
			return it.Pos, true
		}
	case MovingToCenter, MovingToCenterAfterPot:
		if wp := env.Waypoint(n.waypointID); wp != nil {
			return wp.Pos, true
		}
	case ReturningToZone:
		if n.hasWorkArea {
			return n.workArea, true
		}
		if z := env.Zone(n.ZoneID); z != nil {
			return z.Center, true
		}
	}
	return geom.Vec3{}, false
}

func (n *NPC) stepHarvest(env Env, dt float64) {
	p := env.Plant(n.targetPlant)
	if p == nil || p.Destroyed() {
		n.harvest.Cancel()
		n.targetPlant = ""
		n.state = Idle
		return
	}
	if !n.harvest.Advance(dt) {
		return
	}
	if p.TryHarvest() {
		n.Stats.Harvested++
	}
	n.targetPlant = ""
	n.state = Idle
}

func (n *NPC) forgetWaypoint() {
	n.waypointID = ""
	n.usedWaypoint = false
}
