package npc

import (
	"math/rand"
	"testing"

	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/entity"
	"dragonpot.game/internal/sim/geom"
	"dragonpot.game/internal/sim/plant"
)

const dt = 0.05

type fakePot struct {
	pos   geom.Vec3
	want  map[crops.Type]int
	added []crops.Type
}

func (p *fakePot) Pos() geom.Vec3 { return p.pos }
func (p *fakePot) TryAddIngredient(c crops.Type) bool {
	if p.want[c] == 0 {
		return false
	}
	p.want[c]--
	p.added = append(p.added, c)
	return true
}

type fakeEnv struct {
	now       float64
	rng       *rand.Rand
	pot       *fakePot
	waypoints []*entity.Waypoint
	plants    []*plant.Plant
	items     []*entity.Item
	zones     map[string]*entity.Zone
	destroyed []string
}

func newEnv() *fakeEnv {
	return &fakeEnv{
		rng:   rand.New(rand.NewSource(5)),
		pot:   &fakePot{pos: geom.V(0, 0, 0), want: map[crops.Type]int{}},
		zones: map[string]*entity.Zone{},
	}
}

func (e *fakeEnv) Now() float64     { return e.now }
func (e *fakeEnv) Rand() *rand.Rand { return e.rng }
func (e *fakeEnv) Pot() Pot {
	if e.pot == nil {
		return nil
	}
	return e.pot
}
func (e *fakeEnv) Waypoints() []*entity.Waypoint { return e.waypoints }
func (e *fakeEnv) Waypoint(id string) *entity.Waypoint {
	for _, w := range e.waypoints {
		if w.ID == id {
			return w
		}
	}
	return nil
}
func (e *fakeEnv) Plants() []*plant.Plant { return e.plants }
func (e *fakeEnv) Plant(id string) *plant.Plant {
	for _, p := range e.plants {
		if p.ID == id {
			return p
		}
	}
	return nil
}
func (e *fakeEnv) Items() []*entity.Item { return e.items }
func (e *fakeEnv) Item(id string) *entity.Item {
	for _, it := range e.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}
func (e *fakeEnv) DestroyItem(id string) {
	if it := e.Item(id); it != nil {
		it.Destroyed = true
	}
	e.destroyed = append(e.destroyed, id)
}
func (e *fakeEnv) Zone(id string) *entity.Zone { return e.zones[id] }

// plant.Host
func (e *fakeEnv) Dropped(*plant.Plant, []plant.Drop)                  {}
func (e *fakeEnv) StateChanged(*plant.Plant, plant.State, plant.State) {}

func (e *fakeEnv) addItem(id string, c crops.Type, pos geom.Vec3) *entity.Item {
	it := &entity.Item{ID: id, Crop: c, Pos: pos, Physics: true, Collider: true, Grounded: true, ThrownAt: -10}
	e.items = append(e.items, it)
	return it
}

func (e *fakeEnv) run(n *NPC, seconds float64) {
	for i := int(seconds/dt + 0.5); i > 0; i-- {
		e.now += dt
		n.Tick(e, dt)
	}
}

// runUntil ticks until cond holds or the budget runs out.
func (e *fakeEnv) runUntil(t *testing.T, n *NPC, seconds float64, cond func() bool) {
	t.Helper()
	for i := int(seconds/dt + 0.5); i > 0; i-- {
		e.now += dt
		n.Tick(e, dt)
		if cond() {
			return
		}
	}
	t.Fatalf("condition not met within %.1fs (state=%s pos=%s)", seconds, n.State(), n.Pos)
}

func carrying(e *fakeEnv, n *NPC, ids ...string) {
	for i, id := range ids {
		it := e.addItem(id, crops.Carrot, n.Pos)
		it.Claim(n.ID)
		it.Attached = true
		it.Offset = n.carryOffset(i)
		n.Carried = append(n.Carried, id)
	}
}

func TestCarrying_RoutesThroughCenter(t *testing.T) {
	e := newEnv()
	e.pot.pos = geom.V(20, 0, 0)
	e.pot.want[crops.Carrot] = 5
	e.waypoints = []*entity.Waypoint{{ID: "C1", Pos: geom.V(0, 0, 10)}}
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)
	carrying(e, n, "I1", "I2")

	var seen []State
	record := func() bool {
		if len(seen) == 0 || seen[len(seen)-1] != n.State() {
			seen = append(seen, n.State())
		}
		return n.State() == MovingToCenterAfterPot
	}
	e.runUntil(t, n, 30, record)

	want := []State{MovingToCenter, MovingToPot, MovingToCenterAfterPot}
	got := seen
	if len(got) > 0 && got[0] == Idle {
		got = got[1:]
	}
	if len(got) != len(want) {
		t.Fatalf("states: got %v want %v", seen, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states: got %v want %v", seen, want)
		}
	}
	if len(e.pot.added) != 2 || len(n.Carried) != 0 {
		t.Fatalf("delivered %v, still carrying %v", e.pot.added, n.Carried)
	}
	if n.Stats.Delivered != 2 {
		t.Fatalf("delivered stat: %d", n.Stats.Delivered)
	}
}

func TestCarrying_WaypointGoneAfterPotGoesIdle(t *testing.T) {
	e := newEnv()
	e.pot.pos = geom.V(20, 0, 0)
	e.pot.want[crops.Carrot] = 5
	e.waypoints = []*entity.Waypoint{{ID: "C1", Pos: geom.V(0, 0, 10)}}
	e.zones["Z1"] = &entity.Zone{ID: "Z1", Center: geom.V(-30, 0, 0), Radius: 5, WorkerID: "NPC1"}
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)
	n.AssignZone("Z1")
	carrying(e, n, "I1")

	e.runUntil(t, n, 30, func() bool { return n.State() == MovingToCenterAfterPot })
	e.waypoints = nil
	e.runUntil(t, n, 5, func() bool { return n.State() != MovingToCenterAfterPot })
	if n.State() != Idle {
		t.Fatalf("state: got %s want %s", n.State(), Idle)
	}
	if n.waypointID != "" || n.usedWaypoint {
		t.Fatalf("waypoint not cleared: %q used=%v", n.waypointID, n.usedWaypoint)
	}
}

func TestCarrying_NoCenterGoesStraightToPot(t *testing.T) {
	e := newEnv()
	e.pot.pos = geom.V(5, 0, 0)
	e.waypoints = []*entity.Waypoint{{ID: "C1", Pos: geom.V(0, 0, 80)}}
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)
	carrying(e, n, "I1")

	e.run(n, 2.1)
	if n.State() != MovingToPot {
		t.Fatalf("state: got %s want %s", n.State(), MovingToPot)
	}
	e.runUntil(t, n, 10, func() bool { return len(n.Carried) == 0 })
	// The pot did not want carrots; the item is wasted but still destroyed.
	if len(e.destroyed) != 1 || n.Stats.Wasted != 1 {
		t.Fatalf("destroyed=%v wasted=%d", e.destroyed, n.Stats.Wasted)
	}
	if n.State() != Idle {
		t.Fatalf("no work area or zone: got %s want IDLE", n.State())
	}
}

func TestDeliver_SubmitsTopOfStackFirst(t *testing.T) {
	e := newEnv()
	e.pot.want[crops.Carrot] = 1
	e.pot.want[crops.Potato] = 1
	n := New("NPC1", "Bob", geom.V(1, 0, 0), DefaultConfig(), 0)
	carrying(e, n, "I1", "I2")
	e.Item("I2").Crop = crops.Potato

	n.deliver(e, e.pot)
	if len(e.pot.added) != 2 || e.pot.added[0] != crops.Potato || e.pot.added[1] != crops.Carrot {
		t.Fatalf("added: %v", e.pot.added)
	}
}

func TestStartPickup_RespectsCapacity(t *testing.T) {
	e := newEnv()
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)
	carrying(e, n, "I1", "I2", "I3")
	loose := e.addItem("I4", crops.Corn, geom.V(1, 0, 0))

	if n.StartPickup(e, "I4") {
		t.Fatalf("pickup accepted at capacity")
	}
	if !loose.Free() || len(n.Carried) != 3 {
		t.Fatalf("capacity rejection changed state: carrier=%q carried=%v", loose.CarrierID, n.Carried)
	}
}

func TestStartPickup_RejectsClaimedItem(t *testing.T) {
	e := newEnv()
	a := New("NPC1", "A", geom.V(0, 0, 0), DefaultConfig(), 0)
	b := New("NPC2", "B", geom.V(0, 0, 0), DefaultConfig(), 0)
	e.addItem("I1", crops.Corn, geom.V(1, 0, 0))

	if !a.StartPickup(e, "I1") {
		t.Fatalf("first pickup rejected")
	}
	if b.StartPickup(e, "I1") {
		t.Fatalf("second NPC claimed the same item")
	}
}

func TestPickup_StacksItem(t *testing.T) {
	e := newEnv()
	cfg := DefaultConfig()
	n := New("NPC1", "Bob", geom.V(0, 0, 0), cfg, 0)
	it := e.addItem("I1", crops.Corn, geom.V(1, 0, 1))
	if !n.StartPickup(e, "I1") {
		t.Fatal("pickup rejected")
	}

	n.stepPickup(e, dt)
	if len(n.Carried) != 0 {
		t.Fatalf("attached before settle")
	}
	n.stepPickup(e, dt)
	if len(n.Carried) != 1 || !it.Attached {
		t.Fatalf("not attached after settle ticks")
	}
	n.stepPickup(e, dt)
	if it.Offset != geom.V(0, cfg.CarryBaseHeight, 0) {
		t.Fatalf("offset not snapped: %s", it.Offset)
	}
	for i := 0; i < 20 && n.PickingUp(); i++ {
		n.stepPickup(e, dt)
	}
	if n.PickingUp() {
		t.Fatalf("hold never finished")
	}
}

func TestPickUpByPlayer_AbortsAndDrops(t *testing.T) {
	e := newEnv()
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)
	carrying(e, n, "I1")
	half := e.addItem("I2", crops.Corn, geom.V(1, 0, 0))
	if !n.StartPickup(e, "I2") {
		t.Fatal("pickup rejected")
	}
	n.workArea, n.hasWorkArea = geom.V(3, 0, 3), true

	n.PickUp(e)
	if !n.Held() || n.PickingUp() || len(n.Carried) != 0 {
		t.Fatalf("held=%v picking=%v carried=%v", n.Held(), n.PickingUp(), n.Carried)
	}
	if !half.Free() || !e.Item("I1").Free() || !e.Item("I1").Physics {
		t.Fatalf("items not released")
	}
	if _, ok := n.WorkArea(); ok {
		t.Fatalf("work area kept after pickup")
	}

	before := n.Pos
	e.run(n, 1)
	if n.Pos != before {
		t.Fatalf("held NPC moved on its own")
	}
}

func TestThrow_LandingSetsWorkArea(t *testing.T) {
	e := newEnv()
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)
	n.PickUp(e)
	n.Pos = geom.V(10, 2, 0)
	n.Drop(e.now, true, geom.V(2, 0, 0))
	if !n.Airborne() {
		t.Fatal("thrown NPC not airborne")
	}

	e.run(n, 0.5)
	if !n.Airborne() {
		t.Fatal("landed while still flying")
	}
	n.Pos.Y = 0
	n.Vel = geom.Vec3{}
	n.Grounded = true
	e.run(n, 0.2)
	if n.Airborne() {
		t.Fatal("landing not detected")
	}
	wa, ok := n.WorkArea()
	if !ok || wa.Dist(geom.V(10, 0, 0)) > 1e-9 {
		t.Fatalf("work area: %s %v", wa, ok)
	}
	if n.NextDecisionAt() < e.now+0.5 {
		t.Fatalf("resumed too early: next=%.2f now=%.2f", n.NextDecisionAt(), e.now)
	}
}

func TestThrow_LandingTimeout(t *testing.T) {
	e := newEnv()
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)
	n.PickUp(e)
	n.Drop(e.now, true, geom.V(0, 5, 0))
	e.run(n, 5.2)
	if n.Airborne() {
		t.Fatal("landing watch never timed out")
	}
}

func TestHarvest_SetsWorkAreaAndLastCrop(t *testing.T) {
	e := newEnv()
	p := plant.New("P1", geom.V(4, 0, 0), plant.DefaultDef(crops.Potato), e)
	e.plants = []*plant.Plant{p}
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)

	e.runUntil(t, n, 5, func() bool { return n.State() == Harvesting })
	if wa, ok := n.WorkArea(); !ok || wa != p.Pos {
		t.Fatalf("work area: %s %v", wa, ok)
	}
	if c, ok := n.LastCrop(); !ok || c != crops.Potato {
		t.Fatalf("last crop: %s %v", c, ok)
	}
	e.runUntil(t, n, 6, func() bool { return n.State() == Idle })
	if p.State() != plant.Growing || n.Stats.Harvested != 1 {
		t.Fatalf("plant=%s harvested=%d", p.State(), n.Stats.Harvested)
	}
}

func TestHarvest_PlayerTakesPlantFirst(t *testing.T) {
	e := newEnv()
	p := plant.New("P1", geom.V(4, 0, 0), plant.DefaultDef(crops.Potato), e)
	e.plants = []*plant.Plant{p}
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)

	e.runUntil(t, n, 5, func() bool { return n.State() == Harvesting })
	if !p.StartHarvest("PLAYER") {
		t.Fatal("player could not start harvest")
	}
	e.runUntil(t, n, 6, func() bool { return n.State() == Idle })
	if n.Stats.Harvested != 0 {
		t.Fatalf("NPC harvested a plant held by the player")
	}
}

func TestDecide_PrefersLastCropInWorkArea(t *testing.T) {
	e := newEnv()
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)
	n.workArea, n.hasWorkArea = geom.V(0, 0, 0), true
	n.lastCrop, n.hasLastCrop = crops.Corn, true
	e.addItem("I1", crops.Potato, geom.V(6, 0, 0))
	e.addItem("I2", crops.Corn, geom.V(9, 0, 0))

	n.decide(e)
	if n.State() != MovingToItem || n.TargetItem() != "I2" {
		t.Fatalf("state=%s target=%s", n.State(), n.TargetItem())
	}
}

func TestDecide_ReturnsToZone(t *testing.T) {
	e := newEnv()
	e.zones["Z1"] = &entity.Zone{ID: "Z1", Center: geom.V(30, 0, 0), Radius: 5, WorkerID: "NPC1"}
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)
	n.AssignZone("Z1")

	e.run(n, 2.1)
	if n.State() != ReturningToZone {
		t.Fatalf("state: got %s", n.State())
	}
	e.runUntil(t, n, 15, func() bool { return n.State() == Idle })
	if d := n.Pos.Dist(geom.V(30, 0, 0)); d > 7 {
		t.Fatalf("stopped %.1f from zone center", d)
	}
}

func TestDecide_WaitsForStartDelay(t *testing.T) {
	e := newEnv()
	e.addItem("I1", crops.Corn, geom.V(1, 0, 0))
	n := New("NPC1", "Bob", geom.V(0, 0, 0), DefaultConfig(), 0)
	e.run(n, 1.5)
	if n.PickingUp() {
		t.Fatal("acted before start delay")
	}
	e.run(n, 0.6)
	if !n.PickingUp() && len(n.Carried) == 0 {
		t.Fatal("did not pick up nearby item")
	}
}
