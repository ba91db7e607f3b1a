package plant

import (
	"math/rand"
	"testing"

	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/geom"
)

type fakeHost struct {
	rng         *rand.Rand
	drops       [][]Drop
	transitions []State
}

func newHost() *fakeHost { return &fakeHost{rng: rand.New(rand.NewSource(7))} }

func (h *fakeHost) Rand() *rand.Rand           { return h.rng }
func (h *fakeHost) Dropped(_ *Plant, d []Drop) { h.drops = append(h.drops, d) }
func (h *fakeHost) StateChanged(_ *Plant, _ State, to State) {
	h.transitions = append(h.transitions, to)
}

func testDef() Def {
	d := DefaultDef(crops.Carrot)
	d.HarvestSeconds = 3
	d.RegrowSeconds = 10
	return d
}

func advance(p *Plant, seconds, dt float64) {
	for n := int(seconds/dt + 0.5); n > 0; n-- {
		p.Advance(dt)
	}
}

func TestTryHarvest_EmptyGrowingFull(t *testing.T) {
	h := newHost()
	p := New("P1", geom.V(0, 0, 0), testDef(), h)

	if !p.TryHarvest() {
		t.Fatalf("expected instant harvest on full plant")
	}
	if p.State() != Growing {
		t.Fatalf("state=%s want GROWING", p.State())
	}
	if len(h.transitions) != 2 || h.transitions[0] != Empty || h.transitions[1] != Growing {
		t.Fatalf("transitions=%v want [EMPTY GROWING]", h.transitions)
	}
	if p.TryHarvest() {
		t.Fatalf("harvest accepted while growing")
	}

	advance(p, 9.9, 0.1)
	if p.State() != Growing {
		t.Fatalf("full too early")
	}
	advance(p, 0.1, 0.1)
	if p.State() != Full {
		t.Fatalf("state=%s want FULL after regrow", p.State())
	}
	if len(h.transitions) != 3 || h.transitions[2] != Full {
		t.Fatalf("transitions=%v", h.transitions)
	}
}

func TestStartHarvest_InterruptedStaysFull(t *testing.T) {
	p := New("P1", geom.V(0, 0, 0), testDef(), newHost())
	if !p.StartHarvest("player") {
		t.Fatalf("start rejected")
	}
	if p.CanHarvest() {
		t.Fatalf("CanHarvest true during session")
	}
	advance(p, 1, 0.05)
	if p.Progress() <= 0 {
		t.Fatalf("no progress after 1s")
	}
	p.StopHarvest()
	if p.State() != Full || p.Progress() != 0 {
		t.Fatalf("after stop: state=%s progress=%v", p.State(), p.Progress())
	}
	if !p.CanHarvest() {
		t.Fatalf("plant should be harvestable again")
	}
	p.StopHarvest()
}

func TestStartHarvest_SecondHarvesterRejected(t *testing.T) {
	p := New("P1", geom.V(0, 0, 0), testDef(), newHost())
	p.StartHarvest("player")
	if p.StartHarvest("N1") {
		t.Fatalf("second harvester accepted")
	}
	if p.TryHarvest() {
		t.Fatalf("instant harvest accepted during session")
	}
	if p.Harvester() != "player" {
		t.Fatalf("harvester=%q", p.Harvester())
	}
}

func TestTimedHarvest_CompletesWithDrops(t *testing.T) {
	h := newHost()
	def := testDef()
	p := New("P1", geom.V(5, 0, 5), def, h)
	p.StartHarvest("player")
	advance(p, 3, 0.05)
	if p.State() != Growing {
		t.Fatalf("state=%s want GROWING", p.State())
	}
	if p.Harvesting() || p.Progress() != 0 {
		t.Fatalf("session not cleared")
	}
	if len(h.drops) != 1 {
		t.Fatalf("drop batches=%d", len(h.drops))
	}
	drops := h.drops[0]
	if len(drops) < def.MinDrop || len(drops) > def.MaxDrop {
		t.Fatalf("drop count %d outside [%d,%d]", len(drops), def.MinDrop, def.MaxDrop)
	}
	for _, d := range drops {
		if d.Crop != crops.Carrot {
			t.Fatalf("drop crop=%s", d.Crop)
		}
		if dist := d.Pos.DistXZ(p.Pos); dist > def.DropRadius+1e-9 {
			t.Fatalf("drop at %v beyond radius (%v)", d.Pos, dist)
		}
		if d.Impulse.Y < 1 {
			t.Fatalf("impulse not upward: %v", d.Impulse)
		}
	}
}

func TestDropCount_AlwaysInRange(t *testing.T) {
	h := newHost()
	def := testDef()
	def.RegrowSeconds = 0
	p := New("P1", geom.V(0, 0, 0), def, h)
	for i := 0; i < 50; i++ {
		if !p.TryHarvest() {
			t.Fatalf("harvest %d rejected", i)
		}
		p.Advance(0.1)
	}
	for _, batch := range h.drops {
		if len(batch) < 3 || len(batch) > 5 {
			t.Fatalf("drop count %d out of range", len(batch))
		}
	}
}

func TestDestroy_CancelsTimers(t *testing.T) {
	h := newHost()
	p := New("P1", geom.V(0, 0, 0), testDef(), h)
	p.StartHarvest("player")
	advance(p, 1, 0.1)
	p.Destroy()
	advance(p, 60, 0.1)
	if len(h.drops) != 0 {
		t.Fatalf("destroyed plant dropped items")
	}
	if p.CanHarvest() || p.StartHarvest("x") {
		t.Fatalf("destroyed plant harvestable")
	}

	q := New("P2", geom.V(0, 0, 0), testDef(), h)
	q.TryHarvest()
	q.Destroy()
	advance(q, 60, 0.1)
	if q.State() != Growing {
		t.Fatalf("regrow timer survived destroy: %s", q.State())
	}
}
