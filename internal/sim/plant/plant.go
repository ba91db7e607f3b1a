package plant

import (
	"math/rand"

	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/geom"
	"dragonpot.game/internal/sim/tasks"
)

type State uint8

const (
	Empty State = iota
	Growing
	Full
)

func (s State) String() string {
	switch s {
	case Empty:
		return "EMPTY"
	case Growing:
		return "GROWING"
	case Full:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// Def is the per-crop tuning of a plant.
type Def struct {
	Crop           crops.Type `json:"cropType"`
	MinDrop        int        `json:"minDropCount"`
	MaxDrop        int        `json:"maxDropCount"`
	RegrowSeconds  float64    `json:"regrowTime"`
	HarvestSeconds float64    `json:"harvestTime"`
	DropRadius     float64    `json:"dropRadius"`
}

func DefaultDef(c crops.Type) Def {
	return Def{
		Crop:           c,
		MinDrop:        3,
		MaxDrop:        5,
		RegrowSeconds:  30,
		HarvestSeconds: 3,
		DropRadius:     2,
	}
}

// Drop is one produce item to spawn after a harvest.
type Drop struct {
	Crop    crops.Type
	Pos     geom.Vec3
	Impulse geom.Vec3
}

// Host is the owner of a plant: it supplies randomness and spawns drops.
type Host interface {
	Rand() *rand.Rand
	Dropped(p *Plant, drops []Drop)
	StateChanged(p *Plant, from, to State)
}

// Plant is one crop placement. A harvest session (player) or an instant
// harvest (NPC) both go through CanHarvest, so at most one harvester holds
// the plant at a time.
type Plant struct {
	ID  string
	Pos geom.Vec3
	Def Def

	host  Host
	state State

	harvesting bool
	harvester  string
	harvest    tasks.Timer
	regrow     tasks.Timer
	destroyed  bool

	Harvests int
}

// New returns a fully grown plant.
func New(id string, pos geom.Vec3, def Def, host Host) *Plant {
	if def.MaxDrop < def.MinDrop {
		def.MaxDrop = def.MinDrop
	}
	return &Plant{ID: id, Pos: pos, Def: def, host: host, state: Full}
}

func (p *Plant) State() State          { return p.state }
func (p *Plant) Crop() crops.Type      { return p.Def.Crop }
func (p *Plant) Harvesting() bool      { return p.harvesting }
func (p *Plant) Harvester() string     { return p.harvester }
func (p *Plant) Destroyed() bool       { return p.destroyed }
func (p *Plant) Progress() float64     { return p.harvest.Elapsed }
func (p *Plant) RegrowLeft() float64   { return p.regrow.Remaining() }
func (p *Plant) ProgressFrac() float64 { return p.harvest.Fraction() }

func (p *Plant) CanHarvest() bool {
	return !p.destroyed && p.state == Full && !p.harvesting
}

// StartHarvest opens a timed session for harvesterID. It is a no-op when the
// plant cannot be harvested.
func (p *Plant) StartHarvest(harvesterID string) bool {
	if !p.CanHarvest() {
		return false
	}
	p.harvesting = true
	p.harvester = harvesterID
	p.harvest.Start(p.Def.HarvestSeconds)
	return true
}

func (p *Plant) StopHarvest() {
	if !p.harvesting {
		return
	}
	p.harvesting = false
	p.harvester = ""
	p.harvest.Cancel()
}

// TryHarvest harvests immediately, skipping the timed session.
func (p *Plant) TryHarvest() bool {
	if !p.CanHarvest() {
		return false
	}
	p.complete()
	return true
}

// Advance runs the harvest session and the regrow timer for one tick.
func (p *Plant) Advance(dt float64) {
	if p.destroyed {
		return
	}
	if p.harvesting && p.harvest.Advance(dt) {
		p.complete()
		return
	}
	if p.regrow.Advance(dt) {
		p.setState(Full)
	}
}

// Destroy cancels every pending timer. The plant never changes again.
func (p *Plant) Destroy() {
	p.StopHarvest()
	p.regrow.Cancel()
	p.destroyed = true
}

func (p *Plant) complete() {
	p.harvesting = false
	p.harvester = ""
	p.harvest.Cancel()
	p.Harvests++

	p.setState(Empty)
	drops := p.rollDrops()
	if p.host != nil && len(drops) > 0 {
		p.host.Dropped(p, drops)
	}
	p.setState(Growing)
	p.regrow.Start(p.Def.RegrowSeconds)
}

func (p *Plant) setState(s State) {
	from := p.state
	p.state = s
	if p.host != nil && from != s {
		p.host.StateChanged(p, from, s)
	}
}

func (p *Plant) rollDrops() []Drop {
	if p.host == nil {
		return nil
	}
	rng := p.host.Rand()
	d := p.Def
	n := d.MinDrop
	if d.MaxDrop > d.MinDrop {
		n += rng.Intn(d.MaxDrop - d.MinDrop + 1)
	}
	if n <= 0 {
		return nil
	}
	lo := min(1, d.DropRadius)
	step := 360 / float64(n)
	out := make([]Drop, 0, n)
	for i := 0; i < n; i++ {
		angle := step*float64(i) + uniform(rng, -30, 30)
		dist := uniform(rng, lo, d.DropRadius)
		out = append(out, Drop{
			Crop:    d.Crop,
			Pos:     p.Pos.Add(geom.Polar(angle, dist)).Add(geom.Up),
			Impulse: geom.Polar(angle, uniform(rng, 0.5, 2)).Add(geom.Up.Scale(uniform(rng, 1, 3))),
		})
	}
	return out
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
