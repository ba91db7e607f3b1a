package catalogs

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/geom"
)

// Point is a yaml-friendly [x, y, z].
type Point [3]float64

func (p Point) Vec() geom.Vec3 { return geom.V(p[0], p[1], p[2]) }

// Layout is the arena: the pot, the player spawn, delivery centers, crop
// zones with their plants, and the NPC workers.
type Layout struct {
	Station   StationSpot    `yaml:"station"`
	Player    PlayerSpot     `yaml:"player"`
	Waypoints []WaypointSpot `yaml:"waypoints"`
	Zones     []ZoneSpot     `yaml:"zones"`
	Plants    []PlantSpot    `yaml:"plants"`
	NPCs      []NPCSpot      `yaml:"npcs"`
}

type StationSpot struct {
	ID  string `yaml:"id"`
	Pos Point  `yaml:"pos"`
}

type PlayerSpot struct {
	Spawn Point `yaml:"spawn"`
}

type WaypointSpot struct {
	ID  string `yaml:"id"`
	Pos Point  `yaml:"pos"`
}

// ZoneSpot is a crop field. PlantCount plants of the zone's crop are laid
// out evenly on a ring inside it.
type ZoneSpot struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	Crop       crops.Type `yaml:"crop"`
	Center     Point      `yaml:"center"`
	Radius     float64    `yaml:"radius"`
	PlantCount int        `yaml:"plants"`
}

// PlantSpot places a single plant outside any zone ring.
type PlantSpot struct {
	ID   string     `yaml:"id"`
	Crop crops.Type `yaml:"crop"`
	Pos  Point      `yaml:"pos"`
}

type NPCSpot struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Pos  Point  `yaml:"pos"`
	Zone string `yaml:"zone"`
}

// ZonePlants expands a zone into its ring of plants.
func (z ZoneSpot) ZonePlants() []PlantSpot {
	if z.PlantCount <= 0 {
		return nil
	}
	out := make([]PlantSpot, 0, z.PlantCount)
	step := 360 / float64(z.PlantCount)
	ring := z.Radius * 0.6
	for i := 0; i < z.PlantCount; i++ {
		pos := z.Center.Vec().Add(geom.Polar(step*float64(i), ring))
		out = append(out, PlantSpot{
			ID:   fmt.Sprintf("%s_P%d", z.ID, i+1),
			Crop: z.Crop,
			Pos:  Point{pos.X, pos.Y, pos.Z},
		})
	}
	return out
}

// AllPlants returns zone rings followed by loose plants.
func (l Layout) AllPlants() []PlantSpot {
	var out []PlantSpot
	for _, z := range l.Zones {
		out = append(out, z.ZonePlants()...)
	}
	return append(out, l.Plants...)
}

// DefaultLayout is a small arena with four fields around the pot.
func DefaultLayout() Layout {
	return Layout{
		Station: StationSpot{ID: "POT", Pos: Point{0, 0, 0}},
		Player:  PlayerSpot{Spawn: Point{0, 0, -6}},
		Waypoints: []WaypointSpot{
			{ID: "C_EAST", Pos: Point{8, 0, 0}},
			{ID: "C_WEST", Pos: Point{-8, 0, 0}},
		},
		Zones: []ZoneSpot{
			{ID: "Z_CARROT", Name: "Carrot field", Crop: crops.Carrot, Center: Point{18, 0, 6}, Radius: 5, PlantCount: 5},
			{ID: "Z_POTATO", Name: "Potato field", Crop: crops.Potato, Center: Point{18, 0, -6}, Radius: 5, PlantCount: 5},
			{ID: "Z_CORN", Name: "Corn field", Crop: crops.Corn, Center: Point{-18, 0, 6}, Radius: 5, PlantCount: 5},
			{ID: "Z_BROCCOLI", Name: "Broccoli field", Crop: crops.Broccoli, Center: Point{-18, 0, -6}, Radius: 5, PlantCount: 5},
		},
		NPCs: []NPCSpot{
			{ID: "NPC1", Name: "Pip", Pos: Point{18, 0, 6}, Zone: "Z_CARROT"},
			{ID: "NPC2", Name: "Tuck", Pos: Point{-18, 0, 6}, Zone: "Z_CORN"},
		},
	}
}

func (l Layout) Validate() error {
	var errs []error
	ids := map[string]bool{}
	unique := func(kind, id string) {
		if id == "" {
			errs = append(errs, fmt.Errorf("%s: empty id", kind))
			return
		}
		if ids[id] {
			errs = append(errs, fmt.Errorf("%s %s: duplicate id", kind, id))
		}
		ids[id] = true
	}
	unique("station", l.Station.ID)
	for _, w := range l.Waypoints {
		unique("waypoint", w.ID)
	}
	zones := map[string]bool{}
	for _, z := range l.Zones {
		unique("zone", z.ID)
		zones[z.ID] = true
		if !z.Crop.Valid() || z.Radius <= 0 || z.PlantCount < 0 {
			errs = append(errs, fmt.Errorf("zone %s: bad crop, radius or plant count", z.ID))
		}
	}
	for _, p := range l.AllPlants() {
		unique("plant", p.ID)
		if !p.Crop.Valid() {
			errs = append(errs, fmt.Errorf("plant %s: unknown crop", p.ID))
		}
	}
	for _, n := range l.NPCs {
		unique("npc", n.ID)
		if n.Zone != "" && !zones[n.Zone] {
			errs = append(errs, fmt.Errorf("npc %s: unknown zone %q", n.ID, n.Zone))
		}
	}
	return errors.Join(errs...)
}

func loadLayout(path string, out *LayoutCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			out.Layout = DefaultLayout()
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)
	var l Layout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return fmt.Errorf("arena.yaml: %w", err)
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("arena.yaml: %w", err)
	}
	out.Layout = l
	return nil
}
