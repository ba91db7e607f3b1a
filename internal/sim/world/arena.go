package world

import (
	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/sim/entity"
	"dragonpot.game/internal/sim/npc"
	"dragonpot.game/internal/sim/plant"
	"dragonpot.game/internal/sim/station"
)

// startRound rebuilds the arena from the layout and opens a new round.
// Every object starts fresh; the world rng carries on.
func (w *World) startRound() {
	layout := w.catalogs.Layout.Layout
	now := w.now()

	w.roundNum++
	w.roundID = w.newRoundID()
	w.roundStartTick = w.tick.Load()
	w.roundClosed = false

	w.items = map[string]*entity.Item{}
	w.itemsDirty = true

	w.waypoints = map[string]*entity.Waypoint{}
	for _, wp := range layout.Waypoints {
		w.waypoints[wp.ID] = &entity.Waypoint{ID: wp.ID, Pos: wp.Pos.Vec()}
	}
	w.zones = map[string]*entity.Zone{}
	for _, z := range layout.Zones {
		w.zones[z.ID] = &entity.Zone{ID: z.ID, Name: z.Name, Crop: z.Crop, Center: z.Center.Vec(), Radius: z.Radius}
	}
	w.plants = map[string]*plant.Plant{}
	for _, p := range layout.AllPlants() {
		w.plants[p.ID] = plant.New(p.ID, p.Pos.Vec(), w.catalogs.Crops.Def(p.Crop), plantHost{w})
	}
	w.npcs = map[string]*npc.NPC{}
	ncfg := w.tune.NPCConfig()
	for _, s := range layout.NPCs {
		n := npc.New(s.ID, s.Name, s.Pos.Vec(), ncfg, now)
		if z := w.zones[s.Zone]; z != nil && z.WorkerID == "" {
			n.AssignZone(z.ID)
			z.WorkerID = n.ID
		}
		w.npcs[s.ID] = n
	}
	w.npcIDs = sortedKeys(w.npcs)
	w.plantIDs = sortedKeys(w.plants)
	w.waypointIDs = sortedKeys(w.waypoints)
	w.zoneIDs = sortedKeys(w.zones)

	w.player = newPlayer(layout.Player.Spawn.Vec())

	w.board.Reset()
	w.round.Reset()
	w.emit(GameEvent{Type: observerproto.EventRoundStarted})

	deps := station.Deps{Round: w.round, Notifier: noticeRelay{w}, Listener: stationListener{w}, Rand: w.rng}
	if w.station == nil {
		w.station = station.New(layout.Station.ID, layout.Station.Pos.Vec(), w.tune.StationConfig(), w.store, deps)
	} else {
		w.station.Reset()
	}
	w.log.Printf("round %d started: id=%s tick=%d recipe=%q", w.roundNum, w.roundID, w.roundStartTick, w.activeRecipeName())
}

func (w *World) activeRecipeName() string {
	if r := w.station.Active(); r != nil {
		return r.Name
	}
	return ""
}

func (w *World) spawnItem(d plant.Drop) *entity.Item {
	it := &entity.Item{
		ID:         w.newItemID(),
		Crop:       d.Crop,
		Pos:        d.Pos,
		Vel:        d.Impulse,
		Physics:    true,
		Collider:   true,
		LooseSince: w.now(),
		ThrownAt:   -1e9,
	}
	w.items[it.ID] = it
	w.itemsDirty = true
	return it
}

func (w *World) destroyItem(id string) {
	it := w.items[id]
	if it == nil {
		return
	}
	it.Destroyed = true
	delete(w.items, id)
	w.itemsDirty = true
}
