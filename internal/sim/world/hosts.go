package world

import (
	"math/rand"

	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/entity"
	"dragonpot.game/internal/sim/npc"
	"dragonpot.game/internal/sim/plant"
	"dragonpot.game/internal/sim/recipe"
)

// plantHost spawns harvest drops into the item table.
type plantHost struct{ w *World }

func (h plantHost) Rand() *rand.Rand { return h.w.rng }

func (h plantHost) Dropped(p *plant.Plant, drops []plant.Drop) {
	for _, d := range drops {
		h.w.spawnItem(d)
	}
	h.w.emit(GameEvent{Type: observerproto.EventPlantHarvested, PlantID: p.ID, Crop: p.Crop().String(), Drops: len(drops)})
}

func (h plantHost) StateChanged(*plant.Plant, plant.State, plant.State) {}

// npcEnv is the world as the NPC scheduler sees it.
type npcEnv struct{ w *World }

func (e npcEnv) Now() float64     { return e.w.now() }
func (e npcEnv) Rand() *rand.Rand { return e.w.rng }

func (e npcEnv) Pot() npc.Pot {
	if e.w.station == nil {
		return nil
	}
	return e.w.station
}

func (e npcEnv) Waypoints() []*entity.Waypoint {
	out := make([]*entity.Waypoint, 0, len(e.w.waypointIDs))
	for _, id := range e.w.waypointIDs {
		out = append(out, e.w.waypoints[id])
	}
	return out
}

func (e npcEnv) Waypoint(id string) *entity.Waypoint { return e.w.waypoints[id] }

func (e npcEnv) Plants() []*plant.Plant {
	out := make([]*plant.Plant, 0, len(e.w.plantIDs))
	for _, id := range e.w.plantIDs {
		out = append(out, e.w.plants[id])
	}
	return out
}

func (e npcEnv) Plant(id string) *plant.Plant { return e.w.plants[id] }

func (e npcEnv) Items() []*entity.Item {
	ids := e.w.sortedItemIDs()
	out := make([]*entity.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.w.items[id])
	}
	return out
}

func (e npcEnv) Item(id string) *entity.Item { return e.w.items[id] }
func (e npcEnv) DestroyItem(id string)       { e.w.destroyItem(id) }
func (e npcEnv) Zone(id string) *entity.Zone { return e.w.zones[id] }

// stationListener turns station callbacks into game events.
type stationListener struct{ w *World }

func (l stationListener) RecipeAssigned(r *recipe.Recipe) {
	l.w.emit(GameEvent{Type: observerproto.EventRecipeAssigned, RecipeID: r.ID, RecipeName: r.Name})
}

func (l stationListener) IngredientAdded(c crops.Type, r *recipe.Recipe) {
	l.w.emit(GameEvent{Type: observerproto.EventIngredientAdded, RecipeID: r.ID, RecipeName: r.Name, Crop: c.String()})
}

func (l stationListener) RecipeCompleted(r *recipe.Recipe, reward int, bonus float64) {
	l.w.log.Printf("recipe completed: %q reward=%d bonus=%.1f", r.Name, reward, bonus)
	l.w.emit(GameEvent{Type: observerproto.EventRecipeCompleted, RecipeID: r.ID, RecipeName: r.Name, Points: reward, Bonus: bonus})
}

func (l stationListener) RecipeSwapped(from, to *recipe.Recipe, kept int) {
	l.w.emit(GameEvent{Type: observerproto.EventRecipeSwapped, FromID: from.ID, RecipeID: to.ID, RecipeName: to.Name, Kept: kept})
}

// noticeRelay shows banners on the board and records them as events.
type noticeRelay struct{ w *World }

func (n noticeRelay) ShowMessage(text, image string, seconds float64) {
	n.w.board.ShowMessage(text, image, seconds)
	n.w.emit(GameEvent{Type: observerproto.EventNotice, Text: text})
}

func (w *World) emit(ev GameEvent) {
	ev.Tick = w.tick.Load()
	ev.RoundID = w.roundID
	w.events = append(w.events, ev)
}
