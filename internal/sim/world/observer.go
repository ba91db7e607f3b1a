package world

import (
	"encoding/json"

	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/sim/geom"
)

type observerClient struct {
	id         string
	tickOut    chan []byte
	everyTicks int
	events     bool

	// Events and actions seen since the last message sent to this client.
	pendingEvents  []GameEvent
	pendingActions []RecordedAction
}

func (w *World) defaultEvery(n int) int {
	switch {
	case n <= 0:
		return w.tune.Observer.StateEveryTicks
	case n > 100:
		return 100
	}
	return n
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if w == nil || req.SessionID == "" || req.TickOut == nil {
		return
	}
	// Replace existing session id if any.
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
	}
	w.observers[req.SessionID] = &observerClient{
		id:         req.SessionID,
		tickOut:    req.TickOut,
		everyTicks: w.defaultEvery(req.EveryTicks),
		events:     req.Events,
	}
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.everyTicks = w.defaultEvery(req.EveryTicks)
	c.events = req.Events
}

func (w *World) handleObserverLeave(id string) {
	c := w.observers[id]
	if c == nil {
		return
	}
	close(c.tickOut)
	delete(w.observers, id)
}

// stepObservers sends action replies and, on each client's cadence, the
// arena state.
func (w *World) stepObservers(nowTick uint64, actions []RecordedAction) {
	for _, r := range w.replies {
		c := w.observers[r.sessionID]
		if c == nil {
			continue
		}
		if b, err := json.Marshal(r.msg); err == nil {
			sendLatest(c.tickOut, b)
		}
	}
	w.replies = w.replies[:0]

	if len(w.observers) == 0 {
		return
	}
	var base *observerproto.TickMsg
	for _, id := range sortedKeys(w.observers) {
		c := w.observers[id]
		if c.events {
			c.pendingEvents = append(c.pendingEvents, w.events...)
			c.pendingActions = append(c.pendingActions, actions...)
		}
		if nowTick%uint64(c.everyTicks) != 0 {
			continue
		}
		if base == nil {
			m := w.buildTickMsg(nowTick)
			base = &m
		}
		msg := *base
		if c.events {
			msg.Events = c.pendingEvents
			msg.Actions = c.pendingActions
		}
		b, err := json.Marshal(msg)
		c.pendingEvents = nil
		c.pendingActions = nil
		if err != nil {
			w.log.Printf("observer %s: marshal: %v", id, err)
			continue
		}
		sendLatest(c.tickOut, b)
	}
}

func arr(v geom.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func (w *World) buildTickMsg(nowTick uint64) observerproto.TickMsg {
	now := w.now()
	msg := observerproto.TickMsg{
		Type:            observerproto.TypeTick,
		ProtocolVersion: observerproto.Version,
		Tick:            nowTick,
		RoundID:         w.roundID,
		Round:           w.round.State(),
	}

	s := w.station
	msg.Station = observerproto.StationState{
		ID:        s.ID,
		Pos:       arr(s.Pos()),
		Bonus:     s.Bonus(),
		Completed: s.Completed(),
		Swaps:     s.Swaps(),
	}
	if r := s.Active(); r != nil {
		msg.Station.Progress = r.Progress()
		if !w.round.MemoryLost() {
			msg.Station.Recipe = r
		}
	}

	p := w.player
	msg.Player = observerproto.PlayerState{
		ID:         p.ID,
		Pos:        arr(p.Pos),
		Carried:    append([]string{}, p.Carried...),
		Harvesting: p.harvestID,
	}

	msg.NPCs = make([]observerproto.NPCState, 0, len(w.npcIDs))
	for _, id := range w.npcIDs {
		n := w.npcs[id]
		ns := observerproto.NPCState{
			ID:        n.ID,
			Name:      n.Name,
			State:     string(n.State()),
			Pos:       arr(n.Pos),
			Carried:   append([]string{}, n.Carried...),
			Zone:      n.ZoneID,
			Held:      n.Held(),
			Airborne:  n.Airborne(),
			Harvested: n.Stats.Harvested,
			Delivered: n.Stats.Delivered,
			Wasted:    n.Stats.Wasted,
		}
		if wa, ok := n.WorkArea(); ok {
			a := arr(wa)
			ns.WorkArea = &a
		}
		switch {
		case n.TargetPlant() != "":
			ns.Target = n.TargetPlant()
			ns.Harvest = n.HarvestProgress()
		case n.TargetItem() != "":
			ns.Target = n.TargetItem()
		case n.WaypointID() != "":
			ns.Target = n.WaypointID()
		}
		msg.NPCs = append(msg.NPCs, ns)
	}

	msg.Plants = make([]observerproto.PlantState, 0, len(w.plantIDs))
	for _, id := range w.plantIDs {
		pl := w.plants[id]
		msg.Plants = append(msg.Plants, observerproto.PlantState{
			ID:         pl.ID,
			Crop:       pl.Crop().String(),
			Pos:        arr(pl.Pos),
			State:      pl.State().String(),
			Harvester:  pl.Harvester(),
			Progress:   pl.ProgressFrac(),
			RegrowLeft: pl.RegrowLeft(),
		})
	}

	ids := w.sortedItemIDs()
	msg.Items = make([]observerproto.ItemState, 0, len(ids))
	for _, id := range ids {
		it := w.items[id]
		is := observerproto.ItemState{
			ID:      it.ID,
			Crop:    it.Crop.String(),
			Pos:     arr(it.Pos),
			Carrier: it.CarrierID,
			TTL:     w.tune.Items.LifetimeSeconds,
		}
		if it.Free() {
			is.TTL = itemTTL(now, it.LooseSince, w.tune.Items.LifetimeSeconds)
		}
		msg.Items = append(msg.Items, is)
	}

	msg.Zones = make([]observerproto.ZoneState, 0, len(w.zoneIDs))
	for _, id := range w.zoneIDs {
		z := w.zones[id]
		msg.Zones = append(msg.Zones, observerproto.ZoneState{
			ID:     z.ID,
			Name:   z.Name,
			Crop:   z.Crop.String(),
			Center: arr(z.Center),
			Radius: z.Radius,
			Worker: z.WorkerID,
		})
	}

	if v, ok := w.board.Current(); ok {
		msg.Notice = &v
	}
	return msg
}

// Bootstrap describes the world for a new observer. Safe from any goroutine:
// it reads only immutable configuration and atomics.
func (w *World) Bootstrap() observerproto.BootstrapResponse {
	dg := w.catalogs.Digests()
	return observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         w.cfg.ID,
		Tick:            w.CurrentTick(),
		WorldParams: observerproto.WorldParams{
			TickRateHz:  w.cfg.TickRateHz,
			Seed:        w.cfg.Seed,
			TimeLimit:   w.tune.Round.TimeLimit,
			PlayerCarry: w.tune.Player.MaxCarry,
			PlayerReach: w.tune.Player.Reach,
		},
		Catalogs:        observerproto.CatalogDigests{Recipes: dg.Recipes, Crops: dg.Crops, Layout: dg.Layout},
		Recipes:         w.store.Templates(),
		RecipesFallback: w.catalogs.Recipes.Fallback,
	}
}
