package world

import (
	"encoding/json"
	"testing"

	"dragonpot.game/internal/protocol"
	"dragonpot.game/internal/sim/catalogs"
	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/geom"
	"dragonpot.game/internal/sim/plant"
	"dragonpot.game/internal/sim/recipe"
	"dragonpot.game/internal/sim/tuning"
)

func carrotSoup() recipe.Recipe {
	return recipe.Recipe{
		ID:           1,
		Name:         "Carrot Soup",
		Ingredients:  []recipe.Ingredient{{Crop: crops.Carrot, Required: 3}},
		RewardPoints: 100,
	}
}

type testOpts struct {
	cfg  WorldConfig
	tune func(*tuning.Tuning)
	cats func(*catalogs.Catalogs)
}

func newTestWorld(t *testing.T, o testOpts) *World {
	t.Helper()
	tu := tuning.Defaults()
	if o.tune != nil {
		o.tune(&tu)
	}
	cats := catalogs.Default()
	cats.Recipes.Templates = []recipe.Recipe{carrotSoup()}
	if o.cats != nil {
		o.cats(cats)
	}
	if o.cfg.ID == "" {
		o.cfg.ID = "test"
	}
	if o.cfg.Seed == 0 {
		o.cfg.Seed = 42
	}
	w, err := New(o.cfg, cats, tu, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func act(id, action string) ActionEnvelope {
	return ActionEnvelope{SessionID: "S1", Act: protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ID:              id,
		Action:          action,
	}}
}

func actTarget(id, action, target string) ActionEnvelope {
	e := act(id, action)
	e.Act.Target = target
	return e
}

func actMove(id string, x, z float64) ActionEnvelope {
	e := act(id, protocol.ActMove)
	e.Act.Pos = &[3]float64{x, 0, z}
	return e
}

func (w *World) stepFor(seconds float64) {
	for n := int(seconds/w.dt + 0.5); n > 0; n-- {
		w.StepOnce(nil)
	}
}

// join registers an observer session and returns its channel.
func join(w *World, sid string, events bool) chan []byte {
	ch := make(chan []byte, 64)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: sid, TickOut: ch, EveryTicks: 1, Events: events})
	return ch
}

// lastResult drains ch and returns the most recent ACT_RESULT.
func lastResult(t *testing.T, ch chan []byte) protocol.ActResultMsg {
	t.Helper()
	var out protocol.ActResultMsg
	found := false
	for {
		select {
		case b := <-ch:
			var base protocol.BaseMessage
			_ = json.Unmarshal(b, &base)
			if base.Type != protocol.TypeActResult {
				continue
			}
			if err := json.Unmarshal(b, &out); err != nil {
				t.Fatalf("decode result: %v", err)
			}
			found = true
		default:
			if !found {
				t.Fatalf("no ACT_RESULT received")
			}
			return out
		}
	}
}

func (w *World) dropItemAt(c crops.Type, pos geom.Vec3) string {
	return w.spawnItem(plant.Drop{Crop: c, Pos: pos}).ID
}
