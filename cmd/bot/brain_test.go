package main

import (
	"testing"

	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/protocol"
	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/recipe"
	"dragonpot.game/internal/sim/round"
)

func tickWith(carrotsNeeded int) *observerproto.TickMsg {
	return &observerproto.TickMsg{
		Tick:    10,
		RoundID: "r1",
		Round:   round.State{Outcome: round.Playing},
		Station: observerproto.StationState{
			ID:  "POT",
			Pos: [3]float64{0, 0, 0},
			Recipe: &recipe.Recipe{ID: 1, Ingredients: []recipe.Ingredient{
				{Crop: crops.Carrot, Required: 3, Current: 3 - carrotsNeeded},
			}},
		},
		Player: observerproto.PlayerState{ID: "P1", Pos: [3]float64{10, 0, 0}},
		Plants: []observerproto.PlantState{
			{ID: "CORN_1", Crop: "Corn", Pos: [3]float64{9, 0, 0}, State: "FULL"},
			{ID: "CARROT_1", Crop: "Carrot", Pos: [3]float64{5, 0, 0}, State: "FULL"},
		},
	}
}

func TestBrain_HarvestsNeededCrop(t *testing.T) {
	b := &brain{reach: 2}
	tm := tickWith(2)
	act := b.next(tm)
	if act == nil || act.Action != protocol.ActMove || act.Pos[0] != 5 {
		t.Fatalf("want MOVE to carrot plant, got %+v", act)
	}
	if code, msg := act.Validate(); code != "" {
		t.Fatalf("invalid act: %s %s", code, msg)
	}

	tm.Tick++
	if again := b.next(tm); again != nil {
		t.Fatalf("repeated unchanged intent: %+v", again)
	}

	tm.Player.Pos = [3]float64{5.5, 0, 0}
	tm.Tick++
	act = b.next(tm)
	if act == nil || act.Action != protocol.ActHarvestStart || act.Target != "CARROT_1" {
		t.Fatalf("want HARVEST_START CARROT_1, got %+v", act)
	}

	tm.Player.Harvesting = "CARROT_1"
	tm.Tick++
	if act := b.next(tm); act != nil {
		t.Fatalf("interrupted own harvest: %+v", act)
	}
}

func TestBrain_PicksUpThenDelivers(t *testing.T) {
	b := &brain{reach: 2}
	tm := tickWith(1)
	tm.Items = []observerproto.ItemState{
		{ID: "I1", Crop: "Corn", Pos: [3]float64{10, 0, 1}},
		{ID: "I2", Crop: "Carrot", Pos: [3]float64{11, 0, 0}},
	}
	act := b.next(tm)
	if act == nil || act.Action != protocol.ActPickup || act.Target != "I2" {
		t.Fatalf("want PICKUP I2, got %+v", act)
	}

	tm.Items = nil
	tm.Player.Carried = []string{"I2"}
	tm.Tick++
	act = b.next(tm)
	if act == nil || act.Action != protocol.ActMove || act.Pos[0] != 1 {
		t.Fatalf("want MOVE next to pot, got %+v", act)
	}

	tm.Player.Pos = [3]float64{1, 0, 0}
	tm.Tick++
	act = b.next(tm)
	if act == nil || act.Action != protocol.ActDrop {
		t.Fatalf("want DROP, got %+v", act)
	}
}

func TestBrain_HiddenRecipeTakesAnything(t *testing.T) {
	b := &brain{reach: 2}
	tm := tickWith(2)
	tm.Station.Recipe = nil
	tm.Player.Pos = [3]float64{20, 0, 0}
	act := b.next(tm)
	if act == nil || act.Action != protocol.ActMove || act.Pos == nil || act.Pos[0] != 9 {
		t.Fatalf("want MOVE to nearest plant, got %+v", act)
	}

	tm.Player.Pos = [3]float64{10, 0, 0}
	tm.Tick++
	act = b.next(tm)
	if act == nil || act.Action != protocol.ActHarvestStart || act.Target != "CORN_1" {
		t.Fatalf("want HARVEST_START CORN_1, got %+v", act)
	}
}

func TestBrain_RestartsAfterRoundEnds(t *testing.T) {
	tm := tickWith(1)
	tm.Round.Outcome = round.LostTime

	if act := (&brain{reach: 2}).next(tm); act != nil {
		t.Fatalf("restart disabled but got %+v", act)
	}
	act := (&brain{reach: 2, restart: true}).next(tm)
	if act == nil || act.Action != protocol.ActRestart || act.ID != "B1" {
		t.Fatalf("want RESTART B1, got %+v", act)
	}
}
