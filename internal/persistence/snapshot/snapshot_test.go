package snapshot

import (
	"path/filepath"
	"testing"

	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/recipe"
	"dragonpot.game/internal/sim/round"
)

func sample() RoundV1 {
	return RoundV1{
		Header:    Header{Version: Version, WorldID: "w1", RoundID: "r-1", Round: 2, Tick: 6000},
		Seed:      7,
		Outcome:   string(round.Won),
		Score:     420,
		Completed: 3,
		StartTick: 100,
		Final: observerproto.TickMsg{
			Type:    observerproto.TypeTick,
			Tick:    6000,
			RoundID: "r-1",
			Round:   round.State{Outcome: round.Won, Score: 420, Satisfaction: 100},
			Station: observerproto.StationState{
				ID: "POT",
				Recipe: &recipe.Recipe{ID: 3, Name: "Soup", Ingredients: []recipe.Ingredient{
					{Crop: crops.Carrot, Required: 2, Current: 1},
				}},
			},
			Plants: []observerproto.PlantState{{ID: "CARROT_1", Crop: "Carrot", State: "GROWING", RegrowLeft: 12}},
		},
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", FileName(6000))
	if err := WriteSnapshot(path, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.RoundID != "r-1" || h.Round != 2 || h.Tick != 6000 {
		t.Fatalf("header=%+v", h)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Score != 420 || got.Outcome != "WON" || got.StartTick != 100 {
		t.Fatalf("snapshot=%+v", got)
	}
	r := got.Final.Station.Recipe
	if r == nil || r.Name != "Soup" || r.Ingredients[0].Crop != crops.Carrot || r.Ingredients[0].Current != 1 {
		t.Fatalf("recipe=%+v", r)
	}
	if len(got.Final.Plants) != 1 || got.Final.Plants[0].RegrowLeft != 12 {
		t.Fatalf("plants=%+v", got.Final.Plants)
	}
}

func TestReadSnapshot_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName(1))
	s := sample()
	s.Header.Version = 99
	if err := WriteSnapshot(path, s); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}
