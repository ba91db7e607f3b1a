package tuning

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestDefaults_Valid(t *testing.T) {
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if d.RoundConfig().TimeLimit != 300 || d.StationConfig().MoodInterval != 10 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if d.Dt() != 0.05 {
		t.Fatalf("dt: %v", d.Dt())
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	p := writeFile(t, `
tick_rate_hz: 10
round:
  time_limit: 120
npc:
  move_speed: 4.5
`)
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickRateHz != 10 || tu.Round.TimeLimit != 120 || tu.NPC.MoveSpeed != 4.5 {
		t.Fatalf("overrides not applied: %+v", tu)
	}
	if tu.Round.PatienceStart != 100 || tu.Items.LifetimeSeconds != 30 {
		t.Fatalf("defaults lost: %+v", tu)
	}
	if len(tu.RoundConfig().Phases) != 2 {
		t.Fatalf("phases lost: %+v", tu.Round.Phases)
	}
	if c := tu.NPCConfig(); c.MoveSpeed != 4.5 || c.ArriveDistance != 2 {
		t.Fatalf("npc config: %+v", c)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	p := writeFile(t, "station:\n  mood_chance: 1.5\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
	p = writeFile(t, "tick_rate_hz: [1,2]\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_ShippedTuningMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, Defaults()) {
		t.Fatalf("configs/tuning.yaml drifted from Defaults():\n got %+v\nwant %+v", got, Defaults())
	}
}
