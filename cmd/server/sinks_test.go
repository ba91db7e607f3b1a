package main

import (
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"

	"dragonpot.game/internal/persistence/archive"
	"dragonpot.game/internal/persistence/snapshot"
	"dragonpot.game/internal/sim/catalogs"
	"dragonpot.game/internal/sim/tuning"
	"dragonpot.game/internal/sim/world"
)

type results struct{ got []world.RoundResult }

func (r *results) RecordRound(res world.RoundResult) error {
	r.got = append(r.got, res)
	return nil
}

func shortRoundWorld(t *testing.T) *world.World {
	t.Helper()
	tune := tuning.Defaults()
	tune.Round.TimeLimit = 0.5
	w, err := world.New(world.WorldConfig{ID: "t1", Seed: 5, MaxRounds: 1}, catalogs.Default(), tune, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func TestRoundArchiver_WritesSnapshotAndArchive(t *testing.T) {
	worldDir := t.TempDir()
	next := &results{}
	w := shortRoundWorld(t)
	w.SetResultRecorder(resultLogger{
		next: roundArchiver{worldDir: worldDir, next: next, log: log.New(io.Discard, "", 0)},
		log:  log.New(io.Discard, "", 0),
	})
	for i := 0; i < 40 && len(next.got) == 0; i++ {
		w.StepOnce(nil)
	}
	if len(next.got) != 1 {
		t.Fatalf("round results forwarded: %d", len(next.got))
	}
	res := next.got[0]

	metas, err := archive.List(worldDir)
	if err != nil || len(metas) != 1 {
		t.Fatalf("archives=%+v err=%v", metas, err)
	}
	if metas[0].Round != 1 || metas[0].RoundID != res.RoundID || metas[0].Outcome != res.Outcome {
		t.Fatalf("meta=%+v result=%+v", metas[0], res)
	}
	snap, err := snapshot.ReadSnapshot(archive.Dir(worldDir, 1) + "/" + metas[0].Snapshot)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Final.RoundID != res.RoundID || snap.Header.Tick != res.EndTick {
		t.Fatalf("snapshot header=%+v final round=%s", snap.Header, snap.Final.RoundID)
	}
}

func TestMetricsHandler(t *testing.T) {
	w := shortRoundWorld(t)
	rec := httptest.NewRecorder()
	metricsHandler(w, nil, nil)(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`dragonpot_world_tick{world="t1"} 0`,
		`dragonpot_round_meter{world="t1",meter="score"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
	if strings.Contains(body, "dragonpot_index_") || strings.Contains(body, "dragonpot_archive_") {
		t.Fatalf("disabled sinks reported:\n%s", body)
	}
}
