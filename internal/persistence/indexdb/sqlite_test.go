package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/sim/catalogs"
	"dragonpot.game/internal/sim/tuning"
	"dragonpot.game/internal/sim/world"
)

func openTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func syncIndex(t *testing.T, s *SQLiteIndex) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func TestSQLiteIndex_LeaderboardOrder(t *testing.T) {
	s := openTest(t)
	for _, r := range []world.RoundResult{
		{RoundID: "a", Outcome: "LOST_TIME", Score: 300, EndTick: 100},
		{RoundID: "b", Outcome: "WON", Score: 900, EndTick: 200},
		{RoundID: "c", Outcome: "LOST_PATIENCE", Score: 300, EndTick: 50},
	} {
		if err := s.RecordRound(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	syncIndex(t, s)

	rows, err := s.Leaderboard(context.Background(), 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.RoundID)
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "c" || ids[2] != "a" {
		t.Fatalf("order: %v", ids)
	}
	if rows[0].Outcome != "WON" || rows[1].EndTick != 50 {
		t.Fatalf("row: %+v", rows[0])
	}
}

func TestSQLiteIndex_EventsFanOut(t *testing.T) {
	s := openTest(t)
	evs := []world.GameEvent{
		{Tick: 10, RoundID: "r1", Type: observerproto.EventIngredientAdded, Crop: "Carrot"},
		{Tick: 10, RoundID: "r1", Type: observerproto.EventRecipeCompleted, RecipeID: 2, RecipeName: "Stew", Points: 150, Bonus: 50},
		{Tick: 30, RoundID: "r1", Type: observerproto.EventRecipeSwapped, FromID: 3, RecipeID: 4, Kept: 1},
		{Tick: 40, RoundID: "r1", Type: observerproto.EventRecipeCompleted, RecipeID: 2, RecipeName: "Stew", Points: 110, Bonus: 10},
	}
	for _, ev := range evs {
		_ = s.WriteEvent(ev)
	}
	_ = s.WriteTick(world.TickLogEntry{Tick: 10, RoundID: "r1", Digest: "abc"})
	syncIndex(t, s)

	swaps, err := s.Swaps(context.Background(), "r1", 0)
	if err != nil {
		t.Fatalf("swaps: %v", err)
	}
	if len(swaps) != 1 || swaps[0].FromRecipeID != 3 || swaps[0].ToRecipeID != 4 || swaps[0].Kept != 1 {
		t.Fatalf("swaps: %+v", swaps)
	}
	stats, err := s.RecipeStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 || stats[0].Count != 2 || stats[0].AvgPoints != 130 {
		t.Fatalf("recipe stats: %+v", stats)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE round_id='r1'`).Scan(&n); err != nil || n != 4 {
		t.Fatalf("events: n=%d err=%v", n, err)
	}
	var digest string
	if err := s.db.QueryRow(`SELECT digest FROM ticks WHERE tick=10`).Scan(&digest); err != nil || digest != "abc" {
		t.Fatalf("tick digest: %q err=%v", digest, err)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	s := openTest(t)
	if err := s.UpsertCatalogs(catalogs.Default(), tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	var names []string
	rows, err := s.db.Query(`SELECT name FROM catalogs ORDER BY name`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n string
		_ = rows.Scan(&n)
		names = append(names, n)
	}
	if len(names) != 4 || names[0] != "crops" || names[3] != "tuning" {
		t.Fatalf("catalog rows: %v", names)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	_ = s.WriteEvent(world.GameEvent{Tick: 2})
	_ = s.RecordRound(world.RoundResult{RoundID: "x"})

	st := s.Stats()
	if st.DropTickTotal != 1 || st.DropEventTotal != 1 || st.DropRoundTotal != 1 {
		t.Fatalf("drops: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NilSafe(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteTick(world.TickLogEntry{}); err != nil {
		t.Fatalf("nil write: %v", err)
	}
	if st := s.Stats(); st.QueueCapacity != 0 {
		t.Fatalf("nil stats: %+v", st)
	}
}
