package main

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"dragonpot.game/internal/persistence/archive"
	"dragonpot.game/internal/persistence/indexdb"
	"dragonpot.game/internal/persistence/objstore"
	"dragonpot.game/internal/persistence/snapshot"
	"dragonpot.game/internal/sim/world"
	"dragonpot.game/internal/transport/observer"
)

// runtimeIndex is the optional read-model index. A nil *runtimeIndex means
// indexing is disabled; every accessor is nil-safe.
type runtimeIndex struct {
	*indexdb.SQLiteIndex
}

func openIndex(worldDir string, disableDB bool) (*runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}
	s, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	if err != nil {
		return nil, err
	}
	return &runtimeIndex{s}, nil
}

func (r *runtimeIndex) tickSink() world.TickLogger {
	if r == nil {
		return nil
	}
	return r.SQLiteIndex
}

func (r *runtimeIndex) eventSink() world.EventLogger {
	if r == nil {
		return nil
	}
	return r.SQLiteIndex
}

func (r *runtimeIndex) resultSink() world.ResultRecorder {
	if r == nil {
		return nil
	}
	return r.SQLiteIndex
}

func (r *runtimeIndex) leaderboards() observer.Leaderboards {
	if r == nil {
		return nil
	}
	return r.SQLiteIndex
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiEventLogger struct {
	a world.EventLogger
	b world.EventLogger
}

func (m multiEventLogger) WriteEvent(ev world.GameEvent) error {
	if m.a != nil {
		_ = m.a.WriteEvent(ev)
	}
	if m.b != nil {
		_ = m.b.WriteEvent(ev)
	}
	return nil
}

// resultLogger prints every finished round and forwards it to the index.
type resultLogger struct {
	next world.ResultRecorder
	log  *log.Logger
}

func (r resultLogger) RecordRound(res world.RoundResult) error {
	r.log.Printf("round result: id=%s outcome=%s score=%d completed=%d swaps=%d elapsed=%.1fs",
		res.RoundID, res.Outcome, res.Score, res.Completed, res.Swaps, res.Elapsed)
	if r.next == nil {
		return nil
	}
	return r.next.RecordRound(res)
}

// roundArchiver writes the final arena of each round to
// worldDir/snapshots and archives it per round number.
type roundArchiver struct {
	worldDir string
	mirror   *objstore.Mirror
	next     world.ResultRecorder
	log      *log.Logger
}

func (a roundArchiver) RecordRound(res world.RoundResult) error {
	if res.Final != nil {
		snap := snapshot.RoundV1{
			Header: snapshot.Header{
				Version: snapshot.Version,
				WorldID: res.WorldID,
				RoundID: res.RoundID,
				Round:   res.Number,
				Tick:    res.EndTick,
			},
			Seed:      res.Seed,
			Outcome:   res.Outcome,
			Score:     res.Score,
			Completed: res.Completed,
			Swaps:     res.Swaps,
			Elapsed:   res.Elapsed,
			StartTick: res.StartTick,
			Final:     *res.Final,
		}
		path := filepath.Join(a.worldDir, "snapshots", snapshot.FileName(res.EndTick))
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			a.log.Printf("snapshot round %s: %v", res.RoundID, err)
		} else if dst, ok, err := archive.ArchiveRoundSnapshot(a.worldDir, path, snap, time.Now()); err != nil {
			a.log.Printf("archive round %s: %v", res.RoundID, err)
		} else if ok {
			a.log.Printf("archived round %d: %s", res.Number, dst)
			if err := a.mirror.EnqueueDir(filepath.Dir(dst)); err != nil {
				a.log.Printf("mirror round %d: %v", res.Number, err)
			}
		}
	}
	if a.next == nil {
		return nil
	}
	return a.next.RecordRound(res)
}

// metricsHandler serves a minimal Prometheus exposition.
func metricsHandler(w *world.World, idx *runtimeIndex, mirror *objstore.Mirror) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		id := w.ID()
		s := w.Summary()

		fmt.Fprintf(rw, "# HELP dragonpot_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE dragonpot_world_tick gauge\n")
		fmt.Fprintf(rw, "dragonpot_world_tick{world=%q} %d\n", id, s.Tick)

		fmt.Fprintf(rw, "# HELP dragonpot_round_remaining_seconds Time left in the current round.\n")
		fmt.Fprintf(rw, "# TYPE dragonpot_round_remaining_seconds gauge\n")
		fmt.Fprintf(rw, "dragonpot_round_remaining_seconds{world=%q} %.3f\n", id, s.Round.Remaining)

		fmt.Fprintf(rw, "# HELP dragonpot_round_meter Round meters (patience, satisfaction, score).\n")
		fmt.Fprintf(rw, "# TYPE dragonpot_round_meter gauge\n")
		fmt.Fprintf(rw, "dragonpot_round_meter{world=%q,meter=%q} %d\n", id, "patience", s.Round.Patience)
		fmt.Fprintf(rw, "dragonpot_round_meter{world=%q,meter=%q} %d\n", id, "satisfaction", s.Round.Satisfaction)
		fmt.Fprintf(rw, "dragonpot_round_meter{world=%q,meter=%q} %d\n", id, "score", s.Round.Score)
		fmt.Fprintf(rw, "dragonpot_round_meter{world=%q,meter=%q} %d\n", id, "completed", s.Round.Completed)

		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "# HELP dragonpot_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE dragonpot_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "dragonpot_index_queue_depth{world=%q} %d\n", id, st.QueueDepth)
			fmt.Fprintf(rw, "# HELP dragonpot_index_dropped_total Index writes dropped under backpressure.\n")
			fmt.Fprintf(rw, "# TYPE dragonpot_index_dropped_total counter\n")
			fmt.Fprintf(rw, "dragonpot_index_dropped_total{world=%q,kind=%q} %d\n", id, "tick", st.DropTickTotal)
			fmt.Fprintf(rw, "dragonpot_index_dropped_total{world=%q,kind=%q} %d\n", id, "event", st.DropEventTotal)
			fmt.Fprintf(rw, "dragonpot_index_dropped_total{world=%q,kind=%q} %d\n", id, "round", st.DropRoundTotal)
		}
		if mirror != nil {
			ms := mirror.Stats()
			fmt.Fprintf(rw, "# HELP dragonpot_archive_uploads_total Round archive files mirrored to object storage.\n")
			fmt.Fprintf(rw, "# TYPE dragonpot_archive_uploads_total counter\n")
			fmt.Fprintf(rw, "dragonpot_archive_uploads_total{world=%q,result=%q} %d\n", id, "ok", ms.Uploaded)
			fmt.Fprintf(rw, "dragonpot_archive_uploads_total{world=%q,result=%q} %d\n", id, "failed", ms.Failed)
			fmt.Fprintf(rw, "dragonpot_archive_uploads_total{world=%q,result=%q} %d\n", id, "dropped", ms.Dropped)
		}
	}
}
