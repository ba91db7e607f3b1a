package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	persistlog "dragonpot.game/internal/persistence/log"
	"dragonpot.game/internal/sim/catalogs"
	"dragonpot.game/internal/sim/tuning"
	"dragonpot.game/internal/sim/world"
)

type runMeta struct {
	WorldID     string           `json:"world_id"`
	Seed        int64            `json:"seed"`
	TickRateHz  int              `json:"tick_rate_hz"`
	AutoRestart bool             `json:"auto_restart"`
	MaxRounds   int              `json:"max_rounds"`
	ConfigDir   string           `json:"config_dir"`
	TuningPath  string           `json:"tuning_path"`
	Catalogs    catalogs.Digests `json:"catalogs"`
}

func main() {
	var (
		worldDir   = flag.String("world_dir", "", "world data directory (contains meta.json and events/)")
		configDir  = flag.String("configs", "", "config directory (default: from meta.json)")
		tuningPath = flag.String("tuning", "", "tuning.yaml (default: from meta.json)")
		toTick     = flag.Uint64("to_tick", 0, "stop after this tick (inclusive, optional)")
	)
	flag.Parse()

	if *worldDir == "" {
		fmt.Fprintln(os.Stderr, "missing -world_dir")
		os.Exit(2)
	}
	meta, err := readMeta(filepath.Join(*worldDir, "meta.json"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read meta:", err)
		os.Exit(1)
	}
	if *configDir == "" {
		*configDir = meta.ConfigDir
	}
	if *tuningPath == "" {
		*tuningPath = meta.TuningPath
	}

	cats, err := catalogs.Load(*configDir, log.New(os.Stderr, "[replay] ", 0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	if cats.Digests() != meta.Catalogs {
		fmt.Fprintln(os.Stderr, "warning: catalogs differ from the recorded run; digests will not match")
	}
	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	files, err := persistlog.TickFiles(*worldDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list ticks:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no tick logs found in", filepath.Join(*worldDir, "events"))
		os.Exit(1)
	}

	cfg := world.WorldConfig{
		ID:          meta.WorldID,
		TickRateHz:  meta.TickRateHz,
		Seed:        meta.Seed,
		AutoRestart: meta.AutoRestart,
		MaxRounds:   meta.MaxRounds,
	}
	newWorld := func() (*world.World, error) { return world.New(cfg, cats, tune, nil) }

	res, err := replay(newWorld, files, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: world=%s seed=%d runs=%d checked=%d ticks\n", meta.WorldID, meta.Seed, res.runs, res.checked)
}

func readMeta(path string) (runMeta, error) {
	var m runMeta
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

type replayResult struct {
	runs    int
	checked uint64
}

var errStop = errors.New("stop")

// replay re-steps a fresh world with the recorded actions and compares every
// state digest. A tick 0 entry after the first marks a server restart and
// begins a new run.
func replay(newWorld func() (*world.World, error), files []string, toTick uint64) (replayResult, error) {
	var (
		res replayResult
		w   *world.World
	)
	err := persistlog.ReadTicks(files, func(e world.TickLogEntry) error {
		if w == nil || e.Tick == 0 {
			nw, err := newWorld()
			if err != nil {
				return err
			}
			w = nw
			res.runs++
		}
		if toTick != 0 && e.Tick > toTick && res.runs == 1 {
			return errStop
		}
		if cur := w.CurrentTick(); cur != e.Tick {
			return fmt.Errorf("tick gap: world at %d, log at %d", cur, e.Tick)
		}
		acts := make([]world.ActionEnvelope, 0, len(e.Actions))
		for _, a := range e.Actions {
			acts = append(acts, world.ActionEnvelope{SessionID: "replay", Act: a.Act})
		}
		tick, digest := w.StepOnce(acts)
		if digest != e.Digest {
			return fmt.Errorf("digest mismatch at tick %d (run %d): got %s want %s", tick, res.runs, digest, e.Digest)
		}
		res.checked++
		return nil
	})
	if errors.Is(err, errStop) || errors.Is(err, io.EOF) {
		err = nil
	}
	return res, err
}
