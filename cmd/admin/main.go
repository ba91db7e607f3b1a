package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "dragonpot.game/internal/persistence/log"
	"dragonpot.game/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		case "archives":
			archivesCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "restart":
			restartCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// eventsCmd prints gameplay events from the compressed logs, one JSON object
// per line.
func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	roundID := fs.String("round", "", "round id filter (optional)")
	typ := fs.String("type", "", "event type filter (optional)")
	limit := fs.Int("limit", 0, "stop after this many events (0 = all)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	files, err := persistlog.EventFiles(filepath.Join(*dataDir, "worlds", *worldID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	n := 0
	stop := errors.New("limit reached")
	err = persistlog.ReadEvents(files, func(ev world.GameEvent) error {
		if !matchEvent(ev, *roundID, *typ) {
			return nil
		}
		if err := enc.Encode(ev); err != nil {
			return err
		}
		n++
		if *limit > 0 && n >= *limit {
			return stop
		}
		return nil
	})
	if err != nil && !errors.Is(err, stop) {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
}

func matchEvent(ev world.GameEvent, roundID, typ string) bool {
	if roundID != "" && ev.RoundID != roundID {
		return false
	}
	if typ != "" && ev.Type != typ {
		return false
	}
	return true
}
