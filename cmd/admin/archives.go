package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dragonpot.game/internal/persistence/archive"
	"dragonpot.game/internal/persistence/snapshot"
)

// archivesCmd lists archived rounds, or with -round N prints that round's
// final snapshot.
func archivesCmd(args []string) {
	fs := flag.NewFlagSet("archives", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	round := fs.Int("round", 0, "round number to print (0 = list)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	worldDir := filepath.Join(*dataDir, "worlds", *worldID)

	metas, err := archive.List(worldDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	if *round <= 0 {
		for _, m := range metas {
			_ = enc.Encode(m)
		}
		return
	}

	for _, m := range metas {
		if m.Round != *round {
			continue
		}
		snap, err := snapshot.ReadSnapshot(filepath.Join(archive.Dir(worldDir, m.Round), m.Snapshot))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		enc.SetIndent("", "  ")
		_ = enc.Encode(snap)
		return
	}
	fmt.Fprintf(os.Stderr, "round %d not archived\n", *round)
	os.Exit(1)
}
