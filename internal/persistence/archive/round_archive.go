// Package archive keeps one directory per finished round under
// worldDir/archives.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"dragonpot.game/internal/persistence/snapshot"
)

type RoundArchiveMeta struct {
	Round     int    `json:"round"`
	RoundID   string `json:"round_id"`
	Outcome   string `json:"outcome"`
	Score     int    `json:"score"`
	EndTick   uint64 `json:"end_tick"`
	Seed      int64  `json:"seed"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// Dir is the archive directory of round n.
func Dir(worldDir string, n int) string {
	return filepath.Join(worldDir, "archives", fmt.Sprintf("round_%03d", n))
}

// ArchiveRoundSnapshot copies a written snapshot into worldDir/archives/round_<NNN>/
// next to a meta.json describing it. Rounds numbered below 1 are not archived.
func ArchiveRoundSnapshot(worldDir, snapshotPath string, snap snapshot.RoundV1, now time.Time) (archivedPath string, archived bool, err error) {
	if snap.Header.Round <= 0 {
		return "", false, nil
	}
	archiveDir := Dir(worldDir, snap.Header.Round)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := RoundArchiveMeta{
		Round:     snap.Header.Round,
		RoundID:   snap.Header.RoundID,
		Outcome:   snap.Outcome,
		Score:     snap.Score,
		EndTick:   snap.Header.Tick,
		Seed:      snap.Seed,
		Snapshot:  filepath.Base(dst),
		CreatedAt: now.UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", false, err
	}
	return dst, true, nil
}

// List returns the meta of every archived round, oldest first.
func List(worldDir string) ([]RoundArchiveMeta, error) {
	dirs, err := filepath.Glob(filepath.Join(worldDir, "archives", "round_*"))
	if err != nil {
		return nil, err
	}
	out := make([]RoundArchiveMeta, 0, len(dirs))
	for _, d := range dirs {
		b, err := os.ReadFile(filepath.Join(d, "meta.json"))
		if err != nil {
			continue
		}
		var m RoundArchiveMeta
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
