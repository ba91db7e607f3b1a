package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"dragonpot.game/internal/persistence/objstore"
)

// buildArchiveMirror returns nil unless DP_ARCHIVE_MIRROR is set.
func buildArchiveMirror(dataDir string, logger *log.Logger) (*objstore.Mirror, error) {
	if !envBool("DP_ARCHIVE_MIRROR", false) {
		return nil, nil
	}
	cfg := objstore.Config{
		Endpoint:        os.Getenv("DP_ARCHIVE_S3_ENDPOINT"),
		Bucket:          os.Getenv("DP_ARCHIVE_S3_BUCKET"),
		Region:          os.Getenv("DP_ARCHIVE_S3_REGION"),
		AccessKeyID:     os.Getenv("DP_ARCHIVE_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("DP_ARCHIVE_S3_SECRET_ACCESS_KEY"),
	}
	client, err := objstore.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("DP_ARCHIVE_MIRROR=true: %w", err)
	}
	prefix := strings.TrimSpace(os.Getenv("DP_ARCHIVE_S3_PREFIX"))
	return objstore.NewMirror(client, dataDir, prefix, envInt("DP_ARCHIVE_UPLOAD_WORKERS", 2), logger), nil
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
