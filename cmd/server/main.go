package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "dragonpot.game/internal/persistence/log"
	"dragonpot.game/internal/sim/catalogs"
	"dragonpot.game/internal/sim/tuning"
	"dragonpot.game/internal/sim/world"
	"dragonpot.game/internal/transport/observer"
)

func main() {
	var (
		addr        = flag.String("addr", "127.0.0.1:8080", "http listen address")
		worldID     = flag.String("world", "kitchen_1", "world id")
		seed        = flag.Int64("seed", 1337, "world seed")
		configDir   = flag.String("configs", "./configs", "config directory (recipes.json, crops.json, arena.yaml)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite round index")
		autoRestart = flag.Bool("auto_restart", true, "start a new round as soon as one ends")
		maxRounds   = flag.Int("max_rounds", 0, "stop restarting after this many rounds (0 = no limit)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir, logger)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	cfg := world.WorldConfig{
		ID:          *worldID,
		TickRateHz:  tune.TickRateHz,
		Seed:        *seed,
		AutoRestart: *autoRestart,
		MaxRounds:   *maxRounds,
	}
	if err := writeRunMeta(worldDir, runMeta{
		WorldID:     cfg.ID,
		Seed:        cfg.Seed,
		TickRateHz:  cfg.TickRateHz,
		AutoRestart: cfg.AutoRestart,
		MaxRounds:   cfg.MaxRounds,
		ConfigDir:   *configDir,
		TuningPath:  tp,
		Catalogs:    cats.Digests(),
		StartedAt:   time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		logger.Printf("write run meta: %v", err)
	}

	idx, err := openIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	mirror, err := buildArchiveMirror(*dataDir, logger)
	if err != nil {
		logger.Fatalf("archive mirror: %v", err)
	}
	defer mirror.Close()

	w, err := world.New(cfg, cats, tune, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	eventLog := persistlog.NewEventLogger(worldDir)
	defer tickLog.Close()
	defer eventLog.Close()
	w.SetTickLogger(multiTickLogger{a: tickLog, b: idx.tickSink()})
	w.SetEventLogger(multiEventLogger{a: eventLog, b: idx.eventSink()})
	w.SetResultRecorder(resultLogger{
		next: roundArchiver{worldDir: worldDir, mirror: mirror, next: idx.resultSink(), log: logger},
		log:  logger,
	})

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(w, idx, mirror))
	observer.NewServer(w, idx.leaderboards(), logger).Routes(mux)

	if envBool("DP_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (DP_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/admin/v1/restart", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		select {
		case w.Inbox() <- world.AdminRestart():
			rw.WriteHeader(http.StatusAccepted)
		default:
			http.Error(rw, "world busy", http.StatusServiceUnavailable)
		}
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-worldDone:
		}
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s world=%s seed=%d recipes=%d fallback=%v", *addr, cfg.ID, cfg.Seed, len(cats.Recipes.Templates), cats.Recipes.Fallback)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	cancel()
	<-worldDone
	if r, ok := w.LastResult(); ok {
		logger.Printf("last round %s: outcome=%s score=%d", r.RoundID, r.Outcome, r.Score)
	}
}

// runMeta lets cmd/replay rebuild the world that produced a tick log.
type runMeta struct {
	WorldID     string           `json:"world_id"`
	Seed        int64            `json:"seed"`
	TickRateHz  int              `json:"tick_rate_hz"`
	AutoRestart bool             `json:"auto_restart"`
	MaxRounds   int              `json:"max_rounds"`
	ConfigDir   string           `json:"config_dir"`
	TuningPath  string           `json:"tuning_path"`
	Catalogs    catalogs.Digests `json:"catalogs"`
	StartedAt   string           `json:"started_at"`
}

func writeRunMeta(worldDir string, m runMeta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(worldDir, "meta.json.tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(worldDir, "meta.json"))
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}
