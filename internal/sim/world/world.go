package world

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"

	"dragonpot.game/internal/sim/catalogs"
	"dragonpot.game/internal/sim/entity"
	"dragonpot.game/internal/sim/notice"
	"dragonpot.game/internal/sim/npc"
	"dragonpot.game/internal/sim/plant"
	"dragonpot.game/internal/sim/recipe"
	"dragonpot.game/internal/sim/round"
	"dragonpot.game/internal/sim/station"
	"dragonpot.game/internal/sim/tuning"
)

type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64

	// AutoRestart begins a new round as soon as one ends. MaxRounds stops
	// restarting after that many rounds (0 means no limit).
	AutoRestart bool
	MaxRounds   int
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	tune     tuning.Tuning
	log      *log.Logger
	dt       float64

	tick atomic.Uint64
	rng  *rand.Rand

	store   *recipe.Store
	station *station.Station
	round   *round.Round
	board   *notice.Board
	player  *Player

	npcs      map[string]*npc.NPC
	plants    map[string]*plant.Plant
	items     map[string]*entity.Item
	waypoints map[string]*entity.Waypoint
	zones     map[string]*entity.Zone

	// Sorted id lists; rebuilt when the object set changes.
	npcIDs      []string
	plantIDs    []string
	itemIDs     []string
	waypointIDs []string
	zoneIDs     []string
	itemsDirty  bool

	nextItemNum uint64

	roundID        string
	roundNum       int
	roundStartTick uint64
	roundClosed    bool
	done           atomic.Bool

	events     []GameEvent
	replies    []reply
	lastDigest string
	lastResult *RoundResult

	inbox         chan ActionEnvelope
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	stop          chan struct{}
	observers     map[string]*observerClient

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	tickLogger     TickLogger
	eventLogger    EventLogger
	resultRecorder ResultRecorder

	summary atomic.Pointer[Summary]
}

// Summary is a snapshot of the current round readable from any goroutine.
type Summary struct {
	Tick    uint64      `json:"tick"`
	RoundID string      `json:"round_id"`
	Round   round.State `json:"round"`
	Done    bool        `json:"done"`
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, tune tuning.Tuning, logger *log.Logger) (*World, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cats == nil {
		cats = catalogs.Default()
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = tune.TickRateHz
	}
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("world %s: tick rate must be positive", cfg.ID)
	}
	if len(cats.Recipes.Templates) == 0 {
		return nil, fmt.Errorf("world %s: no recipes", cfg.ID)
	}
	if err := cats.Layout.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}

	w := &World{
		cfg:           cfg,
		catalogs:      cats,
		tune:          tune,
		log:           logger,
		dt:            1 / float64(cfg.TickRateHz),
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		store:         recipe.NewStore(cats.Recipes.Templates),
		inbox:         make(chan ActionEnvelope, 256),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 16),
		observerLeave: make(chan string, 16),
		stop:          make(chan struct{}),
		observers:     map[string]*observerClient{},
	}
	w.board = notice.NewBoard(tune.NoticeConfig(), logger)
	w.round = round.New(tune.RoundConfig(), noticeRelay{w}, w.rng)
	w.startRound()
	w.publishSummary()
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)         { w.tickLogger = l }
func (w *World) SetEventLogger(l EventLogger)       { w.eventLogger = l }
func (w *World) SetResultRecorder(r ResultRecorder) { w.resultRecorder = r }

func (w *World) Inbox() chan<- ActionEnvelope                       { return w.inbox }
func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Done reports that the round limit was reached and no new round will start.
func (w *World) Done() bool { return w.done.Load() }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Config() WorldConfig {
	if w == nil {
		return WorldConfig{}
	}
	return w.cfg
}

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }
func (w *World) Tuning() tuning.Tuning        { return w.tune }

// Summary is safe to call from any goroutine.
func (w *World) Summary() Summary {
	if s := w.summary.Load(); s != nil {
		return *s
	}
	return Summary{}
}

func (w *World) now() float64 { return float64(w.tick.Load()) * w.dt }

func (w *World) newItemID() string {
	w.nextItemNum++
	return fmt.Sprintf("I%d", w.nextItemNum)
}

// newRoundID derives the round id from the seed and round number so a
// replayed world produces the same ids.
func (w *World) newRoundID() string {
	src := rand.New(rand.NewSource(w.cfg.Seed ^ int64(w.roundNum)<<32))
	id, err := uuid.NewRandomFromReader(src)
	if err != nil {
		return fmt.Sprintf("round-%d", w.roundNum)
	}
	return id.String()
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (w *World) sortedItemIDs() []string {
	if w.itemsDirty {
		w.itemIDs = sortedKeys(w.items)
		w.itemsDirty = false
	}
	return w.itemIDs
}
