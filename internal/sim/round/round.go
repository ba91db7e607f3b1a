// Package round is the game clock and win/lose controller: a countdown, the
// dragon's patience and satisfaction meters, and the late-round events.
package round

import (
	"math/rand"

	"dragonpot.game/internal/sim/tasks"
)

type Outcome string

const (
	Playing      Outcome = "PLAYING"
	Won          Outcome = "WON"
	LostPatience Outcome = "LOST_PATIENCE"
	LostTime     Outcome = "LOST_TIME"
)

type PhaseNotice struct {
	AtRemaining float64 `yaml:"at_remaining" json:"at_remaining"`
	Text        string  `yaml:"text" json:"text"`
	Seconds     float64 `yaml:"seconds" json:"seconds"`
}

type MemoryLostConfig struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	Below         float64 `yaml:"below_remaining" json:"below_remaining"`
	CheckInterval float64 `yaml:"check_interval" json:"check_interval"`
	Chance        float64 `yaml:"chance" json:"chance"`
	Duration      float64 `yaml:"duration" json:"duration"`
	Text          string  `yaml:"text" json:"text"`
	Image         string  `yaml:"image" json:"image"`
}

type Config struct {
	TimeLimit float64

	PatienceStart            int
	PatienceMax              int
	PatienceDecreaseInterval float64
	PatienceDecreaseAmount   int
	// GraceSeconds is how long after the round start or the last completed
	// recipe patience holds steady.
	GraceSeconds float64

	SatisfactionPerRecipe int
	SatisfactionMax       int
	PatienceRestore       int
	WinSatisfaction       int

	Phases     []PhaseNotice
	MemoryLost MemoryLostConfig
}

func DefaultConfig() Config {
	return Config{
		TimeLimit:                300,
		PatienceStart:            100,
		PatienceMax:              100,
		PatienceDecreaseInterval: 5,
		PatienceDecreaseAmount:   10,
		GraceSeconds:             45,
		SatisfactionPerRecipe:    20,
		SatisfactionMax:          100,
		PatienceRestore:          30,
		WinSatisfaction:          100,
		Phases: []PhaseNotice{
			{AtRemaining: 180, Text: "Phase 2 start!", Seconds: 3},
			{AtRemaining: 100, Text: "Phase 3 start!", Seconds: 3},
		},
		MemoryLost: MemoryLostConfig{
			Enabled:       true,
			Below:         200,
			CheckInterval: 1,
			Chance:        0.3,
			Duration:      30,
			Text:          "Wait... what was I making?",
			Image:         "dragon",
		},
	}
}

// Notifier shows a banner to the player.
type Notifier interface {
	ShowMessage(text, image string, seconds float64)
}

// State is a read-only view of the round.
type State struct {
	Remaining    float64 `json:"remaining"`
	Elapsed      float64 `json:"elapsed"`
	Patience     int     `json:"patience"`
	Satisfaction int     `json:"satisfaction"`
	Score        int     `json:"score"`
	Completed    int     `json:"completed"`
	Outcome      Outcome `json:"outcome"`
	MemoryLost   bool    `json:"memory_lost"`
	GraceLeft    float64 `json:"grace_left"`
}

type Round struct {
	cfg      Config
	notifier Notifier
	rng      *rand.Rand

	remaining     float64
	elapsed       float64
	sinceProgress float64
	sinceDecrease float64

	patience     int
	satisfaction int
	score        int
	completed    int
	outcome      Outcome

	phaseShown  []bool
	memoryLost  bool
	memoryFired bool // at most once per round
	memoryLeft  float64
	memoryCheck tasks.Repeater
}

func New(cfg Config, notifier Notifier, rng *rand.Rand) *Round {
	r := &Round{cfg: cfg, notifier: notifier, rng: rng}
	r.Reset()
	return r
}

// Reset starts a fresh round with the same configuration.
func (r *Round) Reset() {
	r.remaining = r.cfg.TimeLimit
	r.elapsed = 0
	r.sinceProgress = 0
	r.sinceDecrease = 0
	r.patience = r.cfg.PatienceStart
	r.satisfaction = 0
	r.score = 0
	r.completed = 0
	r.outcome = Playing
	r.phaseShown = make([]bool, len(r.cfg.Phases))
	r.memoryLost = false
	r.memoryFired = false
	r.memoryLeft = 0
	r.memoryCheck.Stop()
	if r.cfg.MemoryLost.Enabled {
		r.memoryCheck.Start(r.cfg.MemoryLost.CheckInterval)
	}
}

func (r *Round) RemainingTime() float64 { return r.remaining }
func (r *Round) Outcome() Outcome       { return r.outcome }
func (r *Round) Over() bool             { return r.outcome != Playing }
func (r *Round) MemoryLost() bool       { return r.memoryLost }

func (r *Round) State() State {
	return State{
		Remaining:    r.remaining,
		Elapsed:      r.elapsed,
		Patience:     r.patience,
		Satisfaction: r.satisfaction,
		Score:        r.score,
		Completed:    r.completed,
		Outcome:      r.outcome,
		MemoryLost:   r.memoryLost,
		GraceLeft:    max(0, r.cfg.GraceSeconds-r.sinceProgress),
	}
}

// Advance runs the clock for one tick. It does nothing once the round has an
// outcome.
func (r *Round) Advance(dt float64) {
	if r.Over() {
		return
	}
	r.elapsed += dt
	r.remaining -= dt
	if r.remaining <= 1e-9 {
		r.remaining = 0
		r.end(LostTime)
		return
	}

	r.sinceProgress += dt
	r.sinceDecrease += dt
	if reached(r.sinceProgress, r.cfg.GraceSeconds) && reached(r.sinceDecrease, r.cfg.PatienceDecreaseInterval) {
		r.patience -= r.cfg.PatienceDecreaseAmount
		r.sinceDecrease = 0
		if r.patience <= 0 {
			r.patience = 0
			r.end(LostPatience)
			return
		}
	}
	if r.satisfaction >= r.cfg.WinSatisfaction {
		r.end(Won)
		return
	}

	r.advanceMemoryLost(dt)
	r.checkPhases()
}

// OnRecipeCompleted credits a finished recipe.
func (r *Round) OnRecipeCompleted(points int) {
	if r.Over() {
		return
	}
	r.completed++
	r.score += points
	r.satisfaction = min(r.cfg.SatisfactionMax, r.satisfaction+r.cfg.SatisfactionPerRecipe)
	r.patience = min(r.cfg.PatienceMax, r.patience+r.cfg.PatienceRestore)
	r.sinceProgress = 0
	if r.satisfaction >= r.cfg.WinSatisfaction {
		r.end(Won)
	}
}

func (r *Round) end(o Outcome) {
	r.outcome = o
	r.memoryLost = false
	r.memoryCheck.Stop()
}

func (r *Round) advanceMemoryLost(dt float64) {
	if r.memoryLost {
		r.memoryLeft -= dt
		if r.memoryLeft <= 1e-9 {
			r.memoryLost = false
			r.memoryLeft = 0
		}
	}
	mc := r.cfg.MemoryLost
	for n := r.memoryCheck.Advance(dt); n > 0; n-- {
		if r.memoryFired || r.remaining > mc.Below || r.rng == nil {
			continue
		}
		if r.rng.Float64() < mc.Chance {
			r.memoryLost = true
			r.memoryFired = true
			r.memoryLeft = mc.Duration
			r.memoryCheck.Stop()
			r.notify(mc.Text, mc.Image, 0)
		}
	}
}

func (r *Round) checkPhases() {
	for i, p := range r.cfg.Phases {
		if r.phaseShown[i] || r.remaining > p.AtRemaining {
			continue
		}
		r.phaseShown[i] = true
		r.notify(p.Text, "", p.Seconds)
	}
}

func (r *Round) notify(text, image string, seconds float64) {
	if r.notifier != nil && text != "" {
		r.notifier.ShowMessage(text, image, seconds)
	}
}

func reached(v, limit float64) bool { return v+1e-9 >= limit }
