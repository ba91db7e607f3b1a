// Package tuning holds the gameplay constants loaded from tuning.yaml.
package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dragonpot.game/internal/sim/notice"
	"dragonpot.game/internal/sim/npc"
	"dragonpot.game/internal/sim/round"
	"dragonpot.game/internal/sim/station"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz"`

	Player  Player  `yaml:"player"`
	Physics Physics `yaml:"physics"`
	Items   Items   `yaml:"items"`

	Round   Round   `yaml:"round"`
	Station Station `yaml:"station"`
	NPC     NPC     `yaml:"npc"`
	Notice  Notice  `yaml:"notice"`

	Observer Observer `yaml:"observer"`
}

type Player struct {
	MoveSpeed     float64 `yaml:"move_speed"`
	Reach         float64 `yaml:"reach"`
	MaxCarry      int     `yaml:"max_carry"`
	MaxThrowSpeed float64 `yaml:"max_throw_speed"`
	ThrowLift     float64 `yaml:"throw_lift"`
}

type Physics struct {
	Gravity        float64 `yaml:"gravity"`
	GroundFriction float64 `yaml:"ground_friction"`
	Bounce         float64 `yaml:"bounce"`
}

type Items struct {
	LifetimeSeconds float64 `yaml:"lifetime_seconds"`
}

type Round struct {
	TimeLimit                float64                `yaml:"time_limit"`
	PatienceStart            int                    `yaml:"patience_start"`
	PatienceMax              int                    `yaml:"patience_max"`
	PatienceDecreaseInterval float64                `yaml:"patience_decrease_interval"`
	PatienceDecreaseAmount   int                    `yaml:"patience_decrease_amount"`
	GraceSeconds             float64                `yaml:"grace_seconds"`
	SatisfactionPerRecipe    int                    `yaml:"satisfaction_per_recipe"`
	SatisfactionMax          int                    `yaml:"satisfaction_max"`
	PatienceRestore          int                    `yaml:"patience_restore"`
	WinSatisfaction          int                    `yaml:"win_satisfaction"`
	Phases                   []round.PhaseNotice    `yaml:"phases"`
	MemoryLost               round.MemoryLostConfig `yaml:"memory_lost"`
}

type Station struct {
	DetectionRadius    float64 `yaml:"detection_radius"`
	PullSpeed          float64 `yaml:"pull_speed"`
	AbsorbDistance     float64 `yaml:"absorb_distance"`
	BonusBase          float64 `yaml:"bonus_base"`
	BonusPerSecond     float64 `yaml:"bonus_per_second"`
	MoodInterval       float64 `yaml:"mood_interval"`
	MoodChance         float64 `yaml:"mood_chance"`
	MoodBelowRemaining float64 `yaml:"mood_below_remaining"`
	MoodText           string  `yaml:"mood_text"`
	MoodImage          string  `yaml:"mood_image"`
	MoodSeconds        float64 `yaml:"mood_seconds"`
}

type NPC struct {
	MoveSpeed            float64 `yaml:"move_speed"`
	DecisionInterval     float64 `yaml:"decision_interval"`
	StartDelay           float64 `yaml:"start_delay"`
	WorkRadius           float64 `yaml:"work_radius"`
	MaxCarry             int     `yaml:"max_carry"`
	CenterDetectionRange float64 `yaml:"center_detection_range"`
	PotDeliveryDistance  float64 `yaml:"pot_delivery_distance"`
	HarvestSeconds       float64 `yaml:"harvest_seconds"`
	PickupSettleTicks    int     `yaml:"pickup_settle_ticks"`
	PickupHoldSeconds    float64 `yaml:"pickup_hold_seconds"`
	LandingTimeout       float64 `yaml:"landing_timeout"`
}

type Notice struct {
	SlideSeconds float64 `yaml:"slide_seconds"`
	StaySeconds  float64 `yaml:"stay_seconds"`
}

type Observer struct {
	StateEveryTicks int     `yaml:"state_every_ticks"`
	InboundPerSec   float64 `yaml:"inbound_per_sec"`
	InboundBurst    int     `yaml:"inbound_burst"`
	LeaderboardTTL  int     `yaml:"leaderboard_ttl_seconds"`
}

// Defaults returns the built-in tuning. Load overlays a file on top of it.
func Defaults() Tuning {
	rc := round.DefaultConfig()
	sc := station.DefaultConfig()
	nc := npc.DefaultConfig()
	bc := notice.DefaultConfig()
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      20,
		Player: Player{
			MoveSpeed:     5,
			Reach:         2.5,
			MaxCarry:      3,
			MaxThrowSpeed: 15,
			ThrowLift:     4,
		},
		Physics: Physics{Gravity: 9.81, GroundFriction: 6, Bounce: 0.2},
		Items:   Items{LifetimeSeconds: 30},
		Round: Round{
			TimeLimit:                rc.TimeLimit,
			PatienceStart:            rc.PatienceStart,
			PatienceMax:              rc.PatienceMax,
			PatienceDecreaseInterval: rc.PatienceDecreaseInterval,
			PatienceDecreaseAmount:   rc.PatienceDecreaseAmount,
			GraceSeconds:             rc.GraceSeconds,
			SatisfactionPerRecipe:    rc.SatisfactionPerRecipe,
			SatisfactionMax:          rc.SatisfactionMax,
			PatienceRestore:          rc.PatienceRestore,
			WinSatisfaction:          rc.WinSatisfaction,
			Phases:                   rc.Phases,
			MemoryLost:               rc.MemoryLost,
		},
		Station: Station(sc),
		NPC: NPC{
			MoveSpeed:            nc.MoveSpeed,
			DecisionInterval:     nc.DecisionInterval,
			StartDelay:           nc.StartDelay,
			WorkRadius:           nc.WorkRadius,
			MaxCarry:             nc.MaxCarry,
			CenterDetectionRange: nc.CenterDetectionRange,
			PotDeliveryDistance:  nc.PotDeliveryDistance,
			HarvestSeconds:       nc.HarvestSeconds,
			PickupSettleTicks:    nc.PickupSettleTicks,
			PickupHoldSeconds:    nc.PickupHoldSeconds,
			LandingTimeout:       nc.LandingTimeout,
		},
		Notice: Notice(bc),
		Observer: Observer{
			StateEveryTicks: 2,
			InboundPerSec:   10,
			InboundBurst:    20,
			LeaderboardTTL:  5,
		},
	}
}

// Load reads path over Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}
	check(t.TickRateHz > 0 && t.TickRateHz <= 1000, "tick_rate_hz must be in 1..1000")
	check(t.Player.MaxCarry > 0, "player.max_carry must be positive")
	check(t.Player.Reach > 0, "player.reach must be positive")
	check(t.Items.LifetimeSeconds > 0, "items.lifetime_seconds must be positive")
	check(t.Physics.Gravity >= 0, "physics.gravity must not be negative")
	check(t.Round.TimeLimit > 0, "round.time_limit must be positive")
	check(t.Round.PatienceMax > 0 && t.Round.PatienceStart <= t.Round.PatienceMax, "round.patience_start must be within patience_max")
	check(t.Round.PatienceDecreaseInterval > 0, "round.patience_decrease_interval must be positive")
	check(t.Round.WinSatisfaction > 0 && t.Round.WinSatisfaction <= t.Round.SatisfactionMax, "round.win_satisfaction must be within satisfaction_max")
	check(t.Round.MemoryLost.Chance >= 0 && t.Round.MemoryLost.Chance <= 1, "round.memory_lost.chance must be in [0,1]")
	check(t.Station.MoodInterval > 0, "station.mood_interval must be positive")
	check(t.Station.MoodChance >= 0 && t.Station.MoodChance <= 1, "station.mood_chance must be in [0,1]")
	check(t.Station.AbsorbDistance <= t.Station.DetectionRadius, "station.absorb_distance must not exceed detection_radius")
	check(t.NPC.MaxCarry > 0, "npc.max_carry must be positive")
	check(t.NPC.DecisionInterval > 0, "npc.decision_interval must be positive")
	check(t.NPC.MoveSpeed > 0, "npc.move_speed must be positive")
	check(t.Notice.SlideSeconds >= 0 && t.Notice.StaySeconds >= 0, "notice values must not be negative")
	check(t.Observer.StateEveryTicks > 0, "observer.state_every_ticks must be positive")
	return errors.Join(errs...)
}

// Dt is the simulated length of one tick in seconds.
func (t Tuning) Dt() float64 { return 1 / float64(t.TickRateHz) }

func (t Tuning) RoundConfig() round.Config {
	r := t.Round
	return round.Config{
		TimeLimit:                r.TimeLimit,
		PatienceStart:            r.PatienceStart,
		PatienceMax:              r.PatienceMax,
		PatienceDecreaseInterval: r.PatienceDecreaseInterval,
		PatienceDecreaseAmount:   r.PatienceDecreaseAmount,
		GraceSeconds:             r.GraceSeconds,
		SatisfactionPerRecipe:    r.SatisfactionPerRecipe,
		SatisfactionMax:          r.SatisfactionMax,
		PatienceRestore:          r.PatienceRestore,
		WinSatisfaction:          r.WinSatisfaction,
		Phases:                   append([]round.PhaseNotice(nil), r.Phases...),
		MemoryLost:               r.MemoryLost,
	}
}

func (t Tuning) StationConfig() station.Config { return station.Config(t.Station) }

func (t Tuning) NoticeConfig() notice.Config { return notice.Config(t.Notice) }

// NPCConfig starts from the scheduler defaults and applies the tunable
// subset.
func (t Tuning) NPCConfig() npc.Config {
	c := npc.DefaultConfig()
	n := t.NPC
	c.MoveSpeed = n.MoveSpeed
	c.DecisionInterval = n.DecisionInterval
	c.StartDelay = n.StartDelay
	c.WorkRadius = n.WorkRadius
	c.MaxCarry = n.MaxCarry
	c.CenterDetectionRange = n.CenterDetectionRange
	c.PotDeliveryDistance = n.PotDeliveryDistance
	c.HarvestSeconds = n.HarvestSeconds
	c.PickupSettleTicks = n.PickupSettleTicks
	c.PickupHoldSeconds = n.PickupHoldSeconds
	c.LandingTimeout = n.LandingTimeout
	return c
}
