// Package station is the cooking pot: it matches incoming produce against the
// active recipe, pays out completed recipes, and runs the dragon's
// mood-change schedule.
package station

import (
	"math"
	"math/rand"

	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/geom"
	"dragonpot.game/internal/sim/recipe"
	"dragonpot.game/internal/sim/tasks"
)

type Config struct {
	// Absorb pathway for loose items near the pot.
	DetectionRadius float64
	PullSpeed       float64
	AbsorbDistance  float64

	BonusBase      float64
	BonusPerSecond float64

	MoodInterval       float64
	MoodChance         float64
	MoodBelowRemaining float64
	MoodText           string
	MoodImage          string
	MoodSeconds        float64
}

func DefaultConfig() Config {
	return Config{
		DetectionRadius:    2,
		PullSpeed:          10,
		AbsorbDistance:     0.5,
		BonusBase:          100,
		BonusPerSecond:     5,
		MoodInterval:       10,
		MoodChance:         0.9,
		MoodBelowRemaining: 120,
		MoodText:           "Hmm... I'm craving something else...",
		MoodImage:          "dragon",
		MoodSeconds:        2.7,
	}
}

// Round is the part of the round controller the station talks to.
type Round interface {
	RemainingTime() float64
	OnRecipeCompleted(points int)
}

type Notifier interface {
	ShowMessage(text, image string, seconds float64)
}

// Listener receives station events. Recipes passed to it are copies.
type Listener interface {
	RecipeAssigned(r *recipe.Recipe)
	IngredientAdded(crop crops.Type, r *recipe.Recipe)
	RecipeCompleted(r *recipe.Recipe, reward int, bonus float64)
	RecipeSwapped(from, to *recipe.Recipe, kept int)
}

type Deps struct {
	Round    Round
	Notifier Notifier
	Listener Listener
	Rand     *rand.Rand
}

type Station struct {
	ID  string
	pos geom.Vec3
	cfg Config

	store *recipe.Store
	deps  Deps

	now       float64
	active    *recipe.Recipe
	startedAt float64

	hasFirst bool
	firstAt  float64
	mood     tasks.Repeater

	completed int
	swaps     int
}

// New builds a station and assigns its first recipe.
func New(id string, pos geom.Vec3, cfg Config, store *recipe.Store, deps Deps) *Station {
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(1))
	}
	s := &Station{ID: id, pos: pos, cfg: cfg, store: store, deps: deps}
	s.assign()
	return s
}

func (s *Station) Pos() geom.Vec3 { return s.pos }
func (s *Station) Config() Config { return s.cfg }
func (s *Station) Now() float64   { return s.now }
func (s *Station) Completed() int { return s.completed }
func (s *Station) Swaps() int     { return s.swaps }

// Active returns a copy of the active recipe, or nil.
func (s *Station) Active() *recipe.Recipe {
	if s.active == nil {
		return nil
	}
	return s.active.Copy()
}

// FirstIngredientAt is the time the first unit went into the active recipe.
func (s *Station) FirstIngredientAt() (float64, bool) { return s.firstAt, s.hasFirst }

// Elapsed is the time since the active recipe was assigned.
func (s *Station) Elapsed() float64 { return s.now - s.startedAt }

// Bonus is the time bonus a completion right now would earn.
func (s *Station) Bonus() float64 {
	return math.Max(0, s.cfg.BonusBase-s.Elapsed()*s.cfg.BonusPerSecond)
}

// MoodElapsed is the progress of the current mood-check interval.
func (s *Station) MoodElapsed() float64 { return s.mood.Elapsed }

// Needs reports whether the active recipe would accept crop.
func (s *Station) Needs(crop crops.Type) bool {
	return s.active != nil && !s.active.IsComplete() && s.active.Needs(crop)
}

// TryAddIngredient inserts one unit of crop. The caller destroys its item
// only when this returns true.
func (s *Station) TryAddIngredient(crop crops.Type) bool {
	if s.active == nil || s.active.IsComplete() {
		return false
	}
	if !s.active.Insert(crop) {
		return false
	}
	if !s.hasFirst {
		s.hasFirst = true
		s.firstAt = s.now
		s.mood.Start(s.cfg.MoodInterval)
	}
	if l := s.deps.Listener; l != nil {
		l.IngredientAdded(crop, s.active.Copy())
	}
	if s.active.IsComplete() {
		s.complete()
	}
	return true
}

// Advance moves the station clock and runs due mood checks.
func (s *Station) Advance(dt float64) {
	s.now += dt
	for n := s.mood.Advance(dt); n > 0; n-- {
		if !s.lateGame() {
			continue
		}
		if s.deps.Rand.Float64() < s.cfg.MoodChance {
			s.TriggerRecipeChange()
		}
	}
}

func (s *Station) lateGame() bool {
	return s.deps.Round != nil && s.deps.Round.RemainingTime() < s.cfg.MoodBelowRemaining
}

// TriggerRecipeChange swaps the active recipe for one compatible with the
// units already inserted, carrying those units over. The first-ingredient
// time and the mood schedule are kept.
func (s *Station) TriggerRecipeChange() bool {
	if s.active == nil {
		return false
	}
	units := s.active.Units()
	if len(units) == 0 {
		return false
	}
	next, ok := s.store.FindSwap(s.active.ID, units)
	if !ok {
		return false
	}
	old := s.active
	s.active = next
	kept := next.Transplant(units)
	s.swaps++

	if n := s.deps.Notifier; n != nil {
		n.ShowMessage(s.cfg.MoodText, s.cfg.MoodImage, s.cfg.MoodSeconds)
	}
	if l := s.deps.Listener; l != nil {
		l.RecipeSwapped(old, next.Copy(), kept)
	}
	// A carried-over multiset can already cover the new recipe.
	if s.active.IsComplete() {
		s.complete()
	}
	return true
}

func (s *Station) complete() {
	done := s.active
	bonus := s.Bonus()
	reward := done.RewardPoints + int(math.Round(bonus))
	s.completed++
	if l := s.deps.Listener; l != nil {
		l.RecipeCompleted(done.Copy(), reward, bonus)
	}
	if r := s.deps.Round; r != nil {
		r.OnRecipeCompleted(reward)
	}
	s.assign()
}

func (s *Station) assign() {
	s.active = s.store.Random(s.deps.Rand)
	s.startedAt = s.now
	s.hasFirst = false
	s.firstAt = 0
	s.mood.Stop()
	if s.active != nil {
		if l := s.deps.Listener; l != nil {
			l.RecipeAssigned(s.active.Copy())
		}
	}
}

// Reset clears progress and assigns a fresh recipe, for a new round.
func (s *Station) Reset() {
	s.completed = 0
	s.swaps = 0
	s.assign()
}

// Pull returns the velocity that draws an item at pos into the pot and
// whether the item is close enough to be absorbed. ok is false when pos is
// outside the detection radius.
func (s *Station) Pull(pos geom.Vec3) (vel geom.Vec3, absorb, ok bool) {
	d := s.pos.Dist(pos)
	if d > s.cfg.DetectionRadius {
		return geom.Vec3{}, false, false
	}
	return s.pos.Sub(pos).Normalize().Scale(s.cfg.PullSpeed), d < s.cfg.AbsorbDistance, true
}
