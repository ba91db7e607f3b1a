package recipe

import (
	"math/rand"

	"dragonpot.game/internal/sim/crops"
)

// Store is the immutable, ordered set of recipe templates. In-play recipes
// are always fresh copies; the store itself never changes after NewStore.
type Store struct {
	templates []Recipe
}

func NewStore(templates []Recipe) *Store {
	s := &Store{templates: make([]Recipe, 0, len(templates))}
	for i := range templates {
		s.templates = append(s.templates, *templates[i].Clone())
	}
	return s
}

func (s *Store) Len() int { return len(s.templates) }

// Templates returns copies of the templates in store order.
func (s *Store) Templates() []Recipe {
	out := make([]Recipe, 0, len(s.templates))
	for i := range s.templates {
		out = append(out, *s.templates[i].Clone())
	}
	return out
}

func (s *Store) Get(id int) (*Recipe, bool) {
	for i := range s.templates {
		if s.templates[i].ID == id {
			return s.templates[i].Clone(), true
		}
	}
	return nil, false
}

// Random picks a template uniformly and returns a fresh copy, or nil when
// the store is empty.
func (s *Store) Random(rng *rand.Rand) *Recipe {
	if len(s.templates) == 0 {
		return nil
	}
	return s.templates[rng.Intn(len(s.templates))].Clone()
}

// FindSwap searches for a replacement for the recipe currentID given the
// units already inserted. The first template (store order) the units fully
// satisfy wins; otherwise the first template sharing any crop type. Ties are
// never broken by closeness of fit.
func (s *Store) FindSwap(currentID int, units []crops.Type) (*Recipe, bool) {
	if len(units) == 0 {
		return nil, false
	}
	have := counts(units)
	for i := range s.templates {
		t := &s.templates[i]
		if t.ID != currentID && t.satisfiedBy(have) {
			return t.Clone(), true
		}
	}
	for i := range s.templates {
		t := &s.templates[i]
		if t.ID != currentID && t.sharesCrop(have) {
			return t.Clone(), true
		}
	}
	return nil, false
}
