package recipe

import (
	"dragonpot.game/internal/sim/crops"
)

// Ingredient is one requirement line of a recipe together with the
// progress made toward it by the active station.
type Ingredient struct {
	Crop     crops.Type `json:"cropType"`
	Required int        `json:"requiredAmount"`
	Current  int        `json:"currentAmount"`
}

func (i Ingredient) IsComplete() bool { return i.Current >= i.Required }

// Recipe is either a store template (counters zero) or the active copy held
// by a station.
type Recipe struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Ingredients  []Ingredient `json:"ingredients"`
	RewardPoints int          `json:"rewardPoints"`
	CookingTime  float64      `json:"cookingTime"`
}

// Fallback is used when no recipe file can be loaded.
func Fallback() Recipe {
	return Recipe{
		ID:           1,
		Name:         "Default Recipe",
		Description:  "Basic cooking recipe",
		Ingredients:  []Ingredient{{Crop: crops.Broccoli, Required: 3}},
		RewardPoints: 100,
		CookingTime:  5,
	}
}

func (r *Recipe) IsComplete() bool {
	for _, in := range r.Ingredients {
		if !in.IsComplete() {
			return false
		}
	}
	return true
}

// Copy returns a deep copy that keeps progress.
func (r *Recipe) Copy() *Recipe {
	cp := *r
	cp.Ingredients = make([]Ingredient, len(r.Ingredients))
	copy(cp.Ingredients, r.Ingredients)
	return &cp
}

// Clone returns a deep copy with zeroed counters.
func (r *Recipe) Clone() *Recipe {
	cp := r.Copy()
	cp.Reset()
	return cp
}

func (r *Recipe) Reset() {
	for i := range r.Ingredients {
		r.Ingredients[i].Current = 0
	}
}

// Needs reports whether an incomplete ingredient of crop exists.
func (r *Recipe) Needs(crop crops.Type) bool {
	for _, in := range r.Ingredients {
		if in.Crop == crop && !in.IsComplete() {
			return true
		}
	}
	return false
}

// Insert adds one unit to the first incomplete ingredient of crop.
func (r *Recipe) Insert(crop crops.Type) bool {
	for i := range r.Ingredients {
		in := &r.Ingredients[i]
		if in.Crop == crop && !in.IsComplete() {
			in.Current++
			return true
		}
	}
	return false
}

// HasProgress reports whether any unit has been inserted.
func (r *Recipe) HasProgress() bool {
	for _, in := range r.Ingredients {
		if in.Current > 0 {
			return true
		}
	}
	return false
}

// Units flattens inserted progress into a multiset, in ingredient order.
func (r *Recipe) Units() []crops.Type {
	var out []crops.Type
	for _, in := range r.Ingredients {
		for n := 0; n < in.Current; n++ {
			out = append(out, in.Crop)
		}
	}
	return out
}

// Transplant re-inserts units into r. Units r has no room for are discarded.
// It returns how many units were kept.
func (r *Recipe) Transplant(units []crops.Type) int {
	kept := 0
	for _, c := range units {
		if r.Insert(c) {
			kept++
		}
	}
	return kept
}

// Progress is the fraction of required units inserted, in [0,1].
func (r *Recipe) Progress() float64 {
	need, have := 0, 0
	for _, in := range r.Ingredients {
		need += in.Required
		have += min(in.Current, in.Required)
	}
	if need == 0 {
		return 1
	}
	return float64(have) / float64(need)
}

func counts(units []crops.Type) map[crops.Type]int {
	m := make(map[crops.Type]int, len(units))
	for _, c := range units {
		m[c]++
	}
	return m
}

// satisfiedBy reports whether every requirement can be covered by the
// multiset. Units are consumed so a crop listed twice needs both amounts.
func (r *Recipe) satisfiedBy(have map[crops.Type]int) bool {
	left := make(map[crops.Type]int, len(have))
	for k, v := range have {
		left[k] = v
	}
	for _, in := range r.Ingredients {
		if left[in.Crop] < in.Required {
			return false
		}
		left[in.Crop] -= in.Required
	}
	return true
}

func (r *Recipe) sharesCrop(have map[crops.Type]int) bool {
	for _, in := range r.Ingredients {
		if have[in.Crop] > 0 {
			return true
		}
	}
	return false
}
