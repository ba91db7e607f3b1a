package crops

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type is a harvestable produce category. The numeric order matches the
// index form accepted in recipe files.
type Type uint8

const (
	Broccoli Type = iota
	Sunflower
	Mushroom
	Carrot
	Cauliflower
	Potato
	Corn
)

var names = [...]string{"Broccoli", "Sunflower", "Mushroom", "Carrot", "Cauliflower", "Potato", "Corn"}

// All lists every crop type in index order.
func All() []Type {
	out := make([]Type, len(names))
	for i := range names {
		out[i] = Type(i)
	}
	return out
}

func (t Type) Valid() bool { return int(t) < len(names) }

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Crop(%d)", uint8(t))
	}
	return names[t]
}

// Parse accepts a crop name, case-insensitive.
func Parse(s string) (Type, error) {
	s = strings.TrimSpace(s)
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown crop type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid crop type %d", uint8(t))
	}
	return []byte(names[t]), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalJSON accepts either the crop name or its index.
func (t *Type) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		if n < 0 || n >= len(names) {
			return fmt.Errorf("crop index %d out of range", n)
		}
		*t = Type(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("crop type: %w", err)
	}
	return t.UnmarshalText([]byte(s))
}
