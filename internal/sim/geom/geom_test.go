package geom

import (
	"math"
	"testing"
)

func TestMoveTowardsXZ_NoOvershoot(t *testing.T) {
	a := V(0, 1, 0)
	got := a.MoveTowardsXZ(V(3, 5, 4), 2)
	if math.Abs(got.DistXZ(a)-2) > 1e-9 {
		t.Fatalf("step len=%v want 2", got.DistXZ(a))
	}
	if got.Y != 1 {
		t.Fatalf("height changed: %v", got.Y)
	}
	got = a.MoveTowardsXZ(V(0.5, 0, 0), 2)
	if got.X != 0.5 || got.Z != 0 || got.Y != 1 {
		t.Fatalf("expected snap to target on ground plane, got %v", got)
	}
}

func TestPolar(t *testing.T) {
	p := Polar(90, 2)
	if math.Abs(p.X-2) > 1e-9 || math.Abs(p.Z) > 1e-9 {
		t.Fatalf("polar 90: %v", p)
	}
	if n := (Vec3{}).Normalize(); n != (Vec3{}) {
		t.Fatalf("normalize zero: %v", n)
	}
}
