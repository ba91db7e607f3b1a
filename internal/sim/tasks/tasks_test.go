package tasks

import "testing"

func TestTimer_FiresOnceAfterDuration(t *testing.T) {
	var tm Timer
	tm.Start(5)
	fired := 0
	for i := 0; i < 100; i++ {
		if tm.Advance(0.05) {
			fired++
			if i != 99 {
				t.Fatalf("fired at step %d, want 99", i)
			}
		}
	}
	if fired != 1 {
		t.Fatalf("fired=%d want 1", fired)
	}
	if tm.Active() {
		t.Fatalf("timer still active")
	}
	if tm.Advance(1) {
		t.Fatalf("idle timer fired")
	}
}

func TestTimer_CancelResets(t *testing.T) {
	var tm Timer
	tm.Start(3)
	tm.Advance(1)
	tm.Cancel()
	if tm.Active() || tm.Elapsed != 0 {
		t.Fatalf("cancel left state: %+v", tm)
	}
	tm.Cancel()
}

func TestRepeater_CarriesRemainder(t *testing.T) {
	var r Repeater
	r.Start(10)
	total := 0
	for i := 0; i < 300; i++ {
		total += r.Advance(0.1)
	}
	if total != 3 {
		t.Fatalf("fires=%d want 3", total)
	}
	r.Stop()
	if r.Advance(100) != 0 {
		t.Fatalf("stopped repeater fired")
	}
}

func TestTickWait(t *testing.T) {
	w := TickWait{Left: 2}
	if w.Step() {
		t.Fatalf("done after 1 of 2 ticks")
	}
	if !w.Step() {
		t.Fatalf("not done after 2 ticks")
	}
	if !w.Step() {
		t.Fatalf("finished wait should stay done")
	}
}
