package tasks

// Timed work in the simulation is explicit state advanced by the caller once
// per tick. Nothing here owns a goroutine or a wall clock.

// eps absorbs float drift from summing dt, e.g. 100 x 0.05 < 5.
const eps = 1e-9

// Timer is a cancellable one-shot countdown.
type Timer struct {
	Duration float64
	Elapsed  float64
	active   bool
}

func (t *Timer) Start(d float64) {
	t.Duration = d
	t.Elapsed = 0
	t.active = true
}

// Cancel stops the timer and clears elapsed time. Cancelling an idle timer
// is a no-op.
func (t *Timer) Cancel() {
	t.active = false
	t.Elapsed = 0
}

func (t *Timer) Active() bool { return t.active }

// Advance moves the timer forward and reports whether it fired on this call.
func (t *Timer) Advance(dt float64) bool {
	if !t.active {
		return false
	}
	t.Elapsed += dt
	if t.Elapsed+eps >= t.Duration {
		t.Elapsed = t.Duration
		t.active = false
		return true
	}
	return false
}

func (t *Timer) Remaining() float64 {
	if !t.active {
		return 0
	}
	return max(0, t.Duration-t.Elapsed)
}

// Fraction is elapsed/duration in [0,1].
func (t *Timer) Fraction() float64 {
	if t.Duration <= 0 {
		return 1
	}
	return min(1, t.Elapsed/t.Duration)
}

// Repeater fires every Interval while running. Elapsed carries over so the
// cadence does not drift with the tick size.
type Repeater struct {
	Interval float64
	Elapsed  float64
	running  bool
}

func (r *Repeater) Start(interval float64) {
	r.Interval = interval
	r.Elapsed = 0
	r.running = true
}

func (r *Repeater) Stop() {
	r.running = false
	r.Elapsed = 0
}

func (r *Repeater) Running() bool { return r.running }

// Advance returns how many times the repeater fired during dt.
func (r *Repeater) Advance(dt float64) int {
	if !r.running || r.Interval <= 0 {
		return 0
	}
	r.Elapsed += dt
	n := 0
	for r.Elapsed+eps >= r.Interval {
		r.Elapsed -= r.Interval
		n++
	}
	if r.Elapsed < 0 {
		r.Elapsed = 0
	}
	return n
}

// TickWait counts down whole ticks, for steps that must let another system
// observe a change before continuing.
type TickWait struct {
	Left int
}

// Step consumes one tick and reports whether the wait is over.
func (w *TickWait) Step() bool {
	if w.Left > 0 {
		w.Left--
	}
	return w.Left == 0
}
