// Package notice drives the on-screen notification banner: a message slides
// in, stays, then slides out. A new message replaces the one on screen and
// restarts the slide-in.
package notice

import (
	"io"
	"log"
)

type Phase string

const (
	PhaseHidden   Phase = "HIDDEN"
	PhaseSlideIn  Phase = "SLIDE_IN"
	PhaseStay     Phase = "STAY"
	PhaseSlideOut Phase = "SLIDE_OUT"
)

type Config struct {
	SlideSeconds float64
	StaySeconds  float64 // used when a caller passes a non-positive duration
}

func DefaultConfig() Config {
	return Config{SlideSeconds: 0.4, StaySeconds: 2.7}
}

type Message struct {
	Text  string  `json:"text"`
	Image string  `json:"image,omitempty"`
	Stay  float64 `json:"stay"`
}

// View is what a renderer needs for the current frame.
type View struct {
	Message
	Phase  Phase   `json:"phase"`
	Offset float64 `json:"offset"` // 0 hidden, 1 fully visible
}

type Board struct {
	cfg Config
	log *log.Logger

	cur     *Message
	phase   Phase
	elapsed float64
	shown   int
}

func NewBoard(cfg Config, logger *log.Logger) *Board {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Board{cfg: cfg, log: logger, phase: PhaseHidden}
}

// ShowMessage puts text on the banner, replacing whatever is showing.
// seconds <= 0 uses the configured stay time.
func (b *Board) ShowMessage(text, image string, seconds float64) {
	if seconds <= 0 {
		seconds = b.cfg.StaySeconds
	}
	m := Message{Text: text, Image: image, Stay: seconds}
	b.log.Printf("notice: %q (image=%q stay=%.1fs)", text, image, seconds)
	b.start(m)
}

func (b *Board) start(m Message) {
	b.cur = &m
	b.phase = PhaseSlideIn
	b.elapsed = 0
	b.shown++
}

// Advance moves the animation forward one tick.
func (b *Board) Advance(dt float64) {
	if b.cur == nil {
		return
	}
	b.elapsed += dt
	for b.cur != nil {
		var limit float64
		switch b.phase {
		case PhaseSlideIn, PhaseSlideOut:
			limit = b.cfg.SlideSeconds
		case PhaseStay:
			limit = b.cur.Stay
		}
		if b.elapsed+1e-9 < limit {
			return
		}
		b.elapsed -= limit
		switch b.phase {
		case PhaseSlideIn:
			b.phase = PhaseStay
		case PhaseStay:
			b.phase = PhaseSlideOut
		case PhaseSlideOut:
			b.cur = nil
			b.phase = PhaseHidden
			b.elapsed = 0
		}
	}
}

func (b *Board) Current() (View, bool) {
	if b.cur == nil {
		return View{Phase: PhaseHidden}, false
	}
	v := View{Message: *b.cur, Phase: b.phase}
	switch b.phase {
	case PhaseSlideIn:
		v.Offset = ease(b.elapsed / b.cfg.SlideSeconds)
	case PhaseStay:
		v.Offset = 1
	case PhaseSlideOut:
		v.Offset = 1 - ease(b.elapsed/b.cfg.SlideSeconds)
	}
	return v, true
}

func (b *Board) Shown() int { return b.shown }

func (b *Board) Reset() {
	b.cur = nil
	b.phase = PhaseHidden
	b.elapsed = 0
}

// ease is a smoothstep ease-in-out on [0,1].
func ease(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x * x * (3 - 2*x)
}
