package notice

import "testing"

func run(b *Board, seconds float64) {
	for n := int(seconds/0.05 + 0.5); n > 0; n-- {
		b.Advance(0.05)
	}
}

func TestBoard_SlideStaySlide(t *testing.T) {
	b := NewBoard(DefaultConfig(), nil)
	b.ShowMessage("Phase 2 start!", "", 3)

	v, ok := b.Current()
	if !ok || v.Phase != PhaseSlideIn || v.Offset != 0 {
		t.Fatalf("initial view=%+v ok=%v", v, ok)
	}
	run(b, 0.2)
	v, _ = b.Current()
	if v.Phase != PhaseSlideIn || v.Offset <= 0 || v.Offset >= 1 {
		t.Fatalf("mid slide view=%+v", v)
	}
	run(b, 0.2)
	if v, _ = b.Current(); v.Phase != PhaseStay || v.Offset != 1 {
		t.Fatalf("expected stay, got %+v", v)
	}
	run(b, 3)
	if v, _ = b.Current(); v.Phase != PhaseSlideOut {
		t.Fatalf("expected slide out, got %+v", v)
	}
	run(b, 0.4)
	if _, ok := b.Current(); ok {
		t.Fatalf("banner still visible")
	}
}

func TestBoard_NewMessageReplacesCurrent(t *testing.T) {
	b := NewBoard(DefaultConfig(), nil)
	b.ShowMessage("first", "", 0)
	run(b, 1)
	if v, _ := b.Current(); v.Text != "first" || v.Phase != PhaseStay {
		t.Fatalf("current=%+v", v)
	}

	b.ShowMessage("second", "dragon", 1)
	v, ok := b.Current()
	if !ok || v.Text != "second" || v.Image != "dragon" || v.Phase != PhaseSlideIn || v.Offset != 0 {
		t.Fatalf("expected second banner sliding in, got %+v ok=%v", v, ok)
	}
	if b.Shown() != 2 {
		t.Fatalf("shown=%d", b.Shown())
	}

	run(b, 0.4+1+0.4)
	if _, ok := b.Current(); ok {
		t.Fatalf("first banner came back after the second")
	}
}

func TestBoard_ReplaceDuringSlideOut(t *testing.T) {
	b := NewBoard(Config{SlideSeconds: 0.4, StaySeconds: 1}, nil)
	b.ShowMessage("a", "", 0)
	run(b, 0.4+1+0.2)
	if v, _ := b.Current(); v.Phase != PhaseSlideOut {
		t.Fatalf("expected slide out, got %+v", v)
	}
	b.ShowMessage("b", "", 0)
	run(b, 0.4)
	if v, _ := b.Current(); v.Text != "b" || v.Phase != PhaseStay {
		t.Fatalf("expected b on screen, got %+v", v)
	}
}
