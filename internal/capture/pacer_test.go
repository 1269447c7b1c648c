package capture

import (
	"testing"
	"time"
)

func TestPacer(t *testing.T) {
	base := time.Unix(0, 0)
	p := NewPacer(5, 15, 2*time.Second)

	if p.Active() || p.FPS() != 5 || p.Interval() != 200*time.Millisecond {
		t.Fatalf("new pacer: active=%v fps=%d interval=%s", p.Active(), p.FPS(), p.Interval())
	}

	steps := []struct {
		at          time.Duration
		motion      bool
		wantFPS     int
		wantChanged bool
	}{
		{0, false, 5, false},
		{100 * time.Millisecond, true, 15, true},
		{200 * time.Millisecond, true, 15, false},
		{1 * time.Second, false, 15, false},
		{2200 * time.Millisecond, false, 15, false},
		{2201 * time.Millisecond, false, 5, true},
		{3 * time.Second, false, 5, false},
		{4 * time.Second, true, 15, true},
	}
	for _, s := range steps {
		fps, changed := p.Observe(s.motion, base.Add(s.at))
		if fps != s.wantFPS || changed != s.wantChanged {
			t.Errorf("at %s motion=%v: got (%d, %v), want (%d, %v)",
				s.at, s.motion, fps, changed, s.wantFPS, s.wantChanged)
		}
	}
}

func TestNewPacer_Defaults(t *testing.T) {
	p := NewPacer(0, -1, 0)
	if p.IdleFPS != DefaultIdleFPS || p.ActiveFPS != DefaultActiveFPS || p.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("defaults not applied: %+v", p)
	}
}
