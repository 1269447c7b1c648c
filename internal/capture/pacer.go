package capture

import "time"

// Default pacing values.
const (
	DefaultIdleFPS     = 5
	DefaultActiveFPS   = 15
	DefaultIdleTimeout = 2 * time.Second
)

// Pacer picks the frame rate from recent scene activity: ActiveFPS after
// motion, falling back to IdleFPS once IdleTimeout passes without any.
type Pacer struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration

	active     bool
	lastMotion time.Time
}

// NewPacer returns a pacer in idle mode. Non-positive values use the defaults.
func NewPacer(idleFPS, activeFPS int, idleTimeout time.Duration) *Pacer {
	if idleFPS <= 0 {
		idleFPS = DefaultIdleFPS
	}
	if activeFPS <= 0 {
		activeFPS = DefaultActiveFPS
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Pacer{IdleFPS: idleFPS, ActiveFPS: activeFPS, IdleTimeout: idleTimeout}
}

// Observe records whether the latest frame showed motion. It returns the
// frame rate to use and whether it changed.
func (p *Pacer) Observe(motion bool, now time.Time) (fps int, changed bool) {
	switch {
	case motion:
		p.lastMotion = now
		if !p.active {
			p.active = true
			changed = true
		}
	case p.active && now.Sub(p.lastMotion) > p.IdleTimeout:
		p.active = false
		changed = true
	}
	return p.FPS(), changed
}

// Active reports whether the pacer is in active mode.
func (p *Pacer) Active() bool {
	return p.active
}

// FPS returns the current frame rate.
func (p *Pacer) FPS() int {
	if p.active {
		return p.ActiveFPS
	}
	return p.IdleFPS
}

// Interval returns the frame period for the current rate.
func (p *Pacer) Interval() time.Duration {
	return time.Second / time.Duration(p.FPS())
}
