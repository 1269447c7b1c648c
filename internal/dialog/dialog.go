// Package dialog drives the typing-reveal animation of the feedback box
// shown for the active gesture.
package dialog

import (
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// DefaultTypingSpeed is the interval between two revealed characters.
const DefaultTypingSpeed = 30 * time.Millisecond

// State is the phase of the reveal animation for the current message.
type State int

const (
	// Resetting is reported on the call that switched to a new message.
	Resetting State = iota
	// Typing means characters are still being revealed.
	Typing
	// Done means the whole message is visible.
	Done
)

func (s State) String() string {
	switch s {
	case Resetting:
		return "resetting"
	case Typing:
		return "typing"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// View is what the renderer draws for one frame.
type View struct {
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Text     string        `json:"text"`
	Color    gesture.Color `json:"color"`
	Revealed int           `json:"revealed"`
	Total    int           `json:"total"`
	State    State         `json:"state"`
}

// Engine holds the reveal state of a single dialog box. It is driven by the
// frame loop and is not safe for concurrent use.
type Engine struct {
	typingSpeed time.Duration

	message    string
	runes      []rune
	revealed   int
	lastReveal time.Time
}

// New creates an engine. A non-positive typingSpeed selects
// DefaultTypingSpeed.
func New(typingSpeed time.Duration) *Engine {
	if typingSpeed <= 0 {
		typingSpeed = DefaultTypingSpeed
	}
	return &Engine{typingSpeed: typingSpeed}
}

// TypingSpeed returns the reveal interval in use.
func (e *Engine) TypingSpeed() time.Duration {
	return e.typingSpeed
}

// Render advances the animation to now and returns the view for desc.
// A nil desc means no active gesture: nothing is drawn and the state is left
// untouched, so the same message resumes where it stopped.
//
// Characters are counted as runes. At most one character is revealed per
// call, once at least TypingSpeed has passed since the previous reveal.
func (e *Engine) Render(desc *gesture.Descriptor, now time.Time) (View, bool) {
	if desc == nil {
		return View{}, false
	}

	state := Typing
	if desc.Message != e.message {
		e.message = desc.Message
		e.runes = []rune(desc.Message)
		e.revealed = 0
		e.lastReveal = now
		state = Resetting
	}

	if e.revealed < len(e.runes) && now.Sub(e.lastReveal) >= e.typingSpeed {
		e.revealed++
		e.lastReveal = now
	}

	if state != Resetting && e.revealed == len(e.runes) {
		state = Done
	}

	return View{
		Title:    desc.Name,
		Message:  e.message,
		Text:     string(e.runes[:e.revealed]),
		Color:    desc.Color,
		Revealed: e.revealed,
		Total:    len(e.runes),
		State:    state,
	}, true
}

// Revealed returns how many characters of the current message are visible.
func (e *Engine) Revealed() int {
	return e.revealed
}
