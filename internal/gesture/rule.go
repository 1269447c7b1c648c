package gesture

import (
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// State is the required pose of one finger in a Pattern.
type State string

const (
	// Any places no constraint on the finger.
	Any State = ""
	// Up requires the tip above the middle joint.
	Up State = "up"
	// Down requires the tip below the middle joint.
	Down State = "down"
	// StraightUp requires the finger extended across two joints.
	StraightUp State = "straight"
)

func (s State) valid() bool {
	switch s {
	case Any, Up, Down, StraightUp:
		return true
	}
	return false
}

func (s State) holds(h *detector.HandLandmarks, f Finger) bool {
	switch s {
	case Up:
		return Extended(h, f)
	case Down:
		return Folded(h, f)
	case StraightUp:
		return Straight(h, f)
	default:
		return true
	}
}

// Pattern is a declarative single-hand pose predicate.
type Pattern struct {
	Thumb  State `json:"thumb,omitempty" yaml:"thumb,omitempty"`
	Index  State `json:"index,omitempty" yaml:"index,omitempty"`
	Middle State `json:"middle,omitempty" yaml:"middle,omitempty"`
	Ring   State `json:"ring,omitempty" yaml:"ring,omitempty"`
	Pinky  State `json:"pinky,omitempty" yaml:"pinky,omitempty"`

	// Pinch requires the thumb and index tips to touch.
	Pinch bool `json:"pinch,omitempty" yaml:"pinch,omitempty"`

	// Unless names rules whose patterns must NOT hold on the same hand.
	Unless []string `json:"unless,omitempty" yaml:"unless,omitempty"`
}

func (p Pattern) states() [5]State {
	return [5]State{p.Thumb, p.Index, p.Middle, p.Ring, p.Pinky}
}

// Match reports whether the finger states and pinch requirement hold on h.
// Unless guards are resolved by the Classifier, which knows the other rules.
func (p Pattern) Match(h *detector.HandLandmarks, pinchTol float64) bool {
	for i, s := range p.states() {
		if !s.holds(h, Fingers[i]) {
			return false
		}
	}
	if p.Pinch && !Pinched(h, pinchTol) {
		return false
	}
	return true
}

// Rule binds a gesture id to the pattern that recognizes it. A rule with
// Hands == 2 only matches a frame with exactly two valid hands that both
// satisfy Pattern.
type Rule struct {
	ID      string  `json:"id" yaml:"id"`
	Hands   int     `json:"hands" yaml:"hands"`
	Pattern Pattern `json:"pattern" yaml:"pattern"`
}

// Validate checks the rule in isolation.
func (r Rule) Validate() error {
	var errs []error
	if r.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if r.Hands != 1 && r.Hands != 2 {
		errs = append(errs, fmt.Errorf("hands must be 1 or 2, got %d", r.Hands))
	}
	constrained := r.Pattern.Pinch
	for i, s := range r.Pattern.states() {
		if !s.valid() {
			errs = append(errs, fmt.Errorf("%s: unknown state %q", Fingers[i], s))
		}
		if s != Any {
			constrained = true
		}
	}
	if !constrained {
		errs = append(errs, errors.New("pattern matches every hand"))
	}
	for _, u := range r.Pattern.Unless {
		if u == r.ID {
			errs = append(errs, errors.New("rule cannot exclude itself"))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("rule %q: %w", r.ID, err)
	}
	return nil
}
