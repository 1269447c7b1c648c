// Package gesture classifies hand landmarks into named static gestures and
// turns per-frame classifications into debounced transitions.
package gesture

import "github.com/ayusman/mudra/internal/detector"

// DefaultPinchTolerance is the per-axis distance under which the thumb and
// index tips count as touching.
const DefaultPinchTolerance = 0.05

// Classifier maps a frame's hands to a gesture id using an ordered rule
// list. It holds no per-frame state and is safe for concurrent use.
type Classifier struct {
	rules    []Rule
	patterns map[string]Pattern
	pinchTol float64
}

// NewClassifier builds a classifier over the catalog's rules. A
// non-positive pinchTol selects DefaultPinchTolerance.
func NewClassifier(c *Catalog, pinchTol float64) *Classifier {
	if pinchTol <= 0 {
		pinchTol = DefaultPinchTolerance
	}
	rules := c.Rules()
	patterns := make(map[string]Pattern, len(rules))
	for _, r := range rules {
		patterns[r.ID] = r.Pattern
	}
	return &Classifier{
		rules:    rules,
		patterns: patterns,
		pinchTol: pinchTol,
	}
}

// PinchTolerance returns the tolerance in use.
func (c *Classifier) PinchTolerance() float64 {
	return c.pinchTol
}

// Classify returns the id of the gesture shown in the frame, or "" when no
// rule matches.
//
// Every rule is evaluated for every hand in order and each match overwrites
// the result, so the last matching rule of the last hand that matched
// anything wins. Two-hand rules are decided once per frame and apply to
// every hand of that frame. Hands without a complete landmark set match
// nothing.
func (c *Classifier) Classify(hands []detector.HandLandmarks) string {
	var both []bool
	if len(hands) == 2 && hands[0].Valid() && hands[1].Valid() {
		both = make([]bool, len(c.rules))
		for j, r := range c.rules {
			if r.Hands == 2 {
				both[j] = c.matchOne(r, &hands[0]) && c.matchOne(r, &hands[1])
			}
		}
	}

	result := ""
	for i := range hands {
		h := &hands[i]
		valid := h.Valid()
		for j, r := range c.rules {
			var matched bool
			if r.Hands == 2 {
				matched = both != nil && both[j]
			} else {
				matched = valid && c.matchOne(r, h)
			}
			if matched {
				result = r.ID
			}
		}
	}
	return result
}

// matchOne applies a rule's pattern and its Unless guards to a single hand.
// Guards are checked one level deep: a guard's own guards are ignored.
func (c *Classifier) matchOne(r Rule, h *detector.HandLandmarks) bool {
	if !r.Pattern.Match(h, c.pinchTol) {
		return false
	}
	for _, id := range r.Pattern.Unless {
		if p, ok := c.patterns[id]; ok && p.Match(h, c.pinchTol) {
			return false
		}
	}
	return true
}
