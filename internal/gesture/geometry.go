package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Finger identifies one digit of a hand.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// Fingers lists every finger, thumb first.
var Fingers = [...]Finger{Thumb, Index, Middle, Ring, Pinky}

var fingerNames = [...]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f < Thumb || f > Pinky {
		return "unknown"
	}
	return fingerNames[f]
}

// joints returns the landmark indices of a finger's base knuckle, middle
// joint and tip. For the thumb these are MCP, IP and tip; for the others
// MCP, PIP and tip.
func (f Finger) joints() (base, joint, tip int) {
	switch f {
	case Thumb:
		return detector.ThumbMCP, detector.ThumbIP, detector.ThumbTip
	case Index:
		return detector.IndexMCP, detector.IndexPIP, detector.IndexTip
	case Middle:
		return detector.MiddleMCP, detector.MiddlePIP, detector.MiddleTip
	case Ring:
		return detector.RingMCP, detector.RingPIP, detector.RingTip
	default:
		return detector.PinkyMCP, detector.PinkyPIP, detector.PinkyTip
	}
}

// The geometry helpers below assume a valid hand; callers check
// HandLandmarks.Valid first.

// Extended reports whether the fingertip sits above its middle joint.
// Image y grows downwards, so "above" means a smaller y.
func Extended(h *detector.HandLandmarks, f Finger) bool {
	_, joint, tip := f.joints()
	return h.Points[tip].Y < h.Points[joint].Y
}

// Folded reports whether the fingertip sits below its middle joint.
// A tip exactly level with the joint is neither extended nor folded.
func Folded(h *detector.HandLandmarks, f Finger) bool {
	_, joint, tip := f.joints()
	return h.Points[tip].Y > h.Points[joint].Y
}

// Straight reports whether the finger is extended across two successive
// joints: tip above the middle joint and the middle joint above the knuckle.
func Straight(h *detector.HandLandmarks, f Finger) bool {
	base, joint, tip := f.joints()
	return h.Points[tip].Y < h.Points[joint].Y && h.Points[joint].Y < h.Points[base].Y
}

// Pinched reports whether the thumb and index tips are within tol of each
// other on both axes.
func Pinched(h *detector.HandLandmarks, tol float64) bool {
	thumb := h.Points[detector.ThumbTip]
	index := h.Points[detector.IndexTip]
	return math.Abs(thumb.X-index.X) < tol && math.Abs(thumb.Y-index.Y) < tol
}
