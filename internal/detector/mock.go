package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Finger poses used to assemble fixture hands.
const (
	curled   = false
	extended = true
)

// fingerBaseX is the x position of each finger column on a right hand seen
// palm-forward in a mirrored frame: index nearest the thumb.
var fingerBaseX = [4]float64{0.55, 0.50, 0.45, 0.40}

// poseLandmarks builds a right hand at rest height with each finger either
// extended straight up or curled into the palm.
func poseLandmarks(thumb, index, middle, ring, pinky bool) HandLandmarks {
	h := NewHand("Right", 0.95)
	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.80}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	if thumb {
		h.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.68, Z: 0.03}
		h.Points[ThumbIP] = Point3D{X: 0.64, Y: 0.58, Z: 0.03}
		h.Points[ThumbTip] = Point3D{X: 0.67, Y: 0.48, Z: 0.03}
	} else {
		h.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.70, Z: -0.01}
		h.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.66, Z: -0.03}
		h.Points[ThumbTip] = Point3D{X: 0.57, Y: 0.71, Z: -0.04}
	}

	for i, up := range []bool{index, middle, ring, pinky} {
		mcp := IndexMCP + i*4
		x := fingerBaseX[i]
		h.Points[mcp] = Point3D{X: x, Y: 0.70}
		if up {
			h.Points[mcp+1] = Point3D{X: x, Y: 0.55}
			h.Points[mcp+2] = Point3D{X: x, Y: 0.45}
			h.Points[mcp+3] = Point3D{X: x, Y: 0.35}
		} else {
			h.Points[mcp+1] = Point3D{X: x, Y: 0.66, Z: -0.05}
			h.Points[mcp+2] = Point3D{X: x - 0.02, Y: 0.69, Z: -0.04}
			h.Points[mcp+3] = Point3D{X: x - 0.04, Y: 0.72, Z: -0.02}
		}
	}

	return h
}

// OpenPalmLandmarks returns a hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return poseLandmarks(extended, extended, extended, extended, extended)
}

// ThumbsUpLandmarks returns a hand with only the thumb raised.
func ThumbsUpLandmarks() HandLandmarks {
	return poseLandmarks(extended, curled, curled, curled, curled)
}

// FistLandmarks returns a hand with every finger folded.
func FistLandmarks() HandLandmarks {
	return poseLandmarks(curled, curled, curled, curled, curled)
}

// PointingLandmarks returns a hand with only the index finger raised.
func PointingLandmarks() HandLandmarks {
	return poseLandmarks(curled, extended, curled, curled, curled)
}

// PeaceLandmarks returns a hand with index and middle raised.
func PeaceLandmarks() HandLandmarks {
	return poseLandmarks(curled, extended, extended, curled, curled)
}

// ThreeFingersLandmarks returns a hand with index, middle and ring raised.
func ThreeFingersLandmarks() HandLandmarks {
	return poseLandmarks(curled, extended, extended, extended, curled)
}

// LoveYouLandmarks returns the "I love you" sign: thumb, index and pinky raised.
func LoveYouLandmarks() HandLandmarks {
	return poseLandmarks(extended, extended, curled, curled, extended)
}

// OKLandmarks returns an OK sign: thumb and index tips touching while the
// other fingers stay extended. It is also an open hand by finger state alone.
func OKLandmarks() HandLandmarks {
	h := poseLandmarks(extended, extended, extended, extended, extended)
	h.Points[ThumbIP] = Point3D{X: 0.62, Y: 0.55, Z: 0.02}
	h.Points[ThumbTip] = Point3D{X: 0.56, Y: 0.47, Z: 0.01}
	h.Points[IndexDIP] = Point3D{X: 0.56, Y: 0.50}
	h.Points[IndexTip] = Point3D{X: 0.55, Y: 0.46}
	return h
}

// MalformedLandmarks returns a hand missing its last landmark.
func MalformedLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	h.Points = h.Points[:NumLandmarks-1]
	return h
}
