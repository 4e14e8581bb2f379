package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
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

// Calls reports how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Digit positions used by PoseLandmarks.
const (
	DigitThumb = iota
	DigitIndex
	DigitMiddle
	DigitRing
	DigitPinky
)

// PoseLandmarks builds a hand as seen in a mirrored (selfie) frame with the given digits
// extended. Extended fingers point up with the tip above the PIP joint, curled fingers fold
// the tip below it. The thumb splays outward: to the left of its MCP joint for a right hand
// and to the right for a left hand.
func PoseLandmarks(h Handedness, extended [5]bool) HandLandmarks {
	lm := HandLandmarks{
		Handedness: h,
		Score:      0.95,
	}

	lm.Points[Wrist] = Point3D{X: 0.50, Y: 0.85}

	// Laid out for a right hand; a left hand is mirrored about x=0.5 below.
	lm.Points[ThumbCMC] = Point3D{X: 0.45, Y: 0.80, Z: 0.01}
	lm.Points[ThumbMCP] = Point3D{X: 0.40, Y: 0.74, Z: 0.02}
	if extended[DigitThumb] {
		lm.Points[ThumbIP] = Point3D{X: 0.35, Y: 0.70, Z: 0.02}
		lm.Points[ThumbTip] = Point3D{X: 0.30, Y: 0.66, Z: 0.02}
	} else {
		lm.Points[ThumbIP] = Point3D{X: 0.43, Y: 0.70, Z: -0.01}
		lm.Points[ThumbTip] = Point3D{X: 0.47, Y: 0.68, Z: -0.02}
	}

	fingerX := [4]float64{0.45, 0.50, 0.55, 0.60}
	for i, x := range fingerX {
		mcp := IndexMCP + i*4
		lm.Points[mcp] = Point3D{X: x, Y: 0.65}
		if extended[DigitIndex+i] {
			lm.Points[mcp+1] = Point3D{X: x, Y: 0.52}
			lm.Points[mcp+2] = Point3D{X: x, Y: 0.43}
			lm.Points[mcp+3] = Point3D{X: x, Y: 0.35}
		} else {
			lm.Points[mcp+1] = Point3D{X: x, Y: 0.58, Z: -0.04}
			lm.Points[mcp+2] = Point3D{X: x, Y: 0.63, Z: -0.05}
			lm.Points[mcp+3] = Point3D{X: x, Y: 0.66, Z: -0.03}
		}
	}

	if h == Left {
		for i := range lm.Points {
			lm.Points[i].X = 1 - lm.Points[i].X
		}
	}

	return lm
}

// RockLandmarks returns a closed fist.
func RockLandmarks(h Handedness) HandLandmarks {
	return PoseLandmarks(h, [5]bool{})
}

// PaperLandmarks returns an open palm with every digit extended.
func PaperLandmarks(h Handedness) HandLandmarks {
	return PoseLandmarks(h, [5]bool{true, true, true, true, true})
}

// ScissorsLandmarks returns index and middle extended with the thumb tucked.
func ScissorsLandmarks(h Handedness) HandLandmarks {
	return PoseLandmarks(h, [5]bool{false, true, true, false, false})
}
