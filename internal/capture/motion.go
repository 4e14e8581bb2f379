package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
	// DefaultIdleTimeout is how long without motion before the frame source slows down.
	DefaultIdleTimeout = 2 * time.Second
)

// MotionDetector detects motion between consecutive frames using frame differencing with a
// Gaussian blur for noise reduction. It is used to throttle the tick rate while nobody is in
// front of the camera.
type MotionDetector struct {
	threshold   float64
	idleTimeout time.Duration
	prevGray    gocv.Mat
	initialized bool
	lastMotion  time.Time
	closed      bool
	mu          sync.Mutex
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage of pixels that must
// change to count as motion, e.g. 1.0 means 1%.
func NewMotionDetector(threshold float64, idleTimeout time.Duration) *MotionDetector {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &MotionDetector{
		threshold:   threshold,
		idleTimeout: idleTimeout,
		prevGray:    gocv.NewMat(),
	}
}

// Detect compares frame against the previous one and returns whether motion was detected and
// the percentage of pixels that changed. The first frame only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detect(frame)
}

func (m *MotionDetector) detect(frame *gocv.Mat) (bool, float64) {
	if m.closed || frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	totalPixels := thresh.Rows() * thresh.Cols()
	changePercent := float64(nonZero) / float64(totalPixels) * 100.0

	blurred.CopyTo(&m.prevGray)

	return changePercent > m.threshold, changePercent
}

// Observe runs Detect on frame and reports whether the scene counts as active at now: motion
// was seen within the idle timeout. A nil frame only ages the last motion.
func (m *MotionDetector) Observe(frame *gocv.Mat, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if moved, _ := m.detect(frame); moved {
		m.lastMotion = now
	}
	return m.activeAt(now)
}

// Touch marks now as the time of the last motion.
func (m *MotionDetector) Touch(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMotion = now
}

func (m *MotionDetector) activeAt(now time.Time) bool {
	return !m.lastMotion.IsZero() && now.Sub(m.lastMotion) <= m.idleTimeout
}

// Reset clears the baseline frame and the activity timer. A closed detector is usable again
// after Reset.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.prevGray.Close()
	}
	m.prevGray = gocv.NewMat()
	m.initialized = false
	m.closed = false
	m.lastMotion = time.Time{}
}

// Close releases the baseline Mat. Later frames report no motion until Reset.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.prevGray.Close()
	m.initialized = false
	m.closed = true
}
