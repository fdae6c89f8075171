package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/acedistance/internal/grid"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	hole      *grid.Point
	ball      *grid.Point
	err       error
	holeCalls int
	ballCalls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHole sets the hole position returned by FindHole. Nil means not detected.
func (m *MockDetector) SetHole(p *grid.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hole = p
}

// SetBall sets the ball position returned by FindBall. Nil means not detected.
func (m *MockDetector) SetBall(p *grid.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ball = p
}

// SetError sets the error returned by both detection methods.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FindHole returns the pre-configured hole or error.
func (m *MockDetector) FindHole(after gocv.Mat) (*grid.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holeCalls++
	if m.err != nil {
		return nil, m.err
	}
	return clonePoint(m.hole), nil
}

// FindBall returns the pre-configured ball or error.
func (m *MockDetector) FindBall(before, after gocv.Mat) (*grid.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ballCalls++
	if m.err != nil {
		return nil, m.err
	}
	return clonePoint(m.ball), nil
}

// HoleCalls returns how many times FindHole was called.
func (m *MockDetector) HoleCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holeCalls
}

// BallCalls returns how many times FindBall was called.
func (m *MockDetector) BallCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ballCalls
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

func clonePoint(p *grid.Point) *grid.Point {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
