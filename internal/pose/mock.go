package pose

import (
	"context"
	"io"
	"sync"
)

// MockSource is a test implementation of the Source interface.
// It replays queued frames and errors in order, then returns io.EOF.
type MockSource struct {
	steps  []mockStep
	mu     sync.Mutex
	closed bool
}

type mockStep struct {
	lm  *Landmarks
	err error
}

// NewMockSource creates a MockSource that replays frames. A nil entry is a
// frame without a pose.
func NewMockSource(frames ...*Landmarks) *MockSource {
	m := &MockSource{}
	for _, lm := range frames {
		m.Push(lm)
	}
	return m
}

// Push queues a frame.
func (m *MockSource) Push(lm *Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{lm: lm})
}

// PushError queues an error to be returned by Next.
func (m *MockSource) PushError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{err: err})
}

// Next returns the next queued step.
func (m *MockSource) Next(ctx context.Context) (*Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrSourceClosed
	}
	if len(m.steps) == 0 {
		return nil, io.EOF
	}

	step := m.steps[0]
	m.steps = m.steps[1:]
	return step.lm, step.err
}

// Close marks the source closed.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// RestingLandmarks returns a standing pose with both arms hanging at the
// sides. Every landmark is fully visible.
func RestingLandmarks() *Landmarks {
	lm := &Landmarks{}

	set := func(i int, x, y float64) {
		lm.Points[i] = Point3D{X: x, Y: y, Visibility: 0.99}
	}

	// Head
	set(Nose, 0.50, 0.15)
	set(LeftEyeInner, 0.51, 0.13)
	set(LeftEye, 0.52, 0.13)
	set(LeftEyeOuter, 0.53, 0.13)
	set(RightEyeInner, 0.49, 0.13)
	set(RightEye, 0.48, 0.13)
	set(RightEyeOuter, 0.47, 0.13)
	set(LeftEar, 0.55, 0.14)
	set(RightEar, 0.45, 0.14)
	set(MouthLeft, 0.52, 0.18)
	set(MouthRight, 0.48, 0.18)

	// Torso
	set(LeftShoulder, 0.60, 0.28)
	set(RightShoulder, 0.40, 0.28)
	set(LeftHip, 0.57, 0.55)
	set(RightHip, 0.43, 0.55)

	// Arms hanging down
	set(LeftElbow, 0.63, 0.42)
	set(RightElbow, 0.37, 0.42)
	set(LeftWrist, 0.64, 0.56)
	set(RightWrist, 0.36, 0.56)
	set(LeftPinky, 0.65, 0.59)
	set(RightPinky, 0.35, 0.59)
	set(LeftIndex, 0.64, 0.60)
	set(RightIndex, 0.36, 0.60)
	set(LeftThumb, 0.63, 0.58)
	set(RightThumb, 0.37, 0.58)

	// Legs
	set(LeftKnee, 0.57, 0.72)
	set(RightKnee, 0.43, 0.72)
	set(LeftAnkle, 0.57, 0.90)
	set(RightAnkle, 0.43, 0.90)
	set(LeftHeel, 0.56, 0.92)
	set(RightHeel, 0.44, 0.92)
	set(LeftFootIndex, 0.59, 0.94)
	set(RightFootIndex, 0.41, 0.94)

	return lm
}

// RaisedHandsLandmarks returns the resting pose with both hands lifted
// above the head.
func RaisedHandsLandmarks() *Landmarks {
	lm := RestingLandmarks()

	lm.Points[LeftElbow] = Point3D{X: 0.64, Y: 0.18, Visibility: 0.99}
	lm.Points[RightElbow] = Point3D{X: 0.36, Y: 0.18, Visibility: 0.99}
	lm.Points[LeftWrist] = Point3D{X: 0.62, Y: 0.06, Visibility: 0.99}
	lm.Points[RightWrist] = Point3D{X: 0.38, Y: 0.06, Visibility: 0.99}
	lm.Points[LeftPinky] = Point3D{X: 0.63, Y: 0.03, Visibility: 0.99}
	lm.Points[RightPinky] = Point3D{X: 0.37, Y: 0.03, Visibility: 0.99}
	lm.Points[LeftIndex] = Point3D{X: 0.62, Y: 0.02, Visibility: 0.99}
	lm.Points[RightIndex] = Point3D{X: 0.38, Y: 0.02, Visibility: 0.99}
	lm.Points[LeftThumb] = Point3D{X: 0.61, Y: 0.04, Visibility: 0.99}
	lm.Points[RightThumb] = Point3D{X: 0.39, Y: 0.04, Visibility: 0.99}

	return lm
}

// WristsAt returns the resting pose with both wrists moved to height y.
func WristsAt(y float64) *Landmarks {
	lm := RestingLandmarks()
	lm.Points[LeftWrist].Y = y
	lm.Points[RightWrist].Y = y
	return lm
}
