package pose

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestLandmarks_WristHeight(t *testing.T) {
	t.Run("mean of both wrists", func(t *testing.T) {
		lm := RestingLandmarks()
		lm.Points[LeftWrist].Y = 0.40
		lm.Points[RightWrist].Y = 0.60

		got, ok := lm.WristHeight(0.5)
		if !ok {
			t.Fatal("expected a sample for visible wrists")
		}
		if math.Abs(got-0.50) > epsilon {
			t.Errorf("WristHeight() = %f, want 0.50", got)
		}
	})

	t.Run("hidden wrist yields no sample", func(t *testing.T) {
		lm := RestingLandmarks()
		lm.Points[RightWrist].Visibility = 0.1

		if _, ok := lm.WristHeight(0.5); ok {
			t.Error("expected no sample when a wrist is below the visibility threshold")
		}
	})

	t.Run("zero threshold ignores visibility", func(t *testing.T) {
		lm := RestingLandmarks()
		lm.Points[LeftWrist].Visibility = 0
		lm.Points[RightWrist].Visibility = 0

		if _, ok := lm.WristHeight(0); !ok {
			t.Error("expected a sample when the visibility check is disabled")
		}
	})

	t.Run("nil landmarks", func(t *testing.T) {
		var lm *Landmarks
		if _, ok := lm.WristHeight(0); ok {
			t.Error("expected no sample for nil landmarks")
		}
	})
}

func TestRaisedHandsLandmarks(t *testing.T) {
	resting := RestingLandmarks()
	raised := RaisedHandsLandmarks()

	restY, _ := resting.WristHeight(0.5)
	raisedY, _ := raised.WristHeight(0.5)

	// Y grows downwards in image coordinates
	if raisedY >= restY {
		t.Errorf("raised wrists (%f) should be above resting wrists (%f)", raisedY, restY)
	}
	if raised.Points[LeftWrist].Y >= raised.Points[Nose].Y {
		t.Error("raised left wrist should be above the nose")
	}
}

func TestWristsAt(t *testing.T) {
	lm := WristsAt(0.33)

	got, ok := lm.WristHeight(0.5)
	if !ok || math.Abs(got-0.33) > epsilon {
		t.Errorf("WristHeight() = (%f, %v), want (0.33, true)", got, ok)
	}
}
