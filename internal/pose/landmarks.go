// Package pose provides body pose landmark types and the sources that
// deliver them from an external pose estimator.
package pose

// Pose landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Point3D is a landmark position normalized to the image frame, with the
// estimator's visibility score in [0,1].
type Point3D struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Landmarks is one pose detected in one processed frame.
type Landmarks struct {
	Points    [NumLandmarks]Point3D `json:"points"`
	Timestamp int64                 `json:"timestamp"` // milliseconds
}

// WristHeight returns the mean vertical position of the two wrists.
// It reports false when either wrist is less visible than minVisibility;
// a minVisibility of 0 or less disables the check.
func (l *Landmarks) WristHeight(minVisibility float64) (float64, bool) {
	if l == nil {
		return 0, false
	}

	left := l.Points[LeftWrist]
	right := l.Points[RightWrist]

	if minVisibility > 0 && (left.Visibility < minVisibility || right.Visibility < minVisibility) {
		return 0, false
	}

	return (left.Y + right.Y) / 2, true
}
