package pose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSourceClosed is returned by Next after Close.
var ErrSourceClosed = errors.New("pose source closed")

// Source delivers pose landmarks, one call per processed frame.
type Source interface {
	// Next blocks until the next frame is available. It returns (nil, nil)
	// when the frame contained no pose and io.EOF when the stream ends.
	Next(ctx context.Context) (*Landmarks, error)

	// Close releases any resources held by the source. It is safe to call
	// more than once.
	Close() error
}

// jsonFrame is the wire format produced by external pose estimators:
// one object per frame, with an empty or missing landmark list when no
// pose was found.
type jsonFrame struct {
	Landmarks []Point3D `json:"landmarks"`
	Timestamp int64     `json:"timestamp"`
}

// decodeFrame parses a single JSON frame.
func decodeFrame(data []byte) (*Landmarks, error) {
	var frame jsonFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}

	if len(frame.Landmarks) == 0 {
		return nil, nil
	}
	if len(frame.Landmarks) < NumLandmarks {
		return nil, fmt.Errorf("frame has %d landmarks, want %d", len(frame.Landmarks), NumLandmarks)
	}

	lm := &Landmarks{Timestamp: frame.Timestamp}
	copy(lm.Points[:], frame.Landmarks)
	return lm, nil
}

// EncodeFrame renders landmarks in the wire format read by the sources.
// A nil pose encodes as a frame with no landmarks.
func EncodeFrame(lm *Landmarks) ([]byte, error) {
	frame := jsonFrame{Landmarks: []Point3D{}}
	if lm != nil {
		frame.Landmarks = lm.Points[:]
		frame.Timestamp = lm.Timestamp
	}
	return json.Marshal(frame)
}
