// Package testdata embeds recorded landmark streams for tests.
//
// Each stream is newline-delimited JSON in the pose wire format, recorded
// at roughly 30 frames per second:
//
//	resting.jsonl  30 frames, arms hanging with sub-millimetre jitter
//	waving.jsonl   80 frames, 20 resting, 20 waving, 40 resting
//	gaps.jsonl     74 frames of waving with 4 empty and 4 low-visibility frames
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/ayusman/repwatch/internal/pose"
)

//go:embed streams/*.jsonl
var streamsFS embed.FS

// LoadStream returns the raw bytes of a recorded stream.
func LoadStream(name string) ([]byte, error) {
	data, err := streamsFS.ReadFile(path.Join("streams", name))
	if err != nil {
		return nil, fmt.Errorf("load stream %s: %w", name, err)
	}
	return data, nil
}

// OpenStream returns a pose source replaying a recorded stream.
func OpenStream(name string) (*pose.StreamSource, error) {
	data, err := LoadStream(name)
	if err != nil {
		return nil, err
	}
	return pose.NewStreamSource(bytes.NewReader(data)), nil
}

// Streams lists the embedded stream names.
func Streams() ([]string, error) {
	entries, err := fs.ReadDir(streamsFS, "streams")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
