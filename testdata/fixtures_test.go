package testdata

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestStreams(t *testing.T) {
	names, err := Streams()
	if err != nil {
		t.Fatalf("Streams() error = %v", err)
	}
	if len(names) != 3 {
		t.Errorf("expected 3 streams, got %v", names)
	}
}

func TestOpenStream(t *testing.T) {
	tests := []struct {
		name   string
		frames int
		empty  int
	}{
		{"resting.jsonl", 30, 0},
		{"waving.jsonl", 80, 0},
		{"gaps.jsonl", 74, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := OpenStream(tt.name)
			if err != nil {
				t.Fatalf("OpenStream() error = %v", err)
			}
			defer src.Close()

			frames, empty := 0, 0
			for {
				lm, err := src.Next(context.Background())
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("Next() error = %v", err)
				}
				frames++
				if lm == nil {
					empty++
				}
			}

			if frames != tt.frames {
				t.Errorf("frames = %d, want %d", frames, tt.frames)
			}
			if empty != tt.empty {
				t.Errorf("empty frames = %d, want %d", empty, tt.empty)
			}
		})
	}
}

func TestLoadStream_Missing(t *testing.T) {
	if _, err := LoadStream("nope.jsonl"); err == nil {
		t.Error("expected error for missing stream")
	}
}
