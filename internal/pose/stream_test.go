package pose

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func frameLine(t *testing.T, lm *Landmarks) string {
	t.Helper()
	data, err := EncodeFrame(lm)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	return string(data)
}

func TestStreamSource_Next(t *testing.T) {
	ctx := context.Background()

	resting := RestingLandmarks()
	resting.Timestamp = 1000

	input := strings.Join([]string{
		frameLine(t, resting),
		"",
		frameLine(t, nil),
		`{"landmarks": [{"x": 0.1, "y": 0.2}]}`,
		`not json`,
		frameLine(t, RaisedHandsLandmarks()),
	}, "\n")

	src := NewStreamSource(strings.NewReader(input))
	defer src.Close()

	t.Run("decodes a pose", func(t *testing.T) {
		lm, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if lm == nil {
			t.Fatal("expected landmarks")
		}
		if lm.Timestamp != 1000 {
			t.Errorf("Timestamp = %d, want 1000", lm.Timestamp)
		}
		if lm.Points[LeftWrist] != resting.Points[LeftWrist] {
			t.Errorf("LeftWrist = %+v, want %+v", lm.Points[LeftWrist], resting.Points[LeftWrist])
		}
	})

	t.Run("skips blank lines and reports missing pose", func(t *testing.T) {
		lm, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if lm != nil {
			t.Errorf("expected nil landmarks for an empty frame, got %+v", lm)
		}
	})

	t.Run("short frame is an error", func(t *testing.T) {
		if _, err := src.Next(ctx); err == nil {
			t.Error("expected error for a frame with too few landmarks")
		}
	})

	t.Run("malformed line is an error", func(t *testing.T) {
		_, err := src.Next(ctx)
		if err == nil {
			t.Fatal("expected parse error")
		}
		if !strings.Contains(err.Error(), "line 5") {
			t.Errorf("error should name the line, got %v", err)
		}
	})

	t.Run("stream stays usable after an error", func(t *testing.T) {
		lm, err := src.Next(ctx)
		if err != nil || lm == nil {
			t.Fatalf("Next() = (%v, %v), want landmarks", lm, err)
		}
	})

	t.Run("end of stream", func(t *testing.T) {
		if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
			t.Errorf("expected io.EOF, got %v", err)
		}
	})
}

func TestStreamSource_Close(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	src := NewStreamSource(r)

	done := make(chan error, 1)
	go func() {
		_, err := src.Next(context.Background())
		done <- err
	}()

	if err := src.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := <-done; !errors.Is(err, ErrSourceClosed) {
		t.Errorf("pending Next() returned %v, want ErrSourceClosed", err)
	}

	// Closing again is a no-op
	if err := src.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStreamSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewStreamSource(strings.NewReader(frameLine(t, RestingLandmarks())))
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStreamSource_OversizedFrame(t *testing.T) {
	ctx := context.Background()

	junk := `{"landmarks":"` + strings.Repeat("x", 2*maxFrameSize) + `"}`
	input := strings.Join([]string{
		junk,
		frameLine(t, RestingLandmarks()),
		frameLine(t, RaisedHandsLandmarks()),
		strings.Repeat("y", maxFrameSize+10),
	}, "\n")

	src := NewStreamSource(strings.NewReader(input))
	defer src.Close()

	_, err := src.Next(ctx)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("Next() error = %v, want ErrFrameTooLarge", err)
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("error should name the line, got %v", err)
	}

	for i := 0; i < 2; i++ {
		lm, err := src.Next(ctx)
		if err != nil || lm == nil {
			t.Fatalf("frame %d: Next() = (%v, %v), want landmarks", i, lm, err)
		}
	}

	// unterminated oversized tail
	if _, err := src.Next(ctx); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("Next() error = %v, want ErrFrameTooLarge", err)
	}
	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestStreamSource_FrameAtSizeLimit(t *testing.T) {
	line := frameLine(t, RestingLandmarks())
	padded := line + strings.Repeat(" ", maxFrameSize-len(line))

	src := NewStreamSource(strings.NewReader(padded + "\n"))
	defer src.Close()

	lm, err := src.Next(context.Background())
	if err != nil || lm == nil {
		t.Fatalf("Next() = (%v, %v), want landmarks", lm, err)
	}
}
