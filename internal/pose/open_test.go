package pose

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("file source", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.jsonl")
		if err := os.WriteFile(path, []byte(frameLine(t, RestingLandmarks())+"\n"), 0644); err != nil {
			t.Fatalf("failed to write stream: %v", err)
		}

		src, err := Open(ctx, "file:"+path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer src.Close()

		lm, err := src.Next(ctx)
		if err != nil || lm == nil {
			t.Errorf("Next() = (%v, %v), want landmarks", lm, err)
		}
	})

	t.Run("exec source", func(t *testing.T) {
		src, err := Open(ctx, "exec:/bin/echo hello")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer src.Close()

		if _, ok := src.(*ProcessSource); !ok {
			t.Errorf("expected *ProcessSource, got %T", src)
		}
	})

	t.Run("stdin source", func(t *testing.T) {
		src, err := Open(ctx, "stdin")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, ok := src.(*StreamSource); !ok {
			t.Errorf("expected *StreamSource, got %T", src)
		}
	})

	errorCases := []string{
		"file:" + filepath.Join(t.TempDir(), "missing.jsonl"),
		"exec:",
		"camera:0",
	}
	for _, spec := range errorCases {
		t.Run("rejects "+spec, func(t *testing.T) {
			if _, err := Open(ctx, spec); err == nil {
				t.Errorf("Open(%q) should fail", spec)
			}
		})
	}
}
