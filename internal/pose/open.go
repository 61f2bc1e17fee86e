package pose

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Open creates a Source from a spec string:
//
//	stdin                 JSON frames on standard input
//	file:<path>           a recorded JSON-lines file
//	exec:<command line>   frames printed by an external process
//	pose-service          the bundled scripts/pose_service.py
//	ws://… or wss://…     a WebSocket endpoint
func Open(ctx context.Context, spec string) (Source, error) {
	switch {
	case spec == "stdin" || spec == "-":
		return NewStreamSource(os.Stdin), nil

	case strings.HasPrefix(spec, "file:"):
		path := strings.TrimPrefix(spec, "file:")
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open landmark file: %w", err)
		}
		return NewStreamSource(f), nil

	case strings.HasPrefix(spec, "exec:"):
		fields := strings.Fields(strings.TrimPrefix(spec, "exec:"))
		if len(fields) == 0 {
			return nil, fmt.Errorf("exec source needs a command")
		}
		return NewProcessSource(fields[0], fields[1:]...), nil

	case spec == "pose-service":
		return NewPoseServiceSource()

	case strings.HasPrefix(spec, "ws://"), strings.HasPrefix(spec, "wss://"):
		return DialWebSocket(ctx, spec)
	}

	return nil, fmt.Errorf("unknown source %q", spec)
}
