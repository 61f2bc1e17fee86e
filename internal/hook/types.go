// Package hook runs external hook executables when a session detects
// repetitive motion.
//
// A hook lives in its own directory under the hooks directory and is
// described by a hook.json manifest. The hook receives a JSON Request on
// stdin and answers with a JSON Response on stdout.
package hook

import (
	"encoding/json"
	"slices"

	"github.com/ayusman/repwatch/internal/sink"
)

// ManifestFile is the manifest name looked up in every hook directory.
const ManifestFile = "hook.json"

// Events a hook can subscribe to.
const (
	// EventTriggered fires for every triggered detector result.
	EventTriggered = "triggered"
	// EventEpisode fires once at the start of each run of triggered results.
	EventEpisode = "episode"
	// EventSummary fires when a session ends.
	EventSummary = "summary"
)

// Manifest describes a hook's metadata and subscriptions.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is written to the hook's stdin.
type Request struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id"`
	Detection *sink.Event     `json:"detection,omitempty"`
	Summary   *sink.Summary   `json:"summary,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Subscribes reports whether the hook wants event.
func (h *Hook) Subscribes(event string) bool {
	return slices.Contains(h.Manifest.Events, event)
}
