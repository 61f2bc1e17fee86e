// Package main provides a desktop notification hook for repwatch.
// It uses osascript on macOS and notify-send elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the hook executor.
type Request struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id"`
	Detection *Detection      `json:"detection,omitempty"`
	Summary   *Summary        `json:"summary,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Detection carries the fields of a detection event this hook uses.
type Detection struct {
	Sample float64 `json:"sample"`
	Result struct {
		Seq        int     `json:"seq"`
		StdDev     float64 `json:"std_dev"`
		EventCount int     `json:"event_count"`
	} `json:"result"`
}

// Summary carries the fields of a session summary this hook uses.
type Summary struct {
	Samples  int `json:"samples"`
	Events   int `json:"events"`
	Episodes int `json:"episodes"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the hook configuration from hook.json.
type Config struct {
	Title string `json:"title"`
	Sound bool   `json:"sound"`
	// DryRun prints the notification instead of showing it.
	DryRun bool `json:"dry_run"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	cfg := Config{Title: "repwatch"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	message, err := buildMessage(&req)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if cfg.DryRun {
		data, _ := json.Marshal(map[string]string{"title": cfg.Title, "message": message})
		writeSuccessResponse(data)
		return
	}

	if err := notify(cfg, message); err != nil {
		writeErrorResponse(fmt.Sprintf("notification failed: %v", err))
		return
	}
	writeSuccessResponse(nil)
}

// buildMessage renders the notification text for a request.
func buildMessage(req *Request) (string, error) {
	switch req.Event {
	case "triggered", "episode":
		if req.Detection == nil {
			return "", fmt.Errorf("%s request without detection", req.Event)
		}
		return fmt.Sprintf("Repetitive movement detected (std dev %.3f, count %d)",
			req.Detection.Result.StdDev, req.Detection.Result.EventCount), nil
	case "summary":
		if req.Summary == nil {
			return "", fmt.Errorf("summary request without summary")
		}
		return fmt.Sprintf("Total repetitive motion instances detected: %d (%d episodes, %d samples)",
			req.Summary.Events, req.Summary.Episodes, req.Summary.Samples), nil
	}
	return "", fmt.Errorf("unknown event: %s", req.Event)
}

// notify shows a desktop notification.
func notify(cfg Config, message string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escape(message), escape(cfg.Title))
		if cfg.Sound {
			script += ` sound name "Glass"`
		}
		cmd = exec.Command("osascript", "-e", script)
	default:
		cmd = exec.Command("notify-send", cfg.Title, message)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// escape quotes a string for an AppleScript literal.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: true,
		Data:    data,
	})
}
