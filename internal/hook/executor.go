package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Executor runs hooks with a timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor with the given timeout in milliseconds.
func NewExecutor(timeoutMs int) *Executor {
	return &Executor{
		timeout: time.Duration(timeoutMs) * time.Millisecond,
	}
}

// Execute runs hook with req on stdin and parses its stdout as a Response.
// The hook is killed when the timeout elapses or ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, hook *Hook, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, hook.Executable)
	cmd.Dir = hook.Path

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("hook %s timed out after %s", hook.Manifest.Name, e.timeout)
	}
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("hook %s failed: %w, stderr: %s", hook.Manifest.Name, err, stderr.String())
		}
		return nil, fmt.Errorf("hook %s failed: %w", hook.Manifest.Name, err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse hook response: %w, stdout: %s", err, stdout.String())
	}
	return &response, nil
}
