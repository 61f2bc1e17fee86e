package pose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// ProcessSource runs an external pose estimation process and reads JSON
// frames from its stdout. The process is started lazily on the first Next.
type ProcessSource struct {
	name   string
	args   []string
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stream *StreamSource
	mu     sync.Mutex
	closed bool
}

// NewProcessSource creates a source that runs name with args.
func NewProcessSource(name string, args ...string) *ProcessSource {
	return &ProcessSource{
		name: name,
		args: args,
	}
}

// NewPoseServiceSource locates pose_service.py and runs it with the
// virtual-environment Python when one is found.
func NewPoseServiceSource(args ...string) (*ProcessSource, error) {
	scriptPath := findPoseServiceScript()
	if scriptPath == "" {
		return nil, fmt.Errorf("pose_service.py not found")
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	return NewProcessSource(pythonPath, append([]string{scriptPath}, args...)...), nil
}

// Next returns the next frame printed by the process.
func (p *ProcessSource) Next(ctx context.Context) (*Landmarks, error) {
	stream, err := p.ensureStarted()
	if err != nil {
		return nil, err
	}
	return stream.Next(ctx)
}

func (p *ProcessSource) ensureStarted() (*StreamSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrSourceClosed
	}
	if p.stream != nil {
		return p.stream, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, p.name, p.args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	// Estimator diagnostics go straight to our stderr.
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start pose process: %w", err)
	}

	p.cmd = cmd
	p.cancel = cancel
	p.stream = NewStreamSource(stdout)
	return p.stream, nil
}

// Close stops the process and waits for it to exit.
func (p *ProcessSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.cmd == nil {
		return nil
	}

	p.cancel()
	p.stream.Close()

	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// killed by our own cancel
		err = nil
	}

	p.cmd = nil
	p.stream = nil
	return err
}

func findPoseServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/pose_service.py",
		"../scripts/pose_service.py",
		filepath.Join(execDir, "scripts/pose_service.py"),
		filepath.Join(os.Getenv("HOME"), ".repwatch/scripts/pose_service.py"),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".repwatch/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
