package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultCommandTimeout bounds a single command or hook run.
const DefaultCommandTimeout = 5 * time.Second

// Response is what a command may print on stdout. An empty stdout counts as
// success.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CommandProvider runs an external program for each alert, passing the alert
// as JSON on stdin.
type CommandProvider struct {
	argv    []string
	dir     string
	timeout time.Duration
}

// NewCommandProvider creates a provider running argv with the given timeout.
func NewCommandProvider(argv []string, timeout time.Duration) *CommandProvider {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &CommandProvider{argv: argv, timeout: timeout}
}

// Name implements Provider.
func (p *CommandProvider) Name() string { return "command" }

// Notify implements Provider.
func (p *CommandProvider) Notify(ctx context.Context, a Alert) error {
	return run(ctx, p.argv, p.dir, p.timeout, a)
}

// run executes argv with the alert on stdin and checks its response.
func run(ctx context.Context, argv []string, dir string, timeout time.Duration, a Alert) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("command timeout after %s", timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return fmt.Errorf("command failed: %w, stderr: %s", err, s)
		}
		return fmt.Errorf("command failed: %w", err)
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil
	}
	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return fmt.Errorf("failed to parse command response: %w, stdout: %s", err, out)
	}
	if !resp.Success {
		return fmt.Errorf("command reported failure: %s", resp.Error)
	}
	return nil
}
