package messenger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"switchscan/internal/services"
)

// ErrCanceled is returned by a Composer when the user backed out.
var ErrCanceled = errors.New("composition canceled")

// Composer collects message text from the user. Text entry itself lives
// outside this process.
type Composer interface {
	Compose(ctx context.Context, purpose string) (string, error)
}

// CommandComposer runs an external entry program with the purpose appended
// to its arguments and reads the composed text from stdout. Exit status 1
// means the user canceled.
type CommandComposer struct {
	binary string
	args   []string
}

// NewCommandComposer splits command on whitespace.
func NewCommandComposer(command string) (*CommandComposer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "composer", "parse command", "input.composer is empty", nil)
	}
	return &CommandComposer{binary: fields[0], args: fields[1:]}, nil
}

func (c *CommandComposer) Compose(ctx context.Context, purpose string) (string, error) {
	args := append(append([]string(nil), c.args...), purpose)
	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", ErrCanceled
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = fmt.Sprintf("run %s", c.binary)
		}
		return "", services.Wrap(services.ErrDevice, "composer", "compose", detail, err)
	}
	return strings.TrimRight(stdout.String(), "\r\n"), nil
}

// StaticComposer answers every request with fixed text.
type StaticComposer struct {
	Text string
	Err  error

	mu    sync.Mutex
	calls []string
}

func (s *StaticComposer) Compose(_ context.Context, purpose string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, purpose)
	s.mu.Unlock()
	return s.Text, s.Err
}

// Calls lists the purposes requested so far.
func (s *StaticComposer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
