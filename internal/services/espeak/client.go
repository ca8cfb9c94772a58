package espeak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"switchscan/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin string) error
	LookPath(binary string) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithVoice selects a synthesizer voice.
func WithVoice(voice string) Option {
	return func(c *Client) { c.voice = strings.TrimSpace(voice) }
}

// WithRate sets the speaking rate in words per minute.
func WithRate(wpm int) Option {
	return func(c *Client) {
		if wpm > 0 {
			c.rate = wpm
		}
	}
}

// WithVolume sets the amplitude on a 0-200 scale, 100 being normal.
func WithVolume(volume int) Option {
	return func(c *Client) {
		if volume >= 0 {
			c.volume = volume
		}
	}
}

// Client runs one synthesizer process per utterance.
type Client struct {
	engine string
	binary string
	voice  string
	rate   int
	volume int
	exec   Executor
}

// Engines lists the supported synthesizer commands.
var Engines = []string{"espeak-ng", "espeak", "spd-say"}

// New constructs a client for engine.
func New(engine string, opts ...Option) (*Client, error) {
	engine = strings.ToLower(strings.TrimSpace(engine))
	switch engine {
	case "espeak-ng", "espeak", "spd-say":
	default:
		return nil, services.Wrap(services.ErrConfiguration, "espeak", "new", fmt.Sprintf("unsupported engine %q", engine), nil)
	}
	client := &Client{
		engine: engine,
		binary: engine,
		rate:   175,
		volume: 100,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	if _, err := client.exec.LookPath(client.binary); err != nil {
		return nil, services.Wrap(services.ErrDevice, "espeak", "new", fmt.Sprintf("binary %q not found", client.binary), err)
	}
	return client, nil
}

// Speak blocks until the synthesizer exits or ctx is cancelled.
func (c *Client) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	args, stdin := c.speakArgs(text)
	err := c.exec.Run(ctx, c.binary, args, stdin)
	if ctx.Err() != nil {
		if c.engine == "spd-say" {
			c.cancelDispatcher()
		}
		return ctx.Err()
	}
	if err != nil {
		return services.Wrap(services.ErrDevice, "espeak", "speak", c.engine, err)
	}
	return nil
}

// Probe confirms the synthesizer binary is still resolvable.
func (c *Client) Probe(context.Context) error {
	if _, err := c.exec.LookPath(c.binary); err != nil {
		return services.Wrap(services.ErrDevice, "espeak", "probe", c.binary, err)
	}
	return nil
}

// Close stops any queued dispatcher speech.
func (c *Client) Close() error {
	if c.engine == "spd-say" {
		c.cancelDispatcher()
	}
	return nil
}

func (c *Client) speakArgs(text string) ([]string, string) {
	if c.engine == "spd-say" {
		args := []string{"-w",
			"-r", strconv.Itoa(clamp((c.rate-175)/2, -100, 100)),
			"-i", strconv.Itoa(clamp(c.volume-100, -100, 100)),
		}
		if c.voice != "" {
			args = append(args, "-y", c.voice)
		}
		return append(args, "--", text), ""
	}
	args := []string{"-s", strconv.Itoa(c.rate), "-a", strconv.Itoa(c.volume)}
	if c.voice != "" {
		args = append(args, "-v", c.voice)
	}
	return append(args, "--stdin"), text
}

// spd-say hands text to a daemon, so killing the client does not stop audio.
func (c *Client) cancelDispatcher() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = c.exec.Run(ctx, c.binary, []string{"-C"}, "")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdin string) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}

func (commandExecutor) LookPath(binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", binary, err)
		}
		return "", err
	}
	return path, nil
}
