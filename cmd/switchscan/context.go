package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"switchscan/internal/config"
	"switchscan/internal/ipc"
)

type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil {
		if socket := strings.TrimSpace(*c.socketFlag); socket != "" {
			return socket
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.SocketPath()
	}
	fallback := config.Default()
	if dir, err := config.ExpandPath(fallback.Paths.StateDir); err == nil {
		fallback.Paths.StateDir = dir
	}
	return fallback.SocketPath()
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

// errAppNotRunning marks a dial failure caused by a missing or dead socket.
var errAppNotRunning = errors.New("switchscan app is not running")

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to app: socket %s not found; start it with `switchscan run`: %w", socket, errAppNotRunning)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to app: socket %s refused the connection; verify the app is running: %w", socket, errAppNotRunning)
	default:
		return fmt.Errorf("connect to app: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
