package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"switchscan/internal/config"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSwitchDevice verifies a pinned input device can be read. An empty
// path means the device is picked by key capability at startup.
func CheckSwitchDevice(path string) Result {
	const name = "Switch device"

	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "auto-detect"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not present)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a character device)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable, join the input group: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckCredentials reports whether the chat token and guild are set.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Credentials"

	if err := cfg.ValidateRemote(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("token set, %d channels", len(cfg.Discord.ChannelIDs))
	if strings.TrimSpace(cfg.Discord.DMBridgeChannelID) == "" {
		detail += ", no mirror channel"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
