package input

import (
	"errors"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"switchscan/internal/services"
)

const (
	// SysClassInput is where the kernel lists input devices.
	SysClassInput = "/sys/class/input"
	devInput      = "/dev/input"
)

// Device describes one evdev node.
type Device struct {
	Path string
	Name string
	Phys string
	keys []uint64
}

// HasKey reports whether the device advertises code in its key capability
// bitmap.
func (d Device) HasKey(code uint16) bool {
	word := int(code) / bits.UintSize
	if word >= len(d.keys) {
		return false
	}
	return d.keys[word]&(1<<(uint(code)%bits.UintSize)) != 0
}

// KeyCount is the number of advertised keys.
func (d Device) KeyCount() int {
	n := 0
	for _, w := range d.keys {
		n += bits.OnesCount64(w)
	}
	return n
}

// List enumerates event devices under sysRoot ordered by event number.
func List(sysRoot string) ([]Device, error) {
	if sysRoot == "" {
		sysRoot = SysClassInput
	}
	entries, err := os.ReadDir(sysRoot)
	if err != nil {
		return nil, services.Wrap(services.ErrDevice, "input", "list devices", "read "+sysRoot, err)
	}
	var devices []Device
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "event") {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimPrefix(name, "event")); err != nil {
			continue
		}
		base := filepath.Join(sysRoot, name, "device")
		dev := Device{
			Path: filepath.Join(devInput, name),
			Name: readAttr(filepath.Join(base, "name")),
			Phys: readAttr(filepath.Join(base, "phys")),
		}
		dev.keys = parseBitmap(readAttr(filepath.Join(base, "capabilities", "key")))
		devices = append(devices, dev)
	}
	slices.SortFunc(devices, func(a, b Device) int {
		return eventNumber(a.Path) - eventNumber(b.Path)
	})
	return devices, nil
}

// Find returns the first device that advertises every code.
func Find(sysRoot string, codes ...uint16) (Device, error) {
	devices, err := List(sysRoot)
	if err != nil {
		return Device{}, err
	}
	for _, dev := range devices {
		if slices.ContainsFunc(codes, func(c uint16) bool { return !dev.HasKey(c) }) {
			continue
		}
		return dev, nil
	}
	names := make([]string, 0, len(codes))
	for _, c := range codes {
		names = append(names, KeyName(c))
	}
	return Device{}, services.Wrap(services.ErrNotFound, "input", "find device",
		fmt.Sprintf("no input device reports %s", strings.Join(names, " and ")), nil)
}

func readAttr(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// parseBitmap decodes a sysfs capability bitmap: hex words, most
// significant first.
func parseBitmap(value string) []uint64 {
	fields := strings.Fields(value)
	words := make([]uint64, 0, len(fields))
	for i := len(fields) - 1; i >= 0; i-- {
		w, err := strconv.ParseUint(fields[i], 16, 64)
		if err != nil {
			w = 0
		}
		words = append(words, w)
	}
	return words
}

func eventNumber(path string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "event"))
	if err != nil {
		return -1
	}
	return n
}

// errDeviceGone marks a read failure caused by the device disappearing.
var errDeviceGone = errors.New("input device removed")
