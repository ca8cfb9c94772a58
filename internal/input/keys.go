package input

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key codes from linux/input-event-codes.h for the keys a switch adapter
// commonly emits.
var keyCodes = map[string]uint16{
	"KEY_ESC":          1,
	"KEY_1":            2,
	"KEY_2":            3,
	"KEY_3":            4,
	"KEY_4":            5,
	"KEY_TAB":          15,
	"KEY_ENTER":        28,
	"KEY_LEFTCTRL":     29,
	"KEY_A":            30,
	"KEY_S":            31,
	"KEY_D":            32,
	"KEY_F":            33,
	"KEY_J":            36,
	"KEY_K":            37,
	"KEY_LEFTSHIFT":    42,
	"KEY_SPACE":        57,
	"KEY_F1":           59,
	"KEY_F2":           60,
	"KEY_F3":           61,
	"KEY_F4":           62,
	"KEY_F5":           63,
	"KEY_F6":           64,
	"KEY_F7":           65,
	"KEY_F8":           66,
	"KEY_F9":           67,
	"KEY_F10":          68,
	"KEY_KPENTER":      96,
	"KEY_UP":           103,
	"KEY_PAGEUP":       104,
	"KEY_LEFT":         105,
	"KEY_RIGHT":        106,
	"KEY_DOWN":         108,
	"KEY_PAGEDOWN":     109,
	"KEY_VOLUMEDOWN":   114,
	"KEY_VOLUMEUP":     115,
	"KEY_NEXTSONG":     163,
	"KEY_PLAYPAUSE":    164,
	"KEY_PREVIOUSSONG": 165,
	"BTN_LEFT":         0x110,
	"BTN_RIGHT":        0x111,
	"BTN_MIDDLE":       0x112,
	"BTN_0":            0x100,
	"BTN_1":            0x101,
	"BTN_SOUTH":        0x130,
	"BTN_EAST":         0x131,
}

// ParseKey resolves a key name such as KEY_SPACE, space, or a decimal code.
func ParseKey(name string) (uint16, error) {
	value := strings.ToUpper(strings.TrimSpace(name))
	if value == "" {
		return 0, fmt.Errorf("key name is empty")
	}
	if code, err := strconv.ParseUint(value, 0, 16); err == nil {
		return uint16(code), nil
	}
	if code, ok := keyCodes[value]; ok {
		return code, nil
	}
	if code, ok := keyCodes["KEY_"+value]; ok {
		return code, nil
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

// KeyName returns the symbolic name of code, or its number.
func KeyName(code uint16) string {
	for name, c := range keyCodes {
		if c == code && !strings.HasPrefix(name, "BTN_") {
			return name
		}
	}
	for name, c := range keyCodes {
		if c == code {
			return name
		}
	}
	return strconv.Itoa(int(code))
}

// KeyNames lists the known key names in order.
func KeyNames() []string {
	names := make([]string, 0, len(keyCodes))
	for name := range keyCodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
