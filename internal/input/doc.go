// Package input reads the two physical switches from a Linux evdev device.
//
// A Switch decodes input_event records, maps the configured key codes onto
// scan buttons, and hands edges to the scan loop. The device is optionally
// grabbed so keystrokes do not leak to other consumers, and it is re-opened
// when udev reports the device coming back after an unplug.
package input
