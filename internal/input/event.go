package input

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Event types and key values from linux/input.h.
const (
	evSyn = 0x00
	evKey = 0x01

	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// eventSize is sizeof(struct input_event): a timeval followed by type,
// code, and value.
var eventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// Event is one decoded input_event record.
type Event struct {
	Time  time.Time
	Type  uint16
	Code  uint16
	Value int32
}

// decodeEvent parses one record in native byte order.
func decodeEvent(buf []byte) (Event, error) {
	if len(buf) < eventSize {
		return Event{}, fmt.Errorf("short input event: %d bytes", len(buf))
	}
	tv := eventSize - 8
	var sec, usec int64
	if tv == 16 {
		sec = int64(binary.NativeEndian.Uint64(buf[0:8]))
		usec = int64(binary.NativeEndian.Uint64(buf[8:16]))
	} else {
		sec = int64(int32(binary.NativeEndian.Uint32(buf[0:4])))
		usec = int64(int32(binary.NativeEndian.Uint32(buf[4:8])))
	}
	return Event{
		Time:  time.Unix(sec, usec*int64(time.Microsecond)),
		Type:  binary.NativeEndian.Uint16(buf[tv : tv+2]),
		Code:  binary.NativeEndian.Uint16(buf[tv+2 : tv+4]),
		Value: int32(binary.NativeEndian.Uint32(buf[tv+4 : tv+8])),
	}, nil
}

// encodeEvent is the inverse of decodeEvent. It is used to synthesize
// device streams.
func encodeEvent(ev Event) []byte {
	buf := make([]byte, eventSize)
	tv := eventSize - 8
	sec := ev.Time.Unix()
	usec := int64(ev.Time.Nanosecond()) / int64(time.Microsecond)
	if tv == 16 {
		binary.NativeEndian.PutUint64(buf[0:8], uint64(sec))
		binary.NativeEndian.PutUint64(buf[8:16], uint64(usec))
	} else {
		binary.NativeEndian.PutUint32(buf[0:4], uint32(sec))
		binary.NativeEndian.PutUint32(buf[4:8], uint32(usec))
	}
	binary.NativeEndian.PutUint16(buf[tv:tv+2], ev.Type)
	binary.NativeEndian.PutUint16(buf[tv+2:tv+4], ev.Code)
	binary.NativeEndian.PutUint32(buf[tv+4:tv+8], uint32(ev.Value))
	return buf
}

// readEvents decodes records from r until it fails. A record split across
// reads is reassembled.
func readEvents(r io.Reader, fn func(Event)) error {
	buf := make([]byte, eventSize*64)
	have := 0
	for {
		n, err := r.Read(buf[have:])
		have += n
		off := 0
		for ; off+eventSize <= have; off += eventSize {
			if ev, decodeErr := decodeEvent(buf[off : off+eventSize]); decodeErr == nil {
				fn(ev)
			}
		}
		have = copy(buf, buf[off:have])
		if err != nil {
			return err
		}
	}
}
