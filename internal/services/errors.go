package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport marks a remote service that was unreachable or timed out.
	ErrTransport = errors.New("transport error")
	// ErrCapability marks a rejected permission or intent request.
	ErrCapability = errors.New("capability denied")
	// ErrDevice marks a failure inside a local device such as the speech engine.
	ErrDevice = errors.New("device error")
	// ErrData marks a malformed or incomplete payload.
	ErrData          = errors.New("data error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
)

// Kind names the error kind carried by err for status reporting.
type Kind string

const (
	KindTransport     Kind = "transport"
	KindCapability    Kind = "capability"
	KindDevice        Kind = "device"
	KindData          Kind = "data"
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
	KindTimeout       Kind = "timeout"
	KindUnknown       Kind = "unknown"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf classifies err by the first sentinel it wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrCapability):
		return KindCapability
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrDevice):
		return KindDevice
	case errors.Is(err, ErrData):
		return KindData
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindUnknown
	}
}

// Retryable reports whether a read-only operation that failed with err may be
// attempted again.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindTimeout:
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
