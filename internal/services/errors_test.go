package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"switchscan/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransport, "chatsync", "fetch history", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"chatsync", "fetch history", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestKindOfAndRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      services.Kind
		retryable bool
	}{
		{"nil", nil, services.KindUnknown, false},
		{"transport", services.Wrap(services.ErrTransport, "discord", "history", "", nil), services.KindTransport, true},
		{"timeout", fmt.Errorf("outer: %w", services.ErrTimeout), services.KindTimeout, true},
		{"capability", services.Wrap(services.ErrCapability, "discord", "open", "", nil), services.KindCapability, false},
		{"device", services.Wrap(services.ErrDevice, "espeak", "speak", "", nil), services.KindDevice, false},
		{"data", services.Wrap(services.ErrData, "chatsync", "convert", "", nil), services.KindData, false},
		{"plain", errors.New("other"), services.KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.KindOf(tt.err); got != tt.kind {
				t.Fatalf("unexpected kind: got %q want %q", got, tt.kind)
			}
			if got := services.Retryable(tt.err); got != tt.retryable {
				t.Fatalf("unexpected retryable: got %v want %v", got, tt.retryable)
			}
		})
	}
}
