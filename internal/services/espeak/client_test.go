package espeak

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"switchscan/internal/services"
)

type call struct {
	binary string
	args   []string
	stdin  string
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []call
	runErr  error
	missing bool
	block   bool
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, stdin string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{binary: binary, args: append([]string(nil), args...), stdin: stdin})
	block, err := f.block, f.runErr
	f.mu.Unlock()
	if block && len(args) > 0 && args[0] != "-C" {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeExecutor) LookPath(binary string) (string, error) {
	if f.missing {
		return "", errors.New("not found")
	}
	return "/usr/bin/" + binary, nil
}

func TestSpeakEspeakUsesStdin(t *testing.T) {
	exec := &fakeExecutor{}
	client, err := New("espeak-ng", WithExecutor(exec), WithVoice("en-us"), WithRate(200), WithVolume(80))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := client.Speak(context.Background(), "-dash first"); err != nil {
		t.Fatalf("Speak returned error: %v", err)
	}
	want := []call{{binary: "espeak-ng", args: []string{"-s", "200", "-a", "80", "-v", "en-us", "--stdin"}, stdin: "-dash first"}}
	if diff := cmp.Diff(want, exec.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSpeakSpdSayMapsScales(t *testing.T) {
	exec := &fakeExecutor{}
	client, err := New("spd-say", WithExecutor(exec), WithRate(275), WithVolume(150))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := client.Speak(context.Background(), "hi"); err != nil {
		t.Fatalf("Speak returned error: %v", err)
	}
	want := []string{"-w", "-r", "50", "-i", "50", "--", "hi"}
	if diff := cmp.Diff(want, exec.calls[0].args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestSpeakInterruptedCancelsDispatcher(t *testing.T) {
	exec := &fakeExecutor{block: true}
	client, err := New("spd-say", WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.Speak(ctx, "long"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	last := exec.calls[len(exec.calls)-1]
	if diff := cmp.Diff([]string{"-C"}, last.args); diff != "" {
		t.Fatalf("expected cancel call (-want +got):\n%s", diff)
	}
}

func TestSpeakFailureIsDeviceError(t *testing.T) {
	exec := &fakeExecutor{runErr: errors.New("exit status 1")}
	client, err := New("espeak", WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := client.Speak(context.Background(), "x"); !errors.Is(err, services.ErrDevice) {
		t.Fatalf("expected ErrDevice, got %v", err)
	}
}

func TestNewRejectsUnknownOrMissing(t *testing.T) {
	if _, err := New("festival", WithExecutor(&fakeExecutor{})); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := New("espeak-ng", WithExecutor(&fakeExecutor{missing: true})); !errors.Is(err, services.ErrDevice) {
		t.Fatalf("expected device error, got %v", err)
	}
}
