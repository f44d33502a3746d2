package voicein

import (
	"context"
	"errors"
	"os"
	"testing"
)

func withLookPath(t *testing.T, found map[string]bool) {
	t.Helper()
	orig := lookPath
	lookPath = func(name string) (string, error) {
		if found[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() { lookPath = orig })
}

func TestDispatcherForcedMethodSkipsDetection(t *testing.T) {
	d := NewDispatcher("xdotool", nil)
	d.Start()
	if d.Method() != DispatchXdotool {
		t.Fatalf("Method() = %q, want xdotool", d.Method())
	}
	if !d.IsAvailable() {
		t.Fatal("expected forced method to report available")
	}
}

func TestDispatcherDetectsTmuxFirst(t *testing.T) {
	withLookPath(t, map[string]bool{"tmux": true, "xdotool": true})
	t.Setenv("TMUX", "/tmp/tmux-1000/default,1234,0")
	t.Setenv("DISPLAY", ":0")

	d := NewDispatcher("", nil)
	d.Start()
	if d.Method() != DispatchTmux {
		t.Fatalf("Method() = %q, want tmux", d.Method())
	}
}

func TestDispatcherFallsBackToXdotoolUnderX11(t *testing.T) {
	withLookPath(t, map[string]bool{"xdotool": true})
	os.Unsetenv("TMUX")
	t.Setenv("DISPLAY", ":0")

	d := NewDispatcher("", nil)
	d.Start()
	if d.Method() != DispatchXdotool {
		t.Fatalf("Method() = %q, want xdotool", d.Method())
	}
}

func TestDispatcherUnavailableWhenNothingDetected(t *testing.T) {
	withLookPath(t, map[string]bool{})
	os.Unsetenv("TMUX")
	os.Unsetenv("DISPLAY")

	d := NewDispatcher("", nil)
	d.Start()
	if d.IsAvailable() {
		t.Fatal("expected no dispatch method to be available")
	}
}

func TestDispatchReturnsFalseWhenUnavailable(t *testing.T) {
	d := NewDispatcher("", nil)
	if d.Dispatch(context.Background(), "hello") {
		t.Fatal("expected Dispatch to fail when no method is set")
	}
}

func TestDispatchTmuxInvokesSendKeys(t *testing.T) {
	d := NewDispatcher("tmux", nil)
	d.Start()

	var gotName string
	var gotArgs []string
	d.runCmd = func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	}

	if !d.Dispatch(context.Background(), "Allow") {
		t.Fatal("expected dispatch to succeed")
	}
	if gotName != "tmux" {
		t.Fatalf("command = %q, want tmux", gotName)
	}
	if len(gotArgs) != 3 || gotArgs[0] != "send-keys" || gotArgs[1] != "Allow" || gotArgs[2] != "Enter" {
		t.Fatalf("args = %v, want [send-keys Allow Enter]", gotArgs)
	}
}

func TestDispatchXdotoolRunsTypeThenReturn(t *testing.T) {
	d := NewDispatcher("xdotool", nil)
	d.Start()

	var calls [][]string
	d.runCmd = func(ctx context.Context, name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}

	if !d.Dispatch(context.Background(), "Deny") {
		t.Fatal("expected dispatch to succeed")
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 subprocess calls, got %d", len(calls))
	}
	if calls[0][1] != "type" || calls[1][1] != "key" {
		t.Fatalf("unexpected call sequence: %v", calls)
	}
}

func TestDispatchFailureIsSwallowedAsFalse(t *testing.T) {
	d := NewDispatcher("tmux", nil)
	d.Start()
	d.runCmd = func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	}

	if d.Dispatch(context.Background(), "Allow") {
		t.Fatal("expected Dispatch to return false on command failure")
	}
}
