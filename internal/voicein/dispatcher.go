package voicein

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/echo-copilot/echo/internal/logging"
)

// DispatchMethod names a keystroke-injection mechanism for sending a
// matched response back into the assistant's terminal.
type DispatchMethod string

const (
	DispatchTmux        DispatchMethod = "tmux"
	DispatchAppleScript DispatchMethod = "applescript"
	DispatchXdotool     DispatchMethod = "xdotool"
)

// lookPath is overridable in tests.
var lookPath = exec.LookPath

// Dispatcher injects a matched response into the terminal running the
// coding assistant. Detection priority: tmux (most reliable, checked via
// the TMUX env var), AppleScript on macOS, then xdotool under X11 — the
// same order the teacher's detector uses, forced by ECHO_DISPATCH_METHOD
// when set.
type Dispatcher struct {
	forced  DispatchMethod
	method  DispatchMethod
	log     logging.Logger
	runCmd  func(ctx context.Context, name string, args ...string) error
}

// NewDispatcher builds a Dispatcher. forced, when non-empty, skips
// detection entirely (mirrors ECHO_DISPATCH_METHOD).
func NewDispatcher(forced string, log logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Dispatcher{forced: DispatchMethod(forced), log: log, runCmd: runCommand}
}

// Start detects (or applies the forced) dispatch method.
func (d *Dispatcher) Start() {
	if d.forced != "" {
		d.method = d.forced
		d.log.Info("voicein: response dispatch method forced", "method", d.forced)
		return
	}
	d.method = detectMethod()
	if d.method != "" {
		d.log.Info("voicein: response dispatch method detected", "method", d.method)
	} else {
		d.log.Warn("voicein: no response dispatch method available")
	}
}

// Stop releases detection state.
func (d *Dispatcher) Stop() {
	d.method = ""
}

// IsAvailable reports whether a usable dispatch method was found.
func (d *Dispatcher) IsAvailable() bool { return d.method != "" }

// Method returns the active dispatch method, or "" if none.
func (d *Dispatcher) Method() DispatchMethod { return d.method }

// Dispatch injects text followed by Enter into the target terminal.
// Returns false (logged, swallowed) on any failure.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) bool {
	if d.method == "" {
		d.log.Warn("voicein: dispatch unavailable — cannot send response")
		return false
	}

	var err error
	switch d.method {
	case DispatchTmux:
		err = d.runCmd(ctx, "tmux", "send-keys", text, "Enter")
	case DispatchAppleScript:
		err = d.runCmd(ctx, "osascript", "-e", appleScript(text))
	case DispatchXdotool:
		if err = d.runCmd(ctx, "xdotool", "type", "--clearmodifiers", text); err == nil {
			err = d.runCmd(ctx, "xdotool", "key", "Return")
		}
	default:
		d.log.Warn("voicein: unknown dispatch method", "method", d.method)
		return false
	}

	if err != nil {
		d.log.Warn("voicein: dispatch failed", "error", err)
		return false
	}
	return true
}

func appleScript(text string) string {
	escaped := ""
	for _, r := range text {
		switch r {
		case '\\':
			escaped += `\\`
		case '"':
			escaped += `\"`
		default:
			escaped += string(r)
		}
	}
	return fmt.Sprintf("tell application \"System Events\"\n    keystroke \"%s\"\n    delay 0.1\n    keystroke return\nend tell", escaped)
}

func detectMethod() DispatchMethod {
	if os.Getenv("TMUX") != "" {
		if _, err := lookPath("tmux"); err == nil {
			return DispatchTmux
		}
	}
	if runtime.GOOS == "darwin" {
		if _, err := lookPath("osascript"); err == nil {
			return DispatchAppleScript
		}
	}
	if _, err := lookPath("xdotool"); err == nil && os.Getenv("DISPLAY") != "" {
		return DispatchXdotool
	}
	return ""
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Run()
}
