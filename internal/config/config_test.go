package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	clearEchoEnv(t)

	c := Load()
	if c.Port != 7865 {
		t.Errorf("Port = %d, want 7865", c.Port)
	}
	if c.AudioSampleRate != 16000 {
		t.Errorf("AudioSampleRate = %d, want 16000", c.AudioSampleRate)
	}
	if c.AlertMaxRepeats != 5 {
		t.Errorf("AlertMaxRepeats = %d, want 5", c.AlertMaxRepeats)
	}
	if c.AlertRepeatInterval != 30*time.Second {
		t.Errorf("AlertRepeatInterval = %v, want 30s", c.AlertRepeatInterval)
	}
	if c.STTConfidenceThreshold != 0.6 {
		t.Errorf("STTConfidenceThreshold = %v, want 0.6", c.STTConfidenceThreshold)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEchoEnv(t)
	os.Setenv("ECHO_PORT", "9000")
	os.Setenv("ECHO_ALERT_MAX_REPEATS", "2")
	defer os.Unsetenv("ECHO_PORT")
	defer os.Unsetenv("ECHO_ALERT_MAX_REPEATS")

	c := Load()
	if c.Port != 9000 {
		t.Errorf("Port = %d, want 9000", c.Port)
	}
	if c.AlertMaxRepeats != 2 {
		t.Errorf("AlertMaxRepeats = %d, want 2", c.AlertMaxRepeats)
	}
}

func clearEchoEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		for _, prefix := range []string{"ECHO_", "OLLAMA_", "LOKUTOR_", "LIVEKIT_", "CLAUDE_"} {
			if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
				key := e[:indexByte(e, '=')]
				os.Unsetenv(key)
			}
		}
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
