package voiceout

import (
	"testing"

	"github.com/echo-copilot/echo/internal/model"
)

func TestGenerateAlertToneNonEmpty(t *testing.T) {
	for _, reason := range []model.BlockReason{model.BlockPermission, model.BlockQuestion, model.BlockIdle, ""} {
		pcm := GenerateAlertTone(reason, 16000)
		if len(pcm) == 0 {
			t.Errorf("reason %q: expected non-empty PCM", reason)
		}
		if len(pcm)%2 != 0 {
			t.Errorf("reason %q: PCM16 length must be even, got %d", reason, len(pcm))
		}
	}
}

func TestGenerateAlertToneDistinctPerReason(t *testing.T) {
	perm := GenerateAlertTone(model.BlockPermission, 16000)
	idle := GenerateAlertTone(model.BlockIdle, 16000)
	if len(perm) == len(idle) {
		t.Errorf("permission and idle tones have the same length %d, want distinct signatures", len(perm))
	}
}

func TestFadeInStartsNearZero(t *testing.T) {
	pcm := GenerateAlertTone(model.BlockQuestion, 16000)
	// First sample should start near zero due to the fade-in.
	first := int16(uint16(pcm[0]) | uint16(pcm[1])<<8)
	if first > 2000 || first < -2000 {
		t.Errorf("expected faded-in first sample near zero, got %d", first)
	}
}
