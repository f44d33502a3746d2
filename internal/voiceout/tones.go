// Package voiceout implements S3: a priority-preemptive audio player, alert
// tone synthesis, the alert repeat/escalation state machine, and an
// optional remote audio sink.
package voiceout

import (
	"math"

	"github.com/echo-copilot/echo/internal/model"
)

// fadeDuration is the linear fade-in/out applied to every non-silent tone
// segment, matching the 5ms fade used throughout the reference tone synth.
const fadeDuration = 0.005

type toneSegment struct {
	freqHz   float64
	duration float64 // seconds; freq 0 means silence
}

// Each BlockReason gets a distinct audio signature so a developer can tell
// permission requests from questions from idle prompts by ear alone.
var (
	permissionTones = []toneSegment{
		{880, 0.12}, {0, 0.04}, {1320, 0.12}, {0, 0.04}, {880, 0.12}, {0, 0.04}, {1320, 0.12},
	}
	questionTones = []toneSegment{
		{660, 0.15}, {0, 0.05}, {880, 0.15},
	}
	idleTones = []toneSegment{
		{440, 0.20}, {0, 0.05}, {550, 0.15},
	}
	defaultTones = []toneSegment{
		{880, 0.15}, {0, 0.05}, {1320, 0.15},
	}
)

func tonesFor(reason model.BlockReason) []toneSegment {
	switch reason {
	case model.BlockPermission:
		return permissionTones
	case model.BlockQuestion:
		return questionTones
	case model.BlockIdle:
		return idleTones
	default:
		return defaultTones
	}
}

// GenerateAlertTone synthesizes the alert tone for a BlockReason as PCM
// 16-bit signed little-endian samples at sampleRate.
func GenerateAlertTone(reason model.BlockReason, sampleRate int) []byte {
	var samples []float64
	for _, seg := range tonesFor(reason) {
		n := int(seg.duration * float64(sampleRate))
		if seg.freqHz == 0 {
			samples = append(samples, make([]float64, n)...)
			continue
		}
		samples = append(samples, applyFade(generateSine(seg.freqHz, n, sampleRate), sampleRate)...)
	}
	return float64ToPCM16(samples)
}

func generateSine(freqHz float64, nSamples, sampleRate int) []float64 {
	out := make([]float64, nSamples)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = math.Sin(2 * math.Pi * freqHz * t)
	}
	return out
}

// applyFade ramps the first and last fadeDuration seconds of seg linearly
// to/from zero, to avoid the audible click a hard-edged tone produces.
func applyFade(seg []float64, sampleRate int) []float64 {
	fadeSamples := int(fadeDuration * float64(sampleRate))
	if fadeSamples > len(seg)/2 {
		fadeSamples = len(seg) / 2
	}
	for i := 0; i < fadeSamples; i++ {
		gain := float64(i) / float64(fadeSamples)
		seg[i] *= gain
		seg[len(seg)-1-i] *= gain
	}
	return seg
}

func float64ToPCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32767
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		iv := int16(v)
		out[2*i] = byte(iv)
		out[2*i+1] = byte(iv >> 8)
	}
	return out
}
