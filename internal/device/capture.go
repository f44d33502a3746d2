package device

import (
	"fmt"
	"math"

	"github.com/gen2brain/malgo"
)

// Capture is a microphone input source delivering PCM16 mono frames to a
// callback as they arrive, alongside the frame's RMS energy — the same
// energy measurement the teacher's duplex callback computes inline, split
// out here so S4's VAD can consume it directly instead of recomputing it.
type Capture struct {
	device *malgo.Device
}

// OpenCapture initializes a capture-only device at sampleRate, mono,
// signed 16-bit PCM. onFrame is invoked from the audio callback goroutine
// for every buffer of captured samples; it must not block.
func OpenCapture(ctx *Context, sampleRate int, onFrame func(pcm []byte, rms float64)) (*Capture, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(sampleRate)
	cfg.Alsa.NoMMap = 1

	dev, err := malgo.InitDevice(ctx.raw.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, _ uint32) {
			if len(pInput) == 0 {
				return
			}
			onFrame(pInput, ComputeRMS(pInput))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("device: init capture device: %w", err)
	}
	return &Capture{device: dev}, nil
}

// Start begins delivering frames to the onFrame callback.
func (c *Capture) Start() error {
	return c.device.Start()
}

// Stop halts capture. The device may be Start()-ed again afterwards.
func (c *Capture) Stop() error {
	return c.device.Stop()
}

// Close releases the underlying device permanently.
func (c *Capture) Close() {
	c.device.Uninit()
}

// ComputeRMS measures the RMS amplitude of signed 16-bit mono PCM,
// normalized to 0.0-1.0, matching microphone.py's _compute_rms.
func ComputeRMS(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	var sum float64
	n := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		f := float64(sample) / 32768.0
		sum += f * f
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
