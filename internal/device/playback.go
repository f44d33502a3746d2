package device

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Playback is a synchronous audio sink satisfying voiceout.Device. Each
// Play call blocks until the supplied PCM16 buffer has been fully written
// to the output callback, matching the teacher's duplex-device callback
// pattern adapted to a single blocking call per narration utterance.
type Playback struct {
	device *malgo.Device

	mu      sync.Mutex
	buf     []byte
	done    chan struct{}
	playing bool
}

// OpenPlayback initializes a playback-only device at sampleRate, mono,
// signed 16-bit PCM.
func OpenPlayback(ctx *Context, sampleRate int) (*Playback, error) {
	p := &Playback{}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(sampleRate)
	cfg.Alsa.NoMMap = 1

	dev, err := malgo.InitDevice(ctx.raw.Context, cfg, malgo.DeviceCallbacks{
		Data: p.onSamples,
	})
	if err != nil {
		return nil, fmt.Errorf("device: init playback device: %w", err)
	}
	p.device = dev
	return p, nil
}

func (p *Playback) onSamples(pOutput, _ []byte, _ uint32) {
	p.mu.Lock()
	n := copy(pOutput, p.buf)
	p.buf = p.buf[n:]
	drained := len(p.buf) == 0
	p.mu.Unlock()

	for i := n; i < len(pOutput); i++ {
		pOutput[i] = 0
	}

	if drained && n > 0 {
		p.mu.Lock()
		if p.done != nil {
			close(p.done)
			p.done = nil
		}
		p.mu.Unlock()
	}
}

// Play writes pcm to the device and blocks until it has been fully
// consumed by the output callback.
func (p *Playback) Play(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("device: start playback: %w", err)
	}
	defer p.device.Stop()

	done := make(chan struct{})
	p.mu.Lock()
	p.buf = pcm
	p.done = done
	p.playing = true
	p.mu.Unlock()

	<-done

	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
	return nil
}

// Stop discards any buffered audio and releases the current Play call at
// once, without waiting for the next callback tick.
func (p *Playback) Stop() {
	p.mu.Lock()
	p.buf = nil
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	p.mu.Unlock()
}

// Close releases the underlying device.
func (p *Playback) Close() {
	p.device.Uninit()
}
