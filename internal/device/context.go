// Package device wraps malgo to provide the two audio primitives Echo
// needs: a playback sink for S3's narration and alert tones, and a capture
// source for S4's spoken-reply listening. The two never run concurrently —
// callers gate capture on voiceout.Engine's CriticalComplete signal so the
// speaker finishes before the microphone opens.
package device

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

// Context owns the process-wide malgo backend context that playback and
// capture devices are initialized against.
type Context struct {
	raw *malgo.AllocatedContext
}

// NewContext initializes the malgo backend context.
func NewContext() (*Context, error) {
	raw, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("device: init malgo context: %w", err)
	}
	return &Context{raw: raw}, nil
}

// Close releases the backend context. No playback or capture device may be
// initialized against it afterwards.
func (c *Context) Close() error {
	return c.raw.Uninit()
}
