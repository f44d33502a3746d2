package voicein

import (
	"context"

	"github.com/echo-copilot/echo/internal/voiceout"
)

// ttsSynthesizer is the subset of voiceout.Synthesizer a Confirmer needs;
// declared locally so this file doesn't require a specific provider
// package, only the voiceout.Engine's own interface shape.
type ttsSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// TTSConfirmer speaks a short confirmation phrase immediately, bypassing
// the priority queue — the same "synthesize then PlayImmediate" path
// voiceout.Engine uses for critical narration, reused here so a
// dispatched response is audibly confirmed before it's sent.
type TTSConfirmer struct {
	synth  ttsSynthesizer
	player *voiceout.Player
}

// NewTTSConfirmer builds a Confirmer. Either argument may be nil, in
// which case Confirm is a no-op — confirmation speech is optional.
func NewTTSConfirmer(synth ttsSynthesizer, player *voiceout.Player) *TTSConfirmer {
	return &TTSConfirmer{synth: synth, player: player}
}

func (c *TTSConfirmer) Confirm(ctx context.Context, text string) error {
	if c.synth == nil || c.player == nil {
		return nil
	}
	pcm, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return c.player.PlayImmediate(pcm)
}
