package main

import (
	"context"

	"github.com/echo-copilot/echo/internal/bus"
	"github.com/echo-copilot/echo/internal/config"
	"github.com/echo-copilot/echo/internal/device"
	"github.com/echo-copilot/echo/internal/health"
	"github.com/echo-copilot/echo/internal/ingest"
	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
	"github.com/echo-copilot/echo/internal/providers/llm"
	"github.com/echo-copilot/echo/internal/providers/stt"
	"github.com/echo-copilot/echo/internal/providers/tts"
	"github.com/echo-copilot/echo/internal/summarize"
	"github.com/echo-copilot/echo/internal/voicein"
	"github.com/echo-copilot/echo/internal/voiceout"
)

// buildLLM selects a summarize.Completer by cfg.LLMProvider. An unset API
// key for the selected provider is logged and yields a nil Completer —
// NewLLMSummarizer treats that as "fall back to truncation", so echod
// keeps narrating instead of refusing to start.
func buildLLM(cfg config.Config, log logging.Logger) summarize.Completer {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Warn("echod: ECHO_OPENAI_API_KEY not set — LLM summarization disabled")
			return nil
		}
		return llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.LLMModel)
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Warn("echod: ECHO_ANTHROPIC_API_KEY not set — LLM summarization disabled")
			return nil
		}
		return llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.LLMModel)
	case "google":
		if cfg.GoogleAPIKey == "" {
			log.Warn("echod: ECHO_GOOGLE_API_KEY not set — LLM summarization disabled")
			return nil
		}
		return llm.NewGoogle(cfg.GoogleAPIKey, cfg.LLMModel)
	case "ollama", "":
		return llm.NewOllama(cfg.OllamaBaseURL, cfg.LLMModel, cfg.LLMTimeout)
	default:
		log.Warn("echod: unknown ECHO_LLM_PROVIDER — LLM summarization disabled", "provider", cfg.LLMProvider)
		return nil
	}
}

// buildSTT selects a voicein.Transcriber by cfg.STTProvider. A missing key
// leaves the Client permanently unavailable rather than failing startup —
// voice capture is optional; hook/transcript narration still works.
func buildSTT(cfg config.Config) voicein.Transcriber {
	switch cfg.STTProvider {
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil
		}
		return stt.NewGroq(cfg.GroqAPIKey, cfg.STTModel, cfg.AudioSampleRate)
	case "deepgram":
		if cfg.DeepgramAPIKey == "" {
			return nil
		}
		return stt.NewDeepgram(cfg.DeepgramAPIKey, cfg.AudioSampleRate)
	case "assemblyai":
		if cfg.AssemblyAIAPIKey == "" {
			return nil
		}
		return stt.NewAssemblyAI(cfg.AssemblyAIAPIKey)
	case "openai", "":
		if cfg.STTAPIKey == "" {
			return nil
		}
		return stt.NewOpenAI(cfg.STTAPIKey, cfg.STTModel, cfg.AudioSampleRate)
	default:
		return nil
	}
}

// audioSynth is the capability both TTS backends share: synthesis plus
// the availability/name reporting health.Collector and /health need.
// voiceout.Engine only ever calls Synthesize, so any audioSynth also
// satisfies voiceout.Synthesizer.
type audioSynth interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	IsAvailable() bool
	Name() string
}

// buildVoiceTTS selects an audioSynth by cfg.TTSProvider.
func buildVoiceTTS(cfg config.Config, log logging.Logger) audioSynth {
	switch cfg.TTSProvider {
	case "lokutor":
		return tts.NewLokutor(cfg.LokutorAPIKey, cfg.LokutorVoice)
	case "elevenlabs", "":
		fallthrough
	default:
		return tts.NewElevenLabs(
			cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, cfg.TTSVoiceID, cfg.TTSModel,
			cfg.TTSTimeout, cfg.TTSHealthCheckInterval, log,
		)
	}
}

// newDeviceContext initializes the shared malgo backend context. A failure
// (no audio subsystem available — common in CI/containers) is logged and
// returns nil. Unlike Microphone/Client/Player, device.OpenPlayback and
// device.OpenCapture dereference ctx unconditionally, so every call site
// below guards on deviceCtx != nil rather than relying on the callee.
func newDeviceContext(log logging.Logger) *device.Context {
	ctx, err := device.NewContext()
	if err != nil {
		log.Warn("echod: failed to initialize audio backend — playback and capture disabled", "error", err)
		return nil
	}
	return ctx
}

// buildApp wires every long-lived subsystem together from cfg, following
// the original server's app-factory: buses first, then the S2 summarizer,
// S3 voice-out, and S4 voice-in stages, then the health collector that
// reads back across all of them.
func buildApp(cfg config.Config, log logging.Logger) *application {
	activity := bus.New[model.ActivityEvent]()
	narration := bus.New[model.NarrationEvent]()
	response := bus.New[model.ResponseEvent]()

	hooks := ingest.NewHookAdapter(log)
	transcriptWatcher := ingest.NewTranscriptWatcher(cfg.ClaudeProjectsPath, log)

	llmSummarizer := summarize.NewLLMSummarizer(buildLLM(cfg, log), cfg.LLMHealthCheckInterval, log)
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), cfg.LLMTimeout)
	llmSummarizer.CheckHealth(probeCtx)
	cancelProbe()
	summarizeWorker := summarize.NewWorker(activity, narration, llmSummarizer, log)

	deviceCtx := newDeviceContext(log)

	var playbackDevice voiceout.Device
	if deviceCtx != nil {
		pb, err := device.OpenPlayback(deviceCtx, cfg.AudioSampleRate)
		if err != nil {
			log.Warn("echod: failed to open playback device — narration audio disabled", "error", err)
		} else {
			playbackDevice = pb
		}
	}
	player := voiceout.NewPlayer(playbackDevice, cfg.AudioBacklogThreshold, log)
	// The health collector sees the player only when a playback device is
	// open, so audio_available reports the device rather than the Player.
	var healthPlayer *voiceout.Player
	if playbackDevice != nil {
		healthPlayer = player
	}

	synth := buildVoiceTTS(cfg, log)
	sink := voiceout.NewRemoteSink(cfg.LiveKitURL, log)
	alerts := voiceout.NewAlertManager(cfg.AlertRepeatInterval, cfg.AlertMaxRepeats, log)
	voiceoutEngine := voiceout.NewEngine(player, synth, alerts, sink, cfg.AudioSampleRate, cfg.AudioBacklogThreshold, log)

	microphone := voicein.NewMicrophone(deviceCtx, cfg.AudioSampleRate, log)
	if deviceCtx != nil {
		microphone.Start()
	}
	sttClient := voicein.NewClient(buildSTT(cfg), cfg.STTHealthCheckInterval, log)
	matcher := voicein.NewMatcher(cfg.STTConfidenceThreshold)
	dispatcher := voicein.NewDispatcher(cfg.DispatchMethod, log)
	dispatcher.Start()

	var confirmer voicein.Confirmer
	if cfg.ConfirmResponses {
		confirmer = voicein.NewTTSConfirmer(synth, player)
	}

	voiceinEngine := voicein.NewEngine(
		microphone,
		sttClient,
		matcher,
		dispatcher,
		confirmer,
		alerts,
		voiceoutEngine.CriticalComplete(),
		response,
		cfg.STTConfidenceThreshold,
		voicein.CaptureOptions{
			MaxDuration:      cfg.STTMaxRecordDuration,
			SilenceThreshold: cfg.STTSilenceThreshold,
			SilenceDuration:  cfg.STTSilenceDuration,
			ListenTimeout:    cfg.STTListenTimeout,
		},
		log,
	)

	collector := health.NewCollector(activity, narration, llmSummarizer, synth, synth.Name(), healthPlayer, sink, alerts, voiceinEngine)

	return &application{
		hooks:             hooks,
		transcriptWatcher: transcriptWatcher,

		activity:  activity,
		narration: narration,
		response:  response,

		summarizeWorker: summarizeWorker,
		voiceoutEngine:  voiceoutEngine,
		voiceinEngine:   voiceinEngine,
		player:          player,

		deviceCtx: deviceCtx,
		collector: collector,
	}
}
