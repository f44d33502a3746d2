// Package config centralizes echo's environment-variable configuration
// surface. Every value has a constant default and is overridden by an
// environment variable; nothing is read from a YAML/TOML file. cmd/echod
// loads a local .env first via godotenv so development works without
// exporting vars by hand.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the fully resolved set of tunables for one echod process.
type Config struct {
	Port int

	ClaudeSettingsPath string
	ClaudeProjectsPath string
	StateDir           string // ~/.echo-copilot equivalent; holds PID/log files

	LLMProvider                string // ollama, openai, anthropic, google
	OllamaBaseURL              string
	LLMModel                   string
	LLMTimeout                 time.Duration
	LLMHealthCheckInterval     time.Duration
	OpenAIAPIKey               string
	AnthropicAPIKey            string
	GoogleAPIKey               string

	TTSProvider           string
	ElevenLabsAPIKey      string
	ElevenLabsBaseURL     string
	TTSVoiceID            string
	TTSModel              string
	TTSTimeout            time.Duration
	TTSHealthCheckInterval time.Duration

	LokutorAPIKey string
	LokutorVoice  string

	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string

	AudioSampleRate      int
	AudioBacklogThreshold int

	AlertRepeatInterval time.Duration
	AlertMaxRepeats     int

	STTProvider             string // openai, groq, deepgram, assemblyai
	STTAPIKey               string
	STTBaseURL              string
	STTModel                string
	STTTimeout              time.Duration
	STTListenTimeout        time.Duration
	STTSilenceThreshold     float64
	STTSilenceDuration      time.Duration
	STTMaxRecordDuration    time.Duration
	STTConfidenceThreshold  float64
	STTHealthCheckInterval  time.Duration
	GroqAPIKey              string
	DeepgramAPIKey          string
	AssemblyAIAPIKey        string

	DispatchMethod string

	ConfirmResponses bool

	LogLevel string
}

// Load resolves Config from the process environment, applying defaults for
// anything unset. Call godotenv.Load() before this in cmd/echod so a local
// .env file is merged into the environment first.
func Load() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Port: envInt("ECHO_PORT", 7865),

		ClaudeSettingsPath: envStr("CLAUDE_SETTINGS_PATH", home+"/.claude/settings.json"),
		ClaudeProjectsPath: envStr("CLAUDE_PROJECTS_PATH", home+"/.claude/projects"),
		StateDir:           envStr("ECHO_DIR", home+"/.echo-copilot"),

		LLMProvider:            envStr("ECHO_LLM_PROVIDER", "ollama"),
		OllamaBaseURL:          envStr("OLLAMA_BASE_URL", "http://localhost:11434"),
		LLMModel:               envStr("ECHO_LLM_MODEL", "qwen2.5:0.5b"),
		LLMTimeout:             envSeconds("ECHO_LLM_TIMEOUT", 5.0),
		LLMHealthCheckInterval: envSeconds("OLLAMA_HEALTH_CHECK_INTERVAL", 60.0),
		OpenAIAPIKey:           envStr("ECHO_OPENAI_API_KEY", ""),
		AnthropicAPIKey:        envStr("ECHO_ANTHROPIC_API_KEY", ""),
		GoogleAPIKey:           envStr("ECHO_GOOGLE_API_KEY", ""),

		TTSProvider:            envStr("ECHO_TTS_PROVIDER", "elevenlabs"),
		ElevenLabsAPIKey:       envStr("ECHO_ELEVENLABS_API_KEY", ""),
		ElevenLabsBaseURL:      envStr("ECHO_ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		TTSVoiceID:             envStr("ECHO_TTS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		TTSModel:               envStr("ECHO_TTS_MODEL", "eleven_turbo_v2_5"),
		TTSTimeout:             envSeconds("ECHO_TTS_TIMEOUT", 10.0),
		TTSHealthCheckInterval: envSeconds("ECHO_TTS_HEALTH_CHECK_INTERVAL", 60.0),

		LokutorAPIKey: envStr("LOKUTOR_API_KEY", ""),
		LokutorVoice:  envStr("LOKUTOR_VOICE", ""),

		LiveKitURL:       envStr("LIVEKIT_URL", ""),
		LiveKitAPIKey:    envStr("LIVEKIT_API_KEY", ""),
		LiveKitAPISecret: envStr("LIVEKIT_API_SECRET", ""),

		AudioSampleRate:       envInt("ECHO_AUDIO_SAMPLE_RATE", 16000),
		AudioBacklogThreshold: envInt("ECHO_AUDIO_BACKLOG_THRESHOLD", 3),

		AlertRepeatInterval: envSeconds("ECHO_ALERT_REPEAT_INTERVAL", 30.0),
		AlertMaxRepeats:     envInt("ECHO_ALERT_MAX_REPEATS", 5),

		STTProvider:            envStr("ECHO_STT_PROVIDER", "openai"),
		STTAPIKey:              envStr("ECHO_STT_API_KEY", ""),
		STTBaseURL:             envStr("ECHO_STT_BASE_URL", "https://api.openai.com"),
		STTModel:               envStr("ECHO_STT_MODEL", "whisper-1"),
		STTTimeout:             envSeconds("ECHO_STT_TIMEOUT", 10.0),
		STTListenTimeout:       envSeconds("ECHO_STT_LISTEN_TIMEOUT", 30.0),
		STTSilenceThreshold:    envFloat("ECHO_STT_SILENCE_THRESHOLD", 0.01),
		STTSilenceDuration:     envSeconds("ECHO_STT_SILENCE_DURATION", 1.5),
		STTMaxRecordDuration:   envSeconds("ECHO_STT_MAX_RECORD_DURATION", 15.0),
		STTConfidenceThreshold: envFloat("ECHO_STT_CONFIDENCE_THRESHOLD", 0.6),
		STTHealthCheckInterval: envSeconds("ECHO_STT_HEALTH_CHECK_INTERVAL", 60.0),
		GroqAPIKey:             envStr("ECHO_GROQ_API_KEY", ""),
		DeepgramAPIKey:         envStr("ECHO_DEEPGRAM_API_KEY", ""),
		AssemblyAIAPIKey:       envStr("ECHO_ASSEMBLYAI_API_KEY", ""),

		DispatchMethod: envStr("ECHO_DISPATCH_METHOD", ""),

		ConfirmResponses: envBool("ECHO_CONFIRM_RESPONSES", true),

		LogLevel: envStr("ECHO_LOG_LEVEL", "info"),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envSeconds(key string, defSeconds float64) time.Duration {
	return time.Duration(envFloat(key, defSeconds) * float64(time.Second))
}
