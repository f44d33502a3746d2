package health

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for every echo metric.
const meterName = "github.com/echo-copilot/echo"

// Metrics holds the OpenTelemetry instruments that the callback registered
// by NewMetrics (observe) fills from a fresh Snapshot on each collection. Gauges are implemented as Int64ObservableGauge callbacks rather
// than synchronous counters, since a Snapshot is a pull, not a stream of
// increments.
type Metrics struct {
	subscribers          metric.Int64ObservableGauge
	narrationSubscribers metric.Int64ObservableGauge
	ollamaAvailable      metric.Int64ObservableGauge
	ttsAvailable         metric.Int64ObservableGauge
	audioAvailable       metric.Int64ObservableGauge
	alertActive          metric.Int64ObservableGauge
	sttAvailable         metric.Int64ObservableGauge
	sttListening         metric.Int64ObservableGauge
}

// NewMetrics registers the observable gauges against mp's default meter and
// arms a single callback that pulls a fresh Snapshot from collector each
// time the Prometheus exporter is scraped.
func NewMetrics(mp metric.MeterProvider, collector *Collector) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.subscribers, err = m.Int64ObservableGauge("echo.activity.subscribers",
		metric.WithDescription("Current subscriber count on the activity event bus."),
	); err != nil {
		return nil, err
	}
	if met.narrationSubscribers, err = m.Int64ObservableGauge("echo.narration.subscribers",
		metric.WithDescription("Current subscriber count on the narration bus."),
	); err != nil {
		return nil, err
	}
	if met.ollamaAvailable, err = m.Int64ObservableGauge("echo.llm.available",
		metric.WithDescription("1 when the summarization LLM backend is healthy, else 0."),
	); err != nil {
		return nil, err
	}
	if met.ttsAvailable, err = m.Int64ObservableGauge("echo.tts.available",
		metric.WithDescription("1 when the text-to-speech backend is healthy, else 0."),
	); err != nil {
		return nil, err
	}
	if met.audioAvailable, err = m.Int64ObservableGauge("echo.audio.available",
		metric.WithDescription("1 when the playback device is open, else 0."),
	); err != nil {
		return nil, err
	}
	if met.alertActive, err = m.Int64ObservableGauge("echo.alert.active",
		metric.WithDescription("1 when at least one session has an outstanding blocking alert."),
	); err != nil {
		return nil, err
	}
	if met.sttAvailable, err = m.Int64ObservableGauge("echo.stt.available",
		metric.WithDescription("1 when the speech-to-text backend is healthy, else 0."),
	); err != nil {
		return nil, err
	}
	if met.sttListening, err = m.Int64ObservableGauge("echo.stt.listening",
		metric.WithDescription("1 when the microphone is actively capturing a reply."),
	); err != nil {
		return nil, err
	}

	_, err = m.RegisterCallback(met.observe(collector),
		met.subscribers, met.narrationSubscribers, met.ollamaAvailable,
		met.ttsAvailable, met.audioAvailable, met.alertActive,
		met.sttAvailable, met.sttListening,
	)
	if err != nil {
		return nil, err
	}

	return met, nil
}

func (m *Metrics) observe(collector *Collector) metric.Callback {
	return func(_ context.Context, o metric.Observer) error {
		s := collector.Snapshot()

		o.ObserveInt64(m.subscribers, int64(s.Subscribers))
		o.ObserveInt64(m.narrationSubscribers, int64(s.NarrationSubscribers))
		o.ObserveInt64(m.ollamaAvailable, boolGauge(s.OllamaAvailable))
		o.ObserveInt64(m.ttsAvailable, boolGauge(s.TTSAvailable))
		o.ObserveInt64(m.audioAvailable, boolGauge(s.AudioAvailable))
		o.ObserveInt64(m.alertActive, boolGauge(s.AlertActive))
		if s.HasSTT() {
			o.ObserveInt64(m.sttAvailable, boolGauge(s.STTAvailable))
			o.ObserveInt64(m.sttListening, boolGauge(s.STTListening))
		}
		return nil
	}
}

func boolGauge(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
