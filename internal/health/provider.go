package health

import (
	"context"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeterProvider wires a Prometheus-backed MeterProvider and registers it
// as the global OTel meter provider. Returns a shutdown func to call from
// cmd/echod on exit. Unlike the richer services this pattern is borrowed
// from, echod exports metrics only — there is no distributed span to trace
// across a single local sidecar process.
func InitMeterProvider() (shutdown func(context.Context) error, err error) {
	exp, err := promexporter.New()
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
