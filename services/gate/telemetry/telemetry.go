// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs the OpenTelemetry providers cppgate reports
// through.
//
// The lint, ast, cache and runner packages call otel.Tracer and
// otel.Meter directly. Until Init installs providers those calls are
// no-ops, so a plain CI run pays nothing.
//
//	traces:  none | stdout | otlp (gRPC)
//	metrics: none | stdout | prometheus
//
// The prometheus exporter registers with the default Prometheus registry,
// which --metrics-file and the live /metrics endpoint read.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ExporterNone turns a signal off.
const ExporterNone = "none"

var (
	// ErrNilContext is returned when Init is called with a nil context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an exporter name Init does not know.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// Config selects exporters for one cppgate process.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// TraceExporter is one of TraceExporters or "none".
	TraceExporter string

	// MetricExporter is one of MetricExporters or "none".
	MetricExporter string

	// OTLPEndpoint is the host:port of an OTLP gRPC receiver.
	OTLPEndpoint string
	OTLPInsecure bool

	// Output receives the stdout exporters. Nil means os.Stderr so the
	// report on stdout stays parseable.
	Output io.Writer
}

// DefaultConfig returns a Config with both signals off.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "cppgate",
		ServiceVersion: "dev",
		TraceExporter:  ExporterNone,
		MetricExporter: ExporterNone,
		OTLPEndpoint:   "localhost:4317",
		OTLPInsecure:   true,
	}
}

type spanExporterFunc func(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error)

type metricReaderFunc func(cfg Config) (sdkmetric.Reader, error)

var spanExporters = map[string]spanExporterFunc{
	"stdout": func(_ context.Context, cfg Config) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(cfg.output()), stdouttrace.WithPrettyPrint())
	},
	"otlp": func(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	},
}

var metricReaders = map[string]metricReaderFunc{
	"stdout": func(cfg Config) (sdkmetric.Reader, error) {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.output()), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	},
	"prometheus": func(Config) (sdkmetric.Reader, error) {
		return promexporter.New()
	},
}

// TraceExporters lists the accepted trace exporter names, sorted.
func TraceExporters() []string { return names(spanExporters) }

// MetricExporters lists the accepted metric exporter names, sorted.
func MetricExporters() []string { return names(metricReaders) }

// Init installs the global tracer and meter providers.
//
// Description:
//
//	An empty or "none" exporter leaves that signal on the no-op global
//	provider. If the meter cannot be built after the tracer was, the
//	tracer is shut down before the error is returned.
//
// Outputs:
//
//	shutdown - Flushes and stops whatever was installed. Always non-nil
//	           on success and safe to call when nothing was installed.
//	error - ErrNilContext, ErrUnknownExporter, or an exporter failure.
//
// Example:
//
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
//
// Thread Safety: Call once at startup.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	var p providers
	if fn, ok := spanExporters[cfg.TraceExporter]; ok {
		exp, err := fn(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s trace exporter: %w", cfg.TraceExporter, err)
		}
		// Syncer: a CLI run ends before a batcher would flush.
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp), sdktrace.WithResource(res))
		otel.SetTracerProvider(tp)
		p.add(tp.Shutdown)
	}
	if fn, ok := metricReaders[cfg.MetricExporter]; ok {
		reader, err := fn(cfg)
		if err != nil {
			_ = p.shutdown(ctx)
			return nil, fmt.Errorf("%s metric exporter: %w", cfg.MetricExporter, err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
		otel.SetMeterProvider(mp)
		p.add(mp.Shutdown)
	}
	return p.shutdown, nil
}

// check rejects unknown exporter names before anything is installed.
func (c Config) check() error {
	if enabled(c.TraceExporter) {
		if _, ok := spanExporters[c.TraceExporter]; !ok {
			return fmt.Errorf("%w: trace exporter %q (want one of %v)", ErrUnknownExporter, c.TraceExporter, TraceExporters())
		}
	}
	if enabled(c.MetricExporter) {
		if _, ok := metricReaders[c.MetricExporter]; !ok {
			return fmt.Errorf("%w: metric exporter %q (want one of %v)", ErrUnknownExporter, c.MetricExporter, MetricExporters())
		}
	}
	return nil
}

func (c Config) output() io.Writer {
	if c.Output != nil {
		return c.Output
	}
	return os.Stderr
}

// providers collects shutdown hooks in install order.
type providers struct {
	hooks []func(context.Context) error
}

func (p *providers) add(fn func(context.Context) error) {
	p.hooks = append(p.hooks, fn)
}

// shutdown stops providers in reverse install order.
func (p *providers) shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.hooks) - 1; i >= 0; i-- {
		errs = append(errs, p.hooks[i](ctx))
	}
	return errors.Join(errs...)
}

func enabled(name string) bool {
	return name != "" && name != ExporterNone
}

func names[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
