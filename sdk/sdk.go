// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sdk is the single explicit entry point a process constructs
// once: it owns the default TextMapPropagator, a logr.Logger returned
// by Logger (the tracers and loggers it builds are not given it), and the
// ProviderHandles returned to whatever wires up tracing, metrics, and
// logging. Nothing in this module reaches for a package-level global
// to get at SDK state; a *Sdk is threaded explicitly wherever it's
// needed, the way sdk.New's caller intends it to be shared.
package sdk

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/northfield-oss/telemetry-core/batchprocessor"
	"github.com/northfield-oss/telemetry-core/export"
	"github.com/northfield-oss/telemetry-core/log"
	"github.com/northfield-oss/telemetry-core/propagation"
	"github.com/northfield-oss/telemetry-core/trace"
)

// Option configures a Sdk at construction time.
type Option func(*Sdk)

// WithLogger overrides the default stdr-backed logger that Logger
// returns.
func WithLogger(l logr.Logger) Option {
	return func(s *Sdk) { s.logger = l }
}

// WithPropagator sets the process-wide default TextMapPropagator
// returned by Propagator. The zero value is a CompositePropagator with
// no propagators configured, which Inject/Extract treat as a no-op.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(s *Sdk) { s.propagator = p }
}

type shutdownFunc struct {
	name string
	fn   func(time.Duration) error
}

// ProviderHandle is a small struct the Sdk owns and hands back to
// whatever registers a tracer or logger; processors and exporters
// hold it by plain pointer since Go's garbage collector already
// resolves the "does this outlive its provider" concern a manual
// weak-reference scheme would otherwise exist to answer. Shutdown is
// still idempotent and explicit: the pointer being reachable says
// nothing about whether the underlying processor has already torn
// down.
type ProviderHandle struct {
	name       string
	forceFlush func(time.Duration) error
	shutdown   func(time.Duration) error
}

func (h *ProviderHandle) ForceFlush(timeout time.Duration) error { return h.forceFlush(timeout) }
func (h *ProviderHandle) Shutdown(timeout time.Duration) error   { return h.shutdown(timeout) }

// Sdk is the process-wide handle constructed once via New. It carries
// no package-level default: every Tracer, Logger, and Meter this
// module creates is built by explicitly passing a *Sdk (or the
// pieces it hands out) to the constructor that needs it.
type Sdk struct {
	logger     logr.Logger
	propagator propagation.TextMapPropagator

	shutdowns []shutdownFunc
}

// New constructs a Sdk. With no options, it logs through
// NewStdLogger and propagates nothing (Inject/Extract are no-ops).
func New(opts ...Option) *Sdk {
	s := &Sdk{
		logger:     NewStdLogger(),
		propagator: propagation.NewComposite(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Logger returns this Sdk's logr.Logger. NewTracer and NewLogger do
// not pass it to the processors they build.
func (s *Sdk) Logger() logr.Logger { return s.logger }

// Propagator returns the process-wide default TextMapPropagator.
func (s *Sdk) Propagator() propagation.TextMapPropagator { return s.propagator }

// spanProcessorAdapter satisfies trace.SpanProcessor over a
// batchprocessor.Processor[export.SpanData]: OnStart is a no-op since
// the batch processor only ever sees a span at OnEnd, matching the
// export pipeline's "finished spans only" contract.
type spanProcessorAdapter struct {
	proc *batchprocessor.Processor[export.SpanData]
}

func (a *spanProcessorAdapter) OnStart(*trace.Span)             {}
func (a *spanProcessorAdapter) OnEnd(data export.SpanData)      { a.proc.OnEnd(data) }
func (a *spanProcessorAdapter) ForceFlush(t time.Duration) bool { return a.proc.ForceFlush(t) }
func (a *spanProcessorAdapter) Shutdown(t time.Duration) bool   { return a.proc.Shutdown(t) }

// NewTracer builds a trace.Tracer whose spans export through a
// dedicated batchprocessor.Processor, and registers that processor's
// ForceFlush/Shutdown with the Sdk so a single Sdk.Shutdown call tears
// every signal down together.
func (s *Sdk) NewTracer(name, version string, sampler trace.Sampler, exporter export.Exporter[export.SpanData], cfg batchprocessor.Config[export.SpanData]) *trace.Tracer {
	proc := batchprocessor.New(exporter, cfg)
	adapter := &spanProcessorAdapter{proc: proc}
	s.registerShutdown("tracer:"+name, adapter.ForceFlush, adapter.Shutdown)
	return trace.NewTracer(name, version, sampler, adapter)
}

// logProcessorAdapter satisfies log.LogProcessor over a
// batchprocessor.Processor[export.LogRecordData].
type logProcessorAdapter struct {
	proc *batchprocessor.Processor[export.LogRecordData]
}

func (a *logProcessorAdapter) OnEmit(data export.LogRecordData)  { a.proc.OnEnd(data) }
func (a *logProcessorAdapter) ForceFlush(t time.Duration) bool   { return a.proc.ForceFlush(t) }
func (a *logProcessorAdapter) Shutdown(t time.Duration) bool     { return a.proc.Shutdown(t) }

// NewLogger builds a log.Logger whose records export through a
// dedicated batchprocessor.Processor, registered with the Sdk the same
// way NewTracer registers its processor.
func (s *Sdk) NewLogger(name, version string, exporter export.Exporter[export.LogRecordData], cfg batchprocessor.Config[export.LogRecordData]) *log.Logger {
	proc := batchprocessor.New(exporter, cfg)
	adapter := &logProcessorAdapter{proc: proc}
	s.registerShutdown("logger:"+name, adapter.ForceFlush, adapter.Shutdown)
	return log.NewLogger(name, version, adapter)
}

func (s *Sdk) registerShutdown(name string, flush, shutdown func(time.Duration) bool) {
	s.shutdowns = append(s.shutdowns, shutdownFunc{
		name: name,
		fn: func(timeout time.Duration) error {
			var err error
			if !flush(timeout) {
				err = multierr.Append(err, fmt.Errorf("%s: force flush failed", name))
			}
			if !shutdown(timeout) {
				err = multierr.Append(err, fmt.Errorf("%s: shutdown failed", name))
			}
			return err
		},
	})
}

// Shutdown tears down every processor registered by NewTracer,
// NewLogger, or a caller-supplied MeterProvider handle, attempting
// every one of them and aggregating their failures with multierr
// rather than stopping at the first, the same pattern the teacher's
// OTLP client uses to fold ForceFlush/batcher/exporter shutdown errors
// into one returned error.
func (s *Sdk) Shutdown(timeout time.Duration) error {
	var result error
	for _, sf := range s.shutdowns {
		if err := sf.fn(timeout); err != nil {
			result = multierr.Append(result, err)
		}
	}
	return result
}

// RegisterHandle folds an externally-owned ProviderHandle (e.g. a
// metric.MeterProvider wrapped by the caller) into this Sdk's
// Shutdown, so callers that build their own provider on top of this
// module's pieces still get single-call teardown.
func (s *Sdk) RegisterHandle(name string, h *ProviderHandle) {
	s.shutdowns = append(s.shutdowns, shutdownFunc{name: name, fn: func(timeout time.Duration) error {
		return multierr.Append(h.ForceFlush(timeout), h.Shutdown(timeout))
	}})
}

// NewHandle wraps a pair of ForceFlush/Shutdown functions (typically
// a metric.MeterProvider's) into a ProviderHandle suitable for
// RegisterHandle.
func NewHandle(name string, forceFlush, shutdown func(time.Duration) error) *ProviderHandle {
	return &ProviderHandle{name: name, forceFlush: forceFlush, shutdown: shutdown}
}
