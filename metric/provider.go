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

// Package metric is the public instrumentation surface (§6):
// Meter.CreateCounter/CreateUpDownCounter/CreateHistogram/CreateGauge
// and their asynchronous counterparts, backed by one InstrumentStream
// per (instrument, reader) pair. A MeterProvider owns one
// metricpipeline.Pipeline per registered reader and fans every
// instrument's measurement out to all of them, exactly as spec.md's
// §2 data-flow describes ("routed to each matching InstrumentStream").
package metric

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/errs"
	"github.com/northfield-oss/telemetry-core/export"
	"github.com/northfield-oss/telemetry-core/instrumentstream"
	"github.com/northfield-oss/telemetry-core/metricpipeline"
	"github.com/northfield-oss/telemetry-core/number"
	"github.com/northfield-oss/telemetry-core/store"
	"github.com/northfield-oss/telemetry-core/view"
)

// ReaderConfig configures one reader: an exporter, its collection
// cadence, and the per-store knobs spec.md §6 lists as configuration
// keys.
type ReaderConfig struct {
	Exporter                  export.MetricExporter
	Period                    time.Duration
	Temporality               aggregation.Preference
	CardinalityLimit          int
	EmitOverflowAttribute     bool
	ReclaimUnusedMetricPoints bool
	ExemplarsEnabled          bool
	ExemplarReservoirSize     int
}

type reader struct {
	pipeline *metricpipeline.Pipeline
	cfg      ReaderConfig
}

// MeterProvider owns the set of readers an SDK exports metrics
// through and the registry of instruments created against it. One
// MeterProvider serves any number of Meters (instrumentation scopes).
type MeterProvider struct {
	logger logr.Logger
	views  *view.Views

	mu      sync.Mutex
	readers []*reader
}

// NewMeterProvider constructs a MeterProvider with no readers
// registered; call AddReader before creating instruments so their
// streams are built against every configured reader from the start,
// matching spec.md §3's "unique within a pipeline" invariant.
func NewMeterProvider(logger logr.Logger, views *view.Views) *MeterProvider {
	if views == nil {
		views = view.New()
	}
	return &MeterProvider{
		logger: logger,
		views:  views,
	}
}

// AddReader registers a new export pipeline. It must be called
// before any Meter creates instruments that should be observed by
// this reader.
func (mp *MeterProvider) AddReader(cfg ReaderConfig) *metricpipeline.Pipeline {
	if cfg.CardinalityLimit <= 0 {
		cfg.CardinalityLimit = store.DefaultCardinalityLimit
	}
	pipeline := metricpipeline.New(cfg.Exporter, cfg.Period, cfg.Temporality)

	mp.mu.Lock()
	mp.readers = append(mp.readers, &reader{pipeline: pipeline, cfg: cfg})
	mp.mu.Unlock()

	return pipeline
}

// Start launches every registered reader's periodic collection loop.
func (mp *MeterProvider) Start(ctx context.Context) {
	mp.mu.Lock()
	readers := append([]*reader(nil), mp.readers...)
	mp.mu.Unlock()

	for _, r := range readers {
		r.pipeline.Start(ctx)
	}
}

// ForceFlush flushes every reader and returns the first error
// encountered, having still attempted every reader regardless.
func (mp *MeterProvider) ForceFlush(timeout time.Duration) error {
	mp.mu.Lock()
	readers := append([]*reader(nil), mp.readers...)
	mp.mu.Unlock()

	var first error
	for _, r := range readers {
		if err := r.pipeline.ForceFlush(timeout); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Shutdown shuts down every reader's pipeline. Like ForceFlush, it
// attempts all of them and reports the first failure.
func (mp *MeterProvider) Shutdown(timeout time.Duration) error {
	mp.mu.Lock()
	readers := append([]*reader(nil), mp.readers...)
	mp.mu.Unlock()

	var first error
	for _, r := range readers {
		if err := r.pipeline.Shutdown(timeout); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Meter returns an instrumentation-scope-bound handle for creating
// instruments. Meters are cheap; callers typically hold one per
// package/module rather than constructing one per call.
func (mp *MeterProvider) Meter(name, version string) *Meter {
	return &Meter{provider: mp, name: name, version: version}
}

// Meter creates instruments for one (name, version) instrumentation
// scope.
type Meter struct {
	provider      *MeterProvider
	name, version string
}

// streamsFor builds one InstrumentStream per registered reader for
// desc, resolving each reader's view configuration independently
// (a view clause may retarget one reader's aggregation without
// affecting another's). A non-nil, non-fatal error is returned
// alongside the streams when any reader reports a name collision
// (DuplicateInstrument, §7); the instrument is still usable.
func (mp *MeterProvider) streamsFor(desc view.InstrumentDescriptor, numKind number.Kind, defaultAgg aggregation.Kind) ([]*instrumentstream.Stream, error) {
	mp.mu.Lock()
	readers := append([]*reader(nil), mp.readers...)
	mp.mu.Unlock()

	streams := make([]*instrumentstream.Stream, 0, len(readers))
	var warnings []error
	for _, r := range readers {
		cfg, err := mp.views.Resolve(desc, defaultAgg)
		if err != nil {
			warnings = append(warnings, err)
			mp.logger.V(1).Info("duplicate instrument", "error", err.Error())
		}
		id := instrumentstream.Identity{
			Name:        cfg.Name,
			Description: cfg.Description,
			Unit:        cfg.Unit,
			Kind:        desc.Kind,
			NumberKind:  numKind,
		}
		s := instrumentstream.New(id, cfg, r.cfg.CardinalityLimit, r.cfg.EmitOverflowAttribute, r.cfg.ReclaimUnusedMetricPoints, r.cfg.ExemplarsEnabled, r.cfg.ExemplarReservoirSize)
		r.pipeline.Register(s)
		streams = append(streams, s)
	}

	if len(warnings) == 0 {
		return streams, nil
	}
	return streams, &errs.DuplicateInstrument{Name: desc.Name, Details: fmt.Sprintf("%d reader(s) reported a conflict", len(warnings))}
}
