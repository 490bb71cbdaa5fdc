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

package metric

import (
	"context"
	"time"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/exemplar"
	"github.com/northfield-oss/telemetry-core/number"
	"github.com/northfield-oss/telemetry-core/propagation"
	"github.com/northfield-oss/telemetry-core/view"
)

// syncInstrument is the shared plumbing behind every synchronous
// instrument: fan out one recorded value to the InstrumentStream built
// for each reader. Counter/UpDownCounter/Histogram/Gauge are thin,
// differently-named wrappers over this so the API surface reads the
// way instrumentation code expects, per §6.
type syncInstrument[N number.Any] struct {
	streams []*streamHandle
	traits  number.Traits[N]
}

// streamHandle pairs a built Stream with the Filter it applies before
// a measurement's attributes reach the Store, avoiding a second map
// lookup per recorded measurement.
type streamHandle struct {
	filterAndStore func(attribute.Set, number.Number, float64, func() exemplar.Exemplar)
}

func newSyncInstrument[N number.Any](mp *MeterProvider, name, description, unit string, ik aggregation.InstrumentKind, defaultAgg aggregation.Kind, traits number.Traits[N]) *syncInstrument[N] {
	desc := view.InstrumentDescriptor{Name: name, Description: description, Unit: unit, Kind: ik, NumberKind: int8(traits.Kind())}
	streams, err := mp.streamsFor(desc, traits.Kind(), defaultAgg)
	if err != nil {
		mp.logger.Error(err, "instrument registration warning", "instrument", name)
	}

	inst := &syncInstrument[N]{traits: traits}
	for _, s := range streams {
		s := s
		inst.streams = append(inst.streams, &streamHandle{
			filterAndStore: func(attrs attribute.Set, v number.Number, weight float64, offer func() exemplar.Exemplar) {
				filtered, ferr := s.Filter(attrs)
				if ferr != nil {
					return
				}
				s.Store.Update(filtered, v, weight, offer)
			},
		})
	}
	return inst
}

func (i *syncInstrument[N]) record(ctx context.Context, value N, attrs ...attribute.KeyValue) {
	set, err := attribute.New(attrs...)
	if err != nil {
		return
	}
	v := i.traits.ToNumber(value)
	sc := propagation.SpanContextFromContext(ctx)
	offer := func() exemplar.Exemplar {
		ex := exemplar.Exemplar{Value: v, Attributes: set, Time: time.Now()}
		if sc.IsValid() {
			ex.TraceID = sc.TraceID
			ex.SpanID = sc.SpanID
			ex.HasContext = true
		}
		return ex
	}
	for _, h := range i.streams {
		h.filterAndStore(set, v, 1, offer)
	}
}

// Counter is a monotonic, synchronous accumulator: Add rejects
// negative increments at the Store level (§7).
type Counter[N number.Any] struct{ inst *syncInstrument[N] }

func (c *Counter[N]) Add(ctx context.Context, incr N, attrs ...attribute.KeyValue) {
	c.inst.record(ctx, incr, attrs...)
}

// UpDownCounter is a non-monotonic, synchronous accumulator; negative
// deltas are ordinary input.
type UpDownCounter[N number.Any] struct{ inst *syncInstrument[N] }

func (c *UpDownCounter[N]) Add(ctx context.Context, delta N, attrs ...attribute.KeyValue) {
	c.inst.record(ctx, delta, attrs...)
}

// Histogram records a distribution of values, bucketed per the
// resolved view's aggregation (explicit or exponential).
type Histogram[N number.Any] struct{ inst *syncInstrument[N] }

func (h *Histogram[N]) Record(ctx context.Context, value N, attrs ...attribute.KeyValue) {
	h.inst.record(ctx, value, attrs...)
}

// Gauge records the last-observed value of some quantity synchronously
// (e.g. a value read inline with request handling, as opposed to
// AsyncGauge's poll-on-collect model).
type Gauge[N number.Any] struct{ inst *syncInstrument[N] }

func (g *Gauge[N]) Record(ctx context.Context, value N, attrs ...attribute.KeyValue) {
	g.inst.record(ctx, value, attrs...)
}

// InstrumentOption configures the optional unit/description metadata
// §6 lists as accompanying an instrument's name.
type InstrumentOption func(*instrumentOptions)

type instrumentOptions struct {
	description string
	unit        string
}

func resolveOptions(opts []InstrumentOption) instrumentOptions {
	var o instrumentOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithUnit sets the instrument's unit, e.g. "ms" or "By".
func WithUnit(unit string) InstrumentOption {
	return func(o *instrumentOptions) { o.unit = unit }
}

// WithDescription sets the instrument's human-readable description.
func WithDescription(description string) InstrumentOption {
	return func(o *instrumentOptions) { o.description = description }
}

// CreateCounter creates a monotonic sum instrument.
func CreateCounter[N number.Any](m *Meter, name string, traits number.Traits[N], opts ...InstrumentOption) *Counter[N] {
	o := resolveOptions(opts)
	return &Counter[N]{inst: newSyncInstrument(m.provider, name, o.description, o.unit, aggregation.SyncCounter, aggregation.MonotonicSumKind, traits)}
}

// CreateUpDownCounter creates a non-monotonic sum instrument.
func CreateUpDownCounter[N number.Any](m *Meter, name string, traits number.Traits[N], opts ...InstrumentOption) *UpDownCounter[N] {
	o := resolveOptions(opts)
	return &UpDownCounter[N]{inst: newSyncInstrument(m.provider, name, o.description, o.unit, aggregation.SyncUpDownCounter, aggregation.NonMonotonicSumKind, traits)}
}

// CreateHistogram creates a distribution instrument, defaulting to
// explicit-bucket aggregation unless a view overrides it.
func CreateHistogram[N number.Any](m *Meter, name string, traits number.Traits[N], opts ...InstrumentOption) *Histogram[N] {
	o := resolveOptions(opts)
	return &Histogram[N]{inst: newSyncInstrument(m.provider, name, o.description, o.unit, aggregation.SyncHistogram, aggregation.ExplicitHistogramKind, traits)}
}

// CreateGauge creates a synchronous last-value instrument.
func CreateGauge[N number.Any](m *Meter, name string, traits number.Traits[N], opts ...InstrumentOption) *Gauge[N] {
	o := resolveOptions(opts)
	return &Gauge[N]{inst: newSyncInstrument(m.provider, name, o.description, o.unit, aggregation.SyncGauge, aggregation.GaugeKind, traits)}
}
