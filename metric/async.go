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

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/instrumentstream"
	"github.com/northfield-oss/telemetry-core/number"
	"github.com/northfield-oss/telemetry-core/view"
)

// Observation is one attributed value an asynchronous instrument's
// callback reports for a single collection.
type Observation[N number.Any] struct {
	Value N
	Attrs []attribute.KeyValue
}

// Callback is invoked once per reader per collection interval. It
// must return promptly: it runs on the pipeline's collection
// goroutine and a slow callback delays every other stream sharing
// that reader.
type Callback[N number.Any] func(ctx context.Context) []Observation[N]

// asyncInstrument has no Add/Record method: its only input is cb,
// registered against every reader's pipeline as a pre-collect hook so
// the reported values are fresh by the time that reader snapshots the
// underlying Store, per §2's asynchronous data flow.
type asyncInstrument[N number.Any] struct {
	streams []*instrumentstream.Stream
}

func newAsyncInstrument[N number.Any](mp *MeterProvider, name, description, unit string, ik aggregation.InstrumentKind, defaultAgg aggregation.Kind, traits number.Traits[N], cb Callback[N]) *asyncInstrument[N] {
	desc := view.InstrumentDescriptor{Name: name, Description: description, Unit: unit, Kind: ik, NumberKind: int8(traits.Kind())}
	streams, err := mp.streamsFor(desc, traits.Kind(), defaultAgg)
	if err != nil {
		mp.logger.Error(err, "instrument registration warning", "instrument", name)
	}

	mp.mu.Lock()
	readers := append([]*reader(nil), mp.readers...)
	mp.mu.Unlock()

	for i, s := range streams {
		if i >= len(readers) {
			continue // streamsFor and readers are built together; defensive only
		}
		s, traits := s, traits
		readers[i].pipeline.AddPreCollectHook(func(ctx context.Context) {
			for _, obs := range cb(ctx) {
				set, aerr := attribute.New(obs.Attrs...)
				if aerr != nil {
					continue
				}
				filtered, ferr := s.Filter(set)
				if ferr != nil {
					continue
				}
				s.Store.Update(filtered, traits.ToNumber(obs.Value), 1, nil)
			}
		})
	}

	return &asyncInstrument[N]{streams: streams}
}

// AsyncCounter reports a monotonically increasing total, observed
// rather than accumulated in-process (e.g. reading a value from an OS
// counter).
type AsyncCounter[N number.Any] struct{ inst *asyncInstrument[N] }

// AsyncUpDownCounter reports a total that may move in either
// direction between observations.
type AsyncUpDownCounter[N number.Any] struct{ inst *asyncInstrument[N] }

// AsyncGauge reports the current value of some quantity, sampled once
// per collection rather than recorded inline with the code that
// produces it.
type AsyncGauge[N number.Any] struct{ inst *asyncInstrument[N] }

// CreateAsyncCounter registers cb as the source of a monotonic sum.
func CreateAsyncCounter[N number.Any](m *Meter, name string, traits number.Traits[N], cb Callback[N], opts ...InstrumentOption) *AsyncCounter[N] {
	o := resolveOptions(opts)
	return &AsyncCounter[N]{inst: newAsyncInstrument(m.provider, name, o.description, o.unit, aggregation.AsyncCounter, aggregation.MonotonicSumKind, traits, cb)}
}

// CreateAsyncUpDownCounter registers cb as the source of a
// non-monotonic sum.
func CreateAsyncUpDownCounter[N number.Any](m *Meter, name string, traits number.Traits[N], cb Callback[N], opts ...InstrumentOption) *AsyncUpDownCounter[N] {
	o := resolveOptions(opts)
	return &AsyncUpDownCounter[N]{inst: newAsyncInstrument(m.provider, name, o.description, o.unit, aggregation.AsyncUpDownCounter, aggregation.NonMonotonicSumKind, traits, cb)}
}

// CreateAsyncGauge registers cb as the source of a last-value gauge.
func CreateAsyncGauge[N number.Any](m *Meter, name string, traits number.Traits[N], cb Callback[N], opts ...InstrumentOption) *AsyncGauge[N] {
	o := resolveOptions(opts)
	return &AsyncGauge[N]{inst: newAsyncInstrument(m.provider, name, o.description, o.unit, aggregation.AsyncGauge, aggregation.GaugeKind, traits, cb)}
}
