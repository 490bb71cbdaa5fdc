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

// Package instrumentstream binds one instrument's identity to exactly
// one AggregatorStore for one reader, applying whatever view.Config
// resolved against it to pick the aggregation kind, attribute key
// filter, and kernel configuration (§4.2, §4.4).
package instrumentstream

import (
	"math/rand"
	"time"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/aggregator"
	"github.com/northfield-oss/telemetry-core/aggregator/gauge"
	"github.com/northfield-oss/telemetry-core/aggregator/histogram"
	"github.com/northfield-oss/telemetry-core/aggregator/sum"
	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/exemplar"
	"github.com/northfield-oss/telemetry-core/number"
	"github.com/northfield-oss/telemetry-core/store"
	"github.com/northfield-oss/telemetry-core/view"
)

// Identity is the immutable identity a stream is built from: an
// instrument's declared name, kind, unit, and the numeric type of
// values it records.
type Identity struct {
	Name        string
	Description string
	Unit        string
	Kind        aggregation.InstrumentKind
	NumberKind  number.Kind
}

// Stream is one (instrument, reader) pairing's live aggregation
// state: the resolved view configuration, the attribute-key filter it
// implies, and the Store that owns every MetricPoint it produces.
type Stream struct {
	Identity   Identity
	Config     view.Config
	Store      *store.Store
	keyFilter  map[attribute.Key]bool
	filterSet  bool
	exemplars  bool
	reservoirSize int
}

// New builds a Stream from an instrument's Identity and the
// view.Config resolved against it. emitOverflow controls whether a
// measurement past cardinalityLimit is routed to a shared overflow
// point or silently dropped, per the `emitOverflowAttribute`
// configuration key. reclaimUnusedMetricPoints controls whether the
// owning pipeline reclaims idle points after each delta-temporality
// collection, per the configuration key of the same name.
func New(id Identity, cfg view.Config, cardinalityLimit int, emitOverflow, reclaimUnusedMetricPoints, exemplarsEnabled bool, reservoirSize int) *Stream {
	s := &Stream{Identity: id, Config: cfg, exemplars: exemplarsEnabled, reservoirSize: reservoirSize}
	if cfg.KeysSet {
		s.filterSet = true
		s.keyFilter = make(map[attribute.Key]bool, len(cfg.Keys))
		for _, k := range cfg.Keys {
			s.keyFilter[k] = true
		}
	}
	s.Store = store.New(id.NumberKind, cardinalityLimit, emitOverflow, reclaimUnusedMetricPoints, s.newKernel, s.newReservoir)
	return s
}

// Filter drops any attribute key this stream's view doesn't retain.
// A nil filter (the common case: no WithKeys override) retains
// everything and returns attrs unchanged.
func (s *Stream) Filter(attrs attribute.Set) (attribute.Set, error) {
	if !s.filterSet {
		return attrs, nil
	}
	kvs := make([]attribute.KeyValue, 0, attrs.Len())
	it := attrs.Iter()
	for it.Next() {
		kv := it.Attribute()
		if s.keyFilter[kv.Key] {
			kvs = append(kvs, kv)
		}
	}
	return attribute.New(kvs...)
}

func (s *Stream) newKernel() aggregator.Kernel {
	switch s.Config.AggregationKind {
	case aggregation.MonotonicSumKind, aggregation.NonMonotonicSumKind:
		monotonic := s.Config.AggregationKind == aggregation.MonotonicSumKind
		if s.Identity.NumberKind == number.Float64Kind {
			return sum.New[float64](number.Float64Traits{}, monotonic)
		}
		return sum.New[int64](number.Int64Traits{}, monotonic)
	case aggregation.GaugeKind:
		if s.Identity.NumberKind == number.Float64Kind {
			return gauge.New[float64](number.Float64Traits{})
		}
		return gauge.New[int64](number.Int64Traits{})
	case aggregation.ExponentialHistogramKind:
		if s.Identity.NumberKind == number.Float64Kind {
			return histogram.NewExponential[float64](number.Float64Traits{}, histogram.DefaultMaxSize, histogram.DefaultMaxScale)
		}
		return histogram.NewExponential[int64](number.Int64Traits{}, histogram.DefaultMaxSize, histogram.DefaultMaxScale)
	default: // ExplicitHistogramKind and unset default to explicit buckets
		boundaries := s.Config.Boundaries
		if boundaries == nil {
			boundaries = DefaultExplicitBoundaries
		}
		if s.Identity.NumberKind == number.Float64Kind {
			return histogram.NewExplicit[float64](number.Float64Traits{}, boundaries, s.Config.RecordMinMax)
		}
		return histogram.NewExplicit[int64](number.Int64Traits{}, boundaries, s.Config.RecordMinMax)
	}
}

// DefaultExplicitBoundaries mirrors the conventional OTel default
// histogram bucket boundaries, used whenever a view doesn't specify
// its own.
var DefaultExplicitBoundaries = []float64{
	0, 5, 10, 25, 50, 75, 100, 250, 500, 750, 1000, 2500, 5000, 7500, 10000,
}

func (s *Stream) newReservoir() exemplar.Reservoir {
	if !s.exemplars {
		return nil
	}
	switch s.Config.AggregationKind {
	case aggregation.ExplicitHistogramKind, aggregation.ExponentialHistogramKind:
		size := s.reservoirSize
		if size <= 0 {
			size = 4
		}
		return exemplar.NewWeighted(size, rand.New(rand.NewSource(time.Now().UnixNano())))
	default:
		return exemplar.NewFixed()
	}
}
