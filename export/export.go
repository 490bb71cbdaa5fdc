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

// Package export defines the boundary every telemetry signal's
// exporter implements: a finite, non-restartable Batch[T] handed to
// Export before a deadline, plus ForceFlush/Shutdown with the
// bool-success contract §6 specifies (no error value, since a failed
// export is reported through logging/metrics, not propagated to the
// recording path).
package export

import (
	"context"
	"time"

	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/instrumentstream"
	"github.com/northfield-oss/telemetry-core/store"
)

// Batch is a finite, non-restartable sequence of items of one signal
// type, produced once by a processor and handed to exactly one
// Export call.
type Batch[T any] struct {
	Items []T
}

func (b Batch[T]) Len() int { return len(b.Items) }

// Exporter is the generic boundary a batch processor drains into.
// Implementations must return promptly once deadline has passed,
// rather than run indefinitely.
type Exporter[T any] interface {
	Export(ctx context.Context, batch Batch[T], deadline time.Time) bool
	ForceFlush(deadline time.Time) bool
	Shutdown(deadline time.Time) bool
}

// MetricBatch is one InstrumentStream's collected points for a single
// pipeline tick.
type MetricBatch struct {
	Stream instrumentstream.Identity
	Points []store.CollectedPoint
}

// MetricExporter is the metrics-specific exporter boundary: metrics
// are pulled by a periodic collection loop rather than pushed item by
// item, so it receives every stream's batch for one tick at once
// instead of draining a queue.
type MetricExporter interface {
	Export(ctx context.Context, batches []MetricBatch, deadline time.Time) bool
	ForceFlush(deadline time.Time) bool
	Shutdown(deadline time.Time) bool
}

// SpanData is the exported shape of one finished span, decoupled from
// the trace package's live Span type so an exporter never holds a
// reference capable of mutating a span after End().
type SpanData struct {
	Name       string
	TraceID    [16]byte
	SpanID     [8]byte
	ParentSpanID [8]byte
	StartTime  time.Time
	EndTime    time.Time
	Attributes attribute.Set
	StatusCode int32
	StatusMsg  string
	Events     []EventData
	Dropped    int
}

type EventData struct {
	Name       string
	Time       time.Time
	Attributes attribute.Set
}

// LogRecordData is the exported shape of one log record.
type LogRecordData struct {
	Time       time.Time
	Severity   int32
	Body       string
	Attributes attribute.Set
	TraceID    [16]byte
	SpanID     [8]byte
}
