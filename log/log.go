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

// Package log implements the log record recording path (§6, an
// ADDED signal alongside metrics and traces): LogRecord capture plus
// a Logger.Emit that hands finished records to a LogProcessor, mirroring
// the trace package's Span/SpanProcessor shape since both ultimately
// drain into the same batchprocessor.Processor machinery.
package log

import (
	"context"
	"time"

	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/export"
	"github.com/northfield-oss/telemetry-core/propagation"
)

// Severity follows the OpenTelemetry log data model's 1-24 numeric
// range, grouped in four-step bands per level.
type Severity int32

const (
	SeverityUnspecified Severity = 0
	SeverityTrace       Severity = 1
	SeverityDebug       Severity = 5
	SeverityInfo        Severity = 9
	SeverityWarn        Severity = 13
	SeverityError       Severity = 17
	SeverityFatal       Severity = 21
)

// Record is one emitted log entry, built up via Logger.Emit.
type Record struct {
	Timestamp  time.Time
	Severity   Severity
	Body       string
	Attributes []attribute.KeyValue
}

// LogProcessor is the boundary a Logger hands finished records to.
type LogProcessor interface {
	OnEmit(data export.LogRecordData)
	ForceFlush(timeout time.Duration) bool
	Shutdown(timeout time.Duration) bool
}

// Logger emits records for one instrumentation scope.
type Logger struct {
	name, version string
	processor     LogProcessor
}

func NewLogger(name, version string, processor LogProcessor) *Logger {
	return &Logger{name: name, version: version, processor: processor}
}

// Emit stamps r with the trace context active in ctx, if any, and
// hands it to the processor. A zero Timestamp is filled in with the
// current time.
func (l *Logger) Emit(ctx context.Context, r Record) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	attrs, err := attribute.New(r.Attributes...)
	if err != nil {
		attrs = attribute.Empty
	}

	sc := propagation.SpanContextFromContext(ctx)
	data := export.LogRecordData{
		Time:       r.Timestamp,
		Severity:   int32(r.Severity),
		Body:       r.Body,
		Attributes: attrs,
		TraceID:    sc.TraceID,
		SpanID:     sc.SpanID,
	}
	l.processor.OnEmit(data)
}
