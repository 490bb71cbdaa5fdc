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

package propagation

import "context"

// TextMapCarrier abstracts the wire format (HTTP headers, message
// metadata) a TextMapPropagator reads from and writes to.
type TextMapCarrier interface {
	Get(key string) string
	Set(key, value string)
	Keys() []string
}

// TextMapPropagator injects the active span context and baggage into
// a carrier, and extracts them back out on the receiving side. The
// SDK core defines the interface; wire-format implementations (W3C
// traceparent, B3, etc.) live outside this module, since this module
// reimplements the SDK's aggregation and pipeline internals rather
// than its transport-facing propagators.
type TextMapPropagator interface {
	Inject(ctx context.Context, carrier TextMapCarrier)
	Extract(ctx context.Context, carrier TextMapCarrier) context.Context
	Fields() []string
}

// CompositePropagator runs multiple TextMapPropagators in sequence,
// for combining trace-context and baggage propagation the way W3C's
// two standards compose.
type CompositePropagator struct {
	propagators []TextMapPropagator
}

func NewComposite(propagators ...TextMapPropagator) CompositePropagator {
	return CompositePropagator{propagators: propagators}
}

func (c CompositePropagator) Inject(ctx context.Context, carrier TextMapCarrier) {
	for _, p := range c.propagators {
		p.Inject(ctx, carrier)
	}
}

func (c CompositePropagator) Extract(ctx context.Context, carrier TextMapCarrier) context.Context {
	for _, p := range c.propagators {
		ctx = p.Extract(ctx, carrier)
	}
	return ctx
}

func (c CompositePropagator) Fields() []string {
	var fields []string
	for _, p := range c.propagators {
		fields = append(fields, p.Fields()...)
	}
	return fields
}
