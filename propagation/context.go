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

// Package propagation implements the ambient-context slot every
// recording call reads from: the active Span (for trace context) and
// Baggage, attached and detached via context.Context and restored on
// every exit path regardless of how a scope ends, per §4.6.
package propagation

import "context"

type spanContextKey struct{}
type baggageKey struct{}

// SpanContext is the minimal identity a Span exposes to context
// propagation: enough to stamp exported telemetry with trace/span IDs
// without the propagation package depending on the trace package.
type SpanContext struct {
	TraceID    [16]byte
	SpanID     [8]byte
	TraceFlags byte
	Remote     bool
}

func (sc SpanContext) IsValid() bool {
	return sc.TraceID != [16]byte{} && sc.SpanID != [8]byte{}
}

// ContextWithSpanContext returns a copy of ctx carrying sc as the
// active span context.
func ContextWithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	return context.WithValue(ctx, spanContextKey{}, sc)
}

// SpanContextFromContext returns the active SpanContext, or the zero
// value if none is set.
func SpanContextFromContext(ctx context.Context) SpanContext {
	sc, _ := ctx.Value(spanContextKey{}).(SpanContext)
	return sc
}

// ContextWithBaggage returns a copy of ctx carrying b as the active
// Baggage, replacing whatever Baggage (if any) was there before.
func ContextWithBaggage(ctx context.Context, b Baggage) context.Context {
	return context.WithValue(ctx, baggageKey{}, b)
}

// BaggageFromContext returns the active Baggage, or an empty Baggage
// if none is set.
func BaggageFromContext(ctx context.Context) Baggage {
	b, ok := ctx.Value(baggageKey{}).(Baggage)
	if !ok {
		return Baggage{}
	}
	return b
}

// Token captures the context active before a scoped Attach, so the
// caller can restore it on every exit path (normal return, panic,
// early return) with a single defer, per §4.6. Go's context.Context
// is already an immutable value rather than ambient mutable state, so
// unlike the ambient-context APIs this pattern is modeled on,
// restoring "the prior context" needs no global registry: the token
// just carries that value along.
type Token struct {
	prior context.Context
}

// Attach returns a new context with sc set as the active span
// context, plus a Token that Detach uses to hand back to the caller
// the context that was active before this call.
func Attach(ctx context.Context, sc SpanContext) (context.Context, Token) {
	return ContextWithSpanContext(ctx, sc), Token{prior: ctx}
}

// Detach returns the context that was active before the Attach call
// that produced t. Callers end a scope with:
//
//	scoped, token := propagation.Attach(ctx, sc)
//	defer func() { ctx = propagation.Detach(token) }()
func Detach(t Token) context.Context {
	return t.prior
}
