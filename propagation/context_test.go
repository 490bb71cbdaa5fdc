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

package propagation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northfield-oss/telemetry-core/propagation"
)

func TestAttachDetachRestoresPriorContext(t *testing.T) {
	root := context.Background()
	outer := propagation.SpanContext{TraceID: [16]byte{1}, SpanID: [8]byte{1}}
	ctxOuter, tokenOuter := propagation.Attach(root, outer)

	inner := propagation.SpanContext{TraceID: [16]byte{2}, SpanID: [8]byte{2}}
	ctxInner, tokenInner := propagation.Attach(ctxOuter, inner)

	assert.Equal(t, inner, propagation.SpanContextFromContext(ctxInner))

	restored := propagation.Detach(tokenInner)
	assert.Equal(t, outer, propagation.SpanContextFromContext(restored))

	restoredRoot := propagation.Detach(tokenOuter)
	assert.False(t, propagation.SpanContextFromContext(restoredRoot).IsValid())
}

func TestSpanContextFromContextDefaultsToZeroValue(t *testing.T) {
	sc := propagation.SpanContextFromContext(context.Background())
	assert.False(t, sc.IsValid())
}

func TestBaggageFromContextDefaultsToEmpty(t *testing.T) {
	b := propagation.BaggageFromContext(context.Background())
	assert.Equal(t, 0, b.Len())
}

func TestContextWithBaggageRoundTrips(t *testing.T) {
	b := propagation.Baggage{}.SetMember("k", "v")
	ctx := propagation.ContextWithBaggage(context.Background(), b)

	got := propagation.BaggageFromContext(ctx)
	v, ok := got.Member("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestSpanContextIsValidRequiresBothIDs(t *testing.T) {
	assert.False(t, propagation.SpanContext{}.IsValid())
	assert.False(t, propagation.SpanContext{TraceID: [16]byte{1}}.IsValid())
	assert.True(t, propagation.SpanContext{TraceID: [16]byte{1}, SpanID: [8]byte{1}}.IsValid())
}
