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

// Package ratelimit provides per-key rate limiting for diagnostic
// logging, so that a hot invalid-input path logs at most once per
// key instead of once per call.
package ratelimit

import (
	"sync"
	"time"
)

// KeyedOnce dedupes invocations by an arbitrary comparable key,
// invoking f only the first time a given key is seen. This is used
// for the "one-time log entry per [error] kind" requirement, where
// the key is the error kind rather than a call site.
type KeyedOnce struct {
	mu   sync.Mutex
	seen map[interface{}]struct{}
}

func NewKeyedOnce() *KeyedOnce {
	return &KeyedOnce{seen: make(map[interface{}]struct{})}
}

// Do invokes f the first time it is called with a given key, and is a
// no-op on every subsequent call with that same key.
func (k *KeyedOnce) Do(key interface{}, f func()) {
	k.mu.Lock()
	_, already := k.seen[key]
	if !already {
		k.seen[key] = struct{}{}
	}
	k.mu.Unlock()

	if !already {
		f()
	}
}

// KeyedPeriod rate-limits by key and wall-clock period: f runs again
// for the same key once dur has elapsed since its last invocation.
type KeyedPeriod struct {
	mu   sync.Mutex
	last map[interface{}]time.Time
}

func NewKeyedPeriod() *KeyedPeriod {
	return &KeyedPeriod{last: make(map[interface{}]time.Time)}
}

func (k *KeyedPeriod) Do(key interface{}, dur time.Duration, f func()) {
	now := time.Now()

	k.mu.Lock()
	prev, ok := k.last[key]
	invoke := !ok || now.Sub(prev) > dur
	if invoke {
		k.last[key] = now
	}
	k.mu.Unlock()

	if invoke {
		f()
	}
}
