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

import "strings"

// Baggage is an immutable, ordered, case-insensitive-keyed set of
// string properties propagated alongside trace context. Every
// mutating method returns a new Baggage; the receiver is never
// modified, so a Baggage captured by a Token before a scope began
// reads the same after code further down the call stack adds members.
type Baggage struct {
	members []baggageMember
}

type baggageMember struct {
	key, value string
}

func normalizeKey(k string) string { return strings.ToLower(k) }

// Member returns the value stored for key and whether it was present.
func (b Baggage) Member(key string) (string, bool) {
	key = normalizeKey(key)
	for _, m := range b.members {
		if m.key == key {
			return m.value, true
		}
	}
	return "", false
}

// SetMember returns a new Baggage with key set to value, preserving
// the position of an existing member with the same key or appending a
// new one at the end.
func (b Baggage) SetMember(key, value string) Baggage {
	key = normalizeKey(key)
	out := make([]baggageMember, len(b.members))
	copy(out, b.members)
	for i := range out {
		if out[i].key == key {
			out[i].value = value
			return Baggage{members: out}
		}
	}
	out = append(out, baggageMember{key: key, value: value})
	return Baggage{members: out}
}

// DeleteMember returns a new Baggage with key removed, or the
// original Baggage's members (copied) if key was not present.
func (b Baggage) DeleteMember(key string) Baggage {
	key = normalizeKey(key)
	out := make([]baggageMember, 0, len(b.members))
	for _, m := range b.members {
		if m.key != key {
			out = append(out, m)
		}
	}
	return Baggage{members: out}
}

// Len reports the number of members.
func (b Baggage) Len() int { return len(b.members) }

// Keys returns every member key, in insertion order.
func (b Baggage) Keys() []string {
	out := make([]string, len(b.members))
	for i, m := range b.members {
		out[i] = m.key
	}
	return out
}
