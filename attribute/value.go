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

// Package attribute implements the canonical, hashable attribute
// model used throughout the SDK: a Key identifies a dimension, a
// Value holds one of a small closed set of primitive or homogeneous
// slice types, and a Set is an immutable, sorted, fingerprinted
// collection of KeyValue pairs.
package attribute

import (
	"fmt"
	"math"
)

// Type identifies the concrete kind of data held by a Value.
type Type int

const (
	INVALID Type = iota
	BOOL
	INT64
	FLOAT64
	STRING
	BOOLSLICE
	INT64SLICE
	FLOAT64SLICE
	STRINGSLICE
)

// Key is an attribute name. Keys are compared by ordinal, case-sensitive
// string equality.
type Key string

// Value is one of the primitive value types accepted by an
// AttributeSet, or a homogeneous slice of one of them.
type Value struct {
	vtype    Type
	numeric  uint64
	stringly string
	slice    interface{}
}

func BoolValue(b bool) Value {
	n := uint64(0)
	if b {
		n = 1
	}
	return Value{vtype: BOOL, numeric: n}
}

func Int64Value(i int64) Value {
	return Value{vtype: INT64, numeric: uint64(i)}
}

func Float64Value(f float64) Value {
	return Value{vtype: FLOAT64, numeric: math.Float64bits(f)}
}

func StringValue(s string) Value {
	return Value{vtype: STRING, stringly: s}
}

func BoolSliceValue(b []bool) Value {
	cp := append([]bool(nil), b...)
	return Value{vtype: BOOLSLICE, slice: cp}
}

func Int64SliceValue(i []int64) Value {
	cp := append([]int64(nil), i...)
	return Value{vtype: INT64SLICE, slice: cp}
}

func Float64SliceValue(f []float64) Value {
	cp := append([]float64(nil), f...)
	return Value{vtype: FLOAT64SLICE, slice: cp}
}

func StringSliceValue(s []string) Value {
	cp := append([]string(nil), s...)
	return Value{vtype: STRINGSLICE, slice: cp}
}

func (v Value) Type() Type { return v.vtype }

func (v Value) AsBool() bool { return v.numeric != 0 }

func (v Value) AsInt64() int64 { return int64(v.numeric) }

func (v Value) AsFloat64() float64 { return math.Float64frombits(v.numeric) }

func (v Value) AsString() string { return v.stringly }

func (v Value) AsBoolSlice() []bool { return v.slice.([]bool) }

func (v Value) AsInt64Slice() []int64 { return v.slice.([]int64) }

func (v Value) AsFloat64Slice() []float64 { return v.slice.([]float64) }

func (v Value) AsStringSlice() []string { return v.slice.([]string) }

// IsEmptyString reports whether v is a string value equal to "". New()
// drops an attribute whose value satisfies this, per the AttributeSet
// invariant that an empty-string value removes the key.
func (v Value) IsEmptyString() bool {
	return v.vtype == STRING && v.stringly == ""
}

func (v Value) Equal(o Value) bool {
	if v.vtype != o.vtype {
		return false
	}
	switch v.vtype {
	case BOOL, INT64, FLOAT64:
		return v.numeric == o.numeric
	case STRING:
		return v.stringly == o.stringly
	case BOOLSLICE:
		return boolSliceEqual(v.slice.([]bool), o.slice.([]bool))
	case INT64SLICE:
		return int64SliceEqual(v.slice.([]int64), o.slice.([]int64))
	case FLOAT64SLICE:
		return float64SliceEqual(v.slice.([]float64), o.slice.([]float64))
	case STRINGSLICE:
		return stringSliceEqual(v.slice.([]string), o.slice.([]string))
	}
	return true
}

func (v Value) String() string {
	switch v.vtype {
	case BOOL:
		return fmt.Sprintf("%v", v.AsBool())
	case INT64:
		return fmt.Sprintf("%d", v.AsInt64())
	case FLOAT64:
		return fmt.Sprintf("%v", v.AsFloat64())
	case STRING:
		return v.stringly
	case BOOLSLICE, INT64SLICE, FLOAT64SLICE, STRINGSLICE:
		return fmt.Sprintf("%v", v.slice)
	default:
		return "<invalid>"
	}
}

func boolSliceEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func int64SliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func float64SliceEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
