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

package attribute

// KeyValue is a single attribute: a Key paired with a Value.
type KeyValue struct {
	Key   Key
	Value Value
}

func Bool(k string, v bool) KeyValue         { return KeyValue{Key(k), BoolValue(v)} }
func Int64(k string, v int64) KeyValue        { return KeyValue{Key(k), Int64Value(v)} }
func Int(k string, v int) KeyValue            { return KeyValue{Key(k), Int64Value(int64(v))} }
func Float64(k string, v float64) KeyValue    { return KeyValue{Key(k), Float64Value(v)} }
func String(k string, v string) KeyValue      { return KeyValue{Key(k), StringValue(v)} }
func BoolSlice(k string, v []bool) KeyValue   { return KeyValue{Key(k), BoolSliceValue(v)} }
func Int64Slice(k string, v []int64) KeyValue { return KeyValue{Key(k), Int64SliceValue(v)} }
func Float64Slice(k string, v []float64) KeyValue {
	return KeyValue{Key(k), Float64SliceValue(v)}
}
func StringSlice(k string, v []string) KeyValue { return KeyValue{Key(k), StringSliceValue(v)} }
