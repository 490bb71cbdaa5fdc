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

package gauge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/aggregator/gauge"
	"github.com/northfield-oss/telemetry-core/number"
)

func TestKernelSnapshotReportsLastWrittenValue(t *testing.T) {
	k := gauge.New[int64](number.Int64Traits{})
	k.Update(number.FromInt64(1))
	k.Update(number.FromInt64(2))
	k.Update(number.FromInt64(3))

	snap := k.Snapshot(false).(aggregation.Gauge)
	assert.Equal(t, int64(3), snap.Value().AsInt64())
	assert.Equal(t, aggregation.GaugeKind, snap.Kind())
}

func TestKernelResetClearsValueButNotReportedSnapshot(t *testing.T) {
	k := gauge.New[float64](number.Float64Traits{})
	k.Update(number.FromFloat64(5))

	first := k.Snapshot(true).(aggregation.Gauge)
	assert.Equal(t, float64(5), first.Value().AsFloat64())

	second := k.Snapshot(false).(aggregation.Gauge)
	assert.Equal(t, float64(0), second.Value().AsFloat64())
}
