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

package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northfield-oss/telemetry-core/errs"
)

func TestDuplicateInstrumentErrorIncludesNameAndDetails(t *testing.T) {
	err := &errs.DuplicateInstrument{Name: "requests", Details: "kind mismatch"}

	assert.Contains(t, err.Error(), "requests")
	assert.Contains(t, err.Error(), "kind mismatch")
	assert.Equal(t, errs.KindDuplicateInstrument, err.Kind())
}

func TestExporterFailureUnwrapsToCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &errs.ExporterFailure{Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, errs.KindExporterFailure, err.Kind())
}

func TestErrInvalidAttributeIsStableSentinel(t *testing.T) {
	assert.True(t, errors.Is(errs.ErrInvalidAttribute, errs.ErrInvalidAttribute))
}

func TestErrShuttingDownIsStableSentinel(t *testing.T) {
	wrapped := errors.New("wrapped: " + errs.ErrShuttingDown.Error())
	assert.False(t, errors.Is(wrapped, errs.ErrShuttingDown))
	assert.True(t, errors.Is(errs.ErrShuttingDown, errs.ErrShuttingDown))
}
