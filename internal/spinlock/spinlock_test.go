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

package spinlock_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northfield-oss/telemetry-core/internal/spinlock"
)

func TestLockExcludesConcurrentCriticalSections(t *testing.T) {
	var l spinlock.Lock
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Acquire()
			counter++
			l.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, counter)
}

func TestLockCanBeReacquiredAfterRelease(t *testing.T) {
	var l spinlock.Lock
	l.Acquire()
	l.Release()
	l.Acquire()
	l.Release()
}
