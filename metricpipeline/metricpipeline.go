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

// Package metricpipeline implements the periodic-collection loop that
// ties every registered InstrumentStream to one Exporter, per §4.4.
// It owns the collection ticker, converts temporality when an
// exporter's preference disagrees with a stream's native one, and
// exposes ForceFlush/Shutdown with the finality Shutdown requires.
package metricpipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/errs"
	"github.com/northfield-oss/telemetry-core/export"
	"github.com/northfield-oss/telemetry-core/instrumentstream"
)

const DefaultCollectionPeriod = 30 * time.Second

// Pipeline periodically collects every registered Stream and exports
// the result. There is one Pipeline per reader (per configured
// exporter); an SDK with multiple readers runs one Pipeline each,
// sharing nothing but the underlying instrument recording fan-out.
type Pipeline struct {
	exporter export.MetricExporter
	period   time.Duration
	pref     aggregation.Preference

	mu       sync.RWMutex
	streams  []*instrumentstream.Stream

	preCollectMu sync.RWMutex
	preCollect   []func(ctx context.Context)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	shutdownMu   sync.Mutex
	shutdownOnce bool
}

func New(exporter export.MetricExporter, period time.Duration, pref aggregation.Preference) *Pipeline {
	if period <= 0 {
		period = DefaultCollectionPeriod
	}
	return &Pipeline{
		exporter: exporter,
		period:   period,
		pref:     pref,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Register adds a Stream to this pipeline's collection set. It must
// be called before Start, or while the collection loop is not
// concurrently iterating streams (the mutex makes either safe).
func (p *Pipeline) Register(s *instrumentstream.Stream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams = append(p.streams, s)
}

// AddPreCollectHook registers a function invoked at the start of
// every collection, before any Store is snapshotted. Asynchronous
// instruments use this to run their observation callback and fold
// the result into the store the same way a synchronous recorder
// would, so an async counter's last-reported value is always fresh
// by the time collectAndExport walks the streams.
func (p *Pipeline) AddPreCollectHook(f func(ctx context.Context)) {
	p.preCollectMu.Lock()
	defer p.preCollectMu.Unlock()
	p.preCollect = append(p.preCollect, f)
}

func (p *Pipeline) runPreCollectHooks(ctx context.Context) {
	p.preCollectMu.RLock()
	hooks := make([]func(context.Context), len(p.preCollect))
	copy(hooks, p.preCollect)
	p.preCollectMu.RUnlock()

	for _, h := range hooks {
		h(ctx)
	}
}

// Start launches the periodic collection loop in a new goroutine and
// returns immediately. Calling Start more than once is a caller bug;
// Start does not guard against it.
func (p *Pipeline) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Pipeline) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			_ = p.collectAndExport(ctx, false)
		}
	}
}

// collectAndExport visits every registered stream concurrently
// (bounded by an errgroup so one exporter failure doesn't abandon the
// others' snapshots) and exports whatever this round produced.
func (p *Pipeline) collectAndExport(ctx context.Context, force bool) error {
	p.runPreCollectHooks(ctx)

	p.mu.RLock()
	streams := make([]*instrumentstream.Stream, len(p.streams))
	copy(streams, p.streams)
	p.mu.RUnlock()

	batches := make([]export.MetricBatch, len(streams))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range streams {
		i, s := i, s
		g.Go(func() error {
			_ = gctx
			outputDelta := p.pref.Resolve(s.Identity.Kind) == aggregation.DeltaTemporality
			points := s.Store.Collect(outputDelta, force)
			if outputDelta && s.Store.ReclaimEnabled() {
				s.Store.Reclaim()
			}
			batches[i] = export.MetricBatch{Stream: s.Identity, Points: points}
			return nil
		})
	}
	// Errors are not possible today (Collect never fails), but the
	// errgroup shape is kept so a future per-stream collection error
	// (e.g. a callback panic during async observation) propagates
	// the same way exporter failures do.
	if err := g.Wait(); err != nil {
		return err
	}

	if len(batches) == 0 {
		return nil
	}
	deadline := time.Now().Add(p.period)
	if !p.exporter.Export(ctx, batches, deadline) {
		return &errs.ExporterFailure{Cause: fmt.Errorf("export returned failure")}
	}
	return nil
}

// ForceFlush collects and exports every stream immediately, including
// points with no pending update, and blocks until the exporter's
// ForceFlush completes or timeout elapses.
func (p *Pipeline) ForceFlush(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := p.collectAndExport(ctx, true); err != nil {
		return err
	}
	if !p.exporter.ForceFlush(time.Now().Add(timeout)) {
		return &errs.ExporterFailure{Cause: fmt.Errorf("exporter force flush failed")}
	}
	return nil
}

// Shutdown stops the collection loop, flushes once more, and shuts
// down the exporter. It is idempotent: calling it again after the
// first call returns ErrShuttingDown immediately rather than
// re-running teardown.
func (p *Pipeline) Shutdown(timeout time.Duration) error {
	p.shutdownMu.Lock()
	if p.shutdownOnce {
		p.shutdownMu.Unlock()
		return errs.ErrShuttingDown
	}
	p.shutdownOnce = true
	p.shutdownMu.Unlock()

	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done

	if err := p.ForceFlush(timeout); err != nil {
		return err
	}
	if !p.exporter.Shutdown(time.Now().Add(timeout)) {
		return &errs.ExporterFailure{Cause: fmt.Errorf("exporter shutdown failed")}
	}
	return nil
}
