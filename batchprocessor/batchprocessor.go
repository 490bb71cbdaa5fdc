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

// Package batchprocessor implements BatchExportProcessor[T], the
// bounded-queue, background-worker batcher shared by the trace and
// log pipelines (§4.5): OnEnd enqueues without blocking the caller's
// goroutine, a single worker drains the queue in FIFO order into
// batches capped at maxExportBatchSize, and ForceFlush/Shutdown use a
// sentinel value pushed through the same queue to linearize against
// whatever is already buffered ahead of them.
package batchprocessor

import (
	"context"
	"sync"
	"time"

	"github.com/northfield-oss/telemetry-core/export"
	"github.com/northfield-oss/telemetry-core/internal/ratelimit"
)

const (
	DefaultMaxQueueSize       = 2048
	DefaultMaxExportBatchSize = 512
	DefaultScheduledDelay     = 5 * time.Second
	DefaultExportTimeout      = 30 * time.Second
)

// ExportFilter inspects an item before it's queued and may drop it.
// A panicking filter is treated as "keep the item" (fail open), since
// a filtering bug should never silently erase telemetry.
type ExportFilter[T any] func(item T) bool

type sentinel struct {
	done chan struct{}
}

type queueItem[T any] struct {
	item     T
	flush    *sentinel
	isFlush  bool
}

// Processor is the generic bounded-queue batch exporter.
type Processor[T any] struct {
	exporter export.Exporter[T]
	filter   ExportFilter[T]

	maxQueueSize       int
	maxExportBatchSize int
	scheduledDelay     time.Duration
	exportTimeout      time.Duration

	queue chan queueItem[T]

	droppedOnce *ratelimit.KeyedOnce
	dropped     uint64
	droppedMu   sync.Mutex

	shutdownMu   sync.Mutex
	shutdownDone bool
	workerDone   chan struct{}
}

type Config[T any] struct {
	MaxQueueSize       int
	MaxExportBatchSize int
	ScheduledDelay     time.Duration
	ExportTimeout      time.Duration
	Filter             ExportFilter[T]
}

func New[T any](exporter export.Exporter[T], cfg Config[T]) *Processor[T] {
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = DefaultMaxQueueSize
	}
	if cfg.MaxExportBatchSize <= 0 {
		cfg.MaxExportBatchSize = DefaultMaxExportBatchSize
	}
	if cfg.ScheduledDelay <= 0 {
		cfg.ScheduledDelay = DefaultScheduledDelay
	}
	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = DefaultExportTimeout
	}

	p := &Processor[T]{
		exporter:           exporter,
		filter:             cfg.Filter,
		maxQueueSize:       cfg.MaxQueueSize,
		maxExportBatchSize: cfg.MaxExportBatchSize,
		scheduledDelay:     cfg.ScheduledDelay,
		exportTimeout:      cfg.ExportTimeout,
		queue:              make(chan queueItem[T], cfg.MaxQueueSize),
		droppedOnce:        ratelimit.NewKeyedOnce(),
		workerDone:         make(chan struct{}),
	}
	go p.run()
	return p
}

// OnEnd enqueues item for export. It never blocks: a full queue drops
// the item and counts it, per §4.5's drop-on-full policy, rather than
// apply backpressure to the recording path.
func (p *Processor[T]) OnEnd(item T) {
	if p.filter != nil && !p.safeFilter(item) {
		return
	}

	// shutdownMu is held across the send itself, not just the
	// shutdownDone check, so a concurrent Shutdown can't close p.queue
	// between the check and the send: the select below never blocks
	// (it always has a default case), so holding the lock here costs
	// nothing but closes the race.
	p.shutdownMu.Lock()
	defer p.shutdownMu.Unlock()
	if p.shutdownDone {
		return
	}

	select {
	case p.queue <- queueItem[T]{item: item}:
	default:
		p.countDropped()
	}
}

func (p *Processor[T]) safeFilter(item T) (keep bool) {
	keep = true
	defer func() {
		if recover() != nil {
			keep = true
		}
	}()
	return p.filter(item)
}

func (p *Processor[T]) countDropped() {
	p.droppedMu.Lock()
	p.dropped++
	p.droppedMu.Unlock()
	p.droppedOnce.Do("queue-full", func() {})
}

// Dropped reports the number of items dropped for a full queue since
// the processor started.
func (p *Processor[T]) Dropped() uint64 {
	p.droppedMu.Lock()
	defer p.droppedMu.Unlock()
	return p.dropped
}

func (p *Processor[T]) run() {
	defer close(p.workerDone)

	ticker := time.NewTicker(p.scheduledDelay)
	defer ticker.Stop()

	batch := make([]T, 0, p.maxExportBatchSize)
	for {
		select {
		case qi, ok := <-p.queue:
			if !ok {
				p.exportBatch(batch)
				return
			}
			if qi.isFlush {
				p.exportBatch(batch)
				batch = batch[:0]
				close(qi.flush.done)
				continue
			}
			batch = append(batch, qi.item)
			if len(batch) >= p.maxExportBatchSize || len(batch)*2 >= p.maxQueueSize {
				// Eager export once the buffered batch is at
				// least half the queue's capacity, so a burst
				// doesn't wait out the full scheduled delay
				// before draining.
				p.exportBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.exportBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

// exportBatch is only ever called from the single run() worker
// goroutine, so calls are already serialized; no locking is needed
// here.
func (p *Processor[T]) exportBatch(batch []T) {
	if len(batch) == 0 {
		return
	}

	items := make([]T, len(batch))
	copy(items, batch)

	ctx, cancel := context.WithTimeout(context.Background(), p.exportTimeout)
	defer cancel()
	p.exporter.Export(ctx, export.Batch[T]{Items: items}, time.Now().Add(p.exportTimeout))
}

// ForceFlush drains everything queued ahead of it and blocks until
// that drain completes or timeout elapses. A sentinel item is pushed
// through the same queue the exported items travel, so ForceFlush
// observes exactly the items enqueued before it was called, no more
// and no less.
func (p *Processor[T]) ForceFlush(timeout time.Duration) bool {
	done := make(chan struct{})
	select {
	case p.queue <- queueItem[T]{isFlush: true, flush: &sentinel{done: done}}:
	case <-time.After(timeout):
		return false
	}

	select {
	case <-done:
		return p.exporter.ForceFlush(time.Now().Add(timeout))
	case <-time.After(timeout):
		return false
	}
}

// Shutdown flushes remaining items, stops the worker, and shuts down
// the exporter. It is idempotent; calling it again after the first
// call is a no-op that returns true immediately.
func (p *Processor[T]) Shutdown(timeout time.Duration) bool {
	p.shutdownMu.Lock()
	if p.shutdownDone {
		p.shutdownMu.Unlock()
		return true
	}
	p.shutdownDone = true
	p.shutdownMu.Unlock()

	ok := p.ForceFlush(timeout)

	p.shutdownMu.Lock()
	close(p.queue)
	p.shutdownMu.Unlock()
	<-p.workerDone
	return p.exporter.Shutdown(time.Now().Add(timeout)) && ok
}
