// Licensed to WorkCrew under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. WorkCrew licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package threadpool

import (
	"time"

	"github.com/workcrew/workcrew/pkg/logger"
)

// Worker is the context of a worker goroutine, handed to every work function
// it executes. It carries the owning pool, the worker-local data and the
// currently-executing task; at most one task occupies that slot at a time.
type Worker struct {
	pool      *Pool
	localData interface{}
	current   *task
}

// Pool returns the pool the worker belongs to.
func (w *Worker) Pool() *Pool { return w.pool }

// GlobalData returns the pool's global context.
func (w *Worker) GlobalData() interface{} { return w.pool.globalData }

// LocalData returns the worker-local data built by the local-data factory.
func (w *Worker) LocalData() interface{} { return w.localData }

// GlobalResource returns the resource built by the global resource allocator.
func (w *Worker) GlobalResource() interface{} {
	p := w.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resource
}

// GuardBegin opens a section serialized against every other guarded section
// of the pool, so user aggregation code can perform multi-step updates
// atomically. A no-op for sequential pools.
func (w *Worker) GuardBegin() {
	if w.pool.requested > 1 {
		w.pool.guardMu.Lock()
	}
}

// GuardEnd closes a section opened by GuardBegin.
func (w *Worker) GuardEnd() {
	if w.pool.requested > 1 {
		w.pool.guardMu.Unlock()
	}
}

// workerLoop is the life of a worker goroutine: pull tasks in submission
// order, execute them, exit on idle timeout or once the pool is done.
func (p *Pool) workerLoop(w *Worker) {
	poolLogger.Debug("worker started", logger.String("pool", p.name))
	p.mu.Lock()
	if p.localMake != nil {
		w.localData = p.localMake(p.globalData)
	}
	p.stateChangedLocked()

	for {
		w.current = nil
		p.idle++
		deadline := time.Now().Add(p.idleTimeout)
		for !p.somethingToProcessLocked() && !p.isDoneLocked() {
			if p.async > 0 {
				// a virtual task is outstanding: its timer or resumption
				// will wake us, wait without deadline
				p.cond.Wait()
				continue
			}
			d := time.Until(deadline)
			if d <= 0 {
				// idle timeout: this worker will exit
				break
			}
			timer := time.AfterFunc(d, p.wakeAll)
			p.cond.Wait()
			timer.Stop()
		}
		p.idle--
		if p.idle < 0 {
			p.invariant("negative idle counter")
		}
		if p.somethingToProcessLocked() {
			e := p.dequeue()
			p.processElem(w, e)
			continue
		}
		// done, or voluntarily leaving after the idle timeout
		break
	}

	// exit protocol, still under the mutex
	if p.localDestroy != nil {
		p.localDestroy(w.localData)
	}
	w.localData = nil
	p.alive--
	if p.alive < 0 {
		p.invariant("negative alive counter")
	}
	if p.alive == 0 && p.resourceSet {
		if p.resourceDealloc != nil {
			p.resourceDealloc(p.resource)
		}
		p.resource = nil
		p.resourceSet = false
	}
	p.stateChangedLocked()
	if p.runoffLocked() {
		p.cond.Broadcast()
	}
	p.mu.Unlock()
	poolLogger.Debug("worker exited", logger.String("pool", p.name))
}

// processElem executes one dequeued element. Called and returns with the
// pool mutex held; the mutex is released around user code.
func (p *Pool) processElem(w *Worker, e *elem) {
	t := &e.task
	if t.work == nil {
		// canceled while queued, already counted: skip execution, the
		// deletor still runs with a canceled result and may escalate
		p.mu.Unlock()
		final := JobCanceled
		if t.deletor != nil {
			final = p.finalResult(JobCanceled, t.deletor(t.job, JobCanceled))
		}
		p.mu.Lock()
		if final != JobCanceled {
			p.canceled--
			if p.canceled < 0 {
				p.invariant("negative canceled counter")
			}
			p.countLocked(final)
			p.autoCancelLocked(final)
		} else {
			p.metrics.tasksCanceled.Inc(1)
		}
		p.stateChangedLocked()
		return
	}

	p.pending--
	if p.pending < 0 {
		p.invariant("negative pending counter")
	}
	p.processing++
	w.current = t
	p.stateChangedLocked()
	p.mu.Unlock()

	res := t.work(w, t.job)

	p.mu.Lock()
	w.current = nil
	if t.toBeContinued {
		// suspended into a virtual task: classification is deferred until
		// the continuator resumes or times out
		p.processing--
		p.stateChangedLocked()
		return
	}
	p.mu.Unlock()

	final := res
	if t.deletor != nil {
		final = p.finalResult(res, t.deletor(t.job, res))
	}

	p.mu.Lock()
	p.processing--
	if p.processing < 0 {
		p.invariant("negative processing counter")
	}
	p.countLocked(final)
	p.autoCancelLocked(final)
	p.stateChangedLocked()
}
