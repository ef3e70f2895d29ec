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
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/workcrew/workcrew/pkg/logger"
)

var poolLogger = logger.GetLogger("threadpool", "Pool")

// Pool distributes submitted tasks over a bounded crew of workers.
//
// Workers are spawned lazily up to the requested count and exit after the
// idle timeout once the queue is empty. The pool is drained and released by
// WaitAndDestroy; the handle must not be used afterwards.
type Pool struct {
	name string

	mu sync.Mutex
	// guards the three exclusive predicates: something to process,
	// done, and runoff.
	cond *sync.Cond

	property    Property
	requested   int64
	maxObserved int64
	idleTimeout time.Duration

	globalData interface{}

	localMake    func(globalData interface{}) interface{}
	localDestroy func(localData interface{})

	resourceAlloc   func(globalData interface{}) interface{}
	resourceDealloc func(resource interface{})
	resource        interface{}
	resourceSet     bool

	// task counters, all mutated under mu
	created    int64 // workers created since pool creation
	submitted  int64
	pending    int64
	processing int64
	async      int64 // virtual tasks awaiting resumption or timeout
	succeeded  int64
	failed     int64
	canceled   int64
	alive      int64
	idle       int64

	nextID  TaskID
	in, out *elem // FIFO tail/head

	concluding bool
	destroyed  atomic.Bool

	// serializes user aggregation sections opened by Worker.GuardBegin
	guardMu sync.Mutex

	deletorOverride bool

	monitor *monitorDescriptor
	t0      time.Time

	scope   tally.Scope
	metrics poolMetrics
}

// Option configures a pool at creation.
type Option func(p *Pool)

// WithName sets the pool name used in logs and metrics.
func WithName(name string) Option {
	return func(p *Pool) { p.name = name }
}

// WithScope sets the metric scope the pool reports to.
func WithScope(scope tally.Scope) Option {
	return func(p *Pool) { p.scope = scope }
}

// WithIdleTimeout sets the initial idle timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d >= 0 {
			p.idleTimeout = clampIdleTimeout(d)
		}
	}
}

// WithDeletorOverride controls whether a deletor's return value may override
// the final task classification. Enabled by default.
func WithDeletorOverride(enabled bool) Option {
	return func(p *Pool) { p.deletorOverride = enabled }
}

type poolMetrics struct {
	workersAlive      tally.Gauge
	workersIdle       tally.Gauge
	workersCreated    tally.Counter
	tasksSubmitted    tally.Counter
	tasksPending      tally.Gauge
	tasksProcessing   tally.Gauge
	tasksAsynchronous tally.Gauge
	tasksSucceeded    tally.Counter
	tasksFailed       tally.Counter
	tasksCanceled     tally.Counter
}

func newPoolMetrics(scope tally.Scope) poolMetrics {
	return poolMetrics{
		workersAlive:      scope.Gauge("workers_alive"),
		workersIdle:       scope.Gauge("workers_idle"),
		workersCreated:    scope.Counter("workers_created"),
		tasksSubmitted:    scope.Counter("tasks_submitted"),
		tasksPending:      scope.Gauge("tasks_pending"),
		tasksProcessing:   scope.Gauge("tasks_processing"),
		tasksAsynchronous: scope.Gauge("tasks_asynchronous"),
		tasksSucceeded:    scope.Counter("tasks_succeeded"),
		tasksFailed:       scope.Counter("tasks_failed"),
		tasksCanceled:     scope.Counter("tasks_canceled"),
	}
}

// New creates a pool of nbWorkers workers and starts accepting tasks.
// WorkerNbCPU picks one worker per available CPU, WorkerSequential a single
// worker processing tasks in submission order.
func New(nbWorkers int, globalData interface{}, property Property, opts ...Option) *Pool {
	if nbWorkers <= WorkerNbCPU {
		nbWorkers = availableCPUs()
	}
	p := &Pool{
		name:            "threadpool",
		property:        property,
		requested:       int64(nbWorkers),
		idleTimeout:     defaultIdleTimeout,
		globalData:      globalData,
		nextID:          1,
		destroyed:       *atomic.NewBool(false),
		deletorOverride: true,
		t0:              time.Now(),
		scope:           tally.NoopScope,
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	p.metrics = newPoolMetrics(p.scope)
	return p
}

// availableCPUs returns the number of logical CPUs.
func availableCPUs() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func clampIdleTimeout(d time.Duration) time.Duration {
	if d > maxIdleTimeout {
		return maxIdleTimeout
	}
	return d
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// GlobalData returns the global context the pool was created with.
func (p *Pool) GlobalData() interface{} { return p.globalData }

// AddTask submits a unit of work to the pool and returns its id (>= 1).
// A nil work function submits an already-canceled task: it is never executed
// but its deletor still runs with a canceled result.
// AddTask is safe for concurrent use and may be called from within a task.
func (p *Pool) AddTask(work Work, job interface{}, deletor Deletor) TaskID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addTaskLocked(work, job, deletor, false)
}

// addTaskLocked appends a task to the FIFO. Caller holds the pool mutex.
func (p *Pool) addTaskLocked(work Work, job interface{}, deletor Deletor, continuation bool) TaskID {
	if p.destroyed.Load() {
		p.invariant("task submitted to a destroyed pool")
	}
	// property-driven coercion: once the pool's terminal condition has been
	// reached, incoming tasks are submitted as already-canceled
	if work != nil &&
		((p.property == RunUntilFirstSuccess && p.succeeded > 0) ||
			(p.property == RunUntilFirstFailure && p.failed > 0)) {
		work = nil
	}
	e := &elem{task: task{
		id:             p.nextTaskID(),
		work:           work,
		job:            job,
		deletor:        deletor,
		isContinuation: continuation,
	}}
	p.enqueue(e)
	if !continuation {
		p.submitted++
		p.metrics.tasksSubmitted.Inc(1)
	}
	if work != nil {
		p.pending++
	} else {
		p.canceled++
	}
	if p.idle > 0 {
		p.cond.Signal()
	} else if p.alive < p.requested {
		p.spawnWorkerLocked()
	}
	p.stateChangedLocked()
	return e.task.id
}

// spawnWorkerLocked starts a new worker goroutine; the worker counts as
// alive immediately. Caller holds the pool mutex.
func (p *Pool) spawnWorkerLocked() {
	p.alive++
	p.created++
	if p.alive > p.maxObserved {
		p.maxObserved = p.alive
	}
	p.metrics.workersCreated.Inc(1)
	// the global resource lives exactly as long as the crew
	if p.alive == 1 && p.resourceAlloc != nil && !p.resourceSet {
		p.resource = p.resourceAlloc(p.globalData)
		p.resourceSet = true
	}
	w := &Worker{pool: p}
	go p.workerLoop(w)
}

// CancelTask cancels pending tasks and returns how many were canceled.
// The id is either one returned by AddTask or one of the reserved sentinels
// CancelAllPending, CancelNextPending and CancelLastPending.
// Tasks already processing are not interrupted; already-completed or
// already-canceled ids are no-ops.
func (p *Pool) CancelTask(id TaskID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.cancelLocked(id)
	if n > 0 {
		p.stateChangedLocked()
	}
	return n
}

// cancelLocked zeroes the work function of matching queued tasks.
// Caller holds the pool mutex.
func (p *Pool) cancelLocked(id TaskID) int {
	n := int64(0)
	switch id {
	case CancelAllPending:
		for e := p.out; e != nil; e = e.next {
			if e.task.work != nil {
				e.task.work = nil
				n++
			}
		}
	case CancelNextPending:
		for e := p.out; e != nil; e = e.next {
			if e.task.work != nil {
				e.task.work = nil
				n++
				break
			}
		}
	case CancelLastPending:
		var last *elem
		for e := p.out; e != nil; e = e.next {
			if e.task.work != nil {
				last = e
			}
		}
		if last != nil {
			last.task.work = nil
			n++
		}
	default:
		for e := p.out; e != nil; e = e.next {
			if e.task.id == id {
				if e.task.work != nil {
					e.task.work = nil
					n++
				}
				break
			}
		}
	}
	p.pending -= n
	p.canceled += n
	if p.pending < 0 {
		p.invariant("negative pending counter")
	}
	return int(n)
}

// SetWorkerLocalDataManager installs the per-worker local-data factory and
// destructor. Rejected once any worker is alive.
func (p *Pool) SetWorkerLocalDataManager(
	create func(globalData interface{}) interface{},
	destroy func(localData interface{}),
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.alive > 0 {
		return ErrWorkersAlive
	}
	p.localMake = create
	p.localDestroy = destroy
	return nil
}

// SetGlobalResourceManager installs the lazy global resource allocator and
// deallocator. The resource is allocated with the first live worker and
// released after the last one exits. Rejected once any worker is alive or
// the resource slot is already populated.
func (p *Pool) SetGlobalResourceManager(
	alloc func(globalData interface{}) interface{},
	dealloc func(resource interface{}),
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.alive > 0 {
		return ErrWorkersAlive
	}
	if p.resourceSet {
		return ErrResourceExists
	}
	p.resourceAlloc = alloc
	p.resourceDealloc = dealloc
	return nil
}

// SetIdleTimeout changes the delay after which an idle worker exits.
// Negative delays are rejected; delays above the infinity clamp are coerced.
func (p *Pool) SetIdleTimeout(d time.Duration) error {
	if d < 0 {
		return ErrInvalidArgument
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idleTimeout = clampIdleTimeout(d)
	return nil
}

// somethingToProcessLocked reports a non-empty FIFO. Caller holds the mutex.
func (p *Pool) somethingToProcessLocked() bool { return p.out != nil }

// isDoneLocked reports that no task is in flight, queued or suspended and the
// pool is concluding. Once done, the FIFO cannot be refilled: there is no
// task left that could submit. Caller holds the mutex.
func (p *Pool) isDoneLocked() bool {
	return p.processing == 0 && p.out == nil && p.concluding && p.async == 0
}

// runoffLocked reports done with no worker left alive. Caller holds the mutex.
func (p *Pool) runoffLocked() bool {
	return p.isDoneLocked() && p.alive == 0
}

// WaitAndDestroy waits for every submitted task to be accounted for, for all
// workers to exit and for the monitor sub-pool to drain, then invalidates the
// pool. The handle must not be used after this call.
func (p *Pool) WaitAndDestroy() {
	p.mu.Lock()
	if p.destroyed.Load() {
		p.mu.Unlock()
		p.invariant("wait-and-destroy on a destroyed pool")
	}
	p.concluding = true
	if p.isDoneLocked() {
		// wake idle waiters so they may observe done and exit
		p.cond.Broadcast()
	}
	for !p.runoffLocked() {
		p.cond.Wait()
	}
	p.stateChangedLocked()
	mon := p.monitor
	p.destroyed.Store(true)
	p.mu.Unlock()

	monitorForget(p)
	if mon != nil {
		mon.destroy()
	}
}

// countLocked records a terminal classification. Caller holds the mutex.
func (p *Pool) countLocked(r Result) {
	switch r {
	case JobSuccess:
		p.succeeded++
		p.metrics.tasksSucceeded.Inc(1)
	case JobFailure:
		p.failed++
		p.metrics.tasksFailed.Inc(1)
	default:
		p.canceled++
		p.metrics.tasksCanceled.Inc(1)
	}
}

// autoCancelLocked applies the property-driven cancellation once a task
// reaches the pool's terminal condition. Caller holds the mutex.
func (p *Pool) autoCancelLocked(r Result) {
	if (p.property == RunUntilFirstFailure && r == JobFailure) ||
		(p.property == RunUntilFirstSuccess && r == JobSuccess) {
		p.cancelLocked(CancelAllPending)
	}
}

// finalResult resolves the task classification after the deletor ran.
func (p *Pool) finalResult(workResult, deletorResult Result) Result {
	if !p.deletorOverride {
		return workResult
	}
	switch deletorResult {
	case JobFailure:
		return JobFailure
	case JobCanceled:
		return JobCanceled
	default:
		return workResult
	}
}

// stateChangedLocked refreshes the metric gauges and hands a snapshot to the
// monitor. Caller holds the pool mutex.
func (p *Pool) stateChangedLocked() {
	p.metrics.workersAlive.Update(float64(p.alive))
	p.metrics.workersIdle.Update(float64(p.idle))
	p.metrics.tasksPending.Update(float64(p.pending))
	p.metrics.tasksProcessing.Update(float64(p.processing))
	p.metrics.tasksAsynchronous.Update(float64(p.async))
	p.notifyMonitorLocked()
}

// wakeAll broadcasts the pool condition, used by idle-deadline timers.
func (p *Pool) wakeAll() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// invariant reports a fatal internal inconsistency. Silent corruption is
// worse than failure for an in-process scheduler.
func (p *Pool) invariant(what string) {
	poolLogger.Error("invariant violation",
		logger.String("pool", p.name),
		logger.String("detail", what))
	panic("threadpool: " + what)
}
