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
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"

	"github.com/workcrew/workcrew/pkg/timeutil"
)

// MonitorWorkers mirrors the worker counters of a snapshot.
type MonitorWorkers struct {
	Requested   uint64 `json:"requested"`
	MaxObserved uint64 `json:"max"`
	Alive       uint64 `json:"alive"`
	Idle        uint64 `json:"idle"`
}

// MonitorTasks mirrors the task counters of a snapshot.
type MonitorTasks struct {
	Submitted    uint64 `json:"submitted"`
	Pending      uint64 `json:"pending"`
	Asynchronous uint64 `json:"asynchronous"`
	Processing   uint64 `json:"processing"`
	Succeeded    uint64 `json:"succeeded"`
	Failed       uint64 `json:"failed"`
	Canceled     uint64 `json:"canceled"`
}

// Monitor is a timestamped copy of the pool's public counters, delivered
// out-of-band through an internal single-worker pool.
type Monitor struct {
	Pool       *Pool          `json:"-"`
	Name       string         `json:"pool"`
	Time       float64        `json:"time"` // elapsed seconds since pool creation
	Concluding bool           `json:"concluding"`
	Workers    MonitorWorkers `json:"workers"`
	Tasks      MonitorTasks   `json:"tasks"`
}

// MonitorHandler consumes snapshots; it runs asynchronously on the monitor
// pool's worker, never on the observed pool's workers.
type MonitorHandler func(m Monitor, arg interface{})

// MonitorFilter gates snapshot delivery.
type MonitorFilter func(m Monitor) bool

// monitorDescriptor holds the monitor configuration and its lazily-created
// single-worker delivery pool.
type monitorDescriptor struct {
	handler MonitorHandler
	arg     interface{}
	filter  MonitorFilter
	pool    *Pool
}

// SetMonitor installs the monitor handler, its argument and an optional
// delivery filter. A nil handler uninstalls the monitor.
func (p *Pool) SetMonitor(handler MonitorHandler, arg interface{}, filter MonitorFilter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if handler == nil {
		p.monitor = nil
		return
	}
	p.monitor = &monitorDescriptor{handler: handler, arg: arg, filter: filter}
}

// MonitorNow hands the current snapshot to the monitor handler, bypassing
// the filter. Intended for occasional use.
func (p *Pool) MonitorNow() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.monitor == nil {
		return
	}
	p.monitor.emit(p.snapshotLocked())
}

// snapshotLocked copies the counters. Caller holds the pool mutex.
func (p *Pool) snapshotLocked() Monitor {
	return Monitor{
		Pool:       p,
		Name:       p.name,
		Time:       time.Since(p.t0).Seconds(),
		Concluding: p.concluding,
		Workers: MonitorWorkers{
			Requested:   uint64(p.requested),
			MaxObserved: uint64(p.maxObserved),
			Alive:       uint64(p.alive),
			Idle:        uint64(p.idle),
		},
		Tasks: MonitorTasks{
			Submitted:    uint64(p.submitted),
			Pending:      uint64(p.pending),
			Asynchronous: uint64(p.async),
			Processing:   uint64(p.processing),
			Succeeded:    uint64(p.succeeded),
			Failed:       uint64(p.failed),
			Canceled:     uint64(p.canceled),
		},
	}
}

// notifyMonitorLocked produces a snapshot at a significant state change and
// queues it for delivery if the filter accepts it. Caller holds the mutex.
func (p *Pool) notifyMonitorLocked() {
	m := p.monitor
	if m == nil {
		return
	}
	snap := p.snapshotLocked()
	if m.filter != nil && !m.filter(snap) {
		return
	}
	m.emit(snap)
}

// emit queues a snapshot on the monitor's own single-worker pool so the
// handler never interferes with the observed pool's workers.
func (m *monitorDescriptor) emit(snap Monitor) {
	if m.pool == nil {
		m.pool = New(WorkerSequential, nil, RunAllTasks,
			WithName(snap.Name+"-monitor"))
	}
	handler, arg := m.handler, m.arg
	m.pool.AddTask(func(_ *Worker, job interface{}) Result {
		handler(job.(Monitor), arg)
		return JobSuccess
	}, snap, nil)
}

// destroy drains the delivery pool so every observation is delivered before
// the observed pool is released.
func (m *monitorDescriptor) destroy() {
	if m.pool != nil {
		m.pool.WaitAndDestroy()
		m.pool = nil
	}
}

var monitorJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// MonitorToWriter is a convenient monitor handler writing snapshots as JSON
// lines to the io.Writer passed as the handler argument, colorized when the
// writer is a terminal.
func MonitorToWriter(m Monitor, arg interface{}) {
	w, ok := arg.(io.Writer)
	if !ok {
		return
	}
	data, err := monitorJSON.Marshal(&m)
	if err != nil {
		// a snapshot that cannot be encoded is dropped
		return
	}
	if f, isFile := arg.(*os.File); isFile && isatty.IsTerminal(f.Fd()) {
		fmt.Fprintf(w, "\x1b[36m%s\x1b[0m\n", data)
		return
	}
	fmt.Fprintf(w, "%s\n", data)
}

// rate-limit state of the interval filters, keyed by pool
var monitorLastEmit sync.Map

// MonitorEveryInterval returns a filter delivering a snapshot when no worker
// is alive or when at least the given interval elapsed since the last
// delivery to this pool's monitor.
func MonitorEveryInterval(interval time.Duration) MonitorFilter {
	return func(m Monitor) bool {
		return monitorEvery(m, interval)
	}
}

// MonitorEvery100ms is a convenient filter delivering a snapshot when no
// worker is alive or when at least 100 ms elapsed since the last delivery.
func MonitorEvery100ms(m Monitor) bool {
	return monitorEvery(m, 100*time.Millisecond)
}

func monitorEvery(m Monitor, interval time.Duration) bool {
	if m.Workers.Alive == 0 {
		return true
	}
	now := timeutil.NowNano()
	if last, ok := monitorLastEmit.Load(m.Pool); ok &&
		now-last.(int64) < int64(interval) {
		return false
	}
	monitorLastEmit.Store(m.Pool, now)
	return true
}

// monitorForget drops the rate-limit state of a destroyed pool.
func monitorForget(p *Pool) {
	monitorLastEmit.Delete(p)
}
