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
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/workcrew/workcrew/pkg/timeutil"
)

// sortRange is the job of a quicksort partition task.
type sortRange struct {
	data []int
	lo   int
	hi   int // exclusive
}

// quicksortWork partitions its range in place and fans the two halves out as
// new tasks on the same pool.
func quicksortWork(w *Worker, job interface{}) Result {
	r := job.(*sortRange)
	if r.hi-r.lo <= 1 {
		return JobSuccess
	}
	pivot := r.data[r.hi-1]
	i := r.lo
	for j := r.lo; j < r.hi-1; j++ {
		if r.data[j] < pivot {
			r.data[i], r.data[j] = r.data[j], r.data[i]
			i++
		}
	}
	r.data[i], r.data[r.hi-1] = r.data[r.hi-1], r.data[i]
	w.Pool().AddTask(quicksortWork, &sortRange{data: r.data, lo: r.lo, hi: i}, nil)
	w.Pool().AddTask(quicksortWork, &sortRange{data: r.data, lo: i + 1, hi: r.hi}, nil)
	return JobSuccess
}

func TestScenario_QuicksortFanout(t *testing.T) {
	const n = 2000
	data := make([]int, n)
	rnd := rand.New(rand.NewSource(1))
	for i := range data {
		data[i] = rnd.Intn(100000)
	}

	pool := New(4, nil, RunAllTasks, WithName("qsip"))
	pool.AddTask(quicksortWork, &sortRange{data: data, lo: 0, hi: n}, nil)
	pool.WaitAndDestroy()

	assert.True(t, sort.IntsAreSorted(data))
	assert.Equal(t, int64(0), pool.failed)
	assert.Equal(t, int64(0), pool.canceled)
	assert.Equal(t, pool.submitted, pool.succeeded)
	assert.True(t, pool.succeeded >= int64(n/2))
}

func TestScenario_TimerDrivenVirtualTasks(t *testing.T) {
	// 60 virtual tasks with a 100 ms timeout: 40 are resumed almost at
	// once and succeed, 20 are resumed far too late and fail
	const tasks = 60
	const early = 40
	uids := make(chan uint64, tasks)

	pool := New(WorkerSequential, nil, RunAllTasks, WithName("timers"))
	for i := 0; i < tasks; i++ {
		pool.AddTask(func(w *Worker, _ interface{}) Result {
			uid, err := w.Continuation(succeedWork, 100*time.Millisecond)
			assert.NoError(t, err)
			uids <- uid
			return JobSuccess
		}, nil, escalate)
	}
	for i := 0; i < tasks; i++ {
		uid := <-uids
		delay := time.Millisecond
		if i >= early {
			delay = 400 * time.Millisecond
		}
		timeutil.Schedule(time.Now().Add(delay), func() {
			_ = Continue(uid)
		})
	}
	pool.WaitAndDestroy()

	assert.Equal(t, int64(tasks), pool.submitted)
	assert.Equal(t, int64(early), pool.succeeded)
	assert.Equal(t, int64(tasks-early), pool.failed)
	assert.Equal(t, pool.submitted, pool.succeeded+pool.failed)
	assert.Equal(t, int64(0), pool.async)
}

func TestScenario_TwoPhaseContinuations(t *testing.T) {
	// 80 tasks suspend twice in a row with a 100 ms timeout per phase.
	// Three quarters are resumed in time in each phase, so the survivors
	// of both phases are ratio-squared of the submissions: 0.75² · 80 = 45.
	const (
		tasks        = 80
		resumedFirst = 60 // first phase resumes in time for idx < 60
	)
	type contEvent struct {
		uid   uint64
		idx   int
		phase int
	}
	events := make(chan contEvent, 2*tasks)

	secondPhase := func(w *Worker, job interface{}) Result {
		uid, err := w.Continuation(succeedWork, 100*time.Millisecond)
		assert.NoError(t, err)
		events <- contEvent{uid: uid, idx: job.(int), phase: 2}
		return JobSuccess
	}
	firstPhase := func(w *Worker, job interface{}) Result {
		uid, err := w.Continuation(secondPhase, 100*time.Millisecond)
		assert.NoError(t, err)
		events <- contEvent{uid: uid, idx: job.(int), phase: 1}
		return JobSuccess
	}

	pool := New(4, nil, RunAllTasks, WithName("two-phase"))
	for i := 0; i < tasks; i++ {
		pool.AddTask(firstPhase, i, escalate)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			early := ev.idx < resumedFirst
			if ev.phase == 2 {
				// second phase resumes in time for three quarters
				early = ev.idx%4 != 0
			}
			delay := time.Millisecond
			if !early {
				delay = 400 * time.Millisecond
			}
			uid := ev.uid
			timeutil.Schedule(time.Now().Add(delay), func() {
				// late resumptions lose against the timeout
				_ = Continue(uid)
			})
		}
	}()
	pool.WaitAndDestroy()
	close(events)
	<-done

	// survivors of both phases: idx < 60 with idx%4 != 0
	const survived = 45
	assert.Equal(t, int64(tasks), pool.submitted)
	assert.Equal(t, int64(survived), pool.succeeded)
	assert.Equal(t, int64(tasks-survived), pool.failed)
	assert.Equal(t, pool.submitted, pool.succeeded+pool.failed)
	assert.Equal(t, int64(0), pool.async)
	assert.Equal(t, int64(0), pool.canceled)
}

func TestScenario_CancelSleepingTasks(t *testing.T) {
	gate := make(chan struct{})
	start := time.Now()
	pool := New(WorkerSequential, nil, RunAllTasks)
	pool.AddTask(func(_ *Worker, _ interface{}) Result {
		<-gate
		return JobSuccess
	}, nil, nil)
	for i := 0; i < 5; i++ {
		pool.AddTask(func(_ *Worker, _ interface{}) Result {
			time.Sleep(10 * time.Second) // never reached
			return JobSuccess
		}, nil, nil)
	}

	assert.Equal(t, 5, pool.CancelTask(CancelAllPending))
	close(gate)
	pool.WaitAndDestroy()

	assert.Equal(t, int64(5), pool.canceled)
	assert.Equal(t, int64(1), pool.succeeded)
	assert.Equal(t, int64(0), pool.failed)
	assert.True(t, time.Since(start) < 5*time.Second)
}

func TestScenario_WorkersRespawnAfterIdleExit(t *testing.T) {
	pool := New(2, nil, RunAllTasks, WithIdleTimeout(time.Millisecond))
	for round := 0; round < 3; round++ {
		for i := 0; i < 10; i++ {
			pool.AddTask(succeedWork, nil, nil)
		}
		// let the crew drain and voluntarily exit
		time.Sleep(50 * time.Millisecond)
	}
	pool.WaitAndDestroy()

	assert.Equal(t, int64(30), pool.succeeded)
	// more workers were created than ever lived at once
	assert.True(t, pool.created > pool.maxObserved)
}
