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
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	art "github.com/plar/go-adaptive-radix-tree"

	"github.com/workcrew/workcrew/pkg/logger"
	"github.com/workcrew/workcrew/pkg/timeutil"
)

// continuator represents a suspended task awaiting an out-of-band signal or
// a timeout. It owns the job payload until the continuation task is queued.
type continuator struct {
	uid     uint64
	pool    *Pool
	work    Work
	job     interface{}
	deletor Deletor
	timer   *timeutil.TimerRef
}

// registry is the process-scoped index of outstanding continuators, ordered
// by uid. It has its own lock discipline, never the pool mutex.
var registry = &continuationRegistry{tree: art.New()}

type continuationRegistry struct {
	mu   sync.Mutex
	tree art.Tree
	seq  uint32
}

func uidKey(uid uint64) art.Key {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uid)
	return key
}

// declare registers a continuator for the given pool and schedules its
// timeout. The uid's upper half is random, the lower half a sequence that
// never wraps to zero.
func (r *continuationRegistry) declare(
	p *Pool, work Work, job interface{}, deletor Deletor, timeout time.Duration,
) uint64 {
	if timeout < 0 {
		timeout = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if r.seq == 0 {
		r.seq = 1
	}
	uid := uint64(rand.Uint32())<<32 | uint64(r.seq)
	c := &continuator{
		uid:     uid,
		pool:    p,
		work:    work,
		job:     job,
		deletor: deletor,
	}
	r.tree.Insert(uidKey(uid), art.Value(c))
	c.timer = timeutil.Schedule(time.Now().Add(timeout), func() {
		r.timeout(uid)
	})
	return uid
}

// take removes and returns the continuator for uid, or nil. Find-and-remove
// is a single atomic step: of the racing pair {resume, timeout}, whichever
// takes the continuator wins, the loser is a no-op.
func (r *continuationRegistry) take(uid uint64) *continuator {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, deleted := r.tree.Delete(uidKey(uid))
	if !deleted {
		return nil
	}
	return value.(*continuator)
}

// timeout is the timer callback of a continuator: the virtual task expired,
// its job payload re-enters the pool as a canceled continuation task so the
// deletor still runs.
func (r *continuationRegistry) timeout(uid uint64) {
	c := r.take(uid)
	if c == nil {
		// lost the race against a resumption
		return
	}
	p := c.pool
	poolLogger.Debug("continuation timed out",
		logger.String("pool", p.name), logger.Uint64("uid", uid))
	p.mu.Lock()
	p.async--
	if p.async < 0 {
		p.invariant("negative async counter")
	}
	p.addTaskLocked(nil, c.job, c.deletor, true)
	// any waiter might now observe the done predicate
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Continuation suspends the currently-executing task into a virtual task.
//
// The continuation work function, together with the task's job payload and
// deletor, is resumed by Continue with the returned uid, or canceled after
// the timeout elapses. The current task is left unclassified until then and
// the pool counts it as asynchronous.
func (w *Worker) Continuation(work Work, timeout time.Duration) (uint64, error) {
	if w == nil || w.pool == nil || w.current == nil {
		return 0, ErrNotWorker
	}
	if work == nil {
		return 0, ErrInvalidArgument
	}
	if w.current.toBeContinued {
		return 0, ErrContinuationPending
	}
	p := w.pool
	w.current.toBeContinued = true
	p.mu.Lock()
	p.async++
	p.stateChangedLocked()
	p.mu.Unlock()
	return registry.declare(p, work, w.current.job, w.current.deletor, timeout), nil
}

// Continue resumes the virtual task identified by uid: its continuation work
// re-enters the owning pool as a continuation task carrying the original job
// payload and deletor. Returns ErrTimedOut if the continuator already
// expired or never existed; the asynchronous result is then lost.
func Continue(uid uint64) error {
	c := registry.take(uid)
	if c == nil {
		return ErrTimedOut
	}
	c.timer.Unset()
	p := c.pool
	p.mu.Lock()
	p.async--
	if p.async < 0 {
		p.invariant("negative async counter")
	}
	p.addTaskLocked(c.work, c.job, c.deletor, true)
	p.cond.Broadcast()
	p.mu.Unlock()
	return nil
}
