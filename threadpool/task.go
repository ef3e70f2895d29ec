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

// task is a submitted unit of work queued in the pool's FIFO.
type task struct {
	id      TaskID
	work    Work // nil once canceled
	job     interface{}
	deletor Deletor

	// toBeContinued marks a task suspended into a virtual task,
	// isContinuation marks the resumed form of a virtual task.
	toBeContinued  bool
	isContinuation bool
}

// elem is an element of the intrusive singly-linked FIFO.
type elem struct {
	next *elem
	task task
}

// enqueue appends e at the tail. Caller holds the pool mutex.
func (p *Pool) enqueue(e *elem) {
	if p.in == nil {
		p.out = e
	} else {
		p.in.next = e
	}
	p.in = e
}

// dequeue pops the head of the FIFO. Caller holds the pool mutex.
func (p *Pool) dequeue() *elem {
	e := p.out
	if e == nil {
		return nil
	}
	p.out = e.next
	if p.out == nil {
		p.in = nil
	}
	e.next = nil
	return e
}

// nextTaskID assigns the next monotonic task id,
// wrapping to 1 before it would collide with the reserved sentinels.
// Caller holds the pool mutex.
func (p *Pool) nextTaskID() TaskID {
	id := p.nextID
	p.nextID++
	if p.nextID >= CancelAllPending {
		p.nextID = 1
	}
	return id
}
