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

// Package mfr runs map/filter/reduce pipelines over a worker pool,
// one task per input element, with the reduction serialized by the pool's
// guard so any accumulator type works without extra locking.
package mfr

import (
	"github.com/workcrew/workcrew/threadpool"
)

// MapFunc transforms one element.
type MapFunc func(v interface{}) interface{}

// FilterFunc keeps the elements it returns true for.
type FilterFunc func(v interface{}) bool

// ReduceFunc folds one element into the accumulator.
type ReduceFunc func(acc, v interface{}) interface{}

// Engine is a reusable map/filter/reduce pipeline definition.
type Engine struct {
	workers  int
	mapFn    MapFunc
	filterFn FilterFunc
	reduceFn ReduceFunc
	seed     interface{}
}

// New returns an engine distributing elements over the given worker count;
// 0 means one worker per available CPU.
func New(workers int) *Engine {
	return &Engine{workers: workers}
}

// Map sets the transformation stage.
func (e *Engine) Map(fn MapFunc) *Engine {
	e.mapFn = fn
	return e
}

// Filter sets the selection stage.
func (e *Engine) Filter(fn FilterFunc) *Engine {
	e.filterFn = fn
	return e
}

// Reduce sets the fold stage and its initial accumulator. The fold must be
// order-insensitive: elements are folded as workers complete them.
func (e *Engine) Reduce(fn ReduceFunc, seed interface{}) *Engine {
	e.reduceFn = fn
	e.seed = seed
	return e
}

// runState is the shared state of one Run, aggregated under the pool guard.
type runState struct {
	engine  *Engine
	outputs []interface{} // slot per input, nil when filtered out
	kept    []bool
	acc     interface{}
}

// runElem is the job of one element task.
type runElem struct {
	state *runState
	index int
	value interface{}
}

func elementWork(w *threadpool.Worker, job interface{}) threadpool.Result {
	el := job.(*runElem)
	e := el.state.engine
	v := el.value
	if e.mapFn != nil {
		v = e.mapFn(v)
	}
	if e.filterFn != nil && !e.filterFn(v) {
		return threadpool.JobSuccess
	}
	w.GuardBegin()
	el.state.outputs[el.index] = v
	el.state.kept[el.index] = true
	if e.reduceFn != nil {
		el.state.acc = e.reduceFn(el.state.acc, v)
	}
	w.GuardEnd()
	return threadpool.JobSuccess
}

// Run processes the inputs and returns the mapped-and-kept elements in input
// order together with the reduced value (the seed when no fold is set).
func (e *Engine) Run(inputs []interface{}) ([]interface{}, interface{}) {
	state := &runState{
		engine:  e,
		outputs: make([]interface{}, len(inputs)),
		kept:    make([]bool, len(inputs)),
		acc:     e.seed,
	}
	pool := threadpool.New(e.workers, nil, threadpool.RunAllTasks,
		threadpool.WithName("mfr"))
	for i, v := range inputs {
		pool.AddTask(elementWork, &runElem{state: state, index: i, value: v}, nil)
	}
	pool.WaitAndDestroy()

	kept := make([]interface{}, 0, len(inputs))
	for i, ok := range state.kept {
		if ok {
			kept = append(kept, state.outputs[i])
		}
	}
	return kept, state.acc
}
