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

package main

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/workcrew/workcrew/threadpool"
)

// qsipRange is the job of one in-place quicksort partition task.
type qsipRange struct {
	data []int
	lo   int
	hi   int // exclusive
}

var qsipCmd = &cobra.Command{
	Use:   "qsip <n>",
	Short: "quicksort n random integers in place, one task per partition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid element count %q", args[0])
		}
		data := make([]int, n)
		for i := range data {
			data[i] = rand.Int()
		}

		pool := newPool("qsip")
		pool.AddTask(qsipWork, &qsipRange{data: data, lo: 0, hi: n}, nil)
		pool.WaitAndDestroy()

		if !sort.IntsAreSorted(data) {
			return fmt.Errorf("sort failed: output is not ordered")
		}
		fmt.Printf("sorted %d elements\n", n)
		return nil
	},
}

// qsipWork partitions its range and fans the halves out on the same pool.
func qsipWork(w *threadpool.Worker, job interface{}) threadpool.Result {
	r := job.(*qsipRange)
	if r.hi-r.lo <= 1 {
		return threadpool.JobSuccess
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
	w.Pool().AddTask(qsipWork, &qsipRange{data: r.data, lo: r.lo, hi: i}, nil)
	w.Pool().AddTask(qsipWork, &qsipRange{data: r.data, lo: i + 1, hi: r.hi}, nil)
	return threadpool.JobSuccess
}
