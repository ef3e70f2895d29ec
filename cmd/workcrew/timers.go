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
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/workcrew/workcrew/pkg/timeutil"
	"github.com/workcrew/workcrew/threadpool"
)

var timersCmd = &cobra.Command{
	Use:   "timers <n> <maxdelay>",
	Short: "run n virtual tasks resumed by external timers",
	Long: "Each task suspends into a virtual task with a timeout of 0.7 of " +
		"maxdelay (in seconds) and is resumed by an external timer at a random " +
		"instant within maxdelay, so roughly 70% succeed and 30% time out.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid task count %q", args[0])
		}
		maxDelay, err := strconv.ParseFloat(args[1], 64)
		if err != nil || maxDelay <= 0 {
			return fmt.Errorf("invalid max delay %q", args[1])
		}
		timeout := time.Duration(0.7 * maxDelay * float64(time.Second))

		// the terminal counters are read back from the last snapshot
		var mu sync.Mutex
		var last threadpool.Monitor
		stream := monitorFlag || cfg.Monitor.Enabled

		pool := newPool("timers")
		pool.SetMonitor(func(m threadpool.Monitor, _ interface{}) {
			mu.Lock()
			last = m
			mu.Unlock()
			if stream {
				threadpool.MonitorToWriter(m, os.Stderr)
			}
		}, nil, nil)

		for i := 0; i < n; i++ {
			pool.AddTask(func(w *threadpool.Worker, _ interface{}) threadpool.Result {
				uid, err := w.Continuation(
					func(*threadpool.Worker, interface{}) threadpool.Result {
						return threadpool.JobSuccess
					}, timeout)
				if err != nil {
					return threadpool.JobFailure
				}
				// the external event lands at a random instant in [0, maxdelay)
				at := timeutil.DelayToAbs(rand.Float64() * maxDelay)
				timeutil.Schedule(at, func() {
					_ = threadpool.Continue(uid)
				})
				return threadpool.JobSuccess
			}, nil, func(_ interface{}, result threadpool.Result) threadpool.Result {
				// a timed-out virtual task counts as a failure
				if result == threadpool.JobCanceled {
					return threadpool.JobFailure
				}
				return result
			})
		}
		pool.WaitAndDestroy()

		mu.Lock()
		defer mu.Unlock()
		fmt.Printf("submitted %d: %d succeeded, %d failed\n",
			last.Tasks.Submitted, last.Tasks.Succeeded, last.Tasks.Failed)
		return nil
	},
}
