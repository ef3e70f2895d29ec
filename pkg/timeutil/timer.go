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

package timeutil

import (
	"time"
)

// TimerRef is the cancellation handle of a scheduled callback.
type TimerRef struct {
	timer *time.Timer
}

// Schedule runs fn once at the absolute instant, in its own goroutine.
// The returned ref cancels the callback via Unset.
func Schedule(at time.Time, fn func()) *TimerRef {
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	return &TimerRef{timer: time.AfterFunc(d, fn)}
}

// Unset cancels the scheduled callback,
// it returns false if the callback already fired or was already canceled.
// Unset does not wait for a running callback to return.
func (r *TimerRef) Unset() bool {
	if r == nil || r.timer == nil {
		return false
	}
	return r.timer.Stop()
}
