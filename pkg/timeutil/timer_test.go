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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	assert.True(t, Now() > 0)
	assert.True(t, NowNano() > Now())
}

func TestDelayToAbs(t *testing.T) {
	before := time.Now()
	at := DelayToAbs(0.5)
	assert.True(t, at.Sub(before) >= 400*time.Millisecond)
	assert.True(t, at.Sub(before) <= time.Second)
	// negative delay clamps to now
	at = DelayToAbs(-10)
	assert.True(t, time.Since(at) >= 0)
}

func TestSchedule_Fire(t *testing.T) {
	fired := make(chan struct{})
	ref := Schedule(time.Now().Add(10*time.Millisecond), func() {
		close(fired)
	})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.False(t, ref.Unset())
}

func TestSchedule_Unset(t *testing.T) {
	ref := Schedule(time.Now().Add(time.Hour), func() {
		t.Error("canceled timer fired")
	})
	assert.True(t, ref.Unset())
	assert.False(t, ref.Unset())

	var nilRef *TimerRef
	assert.False(t, nilRef.Unset())
}

func TestSchedule_PastInstant(t *testing.T) {
	fired := make(chan struct{})
	Schedule(time.Now().Add(-time.Minute), func() {
		close(fired)
	})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("past-instant timer did not fire")
	}
}
