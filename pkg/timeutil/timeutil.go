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

// OneSecond is one second in milliseconds.
const OneSecond int64 = 1000

// Now returns the current timestamp in milliseconds.
func Now() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// NowNano returns the current timestamp in nanoseconds.
func NowNano() int64 {
	return time.Now().UnixNano()
}

// DelayToAbs converts a relative delay in seconds to an absolute instant.
// Negative delays clamp to the current instant.
func DelayToAbs(seconds float64) time.Time {
	if seconds < 0 {
		seconds = 0
	}
	return time.Now().Add(time.Duration(seconds * float64(time.Second)))
}
