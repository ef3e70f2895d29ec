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
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument indicates a nil work function or an out-of-range value.
	ErrInvalidArgument = errors.New("threadpool: invalid argument")
	// ErrWorkersAlive indicates a configuration change attempted while workers are alive.
	ErrWorkersAlive = errors.New("threadpool: workers already started")
	// ErrResourceExists indicates a resource manager change while the resource slot is populated.
	ErrResourceExists = errors.New("threadpool: global resource already allocated")
	// ErrNotWorker indicates a worker-only operation called outside a running task.
	ErrNotWorker = errors.New("threadpool: operation not permitted outside a worker")
	// ErrContinuationPending indicates the current task already awaits a continuation.
	ErrContinuationPending = errors.New("threadpool: task already awaits a continuation")
	// ErrTimedOut indicates a continuation uid that already expired or never existed.
	ErrTimedOut = errors.New("threadpool: continuation timed out")
)
