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

package mfr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ints(n int) []interface{} {
	values := make([]interface{}, n)
	for i := range values {
		values[i] = i
	}
	return values
}

func TestEngine_MapFilterReduce(t *testing.T) {
	kept, sum := New(4).
		Map(func(v interface{}) interface{} { return v.(int) * 2 }).
		Filter(func(v interface{}) bool { return v.(int)%4 == 0 }).
		Reduce(func(acc, v interface{}) interface{} { return acc.(int) + v.(int) }, 0).
		Run(ints(100))

	// doubled evens: 0, 4, 8, ..., 196
	assert.Len(t, kept, 50)
	assert.Equal(t, 0, kept[0])
	assert.Equal(t, 196, kept[49])
	expected := 0
	for i := 0; i < 100; i += 2 {
		expected += i * 2
	}
	assert.Equal(t, expected, sum)
}

func TestEngine_MapOnly(t *testing.T) {
	kept, acc := New(2).
		Map(func(v interface{}) interface{} { return v.(int) + 1 }).
		Run(ints(10))
	assert.Len(t, kept, 10)
	assert.Equal(t, 1, kept[0])
	assert.Equal(t, 10, kept[9])
	assert.Nil(t, acc)
}

func TestEngine_FilterAll(t *testing.T) {
	kept, acc := New(2).
		Filter(func(interface{}) bool { return false }).
		Reduce(func(acc, v interface{}) interface{} { return acc.(int) + 1 }, 0).
		Run(ints(20))
	assert.Len(t, kept, 0)
	// the seed survives when every element is filtered out
	assert.Equal(t, 0, acc)
}

func TestEngine_EmptyInput(t *testing.T) {
	kept, acc := New(0).
		Map(func(v interface{}) interface{} { return v }).
		Reduce(func(acc, v interface{}) interface{} { return acc }, "seed").
		Run(nil)
	assert.Len(t, kept, 0)
	assert.Equal(t, "seed", acc)
}

func TestEngine_OutputsKeepInputOrder(t *testing.T) {
	kept, _ := New(8).
		Map(func(v interface{}) interface{} { return v }).
		Run(ints(500))
	assert.Len(t, kept, 500)
	for i, v := range kept {
		assert.Equal(t, i, v)
	}
}
