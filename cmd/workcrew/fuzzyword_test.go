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
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDamerauLevenshtein(t *testing.T) {
	assert.Equal(t, 0, damerauLevenshtein("word", "word"))
	assert.Equal(t, 1, damerauLevenshtein("word", "ward"))
	assert.Equal(t, 1, damerauLevenshtein("word", "wrod")) // transposition
	assert.Equal(t, 1, damerauLevenshtein("word", "words"))
	assert.Equal(t, 1, damerauLevenshtein("word", "ord"))
	assert.Equal(t, 4, damerauLevenshtein("", "word"))
	assert.Equal(t, 3, damerauLevenshtein("kitten", "sitting"))
	// optimal string alignment does not re-edit transposed substrings
	assert.Equal(t, 3, damerauLevenshtein("ca", "abc"))
}

func TestLoadDictionary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words")
	assert.NoError(t, ioutil.WriteFile(path, []byte("alpha\n\nbeta \ngamma\n"), 0600))
	words, err := loadDictionary(path)
	assert.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, words)

	_, err = loadDictionary(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
