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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/workcrew/workcrew/threadpool"
)

const defaultDictFile = "/usr/share/dict/words"

// fuzzySearch is the shared state of one fuzzy lookup, aggregated under the
// pool guard.
type fuzzySearch struct {
	word  string
	best  int
	found []string
}

// fuzzyShard is the job of one dictionary shard scan.
type fuzzyShard struct {
	search *fuzzySearch
	lo, hi int
}

const fuzzyShardSize = 2048

var fuzzywordCmd = &cobra.Command{
	Use:   "fuzzyword <word> [dictfile]",
	Short: "find the dictionary words closest to the given word",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dictFile := defaultDictFile
		if len(args) == 2 {
			dictFile = args[1]
		}
		search := &fuzzySearch{
			word: strings.ToLower(args[0]),
			best: int(^uint(0) >> 1),
		}

		pool := newPool("fuzzyword")
		// the dictionary lives exactly as long as the crew
		if err := pool.SetGlobalResourceManager(
			func(interface{}) interface{} {
				dict, err := loadDictionary(dictFile)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					return []string(nil)
				}
				return dict
			}, nil); err != nil {
			return err
		}
		// the coordinator task fans one scan task out per dictionary shard
		pool.AddTask(func(w *threadpool.Worker, _ interface{}) threadpool.Result {
			dict := w.GlobalResource().([]string)
			for lo := 0; lo < len(dict); lo += fuzzyShardSize {
				hi := lo + fuzzyShardSize
				if hi > len(dict) {
					hi = len(dict)
				}
				w.Pool().AddTask(fuzzyShardWork,
					&fuzzyShard{search: search, lo: lo, hi: hi}, nil)
			}
			return threadpool.JobSuccess
		}, nil, nil)
		pool.WaitAndDestroy()

		fmt.Printf("distance %d:\n", search.best)
		for _, w := range search.found {
			fmt.Println("  " + w)
		}
		return nil
	},
}

func fuzzyShardWork(w *threadpool.Worker, job interface{}) threadpool.Result {
	shard := job.(*fuzzyShard)
	s := shard.search
	dict := w.GlobalResource().([]string)
	for _, candidate := range dict[shard.lo:shard.hi] {
		d := damerauLevenshtein(s.word, strings.ToLower(candidate))
		w.GuardBegin()
		switch {
		case d < s.best:
			s.best = d
			s.found = append(s.found[:0], candidate)
		case d == s.best:
			s.found = append(s.found, candidate)
		}
		w.GuardEnd()
	}
	return threadpool.JobSuccess
}

func loadDictionary(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if word := strings.TrimSpace(scanner.Text()); word != "" {
			words = append(words, word)
		}
	}
	return words, scanner.Err()
}

// damerauLevenshtein computes the optimal-string-alignment distance.
func damerauLevenshtein(a, b string) int {
	la, lb := len(a), len(b)
	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if t := prev2[j-2] + 1; t < cur[j] {
					cur[j] = t
				}
			}
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
