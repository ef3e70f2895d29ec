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
	"os"

	"github.com/spf13/cobra"

	"github.com/workcrew/workcrew/config"
	"github.com/workcrew/workcrew/pkg/logger"
	"github.com/workcrew/workcrew/threadpool"
)

var (
	workersFlag int
	configFlag  string
	monitorFlag bool

	cfg = config.NewDefault()
)

var rootCmd = &cobra.Command{
	Use:   "workcrew",
	Short: "workcrew runs example workloads on the worker-pool scheduler",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFlag != "" {
			loaded, err := config.Load(configFlag)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if workersFlag >= 0 {
			cfg.Pool.Workers = workersFlag
		}
		return logger.Init(logger.Setting{
			Dir:        cfg.Logging.Dir,
			Level:      cfg.Logging.Level,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAge,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&workersFlag, "workers", -1,
		"worker count, 0 means one per CPU (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"path of the TOML configuration file")
	rootCmd.PersistentFlags().BoolVar(&monitorFlag, "monitor", false,
		"stream pool snapshots to stderr")
	rootCmd.AddCommand(fuzzywordCmd, qsipCmd, timersCmd)
}

// poolProperty maps the configured property name to its pool property.
func poolProperty(name string) threadpool.Property {
	switch name {
	case "run-until-first-failure":
		return threadpool.RunUntilFirstFailure
	case "run-until-first-success":
		return threadpool.RunUntilFirstSuccess
	default:
		return threadpool.RunAllTasks
	}
}

// newPool builds a pool from the resolved configuration and flags.
func newPool(name string) *threadpool.Pool {
	pool := threadpool.New(cfg.Pool.Workers, nil, poolProperty(cfg.Pool.Property),
		threadpool.WithName(name),
		threadpool.WithIdleTimeout(cfg.Pool.IdleTimeout.Duration()))
	if monitorFlag || cfg.Monitor.Enabled {
		pool.SetMonitor(threadpool.MonitorToWriter, os.Stderr,
			threadpool.MonitorEveryInterval(cfg.Monitor.MinInterval.Duration()))
	}
	return pool
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
