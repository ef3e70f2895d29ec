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

package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Pool represents the scheduler pool configuration.
type Pool struct {
	Workers     int      `toml:"workers"`      // 0 means one worker per available CPU
	IdleTimeout Duration `toml:"idle-timeout"` // idle worker recycle delay
	Property    string   `toml:"property"`     // run-all | run-until-first-failure | run-until-first-success
}

// Monitor represents the monitoring configuration.
type Monitor struct {
	Enabled     bool     `toml:"enabled"`
	MinInterval Duration `toml:"min-interval"` // minimum delay between two snapshots
}

// Logging represents the logging configuration.
type Logging struct {
	Dir        string `toml:"dir"`
	Level      string `toml:"level"`
	MaxSize    uint16 `toml:"maxsize"`
	MaxBackups uint16 `toml:"maxbackups"`
	MaxAge     uint16 `toml:"maxage"`
}

// WorkCrew represents the full configuration file.
type WorkCrew struct {
	Pool    Pool    `toml:"pool"`
	Monitor Monitor `toml:"monitor"`
	Logging Logging `toml:"logging"`
}

// NewDefaultPool returns the default pool configuration.
func NewDefaultPool() Pool {
	return Pool{
		Workers:     0,
		IdleTimeout: Duration(100 * time.Millisecond),
		Property:    "run-all",
	}
}

// NewDefaultMonitor returns the default monitor configuration.
func NewDefaultMonitor() Monitor {
	return Monitor{
		Enabled:     false,
		MinInterval: Duration(100 * time.Millisecond),
	}
}

// NewDefaultLogging returns the default logging configuration.
func NewDefaultLogging() Logging {
	return Logging{
		Level:      "info",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
	}
}

// NewDefault returns the default configuration.
func NewDefault() *WorkCrew {
	return &WorkCrew{
		Pool:    NewDefaultPool(),
		Monitor: NewDefaultMonitor(),
		Logging: NewDefaultLogging(),
	}
}

// Validate checks the configuration values.
func (c *WorkCrew) Validate() error {
	if c.Pool.Workers < 0 {
		return errors.New("pool workers must not be negative")
	}
	if c.Pool.IdleTimeout < 0 {
		return errors.New("pool idle-timeout must not be negative")
	}
	switch c.Pool.Property {
	case "", "run-all", "run-until-first-failure", "run-until-first-success":
	default:
		return errors.Errorf("unknown pool property: %s", c.Pool.Property)
	}
	if c.Monitor.MinInterval < 0 {
		return errors.New("monitor min-interval must not be negative")
	}
	return nil
}

// Load decodes the TOML file into the default configuration.
func Load(path string) (*WorkCrew, error) {
	cfg := NewDefault()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config file %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
