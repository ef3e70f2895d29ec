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

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultLogFilename = "workcrew.log"

var (
	mutex sync.Mutex
	// root zap logger shared by all module loggers
	root *zap.Logger
)

// Setting represents the rolling file setting of the root logger.
type Setting struct {
	Dir        string // log directory, empty means stdout only
	Level      string // debug/info/warn/error
	MaxSize    uint16 // megabytes before rotation
	MaxBackups uint16
	MaxAge     uint16 // days
}

// Logger is the wrapped zap logger of a module/role pair.
type Logger struct {
	module string
	role   string
}

// GetLogger returns the logger of the given module and role.
func GetLogger(module, role string) *Logger {
	return &Logger{module: module, role: role}
}

// Init builds the root logger from the setting,
// it replaces the default stderr logger and must be called before logging if
// file output is wanted.
func Init(setting Setting) error {
	level := zapcore.InfoLevel
	if setting.Level != "" {
		if err := level.Set(setting.Level); err != nil {
			return err
		}
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var syncer zapcore.WriteSyncer
	if setting.Dir == "" {
		syncer = zapcore.AddSync(os.Stdout)
	} else {
		syncer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(setting.Dir, defaultLogFilename),
			MaxSize:    int(setting.MaxSize),
			MaxBackups: int(setting.MaxBackups),
			MaxAge:     int(setting.MaxAge),
		})
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), syncer, level)

	mutex.Lock()
	defer mutex.Unlock()
	root = zap.New(core)
	return nil
}

func getRoot() *zap.Logger {
	mutex.Lock()
	defer mutex.Unlock()
	if root == nil {
		// default console logger before Init
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.AddSync(os.Stderr),
			zapcore.InfoLevel)
		root = zap.New(core)
	}
	return root
}

// formatMsg formats msg with the module and role prefix.
func (l *Logger) formatMsg(msg string) string {
	return fmt.Sprintf("[%s] [%s]: %s", l.module, l.role, msg)
}

// Debug logs a message at debug level.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	getRoot().Debug(l.formatMsg(msg), fields...)
}

// Info logs a message at info level.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	getRoot().Info(l.formatMsg(msg), fields...)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	getRoot().Warn(l.formatMsg(msg), fields...)
}

// Error logs a message at error level.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	getRoot().Error(l.formatMsg(msg), fields...)
}

// String constructs a field with the given key and value.
func String(key, val string) zap.Field { return zap.String(key, val) }

// Uint64 constructs a field with the given key and value.
func Uint64(key string, val uint64) zap.Field { return zap.Uint64(key, val) }

// Int32 constructs a field with the given key and value.
func Int32(key string, val int32) zap.Field { return zap.Int32(key, val) }

// Any constructs a field with the given key and an arbitrary value.
func Any(key string, val interface{}) zap.Field { return zap.Any(key, val) }

// Error constructs a field that carries an error.
func Error(err error) zap.Field { return zap.Error(err) }
