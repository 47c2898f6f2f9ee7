/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log level and destination for a component logger.
type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
}

// DefaultConfig returns the logging configuration used when a component
// does not specify one.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Output: "stdout",
	}
}

type zerologAdapter struct {
	logger zerolog.Logger
}

// New creates a Logger from the given config. A nil config uses defaults.
func New(config *Config, component string) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var output io.Writer = os.Stdout

	if config.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return nil, err
		}
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()

	return &zerologAdapter{logger: zlog}, nil
}

func (z *zerologAdapter) Trace() *zerolog.Event { return z.logger.Trace() }
func (z *zerologAdapter) Debug() *zerolog.Event { return z.logger.Debug() }
func (z *zerologAdapter) Info() *zerolog.Event  { return z.logger.Info() }
func (z *zerologAdapter) Warn() *zerolog.Event  { return z.logger.Warn() }
func (z *zerologAdapter) Error() *zerolog.Event { return z.logger.Error() }
func (z *zerologAdapter) Fatal() *zerolog.Event { return z.logger.Fatal() }
func (z *zerologAdapter) Panic() *zerolog.Event { return z.logger.Panic() }
func (z *zerologAdapter) With() zerolog.Context { return z.logger.With() }

func (z *zerologAdapter) WithComponent(component string) zerolog.Logger {
	return z.logger.With().Str("component", component).Logger()
}

func (z *zerologAdapter) WithFields(fields map[string]interface{}) zerolog.Logger {
	ctx := z.logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}

	return ctx.Logger()
}

func (z *zerologAdapter) SetLevel(level zerolog.Level) {
	z.logger = z.logger.Level(level)
}

func (z *zerologAdapter) SetDebug(debug bool) {
	if debug {
		z.SetLevel(zerolog.DebugLevel)
	} else {
		z.SetLevel(zerolog.InfoLevel)
	}
}
