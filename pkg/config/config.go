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

// Package config handles loading configuration from JSON files with
// environment variable overrides.
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/powermon/pkg/logger"
)

var (
	// ErrConfigPtr indicates that the destination must be a non-nil pointer.
	ErrConfigPtr = errors.New("config must be a non-nil pointer")
	// ErrValidation indicates the loaded configuration failed validation.
	ErrValidation = errors.New("config validation failed")
)

// Loader loads configuration from a source into dst.
type Loader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Validator is implemented by config structs that can check themselves
// after loading.
type Validator interface {
	Validate() error
}

// Config holds the configuration loading dependencies.
type Config struct {
	loader Loader
	logger logger.Logger
}

// NewConfig initializes a Config with a file loader followed by the
// environment overlay. A nil logger gets a no-op logger.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Config{
		loader: &FileConfigLoader{},
		logger: log,
	}
}

// LoadAndValidate reads the file at path into dst, applies POWERMON_*
// environment overrides, then runs dst's Validate if it has one.
func (c *Config) LoadAndValidate(ctx context.Context, path string, dst interface{}) error {
	if dst == nil {
		return ErrConfigPtr
	}

	if err := c.loader.Load(ctx, path, dst); err != nil {
		return err
	}

	if err := applyEnvOverrides(dst, envPrefix); err != nil {
		return err
	}

	if v, ok := dst.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	c.logger.Debug().Str("path", path).Msg("Loaded configuration")

	return nil
}
