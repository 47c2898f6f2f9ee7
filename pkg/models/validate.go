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

package models

import "errors"

var (
	// ErrCollectorURLRequired indicates the agent config omits the collector endpoint.
	ErrCollectorURLRequired = errors.New("collector_url is required")
	// ErrSecretKeyRequired indicates the shared auth secret is missing.
	ErrSecretKeyRequired = errors.New("auth_secret_key is required")
	// ErrListenAddrRequired indicates the collector config omits the listen address.
	ErrListenAddrRequired = errors.New("listen_addr is required")
	// ErrDatabaseRequired indicates the collector config omits database settings.
	ErrDatabaseRequired = errors.New("database configuration is required")
	// ErrDatabaseHostRequired indicates the database host is missing.
	ErrDatabaseHostRequired = errors.New("database host is required")
)

// Validate checks the agent config for the fields it cannot run without.
func (c *AgentConfig) Validate() error {
	if c.CollectorURL == "" {
		return ErrCollectorURLRequired
	}

	if c.AuthSecretKey == "" {
		return ErrSecretKeyRequired
	}

	return nil
}

// Validate checks the collector config for the fields it cannot run
// without and applies defaults for the ones it can. Compatibility mode
// stays on unless the config turns it off.
func (c *CollectorConfig) Validate() error {
	if c.CompatibilityMode == nil {
		enabled := true
		c.CompatibilityMode = &enabled
	}

	if c.ListenAddr == "" {
		return ErrListenAddrRequired
	}

	if c.AuthSecretKey == "" {
		return ErrSecretKeyRequired
	}

	if c.Database == nil {
		return ErrDatabaseRequired
	}

	if c.Database.Host == "" {
		return ErrDatabaseHostRequired
	}

	return nil
}
