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

package db

import (
	"context"
	"fmt"
)

// Raw and cleaned records share a composite key of device and timestamp;
// two devices sampling in the same millisecond must not collide.
const (
	createRawTableSQL = `
CREATE TABLE IF NOT EXISTS telemetry_raw (
	device_id          TEXT NOT NULL,
	timestamp_utc      TEXT NOT NULL,
	gpu_model          TEXT,
	gpu_usage_percent  DOUBLE PRECISION,
	gpu_power_watt     DOUBLE PRECISION,
	cpu_power_watt     DOUBLE PRECISION,
	memory_used_mb     DOUBLE PRECISION,
	disk_read_mb_s     DOUBLE PRECISION,
	disk_write_mb_s    DOUBLE PRECISION,
	system_power_watt  DOUBLE PRECISION,
	user_id            TEXT,
	agent_version      TEXT,
	os_type            TEXT,
	os_version         TEXT,
	location           TEXT,
	device_fingerprint VARCHAR(16),
	risk_level         VARCHAR(10),
	similarity_score   DOUBLE PRECISION,
	PRIMARY KEY (device_id, timestamp_utc)
)`

	createCleanedTableSQL = `
CREATE TABLE IF NOT EXISTS telemetry_cleaned (
	device_id         TEXT NOT NULL,
	timestamp_utc     TEXT NOT NULL,
	gpu_model         TEXT,
	gpu_usage_percent DOUBLE PRECISION,
	gpu_power_watt    DOUBLE PRECISION,
	cpu_power_watt    DOUBLE PRECISION,
	memory_used_mb    DOUBLE PRECISION,
	disk_read_mb_s    DOUBLE PRECISION,
	disk_write_mb_s   DOUBLE PRECISION,
	system_power_watt DOUBLE PRECISION,
	user_id           TEXT,
	agent_version     TEXT,
	os_type           TEXT,
	os_version        TEXT,
	location          TEXT,
	risk_level        VARCHAR(10),
	similarity_score  DOUBLE PRECISION,
	PRIMARY KEY (device_id, timestamp_utc)
)`

	createDevicesTableSQL = `
CREATE TABLE IF NOT EXISTS authorized_devices (
	mac_address     TEXT PRIMARY KEY,
	device_name     TEXT NOT NULL,
	user_name       TEXT NOT NULL,
	registered_date TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen       TIMESTAMPTZ,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	notes           TEXT
)`
)

// Migrate creates the schema if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		createRawTableSQL,
		createCleanedTableSQL,
		createDevicesTableSQL,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("db: migration failed: %w", err)
		}
	}

	db.logger.Debug().Msg("schema migration complete")

	return nil
}
