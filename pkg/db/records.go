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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/powermon/pkg/models"
)

const (
	insertRawSQL = `
INSERT INTO telemetry_raw (
	device_id,
	timestamp_utc,
	gpu_model,
	gpu_usage_percent,
	gpu_power_watt,
	cpu_power_watt,
	memory_used_mb,
	disk_read_mb_s,
	disk_write_mb_s,
	system_power_watt,
	user_id,
	agent_version,
	os_type,
	os_version,
	location,
	device_fingerprint,
	risk_level,
	similarity_score
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)`

	insertCleanedSQL = `
INSERT INTO telemetry_cleaned (
	device_id,
	timestamp_utc,
	gpu_model,
	gpu_usage_percent,
	gpu_power_watt,
	cpu_power_watt,
	memory_used_mb,
	disk_read_mb_s,
	disk_write_mb_s,
	system_power_watt,
	user_id,
	agent_version,
	os_type,
	os_version,
	location,
	risk_level,
	similarity_score
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)`

	latestFingerprintSQL = `
SELECT device_fingerprint
FROM telemetry_raw
WHERE device_id = $1 AND device_fingerprint IS NOT NULL AND device_fingerprint <> ''
ORDER BY timestamp_utc DESC
LIMIT 1`

	countRawForDaySQL     = `SELECT COUNT(*) FROM telemetry_raw WHERE timestamp_utc LIKE $1`
	countCleanedForDaySQL = `SELECT COUNT(*) FROM telemetry_cleaned WHERE timestamp_utc LIKE $1`
	countActiveDevicesSQL = `SELECT COUNT(*) FROM authorized_devices WHERE is_active = TRUE`
)

// InsertRaw persists one raw telemetry record. Failure here is fatal for
// the request; the caller must report the sample as not recorded.
func (db *DB) InsertRaw(ctx context.Context, record *models.RawRecord) error {
	_, err := db.pool.Exec(ctx, insertRawSQL,
		record.DeviceID,
		record.TimestampUTC,
		record.GPUModel,
		record.GPUUsagePct,
		record.GPUPowerWatt,
		record.CPUPowerWatt,
		record.MemoryUsedMB,
		record.DiskReadMBs,
		record.DiskWriteMBs,
		record.SystemPowerWatt,
		record.UserID,
		record.AgentVersion,
		record.OSType,
		record.OSVersion,
		record.Location,
		nullIfEmpty(record.DeviceFingerprint),
		nullIfEmpty(record.RiskLevel),
		record.SimilarityScore,
	)
	if err != nil {
		return fmt.Errorf("db: failed to insert raw record: %w", err)
	}

	return nil
}

// InsertCleaned persists one cleaned telemetry record.
func (db *DB) InsertCleaned(ctx context.Context, record *models.CleanedRecord) error {
	_, err := db.pool.Exec(ctx, insertCleanedSQL,
		record.DeviceID,
		record.TimestampUTC,
		record.GPUModel,
		record.GPUUsagePct,
		record.GPUPowerWatt,
		record.CPUPowerWatt,
		record.MemoryUsedMB,
		record.DiskReadMBs,
		record.DiskWriteMBs,
		record.SystemPowerWatt,
		record.UserID,
		record.AgentVersion,
		record.OSType,
		record.OSVersion,
		record.Location,
		nullIfEmpty(record.RiskLevel),
		record.SimilarityScore,
	)
	if err != nil {
		return fmt.Errorf("db: failed to insert cleaned record: %w", err)
	}

	return nil
}

// LatestFingerprint returns the most recent non-empty fingerprint stored
// for a device, or "" when the device has no fingerprint history.
func (db *DB) LatestFingerprint(ctx context.Context, deviceID string) (string, error) {
	var fingerprint string

	err := db.pool.QueryRow(ctx, latestFingerprintSQL, deviceID).Scan(&fingerprint)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("db: failed to query fingerprint: %w", err)
	}

	return fingerprint, nil
}

// DailyCounts returns how many raw and cleaned records exist for the given
// day. Timestamps are stored as ISO-8601 strings so the day is a prefix.
func (db *DB) DailyCounts(ctx context.Context, day time.Time) (raw, cleaned int64, err error) {
	prefix := day.UTC().Format("2006-01-02") + "%"

	if err = db.pool.QueryRow(ctx, countRawForDaySQL, prefix).Scan(&raw); err != nil {
		return 0, 0, fmt.Errorf("db: failed to count raw records: %w", err)
	}

	if err = db.pool.QueryRow(ctx, countCleanedForDaySQL, prefix).Scan(&cleaned); err != nil {
		return 0, 0, fmt.Errorf("db: failed to count cleaned records: %w", err)
	}

	return raw, cleaned, nil
}

// CountActiveDevices returns the number of whitelisted devices still active.
func (db *DB) CountActiveDevices(ctx context.Context) (int64, error) {
	var count int64

	if err := db.pool.QueryRow(ctx, countActiveDevicesSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("db: failed to count active devices: %w", err)
	}

	return count, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}

	return s
}
