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
	insertDeviceSQL = `
INSERT INTO authorized_devices (
	mac_address,
	device_name,
	user_name,
	registered_date,
	is_active,
	notes
) VALUES ($1,$2,$3,$4,TRUE,$5)
ON CONFLICT (mac_address) DO NOTHING`

	deactivateDeviceSQL = `
UPDATE authorized_devices SET is_active = FALSE WHERE mac_address = $1`

	getDeviceSQL = `
SELECT mac_address, device_name, user_name, registered_date, last_seen, is_active, notes
FROM authorized_devices
WHERE mac_address = $1`

	listDevicesSQL = `
SELECT mac_address, device_name, user_name, registered_date, last_seen, is_active, notes
FROM authorized_devices
ORDER BY registered_date`

	// Row-level UPDATE keeps concurrent touches for the same device
	// serialized while distinct devices proceed in parallel.
	touchLastSeenSQL = `
UPDATE authorized_devices SET last_seen = $2 WHERE mac_address = $1 AND is_active = TRUE`
)

// InsertDevice adds a device to the whitelist. Returns ErrDeviceExists if
// the MAC address is already registered, active or not.
func (db *DB) InsertDevice(ctx context.Context, device *models.AuthorizedDevice) error {
	registered := device.RegisteredDate
	if registered.IsZero() {
		registered = time.Now().UTC()
	}

	tag, err := db.pool.Exec(ctx, insertDeviceSQL,
		device.MACAddress,
		device.DeviceName,
		device.UserName,
		registered,
		nullIfEmpty(device.Notes),
	)
	if err != nil {
		return fmt.Errorf("db: failed to insert device: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrDeviceExists
	}

	return nil
}

// DeactivateDevice soft-deletes a whitelist entry. The row is kept for
// history; only the active flag is cleared.
func (db *DB) DeactivateDevice(ctx context.Context, macAddress string) error {
	tag, err := db.pool.Exec(ctx, deactivateDeviceSQL, macAddress)
	if err != nil {
		return fmt.Errorf("db: failed to deactivate device: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// GetDevice fetches a whitelist entry by normalized MAC address.
func (db *DB) GetDevice(ctx context.Context, macAddress string) (*models.AuthorizedDevice, error) {
	device, err := scanDevice(db.pool.QueryRow(ctx, getDeviceSQL, macAddress))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("db: failed to get device: %w", err)
	}

	return device, nil
}

// ListDevices returns every whitelist entry, including inactive ones.
func (db *DB) ListDevices(ctx context.Context) ([]models.AuthorizedDevice, error) {
	rows, err := db.pool.Query(ctx, listDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("db: failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.AuthorizedDevice

	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("db: failed to scan device row: %w", err)
		}

		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: device row iteration failed: %w", err)
	}

	return devices, nil
}

// TouchLastSeen records a successful authorization. Idempotent; touching a
// missing or inactive device is not an error.
func (db *DB) TouchLastSeen(ctx context.Context, macAddress string, seen time.Time) error {
	if _, err := db.pool.Exec(ctx, touchLastSeenSQL, macAddress, seen); err != nil {
		return fmt.Errorf("db: failed to update last_seen: %w", err)
	}

	return nil
}

func scanDevice(row pgx.Row) (*models.AuthorizedDevice, error) {
	var device models.AuthorizedDevice

	var notes *string

	err := row.Scan(
		&device.MACAddress,
		&device.DeviceName,
		&device.UserName,
		&device.RegisteredDate,
		&device.LastSeen,
		&device.IsActive,
		&notes,
	)
	if err != nil {
		return nil, err
	}

	if notes != nil {
		device.Notes = *notes
	}

	return &device, nil
}
