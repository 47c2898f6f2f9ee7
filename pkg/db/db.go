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

// Package db provides Postgres-backed storage for telemetry records and
// the authorized device whitelist.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

var (
	// ErrDeviceExists is returned when adding a device that is already whitelisted.
	ErrDeviceExists = errors.New("device already exists")
	// ErrDeviceNotFound is returned when a device lookup matches no row.
	ErrDeviceNotFound = errors.New("device not found")
)

// RawStore persists raw telemetry records.
type RawStore interface {
	InsertRaw(ctx context.Context, record *models.RawRecord) error
	LatestFingerprint(ctx context.Context, deviceID string) (string, error)
}

// CleanedStore persists cleaned telemetry records.
type CleanedStore interface {
	InsertCleaned(ctx context.Context, record *models.CleanedRecord) error
}

// DeviceStore is the row store behind the device registry.
type DeviceStore interface {
	InsertDevice(ctx context.Context, device *models.AuthorizedDevice) error
	DeactivateDevice(ctx context.Context, macAddress string) error
	GetDevice(ctx context.Context, macAddress string) (*models.AuthorizedDevice, error)
	ListDevices(ctx context.Context) ([]models.AuthorizedDevice, error)
	TouchLastSeen(ctx context.Context, macAddress string, seen time.Time) error
}

// MetricsReader exposes the aggregate counts behind the /metrics endpoint.
type MetricsReader interface {
	DailyCounts(ctx context.Context, day time.Time) (raw, cleaned int64, err error)
	CountActiveDevices(ctx context.Context) (int64, error)
}

// Service is the full storage surface consumed by the collector.
type Service interface {
	RawStore
	CleanedStore
	DeviceStore
	MetricsReader

	Ping(ctx context.Context) error
	Close()
}

// DB implements Service on a pgx connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// New connects to the configured database and runs schema bootstrap.
func New(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (*DB, error) {
	pool, err := newPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	database := &DB{pool: pool, logger: log}

	if err := database.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return database, nil
}

// Ping verifies database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close releases the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}
