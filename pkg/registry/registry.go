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

// Package registry manages the whitelist of devices authorized to send
// telemetry.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/powermon/pkg/db"
	"github.com/carverauto/powermon/pkg/identity"
	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

// DeviceRegistry is the single entry point for whitelist reads and writes.
// All identifiers are normalized at this boundary so callers never compare
// raw MAC strings.
type DeviceRegistry struct {
	store  db.DeviceStore
	logger logger.Logger
}

// NewDeviceRegistry creates a registry over the given device store.
func NewDeviceRegistry(store db.DeviceStore, log logger.Logger) *DeviceRegistry {
	return &DeviceRegistry{
		store:  store,
		logger: log,
	}
}

// Add whitelists a device. Returns false (no error) when the identifier is
// already registered.
func (r *DeviceRegistry) Add(ctx context.Context, mac, name, user, notes string) (bool, error) {
	device := &models.AuthorizedDevice{
		MACAddress:     identity.Normalize(mac),
		DeviceName:     name,
		UserName:       user,
		RegisteredDate: time.Now().UTC(),
		IsActive:       true,
		Notes:          notes,
	}

	err := r.store.InsertDevice(ctx, device)
	if errors.Is(err, db.ErrDeviceExists) {
		r.logger.Warn().Str("mac_address", device.MACAddress).Msg("device already whitelisted")
		return false, nil
	}

	if err != nil {
		return false, err
	}

	r.logger.Info().
		Str("mac_address", device.MACAddress).
		Str("device_name", name).
		Msg("device added to whitelist")

	return true, nil
}

// Remove soft-deletes a device: the entry immediately fails authorization
// but its history is retained. Returns false when the device is unknown.
func (r *DeviceRegistry) Remove(ctx context.Context, mac string) (bool, error) {
	normalized := identity.Normalize(mac)

	err := r.store.DeactivateDevice(ctx, normalized)
	if errors.Is(err, db.ErrDeviceNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	r.logger.Info().Str("mac_address", normalized).Msg("device removed from whitelist")

	return true, nil
}

// Get returns the whitelist entry for a device, or nil when unknown.
func (r *DeviceRegistry) Get(ctx context.Context, mac string) (*models.AuthorizedDevice, error) {
	device, err := r.store.GetDevice(ctx, identity.Normalize(mac))
	if errors.Is(err, db.ErrDeviceNotFound) {
		return nil, nil
	}

	return device, err
}

// List returns all whitelist entries.
func (r *DeviceRegistry) List(ctx context.Context) ([]models.AuthorizedDevice, error) {
	return r.store.ListDevices(ctx)
}

// IsAuthorized reports whether a device is whitelisted and active.
func (r *DeviceRegistry) IsAuthorized(ctx context.Context, mac string) (bool, error) {
	device, err := r.Get(ctx, mac)
	if err != nil {
		return false, err
	}

	return device != nil && device.IsActive, nil
}

// TouchLastSeen records a successful authorization. Idempotent.
func (r *DeviceRegistry) TouchLastSeen(ctx context.Context, mac string) error {
	return r.store.TouchLastSeen(ctx, identity.Normalize(mac), time.Now().UTC())
}
