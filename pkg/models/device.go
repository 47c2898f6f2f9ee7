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

import (
	"time"
)

// AuthorizedDevice is a whitelist entry keyed by normalized MAC address.
// Removal is a soft delete: the row stays for history with IsActive cleared.
type AuthorizedDevice struct {
	MACAddress     string     `json:"mac_address"`
	DeviceName     string     `json:"device_name"`
	UserName       string     `json:"user_name"`
	RegisteredDate time.Time  `json:"registered_date"`
	LastSeen       *time.Time `json:"last_seen,omitempty"`
	IsActive       bool       `json:"is_active"`
	Notes          string     `json:"notes,omitempty"`
}

// DeviceCreateRequest is the admin payload for whitelisting a device.
type DeviceCreateRequest struct {
	MACAddress string `json:"mac_address"`
	DeviceName string `json:"device_name"`
	UserName   string `json:"user_name"`
	Notes      string `json:"notes,omitempty"`
}
