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

package api

import (
	"errors"

	"github.com/carverauto/powermon/pkg/models"
)

// Validation bounds mirror what agents can physically report.
const (
	maxPowerWatt   = 1000
	maxMemoryMB    = 128000
	maxGPUUsagePct = 100
)

var (
	errMissingTimestamp = errors.New("timestamp_utc is required")
	errMissingDeviceID  = errors.New("device_id is required")
	errGPUUsageRange    = errors.New("gpu usage must be between 0 and 100")
	errPowerRange       = errors.New("power consumption must be between 0 and 1000W")
	errMemoryRange      = errors.New("memory usage must be between 0 and 128GB")
)

func validateSample(sample *models.Sample) error {
	if sample.TimestampUTC == "" {
		return errMissingTimestamp
	}

	if sample.DeviceID == "" {
		return errMissingDeviceID
	}

	if sample.GPUUsagePct < 0 || sample.GPUUsagePct > maxGPUUsagePct {
		return errGPUUsageRange
	}

	for _, watt := range []float64{sample.GPUPowerWatt, sample.CPUPowerWatt, sample.SystemPowerWatt} {
		if watt < 0 || watt > maxPowerWatt {
			return errPowerRange
		}
	}

	if sample.MemoryUsedMB < 0 || sample.MemoryUsedMB > maxMemoryMB {
		return errMemoryRange
	}

	return nil
}
