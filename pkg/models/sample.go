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

// Package models defines the shared data types for the powermon agent and collector.
package models

// Sample is a single hardware telemetry reading taken by an agent. It is
// immutable once built: the agent constructs it per sampling decision and
// the collector consumes it exactly once.
type Sample struct {
	TimestampUTC    string  `json:"timestamp_utc"`
	GPUModel        string  `json:"gpu_model"`
	GPUUsagePct     float64 `json:"gpu_usage_percent"`
	GPUPowerWatt    float64 `json:"gpu_power_watt"`
	CPUPowerWatt    float64 `json:"cpu_power_watt"`
	MemoryUsedMB    float64 `json:"memory_used_mb"`
	DiskReadMBs     float64 `json:"disk_read_mb_s"`
	DiskWriteMBs    float64 `json:"disk_write_mb_s"`
	SystemPowerWatt float64 `json:"system_power_watt"`
	DeviceID        string  `json:"device_id"`
	UserID          string  `json:"user_id"`
	AgentVersion    string  `json:"agent_version"`
	OSType          string  `json:"os_type"`
	OSVersion       string  `json:"os_version"`
	Location        string  `json:"location"`

	// EnhancedInfo carries extra hardware facts used for device
	// fingerprinting. Optional; older agents omit it entirely.
	EnhancedInfo map[string]interface{} `json:"enhanced_info,omitempty"`
}

// MetricVector is the lightweight subset of Sample used for change gating.
type MetricVector struct {
	CPUPowerWatt float64
	GPUPowerWatt float64
	MemoryUsedMB float64
	DiskReadMBs  float64
	DiskWriteMBs float64
}

// FingerprintCheck is the collector's assessment of how closely a sample's
// hardware facts match what it has seen before from the same device.
type FingerprintCheck struct {
	Fingerprint     string  `json:"fingerprint"`
	RiskLevel       string  `json:"risk_level"`
	SimilarityScore float64 `json:"similarity_score"`
	Message         string  `json:"message"`
}

// RawRecord is a Sample as persisted, plus optional fingerprint annotations.
type RawRecord struct {
	Sample

	DeviceFingerprint string  `json:"device_fingerprint,omitempty"`
	RiskLevel         string  `json:"risk_level,omitempty"`
	SimilarityScore   float64 `json:"similarity_score,omitempty"`
}

// CleanedRecord is the cleaning service's output for a raw record, keyed by
// the same device and timestamp.
type CleanedRecord struct {
	TimestampUTC    string  `json:"timestamp_utc"`
	GPUModel        string  `json:"gpu_model"`
	GPUUsagePct     float64 `json:"gpu_usage_percent"`
	GPUPowerWatt    float64 `json:"gpu_power_watt"`
	CPUPowerWatt    float64 `json:"cpu_power_watt"`
	MemoryUsedMB    float64 `json:"memory_used_mb"`
	DiskReadMBs     float64 `json:"disk_read_mb_s"`
	DiskWriteMBs    float64 `json:"disk_write_mb_s"`
	SystemPowerWatt float64 `json:"system_power_watt"`
	DeviceID        string  `json:"device_id"`
	UserID          string  `json:"user_id"`
	AgentVersion    string  `json:"agent_version"`
	OSType          string  `json:"os_type"`
	OSVersion       string  `json:"os_version"`
	Location        string  `json:"location"`
	RiskLevel       string  `json:"risk_level,omitempty"`
	SimilarityScore float64 `json:"similarity_score,omitempty"`
}

// IngestResponse is the collector's reply to a successful (or partially
// successful) ingest request.
type IngestResponse struct {
	Status           string            `json:"status"`
	Device           string            `json:"device"`
	AuthMethod       string            `json:"auth_method"`
	Reason           string            `json:"reason,omitempty"`
	FingerprintCheck *FingerprintCheck `json:"fingerprint_check,omitempty"`
}

// Ingest outcome statuses.
const (
	IngestStatusSuccess        = "success"
	IngestStatusPartialSuccess = "partial_success"
)
