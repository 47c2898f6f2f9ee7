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
	"github.com/carverauto/powermon/pkg/logger"
)

// AgentConfig configures the sampling agent.
type AgentConfig struct {
	CollectorURL      string           `json:"collector_url"`
	AuthSecretKey     string           `json:"auth_secret_key"`
	UserID            string           `json:"user_id"`
	Location          string           `json:"location"`
	SampleIntervalSec int              `json:"sample_interval_sec"`
	ChangeThreshold   float64          `json:"change_threshold"`
	ScheduleWindows   []ScheduleWindow `json:"schedule_windows"`
	FallbackToCSV     bool             `json:"fallback_to_csv"`
	BufferDir         string           `json:"buffer_dir"`
	BufferBatchSize   int              `json:"buffer_batch_size"`
	Logging           *logger.Config   `json:"logging,omitempty"`
}

// ScheduleWindow is an inclusive wall-clock interval ("HH:MM" local time)
// during which the agent samples unconditionally.
type ScheduleWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CollectorConfig configures the ingestion collector.
type CollectorConfig struct {
	ListenAddr    string `json:"listen_addr"`
	AuthSecretKey string `json:"auth_secret_key"`
	// CompatibilityMode admits legacy agents that send no auth headers.
	// Nil means enabled; it must be set to false explicitly.
	CompatibilityMode *bool           `json:"compatibility_mode"`
	AllowedIPs        []string        `json:"allowed_ips,omitempty"`
	CleanerURL        string          `json:"cleaner_url"`
	Database          *DatabaseConfig `json:"database"`
	CORS              CORSConfig      `json:"cors,omitempty"`
	Logging           *logger.Config  `json:"logging,omitempty"`
}

// DatabaseConfig holds Postgres connection settings for the collector.
type DatabaseConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Database        string `json:"database"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	SSLMode         string `json:"ssl_mode"`
	ApplicationName string `json:"application_name,omitempty"`
	MaxConnections  int32  `json:"max_connections,omitempty"`
	MinConnections  int32  `json:"min_connections,omitempty"`
}

// CORSConfig holds cross-origin settings for the HTTP API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins,omitempty"`
	AllowCredentials bool     `json:"allow_credentials,omitempty"`
}
