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
	"fmt"
	"net/http"
	"time"
)

// Version is set at build time via -ldflags
var Version = "dev"

func (s *APIServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "powermon telemetry ingestion API",
		"version": Version,
		"features": []string{
			"MAC Authentication",
			"Device Management",
			"Health Monitoring",
		},
	})
}

// handleHealth reports database and cleaning-service reachability. A dead
// cleaner degrades the status to "partial" but does not make the
// collector unhealthy; ingestion still accepts data without it.
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.database.Ping(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "disconnected",
		})

		return
	}

	cleanerHealthy := s.cleanerProbe.Healthy(r.Context())

	status := "healthy"
	cleanerState := "connected"

	if !cleanerHealthy {
		status = "partial"
		cleanerState = "disconnected"
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":          status,
		"database":        "connected",
		"cleaner_service": cleanerState,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *APIServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	raw, cleaned, err := s.metricsSource.DailyCounts(r.Context(), time.Now().UTC())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "unable to collect metrics")
		return
	}

	activeDevices, err := s.metricsSource.CountActiveDevices(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "unable to collect metrics")
		return
	}

	successRate := "0%"
	if raw > 0 {
		successRate = fmt.Sprintf("%.1f%%", float64(cleaned)/float64(raw)*100)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"records_today": map[string]interface{}{
			"raw":          raw,
			"cleaned":      cleaned,
			"success_rate": successRate,
		},
		"active_devices": activeDevices,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
