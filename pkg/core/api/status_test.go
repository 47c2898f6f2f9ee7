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
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRoot(t *testing.T) {
	server := newTestServer()

	rec := doRequest(server, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "powermon")
}

func TestHandleHealthAllUp(t *testing.T) {
	server := newTestServer(
		WithDatabase(&fakePinger{}),
		WithCleanerProbe(&fakeProbe{healthy: true}),
	)

	rec := doRequest(server, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "connected", resp["cleaner_service"])
}

func TestHandleHealthCleanerDownIsPartial(t *testing.T) {
	server := newTestServer(
		WithDatabase(&fakePinger{}),
		WithCleanerProbe(&fakeProbe{healthy: false}),
	)

	rec := doRequest(server, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code, "a dead cleaner does not make the collector unhealthy")

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "partial", resp["status"])
	assert.Equal(t, "disconnected", resp["cleaner_service"])
}

func TestHandleHealthDatabaseDown(t *testing.T) {
	server := newTestServer(
		WithDatabase(&fakePinger{err: errors.New("connection refused")}),
		WithCleanerProbe(&fakeProbe{healthy: true}),
	)

	rec := doRequest(server, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "unhealthy", resp["status"])
}

func TestHandleMetrics(t *testing.T) {
	server := newTestServer(WithMetricsSource(&fakeMetricsSource{raw: 200, cleaned: 190, devices: 7}))

	rec := doRequest(server, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RecordsToday struct {
			Raw         int64  `json:"raw"`
			Cleaned     int64  `json:"cleaned"`
			SuccessRate string `json:"success_rate"`
		} `json:"records_today"`
		ActiveDevices int64 `json:"active_devices"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, int64(200), resp.RecordsToday.Raw)
	assert.Equal(t, int64(190), resp.RecordsToday.Cleaned)
	assert.Equal(t, "95.0%", resp.RecordsToday.SuccessRate)
	assert.Equal(t, int64(7), resp.ActiveDevices)
}

func TestHandleMetricsNoTraffic(t *testing.T) {
	server := newTestServer(WithMetricsSource(&fakeMetricsSource{}))

	rec := doRequest(server, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success_rate":"0%"`)
}

func TestHandleMetricsSourceFailure(t *testing.T) {
	server := newTestServer(WithMetricsSource(&fakeMetricsSource{err: errors.New("db down")}))

	rec := doRequest(server, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
