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

package cleaner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/powermon/pkg/models"
)

func rawRecord() *models.RawRecord {
	return &models.RawRecord{
		Sample: models.Sample{
			TimestampUTC: "2026-08-28T10:00:00.000Z",
			DeviceID:     "AA:BB:CC:DD:EE:FF",
			CPUPowerWatt: 12.5,
		},
	}
}

func TestCleanSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/clean", r.URL.Path)

		var received models.RawRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "AA:BB:CC:DD:EE:FF", received.DeviceID)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"cleaned_data": models.CleanedRecord{
				TimestampUTC: received.TimestampUTC,
				DeviceID:     received.DeviceID,
				CPUPowerWatt: 12.5,
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	cleaned, err := client.Clean(context.Background(), rawRecord())

	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cleaned.DeviceID)
}

func TestCleanNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	_, err := client.Clean(context.Background(), rawRecord())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestCleanMissingCleanedData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	_, err := client.Clean(context.Background(), rawRecord())

	require.ErrorIs(t, err, errMissingCleanedData)
}

func TestCleanMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{broken"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	_, err := client.Clean(context.Background(), rawRecord())

	require.Error(t, err)
}

func TestCleanUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL)

	_, err := client.Clean(context.Background(), rawRecord())

	require.Error(t, err)
}

func TestHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, NewClient(srv.URL).Healthy(context.Background()))
}

func TestHealthyDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	assert.False(t, NewClient(srv.URL).Healthy(context.Background()))
}

func TestHealthyNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.False(t, NewClient(srv.URL).Healthy(context.Background()))
}
