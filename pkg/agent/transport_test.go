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

package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/powermon/pkg/identity"
	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

const (
	transportMAC    = "AA:BB:CC:DD:EE:FF"
	transportSecret = "test-secret"
)

func transportSample() *models.Sample {
	return &models.Sample{
		TimestampUTC: "2026-08-28T10:00:00.000Z",
		DeviceID:     transportMAC,
		CPUPowerWatt: 12.5,
	}
}

func TestSendDelivered(t *testing.T) {
	var gotMAC, gotCert string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/ingest", r.URL.Path)

		gotMAC = r.Header.Get("MAC-Address")
		gotCert = r.Header.Get("Device-Certificate")

		var sample models.Sample
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sample))
		assert.Equal(t, transportMAC, sample.DeviceID)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.IngestResponse{
			Status:     models.IngestStatusSuccess,
			Device:     sample.DeviceID,
			AuthMethod: "full_auth",
		})
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, transportMAC, transportSecret, logger.NewTestLogger())

	result := tr.Send(context.Background(), transportSample())

	assert.Equal(t, Delivered, result.Outcome)
	assert.Equal(t, transportMAC, gotMAC)
	assert.Equal(t, identity.Certificate(transportMAC, transportSecret), gotCert)
}

func TestSendPartialSuccessStillDelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(models.IngestResponse{
			Status: models.IngestStatusPartialSuccess,
			Reason: "cleaning service unreachable",
		})
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, transportMAC, transportSecret, logger.NewTestLogger())

	result := tr.Send(context.Background(), transportSample())

	assert.Equal(t, Delivered, result.Outcome)
}

func TestSendSurfacesFingerprintCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(models.IngestResponse{
			Status: models.IngestStatusSuccess,
			FingerprintCheck: &models.FingerprintCheck{
				Fingerprint:     "a1b2c3d4e5f60718",
				RiskLevel:       "high",
				SimilarityScore: 0.25,
				Message:         "hardware fingerprint changed since last sample",
			},
		})
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, transportMAC, transportSecret, logger.NewTestLogger())

	result := tr.Send(context.Background(), transportSample())

	require.NotNil(t, result.FingerprintCheck)
	assert.Equal(t, "high", result.FingerprintCheck.RiskLevel)
}

func TestSendRejectedOnInvalidCertificate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, transportMAC, transportSecret, logger.NewTestLogger())

	result := tr.Send(context.Background(), transportSample())

	assert.Equal(t, Rejected, result.Outcome)
	assert.Contains(t, result.Reason, "certificate")
}

func TestSendRejectedOnUnauthorizedDevice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, transportMAC, transportSecret, logger.NewTestLogger())

	result := tr.Send(context.Background(), transportSample())

	assert.Equal(t, Rejected, result.Outcome)
	assert.Contains(t, result.Reason, "not authorized")
}

func TestSendUnreachableOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	tr := NewTransport(srv.URL, transportMAC, transportSecret, logger.NewTestLogger())

	result := tr.Send(context.Background(), transportSample())

	assert.Equal(t, Unreachable, result.Outcome)
}

func TestSendUnreachableOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, transportMAC, transportSecret, logger.NewTestLogger())

	result := tr.Send(context.Background(), transportSample())

	assert.Equal(t, Unreachable, result.Outcome)
}

func TestSendNormalizesConfiguredMAC(t *testing.T) {
	var gotMAC string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMAC = r.Header.Get("MAC-Address")
		_ = json.NewEncoder(w).Encode(models.IngestResponse{Status: models.IngestStatusSuccess})
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, "aa-bb-cc-dd-ee-ff", transportSecret, logger.NewTestLogger())

	_ = tr.Send(context.Background(), transportSample())

	assert.Equal(t, transportMAC, gotMAC)
}

func TestCheckCollectorHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
		case "/admin/devices/" + transportMAC:
			_ = json.NewEncoder(w).Encode(models.AuthorizedDevice{
				MACAddress: transportMAC,
				DeviceName: "lab-box",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, transportMAC, transportSecret, logger.NewTestLogger())

	assert.True(t, tr.CheckCollector(context.Background()))
}

func TestCheckCollectorDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	tr := NewTransport(srv.URL, transportMAC, transportSecret, logger.NewTestLogger())

	assert.False(t, tr.CheckCollector(context.Background()))
}
