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
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/powermon/pkg/core"
	"github.com/carverauto/powermon/pkg/core/auth"
	"github.com/carverauto/powermon/pkg/models"
)

const ingestMAC = "AA:BB:CC:DD:EE:FF"

func validSampleBody(t *testing.T) *bytes.Reader {
	t.Helper()

	body, err := json.Marshal(models.Sample{
		TimestampUTC: "2026-08-28T10:00:00.000Z",
		DeviceID:     ingestMAC,
		CPUPowerWatt: 12.5,
		MemoryUsedMB: 8192,
	})
	require.NoError(t, err)

	return bytes.NewReader(body)
}

func postIngest(t *testing.T, server *APIServer, body *bytes.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/ingest", body)
	req.RemoteAddr = "10.0.0.1:54321"

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	return rec
}

func decodeIngestResponse(t *testing.T, rec *httptest.ResponseRecorder) models.IngestResponse {
	t.Helper()

	var resp models.IngestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	return resp
}

func TestHandleIngestSuccess(t *testing.T) {
	ingestor := &fakeIngestor{result: &core.Result{Outcome: core.OutcomeSuccess}}
	server := newTestServer(
		WithIngestor(ingestor),
		WithAuthGate(&fakeAuthGate{result: &auth.Result{MACAddress: ingestMAC, Method: auth.MethodFullAuth}}),
	)

	rec := postIngest(t, server, validSampleBody(t))

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeIngestResponse(t, rec)
	assert.Equal(t, models.IngestStatusSuccess, resp.Status)
	assert.Equal(t, ingestMAC, resp.Device)
	assert.Equal(t, auth.MethodFullAuth, resp.AuthMethod)
	assert.Len(t, ingestor.seen, 1)
}

func TestHandleIngestPartialSuccess(t *testing.T) {
	ingestor := &fakeIngestor{result: &core.Result{
		Outcome: core.OutcomePartialSuccess,
		Reason:  "cleaning service unreachable",
	}}
	server := newTestServer(
		WithIngestor(ingestor),
		WithAuthGate(&fakeAuthGate{result: &auth.Result{MACAddress: ingestMAC, Method: auth.MethodFullAuth}}),
	)

	rec := postIngest(t, server, validSampleBody(t))

	require.Equal(t, http.StatusOK, rec.Code, "partial success still returns 200")

	resp := decodeIngestResponse(t, rec)
	assert.Equal(t, models.IngestStatusPartialSuccess, resp.Status)
	assert.Equal(t, "cleaning service unreachable", resp.Reason)
}

func TestHandleIngestIncludesFingerprintCheck(t *testing.T) {
	ingestor := &fakeIngestor{result: &core.Result{
		Outcome: core.OutcomeSuccess,
		FingerprintCheck: &models.FingerprintCheck{
			Fingerprint:     "a1b2c3d4e5f60718",
			RiskLevel:       "medium",
			SimilarityScore: 0.75,
		},
	}}
	server := newTestServer(
		WithIngestor(ingestor),
		WithAuthGate(&fakeAuthGate{result: &auth.Result{MACAddress: ingestMAC, Method: auth.MethodFullAuth}}),
	)

	rec := postIngest(t, server, validSampleBody(t))

	resp := decodeIngestResponse(t, rec)
	require.NotNil(t, resp.FingerprintCheck)
	assert.Equal(t, "medium", resp.FingerprintCheck.RiskLevel)
}

func TestHandleIngestLegacyMethodEchoed(t *testing.T) {
	server := newTestServer(
		WithIngestor(&fakeIngestor{result: &core.Result{Outcome: core.OutcomeSuccess}}),
		WithAuthGate(&fakeAuthGate{result: &auth.Result{MACAddress: "legacy-10.0.0.1", Method: auth.MethodLegacyMode}}),
	)

	rec := postIngest(t, server, validSampleBody(t))

	resp := decodeIngestResponse(t, rec)
	assert.Equal(t, auth.MethodLegacyMode, resp.AuthMethod)
}

func TestHandleIngestAuthRejections(t *testing.T) {
	tests := []struct {
		name           string
		authErr        error
		expectedStatus int
	}{
		{name: "unknown device", authErr: auth.ErrDeviceNotAuthorized, expectedStatus: http.StatusForbidden},
		{name: "bad certificate", authErr: auth.ErrInvalidCertificate, expectedStatus: http.StatusUnauthorized},
		{name: "missing headers strict mode", authErr: auth.ErrMissingAuthHeaders, expectedStatus: http.StatusUnauthorized},
		{name: "directory failure", authErr: errors.New("db down"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingestor := &fakeIngestor{result: &core.Result{Outcome: core.OutcomeSuccess}}
			server := newTestServer(
				WithIngestor(ingestor),
				WithAuthGate(&fakeAuthGate{err: tt.authErr}),
			)

			rec := postIngest(t, server, validSampleBody(t))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Empty(t, ingestor.seen, "rejected samples must not reach the pipeline")
		})
	}
}

func TestHandleIngestMalformedBody(t *testing.T) {
	server := newTestServer(
		WithIngestor(&fakeIngestor{}),
		WithAuthGate(&fakeAuthGate{result: &auth.Result{Method: auth.MethodFullAuth}}),
	)

	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIngestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Sample)
	}{
		{name: "missing timestamp", mutate: func(s *models.Sample) { s.TimestampUTC = "" }},
		{name: "missing device id", mutate: func(s *models.Sample) { s.DeviceID = "" }},
		{name: "gpu usage above 100", mutate: func(s *models.Sample) { s.GPUUsagePct = 101 }},
		{name: "negative cpu power", mutate: func(s *models.Sample) { s.CPUPowerWatt = -1 }},
		{name: "absurd system power", mutate: func(s *models.Sample) { s.SystemPowerWatt = 1001 }},
		{name: "absurd memory", mutate: func(s *models.Sample) { s.MemoryUsedMB = 200000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample := models.Sample{
				TimestampUTC: "2026-08-28T10:00:00.000Z",
				DeviceID:     ingestMAC,
			}
			tt.mutate(&sample)

			body, err := json.Marshal(sample)
			require.NoError(t, err)

			server := newTestServer(
				WithIngestor(&fakeIngestor{}),
				WithAuthGate(&fakeAuthGate{result: &auth.Result{Method: auth.MethodFullAuth}}),
			)

			rec := postIngest(t, server, bytes.NewReader(body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleIngestPipelineFailure(t *testing.T) {
	server := newTestServer(
		WithIngestor(&fakeIngestor{err: errors.New("db down")}),
		WithAuthGate(&fakeAuthGate{result: &auth.Result{Method: auth.MethodFullAuth}}),
	)

	rec := postIngest(t, server, validSampleBody(t))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
