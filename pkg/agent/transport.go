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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carverauto/powermon/pkg/identity"
	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

const (
	sendTimeout         = 10 * time.Second
	maxResponseBodySize = 1 << 20
)

// Outcome classifies one delivery attempt.
type Outcome int

const (
	// Delivered means the collector accepted the sample (fully or partially).
	Delivered Outcome = iota
	// Rejected means the collector refused the sample (auth failure).
	Rejected
	// Unreachable means the collector could not be contacted in time.
	Unreachable
)

// SendResult is the outcome of one transport attempt plus whatever the
// collector reported back.
type SendResult struct {
	Outcome          Outcome
	Reason           string
	FingerprintCheck *models.FingerprintCheck
}

// Transport delivers samples to the collector. One synchronous attempt
// per sample, bounded by a short timeout; anything short of a confirmed
// delivery goes back to the caller for buffering.
type Transport struct {
	baseURL    string
	macAddress string
	secretKey  string
	httpClient *http.Client
	logger     logger.Logger
}

// NewTransport creates a transport authenticated as the given device.
func NewTransport(baseURL, macAddress, secretKey string, log logger.Logger) *Transport {
	return &Transport{
		baseURL:    baseURL,
		macAddress: identity.Normalize(macAddress),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: sendTimeout},
		logger:     log,
	}
}

// Send posts one sample to the collector's ingest endpoint. It mutates no
// shared state; buffering a failed sample is the caller's decision.
func (t *Transport) Send(ctx context.Context, sample *models.Sample) SendResult {
	body, err := json.Marshal(sample)
	if err != nil {
		return SendResult{Outcome: Unreachable, Reason: fmt.Sprintf("failed to encode sample: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/ingest", bytes.NewReader(body))
	if err != nil {
		return SendResult{Outcome: Unreachable, Reason: fmt.Sprintf("failed to build request: %v", err)}
	}

	t.setAuthHeaders(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Warn().Err(err).Msg("collector unreachable")
		return SendResult{Outcome: Unreachable, Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return t.handleAccepted(resp)
	case http.StatusUnauthorized:
		t.logger.Error().Msg("collector rejected device certificate")
		return SendResult{Outcome: Rejected, Reason: "invalid device certificate"}
	case http.StatusForbidden:
		t.logger.Error().
			Str("mac_address", t.macAddress).
			Msg("device not authorized, contact an administrator to whitelist it")

		return SendResult{Outcome: Rejected, Reason: "device not authorized"}
	default:
		return SendResult{Outcome: Unreachable, Reason: fmt.Sprintf("collector returned status %d", resp.StatusCode)}
	}
}

func (t *Transport) handleAccepted(resp *http.Response) SendResult {
	var parsed models.IngestResponse

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&parsed); err != nil {
		// Accepted but unreadable reply; the sample is delivered.
		return SendResult{Outcome: Delivered}
	}

	result := SendResult{Outcome: Delivered, FingerprintCheck: parsed.FingerprintCheck}

	if parsed.Status == models.IngestStatusPartialSuccess {
		t.logger.Warn().Str("reason", parsed.Reason).Msg("collector stored sample without cleaning")
	}

	if fp := parsed.FingerprintCheck; fp != nil {
		event := t.logger.Info()
		if fp.RiskLevel == "high" {
			event = t.logger.Warn()
		}

		event.
			Str("risk_level", fp.RiskLevel).
			Float64("similarity", fp.SimilarityScore).
			Msg(fp.Message)
	}

	return result
}

func (t *Transport) setAuthHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("MAC-Address", t.macAddress)
	req.Header.Set("Device-Certificate", identity.Certificate(t.macAddress, t.secretKey))
}

// CheckCollector probes the collector's health endpoint and the device's
// registration status at startup. Informational only; the agent runs
// regardless and falls back to CSV buffering when the collector is down.
func (t *Transport) CheckCollector(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/health", http.NoBody)
	if err != nil {
		return false
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Warn().Err(err).Str("url", t.baseURL).Msg("collector health check failed")
		return false
	}

	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.logger.Warn().Int("status", resp.StatusCode).Msg("collector reported unhealthy")
		return false
	}

	t.checkRegistration(ctx)

	return true
}

func (t *Transport) checkRegistration(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/admin/devices/"+t.macAddress, http.NoBody)
	if err != nil {
		return
	}

	t.setAuthHeaders(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		var device models.AuthorizedDevice
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&device); err == nil {
			t.logger.Info().Str("device_name", device.DeviceName).Msg("device is whitelisted")
		}
	case http.StatusNotFound:
		t.logger.Warn().
			Str("mac_address", t.macAddress).
			Msg("device not yet whitelisted, fingerprint checks still apply")
	default:
		t.logger.Warn().Int("status", resp.StatusCode).Msg("could not determine registration status")
	}
}
