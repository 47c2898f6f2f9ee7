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

// Package cleaner is the HTTP client for the external data-cleaning service.
package cleaner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carverauto/powermon/pkg/models"
)

var errMissingCleanedData = errors.New("cleaning response missing cleaned_data")

const (
	defaultCleanTimeout  = 10 * time.Second
	defaultProbeTimeout  = 5 * time.Second
	maxCleanResponseSize = 1 << 20
)

// Client calls the cleaning service. Any non-200 response or transport
// error is a cleaning failure; the caller degrades to partial success.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a cleaning client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultCleanTimeout},
	}
}

type cleanResponse struct {
	CleanedData *models.CleanedRecord `json:"cleaned_data"`
}

// Clean submits a raw record for cleaning and returns the cleaned result.
func (c *Client) Clean(ctx context.Context, record *models.RawRecord) (*models.CleanedRecord, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode raw record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/clean", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build clean request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cleaning service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cleaning service returned status %d", resp.StatusCode)
	}

	var parsed cleanResponse

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCleanResponseSize)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("malformed cleaning response: %w", err)
	}

	if parsed.CleanedData == nil {
		return nil, errMissingCleanedData
	}

	return parsed.CleanedData, nil
}

// Healthy reports whether the cleaning service answers its health probe.
func (c *Client) Healthy(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}
