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

// Package fingerprint derives a stable hardware fingerprint from a
// sample's enhanced hardware facts and scores it against the device's
// history. Everything here is best-effort: a sample without enhanced info
// simply goes unannotated.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

// Risk levels reported back to the agent.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

const fingerprintHexLen = 16

// HistoryReader returns the last stored fingerprint for a device, or ""
// when the device has none.
type HistoryReader interface {
	LatestFingerprint(ctx context.Context, deviceID string) (string, error)
}

// Checker annotates raw records with fingerprint assessments.
type Checker struct {
	history HistoryReader
	logger  logger.Logger
}

// NewChecker creates a fingerprint checker over the device's stored history.
func NewChecker(history HistoryReader, log logger.Logger) *Checker {
	return &Checker{
		history: history,
		logger:  log,
	}
}

// Compute derives the fingerprint for a set of enhanced hardware facts.
// Deterministic: the same facts always hash to the same value.
func Compute(enhanced map[string]interface{}, deviceID string) string {
	if len(enhanced) == 0 {
		return ""
	}

	keys := make([]string, 0, len(enhanced))
	for k := range enhanced {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString(deviceID)

	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, enhanced[k])
	}

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])[:fingerprintHexLen]
}

// Check computes the sample's fingerprint, compares it with the device's
// last stored one, and returns the assessment. A nil result means the
// sample carries no enhanced info and stays unannotated.
func (c *Checker) Check(ctx context.Context, sample *models.Sample) *models.FingerprintCheck {
	current := Compute(sample.EnhancedInfo, sample.DeviceID)
	if current == "" {
		return nil
	}

	previous, err := c.history.LatestFingerprint(ctx, sample.DeviceID)
	if err != nil {
		c.logger.Warn().Err(err).Str("device_id", sample.DeviceID).Msg("fingerprint history lookup failed")
		return nil
	}

	check := &models.FingerprintCheck{Fingerprint: current}

	switch {
	case previous == "":
		check.SimilarityScore = 1.0
		check.RiskLevel = RiskLow
		check.Message = "first fingerprint recorded for device"
	case previous == current:
		check.SimilarityScore = 1.0
		check.RiskLevel = RiskLow
		check.Message = "hardware fingerprint matches history"
	default:
		check.SimilarityScore = similarity(previous, current)
		check.Message = "hardware fingerprint changed since last sample"

		if check.SimilarityScore >= 0.5 {
			check.RiskLevel = RiskMedium
		} else {
			check.RiskLevel = RiskHigh
		}
	}

	return check
}

// similarity is the fraction of hex positions two fingerprints share.
// Crude, but enough to separate a swapped disk from a cloned identity.
func similarity(a, b string) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	matches := 0

	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(a))
}
