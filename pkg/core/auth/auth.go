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

// Package auth implements the device authentication gate in front of
// ingestion: full HMAC verification for current agents, an IP-based
// compatibility path for legacy agents, and a strict mode that closes the
// migration window.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/carverauto/powermon/pkg/identity"
	"github.com/carverauto/powermon/pkg/logger"
)

// Header names shared with the agent.
const (
	HeaderMACAddress  = "MAC-Address"
	HeaderCertificate = "Device-Certificate"
)

// Authentication methods reported in the ingest response.
const (
	MethodFullAuth    = "full_auth"
	MethodIPWhitelist = "ip_whitelist"
	MethodLegacyMode  = "legacy_mode"
)

// Rejection reasons. Each maps to a distinct HTTP status so an operator
// can tell a whitelist problem from a certificate problem.
var (
	ErrDeviceNotAuthorized = errors.New("device not authorized")
	ErrInvalidCertificate  = errors.New("invalid device certificate")
	ErrMissingAuthHeaders  = errors.New("missing authentication headers, please upgrade your agent")
)

// Result is a successful admission. Exactly one mode produced it.
type Result struct {
	MACAddress string
	Method     string
}

// RejectionStatus maps a gate rejection to its HTTP status code.
func RejectionStatus(err error) int {
	switch {
	case errors.Is(err, ErrDeviceNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidCertificate), errors.Is(err, ErrMissingAuthHeaders):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Config controls the gate's compatibility behavior.
type Config struct {
	SecretKey         string
	CompatibilityMode bool
	AllowedIPs        []string
}

// Gate evaluates the three authentication modes in strict order.
type Gate struct {
	directory DeviceDirectory
	config    Config
	logger    logger.Logger
}

// NewGate creates an authentication gate over the device directory.
func NewGate(directory DeviceDirectory, config Config, log logger.Logger) *Gate {
	return &Gate{
		directory: directory,
		config:    config,
		logger:    log,
	}
}

// Verify runs the ordered mode chain for one inbound request. mac and
// certificate are the raw header values; remoteIP is the caller's network
// address. On success the device's last_seen is updated (full auth only).
func (g *Gate) Verify(ctx context.Context, mac, certificate, remoteIP string) (*Result, error) {
	// Mode 1: both headers present, full verification.
	if mac != "" && certificate != "" {
		return g.verifyFull(ctx, mac, certificate)
	}

	// Mode 2: legacy agent without headers, compatibility window open.
	if g.config.CompatibilityMode {
		return g.admitLegacy(remoteIP), nil
	}

	// Mode 3: window closed, reject.
	g.logger.Warn().Str("remote_ip", remoteIP).Msg("rejected request without auth headers")

	return nil, ErrMissingAuthHeaders
}

func (g *Gate) verifyFull(ctx context.Context, mac, certificate string) (*Result, error) {
	normalized := identity.Normalize(mac)

	authorized, err := g.directory.IsAuthorized(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("authorization lookup failed: %w", err)
	}

	if !authorized {
		g.logger.Warn().Str("mac_address", normalized).Msg("unauthorized device attempted access")
		return nil, ErrDeviceNotAuthorized
	}

	if !identity.Verify(normalized, g.config.SecretKey, certificate) {
		g.logger.Warn().Str("mac_address", normalized).Msg("device presented invalid certificate")
		return nil, ErrInvalidCertificate
	}

	if err := g.directory.TouchLastSeen(ctx, normalized); err != nil {
		// Bookkeeping only; never blocks an otherwise valid request.
		g.logger.Warn().Err(err).Str("mac_address", normalized).Msg("failed to update last_seen")
	}

	g.logger.Info().Str("mac_address", normalized).Msg("authorized device accessed")

	return &Result{MACAddress: normalized, Method: MethodFullAuth}, nil
}

// admitLegacy admits a headerless request with a synthetic identity. An IP
// allow-list match and the default fallback are logged as distinct methods
// so remaining legacy traffic can be measured before closing the window.
func (g *Gate) admitLegacy(remoteIP string) *Result {
	syntheticID := "legacy-" + remoteIP

	for _, allowed := range g.config.AllowedIPs {
		if allowed == remoteIP {
			g.logger.Info().Str("remote_ip", remoteIP).Msg("legacy agent allowed by IP whitelist")
			return &Result{MACAddress: syntheticID, Method: MethodIPWhitelist}
		}
	}

	g.logger.Warn().Str("remote_ip", remoteIP).Msg("legacy agent allowed in compatibility mode")

	return &Result{MACAddress: syntheticID, Method: MethodLegacyMode}
}
