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

// Package agent implements the telemetry agent: metric collection,
// adaptive sampling, delivery to the collector, and offline buffering.
package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/powermon/pkg/identity"
	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

// Agent ties the sampling controller, transport, and offline buffer
// together for one device.
type Agent struct {
	config     *models.AgentConfig
	deviceID   string
	controller *Controller
	transport  *Transport
	buffer     *OfflineBuffer
	activity   *ActivityMonitor
	logger     logger.Logger
}

// New builds an agent from its config. The device identity is resolved
// once here; everything downstream authenticates as that MAC address.
func New(cfg *models.AgentConfig, log logger.Logger) (*Agent, error) {
	mac := identity.MACAddress()
	if mac == identity.FallbackMAC {
		log.Warn().Msg("no usable network interface found, using fallback device identity")
	}

	transport := NewTransport(cfg.CollectorURL, mac, cfg.AuthSecretKey, log)
	buffer := NewOfflineBuffer(cfg.BufferDir, cfg.BufferBatchSize, log)
	activity := NewActivityMonitor(log)
	collector := NewMetricsCollector(cfg.UserID, cfg.Location, mac)

	a := &Agent{
		config:    cfg,
		deviceID:  mac,
		transport: transport,
		buffer:    buffer,
		activity:  activity,
		logger:    log,
	}

	controller, err := NewController(cfg, collector, a, activity, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build sampling controller: %w", err)
	}

	a.controller = controller

	return a, nil
}

// Run starts the activity monitor and the sampling loop, blocking until
// the context is cancelled. Pending buffered samples are flushed on the
// way out.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info().
		Str("device_id", a.deviceID).
		Str("collector", a.config.CollectorURL).
		Msg("agent starting")

	if !a.transport.CheckCollector(ctx) {
		a.logger.Warn().Msg("collector not reachable at startup, samples will buffer locally")
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.activity.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		return a.controller.Run(gCtx)
	})

	err := g.Wait()

	if flushErr := a.buffer.Flush(); flushErr != nil {
		a.logger.Error().Err(flushErr).Msg("failed to flush buffered samples on shutdown")
	}

	return err
}

// Ship delivers one sample, buffering it locally whenever delivery did
// not succeed. Rejections are buffered too: they usually mean the device
// is not registered yet, and the samples can be replayed once it is.
func (a *Agent) Ship(ctx context.Context, sample *models.Sample) {
	result := a.transport.Send(ctx, sample)

	switch result.Outcome {
	case Delivered:
		a.logger.Debug().Str("timestamp", sample.TimestampUTC).Msg("sample delivered")
		return
	case Rejected:
		a.logger.Error().Str("reason", result.Reason).Msg("sample rejected by collector")
	case Unreachable:
		a.logger.Warn().Str("reason", result.Reason).Msg("collector unreachable")
	}

	if !a.config.FallbackToCSV {
		a.logger.Warn().Msg("offline fallback disabled, sample dropped")
		return
	}

	if err := a.buffer.Append(sample); err != nil {
		a.logger.Error().Err(err).Msg("failed to buffer sample")
		return
	}

	a.logger.Info().
		Int("pending", a.buffer.Pending()).
		Msg("sample buffered for later delivery")
}
