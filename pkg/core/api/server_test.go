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
	"context"
	"time"

	"github.com/carverauto/powermon/pkg/core"
	"github.com/carverauto/powermon/pkg/core/auth"
	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

type fakeIngestor struct {
	result *core.Result
	err    error
	seen   []*models.Sample
}

func (f *fakeIngestor) Ingest(_ context.Context, sample *models.Sample, _ *auth.Result) (*core.Result, error) {
	f.seen = append(f.seen, sample)

	if f.err != nil {
		return nil, f.err
	}

	return f.result, nil
}

type fakeAuthGate struct {
	result *auth.Result
	err    error
}

func (f *fakeAuthGate) Verify(_ context.Context, _, _, _ string) (*auth.Result, error) {
	return f.result, f.err
}

type fakeDeviceManager struct {
	devices map[string]*models.AuthorizedDevice
	added   bool
	removed bool
	err     error
}

func (f *fakeDeviceManager) Add(_ context.Context, _, _, _, _ string) (bool, error) {
	return f.added, f.err
}

func (f *fakeDeviceManager) Remove(_ context.Context, _ string) (bool, error) {
	return f.removed, f.err
}

func (f *fakeDeviceManager) Get(_ context.Context, mac string) (*models.AuthorizedDevice, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.devices[mac], nil
}

func (f *fakeDeviceManager) List(_ context.Context) ([]models.AuthorizedDevice, error) {
	if f.err != nil {
		return nil, f.err
	}

	out := make([]models.AuthorizedDevice, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, *d)
	}

	return out, nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error {
	return f.err
}

type fakeProbe struct {
	healthy bool
}

func (f *fakeProbe) Healthy(_ context.Context) bool {
	return f.healthy
}

type fakeMetricsSource struct {
	raw     int64
	cleaned int64
	devices int64
	err     error
}

func (f *fakeMetricsSource) DailyCounts(_ context.Context, _ time.Time) (int64, int64, error) {
	return f.raw, f.cleaned, f.err
}

func (f *fakeMetricsSource) CountActiveDevices(_ context.Context) (int64, error) {
	return f.devices, f.err
}

func newTestServer(options ...func(*APIServer)) *APIServer {
	return NewAPIServer(models.CORSConfig{}, logger.NewTestLogger(), options...)
}
