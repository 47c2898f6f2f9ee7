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
	"github.com/carverauto/powermon/pkg/models"
)

// Ingestor is the ingestion pipeline behind POST /ingest.
type Ingestor interface {
	Ingest(ctx context.Context, sample *models.Sample, authResult *auth.Result) (*core.Result, error)
}

// DeviceManager is the registry surface behind the admin endpoints.
type DeviceManager interface {
	Add(ctx context.Context, mac, name, user, notes string) (bool, error)
	Remove(ctx context.Context, mac string) (bool, error)
	Get(ctx context.Context, mac string) (*models.AuthorizedDevice, error)
	List(ctx context.Context) ([]models.AuthorizedDevice, error)
}

// AuthVerifier is the gate in front of ingestion.
type AuthVerifier interface {
	Verify(ctx context.Context, mac, certificate, remoteIP string) (*auth.Result, error)
}

// Pinger reports database connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthProber reports cleaning-service availability.
type HealthProber interface {
	Healthy(ctx context.Context) bool
}

// MetricsSource backs the /metrics endpoint.
type MetricsSource interface {
	DailyCounts(ctx context.Context, day time.Time) (raw, cleaned int64, err error)
	CountActiveDevices(ctx context.Context) (int64, error)
}
