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

// Package api provides the HTTP API server for the powermon collector
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	pmHttp "github.com/carverauto/powermon/pkg/http"
	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// APIServer exposes the collector's HTTP surface: ingestion, device
// administration, and the read-only health and metrics endpoints.
type APIServer struct {
	router     *mux.Router
	httpServer *http.Server
	corsConfig models.CORSConfig
	logger     logger.Logger

	ingestor      Ingestor
	devices       DeviceManager
	authGate      AuthVerifier
	database      Pinger
	cleanerProbe  HealthProber
	metricsSource MetricsSource
}

// NewAPIServer creates a new API server instance with the given configuration
func NewAPIServer(cors models.CORSConfig, log logger.Logger, options ...func(*APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: cors,
		logger:     log,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithIngestor adds the ingestion pipeline to the API server
func WithIngestor(i Ingestor) func(*APIServer) {
	return func(server *APIServer) {
		server.ingestor = i
	}
}

// WithDeviceManager adds the device registry to the API server
func WithDeviceManager(d DeviceManager) func(*APIServer) {
	return func(server *APIServer) {
		server.devices = d
	}
}

// WithAuthGate adds the authentication gate to the API server
func WithAuthGate(g AuthVerifier) func(*APIServer) {
	return func(server *APIServer) {
		server.authGate = g
	}
}

// WithDatabase adds the database ping source to the API server
func WithDatabase(p Pinger) func(*APIServer) {
	return func(server *APIServer) {
		server.database = p
	}
}

// WithCleanerProbe adds the cleaning-service health probe to the API server
func WithCleanerProbe(h HealthProber) func(*APIServer) {
	return func(server *APIServer) {
		server.cleanerProbe = h
	}
}

// WithMetricsSource adds the metrics reader to the API server
func WithMetricsSource(m MetricsSource) func(*APIServer) {
	return func(server *APIServer) {
		server.metricsSource = m
	}
}

func (s *APIServer) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return pmHttp.CommonMiddleware(next, s.corsConfig, s.logger)
	})

	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/ingest", s.handleIngest).Methods(http.MethodPost)

	admin := s.router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/devices", s.handleListDevices).Methods(http.MethodGet)
	admin.HandleFunc("/devices", s.handleAddDevice).Methods(http.MethodPost)
	admin.HandleFunc("/devices/{mac}", s.handleGetDevice).Methods(http.MethodGet)
	admin.HandleFunc("/devices/{mac}", s.handleRemoveDevice).Methods(http.MethodDelete)
}

// Router returns the underlying router, mainly for tests.
func (s *APIServer) Router() *mux.Router {
	return s.router
}

// Start runs the HTTP server until the context is cancelled.
func (s *APIServer) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", addr).Msg("collector API listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
