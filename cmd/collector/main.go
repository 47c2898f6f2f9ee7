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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/carverauto/powermon/pkg/cleaner"
	"github.com/carverauto/powermon/pkg/config"
	"github.com/carverauto/powermon/pkg/core"
	"github.com/carverauto/powermon/pkg/core/api"
	"github.com/carverauto/powermon/pkg/core/auth"
	"github.com/carverauto/powermon/pkg/db"
	"github.com/carverauto/powermon/pkg/fingerprint"
	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
	"github.com/carverauto/powermon/pkg/registry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/powermon/collector.json", "Path to collector config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg models.CollectorConfig

	cfgLoader := config.NewConfig(nil)
	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	coreLogger, err := logger.New(logConfig, "collector")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	database, err := db.New(ctx, cfg.Database, coreLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	deviceRegistry := registry.NewDeviceRegistry(database, coreLogger)

	authGate := auth.NewGate(deviceRegistry, auth.Config{
		SecretKey:         cfg.AuthSecretKey,
		CompatibilityMode: *cfg.CompatibilityMode,
		AllowedIPs:        cfg.AllowedIPs,
	}, coreLogger)

	cleanerClient := cleaner.NewClient(cfg.CleanerURL)
	checker := fingerprint.NewChecker(database, coreLogger)
	ingestService := core.NewService(database, database, cleanerClient, checker, coreLogger)

	server := api.NewAPIServer(cfg.CORS, coreLogger,
		api.WithIngestor(ingestService),
		api.WithDeviceManager(deviceRegistry),
		api.WithAuthGate(authGate),
		api.WithDatabase(database),
		api.WithCleanerProbe(cleanerClient),
		api.WithMetricsSource(database),
	)

	coreLogger.Info().Str("addr", cfg.ListenAddr).Msg("collector starting")

	if err := server.Start(ctx, cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("collector error: %w", err)
	}

	return nil
}
