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
	"os/signal"
	"syscall"

	"github.com/carverauto/powermon/pkg/agent"
	"github.com/carverauto/powermon/pkg/config"
	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/powermon/agent.json", "Path to agent config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg models.AgentConfig

	cfgLoader := config.NewConfig(nil)
	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	agentLogger, err := logger.New(logConfig, "agent")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a, err := agent.New(&cfg, agentLogger)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("agent error: %w", err)
	}

	return nil
}
