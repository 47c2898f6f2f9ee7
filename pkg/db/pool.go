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

package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

var errNilDatabaseConfig = errors.New("database configuration is required")

const defaultPostgresPort = 5432

// newPool dials the configured Postgres cluster and returns a pgx pool.
func newPool(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, errNilDatabaseConfig
	}

	conf := *cfg
	if conf.Port == 0 {
		conf.Port = defaultPostgresPort
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Path:   "/" + conf.Database,
	}

	if conf.Username != "" {
		if conf.Password != "" {
			connURL.User = url.UserPassword(conf.Username, conf.Password)
		} else {
			connURL.User = url.User(conf.Username)
		}
	}

	query := connURL.Query()

	sslMode := conf.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	query.Set("sslmode", sslMode)

	if conf.ApplicationName != "" {
		query.Set("application_name", conf.ApplicationName)
	}

	connURL.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("db: failed to parse connection string: %w", err)
	}

	if conf.MaxConnections > 0 {
		poolConfig.MaxConns = conf.MaxConnections
	}

	if conf.MinConnections > 0 {
		poolConfig.MinConns = conf.MinConnections
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("db: failed to initialize pool: %w", err)
	}

	if log != nil {
		log.Info().
			Str("host", conf.Host).
			Int("port", conf.Port).
			Int32("max_conns", poolConfig.MaxConns).
			Msg("connected to Postgres")
	}

	return pool, nil
}
