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

// Package core implements the collector's ingestion pipeline: persist the
// raw sample, hand it to the cleaning service, persist the cleaned result,
// and degrade to partial success when cleaning is unavailable.
package core

import (
	"context"
	"time"

	"github.com/carverauto/powermon/pkg/core/auth"
	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

const cleanTimeout = 10 * time.Second

// RawWriter persists raw records.
type RawWriter interface {
	InsertRaw(ctx context.Context, record *models.RawRecord) error
}

// CleanedWriter persists cleaned records.
type CleanedWriter interface {
	InsertCleaned(ctx context.Context, record *models.CleanedRecord) error
}

// Cleaner is the external cleaning collaborator.
type Cleaner interface {
	Clean(ctx context.Context, record *models.RawRecord) (*models.CleanedRecord, error)
}

// Fingerprinter annotates samples with a hardware fingerprint assessment.
// A nil assessment leaves the record unannotated.
type Fingerprinter interface {
	Check(ctx context.Context, sample *models.Sample) *models.FingerprintCheck
}

// Outcome classifies one ingest attempt.
type Outcome int

const (
	// OutcomeSuccess means both raw and cleaned records were stored.
	OutcomeSuccess Outcome = iota
	// OutcomePartialSuccess means the raw record was stored but cleaning
	// failed; the reason travels back to the agent for visibility.
	OutcomePartialSuccess
	// OutcomeFailure means the raw write failed and nothing was kept.
	OutcomeFailure
)

// Result is the pipeline's report for one sample.
type Result struct {
	Outcome          Outcome
	Reason           string
	FingerprintCheck *models.FingerprintCheck
}

// Service is the ingestion pipeline.
type Service struct {
	rawStore     RawWriter
	cleanedStore CleanedWriter
	cleaner      Cleaner
	fingerprint  Fingerprinter
	logger       logger.Logger
}

// NewService builds the pipeline. fingerprint may be nil to disable
// fingerprint annotation.
func NewService(raw RawWriter, cleaned CleanedWriter, cleaner Cleaner, fingerprint Fingerprinter, log logger.Logger) *Service {
	return &Service{
		rawStore:     raw,
		cleanedStore: cleaned,
		cleaner:      cleaner,
		fingerprint:  fingerprint,
		logger:       log,
	}
}

// Ingest processes one authenticated sample. The raw write commits before
// the cleaning call is made, so a slow or hung cleaner can never block or
// undo raw persistence. Only a raw-write failure is fatal.
func (s *Service) Ingest(ctx context.Context, sample *models.Sample, authResult *auth.Result) (*Result, error) {
	record := &models.RawRecord{Sample: *sample}

	var check *models.FingerprintCheck

	if s.fingerprint != nil {
		if check = s.fingerprint.Check(ctx, sample); check != nil {
			record.DeviceFingerprint = check.Fingerprint
			record.RiskLevel = check.RiskLevel
			record.SimilarityScore = check.SimilarityScore
		}
	}

	if err := s.rawStore.InsertRaw(ctx, record); err != nil {
		s.logger.Error().
			Err(err).
			Str("device_id", sample.DeviceID).
			Msg("failed to persist raw record")

		return &Result{Outcome: OutcomeFailure, Reason: err.Error()}, err
	}

	cleanCtx, cancel := context.WithTimeout(ctx, cleanTimeout)
	defer cancel()

	cleaned, err := s.cleaner.Clean(cleanCtx, record)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("device_id", sample.DeviceID).
			Str("auth_method", authResult.Method).
			Msg("cleaning failed, raw record kept")

		return &Result{
			Outcome:          OutcomePartialSuccess,
			Reason:           err.Error(),
			FingerprintCheck: check,
		}, nil
	}

	if err := s.cleanedStore.InsertCleaned(ctx, cleaned); err != nil {
		// Raw data is already durable; a cleaned-write failure degrades
		// the same way a cleaner outage does.
		s.logger.Warn().
			Err(err).
			Str("device_id", sample.DeviceID).
			Msg("failed to persist cleaned record, raw record kept")

		return &Result{
			Outcome:          OutcomePartialSuccess,
			Reason:           err.Error(),
			FingerprintCheck: check,
		}, nil
	}

	s.logger.Info().
		Str("device_id", sample.DeviceID).
		Str("auth_method", authResult.Method).
		Msg("sample ingested")

	return &Result{Outcome: OutcomeSuccess, FingerprintCheck: check}, nil
}
