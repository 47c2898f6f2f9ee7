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

package agent

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

const defaultBufferBatchSize = 50

var csvHeader = []string{
	"timestamp_utc",
	"gpu_model",
	"gpu_usage_percent",
	"gpu_power_watt",
	"cpu_power_watt",
	"memory_used_mb",
	"disk_read_mb_s",
	"disk_write_mb_s",
	"system_power_watt",
	"device_id",
	"user_id",
	"agent_version",
	"os_type",
	"os_version",
	"location",
	"cpu_model",
	"cpu_count",
	"total_memory",
	"disk_partitions",
	"network_interfaces",
	"platform_architecture",
}

// enhancedColumns are the EnhancedInfo keys flattened into each row, in
// header order. Buffered samples keep the facts fingerprinting needs.
var enhancedColumns = []string{
	"cpu_model",
	"cpu_count",
	"total_memory",
	"disk_partitions",
	"network_interfaces",
	"platform_architecture",
}

// OfflineBuffer accumulates samples that could not be delivered and
// spills them to numbered CSV files once a batch fills up. The pending
// batch is cleared only after its file is fully written, so a failed
// write loses nothing.
type OfflineBuffer struct {
	mu        sync.Mutex
	dir       string
	batchSize int
	fileIndex int
	pending   []*models.Sample
	logger    logger.Logger
}

// NewOfflineBuffer creates a buffer writing batches under dir. The
// directory is created on first flush, not here; an agent that never
// goes offline never touches the disk.
func NewOfflineBuffer(dir string, batchSize int, log logger.Logger) *OfflineBuffer {
	if batchSize <= 0 {
		batchSize = defaultBufferBatchSize
	}

	return &OfflineBuffer{
		dir:       dir,
		batchSize: batchSize,
		logger:    log,
	}
}

// Append queues one sample and flushes when the batch is full. A flush
// failure keeps the batch in memory for the next attempt.
func (b *OfflineBuffer) Append(sample *models.Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, sample)

	if len(b.pending) < b.batchSize {
		return nil
	}

	return b.flushLocked()
}

// Flush writes any pending samples out regardless of batch size. Called
// on shutdown so a partial batch survives a restart.
func (b *OfflineBuffer) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}

	return b.flushLocked()
}

// Pending reports how many samples are queued but not yet on disk.
func (b *OfflineBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.pending)
}

func (b *OfflineBuffer) flushLocked() error {
	if err := os.MkdirAll(b.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create buffer directory: %w", err)
	}

	path := b.nextPathLocked()

	if err := writeCSV(path, b.pending); err != nil {
		b.logger.Error().Err(err).Str("path", path).Msg("failed to write buffer file, batch retained")
		return err
	}

	b.logger.Info().
		Str("path", path).
		Int("samples", len(b.pending)).
		Msg("buffered samples written to disk")

	b.pending = b.pending[:0]

	return nil
}

// nextPathLocked picks the next unused agent_data_<n>.csv name. Indices
// advance monotonically within a run and skip files left by earlier runs.
func (b *OfflineBuffer) nextPathLocked() string {
	for {
		path := filepath.Join(b.dir, fmt.Sprintf("agent_data_%d.csv", b.fileIndex))
		b.fileIndex++

		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
	}
}

func writeCSV(path string, samples []*models.Sample) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create buffer file: %w", err)
	}

	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, s := range samples {
		if err := w.Write(csvRow(s)); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush rows: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close buffer file: %w", err)
	}

	return nil
}

func csvRow(s *models.Sample) []string {
	row := []string{
		s.TimestampUTC,
		s.GPUModel,
		formatFloat(s.GPUUsagePct),
		formatFloat(s.GPUPowerWatt),
		formatFloat(s.CPUPowerWatt),
		formatFloat(s.MemoryUsedMB),
		formatFloat(s.DiskReadMBs),
		formatFloat(s.DiskWriteMBs),
		formatFloat(s.SystemPowerWatt),
		s.DeviceID,
		s.UserID,
		s.AgentVersion,
		s.OSType,
		s.OSVersion,
		s.Location,
	}

	for _, key := range enhancedColumns {
		row = append(row, enhancedValue(s.EnhancedInfo, key))
	}

	return row
}

func enhancedValue(info map[string]interface{}, key string) string {
	v, ok := info[key]
	if !ok {
		return ""
	}

	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatFloat(t)
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
