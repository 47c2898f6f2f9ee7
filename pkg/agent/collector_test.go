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
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/powermon/pkg/models"
)

func stubCollectionSeams(t *testing.T) {
	t.Helper()

	restoreCPU := cpuPercent
	restoreMem := virtualMemory
	restoreDisk := diskIOCounters
	restoreNvidia := nvidiaQuery

	t.Cleanup(func() {
		cpuPercent = restoreCPU
		virtualMemory = restoreMem
		diskIOCounters = restoreDisk
		nvidiaQuery = restoreNvidia
	})
}

func TestCollectVectorDerivesPower(t *testing.T) {
	stubCollectionSeams(t)

	cpuPercent = func(_ context.Context, _ time.Duration, _ bool) ([]float64, error) {
		return []float64{40.0}, nil
	}
	virtualMemory = func(_ context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Used: 8192 * bytesPerMB}, nil
	}

	reads := uint64(0)
	diskIOCounters = func(_ context.Context, _ ...string) (map[string]disk.IOCountersStat, error) {
		reads += 10 * bytesPerMB
		return map[string]disk.IOCountersStat{
			"sda": {ReadBytes: reads, WriteBytes: reads / 2},
		}, nil
	}
	nvidiaQuery = func(_ ...string) (string, error) {
		return "", errors.New("nvidia-smi not found")
	}

	vector := NewMetricsCollector("alex", "lab", "AA:BB:CC:DD:EE:FF").CollectVector(context.Background())

	assert.InDelta(t, 20.0, vector.CPUPowerWatt, 0.0001, "40 percent cpu at 0.5 W per point")
	assert.InDelta(t, 8192.0, vector.MemoryUsedMB, 0.0001)
	assert.InDelta(t, 10.0, vector.DiskReadMBs, 0.0001)
	assert.InDelta(t, 5.0, vector.DiskWriteMBs, 0.0001)
	assert.Zero(t, vector.GPUPowerWatt, "no GPU reads as zero draw")
}

func TestCollectVectorSurvivesProbeFailures(t *testing.T) {
	stubCollectionSeams(t)

	cpuPercent = func(_ context.Context, _ time.Duration, _ bool) ([]float64, error) {
		return nil, errors.New("no cpu stats")
	}
	virtualMemory = func(_ context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("no memory stats")
	}
	diskIOCounters = func(_ context.Context, _ ...string) (map[string]disk.IOCountersStat, error) {
		return nil, errors.New("no disk stats")
	}
	nvidiaQuery = func(_ ...string) (string, error) {
		return "", errors.New("nvidia-smi not found")
	}

	vector := NewMetricsCollector("alex", "lab", "AA:BB:CC:DD:EE:FF").CollectVector(context.Background())

	assert.Equal(t, models.MetricVector{}, vector, "probe failures degrade to zero values")
}

func TestSystemPowerWatt(t *testing.T) {
	vector := models.MetricVector{
		CPUPowerWatt: 20,
		GPUPowerWatt: 150,
		MemoryUsedMB: 8000,
	}

	assert.InDelta(t, 970.0, systemPowerWatt(vector), 0.0001, "cpu + gpu + memory*0.1")
}

func TestTimestampFormat(t *testing.T) {
	ts := Timestamp()

	require.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`), ts)

	parsed, err := time.Parse("2006-01-02T15:04:05.000", strings.TrimSuffix(ts, "Z"))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}

func TestBuildSampleCarriesIdentity(t *testing.T) {
	stubCollectionSeams(t)

	nvidiaQuery = func(args ...string) (string, error) {
		if args[0] == "--query-gpu=gpu_name" {
			return "NVIDIA GeForce RTX 4090", nil
		}

		return "42.5", nil
	}
	virtualMemory = func(_ context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Used: 8192 * bytesPerMB, Total: 64 * 1024 * bytesPerMB}, nil
	}

	c := NewMetricsCollector("alex", "lab-3", "AA:BB:CC:DD:EE:FF")

	sample := c.BuildSample(context.Background(), models.MetricVector{CPUPowerWatt: 20})

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", sample.DeviceID)
	assert.Equal(t, "alex", sample.UserID)
	assert.Equal(t, "lab-3", sample.Location)
	assert.Equal(t, Version, sample.AgentVersion)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", sample.GPUModel)
	assert.InDelta(t, 42.5, sample.GPUUsagePct, 0.0001)
	assert.NotEmpty(t, sample.TimestampUTC)
}

func TestGPUHelpersWithoutGPU(t *testing.T) {
	stubCollectionSeams(t)

	nvidiaQuery = func(_ ...string) (string, error) {
		return "", errors.New("executable not found")
	}

	assert.Equal(t, "Unknown", gpuModel())
	assert.Zero(t, gpuUsagePercent())
	assert.Zero(t, gpuPowerWatt())
}

func TestNvidiaFloatMalformedOutput(t *testing.T) {
	stubCollectionSeams(t)

	nvidiaQuery = func(_ ...string) (string, error) {
		return "[N/A]", nil
	}

	assert.Zero(t, nvidiaFloat("--query-gpu=power.draw"))
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 12.35, round2(12.346), 0.0001)
	assert.InDelta(t, 12.34, round2(12.344), 0.0001)
	assert.InDelta(t, -3.33, round2(-3.333), 0.0001)
}
