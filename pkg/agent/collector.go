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
	"math"
	"os/exec"
	"os/user"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	gopsnet "github.com/shirou/gopsutil/v3/net"

	"github.com/carverauto/powermon/pkg/models"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	// cpuPowerFactor converts CPU utilization percent to an estimated
	// package draw in watts.
	cpuPowerFactor = 0.5
	// memoryPowerFactor folds memory pressure into the derived system
	// power figure.
	memoryPowerFactor = 0.1

	diskSampleWindow = time.Second
	bytesPerMB       = 1024 * 1024
)

// Collection seams for tests.
var (
	cpuPercent     = cpu.PercentWithContext
	virtualMemory  = mem.VirtualMemoryWithContext
	diskIOCounters = disk.IOCountersWithContext
	hostInfo       = host.InfoWithContext
	diskPartitions = disk.PartitionsWithContext
	netInterfaces  = gopsnet.InterfacesWithContext
	nvidiaQuery    = runNvidiaSMI
)

// MetricsCollector reads the hardware metrics a sample is built from. GPU
// queries shell out to nvidia-smi and fall back to zero values on machines
// without one; those failures are expected and carry no detail.
type MetricsCollector struct {
	userID   string
	location string
	deviceID string
}

// NewMetricsCollector creates a collector bound to the agent's identity.
func NewMetricsCollector(userID, location, deviceID string) *MetricsCollector {
	if userID == "" {
		if current, err := user.Current(); err == nil {
			userID = current.Username
		}
	}

	return &MetricsCollector{
		userID:   userID,
		location: location,
		deviceID: deviceID,
	}
}

// CollectVector reads the lightweight metric set used for change gating.
// The disk counters are sampled over a one-second window, which also
// self-throttles the sampling cycle.
func (c *MetricsCollector) CollectVector(ctx context.Context) models.MetricVector {
	var vector models.MetricVector

	readBefore, writeBefore, okBefore := diskTotals(ctx)

	// cpu.Percent with a window doubles as the disk sampling delay.
	if percents, err := cpuPercent(ctx, diskSampleWindow, false); err == nil && len(percents) > 0 {
		vector.CPUPowerWatt = round2(percents[0] * cpuPowerFactor)
	}

	if okBefore {
		if readAfter, writeAfter, ok := diskTotals(ctx); ok {
			seconds := diskSampleWindow.Seconds()
			vector.DiskReadMBs = round2(float64(readAfter-readBefore) / bytesPerMB / seconds)
			vector.DiskWriteMBs = round2(float64(writeAfter-writeBefore) / bytesPerMB / seconds)
		}
	}

	if vm, err := virtualMemory(ctx); err == nil {
		vector.MemoryUsedMB = float64(vm.Used) / bytesPerMB
	}

	vector.GPUPowerWatt = gpuPowerWatt()

	return vector
}

// BuildSample assembles a full sample from a gating vector, adding the GPU
// model, enhanced hardware info, and device identity fields.
func (c *MetricsCollector) BuildSample(ctx context.Context, vector models.MetricVector) *models.Sample {
	sample := &models.Sample{
		TimestampUTC:    Timestamp(),
		GPUModel:        gpuModel(),
		GPUUsagePct:     gpuUsagePercent(),
		GPUPowerWatt:    vector.GPUPowerWatt,
		CPUPowerWatt:    vector.CPUPowerWatt,
		MemoryUsedMB:    vector.MemoryUsedMB,
		DiskReadMBs:     vector.DiskReadMBs,
		DiskWriteMBs:    vector.DiskWriteMBs,
		SystemPowerWatt: systemPowerWatt(vector),
		DeviceID:        c.deviceID,
		UserID:          c.userID,
		AgentVersion:    Version,
		OSType:          runtime.GOOS,
		Location:        c.location,
		EnhancedInfo:    enhancedSystemInfo(ctx),
	}

	if info, err := hostInfo(ctx); err == nil {
		sample.OSType = info.Platform
		sample.OSVersion = info.PlatformVersion
	}

	return sample
}

// Timestamp returns the current time in the wire format: UTC, millisecond
// precision, trailing Z.
func Timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000") + "Z"
}

func systemPowerWatt(vector models.MetricVector) float64 {
	return round2(vector.CPUPowerWatt + vector.GPUPowerWatt + vector.MemoryUsedMB*memoryPowerFactor)
}

func diskTotals(ctx context.Context) (read, write uint64, ok bool) {
	counters, err := diskIOCounters(ctx)
	if err != nil || len(counters) == 0 {
		return 0, 0, false
	}

	for _, stat := range counters {
		read += stat.ReadBytes
		write += stat.WriteBytes
	}

	return read, write, true
}

// enhancedSystemInfo gathers the hardware facts used for device
// fingerprinting. Best effort; missing facts are simply absent.
func enhancedSystemInfo(ctx context.Context) map[string]interface{} {
	info := make(map[string]interface{})

	if stats, err := cpu.InfoWithContext(ctx); err == nil && len(stats) > 0 {
		info["cpu_model"] = stats[0].ModelName
		info["cpu_count"] = len(stats)
	}

	if vm, err := virtualMemory(ctx); err == nil {
		info["total_memory"] = vm.Total
	}

	if parts, err := diskPartitions(ctx, false); err == nil {
		info["disk_partitions"] = len(parts)
	}

	if ifaces, err := netInterfaces(ctx); err == nil {
		info["network_interfaces"] = len(ifaces)
	}

	info["platform_architecture"] = runtime.GOARCH

	if len(info) == 1 {
		// Architecture alone fingerprints nothing.
		return nil
	}

	return info
}

func gpuModel() string {
	out, err := nvidiaQuery("--query-gpu=gpu_name", "--format=csv,noheader")
	if err != nil || out == "" {
		return "Unknown"
	}

	return out
}

func gpuUsagePercent() float64 {
	return nvidiaFloat("--query-gpu=utilization.gpu")
}

func gpuPowerWatt() float64 {
	return nvidiaFloat("--query-gpu=power.draw")
}

func nvidiaFloat(query string) float64 {
	out, err := nvidiaQuery(query, "--format=csv,noheader,nounits")
	if err != nil || out == "" {
		return 0
	}

	value, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0
	}

	return value
}

func runNvidiaSMI(args ...string) (string, error) {
	out, err := exec.Command("nvidia-smi", args...).Output()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
