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
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/powermon/pkg/logger"
	"github.com/carverauto/powermon/pkg/models"
)

var (
	errClockFormat = errors.New("expected HH:MM")
	errClockRange  = errors.New("clock value out of range")
)

const (
	defaultSampleInterval  = 60 * time.Second
	defaultChangeThreshold = 5.0
)

// defaultScheduleWindows covers the standard teaching periods. Used when
// the config sets no windows of its own.
var defaultScheduleWindows = []models.ScheduleWindow{
	{Start: "08:10", End: "09:00"}, {Start: "09:10", End: "10:00"},
	{Start: "10:10", End: "11:00"}, {Start: "11:10", End: "12:00"},
	{Start: "13:25", End: "14:15"}, {Start: "14:20", End: "15:10"},
	{Start: "15:20", End: "16:10"}, {Start: "16:15", End: "17:05"},
}

// State is the sampling loop's position in its cycle.
type State int

const (
	// StateIdle means the controller is waiting for the next tick.
	StateIdle State = iota
	// StateEvaluating means the controller is checking triggers.
	StateEvaluating
	// StateSampling means a trigger held and metrics are being collected.
	StateSampling
)

// VectorCollector reads the gating metric vector and builds full samples.
type VectorCollector interface {
	CollectVector(ctx context.Context) models.MetricVector
	BuildSample(ctx context.Context, vector models.MetricVector) *models.Sample
}

// Shipper takes ownership of a finished sample. Delivery failures are the
// shipper's problem; the controller never retries.
type Shipper interface {
	Ship(ctx context.Context, sample *models.Sample)
}

// window is a schedule interval in minutes since local midnight, bounds
// inclusive.
type window struct {
	start int
	end   int
}

// Controller decides once per cycle whether a sample is worth collecting
// and sending: scheduled windows or a user-activity edge open the gate,
// and only a significant metric change passes it.
type Controller struct {
	collector VectorCollector
	shipper   Shipper
	activity  *ActivityMonitor
	logger    logger.Logger

	interval  time.Duration
	threshold float64
	windows   []window

	// previous is the last gating vector judged significant. Owned
	// exclusively by the sampling loop.
	previous models.MetricVector
	state    State

	now func() time.Time
}

// NewController builds a sampling controller from the agent config.
func NewController(cfg *models.AgentConfig, collector VectorCollector, shipper Shipper, activity *ActivityMonitor, log logger.Logger) (*Controller, error) {
	interval := defaultSampleInterval
	if cfg.SampleIntervalSec > 0 {
		interval = time.Duration(cfg.SampleIntervalSec) * time.Second
	}

	threshold := cfg.ChangeThreshold
	if threshold <= 0 {
		threshold = defaultChangeThreshold
	}

	configured := cfg.ScheduleWindows
	if len(configured) == 0 {
		configured = defaultScheduleWindows
	}

	windows, err := parseWindows(configured)
	if err != nil {
		return nil, err
	}

	return &Controller{
		collector: collector,
		shipper:   shipper,
		activity:  activity,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		windows:   windows,
		now:       time.Now,
	}, nil
}

// Run drives the sampling cycle until the context is cancelled. Each
// cycle is strictly sequential: trigger evaluation, collection, gating,
// shipping. A slow collection naturally delays the next tick.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info().
		Dur("interval", c.interval).
		Float64("threshold", c.threshold).
		Int("schedule_windows", len(c.windows)).
		Msg("Starting sampling loop")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Sampling loop stopping due to context cancellation")
			return ctx.Err()

		case <-ticker.C:
			c.cycle(ctx)
		}
	}
}

func (c *Controller) cycle(ctx context.Context) {
	c.state = StateEvaluating
	defer func() { c.state = StateIdle }()

	inWindow := c.inScheduledWindow(c.now())
	userActive := c.activity.Consume()

	if !inWindow && !userActive {
		return
	}

	c.state = StateSampling

	vector := c.collector.CollectVector(ctx)

	changed := significantChanges(vector, c.previous, c.threshold)
	if len(changed) == 0 {
		return
	}

	c.logger.Debug().
		Strs("metrics", changed).
		Bool("scheduled", inWindow).
		Bool("user_active", userActive).
		Msg("significant change detected")

	sample := c.collector.BuildSample(ctx, vector)
	c.shipper.Ship(ctx, sample)

	// Snapshot advances whenever the change was significant, whether or
	// not delivery succeeded.
	c.previous = vector
}

// State reports the controller's current cycle position.
func (c *Controller) State() State {
	return c.state
}

// significantChanges returns the names of metrics whose absolute delta
// strictly exceeds the threshold. A delta of exactly the threshold does
// not trigger.
func significantChanges(current, previous models.MetricVector, threshold float64) []string {
	deltas := []struct {
		name string
		diff float64
	}{
		{"cpu", current.CPUPowerWatt - previous.CPUPowerWatt},
		{"gpu", current.GPUPowerWatt - previous.GPUPowerWatt},
		{"memory", current.MemoryUsedMB - previous.MemoryUsedMB},
		{"disk_read", current.DiskReadMBs - previous.DiskReadMBs},
		{"disk_write", current.DiskWriteMBs - previous.DiskWriteMBs},
	}

	var changed []string

	for _, d := range deltas {
		if math.Abs(d.diff) > threshold {
			changed = append(changed, d.name)
		}
	}

	return changed
}

func (c *Controller) inScheduledWindow(now time.Time) bool {
	minutes := now.Hour()*60 + now.Minute()

	for _, w := range c.windows {
		if minutes >= w.start && minutes <= w.end {
			return true
		}
	}

	return false
}

func parseWindows(windows []models.ScheduleWindow) ([]window, error) {
	parsed := make([]window, 0, len(windows))

	for _, w := range windows {
		start, err := parseClock(w.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule window start %q: %w", w.Start, err)
		}

		end, err := parseClock(w.End)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule window end %q: %w", w.End, err)
		}

		parsed = append(parsed, window{start: start, end: end})
	}

	return parsed, nil
}

func parseClock(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, errClockFormat
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}

	mins, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}

	if hours < 0 || hours > 23 || mins < 0 || mins > 59 {
		return 0, errClockRange
	}

	return hours*60 + mins, nil
}
