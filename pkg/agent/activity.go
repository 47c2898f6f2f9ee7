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
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/carverauto/powermon/pkg/logger"
)

// inputEventSize is the byte length of one evdev input_event frame on
// 64-bit Linux (struct timeval + type + code + value).
const inputEventSize = 24

// ActivityMonitor watches for user input and records it in a single
// shared flag. The flag is edge-triggered: the sampling loop consumes and
// clears it atomically, so one burst of activity triggers at most one
// extra sample no matter how many ticks it spans.
type ActivityMonitor struct {
	active atomic.Bool
	logger logger.Logger
}

// NewActivityMonitor creates an inactive monitor.
func NewActivityMonitor(log logger.Logger) *ActivityMonitor {
	return &ActivityMonitor{logger: log}
}

// Set marks user activity. Safe from any goroutine.
func (m *ActivityMonitor) Set() {
	m.active.Store(true)
}

// Consume atomically reads and clears the activity flag.
func (m *ActivityMonitor) Consume() bool {
	return m.active.Swap(false)
}

// Run tails the machine's input event devices until the context is
// cancelled. Failure to open any device is expected on headless or
// non-Linux machines and leaves the monitor permanently idle.
func (m *ActivityMonitor) Run(ctx context.Context) {
	devices, err := filepath.Glob("/dev/input/event*")
	if err != nil || len(devices) == 0 {
		m.logger.Warn().Msg("no input devices available, activity detection disabled")
		return
	}

	started := 0

	for _, device := range devices {
		f, err := os.Open(device)
		if err != nil {
			continue
		}

		started++

		go m.tail(ctx, f)
	}

	if started == 0 {
		m.logger.Warn().Msg("could not open any input device, activity detection disabled")
		return
	}

	m.logger.Info().Int("devices", started).Msg("input activity monitoring started")

	<-ctx.Done()
}

func (m *ActivityMonitor) tail(ctx context.Context, f *os.File) {
	defer func() { _ = f.Close() }()

	go func() {
		<-ctx.Done()
		_ = f.Close() // unblocks the pending read
	}()

	buf := make([]byte, inputEventSize)

	for {
		if _, err := f.Read(buf); err != nil {
			return
		}

		m.Set()
	}
}
