//go:build windows

/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * avrecorder
 * Copyright (C) 2025 e1z0 <e1z0@icloud.com>
 *
 * This file is part of avrecorder.
 *
 * avrecorder is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * avrecorder is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with avrecorder.  If not, see <https://www.gnu.org/licenses/>.
 */

package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	avframe "github.com/e1z0/avrecorder/internal/frame"
	"github.com/e1z0/avrecorder/internal/queue"
)

func systemAudioAvailable() bool { return true }

func newSystemAudioImpl() systemAudioImpl { return &malgoLoopback{} }

// malgoLoopback captures the default render device's mix via miniaudio's
// WASAPI loopback mode, the same library pion/mediadevices' microphone
// driver uses internally, here driven directly for the loopback-specific
// device configuration that driver doesn't expose.
type malgoLoopback struct {
	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running bool
}

func (m *malgoLoopback) start(cfg SystemAudioConfig, out *queue.Bounded[avframe.AudioChunk]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("system audio capture already running")
	}

	ctx, err := malgo.InitContext([]malgo.Backend{malgo.BackendWasapi}, malgo.ContextConfig{}, func(msg string) {})
	if err != nil {
		return fmt.Errorf("malgo.InitContext: %w", err)
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Loopback)
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = uint32(cfg.Channels)
	devCfg.SampleRate = uint32(cfg.SampleRate)

	start := time.Now()
	onData := func(_, pCapturedSamples []byte, frameCount uint32) {
		n := int(frameCount) * cfg.Channels
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			lo := int16(pCapturedSamples[i*2]) | int16(pCapturedSamples[i*2+1])<<8
			samples[i] = float32(lo) / 32768.0
		}
		out.TrySend(avframe.AudioChunk{
			Samples:    samples,
			SampleRate: cfg.SampleRate,
			Channels:   cfg.Channels,
			Timestamp:  time.Since(start),
		})
	}

	device, err := malgo.InitDevice(ctx.Context, devCfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		ctx.Uninit()
		return fmt.Errorf("malgo.InitDevice: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		return fmt.Errorf("device.Start: %w", err)
	}

	m.ctx = ctx
	m.device = device
	m.running = true
	return nil
}

func (m *malgoLoopback) stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.device.Uninit()
	m.ctx.Uninit()
	m.running = false
}
