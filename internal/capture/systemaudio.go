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
	avframe "github.com/e1z0/avrecorder/internal/frame"
	"github.com/e1z0/avrecorder/internal/queue"
)

// SystemAudioConfig configures loopback capture of whatever is currently
// playing through the default output device.
type SystemAudioConfig struct {
	SampleRate int
	Channels   int
}

// DefaultSystemAudioConfig matches the mixer's native rate/channels.
func DefaultSystemAudioConfig() SystemAudioConfig {
	return SystemAudioConfig{SampleRate: 48000, Channels: 2}
}

// SystemAudioCapture captures the machine's output mix via loopback. Only
// implemented on Windows (systemaudio_windows.go, WASAPI loopback via
// malgo); elsewhere Start always returns an "unavailable" error that
// Manager.Start treats as non-fatal (spec §4.2/§4.6 — system audio must
// never block a recording session from starting).
type SystemAudioCapture struct {
	cfg SystemAudioConfig
	Out *queue.Bounded[avframe.AudioChunk]
	impl systemAudioImpl
}

type systemAudioImpl interface {
	start(cfg SystemAudioConfig, out *queue.Bounded[avframe.AudioChunk]) error
	stop()
}

// NewSystemAudioCapture creates a system-audio loopback capture source.
func NewSystemAudioCapture(cfg SystemAudioConfig, outCapacity int) *SystemAudioCapture {
	return &SystemAudioCapture{
		cfg:  cfg,
		Out:  queue.NewBounded[avframe.AudioChunk](outCapacity),
		impl: newSystemAudioImpl(),
	}
}

// Available reports whether loopback capture is supported on this
// platform, for device-enumeration / UI purposes.
func (s *SystemAudioCapture) Available() bool {
	return systemAudioAvailable()
}

// Start begins loopback capture.
func (s *SystemAudioCapture) Start() error {
	return s.impl.start(s.cfg, s.Out)
}

// Stop halts loopback capture.
func (s *SystemAudioCapture) Stop() {
	s.impl.stop()
}
