//go:build !windows

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

	avframe "github.com/e1z0/avrecorder/internal/frame"
	"github.com/e1z0/avrecorder/internal/queue"
)

func systemAudioAvailable() bool { return false }

func newSystemAudioImpl() systemAudioImpl { return &unsupportedLoopback{} }

// unsupportedLoopback matches original_source/system_audio_fallback.rs:
// system audio loopback has no portable cross-platform API outside
// WASAPI, so non-Windows builds report unavailability rather than fail.
type unsupportedLoopback struct{}

func (u *unsupportedLoopback) start(SystemAudioConfig, *queue.Bounded[avframe.AudioChunk]) error {
	return fmt.Errorf("system audio capture is not available on this platform")
}

func (u *unsupportedLoopback) stop() {}
