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

// Package frame holds the plain value types passed between the capture,
// compositor, mixer, and encoder stages of the recording pipeline.
package frame

import "time"

// ScreenFrame is one captured display frame in BGRA. Stride is the number
// of bytes per row; the capture sources' software scaler emits tightly
// packed rows (Stride == w*4), and consumers strip any padding beyond w*4.
type ScreenFrame struct {
	Data      []byte
	Width     int
	Height    int
	Stride    int
	Timestamp time.Duration
}

// WebcamFrame is one captured camera frame, packed RGB (3 bytes/pixel, no
// padding).
type WebcamFrame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Duration
}

// ToRGBA expands the packed RGB buffer into packed RGBA with full opacity.
func (f WebcamFrame) ToRGBA() []byte {
	n := f.Width * f.Height
	out := make([]byte, 0, n*4)
	for i := 0; i < n; i++ {
		o := i * 3
		out = append(out, f.Data[o], f.Data[o+1], f.Data[o+2], 255)
	}
	return out
}

// AudioChunk is a block of interleaved float32 PCM samples captured from a
// single source (microphone or system audio loopback).
type AudioChunk struct {
	Samples    []float32
	SampleRate int
	Channels   int
	Timestamp  time.Duration
}

// Duration reports how much audio this chunk represents.
func (c AudioChunk) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(float64(frames) / float64(c.SampleRate) * float64(time.Second))
}

// CompositeFrame is one frame ready for the encoder: either a BGRA
// passthrough from the screen source (IsBGRA true, the fast path) or an
// RGBA frame produced by the compositor's slow path.
type CompositeFrame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Duration
	IsBGRA    bool
}

// MixedAudioChunk is the mixer's output: interleaved float32 PCM at the
// mixer's configured sample rate/channel count.
type MixedAudioChunk struct {
	Samples    []float32
	SampleRate int
	Channels   int
	Timestamp  time.Duration
}
