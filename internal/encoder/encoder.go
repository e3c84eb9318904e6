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

// Package encoder turns composite video frames and mixed audio chunks
// into an MP4 file (H.264 + AAC, via astiav) or, when the real encoder
// cannot be opened, a directory of PNG frames plus the ffmpeg command
// line to stitch them — the same two-path design original_source/
// encoder.rs implements behind a build feature flag, expressed here as a
// runtime fallback instead.
package encoder

import (
	"fmt"
	"log"

	"github.com/e1z0/avrecorder/internal/frame"
)

// Config configures the encoder/muxer.
type Config struct {
	OutputPath       string
	Width            int
	Height           int
	FrameRate        int
	VideoBitrateKbps int
	CRF              int
	AudioSampleRate  int
	AudioChannels    int
	AudioBitrateKbps int
}

// Encoder accepts composite video frames and mixed audio chunks and
// writes them to Config.OutputPath.
type Encoder interface {
	WriteVideoFrame(f frame.CompositeFrame) error
	WriteAudioChunk(c frame.MixedAudioChunk) error
	FramesEncoded() int64
	Close() error
}

// New tries to construct the real astiav-backed encoder; if opening the
// H.264/AAC encoders or the output file fails (missing libav shared
// libraries, unsupported pixel/sample format on this build), it logs the
// reason and falls back to the PNG-sidecar encoder so a recording session
// still produces usable output.
func New(cfg Config) (Encoder, error) {
	enc, err := newAstiavEncoder(cfg)
	if err == nil {
		return enc, nil
	}
	log.Printf("[encoder] astiav encoder unavailable (%v), falling back to PNG sidecar output", err)
	fb, ferr := newFallbackEncoder(cfg)
	if ferr != nil {
		return nil, fmt.Errorf("no encoder available: astiav: %v, fallback: %w", err, ferr)
	}
	return fb, nil
}
