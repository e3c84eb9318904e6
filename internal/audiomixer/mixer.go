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

// Package audiomixer combines the microphone and system-audio capture
// streams into one mixed PCM stream at a fixed sample rate/channel count,
// applying per-source gain, channel up/down-mixing, linear-interpolation
// resampling, and a soft-clip limiter on the summed signal.
package audiomixer

import (
	"log"
	"math"
	"time"

	"github.com/e1z0/avrecorder/internal/frame"
	"github.com/e1z0/avrecorder/internal/queue"
)

// Config mirrors the Rust prototype's AudioMixerConfig defaults.
type Config struct {
	SampleRate   int
	Channels     int
	MicVolume    float32
	SystemVolume float32
	BufferSize   int // samples per channel per mixed chunk
}

// DefaultConfig matches original_source/audio_mixer.rs's Default impl.
func DefaultConfig() Config {
	return Config{
		SampleRate:   48000,
		Channels:     2,
		MicVolume:    1.0,
		SystemVolume: 1.0,
		BufferSize:   1024,
	}
}

// Mixer drains the mic and system-audio queues, converts each chunk into
// the mixer's target sample rate/channel layout, and emits fixed-size
// mixed chunks to Out.
type Mixer struct {
	cfg Config
	Out *queue.Bounded[frame.MixedAudioChunk]

	micBuf []float32
	sysBuf []float32

	stop chan struct{}
	done chan struct{}
}

// New creates a Mixer with the given output queue capacity.
func New(cfg Config, outCapacity int) *Mixer {
	return &Mixer{
		cfg:  cfg,
		Out:  queue.NewBounded[frame.MixedAudioChunk](outCapacity),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start runs the mix loop in a new goroutine, draining mic and system
// queues via non-blocking try-receive, matching the Rust loop's 5 ms poll
// interval.
func (m *Mixer) Start(mic, sys *queue.Bounded[frame.AudioChunk]) {
	go m.loop(mic, sys)
}

// Stop halts the mix loop and waits for it to exit.
func (m *Mixer) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Mixer) loop(mic, sys *queue.Bounded[frame.AudioChunk]) {
	defer close(m.done)
	samplesPerChunk := m.cfg.BufferSize * m.cfg.Channels
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		}

		for {
			c, ok := mic.TryRecv()
			if !ok {
				break
			}
			m.micBuf = append(m.micBuf, m.processChunk(c, m.cfg.MicVolume)...)
		}
		for {
			c, ok := sys.TryRecv()
			if !ok {
				break
			}
			m.sysBuf = append(m.sysBuf, m.processChunk(c, m.cfg.SystemVolume)...)
		}

		for len(m.micBuf) >= samplesPerChunk || len(m.sysBuf) >= samplesPerChunk {
			mixed := m.mixBuffers(samplesPerChunk)
			if !m.Out.TrySend(frame.MixedAudioChunk{
				Samples:    mixed,
				SampleRate: m.cfg.SampleRate,
				Channels:   m.cfg.Channels,
				Timestamp:  time.Duration(0),
			}) {
				log.Printf("[mixer] output queue full, dropping mixed chunk")
			}
		}
	}
}

// processChunk applies volume, then channel conversion, then resampling —
// in that order, matching original_source/audio_mixer.rs.
func (m *Mixer) processChunk(c frame.AudioChunk, volume float32) []float32 {
	samples := make([]float32, len(c.Samples))
	for i, s := range c.Samples {
		samples[i] = s * volume
	}
	samples = convertChannels(samples, c.Channels, m.cfg.Channels)
	if c.SampleRate != m.cfg.SampleRate {
		samples = resample(samples, c.SampleRate, m.cfg.SampleRate, m.cfg.Channels)
	}
	return samples
}

// mixBuffers consumes up to n samples from each of micBuf/sysBuf (zero-
// padding whichever is shorter), soft-clips the per-sample sum, and drains
// only the consumed prefix from each buffer independently.
func (m *Mixer) mixBuffers(n int) []float32 {
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var mic, sys float32
		if i < len(m.micBuf) {
			mic = m.micBuf[i]
		}
		if i < len(m.sysBuf) {
			sys = m.sysBuf[i]
		}
		out[i] = softClip(mic + sys)
	}
	if n <= len(m.micBuf) {
		m.micBuf = m.micBuf[n:]
	} else {
		m.micBuf = m.micBuf[:0]
	}
	if n <= len(m.sysBuf) {
		m.sysBuf = m.sysBuf[n:]
	} else {
		m.sysBuf = m.sysBuf[:0]
	}
	return out
}

// convertChannels maps an interleaved buffer with `from` channels/frame to
// one with `to` channels/frame. mono->stereo duplicates; stereo->mono
// averages; any other combination copies min(from,to) channels per frame
// then duplicates channel 0 into whatever channels remain.
func convertChannels(samples []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 {
		return samples
	}
	frames := len(samples) / from
	out := make([]float32, frames*to)

	if from == 1 && to == 2 {
		for i := 0; i < frames; i++ {
			v := samples[i]
			out[i*2] = v
			out[i*2+1] = v
		}
		return out
	}
	if from == 2 && to == 1 {
		for i := 0; i < frames; i++ {
			l, r := samples[i*2], samples[i*2+1]
			out[i] = (l + r) / 2.0
		}
		return out
	}

	copyCh := from
	if to < copyCh {
		copyCh = to
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < copyCh; c++ {
			out[i*to+c] = samples[i*from+c]
		}
		for c := copyCh; c < to; c++ {
			out[i*to+c] = samples[i*from+0]
		}
	}
	return out
}

// resample performs linear-interpolation resampling of an interleaved
// buffer from one sample rate to another, channel count held fixed.
func resample(samples []float32, fromRate, toRate, channels int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || channels <= 0 {
		return samples
	}
	inFrames := len(samples) / channels
	ratio := float64(fromRate) / float64(toRate)
	outFrames := int(float64(inFrames) / ratio)
	out := make([]float32, outFrames*channels)

	for i := 0; i < outFrames; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(math.Floor(srcPos))
		frac := float32(srcPos - float64(srcIdx))

		for c := 0; c < channels; c++ {
			var curr, next float32
			if srcIdx >= 0 && srcIdx < inFrames {
				curr = samples[srcIdx*channels+c]
			}
			nextIdx := srcIdx + 1
			if nextIdx >= 0 && nextIdx < inFrames {
				next = samples[nextIdx*channels+c]
			} else {
				next = curr
			}
			out[i*channels+c] = curr + (next-curr)*frac
		}
	}
	return out
}

// softClip applies a symmetric soft limiter: identity below |x|<=0.5,
// asymptotically approaching +/-1 beyond that.
func softClip(x float32) float32 {
	if x > 0.5 {
		return 0.5 + float32(1-math.Exp(-2*float64(x-0.5)))/2
	}
	if x < -0.5 {
		return -0.5 - float32(1-math.Exp(-2*float64(-x-0.5)))/2
	}
	return x
}
