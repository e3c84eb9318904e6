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
	"log"
	"sync"
	"time"

	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/wave"

	avframe "github.com/e1z0/avrecorder/internal/frame"
	"github.com/e1z0/avrecorder/internal/queue"
)

// MicConfig configures microphone capture.
type MicConfig struct {
	SampleRate  int
	Channels    int
	DeviceIndex int
}

// DefaultMicConfig picks the mixer's native rate/channels so the mixer
// never needs to resample the mic path.
func DefaultMicConfig() MicConfig {
	return MicConfig{SampleRate: 48000, Channels: 2}
}

// MicCapture pulls raw PCM audio from the system's default microphone
// (or the pion/mediadevices driver's chosen device) via the miniaudio-
// backed driver/microphone package.
type MicCapture struct {
	cfg MicConfig
	Out *queue.Bounded[avframe.AudioChunk]

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	start   time.Time
}

// NewMicCapture creates a microphone capture source.
func NewMicCapture(cfg MicConfig, outCapacity int) *MicCapture {
	return &MicCapture{cfg: cfg, Out: queue.NewBounded[avframe.AudioChunk](outCapacity)}
}

// Start opens the microphone and begins reading PCM in a new goroutine.
// Configuration errors (no microphone present, device busy) are returned
// to the caller; per spec §4.6 these must fail Manager.Start outright
// (unlike system-audio errors, which are merely logged).
func (m *MicCapture) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("mic capture already running")
	}

	codecSelector := mediadevices.NewCodecSelector()
	constraints := mediadevices.MediaStreamConstraints{Codec: codecSelector}
	constraints.Audio = func(_ *mediadevices.MediaTrackConstraints) {}

	stream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		return fmt.Errorf("GetUserMedia(audio): %w", err)
	}
	tracks := stream.GetTracks()
	if len(tracks) == 0 {
		return fmt.Errorf("no microphone track returned")
	}
	at, ok := tracks[0].(*mediadevices.AudioTrack)
	if !ok {
		return fmt.Errorf("unexpected track type for microphone")
	}

	m.running = true
	m.start = time.Now()
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.readLoop(at)
	return nil
}

func (m *MicCapture) readLoop(at *mediadevices.AudioTrack) {
	defer close(m.done)
	defer at.Close()

	reader := at.NewReader(false)
	for {
		select {
		case <-m.stop:
			return
		default:
		}

		chunk, release, err := reader.Read()
		if err != nil {
			log.Printf("[mic] read error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		samples, err := interleavedFloat32(chunk)
		release()
		if err != nil {
			log.Printf("[mic] unsupported sample format: %v", err)
			continue
		}

		m.Out.TrySend(avframe.AudioChunk{
			Samples:    samples,
			SampleRate: m.cfg.SampleRate,
			Channels:   m.cfg.Channels,
			Timestamp:  time.Since(m.start),
		})
	}
}

// interleavedFloat32 converts a captured chunk to interleaved float32
// samples according to its actual negotiated wave format, rather than
// assuming 16-bit PCM. Signed 16-bit chunks are divided by 32768 and
// float32 chunks pass through, interleaved or planar; unsigned sample
// formats are not converted, and any other chunk type returns an error.
func interleavedFloat32(chunk wave.Audio) ([]float32, error) {
	switch a := chunk.(type) {
	case wave.Int16Interleaved:
		out := make([]float32, len(a.Data))
		for i, s := range a.Data {
			out[i] = float32(s) / 32768.0
		}
		return out, nil
	case wave.Float32Interleaved:
		out := make([]float32, len(a.Data))
		copy(out, a.Data)
		return out, nil
	case wave.Int16NonInterleaved:
		return interleaveInt16(a.Data), nil
	case wave.Float32NonInterleaved:
		return interleaveFloat32Planar(a.Data), nil
	default:
		return nil, fmt.Errorf("unsupported audio chunk type %T", chunk)
	}
}

func interleaveInt16(channels [][]int16) []float32 {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	out := make([]float32, frames*len(channels))
	for f := 0; f < frames; f++ {
		for c, ch := range channels {
			out[f*len(channels)+c] = float32(ch[f]) / 32768.0
		}
	}
	return out
}

func interleaveFloat32Planar(channels [][]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	out := make([]float32, frames*len(channels))
	for f := 0; f < frames; f++ {
		for c, ch := range channels {
			out[f*len(channels)+c] = ch[f]
		}
	}
	return out
}

// Stop halts capture and waits for the read goroutine to exit.
func (m *MicCapture) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
}
