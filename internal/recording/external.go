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

package recording

import (
	"sync"
	"time"

	"github.com/e1z0/avrecorder/internal/audiomixer"
	"github.com/e1z0/avrecorder/internal/capture"
	"github.com/e1z0/avrecorder/internal/encoder"
	"github.com/e1z0/avrecorder/internal/frame"
)

// ExternalRecorder is the alternate ingestion path (§6): a caller (e.g. a
// browser-side or GPU compositor that already produced the final frame)
// pushes pre-composited frames directly in, bypassing screen/webcam
// capture and the in-process compositor entirely while still reusing the
// audio mixer and encoder/muxer stages.
type ExternalRecorder struct {
	mu  sync.Mutex
	cfg ExternalRecordingConfig
	enc encoder.Encoder

	mic   *capture.MicCapture
	mixer *audiomixer.Mixer

	running bool
}

// NewExternalRecorder creates an idle external-frames recorder.
func NewExternalRecorder() *ExternalRecorder {
	return &ExternalRecorder{}
}

// Start opens the encoder and, if requested, the microphone + mixer, but
// starts no screen/webcam capture and no compositor goroutine.
func (r *ExternalRecorder) Start(cfg ExternalRecordingConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return newErr(ErrKindAlreadyRecording, "already recording")
	}
	if cfg.OutputWidth <= 0 || cfg.OutputHeight <= 0 {
		return newErr(ErrKindNoVideoSource, "external recording requires output_width/output_height")
	}

	outPath := cfg.OutputPath
	if outPath == "" {
		outPath = defaultOutputPath()
	}
	frameRate := cfg.FrameRate
	if frameRate <= 0 {
		frameRate = 30
	}

	audCfg := audiomixer.DefaultConfig()
	var mixer *audiomixer.Mixer
	var mic *capture.MicCapture
	if cfg.CaptureMic {
		mic = capture.NewMicCapture(capture.DefaultMicConfig(), compositeQueueCapacity)
		if err := mic.Start(); err != nil {
			return newErr(ErrKindAudio, "microphone capture: %v", err)
		}
		mixer = audiomixer.New(audCfg, compositeQueueCapacity)
		mixer.Start(mic.Out, emptyAudioQueue())
	}

	enc, err := encoder.New(encoder.Config{
		OutputPath:       outPath,
		Width:            cfg.OutputWidth,
		Height:           cfg.OutputHeight,
		FrameRate:        frameRate,
		VideoBitrateKbps: cfg.VideoQuality.VideoBitrateKbps(),
		CRF:              cfg.VideoQuality.CRF(),
		AudioSampleRate:  audCfg.SampleRate,
		AudioChannels:    audCfg.Channels,
		AudioBitrateKbps: cfg.VideoQuality.AudioBitrateKbps(),
	})
	if err != nil {
		if mic != nil {
			mic.Stop()
		}
		return newErr(ErrKindEncoding, "encoder: %v", err)
	}

	r.cfg = cfg
	r.cfg.OutputPath = outPath
	r.enc = enc
	r.mic = mic
	r.mixer = mixer
	r.running = true

	if mixer != nil {
		go r.audioLoop()
	}
	return nil
}

func (r *ExternalRecorder) audioLoop() {
	for {
		r.mu.Lock()
		running := r.running
		r.mu.Unlock()
		if !running {
			return
		}
		c, ok := r.mixer.Out.TryRecv()
		if !ok {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		r.mu.Lock()
		enc := r.enc
		r.mu.Unlock()
		if enc != nil {
			_ = enc.WriteAudioChunk(c)
		}
	}
}

// PushFrame validates the frame's dimensions against the session's
// configured output size and forwards it straight to the encoder.
func (r *ExternalRecorder) PushFrame(f frame.CompositeFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return newErr(ErrKindNotRecording, "not recording")
	}
	if f.Width != r.cfg.OutputWidth || f.Height != r.cfg.OutputHeight {
		return newErr(ErrKindEncoding, "frame %dx%d does not match configured output %dx%d", f.Width, f.Height, r.cfg.OutputWidth, r.cfg.OutputHeight)
	}
	return r.enc.WriteVideoFrame(f)
}

// Stop closes the encoder and any audio capture, returning the output path.
func (r *ExternalRecorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return "", newErr(ErrKindNotRecording, "not recording")
	}
	r.running = false
	if r.mic != nil {
		r.mic.Stop()
	}
	if r.mixer != nil {
		r.mixer.Stop()
	}
	path := r.cfg.OutputPath
	if r.enc != nil {
		_ = r.enc.Close()
		r.enc = nil
	}
	return path, nil
}
