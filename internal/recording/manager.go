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

// Package recording implements the top-level state machine that wires
// capture, compositor, mixer, and encoder together and exposes the
// Start/Stop/Status surface (spec §4.6, §6, §7).
package recording

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e1z0/avrecorder/internal/audiomixer"
	"github.com/e1z0/avrecorder/internal/capture"
	"github.com/e1z0/avrecorder/internal/compositor"
	"github.com/e1z0/avrecorder/internal/encoder"
	"github.com/e1z0/avrecorder/internal/frame"
	"github.com/e1z0/avrecorder/internal/queue"
)

const (
	compositeQueueCapacity = 120
	targetFrameInterval    = 33 * time.Millisecond
	queuePressureSkip      = 0.8
	webcamOnlySkipLen      = 96 // 80% of compositeQueueCapacity
)

// Manager owns every component of one recording session and the state
// machine around it (Idle -> Starting -> Running -> Stopping -> Idle).
type Manager struct {
	mu     sync.Mutex
	status RecordingStatus

	screen  *capture.ScreenCapture
	webcam  *capture.WebcamCapture
	mic     *capture.MicCapture
	sysAud  *capture.SystemAudioCapture
	mixer   *audiomixer.Mixer
	enc     encoder.Encoder
	compCfg compositor.Config

	cfg      RecordingConfig
	stopping bool

	stop           chan struct{}
	compositorDone chan struct{}
	encoderErr     chan string
	outputPath     string
	startedAt      time.Time

	// frameCount is updated by compositorLoop without m.mu, so the
	// compositor goroutine never contends with Stop/Status for the lock
	// (see compositorLoop).
	frameCount atomic.Int64
}

// NewManager creates an idle manager.
func NewManager() *Manager {
	return &Manager{}
}

// Start validates cfg, resolves the output path, initializes every
// capture source + compositor + mixer + encoder, and begins the
// recording pipeline. System-audio failures are logged but never fail
// Start; every other source's failure does.
func (m *Manager) Start(cfg RecordingConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.IsRecording {
		return newErr(ErrKindAlreadyRecording, "already recording")
	}
	if !cfg.CaptureScreen && !cfg.CaptureWebcam {
		return newErr(ErrKindNoVideoSource, "at least one of capture_screen or capture_webcam must be true")
	}

	outW, outH := cfg.OutputResolution.Dimensions()
	outPath := cfg.OutputPath
	if outPath == "" {
		outPath = defaultOutputPath()
	}
	frameRate := cfg.FrameRate
	if frameRate <= 0 {
		frameRate = 30
	}

	if cfg.CaptureScreen {
		if err := capture.ScreenCaptureAvailable(); err != nil {
			return newErr(ErrKindPermissionDenied, "screen recording is not available: %v — enable it under System Settings -> Privacy & Security -> Screen Recording", err)
		}
		m.screen = capture.NewScreenCapture(capture.ScreenConfig{Width: outW, Height: outH, FrameRate: frameRate}, compositeQueueCapacity)
		if err := m.screen.Start(); err != nil {
			m.screen = nil
			return newErr(ErrKindScreenCapture, "screen capture: %v", err)
		}
	}

	if cfg.CaptureWebcam {
		m.webcam = capture.NewWebcamCapture(capture.DefaultWebcamConfig(), compositeQueueCapacity)
		if err := m.webcam.Start(); err != nil {
			m.stopStarted()
			return newErr(ErrKindWebcam, "webcam capture: %v", err)
		}
	}

	if cfg.CaptureMic {
		m.mic = capture.NewMicCapture(capture.DefaultMicConfig(), compositeQueueCapacity)
		if err := m.mic.Start(); err != nil {
			m.stopStarted()
			return newErr(ErrKindAudio, "microphone capture: %v", err)
		}
	}

	if cfg.CaptureSystemAudio {
		m.sysAud = capture.NewSystemAudioCapture(capture.DefaultSystemAudioConfig(), compositeQueueCapacity)
		if err := m.sysAud.Start(); err != nil {
			// Non-fatal: log and continue without system audio.
			log.Printf("[manager] system audio unavailable: %v", err)
			m.sysAud = nil
		}
	}

	m.compCfg = compositor.Config{
		OutputWidth:    outW,
		OutputHeight:   outH,
		IncludeWebcam:  cfg.CaptureWebcam,
		PipPosition:    compositor.PipPosition(cfg.WebcamPosition),
		PipSizePercent: cfg.WebcamSizePercent,
		PipPadding:     20,
	}

	audCfg := audiomixer.DefaultConfig()
	m.mixer = audiomixer.New(audCfg, compositeQueueCapacity)
	micQ := emptyAudioQueue()
	sysQ := emptyAudioQueue()
	if m.mic != nil {
		micQ = m.mic.Out
	}
	if m.sysAud != nil {
		sysQ = m.sysAud.Out
	}
	m.mixer.Start(micQ, sysQ)

	quality := cfg.VideoQuality
	enc, err := encoder.New(encoder.Config{
		OutputPath:       outPath,
		Width:            outW,
		Height:           outH,
		FrameRate:        frameRate,
		VideoBitrateKbps: quality.VideoBitrateKbps(),
		CRF:              quality.CRF(),
		AudioSampleRate:  audCfg.SampleRate,
		AudioChannels:    audCfg.Channels,
		AudioBitrateKbps: quality.AudioBitrateKbps(),
	})
	if err != nil {
		m.stopStarted()
		return newErr(ErrKindEncoding, "encoder: %v", err)
	}
	m.enc = enc

	m.cfg = cfg
	m.outputPath = outPath
	m.startedAt = time.Now()
	m.stop = make(chan struct{})
	m.compositorDone = make(chan struct{})
	m.encoderErr = make(chan string, 1)
	m.frameCount.Store(0)

	m.status = RecordingStatus{IsRecording: true, OutputPath: outPath}

	go m.audioEncodeLoop()
	go m.compositorLoop()

	log.Printf("[manager] recording started -> %s", outPath)
	return nil
}

func emptyAudioQueue() *queue.Bounded[frame.AudioChunk] {
	return queue.NewBounded[frame.AudioChunk](1)
}

// stopStarted tears down whatever partial set of sources Start managed
// to bring up before a later step failed.
func (m *Manager) stopStarted() {
	if m.screen != nil {
		m.screen.Stop()
		m.screen = nil
	}
	if m.webcam != nil {
		m.webcam.Stop()
		m.webcam = nil
	}
	if m.mic != nil {
		m.mic.Stop()
		m.mic = nil
	}
	if m.sysAud != nil {
		m.sysAud.Stop()
		m.sysAud = nil
	}
	if m.mixer != nil {
		m.mixer.Stop()
		m.mixer = nil
	}
}

// Stop halts every component in order, waits for drains to settle, and
// returns the finished file's path. It must never join the compositor
// goroutine while holding m.mu: compositorLoop never touches m.mu (see
// its doc comment), but the join itself can take up to one tick, and
// holding the lock across it would stall any concurrent Status() call
// for no reason.
func (m *Manager) Stop() (string, error) {
	m.mu.Lock()
	if !m.status.IsRecording || m.stopping {
		m.mu.Unlock()
		return "", newErr(ErrKindNotRecording, "not recording")
	}
	m.stopping = true
	compositorDone := m.compositorDone
	close(m.stop)
	m.mu.Unlock()

	<-compositorDone

	m.mu.Lock()
	defer m.mu.Unlock()
	path, err := m.finishStop()
	m.stopping = false
	return path, err
}

// finishStop tears down every component and closes the encoder. Callers
// must hold m.mu and must have already joined compositorDone.
func (m *Manager) finishStop() (string, error) {
	m.stopStarted()

	time.Sleep(500 * time.Millisecond) // grace period for in-flight audio/video to flush

	if m.enc != nil {
		if err := m.enc.Close(); err != nil {
			log.Printf("[manager] encoder close error: %v", err)
		}
		m.enc = nil
	}

	path := m.outputPath

	m.status = RecordingStatus{IsRecording: false}
	m.outputPath = ""
	m.screen, m.webcam, m.mic, m.sysAud, m.mixer = nil, nil, nil, nil, nil

	log.Printf("[manager] recording stopped -> %s", path)
	if path == "" {
		return "", newErr(ErrKindIO, "no output path")
	}
	return path, nil
}

// Status polls and returns the current recording status, draining any
// pending encoder error and auto-stopping the session if one occurred —
// the same single-slot error channel discipline original_source/
// manager.rs's handle_encoder_errors uses. It never holds m.mu while
// calling Stop, for the same lock-ordering reason Stop documents.
func (m *Manager) Status() RecordingStatus {
	m.mu.Lock()
	recording := m.status.IsRecording
	errCh := m.encoderErr
	m.mu.Unlock()

	if recording {
		select {
		case errMsg := <-errCh:
			if _, err := m.Stop(); err != nil {
				log.Printf("[manager] auto-stop after encoder error: %v", err)
			}
			m.mu.Lock()
			m.status.Error = errMsg
			m.mu.Unlock()
		default:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status
	if st.IsRecording {
		st.FrameCount = m.frameCount.Load()
		st.DurationMs = time.Since(m.startedAt).Milliseconds()
	}
	return st
}

// audioEncodeLoop drains mixed audio and hands it to the encoder.
func (m *Manager) audioEncodeLoop() {
	for {
		select {
		case <-m.stop:
			return
		default:
		}
		c, ok := m.mixer.Out.TryRecv()
		if !ok {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		if err := m.enc.WriteAudioChunk(c); err != nil {
			m.reportEncoderError(fmt.Sprintf("audio encode: %v", err))
			return
		}
	}
}

func (m *Manager) reportEncoderError(msg string) {
	select {
	case m.encoderErr <- msg:
	default:
	}
}

// compositorLoop implements the adaptive frame-rate control algorithm
// from original_source/manager.rs's compositor_loop: drain all pending
// webcam frames keeping the latest, drain all pending screen frames
// keeping the latest (screen-driven mode) or rely on the webcam alone
// (webcam-only mode), and skip compositing under queue back-pressure
// before handing the result to the composite queue that videoEncodeLoop
// drains — the same bounded-channel handoff original_source/manager.rs
// wires between its compositor thread and its encoder.
//
// This loop deliberately never acquires m.mu (its live frame count goes
// through the atomic m.frameCount instead). Stop releases m.mu before
// joining compositorDone and Status calls Stop without holding m.mu, so
// the loop can always run to completion while a stop is in progress.
func (m *Manager) compositorLoop() {
	defer close(m.compositorDone)

	comp := compositor.New(m.compCfg)
	compositeQueue := queue.NewBounded[frame.CompositeFrame](compositeQueueCapacity)
	videoDone := make(chan struct{})
	go m.videoEncodeLoop(compositeQueue, videoDone)

	var latestWebcam *frame.WebcamFrame
	var lastProcessed time.Time
	var frameCount, skipCount int64
	var lastScreenFrameAt time.Time
	warnedGap := false

	ticker := time.NewTicker(1 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-m.stop:
			break loop
		case <-ticker.C:
		}

		if m.webcam != nil {
			if wf, ok, _ := m.webcam.Out.DrainLatest(); ok {
				latestWebcam = &wf
			}
		}

		if m.cfg.CaptureScreen && m.screen != nil {
			sf, ok, skipped := m.screen.Out.DrainLatest()
			if skipped > 0 {
				skipCount += int64(skipped)
			}
			if ok {
				lastScreenFrameAt = time.Now()
				warnedGap = false
				pressure := compositeQueue.Pressure()
				shouldSkip := pressure > queuePressureSkip && time.Since(lastProcessed) < targetFrameInterval*2
				if shouldSkip {
					skipCount++
				} else {
					out := comp.Composite(&sf, latestWebcam)
					if !compositeQueue.TrySend(out) {
						skipCount++
					}
					lastProcessed = time.Now()
					frameCount++
				}
			} else if !lastScreenFrameAt.IsZero() && time.Since(lastScreenFrameAt) > 2*time.Second && !warnedGap {
				log.Printf("[manager] no screen frames for >2s")
				warnedGap = true
			}
		} else if latestWebcam != nil {
			if compositeQueue.Len() <= webcamOnlySkipLen {
				out := comp.Composite(nil, latestWebcam)
				if !compositeQueue.TrySend(out) {
					skipCount++
				}
				lastProcessed = time.Now()
				frameCount++
			} else {
				skipCount++
			}
			latestWebcam = nil
		}

		if frameCount > 0 && frameCount%30 == 0 {
			m.frameCount.Store(frameCount)
		}
	}

	close(videoDone)
	log.Printf("[manager] compositor stopped: %d frames composited, %d skipped", frameCount, skipCount)
}

// videoEncodeLoop drains the composite queue and hands frames to the
// encoder, running independently of the compositor tick so a slow
// encoder only builds queue pressure rather than stalling capture.
func (m *Manager) videoEncodeLoop(q *queue.Bounded[frame.CompositeFrame], done chan struct{}) {
	for {
		cf, ok := q.TryRecv()
		if !ok {
			select {
			case <-done:
				return
			default:
				time.Sleep(2 * time.Millisecond)
				continue
			}
		}
		if err := m.enc.WriteVideoFrame(cf); err != nil {
			m.reportEncoderError(fmt.Sprintf("video encode: %v", err))
		}
	}
}

func defaultOutputPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = os.TempDir()
	} else {
		dir = filepath.Join(dir, "Videos")
	}
	_ = os.MkdirAll(dir, 0o755)
	name := "recording_" + time.Now().Format("20060102_150405") + ".mp4"
	return filepath.Join(dir, name)
}
