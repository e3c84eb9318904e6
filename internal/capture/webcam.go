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
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"

	avframe "github.com/e1z0/avrecorder/internal/frame"
	"github.com/e1z0/avrecorder/internal/queue"
)

// WebcamConfig configures webcam capture, matching
// original_source/webcam.rs's WebcamCaptureConfig defaults.
type WebcamConfig struct {
	FPS         int
	Width       int
	Height      int
	DeviceIndex int
}

// DefaultWebcamConfig mirrors the Rust prototype's Default impl.
func DefaultWebcamConfig() WebcamConfig {
	return WebcamConfig{FPS: 30, Width: 640, Height: 480, DeviceIndex: 0}
}

// WebcamCapture pulls raw video frames from a local camera via
// pion/mediadevices, converts them to packed RGB, and publishes them to
// Out — the same never-block publish discipline the screen source uses.
type WebcamCapture struct {
	cfg WebcamConfig
	Out *queue.Bounded[avframe.WebcamFrame]

	mu      sync.Mutex
	running bool
	track   mediadevices.Track
	stop    chan struct{}
	done    chan struct{}
	start   time.Time
}

// NewWebcamCapture creates a webcam capture source.
func NewWebcamCapture(cfg WebcamConfig, outCapacity int) *WebcamCapture {
	return &WebcamCapture{cfg: cfg, Out: queue.NewBounded[avframe.WebcamFrame](outCapacity)}
}

// Start opens the camera and begins reading frames in a new goroutine.
func (w *WebcamCapture) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("webcam capture already running")
	}

	codecSelector := mediadevices.NewCodecSelector()
	constraints := mediadevices.MediaStreamConstraints{Codec: codecSelector}
	constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
		c.FrameFormat = prop.FrameFormatOneOf{frame.FormatYUYV, frame.FormatI420, frame.FormatRGBA}
		c.Width = prop.IntExact(w.cfg.Width)
		c.Height = prop.IntExact(w.cfg.Height)
	}

	stream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		return fmt.Errorf("GetUserMedia(video): %w", err)
	}
	tracks := stream.GetTracks()
	if len(tracks) == 0 {
		return fmt.Errorf("no webcam track returned")
	}
	vt, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		return fmt.Errorf("unexpected track type for webcam")
	}

	w.running = true
	w.start = time.Now()
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.readLoop(vt)
	return nil
}

func (w *WebcamCapture) readLoop(vt *mediadevices.VideoTrack) {
	defer close(w.done)
	defer vt.Close()

	reader := vt.NewReader(false)
	frameDuration := time.Second / time.Duration(maxInt(w.cfg.FPS, 1))

	for {
		select {
		case <-w.stop:
			return
		default:
		}

		tick := time.Now()
		img, release, err := reader.Read()
		if err != nil {
			log.Printf("[webcam] read error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		rgb := imageToPackedRGB(img)
		release()

		b := img.Bounds()
		w.Out.TrySend(avframe.WebcamFrame{
			Data:      rgb,
			Width:     b.Dx(),
			Height:    b.Dy(),
			Timestamp: time.Since(w.start),
		})

		if elapsed := time.Since(tick); elapsed < frameDuration {
			time.Sleep(frameDuration - elapsed)
		}
	}
}

// Stop halts capture and waits for the read goroutine to exit.
func (w *WebcamCapture) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stop, done := w.stop, w.done
	w.mu.Unlock()

	close(stop)
	<-done
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
