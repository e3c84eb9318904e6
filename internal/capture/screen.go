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

// Package capture implements the screen, webcam, microphone, and system-
// audio capture sources (spec §4.2). Screen capture reuses the teacher's
// astiav decode-loop idiom, pointed at the OS's native FFmpeg virtual
// capture device (avfoundation/gdigrab/x11grab) instead of an RTSP URL;
// webcam and microphone capture use pion/mediadevices.
package capture

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
	"sync"
	"time"

	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/avrecorder/internal/frame"
	"github.com/e1z0/avrecorder/internal/queue"
)

// ScreenConfig configures screen capture.
type ScreenConfig struct {
	DisplayIndex int // which display to capture, 0 = primary
	Width        int // 0 lets the OS default device resolution through
	Height       int
	FrameRate    int
}

// deviceSpec is supplied per-platform (screen_darwin.go, screen_windows.go,
// screen_linux.go, screen_fallback.go) and names the FFmpeg input format
// and device URL to open for live screen capture.
type deviceSpec struct {
	format string
	url    string
	opts   map[string]string
}

// ScreenCapture decodes a live capture-device input the same way the
// teacher's openAndDecode decodes an RTSP stream, but converts every frame
// straight to BGRA and publishes it to Out instead of muxing it.
type ScreenCapture struct {
	cfg ScreenConfig
	Out *queue.Bounded[frame.ScreenFrame]

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	start time.Time
}

// NewScreenCapture creates a screen capture source with the given output
// queue capacity (spec §4.1 uses 120 for screen/webcam/composite queues).
func NewScreenCapture(cfg ScreenConfig, outCapacity int) *ScreenCapture {
	return &ScreenCapture{
		cfg: cfg,
		Out: queue.NewBounded[frame.ScreenFrame](outCapacity),
	}
}

// Start begins the capture+decode goroutine. Errors surfaced after start
// (device disappears, permission revoked mid-session) are logged and
// trigger the same 1s-backoff reconnect loop the teacher's decodeLoop
// uses; Start itself only fails fast for configuration-time problems.
func (s *ScreenCapture) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("screen capture already running")
	}
	spec := currentDeviceSpec(s.cfg)
	if spec.format == "" {
		return fmt.Errorf("screen capture: no capture device available on %s", runtime.GOOS)
	}
	s.running = true
	s.start = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.decodeLoop(spec)
	return nil
}

// Stop halts capture and waits for the decode goroutine to exit.
func (s *ScreenCapture) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop := s.stop
	done := s.done
	s.mu.Unlock()

	close(stop)
	<-done
}

func (s *ScreenCapture) decodeLoop(spec deviceSpec) {
	defer close(s.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-s.stop:
			return
		default:
		}
		if err := s.openAndDecode(spec); err != nil {
			log.Printf("[screen] decode error: %v", err)
			if isPermissionError(err) {
				log.Printf("[screen] capture permission denied — enable screen recording access for this app in System Settings -> Privacy & Security -> Screen Recording")
			}
		}
		select {
		case <-s.stop:
			return
		case <-time.After(1 * time.Second):
		}
	}
}

func isPermissionError(err error) bool {
	// FFmpeg's avfoundation/gdigrab/x11grab input reports permission
	// failures from OpenInput only through the EPERM/EACCES error text;
	// there is no structured error code to check, so this scans the message the
	// same way the original prototype's screen_macos.rs does.
	msg := err.Error()
	return strings.Contains(msg, "Operation not permitted") || strings.Contains(msg, "Permission denied")
}

func (s *ScreenCapture) openAndDecode(spec deviceSpec) error {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return errors.New("AllocFormatContext")
	}
	defer fc.Free()

	inputFmt := astiav.FindInputFormat(spec.format)
	if inputFmt == nil {
		return fmt.Errorf("FindInputFormat(%s): not available", spec.format)
	}

	opts := astiav.NewDictionary()
	defer opts.Free()
	if s.cfg.FrameRate > 0 {
		_ = opts.Set("framerate", fmt.Sprintf("%d", s.cfg.FrameRate), 0)
	}
	if s.cfg.Width > 0 && s.cfg.Height > 0 {
		_ = opts.Set("video_size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height), 0)
	}
	for k, v := range spec.opts {
		_ = opts.Set(k, v, 0)
	}

	if err := fc.OpenInput(spec.url, inputFmt, opts); err != nil {
		return fmt.Errorf("OpenInput(%s): %w", spec.url, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("FindStreamInfo: %w", err)
	}

	vIdx := -1
	for i, st := range fc.Streams() {
		if st.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			vIdx = i
			break
		}
	}
	if vIdx < 0 {
		return errors.New("no video stream in capture device")
	}
	vst := fc.Streams()[vIdx]
	vpar := vst.CodecParameters()

	vdec := astiav.FindDecoder(vpar.CodecID())
	if vdec == nil {
		return errors.New("FindDecoder(video) nil")
	}
	vctx := astiav.AllocCodecContext(vdec)
	if vctx == nil {
		return errors.New("AllocCodecContext(video) nil")
	}
	defer vctx.Free()
	if err := vpar.ToCodecContext(vctx); err != nil {
		return fmt.Errorf("ToCodecContext: %w", err)
	}
	if err := vctx.Open(vdec, nil); err != nil {
		return fmt.Errorf("open video decoder: %w", err)
	}

	var scaler bgraScaler
	defer scaler.close()

	pkt := astiav.AllocPacket()
	defer pkt.Free()
	vf := astiav.AllocFrame()
	defer vf.Free()

	for {
		select {
		case <-s.stop:
			return nil
		default:
		}

		if err := fc.ReadFrame(pkt); err != nil {
			return fmt.Errorf("ReadFrame: %w", err)
		}
		if pkt.StreamIndex() != vIdx {
			pkt.Unref()
			continue
		}

		if err := vctx.SendPacket(pkt); err == nil {
			for {
				err := vctx.ReceiveFrame(vf)
				if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
					break
				}
				if err != nil {
					break
				}
				w, h, bgra, serr := scaler.toBGRA(vf)
				vf.Unref()
				if serr != nil {
					log.Printf("[screen] toBGRA: %v", serr)
					continue
				}
				s.Out.TrySend(frame.ScreenFrame{
					Data:      bgra,
					Width:     w,
					Height:    h,
					Stride:    w * 4,
					Timestamp: time.Since(s.start),
				})
			}
		}
		pkt.Unref()
	}
}

// bgraScaler is the same swscale-to-BGRA wrapper the teacher's video.go
// uses for camera preview, reused here for live capture-device frames.
type bgraScaler struct {
	ssc        *astiav.SoftwareScaleContext
	dst        *astiav.Frame
	srcW, srcH int
	srcPix     astiav.PixelFormat
	dstW, dstH int
}

func (s *bgraScaler) close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
}

func (s *bgraScaler) ensure(src *astiav.Frame) error {
	sw, sh := src.Width(), src.Height()
	sp := src.PixelFormat()
	if s.ssc != nil && sw == s.srcW && sh == s.srcH && sp == s.srcPix {
		return nil
	}
	s.close()

	ssc, err := astiav.CreateSoftwareScaleContext(sw, sh, sp, sw, sh, astiav.PixelFormatBgra, astiav.NewSoftwareScaleContextFlags())
	if err != nil {
		return fmt.Errorf("CreateSoftwareScaleContext: %w", err)
	}
	dst := astiav.AllocFrame()
	dst.SetWidth(sw)
	dst.SetHeight(sh)
	dst.SetPixelFormat(astiav.PixelFormatBgra)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("dst.AllocBuffer: %w", err)
	}
	s.ssc, s.dst = ssc, dst
	s.srcW, s.srcH, s.srcPix = sw, sh, sp
	s.dstW, s.dstH = sw, sh
	return nil
}

func (s *bgraScaler) toBGRA(src *astiav.Frame) (int, int, []byte, error) {
	if err := s.ensure(src); err != nil {
		return 0, 0, nil, err
	}
	if err := s.ssc.ScaleFrame(src, s.dst); err != nil {
		return 0, 0, nil, fmt.Errorf("ScaleFrame: %w", err)
	}
	n, err := s.dst.ImageBufferSize(1)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("ImageBufferSize: %w", err)
	}
	out := make([]byte, n)
	if _, err := s.dst.ImageCopyToBuffer(out, 1); err != nil {
		return 0, 0, nil, fmt.Errorf("ImageCopyToBuffer: %w", err)
	}
	return s.dstW, s.dstH, out, nil
}
