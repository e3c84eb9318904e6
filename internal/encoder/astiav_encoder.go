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

package encoder

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/avrecorder/internal/frame"
)

// astiavEncoder mirrors the teacher's recCtx/aEncCtx/aSwr/aEncFrame
// recorder fields (camera.go, video.go) generalized from "mux a copied
// H.264 stream + re-encoded AAC while passing through a live decode" to
// "encode composited RGBA/BGRA frames and mixed PCM from scratch".
type astiavEncoder struct {
	cfg Config

	mu sync.Mutex

	oc *astiav.FormatContext
	pb *astiav.IOContext

	vEncCtx   *astiav.CodecContext
	vStream   *astiav.Stream
	vScaler   *astiav.SoftwareScaleContext
	vYUVFrame *astiav.Frame
	vPts      int64

	aEncCtx   *astiav.CodecContext
	aStream   *astiav.Stream
	aSwr      *astiav.SoftwareResampleContext
	aEncFrame *astiav.Frame
	aPts      int64
	aPending  []float32 // interleaved samples awaiting a full encoder frame

	frames int64
}

func newAstiavEncoder(cfg Config) (*astiavEncoder, error) {
	e := &astiavEncoder{cfg: cfg}
	if err := e.open(); err != nil {
		e.closeQuiet()
		return nil, err
	}
	return e, nil
}

func (e *astiavEncoder) open() error {
	oc, err := astiav.AllocOutputFormatContext(nil, "mp4", e.cfg.OutputPath)
	if err != nil || oc == nil {
		return fmt.Errorf("AllocOutputFormatContext: %w", err)
	}
	e.oc = oc

	ioFlags := astiav.NewIOContextFlags(astiav.IOContextFlagWrite)
	pb, err := astiav.OpenIOContext(e.cfg.OutputPath, ioFlags, nil, nil)
	if err != nil {
		return fmt.Errorf("OpenIOContext: %w", err)
	}
	e.pb = pb
	oc.SetPb(pb)

	if err := e.openVideo(); err != nil {
		return err
	}
	if err := e.openAudio(); err != nil {
		return err
	}
	if err := oc.WriteHeader(nil); err != nil {
		return fmt.Errorf("WriteHeader: %w", err)
	}
	return nil
}

func (e *astiavEncoder) openVideo() error {
	codec := astiav.FindEncoder(astiav.CodecIDH264)
	if codec == nil {
		return errors.New("H.264 encoder not found")
	}
	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return errors.New("AllocCodecContext(H264) nil")
	}
	ctx.SetWidth(e.cfg.Width)
	ctx.SetHeight(e.cfg.Height)
	ctx.SetPixelFormat(astiav.PixelFormatYuv420P)
	ctx.SetTimeBase(astiav.NewRational(1, e.cfg.FrameRate))
	ctx.SetFramerate(astiav.NewRational(e.cfg.FrameRate, 1))
	ctx.SetBitRate(int64(e.cfg.VideoBitrateKbps) * 1000)

	opts := astiav.NewDictionary()
	defer opts.Free()
	_ = opts.Set("preset", "medium", 0)
	_ = opts.Set("crf", fmt.Sprintf("%d", e.cfg.CRF), 0)

	if e.oc.OutputFormat().Flags()&astiav.FormatFlagGlobalHeader != 0 {
		ctx.SetFlags(ctx.Flags() | astiav.CodecContextFlagGlobalHeader)
	}

	if err := ctx.Open(codec, opts); err != nil {
		ctx.Free()
		return fmt.Errorf("open H264 encoder: %w", err)
	}

	st := e.oc.NewStream(codec)
	if st == nil {
		ctx.Free()
		return errors.New("NewStream(video) nil")
	}
	if err := ctx.ToCodecParameters(st.CodecParameters()); err != nil {
		return fmt.Errorf("ToCodecParameters(video): %w", err)
	}
	st.SetTimeBase(ctx.TimeBase())

	e.vEncCtx = ctx
	e.vStream = st

	ssc, err := astiav.CreateSoftwareScaleContext(
		e.cfg.Width, e.cfg.Height, astiav.PixelFormatRgba,
		e.cfg.Width, e.cfg.Height, astiav.PixelFormatYuv420P,
		astiav.NewSoftwareScaleContextFlags(),
	)
	if err != nil {
		return fmt.Errorf("CreateSoftwareScaleContext(video): %w", err)
	}
	e.vScaler = ssc

	yuv := astiav.AllocFrame()
	yuv.SetWidth(e.cfg.Width)
	yuv.SetHeight(e.cfg.Height)
	yuv.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := yuv.AllocBuffer(1); err != nil {
		return fmt.Errorf("yuv.AllocBuffer: %w", err)
	}
	e.vYUVFrame = yuv
	return nil
}

func (e *astiavEncoder) openAudio() error {
	codec := astiav.FindEncoder(astiav.CodecIDAac)
	if codec == nil {
		return errors.New("AAC encoder not found")
	}
	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return errors.New("AllocCodecContext(AAC) nil")
	}
	if e.cfg.AudioChannels == 1 {
		ctx.SetChannelLayout(astiav.ChannelLayoutMono)
	} else {
		ctx.SetChannelLayout(astiav.ChannelLayoutStereo)
	}
	ctx.SetSampleRate(e.cfg.AudioSampleRate)
	sfs := codec.SampleFormats()
	if len(sfs) > 0 {
		ctx.SetSampleFormat(sfs[0])
	} else {
		ctx.SetSampleFormat(astiav.SampleFormatFltp)
	}
	ctx.SetTimeBase(astiav.NewRational(1, e.cfg.AudioSampleRate))
	ctx.SetBitRate(int64(e.cfg.AudioBitrateKbps) * 1000)
	if e.oc.OutputFormat().Flags()&astiav.FormatFlagGlobalHeader != 0 {
		ctx.SetFlags(ctx.Flags() | astiav.CodecContextFlagGlobalHeader)
	}

	if err := ctx.Open(codec, nil); err != nil {
		ctx.Free()
		return fmt.Errorf("open AAC encoder: %w", err)
	}

	st := e.oc.NewStream(codec)
	if st == nil {
		ctx.Free()
		return errors.New("NewStream(audio) nil")
	}
	if err := ctx.ToCodecParameters(st.CodecParameters()); err != nil {
		return fmt.Errorf("ToCodecParameters(audio): %w", err)
	}
	st.SetTimeBase(ctx.TimeBase())

	e.aEncCtx = ctx
	e.aStream = st

	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		return errors.New("AllocSoftwareResampleContext nil")
	}
	e.aSwr = swr
	e.aEncFrame = astiav.AllocFrame()
	return nil
}

// WriteVideoFrame converts f to YUV420P and encodes it with a sequential
// PTS (frame count), matching the teacher's "pts = frame_count" scheme.
func (e *astiavEncoder) WriteVideoFrame(f frame.CompositeFrame) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	src := astiav.AllocFrame()
	defer src.Free()
	pix := astiav.PixelFormatRgba
	if f.IsBGRA {
		pix = astiav.PixelFormatBgra
	}
	src.SetWidth(f.Width)
	src.SetHeight(f.Height)
	src.SetPixelFormat(pix)
	if err := src.AllocBuffer(1); err != nil {
		return fmt.Errorf("src.AllocBuffer: %w", err)
	}
	if _, err := src.Data().Copy(0, f.Data); err != nil {
		return fmt.Errorf("src.Data().Copy: %w", err)
	}

	if err := e.vScaler.ScaleFrame(src, e.vYUVFrame); err != nil {
		return fmt.Errorf("ScaleFrame(video): %w", err)
	}
	e.vYUVFrame.SetPts(e.vPts)
	e.vPts++

	if err := e.vEncCtx.SendFrame(e.vYUVFrame); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return fmt.Errorf("SendFrame(video): %w", err)
	}
	if err := e.drainVideoPackets(); err != nil {
		return err
	}
	atomic.AddInt64(&e.frames, 1)
	return nil
}

func (e *astiavEncoder) drainVideoPackets() error {
	for {
		pkt := astiav.AllocPacket()
		err := e.vEncCtx.ReceivePacket(pkt)
		if err != nil {
			pkt.Free()
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("ReceivePacket(video): %w", err)
		}
		pkt.SetStreamIndex(e.vStream.Index())
		pkt.RescaleTs(e.vEncCtx.TimeBase(), e.vStream.TimeBase())
		werr := e.oc.WriteInterleavedFrame(pkt)
		pkt.Unref()
		pkt.Free()
		if werr != nil && !errors.Is(werr, astiav.ErrEagain) {
			return fmt.Errorf("WriteInterleavedFrame(video): %w", werr)
		}
	}
}

// WriteAudioChunk accumulates interleaved samples until a full encoder
// frame's worth is available, deinterleaves via swresample, and encodes.
func (e *astiavEncoder) WriteAudioChunk(c frame.MixedAudioChunk) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.aPending = append(e.aPending, c.Samples...)
	samplesPerFrame := e.aEncCtx.FrameSize()
	if samplesPerFrame <= 0 {
		samplesPerFrame = 1024
	}
	need := samplesPerFrame * e.cfg.AudioChannels

	for len(e.aPending) >= need {
		chunk := e.aPending[:need]
		e.aPending = e.aPending[need:]

		in := astiav.AllocFrame()
		in.SetSampleFormat(astiav.SampleFormatFlt)
		in.SetChannelLayout(e.aEncCtx.ChannelLayout())
		in.SetSampleRate(e.cfg.AudioSampleRate)
		in.SetNbSamples(samplesPerFrame)
		if err := in.AllocBuffer(0); err != nil {
			in.Free()
			return fmt.Errorf("audio in.AllocBuffer: %w", err)
		}
		if err := in.Data().CopyFloat32(0, chunk); err != nil {
			in.Free()
			return fmt.Errorf("audio in.Data().CopyFloat32: %w", err)
		}

		e.aEncFrame.SetSampleFormat(e.aEncCtx.SampleFormat())
		e.aEncFrame.SetChannelLayout(e.aEncCtx.ChannelLayout())
		e.aEncFrame.SetSampleRate(e.aEncCtx.SampleRate())
		e.aEncFrame.SetNbSamples(samplesPerFrame)
		if err := e.aEncFrame.AllocBuffer(0); err != nil {
			in.Free()
			return fmt.Errorf("audio aEncFrame.AllocBuffer: %w", err)
		}
		if err := e.aSwr.ConvertFrame(in, e.aEncFrame); err != nil {
			in.Free()
			return fmt.Errorf("swr.ConvertFrame: %w", err)
		}
		in.Free()

		e.aEncFrame.SetPts(e.aPts)
		e.aPts += int64(samplesPerFrame)

		if err := e.aEncCtx.SendFrame(e.aEncFrame); err != nil && !errors.Is(err, astiav.ErrEagain) {
			return fmt.Errorf("SendFrame(audio): %w", err)
		}
		if err := e.drainAudioPackets(); err != nil {
			return err
		}
	}
	return nil
}

func (e *astiavEncoder) drainAudioPackets() error {
	for {
		pkt := astiav.AllocPacket()
		err := e.aEncCtx.ReceivePacket(pkt)
		if err != nil {
			pkt.Free()
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("ReceivePacket(audio): %w", err)
		}
		pkt.SetStreamIndex(e.aStream.Index())
		pkt.RescaleTs(e.aEncCtx.TimeBase(), e.aStream.TimeBase())
		werr := e.oc.WriteInterleavedFrame(pkt)
		pkt.Unref()
		pkt.Free()
		if werr != nil && !errors.Is(werr, astiav.ErrEagain) {
			return fmt.Errorf("WriteInterleavedFrame(audio): %w", werr)
		}
	}
}

// FramesEncoded reports the video frame count encoded so far.
func (e *astiavEncoder) FramesEncoded() int64 { return atomic.LoadInt64(&e.frames) }

// Close flushes both encoders, writes the trailer, and releases every
// astiav resource — the same shape as the teacher's closeRecorder.
func (e *astiavEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.vEncCtx != nil {
		_ = e.vEncCtx.SendFrame(nil)
		_ = e.drainVideoPackets()
	}
	if e.aEncCtx != nil {
		_ = e.aEncCtx.SendFrame(nil)
		_ = e.drainAudioPackets()
	}

	var err error
	if e.oc != nil {
		if werr := e.oc.WriteTrailer(); werr != nil {
			err = werr
		}
	}
	e.closeQuiet()
	return err
}

func (e *astiavEncoder) closeQuiet() {
	if e.vYUVFrame != nil {
		e.vYUVFrame.Free()
		e.vYUVFrame = nil
	}
	if e.vScaler != nil {
		e.vScaler.Free()
		e.vScaler = nil
	}
	if e.vEncCtx != nil {
		e.vEncCtx.Free()
		e.vEncCtx = nil
	}
	if e.aEncFrame != nil {
		e.aEncFrame.Free()
		e.aEncFrame = nil
	}
	if e.aSwr != nil {
		e.aSwr.Free()
		e.aSwr = nil
	}
	if e.aEncCtx != nil {
		e.aEncCtx.Free()
		e.aEncCtx = nil
	}
	if e.pb != nil {
		_ = e.pb.Close()
		e.pb.Free()
		e.pb = nil
	}
	if e.oc != nil {
		e.oc.Free()
		e.oc = nil
	}
}
