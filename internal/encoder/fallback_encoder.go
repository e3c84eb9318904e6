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
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/e1z0/avrecorder/internal/frame"
)

// fallbackEncoder writes each composite frame as a numbered PNG under
// "<basename>_frames/" plus a sibling "<basename>_metadata.txt" with the exact ffmpeg
// command line to stitch them into an MP4 — used when the real astiav
// H.264/AAC encoder cannot be opened. Audio is dropped in this path
// (same as original_source/encoder.rs's encode_loop_fallback, which never
// wires audio into the PNG sidecar either).
type fallbackEncoder struct {
	cfg       Config
	framesDir string
	baseName  string

	mu     sync.Mutex
	frames int64
}

func newFallbackEncoder(cfg Config) (*fallbackEncoder, error) {
	base := strings.TrimSuffix(cfg.OutputPath, filepath.Ext(cfg.OutputPath))
	dir := base + "_frames"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir frames dir: %w", err)
	}
	return &fallbackEncoder{cfg: cfg, framesDir: dir, baseName: base}, nil
}

func (f *fallbackEncoder) WriteVideoFrame(cf frame.CompositeFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	img := toRGBAImage(cf)
	n := atomic.AddInt64(&f.frames, 1)
	path := filepath.Join(f.framesDir, fmt.Sprintf("frame_%06d.png", n))
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()
	return png.Encode(out, img)
}

func toRGBAImage(cf frame.CompositeFrame) *image.RGBA {
	if !cf.IsBGRA {
		return &image.RGBA{Pix: cf.Data, Stride: cf.Width * 4, Rect: image.Rect(0, 0, cf.Width, cf.Height)}
	}
	img := image.NewRGBA(image.Rect(0, 0, cf.Width, cf.Height))
	for i := 0; i+3 < len(cf.Data); i += 4 {
		b, g, r, a := cf.Data[i], cf.Data[i+1], cf.Data[i+2], cf.Data[i+3]
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
	}
	return img
}

// WriteAudioChunk is a no-op: the PNG sidecar path never produces audio.
func (f *fallbackEncoder) WriteAudioChunk(frame.MixedAudioChunk) error { return nil }

func (f *fallbackEncoder) FramesEncoded() int64 { return atomic.LoadInt64(&f.frames) }

// Close writes the metadata file documenting how to stitch the PNG
// sequence into the originally requested MP4.
func (f *fallbackEncoder) Close() error {
	meta := fmt.Sprintf(
		"frames: %d\nresolution: %dx%d\nfps: %d\nquality_crf: %d\nstitch command:\nffmpeg -r %d -i %s/frame_%%06d.png -c:v libx264 -pix_fmt yuv420p %s\n",
		atomic.LoadInt64(&f.frames), f.cfg.Width, f.cfg.Height, f.cfg.FrameRate, f.cfg.CRF,
		f.cfg.FrameRate, f.framesDir, f.cfg.OutputPath,
	)
	return os.WriteFile(f.baseName+"_metadata.txt", []byte(meta), 0o644)
}
