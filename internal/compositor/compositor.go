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

// Package compositor combines the screen and webcam frames into one
// composite frame ready for the encoder, via either a zero-copy BGRA
// passthrough (no webcam, matching output dimensions) or a full RGBA
// composite with picture-in-picture webcam overlay.
package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	ximage "golang.org/x/image/draw"

	"github.com/e1z0/avrecorder/internal/frame"
)

// PipPosition selects the corner the webcam overlay is anchored to.
type PipPosition int

const (
	PipTopRight PipPosition = iota
	PipTopLeft
	PipBottomLeft
	PipBottomRight
)

// Config mirrors original_source/compositor.rs's CompositorConfig.
type Config struct {
	OutputWidth    int
	OutputHeight   int
	IncludeWebcam  bool
	PipPosition    PipPosition
	PipSizePercent int
	PipPadding     int
}

// DefaultConfig matches the Rust prototype's Default impl.
func DefaultConfig() Config {
	return Config{
		OutputWidth:    1920,
		OutputHeight:   1080,
		IncludeWebcam:  false,
		PipPosition:    PipTopRight,
		PipSizePercent: 25,
		PipPadding:     20,
	}
}

// Compositor holds precomputed picture-in-picture placement geometry.
type Compositor struct {
	cfg        Config
	pipWidth   int
	pipHeight  int
	pipX, pipY int
}

// New precomputes the PiP rectangle the way the Rust constructor does:
// width = outputWidth*percent/100, height = width*3/4 (4:3 aspect).
func New(cfg Config) *Compositor {
	pipW := cfg.OutputWidth * cfg.PipSizePercent / 100
	pipH := pipW * 3 / 4
	x, y := calculatePipPosition(cfg, pipW, pipH)
	return &Compositor{cfg: cfg, pipWidth: pipW, pipHeight: pipH, pipX: x, pipY: y}
}

func calculatePipPosition(cfg Config, pipW, pipH int) (int, int) {
	pad := cfg.PipPadding
	switch cfg.PipPosition {
	case PipTopLeft:
		return pad, pad
	case PipTopRight:
		return cfg.OutputWidth - pipW - pad, pad
	case PipBottomLeft:
		return pad, cfg.OutputHeight - pipH - pad
	case PipBottomRight:
		return cfg.OutputWidth - pipW - pad, cfg.OutputHeight - pipH - pad
	default:
		return cfg.OutputWidth - pipW - pad, pad
	}
}

// Composite produces one output frame from the latest screen frame and
// optionally the latest webcam frame.
func (c *Compositor) Composite(screen *frame.ScreenFrame, webcam *frame.WebcamFrame) frame.CompositeFrame {
	if webcam == nil || !c.cfg.IncludeWebcam {
		if screen != nil && screen.Width == c.cfg.OutputWidth && screen.Height == c.cfg.OutputHeight {
			return c.compositeFastPath(screen)
		}
	}
	if screen == nil && webcam != nil {
		return c.compositeWebcamOnly(webcam)
	}
	return c.compositeSlowPath(screen, webcam)
}

// compositeFastPath tags the packed BGRA screen buffer directly, with no
// pixel conversion — the zero-cost path for screen-only recording at the
// target resolution.
func (c *Compositor) compositeFastPath(screen *frame.ScreenFrame) frame.CompositeFrame {
	data := toPackedBGRA(screen)
	return frame.CompositeFrame{
		Data:      data,
		Width:     screen.Width,
		Height:    screen.Height,
		Timestamp: screen.Timestamp,
		IsBGRA:    true,
	}
}

// toPackedBGRA strips the scaler's row stride padding, if any, leaving a
// tightly packed w*4 buffer.
func toPackedBGRA(s *frame.ScreenFrame) []byte {
	rowBytes := s.Width * 4
	if s.Stride == 0 || s.Stride == rowBytes {
		return s.Data
	}
	out := make([]byte, rowBytes*s.Height)
	for y := 0; y < s.Height; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], s.Data[y*s.Stride:y*s.Stride+rowBytes])
	}
	return out
}

// compositeSlowPath converts the screen frame to RGBA, resizes it to the
// output dimensions if needed, and overlays the webcam frame as a
// bordered picture-in-picture box.
func (c *Compositor) compositeSlowPath(screen *frame.ScreenFrame, webcam *frame.WebcamFrame) frame.CompositeFrame {
	base := c.prepareBaseFrame(screen)
	var ts = time.Duration(0)
	if screen != nil {
		ts = screen.Timestamp
	}
	if webcam != nil {
		c.overlayWebcam(base, webcam)
		ts = webcam.Timestamp
	}
	return frame.CompositeFrame{
		Data:      base.Pix,
		Width:     base.Rect.Dx(),
		Height:    base.Rect.Dy(),
		Timestamp: ts,
		IsBGRA:    false,
	}
}

// prepareBaseFrame converts the packed BGRA screen buffer to an RGBA
// image.Image and resizes it to the output dimensions using a triangle
// (bilinear) filter when the source dimensions differ, matching the
// FilterType::Triangle resize the Rust prototype uses.
func (c *Compositor) prepareBaseFrame(screen *frame.ScreenFrame) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, c.cfg.OutputWidth, c.cfg.OutputHeight))
	if screen == nil {
		return out
	}
	src := bgraToRGBAImage(screen)
	if screen.Width == c.cfg.OutputWidth && screen.Height == c.cfg.OutputHeight {
		copy(out.Pix, src.Pix)
		return out
	}
	ximage.BiLinear.Scale(out, out.Rect, src, src.Bounds(), draw.Src, nil)
	return out
}

func bgraToRGBAImage(s *frame.ScreenFrame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	packed := toPackedBGRA(s)
	for i := 0; i+3 < len(packed); i += 4 {
		b, g, r, a := packed[i], packed[i+1], packed[i+2], packed[i+3]
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img
}

// overlayWebcam draws a 2px white border then blits the (resized) webcam
// frame into the precomputed PiP rectangle.
func (c *Compositor) overlayWebcam(base *image.RGBA, webcam *frame.WebcamFrame) {
	border := color.RGBA{255, 255, 255, 200}
	rect := image.Rect(c.pipX-2, c.pipY-2, c.pipX+c.pipWidth+2, c.pipY+c.pipHeight+2)
	drawBorder(base, rect, border, 2)

	camImg := &image.RGBA{
		Pix:    webcam.ToRGBA(),
		Stride: webcam.Width * 4,
		Rect:   image.Rect(0, 0, webcam.Width, webcam.Height),
	}
	dst := image.Rect(c.pipX, c.pipY, c.pipX+c.pipWidth, c.pipY+c.pipHeight)
	if webcam.Width == c.pipWidth && webcam.Height == c.pipHeight {
		draw.Draw(base, dst, camImg, image.Point{}, draw.Over)
		return
	}
	ximage.BiLinear.Scale(base, dst, camImg, camImg.Bounds(), draw.Over, nil)
}

func drawBorder(img *image.RGBA, rect image.Rectangle, c color.RGBA, thickness int) {
	fill := func(r image.Rectangle) {
		draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Over)
	}
	fill(image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+thickness))
	fill(image.Rect(rect.Min.X, rect.Max.Y-thickness, rect.Max.X, rect.Max.Y))
	fill(image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+thickness, rect.Max.Y))
	fill(image.Rect(rect.Max.X-thickness, rect.Min.Y, rect.Max.X, rect.Max.Y))
}

// compositeWebcamOnly scales the webcam frame to fill the entire output
// dimensions — used when no screen frame is available.
func (c *Compositor) compositeWebcamOnly(webcam *frame.WebcamFrame) frame.CompositeFrame {
	out := image.NewRGBA(image.Rect(0, 0, c.cfg.OutputWidth, c.cfg.OutputHeight))
	camImg := &image.RGBA{
		Pix:    webcam.ToRGBA(),
		Stride: webcam.Width * 4,
		Rect:   image.Rect(0, 0, webcam.Width, webcam.Height),
	}
	ximage.BiLinear.Scale(out, out.Rect, camImg, camImg.Bounds(), draw.Src, nil)
	return frame.CompositeFrame{
		Data:      out.Pix,
		Width:     c.cfg.OutputWidth,
		Height:    c.cfg.OutputHeight,
		Timestamp: webcam.Timestamp,
		IsBGRA:    false,
	}
}

// PipRect exposes the precomputed PiP rectangle, primarily for tests.
func (c *Compositor) PipRect() (x, y, w, h int) {
	return c.pipX, c.pipY, c.pipWidth, c.pipHeight
}
