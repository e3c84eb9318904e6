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
	"image"

	"github.com/pion/mediadevices"
)

// imageToPackedRGB converts any image.Image (mediadevices hands back
// YUYV/I420/RGBA frames depending on what the driver negotiated, already
// decoded into a standard Go image by its frame package) into packed RGB,
// matching the original_source's WebcamFrame.data layout.
func imageToPackedRGB(img image.Image) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bch, _ := img.At(x, y).RGBA()
			out = append(out, byte(r>>8), byte(g>>8), byte(bch>>8))
		}
	}
	return out
}

// EnumerateWebcams lists camera devices visible to pion/mediadevices.
func EnumerateWebcams() []DeviceInfo {
	return enumerateByKind(mediadevices.VideoInput)
}

// EnumerateMicrophones lists microphone devices visible to
// pion/mediadevices.
func EnumerateMicrophones() []DeviceInfo {
	return enumerateByKind(mediadevices.AudioInput)
}

func enumerateByKind(kind mediadevices.MediaDeviceType) []DeviceInfo {
	var out []DeviceInfo
	for _, d := range mediadevices.EnumerateDevices() {
		if d.Kind != kind {
			continue
		}
		out = append(out, DeviceInfo{ID: d.DeviceID, Name: d.Label})
	}
	return out
}

// DeviceInfo mirrors recording.DeviceInfo; duplicated here (rather than
// imported) to keep internal/capture free of a dependency on
// internal/recording — recording.EnumerateDevices maps between the two.
type DeviceInfo struct {
	ID   string
	Name string
}

// Availability check for screen capture, used by device enumeration and
// by Manager.Start's validation path.
func ScreenCaptureAvailable() error {
	spec := currentDeviceSpec(ScreenConfig{})
	if spec.format == "" {
		return fmt.Errorf("no screen capture device available on this platform")
	}
	return nil
}
