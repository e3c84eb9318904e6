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

import "github.com/e1z0/avrecorder/internal/capture"

// EnumerateDevices lists every capture device available to the host,
// matching original_source/recording.rs's list_devices. It never fails:
// an empty/false result for a category just means that source is
// unavailable, mirroring how Start treats a missing system-audio device
// as non-fatal rather than an error.
func EnumerateDevices() DeviceList {
	var list DeviceList
	if capture.ScreenCaptureAvailable() == nil {
		list.Screens = []DeviceInfo{{ID: "0", Name: "Primary Display"}}
	}
	for _, d := range capture.EnumerateWebcams() {
		list.Webcams = append(list.Webcams, DeviceInfo{ID: d.ID, Name: d.Name})
	}
	for _, d := range capture.EnumerateMicrophones() {
		list.Microphones = append(list.Microphones, DeviceInfo{ID: d.ID, Name: d.Name})
	}
	list.HasSystemAudio = capture.NewSystemAudioCapture(capture.DefaultSystemAudioConfig(), 1).Available()
	return list
}
