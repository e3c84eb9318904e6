//go:build linux

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

import "os"

// currentDeviceSpec opens the X11 display through x11grab. $DISPLAY
// (falling back to ":0") selects the display the way every x11grab
// example in the corpus does.
func currentDeviceSpec(cfg ScreenConfig) deviceSpec {
	disp := os.Getenv("DISPLAY")
	if disp == "" {
		disp = ":0"
	}
	return deviceSpec{
		format: "x11grab",
		url:    disp,
		opts: map[string]string{
			"draw_mouse": "1",
		},
	}
}
