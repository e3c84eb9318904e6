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

// Package sleepwatch notifies a running recording session when the host
// goes to sleep and wakes back up, so a Manager can re-validate capture
// devices that OS-level suspend may have torn down (screen capture
// permissions, USB webcams, audio devices).
package sleepwatch

// Callbacks is invoked from the watcher goroutine on sleep/wake
// transitions. Either field may be nil.
type Callbacks struct {
	OnSleep func()
	OnWake  func()
}

// Watcher watches for host sleep/wake transitions until Stop is called.
type Watcher interface {
	Start(cb Callbacks)
	Stop()
}

// New returns the platform-appropriate watcher.
func New() Watcher {
	return newWatcher()
}
