//go:build !darwin

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

package sleepwatch

// stubWatcher is a no-op: Windows and Linux have no equivalent of the
// mac-sleep-notifier IOKit hook wired up here. Capture sources on those
// platforms are expected to recover on their own reconnect-backoff loop
// instead (see internal/capture/screen.go's decodeLoop).
type stubWatcher struct{}

func newWatcher() Watcher {
	return &stubWatcher{}
}

func (w *stubWatcher) Start(cb Callbacks) {}

func (w *stubWatcher) Stop() {}
