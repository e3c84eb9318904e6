//go:build darwin

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

import (
	"log"

	"github.com/prashantgupta24/mac-sleep-notifier/notifier"
)

type darwinWatcher struct {
	stop chan struct{}
}

func newWatcher() Watcher {
	return &darwinWatcher{stop: make(chan struct{})}
}

func (w *darwinWatcher) Start(cb Callbacks) {
	notifierCh := notifier.GetInstance().Start()
	go func() {
		for {
			select {
			case <-w.stop:
				return
			case activity := <-notifierCh:
				switch activity.Type {
				case notifier.Awake:
					log.Println("sleepwatch: machine awake")
					if cb.OnWake != nil {
						cb.OnWake()
					}
				case notifier.Sleep:
					log.Println("sleepwatch: machine sleeping")
					if cb.OnSleep != nil {
						cb.OnSleep()
					}
				}
			}
		}
	}()
}

func (w *darwinWatcher) Stop() {
	close(w.stop)
}
