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

// Package queue implements the bounded single-producer/single-consumer
// queue fabric every capture source, the compositor, and the mixer use to
// hand frames to the next pipeline stage without ever blocking the
// producer. A full queue drops the newest item rather than stalling
// capture, the same "never block the capture callback" rule the teacher's
// frameBuf enforces by always overwriting the single slot it holds.
package queue

import "sync"

// Bounded is a fixed-capacity FIFO. TrySend never blocks: when full, it
// drops the item and reports false. TryRecv never blocks: when empty, it
// reports false.
type Bounded[T any] struct {
	mu       sync.Mutex
	items    []T
	cap      int
	dropped  uint64
	received uint64
}

// NewBounded creates a queue that holds at most capacity items.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bounded[T]{items: make([]T, 0, capacity), cap: capacity}
}

// TrySend appends v if there is room, else drops it. Returns true on
// success.
func (q *Bounded[T]) TrySend(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.cap {
		q.dropped++
		return false
	}
	q.items = append(q.items, v)
	return true
}

// TryRecv pops the oldest item, if any.
func (q *Bounded[T]) TryRecv() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items = q.items[1:]
	q.received++
	return v, true
}

// DrainLatest pops every pending item and returns only the most recent
// one, along with the count of items it discarded along the way. This is
// the "drain-all-keep-latest" retention rule the compositor's per-tick
// webcam read uses.
func (q *Bounded[T]) DrainLatest() (v T, ok bool, skipped int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if n == 0 {
		return v, false, 0
	}
	v = q.items[n-1]
	q.received += uint64(n)
	q.items = q.items[:0]
	return v, true, n - 1
}

// Len reports the number of items currently queued.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap reports the queue's capacity.
func (q *Bounded[T]) Cap() int { return q.cap }

// Pressure reports queue fill ratio in [0,1], used by the compositor's
// adaptive frame-rate control.
func (q *Bounded[T]) Pressure() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return float64(len(q.items)) / float64(q.cap)
}

// Dropped reports how many TrySend calls have dropped an item so far.
func (q *Bounded[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
