// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import "sync"

// serialQueue runs functions one at a time in push order on its own
// goroutine. push never blocks.
type serialQueue struct {
	mu      sync.Mutex
	items   []queued
	stopped bool
	wake    chan struct{}
	done    <-chan struct{}
}

type queued struct {
	run     func()
	discard func()
}

func newSerialQueue(done <-chan struct{}) *serialQueue {
	q := &serialQueue{wake: make(chan struct{}, 1), done: done}
	go q.loop()
	return q
}

// push queues run. If the queue stops before run is reached, discard
// is called instead.
func (q *serialQueue) push(run, discard func()) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		discard()
		return
	}
	q.items = append(q.items, queued{run: run, discard: discard})
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *serialQueue) loop() {
	for {
		select {
		case <-q.wake:
		case <-q.done:
			q.drain()
			return
		}
		for {
			q.mu.Lock()
			if len(q.items) == 0 {
				q.mu.Unlock()
				break
			}
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()

			select {
			case <-q.done:
				item.discard()
				q.drain()
				return
			default:
			}
			item.run()
		}
	}
}

func (q *serialQueue) drain() {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.stopped = true
	q.mu.Unlock()
	for _, item := range items {
		item.discard()
	}
}
