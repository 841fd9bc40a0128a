// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"slices"
	"sync"
)

// MemoryPort is one end of an in-process port pair. Messages are
// copied on post and delivered asynchronously, in order, by a
// goroutine per end. Messages posted before the peer registers a
// handler are held until it does.
type MemoryPort struct {
	peer *MemoryPort
	pair *pairState

	mu       sync.Mutex
	queue    [][]byte
	handlers []func([]byte)
	wake     chan struct{}
}

type pairState struct {
	once sync.Once
	done chan struct{}
}

// NewPortPair returns two connected ports. Closing either closes both.
func NewPortPair() (*MemoryPort, *MemoryPort) {
	pair := &pairState{done: make(chan struct{})}
	left := &MemoryPort{pair: pair, wake: make(chan struct{}, 1)}
	right := &MemoryPort{pair: pair, wake: make(chan struct{}, 1)}
	left.peer = right
	right.peer = left
	go left.deliver()
	go right.deliver()
	return left, right
}

// PostMessage queues data for the peer.
func (p *MemoryPort) PostMessage(data []byte) error {
	select {
	case <-p.pair.done:
		return ErrPortClosed
	default:
	}
	p.peer.enqueue(bytes.Clone(data))
	return nil
}

// OnMessage registers handler for messages from the peer.
func (p *MemoryPort) OnMessage(handler func(data []byte)) {
	p.mu.Lock()
	p.handlers = append(p.handlers, handler)
	p.mu.Unlock()
	p.signal()
}

// Done is closed when the pair is closed.
func (p *MemoryPort) Done() <-chan struct{} {
	return p.pair.done
}

// Close closes both ends. Undelivered messages are dropped.
func (p *MemoryPort) Close() error {
	p.pair.once.Do(func() { close(p.pair.done) })
	return nil
}

func (p *MemoryPort) enqueue(data []byte) {
	p.mu.Lock()
	p.queue = append(p.queue, data)
	p.mu.Unlock()
	p.signal()
}

func (p *MemoryPort) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *MemoryPort) deliver() {
	for {
		select {
		case <-p.wake:
		case <-p.pair.done:
			return
		}
		for {
			p.mu.Lock()
			if len(p.handlers) == 0 || len(p.queue) == 0 {
				p.mu.Unlock()
				break
			}
			data := p.queue[0]
			p.queue[0] = nil
			p.queue = p.queue[1:]
			handlers := slices.Clone(p.handlers)
			p.mu.Unlock()

			for _, handler := range handlers {
				handler(data)
			}
		}
	}
}
