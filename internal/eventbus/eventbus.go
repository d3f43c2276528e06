// Copyright (c) 2013 Uwe Hoffmann. All rights reserved.

/*
Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * Neither the name of Google Inc. nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

// Package eventbus is the ordered, best-effort progress-event broadcast
// delivered in publication order. One Bus is created per long-running
// operation (a DAT import or a scan); external collaborators subscribe to
// observe its progress.
package eventbus

import "sync"

// Event is any of the JSON-serialisable progress records.
type Event interface {
	isEvent()
}

// DAT import events.

type Started struct{ Path string }
type DatDetected struct {
	Name   string
	Format string
}
type SetStarted struct {
	Name  string
	Index int
}
type RomProgress struct{ TotalEntries int }
type ImportCompleted struct {
	Name          string
	EntryCount    int
	DurationMs    int64
	EntriesPerSec float64
}
type Skipped struct{ Reason string }

// Scan events.

type Discovery struct{ Directory string }
type FileStarted struct {
	Path string
	Size int64
}
type FileProgress struct {
	Path       string
	BytesDone  int64
	BytesTotal int64
}
type FileCompleted struct {
	Path string
	Size int64
}
type Summary struct {
	DiscoveredFiles int64
	ProcessedFiles  int64
	TotalBytes      int64
	DurationMs      int64
	FilesPerSec     float64
	BytesPerSec     float64
}
type Error struct{ Message string }

func (Started) isEvent()         {}
func (DatDetected) isEvent()     {}
func (SetStarted) isEvent()      {}
func (RomProgress) isEvent()     {}
func (ImportCompleted) isEvent() {}
func (Skipped) isEvent()         {}
func (Discovery) isEvent()       {}
func (FileStarted) isEvent()     {}
func (FileProgress) isEvent()    {}
func (FileCompleted) isEvent()   {}
func (Summary) isEvent()         {}
func (Error) isEvent()           {}

// isDroppable reports whether a subscriber lagging behind may miss this
// event. Started, Completed, Summary and Error are never dropped.
func isDroppable(e Event) bool {
	switch e.(type) {
	case FileProgress, RomProgress:
		return true
	default:
		return false
	}
}

const subscriberBuffer = 64

// Bus is a single broadcast channel fanned out to every subscriber.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a new listener and returns its event channel. The
// channel is closed when the Bus is closed.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers e to every subscriber in registration order. Progress
// events are dropped for a subscriber whose buffer is full; every other
// event is delivered with a blocking send so it is never silently lost.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]chan Event, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	droppable := isDroppable(e)

	for _, ch := range subs {
		if droppable {
			select {
			case ch <- e:
			default:
			}
			continue
		}
		ch <- e
	}
}

// Close closes every subscriber channel. Publish must not be called after Close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
