package watcher

import (
	"sort"
	"sync"
	"time"

	"image-viewer/internal/metrics"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 100 * time.Millisecond

// Event is a debounced filesystem change for one path.
type Event struct {
	Path string
	Op   Op
}

// Op is the kind of change carried by an Event.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Debouncer collects events and emits them as one batch once no new event
// has arrived for the configured interval. Events for the same path within
// a window collapse to the latest one. Batches are queued and delivered by
// a single sender goroutine, so Add never waits on a slow consumer.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	events   map[string]Event
	timer    *time.Timer
	queue    [][]Event
	closed   bool

	notify    chan struct{}
	output    chan []Event
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewDebouncer creates a debouncer with the specified quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	d := &Debouncer{
		interval: interval,
		events:   make(map[string]Event),
		notify:   make(chan struct{}, 1),
		output:   make(chan []Event, 16),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go d.send()
	return d
}

// Output returns the channel that receives batches, each sorted by path.
// It is closed by Close.
func (d *Debouncer) Output() <-chan []Event {
	return d.output
}

// Add records an event. It is a no-op after Close.
func (d *Debouncer) Add(path string, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.events[path] = Event{Path: path, Op: op}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// flush moves the pending events onto the delivery queue.
func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.closed || len(d.events) == 0 {
		d.mu.Unlock()
		return
	}

	batch := make([]Event, 0, len(d.events))
	for _, event := range d.events {
		batch = append(batch, event)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	d.events = make(map[string]Event)
	d.queue = append(d.queue, batch)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// next pops the oldest queued batch.
func (d *Debouncer) next() ([]Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return nil, false
	}
	batch := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return batch, true
}

// send delivers queued batches in order until Close.
func (d *Debouncer) send() {
	defer close(d.stopped)
	defer close(d.output)

	for {
		select {
		case <-d.notify:
		case <-d.done:
			return
		}

		for {
			batch, ok := d.next()
			if !ok {
				break
			}
			select {
			case d.output <- batch:
				metrics.WatcherBatchSize.Observe(float64(len(batch)))
			case <-d.done:
				return
			}
		}
	}
}

// Close drops pending and queued events and closes the output channel once
// the sender has stopped. Safe to call more than once and concurrently with
// Add or a pending flush.
func (d *Debouncer) Close() {
	d.closeOnce.Do(func() {
		close(d.done)

		d.mu.Lock()
		d.closed = true
		if d.timer != nil {
			d.timer.Stop()
		}
		d.events = nil
		d.queue = nil
		d.mu.Unlock()

		<-d.stopped
	})
}
