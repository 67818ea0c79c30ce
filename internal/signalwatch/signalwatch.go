// Package signalwatch implements the bounded command-queue + latest-value
// broadcast pair used for all cross-service communication in mediacore.
//
// A Watcher/Receiver pair is born together via New. The Watcher side is held
// by producers and passive readers: it can send commands (blocking
// cooperatively if the queue is full) and read the latest published value.
// The Receiver side is held by the owning service loop: it is the sole
// consumer of commands and the sole writer of the broadcast value.
package signalwatch

import "sync"

// New creates a command-and-broadcast channel bundle with the given command
// queue capacity and initial broadcast value.
func New[Cmd, Data any](capacity int, initial Data) (Watcher[Cmd, Data], *Receiver[Cmd, Data]) {
	state := &broadcast[Data]{value: initial}
	state.changed = make(chan struct{})
	cmds := make(chan Cmd, capacity)
	closer := &cmdCloser[Cmd]{ch: cmds}

	w := Watcher[Cmd, Data]{cmds: cmds, state: state, closer: closer}
	r := &Receiver[Cmd, Data]{cmds: cmds, state: state}
	return w, r
}

// cmdCloser lets every clone of a Watcher share one close-once on the
// underlying command channel: closing it ends the receiver's loop, and in
// Go only the channel's owner may close it safely.
type cmdCloser[Cmd any] struct {
	once sync.Once
	ch   chan Cmd
}

func (c *cmdCloser[Cmd]) close() { c.once.Do(func() { close(c.ch) }) }

// NewPlain creates a publish-only broadcast with no command side, used for
// state that is only announced, never requested (the Processor's
// ProcessingList).
func NewPlain[Data any](initial Data) (PlainWatcher[Data], *PlainReceiver[Data]) {
	state := &broadcast[Data]{value: initial}
	state.changed = make(chan struct{})
	return PlainWatcher[Data]{state: state}, &PlainReceiver[Data]{state: state}
}

type broadcast[Data any] struct {
	mu      sync.RWMutex
	value   Data
	changed chan struct{} // closed and replaced on every publish
}

func (b *broadcast[Data]) latest() Data {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

func (b *broadcast[Data]) changedCh() <-chan struct{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.changed
}

func (b *broadcast[Data]) publish(v Data) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = v
	close(b.changed)
	b.changed = make(chan struct{})
}

// Watcher is the producer/passive-reader half of a signal/watch pair.
// The zero value is not usable; obtain one from New.
type Watcher[Cmd, Data any] struct {
	cmds   chan<- Cmd
	state  *broadcast[Data]
	closer *cmdCloser[Cmd]
}

// Send enqueues a command, blocking cooperatively if the queue is full or
// until ctx is done.
func (w Watcher[Cmd, Data]) Send(ctx doneCtx, cmd Cmd) error {
	select {
	case w.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the most recently published value.
func (w Watcher[Cmd, Data]) Latest() Data { return w.state.latest() }

// Changed returns a channel that closes the next time a value is published.
// Callers must re-call Changed after each fire to keep observing future
// publications; the closed channel is not reused.
func (w Watcher[Cmd, Data]) Changed() <-chan struct{} { return w.state.changedCh() }

// Close shuts down the command side. It is safe to call from any clone of
// this Watcher and safe to call more than once; the owning Receiver's
// Commands channel closes, which is the sole termination condition for a
// service loop.
func (w Watcher[Cmd, Data]) Close() { w.closer.close() }

// doneCtx is the minimal slice of context.Context this package depends on,
// so callers may pass any context.Context without an import cycle concern.
type doneCtx interface {
	Done() <-chan struct{}
	Err() error
}

// Receiver is the service-loop half of a signal/watch pair: sole command
// consumer, sole broadcast writer.
type Receiver[Cmd, Data any] struct {
	cmds  <-chan Cmd
	state *broadcast[Data]
}

// Commands returns the command channel. It closes as soon as Close is
// called on any Watcher of this pair; receiving a zero value with
// ok=false is the loop's end-of-stream signal.
func (r *Receiver[Cmd, Data]) Commands() <-chan Cmd { return r.cmds }

// Publish writes the new latest value and fires Changed for all watchers.
func (r *Receiver[Cmd, Data]) Publish(v Data) { r.state.publish(v) }

// PlainWatcher is a publish-only broadcast reader (no command side).
type PlainWatcher[Data any] struct {
	state *broadcast[Data]
}

func (w PlainWatcher[Data]) Latest() Data             { return w.state.latest() }
func (w PlainWatcher[Data]) Changed() <-chan struct{} { return w.state.changedCh() }

// PlainReceiver is the sole writer of a publish-only broadcast.
type PlainReceiver[Data any] struct {
	state *broadcast[Data]
}

func (r *PlainReceiver[Data]) Publish(v Data) { r.state.publish(v) }
