// Package shell provides the wake channel between widget code and the host loop.
//
// Producers anywhere in the process hold a *Sender and post Requests on it;
// the host loop owns the Channel, reads Requests() and coalesces whatever is
// queued into one Batch per frame.
package shell

import (
	"errors"
	"sync"
)

var (
	// ErrClosed is returned when sending on a closed channel.
	ErrClosed = errors.New("shell channel is closed")

	// ErrFull is returned by Offer when the queue is full.
	ErrFull = errors.New("shell channel is full")
)

// Kind identifies a window request.
type Kind int

const (
	// KindRedraw asks the host loop to run a frame and repaint.
	KindRedraw Kind = iota
	// KindUpdate asks the host loop to run a frame without forcing a repaint.
	KindUpdate
	// KindChangeTitle asks the host loop to change the window title.
	KindChangeTitle
	// KindClose asks the host loop to shut down.
	KindClose
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindRedraw:
		return "redraw"
	case KindUpdate:
		return "update"
	case KindChangeTitle:
		return "change-title"
	case KindClose:
		return "close"
	default:
		return "unknown"
	}
}

// Request is a single signal sent to the host loop.
type Request struct {
	Kind Kind

	// Title is set for KindChangeTitle.
	Title string
}

// Predefined requests.
var (
	RequestRedraw = Request{Kind: KindRedraw}
	RequestUpdate = Request{Kind: KindUpdate}
	RequestClose  = Request{Kind: KindClose}
)

// ChangeTitle builds a title change request.
func ChangeTitle(title string) Request {
	return Request{Kind: KindChangeTitle, Title: title}
}

// Channel is a bounded request queue with an explicit closed state.
// The underlying Go channel is never closed, so late senders get ErrClosed
// instead of a panic.
type Channel struct {
	requests chan Request
	done     chan struct{}
	once     sync.Once
	sender   *Sender
}

// DefaultSize is the queue capacity used when NewChannel gets a non-positive size.
const DefaultSize = 64

// NewChannel creates a channel that buffers up to size requests.
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = DefaultSize
	}
	c := &Channel{
		requests: make(chan Request, size),
		done:     make(chan struct{}),
	}
	c.sender = &Sender{ch: c}
	return c
}

// Sender returns the send half. It may be shared by any number of goroutines.
func (c *Channel) Sender() *Sender {
	return c.sender
}

// Requests returns the receive half for the host loop.
func (c *Channel) Requests() <-chan Request {
	return c.requests
}

// Done is closed once Close has been called.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close marks the channel closed and releases blocked senders.
// It is safe to call more than once.
func (c *Channel) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// IsClosed reports whether Close has been called.
func (c *Channel) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Sender is the send half of a Channel.
type Sender struct {
	ch *Channel
}

// Send posts a request. It blocks while the queue is full and returns
// ErrClosed if the channel is, or becomes, closed.
func (s *Sender) Send(req Request) error {
	select {
	case <-s.ch.done:
		return ErrClosed
	default:
	}

	select {
	case s.ch.requests <- req:
		return nil
	case <-s.ch.done:
		return ErrClosed
	}
}

// Offer posts a request without blocking. It returns ErrFull when the
// queue is full and ErrClosed when the channel is closed. Code running on
// the host loop uses it, since the loop is the only reader.
func (s *Sender) Offer(req Request) error {
	select {
	case <-s.ch.done:
		return ErrClosed
	default:
	}

	select {
	case s.ch.requests <- req:
		return nil
	default:
		return ErrFull
	}
}

// Redraw is shorthand for Send(RequestRedraw).
func (s *Sender) Redraw() error {
	return s.Send(RequestRedraw)
}
