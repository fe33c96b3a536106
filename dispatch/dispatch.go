// Package dispatch runs the receive loop of an endpoint: it pulls envelopes
// off a link, decodes them and hands each payload to the handler registered
// for its kind.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"phantomlink/link"
	"phantomlink/wire"
)

// ErrStop is returned by a handler to end the receive loop normally.
var ErrStop = errors.New("dispatch: stop")

const DefaultPollTimeout = 200 * time.Millisecond

type HandlerFunc func(ctx context.Context, p wire.Payload) error

// Handlers is the dispatch table of an endpoint. Every kind the peer may send
// must have an entry.
type Handlers map[wire.Kind]HandlerFunc

type Option func(*Dispatcher)

// WithPollTimeout bounds how long a single receive blocks, and with it how
// long cancellation can go unnoticed.
func WithPollTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.poll = d
		}
	}
}

func WithName(name string) Option {
	return func(disp *Dispatcher) { disp.name = name }
}

type Dispatcher struct {
	conn     link.Conn
	codec    *wire.Codec
	handlers Handlers
	poll     time.Duration
	name     string

	done chan struct{}
	err  error
}

func New(conn link.Conn, codec *wire.Codec, handlers Handlers, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		conn:     conn,
		codec:    codec,
		handlers: handlers,
		poll:     DefaultPollTimeout,
		name:     "dispatch",
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start runs the loop on its own goroutine. Use Wait or Done to observe its end.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		defer close(d.done)
		d.err = d.Run(ctx)
	}()
}

func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Wait blocks until a loop started with Start has returned.
func (d *Dispatcher) Wait() error {
	<-d.done
	return d.err
}

// Run receives and dispatches until ctx is cancelled, the link is closed or
// a handler returns ErrStop; all three end the loop with a nil error. A frame
// that cannot be decoded ends it with the decode error.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Printf("[%s] receive loop started", d.name)
	defer log.Printf("[%s] receive loop stopped", d.name)

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := d.conn.Recv(d.poll)
		if err != nil {
			if errors.Is(err, link.ErrTimeout) {
				continue
			}
			if errors.Is(err, link.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%s: receive: %w", d.name, err)
		}

		p, err := d.codec.Decode(frame)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}

		if err := d.Dispatch(ctx, p); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			log.Printf("[%s] %s handler: %v", d.name, p.Kind(), err)
		}
	}
}

// Dispatch invokes the handler for p's kind. A missing handler means the
// endpoint was wired incorrectly and panics.
func (d *Dispatcher) Dispatch(ctx context.Context, p wire.Payload) error {
	h, ok := d.handlers[p.Kind()]
	if !ok {
		panic(fmt.Sprintf("%s: no handler registered for %s", d.name, p.Kind()))
	}
	return h(ctx, p)
}

// Send encodes p and writes it to conn. Endpoints use it for their outgoing
// traffic.
func Send(conn link.Conn, codec *wire.Codec, p wire.Payload) error {
	b, err := codec.Encode(p)
	if err != nil {
		return err
	}
	return conn.Send(b)
}
