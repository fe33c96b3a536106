// Package link carries opaque envelope frames between the two endpoints of
// the application: the operator side and the command side.
package link

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned by Recv when no frame arrived within the timeout.
	ErrTimeout = errors.New("link: receive timeout")
	// ErrClosed is returned once either end of the link has been closed.
	ErrClosed = errors.New("link: closed")
)

// Conn is one end of a point-to-point, frame-oriented duplex link.
// Send and Recv may be called from different goroutines; Send is safe for
// concurrent use.
type Conn interface {
	Send(frame []byte) error
	Recv(timeout time.Duration) ([]byte, error)
	Close() error
}

// Pipe returns the two ends of an in-process link. Closing either end
// terminates both.
func Pipe(buffer int) (Conn, Conn) {
	if buffer <= 0 {
		buffer = 64
	}
	shared := &pipeState{done: make(chan struct{})}
	ab := make(chan []byte, buffer)
	ba := make(chan []byte, buffer)
	return &pipeConn{state: shared, in: ba, out: ab}, &pipeConn{state: shared, in: ab, out: ba}
}

type pipeState struct {
	once sync.Once
	done chan struct{}
}

type pipeConn struct {
	state *pipeState
	in    <-chan []byte
	out   chan<- []byte
}

func (p *pipeConn) Send(frame []byte) error {
	b := make([]byte, len(frame))
	copy(b, frame)
	select {
	case <-p.state.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- b:
		return nil
	case <-p.state.done:
		return ErrClosed
	}
}

func (p *pipeConn) Recv(timeout time.Duration) ([]byte, error) {
	select {
	case <-p.state.done:
		return nil, ErrClosed
	default:
	}
	select {
	case b := <-p.in:
		return b, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case b := <-p.in:
		return b, nil
	case <-p.state.done:
		return nil, ErrClosed
	case <-timer.C:
		return nil, ErrTimeout
	}
}

func (p *pipeConn) Close() error {
	p.state.once.Do(func() { close(p.state.done) })
	return nil
}
