// Package fakeport provides an in-memory serialcomm.Port for tests.
package fakeport

import (
	"errors"
	"io"
	"sync"
	"time"

	"phantomlink/serialcomm"
)

var ErrClosed = errors.New("fakeport: closed")

// Port records writes and serves reads from data pushed with Feed.
type Port struct {
	mu       sync.Mutex
	writes   [][]byte
	rx       chan []byte
	closed   chan struct{}
	once     sync.Once
	writeErr error
	idle     time.Duration
}

func New() *Port {
	return &Port{
		rx:     make(chan []byte, 64),
		closed: make(chan struct{}),
		idle:   10 * time.Millisecond,
	}
}

// Opener returns a serialcomm.Opener that hands out p and records the
// config it was asked to open with.
func (p *Port) Opener(got *serialcomm.SerialConfig) serialcomm.Opener {
	return func(cfg *serialcomm.SerialConfig) (serialcomm.Port, error) {
		if got != nil {
			*got = *cfg
		}
		return p, nil
	}
}

// FailingOpener always fails with err.
func FailingOpener(err error) serialcomm.Opener {
	return func(*serialcomm.SerialConfig) (serialcomm.Port, error) {
		return nil, err
	}
}

func (p *Port) Feed(data string) {
	p.rx <- []byte(data)
}

func (p *Port) Read(b []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, ErrClosed
	default:
	}
	select {
	case data := <-p.rx:
		return copy(b, data), nil
	case <-p.closed:
		return 0, ErrClosed
	case <-time.After(p.idle):
		return 0, io.EOF
	}
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.closed:
		return 0, ErrClosed
	default:
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *Port) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *Port) SetWriteError(err error) {
	p.mu.Lock()
	p.writeErr = err
	p.mu.Unlock()
}

// Writes returns a copy of every successful write so far.
func (p *Port) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

func (p *Port) Closed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}
