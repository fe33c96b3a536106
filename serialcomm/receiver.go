// serialcomm/receiver.go
package serialcomm

import (
	"errors"
	"io"
	"log"
	"sync"
	"time"
)

// Receiver reads a port on its own goroutine and hands every chunk to a
// ReadHandler. It does not own the port: the caller stops the receiver,
// closes the port, then waits.
type Receiver struct {
	port    Port
	onRead  ReadHandler
	onError func(error)
	stopCh  chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup
	started bool
}

func NewReceiver(port Port, onRead ReadHandler) *Receiver {
	return &Receiver{
		port:   port,
		onRead: onRead,
		stopCh: make(chan struct{}),
	}
}

// OnError installs a callback for read errors other than idle timeouts. The
// receive loop ends after reporting such an error.
func (r *Receiver) OnError(fn func(error)) { r.onError = fn }

func (r *Receiver) Start() {
	if r.started {
		return
	}
	r.started = true
	r.wg.Add(1)
	go r.loop()
}

func (r *Receiver) loop() {
	defer r.wg.Done()
	data := make([]byte, 256)

	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		n, err := r.port.Read(data)
		if n > 0 && r.onRead != nil {
			chunk := make([]byte, n)
			copy(chunk, data[:n])
			r.onRead(chunk)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			select {
			case <-r.stopCh:
				return
			default:
			}
			log.Printf("[serialcomm] read error: %v", err)
			if r.onError != nil {
				r.onError(err)
			}
			return
		}
		if n == 0 {
			// Some drivers return immediately on an idle line.
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// Stop asks the loop to end. Close the port afterwards to unblock a pending Read.
func (r *Receiver) Stop() {
	r.stop.Do(func() { close(r.stopCh) })
}

func (r *Receiver) Wait() {
	r.wg.Wait()
}
