// Package motion drives the phantom's motion controller over a serial link:
// it coalesces channel commands into frames, flushes them on a fixed cadence
// and turns the controller's telemetry into log lines.
package motion

import (
	"fmt"
	"log"
	"sync"
	"time"

	"phantomlink/serialcomm"
)

const (
	DefaultBaudRate      = 9600
	DefaultFlushInterval = 50 * time.Millisecond
	DefaultReadTimeout   = 100 * time.Millisecond
)

// LogFunc receives the engine's operator-facing log lines.
type LogFunc func(text string)

type Option func(*Engine)

func WithBaudRate(baud int) Option {
	return func(e *Engine) {
		if baud > 0 {
			e.baud = baud
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.flushEvery = d
		}
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.readTimeout = d
		}
	}
}

// Engine owns the serial connection to the motion controller.
//
// Lock order is buf.mu before mu.
type Engine struct {
	open        serialcomm.Opener
	logf        LogFunc
	baud        int
	flushEvery  time.Duration
	readTimeout time.Duration

	buf *frameBuffer

	mu       sync.Mutex
	port     serialcomm.Port
	portName string
	sender   *serialcomm.Sender
	receiver *serialcomm.Receiver
	deframer *Deframer
	lastSum  uint16

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewEngine(open serialcomm.Opener, logf LogFunc, opts ...Option) *Engine {
	if logf == nil {
		logf = func(string) {}
	}
	e := &Engine{
		open:        open,
		logf:        logf,
		baud:        DefaultBaudRate,
		flushEvery:  DefaultFlushInterval,
		readTimeout: DefaultReadTimeout,
		buf:         newFrameBuffer(),
		deframer:    NewDeframer(),
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the flush loop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.flushLoop()
}

func (e *Engine) flushLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			if err := e.Flush(); err != nil {
				log.Printf("[engine] flush: %v", err)
				e.logf(fmt.Sprintf("Write failed: %v", err))
			}
		}
	}
}

// Close stops the flush loop, waits for it and disconnects.
func (e *Engine) Close() error {
	e.stopOnce.Do(func() { close(e.stop) })
	e.wg.Wait()
	e.Disconnect()
	return nil
}

// Connect opens portName, replacing any open connection. Failures are
// reported through the log function and leave the engine disconnected.
func (e *Engine) Connect(portName string) {
	e.Disconnect()

	port, err := e.open(&serialcomm.SerialConfig{
		PortName:    portName,
		BaudRate:    e.baud,
		ReadTimeout: e.readTimeout,
	})
	if err != nil {
		log.Printf("[engine] open %s: %v", portName, err)
		e.logf(err.Error())
		return
	}

	e.buf.mu.Lock()
	e.buf.clear()
	e.buf.mu.Unlock()

	e.mu.Lock()
	e.port = port
	e.portName = portName
	e.sender = serialcomm.NewSender(port)
	e.deframer.Reset()
	rx := serialcomm.NewReceiver(port, func(data []byte) { e.received(port, data) })
	rx.OnError(func(err error) { e.logf(fmt.Sprintf("Serial read failed: %v", err)) })
	e.receiver = rx
	_, err = e.sender.Send([]byte{SyncRequest})
	e.mu.Unlock()

	rx.Start()
	log.Printf("[engine] connected to %s at %d baud", portName, e.baud)
	if err != nil {
		e.logf(fmt.Sprintf("Send 'Sync' failed: %v", err))
	}
}

// Disconnect closes the port if one is open.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	port, rx, name := e.port, e.receiver, e.portName
	e.port, e.receiver, e.sender, e.portName = nil, nil, nil, ""
	e.deframer.Reset()
	e.mu.Unlock()

	if port == nil {
		return
	}
	rx.Stop()
	if err := port.Close(); err != nil {
		log.Printf("[engine] close %s: %v", name, err)
	}
	rx.Wait()
	log.Printf("[engine] disconnected from %s", name)
}

func (e *Engine) received(from serialcomm.Port, data []byte) {
	e.mu.Lock()
	if e.port != from {
		e.mu.Unlock()
		return
	}
	lines := e.deframer.Feed(data)
	e.mu.Unlock()

	for _, l := range lines {
		e.logf(l)
	}
}

// Submit merges cmds into the pending frame. With no open port the commands
// are dropped and a single log line reports it.
func (e *Engine) Submit(cmds []ChannelCommand) {
	if !e.IsOpen() {
		e.logf("Send failed since serial port is not open.")
		return
	}
	e.buf.mu.Lock()
	e.buf.merge(cmds)
	e.buf.mu.Unlock()
}

// Flush writes the pending frame, if any, in one write and clears it. On a
// write error the pending frame is kept and the error returned.
func (e *Engine) Flush() error {
	e.buf.mu.Lock()
	defer e.buf.mu.Unlock()

	if e.buf.len() == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sender == nil {
		return nil
	}

	frame := EncodeFrame(e.buf.snapshot())
	sum, err := e.sender.Send(frame)
	if err != nil {
		return fmt.Errorf("write %s: %w", e.portName, err)
	}
	e.lastSum = sum
	e.buf.clear()
	return nil
}

func (e *Engine) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.port != nil
}

func (e *Engine) State() SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deframer.State()
}

// LastChecksum is the CRC16 of the last frame written. It is informational
// only; identical frames are still sent.
func (e *Engine) LastChecksum() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSum
}

// Pending returns the commands waiting for the next flush.
func (e *Engine) Pending() []ChannelCommand {
	e.buf.mu.Lock()
	defer e.buf.mu.Unlock()
	return e.buf.snapshot()
}
