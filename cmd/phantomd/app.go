package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"phantomlink/config"
	"phantomlink/dispatch"
	"phantomlink/link"
	"phantomlink/mediator"
	"phantomlink/motion"
	"phantomlink/operator"
	"phantomlink/preset"
	"phantomlink/serialcomm"
	"phantomlink/wire"
)

// commandSide is the mediator with the engine it owns and its receive loop.
type commandSide struct {
	engine *motion.Engine
	med    *mediator.Mediator
	disp   *dispatch.Dispatcher
}

// startCommandSide receives commands on commands and reports on notify.
// The two may be the same duplex conn.
func startCommandSide(ctx context.Context, c *config.Config, open serialcomm.Opener, commands, notify link.Conn, codec *wire.Codec) *commandSide {
	cs := &commandSide{}
	cs.engine = motion.NewEngine(open, func(text string) { cs.med.EngineLog(text) },
		motion.WithBaudRate(c.Serial.BaudRate),
		motion.WithFlushInterval(c.Engine.FlushInterval),
		motion.WithReadTimeout(c.Serial.ReadTimeout),
	)
	cs.med = mediator.New(cs.engine, notify, codec, preset.WithInterval(c.Preset.TickInterval))
	cs.engine.Start()

	cs.disp = dispatch.New(commands, codec, cs.med.Handlers(),
		dispatch.WithPollTimeout(c.Link.PollTimeout),
		dispatch.WithName("dispatch:mediator"))
	cs.disp.Start(ctx)
	return cs
}

// Wait blocks until the receive loop ends, then stops the generator and
// the engine.
func (cs *commandSide) Wait() error {
	err := cs.disp.Wait()
	cs.med.Generator().Shutdown()
	cs.engine.Close()
	return err
}

type operatorSide struct {
	op   *operator.Operator
	disp *dispatch.Dispatcher
}

// startOperatorSide sends on commands and receives on notify. Log messages
// are printed to out.
func startOperatorSide(ctx context.Context, c *config.Config, commands, notify link.Conn, codec *wire.Codec, out io.Writer) *operatorSide {
	op := operator.New(commands, codec,
		operator.WithHistory(c.Log.History),
		operator.WithLogCallback(func(m wire.LogMessage) {
			fmt.Fprintf(out, "[%s] %s\n", m.Source, m.Text)
		}))
	disp := dispatch.New(notify, codec, op.Handlers(),
		dispatch.WithPollTimeout(c.Link.PollTimeout),
		dispatch.WithName("dispatch:operator"))
	disp.Start(ctx)
	return &operatorSide{op: op, disp: disp}
}

// console runs the operator console until the user quits or any of the
// given loops ends, whichever comes first.
func console(ctx context.Context, side *operatorSide, in io.Reader, out io.Writer, loops ...*dispatch.Dispatcher) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for _, d := range loops {
		go func(d *dispatch.Dispatcher) {
			select {
			case <-d.Done():
				cancel()
			case <-ctx.Done():
			}
		}(d)
	}
	if err := operator.NewConsole(side.op, out).Run(ctx, in); err != nil {
		log.Printf("[console] %v", err)
	}
}

// autoConnect opens the configured port, if any, as soon as the operator
// is up.
func autoConnect(c *config.Config, op *operator.Operator) {
	if c.Serial.Port == "" {
		return
	}
	if err := op.Connect(c.Serial.Port); err != nil {
		log.Printf("[phantomd] connect %s: %v", c.Serial.Port, err)
	}
}

// openPort opens the configured serial port directly, for the commands
// that bypass the engine.
func openPort(c *config.Config, open serialcomm.Opener) (serialcomm.Port, error) {
	if c.Serial.Port == "" {
		return nil, fmt.Errorf("no serial port: use --port or serial.port in the config")
	}
	port, err := open(&serialcomm.SerialConfig{
		PortName:    c.Serial.Port,
		BaudRate:    c.Serial.BaudRate,
		ReadTimeout: c.Serial.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Serial.Port, err)
	}
	return port, nil
}
