// Package operator is the UI-side endpoint. It issues commands to the
// mediator and mirrors the positions and log lines reported back.
package operator

import (
	"context"
	"sync"

	"phantomlink/dispatch"
	"phantomlink/link"
	"phantomlink/wire"
)

const (
	// Neutral is the mid-range raw target for extension and rotation.
	Neutral = 127

	DefaultHistory = 200
)

// Pose is the last known raw target of one cylinder.
type Pose struct {
	Extension uint8
	Rotation  uint8
}

// ExtensionMM is the displacement from neutral in millimetres.
func (p Pose) ExtensionMM() float64 {
	return (float64(p.Extension) - Neutral) / 255 * 45
}

// RotationDeg is the rotation from neutral in degrees.
func (p Pose) RotationDeg() float64 {
	return (float64(p.Rotation) - Neutral) / 255 * 180
}

type Option func(*Operator)

// WithHistory bounds the number of retained log messages.
func WithHistory(n int) Option {
	return func(o *Operator) {
		if n > 0 {
			o.historyLimit = n
		}
	}
}

// WithLogCallback is invoked for each log message received, outside the
// operator's lock.
func WithLogCallback(fn func(wire.LogMessage)) Option {
	return func(o *Operator) { o.onLog = fn }
}

type Operator struct {
	commands link.Conn
	codec    *wire.Codec
	onLog    func(wire.LogMessage)

	mu           sync.Mutex
	poses        map[wire.Cylinder]Pose
	history      []wire.LogMessage
	historyLimit int
}

// New returns an operator that sends its commands over commands.
func New(commands link.Conn, codec *wire.Codec, opts ...Option) *Operator {
	o := &Operator{
		commands: commands,
		codec:    codec,
		poses: map[wire.Cylinder]Pose{
			wire.Left:     {Neutral, Neutral},
			wire.Right:    {Neutral, Neutral},
			wire.Platform: {Neutral, Neutral},
		},
		historyLimit: DefaultHistory,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Operator) Connect(port string) error {
	return o.send(wire.Connect{Port: port})
}

func (o *Operator) Disconnect() error {
	return o.send(wire.Disconnect{})
}

// Move updates the local mirror and asks for c to be driven to ext/rot.
func (o *Operator) Move(c wire.Cylinder, ext, rot uint8) error {
	o.mu.Lock()
	o.poses[c] = Pose{Extension: ext, Rotation: rot}
	o.mu.Unlock()
	return o.send(wire.CylinderMotion{Cylinder: c, Extension: ext, Rotation: rot})
}

func (o *Operator) Manual() error {
	return o.send(wire.ManualModeClick{})
}

func (o *Operator) Preset(n int) error {
	return o.send(wire.PresetModeClick{Preset: n})
}

// Shutdown asks the mediator to stop. The mediator echoes Shutdown back,
// which ends the operator's own receive loop.
func (o *Operator) Shutdown() error {
	return o.send(wire.Shutdown{})
}

func (o *Operator) send(p wire.Payload) error {
	return dispatch.Send(o.commands, o.codec, p)
}

func (o *Operator) Pose(c wire.Cylinder) Pose {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.poses[c]
}

// History returns the retained log messages, newest first.
func (o *Operator) History() []wire.LogMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]wire.LogMessage(nil), o.history...)
}

// Handlers returns the dispatch table for the notify link.
func (o *Operator) Handlers() dispatch.Handlers {
	return dispatch.Handlers{
		wire.KindCylinderPositions: o.onPositions,
		wire.KindLogMessage:        o.onLogMessage,
		wire.KindShutdown:          func(context.Context, wire.Payload) error { return dispatch.ErrStop },
	}
}

func (o *Operator) onPositions(_ context.Context, p wire.Payload) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, pos := range p.(wire.CylinderPositions).Positions {
		o.poses[pos.Cylinder] = Pose{Extension: pos.Extension, Rotation: pos.Rotation}
	}
	return nil
}

func (o *Operator) onLogMessage(_ context.Context, p wire.Payload) error {
	msg := p.(wire.LogMessage)

	o.mu.Lock()
	o.history = append([]wire.LogMessage{msg}, o.history...)
	if len(o.history) > o.historyLimit {
		o.history = o.history[:o.historyLimit]
	}
	o.mu.Unlock()

	if o.onLog != nil {
		o.onLog(msg)
	}
	return nil
}
