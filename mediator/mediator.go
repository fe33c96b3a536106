// Package mediator is the command-side endpoint. It turns operator and
// preset commands into channel commands for the motion engine and reports
// back to the operator.
package mediator

import (
	"context"
	"log"
	"sync/atomic"

	"phantomlink/dispatch"
	"phantomlink/link"
	"phantomlink/motion"
	"phantomlink/preset"
	"phantomlink/wire"
)

// LogSource tags log messages that originate from the motion controller.
const LogSource = "MotionSystem"

// interactiveStep is the step size used for operator moves.
const interactiveStep = 5

// Engine is the part of motion.Engine the mediator drives.
type Engine interface {
	Connect(port string)
	Disconnect()
	Submit(cmds []motion.ChannelCommand)
}

type Mediator struct {
	engine    Engine
	generator *preset.Generator
	notify    link.Conn
	codec     *wire.Codec
	connected atomic.Bool
}

// New builds a mediator that reports to the operator over notify. The
// generator is created here so that its output flows into the mediator.
func New(engine Engine, notify link.Conn, codec *wire.Codec, opts ...preset.Option) *Mediator {
	m := &Mediator{
		engine: engine,
		notify: notify,
		codec:  codec,
	}
	m.generator = preset.NewGenerator(m.onGenerated, opts...)
	return m
}

// EngineLog adapts the mediator into a motion.LogFunc.
func (m *Mediator) EngineLog(text string) {
	m.forward(wire.LogMessage{Source: LogSource, Text: text})
}

func (m *Mediator) Generator() *preset.Generator { return m.generator }

func (m *Mediator) Connected() bool { return m.connected.Load() }

// Handlers returns the dispatch table for the command endpoint.
func (m *Mediator) Handlers() dispatch.Handlers {
	return dispatch.Handlers{
		wire.KindConnect:           m.onConnect,
		wire.KindDisconnect:        m.onDisconnect,
		wire.KindCylinderMotion:    m.onCylinderMotion,
		wire.KindCylinderPositions: m.onCylinderPositions,
		wire.KindManualModeClick:   m.onManual,
		wire.KindPresetModeClick:   m.onPreset,
		wire.KindLogMessage:        m.onLogMessage,
		wire.KindShutdown:          m.onShutdown,
	}
}

func (m *Mediator) onConnect(_ context.Context, p wire.Payload) error {
	m.connected.Store(true)
	m.engine.Connect(p.(wire.Connect).Port)
	return nil
}

func (m *Mediator) onDisconnect(context.Context, wire.Payload) error {
	m.connected.Store(false)
	m.engine.Disconnect()
	return nil
}

func (m *Mediator) onCylinderMotion(_ context.Context, p wire.Payload) error {
	cmds, err := Translate(p.(wire.CylinderMotion))
	if err != nil {
		return err
	}
	if m.connected.Load() {
		m.engine.Submit(cmds)
	}
	return nil
}

// onCylinderPositions drops the whole set, without forwarding it, when any
// entry is out of range.
func (m *Mediator) onCylinderPositions(_ context.Context, p wire.Payload) error {
	return m.deliver(p.(wire.CylinderPositions))
}

// onGenerated is the preset generator's sink; it runs on the generator's
// goroutine.
func (m *Mediator) onGenerated(p wire.CylinderPositions) {
	if err := m.deliver(p); err != nil {
		log.Printf("[mediator] generated positions: %v", err)
	}
}

func (m *Mediator) deliver(p wire.CylinderPositions) error {
	cmds, err := TranslatePositions(p)
	if err != nil {
		return err
	}
	if m.connected.Load() {
		m.engine.Submit(cmds)
	}
	m.forward(p)
	return nil
}

func (m *Mediator) onManual(context.Context, wire.Payload) error {
	m.generator.ManualOverride()
	return nil
}

func (m *Mediator) onPreset(_ context.Context, p wire.Payload) error {
	m.generator.SelectPreset(p.(wire.PresetModeClick).Preset)
	return nil
}

func (m *Mediator) onLogMessage(_ context.Context, p wire.Payload) error {
	m.forward(p)
	return nil
}

func (m *Mediator) onShutdown(_ context.Context, p wire.Payload) error {
	m.forward(p)
	m.engine.Disconnect()
	m.generator.Shutdown()
	return dispatch.ErrStop
}

func (m *Mediator) forward(p wire.Payload) {
	if err := dispatch.Send(m.notify, m.codec, p); err != nil {
		log.Printf("[mediator] notify %s: %v", p.Kind(), err)
	}
}
