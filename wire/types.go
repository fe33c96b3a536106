package wire

import (
	"fmt"
	"strings"
)

// Kind identifies the concrete payload carried by an envelope.
type Kind uint16

const (
	KindConnect Kind = iota + 1
	KindDisconnect
	KindCylinderMotion
	KindCylinderPositions
	KindManualModeClick
	KindPresetModeClick
	KindLogMessage
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "Connect"
	case KindDisconnect:
		return "Disconnect"
	case KindCylinderMotion:
		return "CylinderMotion"
	case KindCylinderPositions:
		return "CylinderPositions"
	case KindManualModeClick:
		return "ManualModeClick"
	case KindPresetModeClick:
		return "PresetModeClick"
	case KindLogMessage:
		return "LogMessage"
	case KindShutdown:
		return "Shutdown"
	default:
		return fmt.Sprintf("Kind(%d)", uint16(k))
	}
}

// Payload is implemented by every message that can travel in an envelope.
type Payload interface {
	Kind() Kind
}

// Cylinder is a logical actuator group of the phantom.
type Cylinder int

const (
	Left Cylinder = iota
	Right
	Platform
)

func (c Cylinder) String() string {
	switch c {
	case Left:
		return "left"
	case Right:
		return "right"
	case Platform:
		return "platform"
	default:
		return fmt.Sprintf("cylinder(%d)", int(c))
	}
}

// Valid reports whether c names one of the phantom's cylinders.
func (c Cylinder) Valid() bool {
	return c >= Left && c <= Platform
}

// ParseCylinder accepts the names produced by String, case-insensitively.
func ParseCylinder(s string) (Cylinder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	case "platform", "p", "mp":
		return Platform, nil
	}
	return 0, fmt.Errorf("unknown cylinder %q", s)
}

type Connect struct {
	Port string `json:"port"`
}

type Disconnect struct{}

// CylinderMotion is an interactive move of a single cylinder.
type CylinderMotion struct {
	Cylinder  Cylinder `json:"cylinder"`
	Extension uint8    `json:"extension"`
	Rotation  uint8    `json:"rotation"`
}

type CylinderPosition struct {
	Cylinder  Cylinder `json:"cylinder"`
	Extension uint8    `json:"extension"`
	Rotation  uint8    `json:"rotation"`
	StepSize  uint8    `json:"stepSize"`
}

// CylinderPositions is a generated set of targets, one per cylinder at most.
type CylinderPositions struct {
	Positions []CylinderPosition `json:"positions"`
}

type ManualModeClick struct{}

type PresetModeClick struct {
	Preset int `json:"preset"`
}

type LogMessage struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

type Shutdown struct{}

func (Connect) Kind() Kind           { return KindConnect }
func (Disconnect) Kind() Kind        { return KindDisconnect }
func (CylinderMotion) Kind() Kind    { return KindCylinderMotion }
func (CylinderPositions) Kind() Kind { return KindCylinderPositions }
func (ManualModeClick) Kind() Kind   { return KindManualModeClick }
func (PresetModeClick) Kind() Kind   { return KindPresetModeClick }
func (LogMessage) Kind() Kind        { return KindLogMessage }
func (Shutdown) Kind() Kind          { return KindShutdown }
