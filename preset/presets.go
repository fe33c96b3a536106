// Package preset generates the phantom's canned motion programs.
package preset

import (
	"math"

	"phantomlink/wire"
)

// TickIncrement is how far the phase clock advances per tick, in milliseconds.
const TickIncrement = 40

const (
	holdStep  = 2
	swingStep = 8
	slowStep  = 4

	settle = 3000 // ms of hold before a program starts oscillating
)

type program struct {
	name string
	// wrapAt is the phase at which the clock jumps back to replayFrom.
	// Zero means the program never advances its clock.
	wrapAt     int
	replayFrom int
	positions  func(phase int) []wire.CylinderPosition
}

var programs = map[int]program{
	1: {name: "Position 1", positions: position1},
	2: {name: "Position 2", positions: position2},
	3: {name: "Position 1 <-> 2", wrapAt: 8960, replayFrom: settle, positions: alternate},
	4: {name: "Free-breath gating", wrapAt: 7960, replayFrom: settle, positions: freeBreath},
	5: {name: "Breath-hold gating", wrapAt: 40000, replayFrom: 6720, positions: breathHold},
	6: {name: "Free-breath gating, position 1 <-> 2", wrapAt: 8960, replayFrom: settle, positions: freeBreathAlternate},
	7: {name: "Free-breath gating, losing signal", wrapAt: 37960, replayFrom: settle, positions: losingSignal},
	8: {name: "Free-breath gating, baseline shift", wrapAt: 62960, replayFrom: settle, positions: baselineShift},
}

// Known reports whether n names a preset.
func Known(n int) bool {
	_, ok := programs[n]
	return ok
}

func Name(n int) string {
	return programs[n].name
}

// Evaluate returns the targets preset n produces at phase. ok is false when
// the preset emits nothing at that phase or does not exist.
func Evaluate(n, phase int) (positions []wire.CylinderPosition, ok bool) {
	p, known := programs[n]
	if !known {
		return nil, false
	}
	positions = p.positions(phase)
	return positions, len(positions) > 0
}

// Advance returns the phase following phase for preset n.
func Advance(n, phase int) int {
	p := programs[n]
	switch {
	case p.wrapAt == 0:
		return phase
	case phase == p.wrapAt:
		return p.replayFrom
	default:
		return phase + TickIncrement
	}
}

func all(ext, rot, step uint8) []wire.CylinderPosition {
	return []wire.CylinderPosition{
		{Cylinder: wire.Left, Extension: ext, Rotation: rot, StepSize: step},
		{Cylinder: wire.Right, Extension: ext, Rotation: rot, StepSize: step},
		{Cylinder: wire.Platform, Extension: ext, Rotation: rot, StepSize: step},
	}
}

func pos(c wire.Cylinder, ext, rot float64, step uint8) wire.CylinderPosition {
	return wire.CylinderPosition{Cylinder: c, Extension: uint8(ext), Rotation: uint8(rot), StepSize: step}
}

// wave is sin((phase-from)/period*pi).
func wave(phase, from int, period float64) float64 {
	return math.Sin(float64(phase-from) / period * math.Pi)
}

func position1(int) []wire.CylinderPosition {
	return all(128, 127, holdStep)
}

func position2(int) []wire.CylinderPosition {
	return []wire.CylinderPosition{
		{Cylinder: wire.Left, Extension: 0, Rotation: 255, StepSize: holdStep},
		{Cylinder: wire.Right, Extension: 40, Rotation: 79, StepSize: holdStep},
		{Cylinder: wire.Platform, Extension: 0, Rotation: 135, StepSize: holdStep},
	}
}

func alternate(phase int) []wire.CylinderPosition {
	switch {
	case phase == 0:
		return []wire.CylinderPosition{
			{Cylinder: wire.Left, Extension: 64, Rotation: 191, StepSize: holdStep},
			{Cylinder: wire.Right, Extension: 84, Rotation: 103, StepSize: holdStep},
			{Cylinder: wire.Platform, Extension: 127, Rotation: 127, StepSize: holdStep},
		}
	case phase >= settle:
		s := wave(phase, settle, 3000)
		return []wire.CylinderPosition{
			pos(wire.Left, 64-64*s, 191+64*s, swingStep),
			pos(wire.Right, 84-44*s, 103-24*s, swingStep),
		}
	}
	return nil
}

func freeBreath(phase int) []wire.CylinderPosition {
	switch {
	case phase == 0:
		return all(127, 127, holdStep)
	case phase >= settle:
		return all(uint8(127+80*wave(phase, settle, 2500)), 127, swingStep)
	}
	return nil
}

func breathHold(phase int) []wire.CylinderPosition {
	switch {
	case phase == 0:
		return all(60, 127, holdStep)
	case phase >= settle && phase < 28000:
		return all(uint8(60+50*wave(phase, settle, 2500)), 127, swingStep)
	case phase > 28000 && phase < 38000:
		target := 200 + 50*math.Cos(float64(phase-28000)/40000.0*math.Pi)
		return all(uint8(target), 127, slowStep)
	case phase == 38000:
		return all(10, 127, slowStep)
	}
	return nil
}

func freeBreathAlternate(phase int) []wire.CylinderPosition {
	switch {
	case phase == 0:
		return []wire.CylinderPosition{
			{Cylinder: wire.Left, Extension: 64, Rotation: 191, StepSize: holdStep},
			{Cylinder: wire.Right, Extension: 84, Rotation: 103, StepSize: holdStep},
			{Cylinder: wire.Platform, Extension: 64, Rotation: 131, StepSize: holdStep},
		}
	case phase >= settle:
		s := wave(phase, settle, 3000)
		ext := 64 - 64*s
		return []wire.CylinderPosition{
			pos(wire.Left, ext, 191+64*s, swingStep),
			pos(wire.Right, 84-44*s, 103-24*s, swingStep),
			pos(wire.Platform, ext, 131+4*s, swingStep),
		}
	}
	return nil
}

func losingSignal(phase int) []wire.CylinderPosition {
	switch {
	case phase == 0:
		return all(127, 127, holdStep)
	case phase >= settle:
		ext := 127 + 80*wave(phase, settle, 2500)
		platformRot := 127.0
		if phase >= 25000 && phase < 35000 {
			platformRot = 255
		}
		return []wire.CylinderPosition{
			pos(wire.Left, ext, 127, swingStep),
			pos(wire.Right, ext, 127, swingStep),
			pos(wire.Platform, ext, platformRot, swingStep),
		}
	}
	return nil
}

func baselineShift(phase int) []wire.CylinderPosition {
	switch {
	case phase == 0:
		return all(130, 127, holdStep)
	case phase >= settle:
		baseline := 130 + 30*wave(phase, settle, 30000)
		return all(uint8(baseline+50*wave(phase, settle, 3000)), 127, swingStep)
	}
	return nil
}
