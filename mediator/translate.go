package mediator

import (
	"errors"
	"fmt"

	"phantomlink/motion"
	"phantomlink/wire"
)

var (
	ErrInvalidCylinder = errors.New("mediator: invalid cylinder")
	ErrInvalidStepSize = errors.New("mediator: invalid step size")
)

// Channels returns the extension and rotation channels of c.
func Channels(c wire.Cylinder) (extension, rotation motion.Channel, err error) {
	if !c.Valid() {
		return 0, 0, fmt.Errorf("%w: %s", ErrInvalidCylinder, c)
	}
	switch c {
	case wire.Left:
		return motion.LeftExtension, motion.LeftRotation, nil
	case wire.Right:
		return motion.RightExtension, motion.RightRotation, nil
	}
	return motion.PlatformExtension, motion.PlatformRotation, nil
}

func Translate(m wire.CylinderMotion) ([]motion.ChannelCommand, error) {
	ext, rot, err := Channels(m.Cylinder)
	if err != nil {
		return nil, err
	}
	return []motion.ChannelCommand{
		{Channel: ext, Value: m.Extension, StepSize: interactiveStep},
		{Channel: rot, Value: m.Rotation, StepSize: interactiveStep},
	}, nil
}

// TranslatePositions rejects the whole set if any entry is out of range.
func TranslatePositions(p wire.CylinderPositions) ([]motion.ChannelCommand, error) {
	cmds := make([]motion.ChannelCommand, 0, 2*len(p.Positions))
	for _, pos := range p.Positions {
		ext, rot, err := Channels(pos.Cylinder)
		if err != nil {
			return nil, err
		}
		if pos.StepSize > motion.MaxStepSize {
			return nil, fmt.Errorf("%w: %d for %s", ErrInvalidStepSize, pos.StepSize, pos.Cylinder)
		}
		cmds = append(cmds,
			motion.ChannelCommand{Channel: ext, Value: pos.Extension, StepSize: pos.StepSize},
			motion.ChannelCommand{Channel: rot, Value: pos.Rotation, StepSize: pos.StepSize},
		)
	}
	return cmds, nil
}
