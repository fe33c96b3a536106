package motion

import (
	"fmt"
	"sync"
)

// Channel is one servo of the phantom, numbered as the controller expects.
type Channel uint8

const (
	LeftExtension Channel = iota
	RightExtension
	PlatformExtension
	LeftRotation
	RightRotation
	PlatformRotation
)

func (c Channel) String() string {
	switch c {
	case LeftExtension:
		return "LeftExtension"
	case RightExtension:
		return "RightExtension"
	case PlatformExtension:
		return "PlatformExtension"
	case LeftRotation:
		return "LeftRotation"
	case RightRotation:
		return "RightRotation"
	case PlatformRotation:
		return "PlatformRotation"
	default:
		return fmt.Sprintf("Channel(%d)", uint8(c))
	}
}

const (
	// CmdTag is the 3-bit command code of a positions frame.
	CmdTag = 2
	// SyncRequest asks the controller to announce itself with "Synced".
	SyncRequest byte = 4

	// MaxStepSize is the largest step size an entry can carry.
	MaxStepSize = 0x0F

	maxChannel = 0x0F
	maxPayload = 0x1F
)

// ChannelCommand targets one channel. StepSize is the per-update increment
// the controller uses while moving towards Value.
type ChannelCommand struct {
	Channel  Channel
	Value    uint8
	StepSize uint8
}

func (c ChannelCommand) entry() [2]byte {
	if c.Channel > maxChannel {
		panic(fmt.Sprintf("motion: channel %d does not fit in 4 bits", c.Channel))
	}
	if c.StepSize > MaxStepSize {
		panic(fmt.Sprintf("motion: step size %d does not fit in 4 bits", c.StepSize))
	}
	return [2]byte{c.StepSize<<4 | uint8(c.Channel), c.Value}
}

// EncodeFrame builds a positions frame: a header byte carrying CmdTag and the
// number of entry bytes, then two bytes per command.
func EncodeFrame(cmds []ChannelCommand) []byte {
	n := 2 * len(cmds)
	if n > maxPayload {
		panic(fmt.Sprintf("motion: %d entry bytes do not fit in 5 bits", n))
	}
	frame := make([]byte, 0, 1+n)
	frame = append(frame, byte(CmdTag|n<<3))
	for _, c := range cmds {
		e := c.entry()
		frame = append(frame, e[0], e[1])
	}
	return frame
}

// frameBuffer coalesces commands between flushes, keeping the latest per
// channel.
type frameBuffer struct {
	mu      sync.Mutex
	order   []Channel
	pending map[Channel]ChannelCommand
}

func newFrameBuffer() *frameBuffer {
	return &frameBuffer{pending: make(map[Channel]ChannelCommand)}
}

// merge must be called with mu held.
func (b *frameBuffer) merge(cmds []ChannelCommand) {
	for _, c := range cmds {
		c.entry()
		if _, ok := b.pending[c.Channel]; !ok {
			b.order = append(b.order, c.Channel)
		}
		b.pending[c.Channel] = c
	}
}

// snapshot must be called with mu held.
func (b *frameBuffer) snapshot() []ChannelCommand {
	cmds := make([]ChannelCommand, 0, len(b.order))
	for _, ch := range b.order {
		cmds = append(cmds, b.pending[ch])
	}
	return cmds
}

// clear must be called with mu held.
func (b *frameBuffer) clear() {
	b.order = b.order[:0]
	clear(b.pending)
}

func (b *frameBuffer) len() int { return len(b.pending) }
