package operator

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phantomlink/dispatch"
	"phantomlink/link"
	"phantomlink/wire"
)

func newOperator(t *testing.T, opts ...Option) (*Operator, link.Conn, *wire.Codec) {
	t.Helper()
	codec := wire.NewCodec(wire.DefaultRegistry())
	commands, mediatorEnd := link.Pipe(64)
	t.Cleanup(func() { commands.Close() })
	return New(commands, codec, opts...), mediatorEnd, codec
}

func recv(t *testing.T, conn link.Conn, codec *wire.Codec) wire.Payload {
	t.Helper()
	b, err := conn.Recv(time.Second)
	require.NoError(t, err)
	p, err := codec.Decode(b)
	require.NoError(t, err)
	return p
}

func TestPoseConversions(t *testing.T) {
	assert.InDelta(t, 0, Pose{Extension: 127, Rotation: 127}.ExtensionMM(), 1e-9)
	assert.InDelta(t, 22.5, Pose{Extension: 254}.ExtensionMM(), 0.1)
	assert.InDelta(t, -22.4, Pose{Extension: 0}.ExtensionMM(), 0.1)
	assert.InDelta(t, 90, Pose{Rotation: 254}.RotationDeg(), 0.4)
	assert.InDelta(t, -89.6, Pose{Rotation: 0}.RotationDeg(), 0.1)
}

func TestCommandsAreSent(t *testing.T) {
	op, peer, codec := newOperator(t)

	require.NoError(t, op.Connect("COM4"))
	require.NoError(t, op.Move(wire.Right, 10, 20))
	require.NoError(t, op.Preset(5))
	require.NoError(t, op.Manual())
	require.NoError(t, op.Disconnect())
	require.NoError(t, op.Shutdown())

	assert.Equal(t, wire.Connect{Port: "COM4"}, recv(t, peer, codec))
	assert.Equal(t, wire.CylinderMotion{Cylinder: wire.Right, Extension: 10, Rotation: 20}, recv(t, peer, codec))
	assert.Equal(t, wire.PresetModeClick{Preset: 5}, recv(t, peer, codec))
	assert.Equal(t, wire.ManualModeClick{}, recv(t, peer, codec))
	assert.Equal(t, wire.Disconnect{}, recv(t, peer, codec))
	assert.Equal(t, wire.Shutdown{}, recv(t, peer, codec))

	assert.Equal(t, Pose{Extension: 10, Rotation: 20}, op.Pose(wire.Right))
}

func TestMirrorDefaultsAndUpdates(t *testing.T) {
	op, _, _ := newOperator(t)
	for _, c := range []wire.Cylinder{wire.Left, wire.Right, wire.Platform} {
		assert.Equal(t, Pose{Extension: 127, Rotation: 127}, op.Pose(c))
	}

	err := op.Handlers()[wire.KindCylinderPositions](context.Background(), wire.CylinderPositions{
		Positions: []wire.CylinderPosition{
			{Cylinder: wire.Left, Extension: 64, Rotation: 191, StepSize: 8},
			{Cylinder: wire.Platform, Extension: 0, Rotation: 135, StepSize: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Pose{Extension: 64, Rotation: 191}, op.Pose(wire.Left))
	assert.Equal(t, Pose{Extension: 127, Rotation: 127}, op.Pose(wire.Right))
	assert.Equal(t, Pose{Extension: 0, Rotation: 135}, op.Pose(wire.Platform))
}

func TestHistoryIsNewestFirstAndBounded(t *testing.T) {
	var seen []string
	op, _, _ := newOperator(t, WithHistory(2), WithLogCallback(func(m wire.LogMessage) {
		seen = append(seen, m.Text)
	}))

	h := op.Handlers()[wire.KindLogMessage]
	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, h(context.Background(), wire.LogMessage{Source: "MotionSystem", Text: text}))
	}

	assert.Equal(t, []wire.LogMessage{
		{Source: "MotionSystem", Text: "c"},
		{Source: "MotionSystem", Text: "b"},
	}, op.History())
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestShutdownEndsReceiveLoop(t *testing.T) {
	op, _, codec := newOperator(t)
	notify, opEnd := link.Pipe(8)
	defer notify.Close()

	d := dispatch.New(opEnd, codec, op.Handlers(), dispatch.WithName("operator"))
	d.Start(context.Background())

	require.NoError(t, dispatch.Send(notify, codec, wire.LogMessage{Source: "x", Text: "y"}))
	require.NoError(t, dispatch.Send(notify, codec, wire.Shutdown{}))
	require.NoError(t, d.Wait())
	assert.Len(t, op.History(), 1)
}

func TestConsoleExec(t *testing.T) {
	op, peer, codec := newOperator(t)
	var out bytes.Buffer
	c := NewConsole(op, &out)

	require.NoError(t, c.Exec("connect /dev/ttyACM0"))
	require.NoError(t, c.Exec("  move p 200 30 "))
	require.NoError(t, c.Exec("preset 3"))
	require.NoError(t, c.Exec("manual"))
	require.NoError(t, c.Exec("disconnect"))
	require.NoError(t, c.Exec(""))

	assert.Equal(t, wire.Connect{Port: "/dev/ttyACM0"}, recv(t, peer, codec))
	assert.Equal(t, wire.CylinderMotion{Cylinder: wire.Platform, Extension: 200, Rotation: 30}, recv(t, peer, codec))
	assert.Equal(t, wire.PresetModeClick{Preset: 3}, recv(t, peer, codec))
	assert.Equal(t, wire.ManualModeClick{}, recv(t, peer, codec))
	assert.Equal(t, wire.Disconnect{}, recv(t, peer, codec))

	assert.ErrorIs(t, c.Exec("quit"), ErrQuit)
	assert.Equal(t, wire.Shutdown{}, recv(t, peer, codec))
}

func TestConsoleRejectsBadInput(t *testing.T) {
	op, peer, _ := newOperator(t)
	c := NewConsole(op, &bytes.Buffer{})

	assert.Error(t, c.Exec("connect"))
	assert.Error(t, c.Exec("move x 1 2"))
	assert.Error(t, c.Exec("move l 256 2"))
	assert.Error(t, c.Exec("move l 1"))
	assert.Error(t, c.Exec("preset 9"))
	assert.Error(t, c.Exec("preset two"))
	assert.Error(t, c.Exec("jump"))

	_, err := peer.Recv(10 * time.Millisecond)
	assert.ErrorIs(t, err, link.ErrTimeout, "nothing sent for rejected commands")
}

func TestConsoleStatus(t *testing.T) {
	op, _, _ := newOperator(t)
	require.NoError(t, op.Handlers()[wire.KindLogMessage](context.Background(),
		wire.LogMessage{Source: "MotionSystem", Text: "Synced"}))

	var out bytes.Buffer
	require.NoError(t, NewConsole(op, &out).Exec("status"))
	s := out.String()
	assert.Contains(t, s, "left")
	assert.Contains(t, s, "platform")
	assert.Contains(t, s, "[MotionSystem] Synced")
}

func TestConsoleRunStopsOnEOF(t *testing.T) {
	op, peer, codec := newOperator(t)
	var out bytes.Buffer

	err := NewConsole(op, &out).Run(context.Background(), strings.NewReader("manual\n"))
	require.NoError(t, err)
	assert.Equal(t, wire.ManualModeClick{}, recv(t, peer, codec))
	assert.Equal(t, wire.Shutdown{}, recv(t, peer, codec))
}

func TestConsoleRunQuit(t *testing.T) {
	op, peer, codec := newOperator(t)
	var out bytes.Buffer

	err := NewConsole(op, &out).Run(context.Background(), strings.NewReader("bogus\nquit\nmanual\n"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), `unknown command "bogus"`)
	assert.Equal(t, wire.Shutdown{}, recv(t, peer, codec))
	_, err = peer.Recv(10 * time.Millisecond)
	assert.ErrorIs(t, err, link.ErrTimeout)
}
