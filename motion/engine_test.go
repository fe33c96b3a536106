package motion

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phantomlink/serialcomm"
	"phantomlink/serialcomm/fakeport"
)

type logSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *logSink) log(text string) {
	s.mu.Lock()
	s.lines = append(s.lines, text)
	s.mu.Unlock()
}

func (s *logSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func TestConnectSendsSyncRequest(t *testing.T) {
	port := fakeport.New()
	var cfg serialcomm.SerialConfig
	e := NewEngine(port.Opener(&cfg), nil)
	defer e.Close()

	e.Connect("/dev/ttyUSB0")

	assert.True(t, e.IsOpen())
	assert.Equal(t, Desynced, e.State())
	assert.Equal(t, "/dev/ttyUSB0", cfg.PortName)
	assert.Equal(t, DefaultBaudRate, cfg.BaudRate)
	assert.Equal(t, [][]byte{{SyncRequest}}, port.Writes())
}

func TestConnectFailureIsLogged(t *testing.T) {
	sink := &logSink{}
	e := NewEngine(fakeport.FailingOpener(errors.New("no such device")), sink.log)
	defer e.Close()

	e.Connect("COM9")

	assert.False(t, e.IsOpen())
	assert.Equal(t, []string{"no such device"}, sink.all())
}

func TestSubmitWhileClosedIsDropped(t *testing.T) {
	port := fakeport.New()
	sink := &logSink{}
	e := NewEngine(port.Opener(nil), sink.log)
	defer e.Close()

	e.Submit([]ChannelCommand{{Channel: LeftExtension, Value: 1, StepSize: 1}})
	e.Submit([]ChannelCommand{{Channel: RightExtension, Value: 2, StepSize: 1}})
	assert.Equal(t, []string{
		"Send failed since serial port is not open.",
		"Send failed since serial port is not open.",
	}, sink.all())

	e.Connect("COM1")
	e.Submit([]ChannelCommand{{Channel: PlatformRotation, Value: 7, StepSize: 3}})
	require.NoError(t, e.Flush())

	writes := port.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, EncodeFrame([]ChannelCommand{{Channel: PlatformRotation, Value: 7, StepSize: 3}}), writes[1])
}

func TestFlushCoalesces(t *testing.T) {
	port := fakeport.New()
	e := NewEngine(port.Opener(nil), nil)
	defer e.Close()
	e.Connect("COM1")

	e.Submit([]ChannelCommand{{Channel: LeftExtension, Value: 10, StepSize: 5}, {Channel: LeftRotation, Value: 20, StepSize: 5}})
	e.Submit([]ChannelCommand{{Channel: LeftExtension, Value: 30, StepSize: 5}})
	require.NoError(t, e.Flush())

	want := EncodeFrame([]ChannelCommand{
		{Channel: LeftExtension, Value: 30, StepSize: 5},
		{Channel: LeftRotation, Value: 20, StepSize: 5},
	})
	writes := port.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, want, writes[1])
	assert.Equal(t, serialcomm.Checksum(want), e.LastChecksum())
	assert.Empty(t, e.Pending())

	// nothing pending: no write
	require.NoError(t, e.Flush())
	assert.Len(t, port.Writes(), 2)
}

func TestFlushSendsIdenticalFramesAgain(t *testing.T) {
	port := fakeport.New()
	e := NewEngine(port.Opener(nil), nil)
	defer e.Close()
	e.Connect("COM1")

	cmd := []ChannelCommand{{Channel: RightRotation, Value: 127, StepSize: 2}}
	for i := 0; i < 3; i++ {
		e.Submit(cmd)
		require.NoError(t, e.Flush())
	}
	assert.Len(t, port.Writes(), 4)
}

func TestFlushWriteErrorKeepsPending(t *testing.T) {
	port := fakeport.New()
	e := NewEngine(port.Opener(nil), nil)
	defer e.Close()
	e.Connect("COM1")

	e.Submit([]ChannelCommand{{Channel: LeftExtension, Value: 1, StepSize: 1}})
	port.SetWriteError(errors.New("io error"))

	err := e.Flush()
	assert.Error(t, err)
	assert.True(t, e.IsOpen())
	assert.Len(t, e.Pending(), 1)

	port.SetWriteError(nil)
	require.NoError(t, e.Flush())
	assert.Empty(t, e.Pending())
}

func TestFlushLoopWritesOnTick(t *testing.T) {
	port := fakeport.New()
	e := NewEngine(port.Opener(nil), nil, WithFlushInterval(10*time.Millisecond))
	e.Start()
	defer e.Close()
	e.Connect("COM1")

	e.Submit([]ChannelCommand{{Channel: PlatformExtension, Value: 200, StepSize: 4}})
	require.Eventually(t, func() bool { return len(port.Writes()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, e.Pending())
}

func TestTelemetryIsLogged(t *testing.T) {
	port := fakeport.New()
	sink := &logSink{}
	e := NewEngine(port.Opener(nil), sink.log)
	defer e.Close()
	e.Connect("COM1")

	port.Feed("boot...")
	port.Feed("Synced\r\n")
	port.Feed("free 812|x|\r\n")

	require.Eventually(t, func() bool {
		lines := sink.all()
		return len(lines) == 3 && lines[2] == "free 812"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Desynced: boot...", "Synced", "free 812"}, sink.all())
	assert.Equal(t, Synced, e.State())
}

func TestDisconnect(t *testing.T) {
	port := fakeport.New()
	e := NewEngine(port.Opener(nil), nil)
	defer e.Close()

	e.Disconnect()
	e.Connect("COM1")
	port.Feed("Synced")
	require.Eventually(t, func() bool { return e.State() == Synced }, time.Second, 5*time.Millisecond)

	e.Disconnect()
	assert.False(t, e.IsOpen())
	assert.True(t, port.Closed())
	assert.Equal(t, Desynced, e.State())
	e.Disconnect()
}

func TestReconnectClearsPending(t *testing.T) {
	first, second := fakeport.New(), fakeport.New()
	ports := []*fakeport.Port{first, second}
	open := func(*serialcomm.SerialConfig) (serialcomm.Port, error) {
		p := ports[0]
		ports = ports[1:]
		return p, nil
	}
	e := NewEngine(open, nil)
	defer e.Close()

	e.Connect("COM1")
	e.Submit([]ChannelCommand{{Channel: LeftExtension, Value: 1, StepSize: 1}})
	e.Connect("COM2")

	assert.True(t, first.Closed())
	assert.Empty(t, e.Pending())
	require.NoError(t, e.Flush())
	assert.Equal(t, [][]byte{{SyncRequest}}, second.Writes())
}
