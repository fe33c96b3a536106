// serialcomm/serialcomm.go
package serialcomm

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrUnknownDriver is returned by OpenerFor for an unsupported driver name.
var ErrUnknownDriver = errors.New("serialcomm: unknown driver")

const (
	DriverTarm  = "tarm"
	DriverBugst = "bugst"
)

// ReadHandler receives every chunk of bytes read from the port.
type ReadHandler func(data []byte)

type SerialConfig struct {
	PortName    string
	BaudRate    int
	ReadTimeout time.Duration
}

// Port is an open serial device. Read returns after ReadTimeout with n == 0
// (and possibly io.EOF) when the line stays idle.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens a serial device.
type Opener func(cfg *SerialConfig) (Port, error)

// OpenerFor returns the opener for the named driver; "" selects tarm.
func OpenerFor(driver string) (Opener, error) {
	switch driver {
	case "", DriverTarm:
		return OpenTarm, nil
	case DriverBugst:
		return OpenBugst, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}
