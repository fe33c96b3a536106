// serialcomm/utils.go
package serialcomm

import (
	"fmt"
	"time"

	bugst "go.bug.st/serial"

	"github.com/sigurn/crc16"
	"github.com/tarm/serial"
)

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Checksum returns the CRC16/MODBUS of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, modbusTable)
}

// OpenTarm opens the port with github.com/tarm/serial, 8N1.
func OpenTarm(cfg *SerialConfig) (Port, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.PortName,
		Baud:        cfg.BaudRate,
		Parity:      serial.ParityNone,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return port, nil
}

// OpenBugst opens the port with go.bug.st/serial, 8N1.
func OpenBugst(cfg *SerialConfig) (Port, error) {
	port, err := bugst.Open(cfg.PortName, &bugst.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
	} else {
		port.SetReadTimeout(100 * time.Millisecond)
	}
	return port, nil
}
