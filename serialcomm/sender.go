// serialcomm/sender.go
package serialcomm

import (
	"fmt"
	"sync"
)

// Sender writes whole frames to a port. Each frame goes out in a single Write.
type Sender struct {
	mu           sync.Mutex
	port         Port
	lastChecksum uint16
}

func NewSender(port Port) *Sender {
	return &Sender{port: port}
}

// Send writes frame and returns its CRC16/MODBUS.
func (s *Sender) Send(frame []byte) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.port.Write(frame)
	if err != nil {
		return 0, err
	}
	if n != len(frame) {
		return 0, fmt.Errorf("short write: %d of %d bytes", n, len(frame))
	}
	s.lastChecksum = Checksum(frame)
	return s.lastChecksum, nil
}

// LastChecksum is the checksum of the most recent successful Send.
func (s *Sender) LastChecksum() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastChecksum
}
