package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when an envelope names a kind the registry does
// not know. It means the two endpoints were initialised differently.
var ErrUnknownKind = errors.New("wire: unknown message kind")

// Envelope is the outer wire format. Data holds the payload's JSON text.
type Envelope struct {
	MsgID Kind   `json:"msgId"`
	Data  string `json:"data"`
}

type Codec struct {
	reg *Registry
}

func NewCodec(reg *Registry) *Codec {
	return &Codec{reg: reg}
}

func (c *Codec) Registry() *Registry { return c.reg }

func (c *Codec) Encode(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", p.Kind(), err)
	}
	return json.Marshal(Envelope{MsgID: p.Kind(), Data: string(data)})
}

func (c *Codec) Decode(b []byte) (Payload, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("wire: decode envelope: %w", err)
	}
	decode, ok := c.reg.Lookup(env.MsgID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint16(env.MsgID))
	}
	p, err := decode([]byte(env.Data))
	if err != nil {
		return nil, fmt.Errorf("wire: decode %s: %w", env.MsgID, err)
	}
	return p, nil
}
