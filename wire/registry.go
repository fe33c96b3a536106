package wire

import (
	"encoding/json"
	"sync"
)

// DecodeFunc rebuilds a payload from the data carried by an envelope.
type DecodeFunc func(data []byte) (Payload, error)

// Registry maps kinds to their decoders. Both endpoints must populate their
// registries in the same order; DefaultRegistry does that for the built-in kinds.
type Registry struct {
	mu       sync.RWMutex
	decoders map[Kind]DecodeFunc
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[Kind]DecodeFunc)}
}

// Register associates kind with decode. A second registration of the same
// kind replaces the first.
func (r *Registry) Register(kind Kind, decode DecodeFunc) {
	r.mu.Lock()
	r.decoders[kind] = decode
	r.mu.Unlock()
}

func (r *Registry) Lookup(kind Kind) (DecodeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[kind]
	return d, ok
}

// JSONDecoder returns a DecodeFunc that unmarshals JSON into a T.
func JSONDecoder[T Payload]() DecodeFunc {
	return func(data []byte) (Payload, error) {
		var p T
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
}

// DefaultRegistry returns a registry holding every built-in payload kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindConnect, JSONDecoder[Connect]())
	r.Register(KindDisconnect, JSONDecoder[Disconnect]())
	r.Register(KindCylinderMotion, JSONDecoder[CylinderMotion]())
	r.Register(KindCylinderPositions, JSONDecoder[CylinderPositions]())
	r.Register(KindManualModeClick, JSONDecoder[ManualModeClick]())
	r.Register(KindPresetModeClick, JSONDecoder[PresetModeClick]())
	r.Register(KindLogMessage, JSONDecoder[LogMessage]())
	r.Register(KindShutdown, JSONDecoder[Shutdown]())
	return r
}
