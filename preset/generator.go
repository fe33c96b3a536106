package preset

import (
	"log"
	"sync"
	"time"

	"phantomlink/wire"
)

// Sink receives every set of positions the generator produces.
type Sink func(wire.CylinderPositions)

type Option func(*Generator)

// WithInterval changes the wall-clock tick period. The phase clock still
// advances by TickIncrement per tick.
func WithInterval(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.interval = d
		}
	}
}

// Generator plays one preset at a time on its own ticker.
type Generator struct {
	sink     Sink
	interval time.Duration

	mu      sync.Mutex
	current int
	phase   int
	stop    chan struct{}
	done    chan struct{}
}

func NewGenerator(sink Sink, opts ...Option) *Generator {
	g := &Generator{
		sink:     sink,
		interval: TickIncrement * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SelectPreset stops the running preset and, if n is known, starts n from
// phase 0 with an immediate first tick.
func (g *Generator) SelectPreset(n int) {
	g.halt()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.phase = 0
	if !Known(n) {
		g.current = 0
		log.Printf("[preset] unknown preset %d", n)
		return
	}
	g.current = n
	g.stop = make(chan struct{})
	g.done = make(chan struct{})
	go g.run(n, g.stop, g.done)
	log.Printf("[preset] started %d (%s)", n, Name(n))
}

// ManualOverride stops the running preset.
func (g *Generator) ManualOverride() { g.halt() }

func (g *Generator) Shutdown() { g.halt() }

func (g *Generator) Current() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *Generator) Phase() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

func (g *Generator) halt() {
	g.mu.Lock()
	stop, done := g.stop, g.done
	g.stop, g.done = nil, nil
	g.current = 0
	g.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (g *Generator) run(n int, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		g.tick(n)
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (g *Generator) tick(n int) {
	g.mu.Lock()
	phase := g.phase
	g.phase = Advance(n, phase)
	g.mu.Unlock()

	if positions, ok := Evaluate(n, phase); ok {
		g.sink(wire.CylinderPositions{Positions: positions})
	}
}
