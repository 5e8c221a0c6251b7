package sensor

import (
	"sync"

	"github.com/starforgelabs/datanorm/pkg/config"
)

// Fake is a deterministic sample source for simulation runs and tests. Each
// input ramps independently through [0, span) so repeated runs normalize to
// the same values.
type Fake struct {
	mu    sync.Mutex
	span  int
	step  int
	ticks map[int]int
}

func NewFake(config.Config) (Source, error) {
	return &Fake{span: 1024, step: 37, ticks: make(map[int]int)}, nil
}

func (f *Fake) Sample(input int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.ticks[input]
	f.ticks[input] = n + 1
	return (n * f.step) % f.span, nil
}

func (f *Fake) Close() error { return nil }
