package evksim

import (
	"sync"

	"github.com/smazurov/camnode/pkg/evk"
)

// Enumerator is an evk.Enumerator over a mutable set of simulators,
// so device list refresh and hotplug handling can be exercised
// without hardware.
type Enumerator struct {
	mu   sync.Mutex
	sims []*Simulator
}

func NewEnumerator(sims ...*Simulator) *Enumerator {
	return &Enumerator{sims: sims}
}

// Attach makes sim visible to the next Enumerate.
func (e *Enumerator) Attach(sim *Simulator) {
	e.mu.Lock()
	e.sims = append(e.sims, sim)
	e.mu.Unlock()
}

// Detach hides sim from the next Enumerate.
func (e *Enumerator) Detach(sim *Simulator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.sims {
		if s == sim {
			e.sims = append(e.sims[:i], e.sims[i+1:]...)
			return
		}
	}
}

func (e *Enumerator) Enumerate() ([]*evk.Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	devices := make([]*evk.Device, 0, len(e.sims))
	for _, s := range e.sims {
		devices = append(devices, s.Entry())
	}
	return devices, nil
}
