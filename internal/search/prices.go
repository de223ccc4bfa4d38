package search

import "sync"

// PriceMemory holds the last price one consumer submitted that normalized
// successfully. Each session owns its own; one-shot searches pass nil and
// fall back straight to the configured ceiling.
type PriceMemory struct {
	mu    sync.Mutex
	last  float64
	valid bool
}

// NewPriceMemory returns an empty PriceMemory.
func NewPriceMemory() *PriceMemory {
	return &PriceMemory{}
}

func (p *PriceMemory) remember(value float64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.last = value
	p.valid = true
	p.mu.Unlock()
}

// Last returns the remembered price. ok is false when nothing was remembered.
func (p *PriceMemory) Last() (price float64, ok bool) {
	if p == nil {
		return 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.valid
}
