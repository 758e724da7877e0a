package market

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages all listed trading pairs in a thread-safe manner.
type Registry struct {
	mu    sync.RWMutex
	pairs map[string]*Pair // symbol -> pair
}

func NewRegistry() *Registry {
	return &Registry{pairs: make(map[string]*Pair)}
}

// Register lists a new pair. Fails if the symbol is already taken.
func (r *Registry) Register(p *Pair) error {
	if p == nil {
		return fmt.Errorf("cannot register nil pair")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pairs[p.Symbol]; exists {
		return fmt.Errorf("pair %s already registered", p.Symbol)
	}
	r.pairs[p.Symbol] = p
	return nil
}

// Get retrieves a pair by symbol.
func (r *Registry) Get(symbol string) (*Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.pairs[symbol]
	if !exists {
		return nil, fmt.Errorf("pair %s not found", symbol)
	}
	return p, nil
}

// List returns all pairs sorted by symbol.
func (r *Registry) List() []*Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pairs := make([]*Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Symbol < pairs[j].Symbol })
	return pairs
}

// SetStatus changes a pair's trading status. Delisted is terminal.
func (r *Registry) SetStatus(symbol string, status PairStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.pairs[symbol]
	if !exists {
		return fmt.Errorf("pair %s not found", symbol)
	}
	if p.Status == Delisted {
		return fmt.Errorf("pair %s is delisted (terminal state)", symbol)
	}
	p.Status = status
	return nil
}

// Count returns the number of listed pairs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pairs)
}
