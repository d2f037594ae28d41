// Package broadcast implements the Broadcaster: it pushes the latest
// snapshot for each subscribed symbol to connected WebSocket sessions on a
// fixed cadence (spec §4.E). Grounded on
// yoghaf-market-indikator/internal/broadcast/server.go's hub/register/
// unregister shape, generalized from one process-wide hub to one hub per
// symbol, and served over the teacher's `gorilla/websocket` library.
package broadcast

import (
	"sync"
)

// Registry is the mutable process-wide symbol -> session-set map described
// in spec §9 ("Mutable global state... Initialise lazily on first
// subscription; tear down on process shutdown. Tests must inject a fresh
// instance."). It is safe for concurrent insertion, removal, and iteration.
type Registry struct {
	mu   sync.RWMutex
	hubs map[string]*Hub
}

// NewRegistry creates an empty Registry. Construct a fresh instance per
// test, per spec §9.
func NewRegistry() *Registry {
	return &Registry{hubs: make(map[string]*Hub)}
}

// HubFor returns the Hub for symbol, creating it lazily on first use.
func (r *Registry) HubFor(symbol string) *Hub {
	r.mu.RLock()
	h, ok := r.hubs[symbol]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hubs[symbol]; ok {
		return h
	}
	h = newHub(symbol, r)
	r.hubs[symbol] = h
	return h
}

// ActiveSymbols returns the symbols that currently have at least one
// connected session, for the broadcast scheduler to iterate (spec §4.E
// "For each symbol with >=1 active subscriber").
func (r *Registry) ActiveSymbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	symbols := make([]string, 0, len(r.hubs))
	for symbol, h := range r.hubs {
		if h.ClientCount() > 0 {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// drop removes a hub with no remaining clients, per spec §4.E "if the
// per-symbol set becomes empty, drop the set."
func (r *Registry) drop(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hubs[symbol]; ok && h.ClientCount() == 0 {
		delete(r.hubs, symbol)
	}
}
