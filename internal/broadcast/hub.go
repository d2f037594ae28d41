package broadcast

import "sync"

// Hub holds the set of open sessions subscribed to one symbol.
type Hub struct {
	symbol string
	parent *Registry

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func newHub(symbol string, parent *Registry) *Hub {
	return &Hub{symbol: symbol, parent: parent, clients: make(map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ClientCount returns the number of currently registered sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// snapshotClients returns a point-in-time copy of the client set, safe to
// range over without holding the hub's lock during sends.
func (h *Hub) snapshotClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}
