package broadcast

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/khanbekov/market-pulse/internal/snapshot"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // CORS open by default, per spec §6.4
}

// Server exposes the client-facing WebSocket endpoint described in spec
// §6.4: `/ws/market/{symbol}`, no authentication.
type Server struct {
	registry *Registry
	store    snapshot.Store
	logger   zerolog.Logger
}

// NewServer wires a Server to the given Registry and Store.
func NewServer(registry *Registry, store snapshot.Store, logger zerolog.Logger) *Server {
	return &Server{registry: registry, store: store, logger: logger}
}

// Handler builds the http.Handler serving the `/ws/market/{symbol}` route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/market/{symbol}", s.serveSymbol)
	return mux
}

func (s *Server) serveSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		http.Error(w, "missing symbol", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("broadcast upgrade failed")
		return
	}

	hub := s.registry.HubFor(symbol)
	client := newClient(symbol, hub, conn, s.store, s.logger)
	client.serve(r.Context())
}

// PushSnapshot reads symbol's latest snapshot through the async store read,
// serializes it once, and delivers the payload to every session subscribed
// to symbol. Called by the Broadcaster's scheduled
// cadence, never from a session's own request path.
func (s *Server) PushSnapshot(ctx context.Context, symbol string) {
	hub := s.registry.HubFor(symbol)
	clients := hub.snapshotClients()
	if len(clients) == 0 {
		return
	}

	res := <-snapshot.FindLatestSnapshotAsync(ctx, s.store, symbol)
	if res.Err != nil {
		s.logger.Debug().Str("symbol", symbol).Msg("broadcast: no snapshot available")
		return
	}

	payload, err := json.Marshal(res.Snapshot)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("broadcast: marshal failed")
		return
	}

	for _, c := range clients {
		c.deliver(payload)
	}
}
