// Package ingest maintains the streaming connection to the exchange,
// decodes inbound frames into normalized ticks, and publishes them to the
// tick bus (spec §4.A). Grounded on the teacher SDK's ws.BaseWsClient:
// gorilla/websocket for the transport, zerolog for structured logging, and
// robfig/cron for the periodic connection-health check.
package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/khanbekov/market-pulse/internal/bus"
	"github.com/khanbekov/market-pulse/internal/exchange"
	"github.com/khanbekov/market-pulse/internal/model"
)

// Channel is the well-known bus channel ticks are published on (spec §6.2).
const Channel = "market-stream"

// Config holds the connection parameters for a Feed.
type Config struct {
	URL                   string
	Symbols               []string      // lowercase exchange symbols, e.g. "btc"
	ConnectTimeout        time.Duration // bounded wait for the initial dial
	HealthCheckInterval   time.Duration // cron cadence for the liveness check
	ReconnectTimeout      time.Duration // max silence before forcing a reconnect
	MaxReconnectBackoff   time.Duration
	InsecureSkipVerify    bool // parity-testing only; defaults to false (secure)
}

// DefaultConfig returns sane defaults matching the teacher SDK's
// reconnection posture.
func DefaultConfig(url string, symbols []string) Config {
	return Config{
		URL:                 url,
		Symbols:             symbols,
		ConnectTimeout:      10 * time.Second,
		HealthCheckInterval: 5 * time.Second,
		ReconnectTimeout:    120 * time.Second,
		MaxReconnectBackoff: 30 * time.Second,
	}
}

// Feed owns one streaming connection to the exchange. It decodes every
// inbound frame with decoder and publishes the resulting Tick to bus on
// Channel.
type Feed struct {
	cfg     Config
	decoder exchange.Decoder
	bus     *bus.Bus
	logger  zerolog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	active       atomic.Bool // single-writer flag with atomic reads, per spec §5
	lastReceived atomic.Int64 // unix nanos

	health *cron.Cron
}

// New creates a Feed. Call Run to connect and start streaming.
func New(cfg Config, decoder exchange.Decoder, b *bus.Bus, logger zerolog.Logger) *Feed {
	return &Feed{cfg: cfg, decoder: decoder, bus: b, logger: logger}
}

// Run connects, subscribes, and streams until ctx is cancelled. On
// connection loss it reconnects with bounded exponential backoff; decode
// errors are logged and dropped without tearing down the stream. Run
// returns once ctx is done and the connection has been closed.
func (f *Feed) Run(ctx context.Context) error {
	if err := f.connect(ctx); err != nil {
		return err
	}
	defer f.disconnect()

	f.startHealthCheck(ctx)
	defer f.health.Stop()

	readErrCh := make(chan struct{}, 1)
	go f.readLoop(readErrCh)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-readErrCh:
			f.logger.Warn().Msg("ingest connection lost, reconnecting")
			f.disconnect()
			if err := f.reconnectWithBackoff(ctx, &backoff); err != nil {
				return err
			}
			backoff = time.Second
			go f.readLoop(readErrCh)
		}
	}
}

func (f *Feed) reconnectWithBackoff(ctx context.Context, backoff *time.Duration) error {
	for {
		if err := f.connect(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(*backoff):
		}
		*backoff *= 2
		if *backoff > f.cfg.MaxReconnectBackoff {
			*backoff = f.cfg.MaxReconnectBackoff
		}
	}
}

func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.cfg.ConnectTimeout}

	dialCtx, cancel := context.WithTimeout(ctx, f.cfg.ConnectTimeout)
	defer cancel()

	f.logger.Info().Str("url", f.cfg.URL).Msg("ingest connecting")
	conn, _, err := dialer.DialContext(dialCtx, f.cfg.URL, nil)
	if err != nil {
		f.logger.Error().Err(err).Msg("ingest connect failed")
		if dialCtx.Err() == context.DeadlineExceeded {
			return ErrConnectTimeout
		}
		return err
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	f.active.Store(true)
	f.lastReceived.Store(time.Now().UnixNano())

	f.logger.Info().Msg("ingest connected")
	return f.subscribe()
}

func (f *Feed) subscribe() error {
	frame := exchange.NewSubscriptionFrame(f.cfg.Symbols)
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return f.send(payload)
}

func (f *Feed) send(payload []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return ErrNotConnected
	}
	return f.conn.WriteMessage(websocket.TextMessage, payload)
}

func (f *Feed) disconnect() {
	f.connMu.Lock()
	conn := f.conn
	f.conn = nil
	f.connMu.Unlock()

	f.active.Store(false)
	if conn != nil {
		_ = conn.Close()
	}
}

func (f *Feed) readLoop(errCh chan<- struct{}) {
	for {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()
		if conn == nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			f.logger.Warn().Err(err).Msg("ingest read error")
			select {
			case errCh <- struct{}{}:
			default:
			}
			return
		}
		f.lastReceived.Store(time.Now().UnixNano())

		tick, err := f.decoder.Decode(raw)
		if err != nil {
			f.logger.Debug().Err(err).Msg("ingest dropped malformed frame")
			continue
		}
		if !tick.Valid() {
			f.logger.Debug().Str("symbol", tick.Symbol).Msg("ingest dropped invalid tick")
			continue
		}

		f.publish(tick)
	}
}

// publish delivers tick to the bus. Bus.Publish runs the subscribed handlers
// synchronously, so the read loop waits until they have returned. Bus.Publish
// itself cannot fail in this implementation; the recover logs a panicking
// subscriber handler instead of letting it take down the read loop.
func (f *Feed) publish(tick model.Tick) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().Interface("panic", r).Str("symbol", tick.Symbol).Msg("ingest publish failed")
		}
	}()
	f.bus.Publish(Channel, tick)
}

func (f *Feed) startHealthCheck(ctx context.Context) {
	f.health = cron.New(cron.WithSeconds())
	interval := f.cfg.HealthCheckInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	spec := cronEverySeconds(interval)
	_, _ = f.health.AddFunc(spec, func() { f.checkHealth(ctx) })
	f.health.Start()
}

func (f *Feed) checkHealth(ctx context.Context) {
	if !f.active.Load() {
		return
	}
	last := time.Unix(0, f.lastReceived.Load())
	if time.Since(last) > f.cfg.ReconnectTimeout {
		f.logger.Warn().Dur("silence", time.Since(last)).Msg("ingest reconnect due to timeout")
		f.disconnect()
		_ = f.connect(ctx)
	}
}

// cronEverySeconds renders a robfig/cron seconds-field spec that fires
// roughly every d, clamped to [1s, 59s] (the seconds-field cron grammar
// cannot express longer single-field periods).
func cronEverySeconds(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	if secs > 59 {
		secs = 59
	}
	return "*/" + itoa(secs) + " * * * * *"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
