// Package window implements the per-symbol bounded, insertion-ordered tick
// window that backs the ABC analyzer's input.
package window

import (
	"sync"

	"github.com/khanbekov/market-pulse/internal/model"
)

// MaxSize is W_max: the maximum number of ticks retained per symbol.
const MaxSize = 500

// symbolWindow is a fixed-capacity FIFO ring for one symbol's recent ticks.
type symbolWindow struct {
	mu   sync.RWMutex
	buf  []model.Tick
	head int // index of the oldest element
	size int
}

func newSymbolWindow() *symbolWindow {
	return &symbolWindow{buf: make([]model.Tick, MaxSize)}
}

func (w *symbolWindow) append(tick model.Tick) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size < MaxSize {
		idx := (w.head + w.size) % MaxSize
		w.buf[idx] = tick
		w.size++
		return
	}
	// Full: overwrite the oldest slot and advance head, dropping it.
	w.buf[w.head] = tick
	w.head = (w.head + 1) % MaxSize
}

func (w *symbolWindow) snapshot() []model.Tick {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]model.Tick, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.head+i)%MaxSize]
	}
	return out
}

// Store is a concurrent per-symbol Window Store. Append is O(1) amortised;
// Snapshot returns an independent copy safe to read while Append runs
// concurrently on any symbol, including the same one.
type Store struct {
	mu      sync.RWMutex
	symbols map[string]*symbolWindow
}

// New creates an empty Store.
func New() *Store {
	return &Store{symbols: make(map[string]*symbolWindow)}
}

// Append adds tick to its symbol's window, evicting the oldest tick in FIFO
// order once the window is at MaxSize capacity.
func (s *Store) Append(symbol string, tick model.Tick) {
	w := s.windowFor(symbol)
	w.append(tick)
}

// Snapshot returns an insertion-ordered copy of up to MaxSize most recent
// ticks for symbol. It is safe to call concurrently with Append.
func (s *Store) Snapshot(symbol string) []model.Tick {
	s.mu.RLock()
	w, ok := s.symbols[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return w.snapshot()
}

// Prices is a convenience wrapper over Snapshot returning just the close
// prices, in insertion order, as the ABC analyzer consumes them.
func (s *Store) Prices(symbol string) []float64 {
	ticks := s.Snapshot(symbol)
	prices := make([]float64, len(ticks))
	for i, t := range ticks {
		prices[i] = t.Price
	}
	return prices
}

func (s *Store) windowFor(symbol string) *symbolWindow {
	s.mu.RLock()
	w, ok := s.symbols[symbol]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.symbols[symbol]; ok {
		return w
	}
	w = newSymbolWindow()
	s.symbols[symbol] = w
	return w
}
