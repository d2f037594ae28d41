// Package snapshot implements the Snapshot Store: a symbol -> MarketSnapshot
// mapping with save/find/delete, plus a non-blocking async read variant for
// the broadcast loop (spec §4.E, §9).
package snapshot

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by FindLatest when no snapshot has been saved for
// the requested symbol.
var ErrNotFound = errors.New("snapshot: not found")

// ErrBlockingMisuse names the operator error of calling the blocking
// FindLatest where FindLatestAsync is required. No Store in this package
// returns it: FindLatest does not inspect its caller's context.
var ErrBlockingMisuse = errors.New("snapshot: blocking read used where FindLatestAsync is required")

// Key builds the KV key for a symbol's latest snapshot (spec §6.3).
func Key(symbol string) string {
	return fmt.Sprintf("latest_snapshot:%s", symbol)
}

// Store is the narrow interface the analytics scheduler and broadcaster
// depend on. Save/FindLatest/Delete may block; FindLatestAsync must not —
// implementations run it on their own goroutine and deliver the result on
// the returned channel.
type Store interface {
	Save(ctx context.Context, symbol string, snapshot []byte) error
	FindLatest(ctx context.Context, symbol string) ([]byte, error)
	FindLatestAsync(ctx context.Context, symbol string) <-chan AsyncResult
	Delete(ctx context.Context, symbol string) error
}

// AsyncResult is the non-blocking read's outcome: the raw serialized
// snapshot bytes, or an error (ErrNotFound included).
type AsyncResult struct {
	Bytes []byte
	Err   error
}
