package snapshot

import (
	"context"

	jsoniter "github.com/json-iterator/go"

	"github.com/khanbekov/market-pulse/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SaveSnapshot serializes snap and writes it through store under its symbol
// key.
func SaveSnapshot(ctx context.Context, store Store, snap model.MarketSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return store.Save(ctx, snap.Symbol, b)
}

// FindLatestSnapshot performs a blocking read and deserializes the result.
func FindLatestSnapshot(ctx context.Context, store Store, symbol string) (model.MarketSnapshot, error) {
	b, err := store.FindLatest(ctx, symbol)
	if err != nil {
		return model.MarketSnapshot{}, err
	}
	return decodeSnapshot(b)
}

// SnapshotResult is the deserialized outcome of an async snapshot read.
type SnapshotResult struct {
	Snapshot model.MarketSnapshot
	Err      error
}

// FindLatestSnapshotAsync wraps Store.FindLatestAsync with JSON decoding,
// for use from the broadcast loop's non-blocking critical path (spec §5).
func FindLatestSnapshotAsync(ctx context.Context, store Store, symbol string) <-chan SnapshotResult {
	raw := store.FindLatestAsync(ctx, symbol)
	out := make(chan SnapshotResult, 1)
	go func() {
		res := <-raw
		if res.Err != nil {
			out <- SnapshotResult{Err: res.Err}
			return
		}
		snap, err := decodeSnapshot(res.Bytes)
		out <- SnapshotResult{Snapshot: snap, Err: err}
	}()
	return out
}

func decodeSnapshot(b []byte) (model.MarketSnapshot, error) {
	var snap model.MarketSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return model.MarketSnapshot{}, err
	}
	return snap, nil
}
