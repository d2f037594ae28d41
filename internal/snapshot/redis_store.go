package snapshot

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by a Redis key-value store, keyed
// "latest_snapshot:<symbol>" per spec §6.3. Grounded on the pack's
// Redis-backed tick collector, which uses the same go-redis/v9 Set/Get
// shape against a similar "latest state per key" access pattern.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing *redis.Client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Save implements Store. Snapshots are retained indefinitely; they are only
// ever removed by Delete or overwritten by the next Save (spec §3 "Lifecycle").
func (r *RedisStore) Save(ctx context.Context, symbol string, snapshot []byte) error {
	return r.client.Set(ctx, Key(symbol), snapshot, 0).Err()
}

// FindLatest implements Store.
func (r *RedisStore) FindLatest(ctx context.Context, symbol string) ([]byte, error) {
	b, err := r.client.Get(ctx, Key(symbol)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FindLatestAsync implements Store's non-blocking read contract: the
// broadcast loop (spec §5 "Forbidden in the broadcast loop's critical path:
// synchronous blocking reads from the snapshot store") must use this
// instead of FindLatest.
func (r *RedisStore) FindLatestAsync(ctx context.Context, symbol string) <-chan AsyncResult {
	out := make(chan AsyncResult, 1)
	go func() {
		b, err := r.FindLatest(ctx, symbol)
		out <- AsyncResult{Bytes: b, Err: err}
	}()
	return out
}

// Delete implements Store. Deletion only ever happens on operator action
// (spec §3 "deleted only on operator action").
func (r *RedisStore) Delete(ctx context.Context, symbol string) error {
	return r.client.Del(ctx, Key(symbol)).Err()
}

// Close releases the underlying Redis client's connection pool, called on
// the final step of the shutdown sequence (spec §5).
func (r *RedisStore) Close() error {
	return r.client.Close()
}
