package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/khanbekov/market-pulse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New()

	var mu sync.Mutex
	var gotA, gotB model.Tick

	b.Subscribe("market-stream", func(tick model.Tick) {
		mu.Lock()
		gotA = tick
		mu.Unlock()
	})
	b.Subscribe("market-stream", func(tick model.Tick) {
		mu.Lock()
		gotB = tick
		mu.Unlock()
	})

	tick := model.Tick{Symbol: "BTC", Price: 100, Time: time.Now()}
	b.Publish("market-stream", tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "BTC", gotA.Symbol)
	assert.Equal(t, "BTC", gotB.Symbol)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	token := b.Subscribe("market-stream", func(model.Tick) { calls++ })

	b.Publish("market-stream", model.Tick{Symbol: "ETH"})
	require.Equal(t, 1, calls)

	b.Unsubscribe("market-stream", token)
	b.Publish("market-stream", model.Tick{Symbol: "ETH"})
	assert.Equal(t, 1, calls, "handler must not be invoked after Unsubscribe")
}

func TestPublishIsPerChannel(t *testing.T) {
	b := New()
	var other int
	b.Subscribe("other-channel", func(model.Tick) { other++ })

	b.Publish("market-stream", model.Tick{Symbol: "SOL"})
	assert.Equal(t, 0, other, "a publish on one channel must not reach another channel's subscribers")
}

func TestSubscriberCount(t *testing.T) {
	b := New()
	assert.Equal(t, 0, b.SubscriberCount("market-stream"))
	b.Subscribe("market-stream", func(model.Tick) {})
	b.Subscribe("market-stream", func(model.Tick) {})
	assert.Equal(t, 2, b.SubscriberCount("market-stream"))
}
