package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode24hrTickerCombinedEnvelope(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@ticker","data":{"e":"24hrTicker","s":"BTCUSDT","c":"65000.50","v":"1234","o":"64000","h":"66000","l":"63500","P":"1.5","E":1700000000000}}`)

	d := NewCombinedStreamDecoder()
	tick, err := d.Decode(raw)

	require.NoError(t, err)
	assert.Equal(t, "BTC", tick.Symbol)
	assert.Equal(t, 65000.50, tick.Price)
	assert.Equal(t, int64(1234), tick.Volume)
	assert.Equal(t, 64000.0, tick.Open)
	assert.Equal(t, 66000.0, tick.High)
	assert.Equal(t, 63500.0, tick.Low)
}

func TestDecodeBareTradeEvent(t *testing.T) {
	raw := []byte(`{"e":"trade","s":"ETHUSDT","p":"3200.25","q":"2.5","T":1700000000000}`)

	d := NewCombinedStreamDecoder()
	tick, err := d.Decode(raw)

	require.NoError(t, err)
	assert.Equal(t, "ETH", tick.Symbol)
	assert.Equal(t, 3200.25, tick.Price)
	assert.Equal(t, int64(2), tick.Volume)
}

func TestDecodeKlineEvent(t *testing.T) {
	raw := []byte(`{"e":"kline","s":"SOLBUSD","k":{"c":"150.1","o":"149","h":"151","l":"148.5","v":"500","T":1700000000000}}`)

	d := NewCombinedStreamDecoder()
	tick, err := d.Decode(raw)

	require.NoError(t, err)
	assert.Equal(t, "SOL", tick.Symbol)
	assert.Equal(t, 150.1, tick.Price)
	assert.Equal(t, 149.0, tick.Open)
}

func TestDecodeUnknownEventKind(t *testing.T) {
	raw := []byte(`{"e":"depthUpdate","s":"BTCUSDT"}`)

	d := NewCombinedStreamDecoder()
	_, err := d.Decode(raw)

	assert.ErrorIs(t, err, ErrUnknownEventKind)
}

func TestDecodeMalformedFrameIsDropped(t *testing.T) {
	d := NewCombinedStreamDecoder()
	_, err := d.Decode([]byte(`not json`))

	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestCleanSymbolSuffixes(t *testing.T) {
	raw := []byte(`{"e":"trade","s":"XRPBUSD","p":"0.55","q":"100","T":1}`)
	d := NewCombinedStreamDecoder()
	tick, err := d.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "XRP", tick.Symbol)
}

func TestNewSubscriptionFrame(t *testing.T) {
	frame := NewSubscriptionFrame([]string{"btc", "eth"})
	assert.Equal(t, "SUBSCRIBE", frame.Method)
	assert.Equal(t, []string{"btc@ticker", "eth@ticker"}, frame.Params)
	assert.Equal(t, 1, frame.ID)
}
