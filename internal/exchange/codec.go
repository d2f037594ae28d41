// Package exchange houses the wire codec for the exchange's streaming
// endpoint (spec §6.1). The concrete exchange protocol is, per spec §1, an
// external collaborator specified only by the interface it must satisfy;
// this package supplies that interface plus a reference combined-stream
// JSON decoder so the ingest component is runnable and testable end to end.
package exchange

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/khanbekov/market-pulse/internal/convert"
	"github.com/khanbekov/market-pulse/internal/model"
)

// Decoder turns one raw inbound frame into a normalized Tick. Implementions
// must not panic on malformed input; they return ErrMalformedFrame or
// ErrUnknownEventKind instead.
type Decoder interface {
	Decode(raw []byte) (model.Tick, error)
}

// exchangeName is stamped onto every Tick produced by this decoder.
const exchangeName = "combined-stream"

// CombinedStreamDecoder decodes frames shaped either as a combined-stream
// envelope {"stream":"<pair>@ticker","data":{...}} or as a bare event,
// discriminated by the event's "e" field, per spec §6.1.
type CombinedStreamDecoder struct {
	json jsoniter.API
}

// NewCombinedStreamDecoder returns a ready-to-use decoder.
func NewCombinedStreamDecoder() *CombinedStreamDecoder {
	return &CombinedStreamDecoder{json: jsoniter.ConfigCompatibleWithStandardLibrary}
}

// Decode implements Decoder.
func (d *CombinedStreamDecoder) Decode(raw []byte) (model.Tick, error) {
	var envelope map[string]interface{}
	if err := d.json.Unmarshal(raw, &envelope); err != nil {
		return model.Tick{}, ErrMalformedFrame
	}

	event := envelope
	if data, ok := envelope["data"]; ok {
		nested, ok := data.(map[string]interface{})
		if !ok {
			return model.Tick{}, ErrMalformedFrame
		}
		event = nested
	}

	kind := convert.ToString(event["e"])
	switch kind {
	case "24hrTicker":
		return decode24hrTicker(event)
	case "trade":
		return decodeTrade(event)
	case "kline":
		return decodeKline(event)
	default:
		return model.Tick{}, ErrUnknownEventKind
	}
}

func decode24hrTicker(event map[string]interface{}) (model.Tick, error) {
	price, err := convert.ToFloat64(event["c"])
	if err != nil {
		return model.Tick{}, ErrMalformedFrame
	}
	volume, _ := convert.ToFloat64(event["v"])
	open, _ := convert.ToFloat64(event["o"])
	high, _ := convert.ToFloat64(event["h"])
	low, _ := convert.ToFloat64(event["l"])
	ts, _ := convert.ToInt64(event["E"])

	return model.Tick{
		Symbol:   convert.CleanSymbol(convert.ToString(event["s"])),
		Price:    price,
		Volume:   int64(volume),
		Time:     epochMsToTime(ts),
		Exchange: exchangeName,
		Open:     open,
		High:     high,
		Low:      low,
	}, nil
}

func decodeTrade(event map[string]interface{}) (model.Tick, error) {
	price, err := convert.ToFloat64(event["p"])
	if err != nil {
		return model.Tick{}, ErrMalformedFrame
	}
	volume, _ := convert.ToFloat64(event["q"])
	ts, _ := convert.ToInt64(event["T"])

	return model.Tick{
		Symbol:   convert.CleanSymbol(convert.ToString(event["s"])),
		Price:    price,
		Volume:   int64(volume),
		Time:     epochMsToTime(ts),
		Exchange: exchangeName,
	}, nil
}

func decodeKline(event map[string]interface{}) (model.Tick, error) {
	kRaw, ok := event["k"]
	if !ok {
		return model.Tick{}, ErrMalformedFrame
	}
	k, ok := kRaw.(map[string]interface{})
	if !ok {
		return model.Tick{}, ErrMalformedFrame
	}

	price, err := convert.ToFloat64(k["c"])
	if err != nil {
		return model.Tick{}, ErrMalformedFrame
	}
	open, _ := convert.ToFloat64(k["o"])
	high, _ := convert.ToFloat64(k["h"])
	low, _ := convert.ToFloat64(k["l"])
	volume, _ := convert.ToFloat64(k["v"])
	ts, _ := convert.ToInt64(k["T"])

	return model.Tick{
		Symbol:   convert.CleanSymbol(convert.ToString(event["s"])),
		Price:    price,
		Volume:   int64(volume),
		Time:     epochMsToTime(ts),
		Exchange: exchangeName,
		Open:     open,
		High:     high,
		Low:      low,
	}, nil
}

func epochMsToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}

// SubscriptionFrame is the outbound subscribe request (spec §6.1):
// {"method":"SUBSCRIBE","params":["<pair>@ticker", ...],"id":1}.
type SubscriptionFrame struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// NewSubscriptionFrame builds the subscribe request for the given
// lowercase symbols, e.g. "btc" -> "btc@ticker".
func NewSubscriptionFrame(symbols []string) SubscriptionFrame {
	params := make([]string, len(symbols))
	for i, s := range symbols {
		params[i] = s + "@ticker"
	}
	return SubscriptionFrame{Method: "SUBSCRIBE", Params: params, ID: 1}
}
