package exchange

import "errors"

// Decode errors are always recovered locally by the caller: the malformed
// frame is logged and dropped, the stream is never torn down (spec §4.A).
var (
	ErrMalformedFrame   = errors.New("exchange: malformed frame")
	ErrUnknownEventKind = errors.New("exchange: unknown event kind")
)
