package ingest

import "errors"

// ErrConnectTimeout is returned by connect when the bounded connect wait
// (spec §5 "Timeouts": "reference: connectBlocking default") elapses before
// the exchange accepts the connection.
var ErrConnectTimeout = errors.New("ingest: connect timed out")

// ErrNotConnected is returned by send when the Feed has no open connection.
var ErrNotConnected = errors.New("ingest: not connected")
