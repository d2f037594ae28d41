// Package convert coerces the loosely-typed values that come out of a
// decoded JSON frame (strings, numbers, or nil, depending on the exchange's
// wire format) into the Go types the ingest decoder needs.
package convert

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError describes a failed coercion: the source value, its target
// type, and why the conversion was rejected.
type ParseError struct {
	Value  interface{}
	Target string
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("convert: %v (type %T) -> %s: %s", e.Value, e.Value, e.Target, e.Msg)
}

// ToFloat64 coerces value to a float64. Strings are parsed, numbers are
// cast, nil and empty strings yield 0.
func ToFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, &ParseError{v, "float64", err.Error()}
		}
		return f, nil
	case nil:
		return 0, nil
	default:
		return 0, &ParseError{value, "float64", "unsupported type"}
	}
}

// ToInt64 coerces value to an int64. Strings are parsed, floats are
// truncated, nil and empty strings yield 0.
func ToInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, &ParseError{v, "int64", err.Error()}
		}
		return i, nil
	case nil:
		return 0, nil
	default:
		return 0, &ParseError{value, "int64", "unsupported type"}
	}
}

// ToString coerces value to a string, returning "" for nil.
func ToString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// CleanSymbol strips the common quote-currency suffixes the exchange
// appends to its pair names, mapping them to the canonical base symbol
// (e.g. "BTCUSDT" -> "BTC").
func CleanSymbol(exchangeSymbol string) string {
	s := strings.ToUpper(exchangeSymbol)
	for _, suffix := range []string{"USDT", "BUSD"} {
		if strings.HasSuffix(s, suffix) {
			return strings.TrimSuffix(s, suffix)
		}
	}
	return s
}
