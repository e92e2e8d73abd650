package wire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/cory-btc/ancestry/internal/coreerr"
)

// ParseBTCAmount decodes a Bitcoin Core JSON amount field into satoshis.
// Callers must decode the surrounding JSON with a json.Decoder configured
// via UseNumber, so that numeric fields arrive as json.Number rather than
// a lossy float64.
//
// Numbers are parsed as floating point, which accepts scientific notation
// (Bitcoin Core sometimes emits very small amounts that way). Strings are
// parsed as plain decimals and do NOT accept scientific notation — a
// string like "1e-8" is rejected rather than silently coerced. Any other
// JSON shape (bool, object, array, null) is an error.
func ParseBTCAmount(value interface{}) (int64, error) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, &coreerr.InvalidTxDataError{Msg: fmt.Sprintf("invalid BTC amount %q: %v", v, err)}
		}
		return satsFromFloat(f, v.String())
	case float64:
		return satsFromFloat(v, strconv.FormatFloat(v, 'g', -1, 64))
	case string:
		return satsFromDecimalString(v)
	default:
		return 0, &coreerr.InvalidTxDataError{Msg: fmt.Sprintf("expected numeric BTC amount, got: %v", value)}
	}
}

func satsFromFloat(f float64, repr string) (int64, error) {
	amt, err := btcutil.NewAmount(f)
	if err != nil {
		return 0, &coreerr.InvalidTxDataError{Msg: fmt.Sprintf("invalid BTC amount `%s`: %v", repr, err)}
	}
	return int64(amt), nil
}

func satsFromDecimalString(s string) (int64, error) {
	if strings.ContainsAny(s, "eE") {
		return 0, &coreerr.InvalidTxDataError{Msg: fmt.Sprintf("invalid BTC amount `%s`: scientific notation not allowed in string amounts", s)}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &coreerr.InvalidTxDataError{Msg: fmt.Sprintf("invalid BTC amount `%s`: %v", s, err)}
	}
	return satsFromFloat(f, s)
}
