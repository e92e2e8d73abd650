package wire

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cory-btc/ancestry/internal/coreerr"
)

// Integer is the set of concrete integer types the field parsers below may
// be instantiated for.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// ParseIntegerRequired decodes value as a field of type T, signed or
// unsigned per the signed flag, failing if the field is missing, the wrong
// JSON type, or out of T's range.
func ParseIntegerRequired[T Integer](value interface{}, signed bool, field string) (T, error) {
	t, present, err := parseInteger[T](value, signed, field)
	if err != nil {
		return t, err
	}
	if !present {
		return t, &coreerr.InvalidTxDataError{Field: field, Msg: "missing " + field}
	}
	return t, nil
}

// ParseIntegerOptional decodes value as an optional field of type T. A
// missing field, a non-numeric JSON type, or an out-of-range value all
// simply report absence rather than an error — callers that need a hard
// error should use ParseIntegerRequired instead.
func ParseIntegerOptional[T Integer](value interface{}, signed bool) (T, bool) {
	t, present, err := parseInteger[T](value, signed, "value")
	if err != nil || !present {
		var zero T
		return zero, false
	}
	return t, true
}

func parseInteger[T Integer](value interface{}, signed bool, field string) (T, bool, error) {
	var zero T

	num, ok := value.(json.Number)
	if !ok {
		if f, ok := value.(float64); ok {
			num = json.Number(strconv.FormatFloat(f, 'f', -1, 64))
		} else {
			return zero, false, nil
		}
	}

	if signed {
		n, err := num.Int64()
		if err != nil {
			return zero, false, nil
		}
		t := T(n)
		if int64(t) != n {
			return zero, true, &coreerr.InvalidTxDataError{Field: field, Msg: fmt.Sprintf("out of range: %d", n)}
		}
		return t, true, nil
	}

	n, err := strconv.ParseUint(num.String(), 10, 64)
	if err != nil {
		return zero, false, nil
	}
	t := T(n)
	if uint64(t) != n {
		return zero, true, &coreerr.InvalidTxDataError{Field: field, Msg: fmt.Sprintf("out of range: %d", n)}
	}
	return t, true, nil
}
