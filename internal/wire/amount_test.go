package wire

import (
	"encoding/json"
	"testing"
)

func TestParseBTCAmountFromNumber(t *testing.T) {
	cases := []struct {
		name string
		in   json.Number
		want int64
	}{
		{"one btc", json.Number("1"), 100_000_000},
		{"fractional", json.Number("0.00000001"), 1},
		{"scientific notation", json.Number("1e-8"), 1},
		{"zero", json.Number("0"), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseBTCAmount(tc.in)
			if err != nil {
				t.Fatalf("ParseBTCAmount(%v): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseBTCAmount(%v) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseBTCAmountFromString(t *testing.T) {
	got, err := ParseBTCAmount("1.23456789")
	if err != nil {
		t.Fatalf("ParseBTCAmount: %v", err)
	}
	if got != 123456789 {
		t.Fatalf("got %d, want 123456789", got)
	}
}

func TestParseBTCAmountStringRejectsScientificNotation(t *testing.T) {
	if _, err := ParseBTCAmount("1e-8"); err == nil {
		t.Fatal("expected error for scientific notation in string amount")
	}
}

func TestParseBTCAmountRejectsInvalidType(t *testing.T) {
	cases := []interface{}{true, nil, []interface{}{}, map[string]interface{}{}}
	for _, c := range cases {
		if _, err := ParseBTCAmount(c); err == nil {
			t.Fatalf("ParseBTCAmount(%#v): expected error", c)
		}
	}
}

func TestParseBTCAmountRejectsMalformedNumber(t *testing.T) {
	if _, err := ParseBTCAmount(json.Number("not-a-number")); err == nil {
		t.Fatal("expected error for malformed json.Number")
	}
}
