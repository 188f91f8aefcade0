package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"20000", "20000"},
		{"20,000", "20000"},
		{"$ 20,000", "20000"},
		{"-20,000", "-20000"},
		{"  1,234.50  ", "1234.5"},
	}
	for _, tc := range cases {
		d, err := ParseAmount(tc.in)
		if err != nil {
			t.Fatalf("ParseAmount(%q) error: %v", tc.in, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseAmount(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseAmount_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "$"} {
		if _, err := ParseAmount(in); err == nil {
			t.Fatalf("ParseAmount(%q) expected error", in)
		}
	}
}

func TestCheckAmount(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"0", true},
		{"12.3456", true},
		{"12.34560", true},
		{"-0.0001", true},
		{"9999999999999999.9999", true},
		{"0.00001", false},
		{"12.34567", false},
		{"10000000000000000", false},
		{"-10000000000000000", false},
	}
	for _, tc := range cases {
		err := CheckAmount("amount", decimal.RequireFromString(tc.in))
		if tc.ok && err != nil {
			t.Fatalf("CheckAmount(%s) unexpected error: %v", tc.in, err)
		}
		if !tc.ok && !IsKind(err, KindValidation) {
			t.Fatalf("CheckAmount(%s) expected ValidationError, got %v", tc.in, err)
		}
	}
}
