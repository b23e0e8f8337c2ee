// Package core holds the ledger domain: fields, entries, months and the pure
// visibility and aggregation rules built on them.
//
// Amounts are integer minor units (cents). Every sum in the ledger is exact,
// so repeated small increments never drift.
package core

import (
	"strconv"
	"strings"
)

// Money is a signed amount in cents.
type Money struct {
	Cents int64
}

// CounterStep is the amount written by a single counter increment.
var CounterStep = Money{Cents: 100}

// ParseAmount converts a signed decimal string to Money.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Digits past the
// second decimal are rounded half away from zero, so "1.005" is 1.01 and
// "-1.005" is -1.01. An explicit leading sign is allowed.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("-300")   -> -30000
//	ParseAmount("12,346") -> 1235
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return Money{}, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return Money{}, ErrInvalidAmount
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// Prevent overflow when scaling to cents
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv >= maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}

	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
		}
		if len(fracPart) > 2 && fracPart[2] >= '5' {
			fracCents++
		}
	}

	cents := iv*100 + fracCents
	if negative {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Units returns the whole part, which is the count for counter fields.
func (m Money) Units() int64 {
	return m.Cents / 100
}

// Decimal renders the amount as a plain decimal string, e.g. "-12.50".
func (m Money) Decimal() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + strconv.FormatInt(c/100, 10) + "." + pad2(c%100)
}

// String formats the amount as Indian rupees with lakh grouping,
// e.g. "Rs 1,23,456.50" or "-Rs 300.00".
func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + "Rs " + groupIndian(strconv.FormatInt(c/100, 10)) + "." + pad2(c%100)
}

// FormatFor renders a total the way the field kind displays it: counters
// as a bare count, money fields as currency.
func (m Money) FormatFor(kind FieldKind) string {
	if kind == KindCounter {
		return strconv.FormatInt(m.Units(), 10)
	}
	return m.String()
}

func pad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}

// groupIndian inserts separators after the last three digits and then every
// two digits.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var b strings.Builder
	lead := len(head) % 2
	if lead > 0 {
		b.WriteString(head[:lead])
	}
	for i := lead; i < len(head); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}
