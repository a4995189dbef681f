package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	errNotNumber = errors.New("not a number")
	errNotDate   = errors.New("not a date")
)

// dateLayouts are tried in order when a date arrives as text.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"01-02-2006",
	"20060102",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	time.RFC1123Z,
	time.RFC1123,
}

// CoerceAmount converts numbers, decimals and numeric text into a decimal.
// Thousands separators and a leading currency symbol are ignored.
func CoerceAmount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, errNotNumber
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, errNotNumber
		}
		return *n, nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case uint:
		return decimal.NewFromUint64(uint64(n)), nil
	case uint32:
		return decimal.NewFromUint64(uint64(n)), nil
	case uint64:
		return decimal.NewFromUint64(n), nil
	case float32:
		return floatAmount(float64(n))
	case float64:
		return floatAmount(n)
	case json.Number:
		return parseAmountText(n.String())
	case string:
		return parseAmountText(n)
	case []byte:
		return parseAmountText(string(n))
	}
	return decimal.Zero, fmt.Errorf("%w: unsupported type %T", errNotNumber, v)
}

func floatAmount(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, errNotNumber
	}
	return decimal.NewFromFloat(f), nil
}

func parseAmountText(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimLeft(s, "$€£¥")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errNotNumber
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", errNotNumber, s)
	}
	return d, nil
}

// CoerceDate converts a time value, unix milliseconds, or text in one of the
// accepted layouts into a time. Text without a zone is read as UTC.
func CoerceDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, errNotDate
	case time.Time:
		if d.IsZero() {
			return time.Time{}, errNotDate
		}
		return d.UTC(), nil
	case *time.Time:
		if d == nil || d.IsZero() {
			return time.Time{}, errNotDate
		}
		return d.UTC(), nil
	case int:
		return time.UnixMilli(int64(d)).UTC(), nil
	case int64:
		return time.UnixMilli(d).UTC(), nil
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return time.Time{}, errNotDate
		}
		return time.UnixMilli(int64(d)).UTC(), nil
	case json.Number:
		ms, err := d.Int64()
		if err != nil {
			return time.Time{}, errNotDate
		}
		return time.UnixMilli(ms).UTC(), nil
	case string:
		return parseDateText(d)
	}
	return time.Time{}, fmt.Errorf("%w: unsupported type %T", errNotDate, v)
}

func parseDateText(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errNotDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errNotDate, s)
}

// stringValue renders a raw cell as trimmed text. Numbers are formatted
// without exponent so numeric titles survive spreadsheet imports.
func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case []byte:
		return strings.TrimSpace(string(s))
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case fmt.Stringer:
		return strings.TrimSpace(s.String())
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// intValue converts a raw interval count into an int.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
