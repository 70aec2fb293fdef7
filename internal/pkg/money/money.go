// Package money is the fixed-precision arithmetic core used by every payroll component.
//
// All amounts are shopspring decimals. Two policies are part of the contract and are
// covered by tests:
//
//   - Division by zero yields zero (or the caller supplied fallback), never a panic.
//   - ToMoney never fails: unparsable input yields the supplied default.
//
// ToDisplayNumber is the only function that may lose precision.
package money

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DisplayPlaces is the number of decimal places used for presentation.
	DisplayPlaces int32 = 2
	// IntermediatePlaces is the precision kept for rates and intermediate results.
	IntermediatePlaces int32 = 6
)

// RoundingMode selects how Round resolves the dropped digits.
type RoundingMode string

const (
	HalfUp RoundingMode = "HALF_UP"
	Up     RoundingMode = "UP"
	Down   RoundingMode = "DOWN"
)

var (
	Zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

func Add(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) }

func Sub(a, b decimal.Decimal) decimal.Decimal { return a.Sub(b) }

func Mul(a, b decimal.Decimal) decimal.Decimal { return a.Mul(b) }

// Div returns a / b, or zero when b is zero.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return DivOr(a, b, decimal.Zero)
}

// DivOr returns a / b, or onZero when b is zero.
func DivOr(a, b, onZero decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return onZero
	}
	return a.DivRound(b, IntermediatePlaces+4)
}

// Percent returns value * pct / 100.
func Percent(value, pct decimal.Decimal) decimal.Decimal {
	return value.Mul(pct).Div(hundred)
}

// PercentOf returns part / whole * 100, zero when whole is zero.
func PercentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, IntermediatePlaces)
}

// Round rounds value to places using mode. UP rounds toward +infinity and DOWN toward
// -infinity.
func Round(value decimal.Decimal, places int32, mode RoundingMode) decimal.Decimal {
	switch mode {
	case Up:
		return value.RoundCeil(places)
	case Down:
		return value.RoundFloor(places)
	default:
		return value.Round(places)
	}
}

// RoundMoney rounds half-up to the display precision.
func RoundMoney(value decimal.Decimal) decimal.Decimal {
	return value.Round(DisplayPlaces)
}

// FloorMoney rounds down to the display precision. Caps and budgets must never
// exceed their exact value.
func FloorMoney(value decimal.Decimal) decimal.Decimal {
	return Round(value, DisplayPlaces, Down)
}

// RoundToNearest rounds value to the nearest multiple of step (half-up). A zero step
// returns the value unchanged.
func RoundToNearest(value, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return value
	}
	return value.Div(step).Round(0).Mul(step)
}

func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Clamp bounds value to [lo, hi].
func Clamp(value, lo, hi decimal.Decimal) decimal.Decimal {
	return Max(lo, Min(value, hi))
}

func Abs(value decimal.Decimal) decimal.Decimal { return value.Abs() }

func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Avg returns the arithmetic mean, zero for an empty input.
func Avg(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return Div(Sum(values...), decimal.NewFromInt(int64(len(values))))
}

func IsPositive(value decimal.Decimal) bool { return value.IsPositive() }

func IsNegative(value decimal.Decimal) bool { return value.IsNegative() }

// ToMoney converts numbers, numeric strings and decimals into a decimal. Nil, NaN,
// infinities, empty strings and anything unparsable yield def.
func ToMoney(value any, def decimal.Decimal) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return def
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v == nil {
			return def
		}
		return *v
	case decimal.NullDecimal:
		if !v.Valid {
			return def
		}
		return v.Decimal
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return def
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return def
		}
		return d
	case json.Number:
		return ToMoney(string(v), def)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case float32:
		return ToMoney(float64(v), def)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return decimal.NewFromFloat(v)
	default:
		return def
	}
}

// ToDisplayNumber converts value to a float64 rounded half-up to places.
func ToDisplayNumber(value decimal.Decimal, places int32) float64 {
	f, _ := value.Round(places).Float64()
	return f
}

// Display is ToDisplayNumber with the default two places.
func Display(value decimal.Decimal) float64 {
	return ToDisplayNumber(value, DisplayPlaces)
}

// FormatCurrency renders value with two places followed by the currency code.
func FormatCurrency(value decimal.Decimal, currency string) string {
	if currency == "" {
		return value.StringFixed(DisplayPlaces)
	}
	return fmt.Sprintf("%s %s", value.StringFixed(DisplayPlaces), currency)
}

// CapResult is the outcome of ApplyDeductionCap.
type CapResult struct {
	Capped    decimal.Decimal
	Excess    decimal.Decimal
	WasCapped bool
}

// ApplyDeductionCap limits deductions to capPercent of gross.
func ApplyDeductionCap(gross, deductions, capPercent decimal.Decimal) CapResult {
	limit := Max(decimal.Zero, Percent(gross, capPercent))
	if deductions.GreaterThan(limit) {
		return CapResult{
			Capped:    limit,
			Excess:    deductions.Sub(limit),
			WasCapped: true,
		}
	}
	return CapResult{Capped: deductions, Excess: decimal.Zero}
}

// NetResult is the outcome of CalculateNet.
type NetResult struct {
	Net                decimal.Decimal
	NegativeBalance    decimal.Decimal
	HasNegativeBalance bool
}

// CalculateNet returns max(0, gross - deductions) and the shortfall when negative.
func CalculateNet(gross, deductions decimal.Decimal) NetResult {
	net := gross.Sub(deductions)
	if net.IsNegative() {
		return NetResult{
			Net:                decimal.Zero,
			NegativeBalance:    net.Abs(),
			HasNegativeBalance: true,
		}
	}
	return NetResult{Net: net, NegativeBalance: decimal.Zero}
}

// DailyRate divides a monthly amount by days (30 when days <= 0).
func DailyRate(monthly decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		days = 30
	}
	return Div(monthly, decimal.NewFromInt(int64(days)))
}

// HourlyRate divides the daily rate by hours (8 when hours <= 0).
func HourlyRate(monthly decimal.Decimal, days, hours int) decimal.Decimal {
	if hours <= 0 {
		hours = 8
	}
	return Div(DailyRate(monthly, days), decimal.NewFromInt(int64(hours)))
}

// ProRata returns amount * worked / total, zero when total is zero.
func ProRata(amount decimal.Decimal, worked, total int) decimal.Decimal {
	return Div(amount.Mul(decimal.NewFromInt(int64(worked))), decimal.NewFromInt(int64(total)))
}
