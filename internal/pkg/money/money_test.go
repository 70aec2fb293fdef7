package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDiv_ByZeroReturnsZero(t *testing.T) {
	assert.True(t, Div(d("100"), decimal.Zero).IsZero())
	assert.True(t, DivOr(d("100"), decimal.Zero, d("7")).Equal(d("7")))
	assert.True(t, Div(d("10"), d("4")).Equal(d("2.5")))
}

func TestPercent(t *testing.T) {
	assert.True(t, Percent(d("10000"), d("50")).Equal(d("5000")))
	assert.True(t, Percent(d("45000"), d("9.75")).Equal(d("4387.5")))
	assert.True(t, PercentOf(d("25"), d("200")).Equal(d("12.5")))
	assert.True(t, PercentOf(d("25"), decimal.Zero).IsZero())
}

func TestRound(t *testing.T) {
	tests := []struct {
		name  string
		value string
		mode  RoundingMode
		want  string
	}{
		{"half up rounds .005 up", "1.005", HalfUp, "1.01"},
		{"half up rounds .004 down", "1.004", HalfUp, "1"},
		{"up is ceiling", "1.001", Up, "1.01"},
		{"down is floor", "1.009", Down, "1"},
		{"down on negative goes lower", "-1.001", Down, "-1.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round(d(tt.value), 2, tt.mode)
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestFloorMoney(t *testing.T) {
	assert.True(t, FloorMoney(d("50.005")).Equal(d("50")))
	assert.True(t, FloorMoney(d("50.019")).Equal(d("50.01")))
	assert.True(t, FloorMoney(d("50.01")).Equal(d("50.01")))
	assert.True(t, RoundMoney(d("50.005")).Equal(d("50.01")))
}

func TestMinMaxClampAbs(t *testing.T) {
	assert.True(t, Min(d("1"), d("2")).Equal(d("1")))
	assert.True(t, Max(d("1"), d("2")).Equal(d("2")))
	assert.True(t, Clamp(d("15"), d("0"), d("10")).Equal(d("10")))
	assert.True(t, Clamp(d("-5"), d("0"), d("10")).IsZero())
	assert.True(t, Clamp(d("5"), d("0"), d("10")).Equal(d("5")))
	assert.True(t, Abs(d("-3.5")).Equal(d("3.5")))
}

func TestSumAvg(t *testing.T) {
	assert.True(t, Sum(d("0.1"), d("0.2")).Equal(d("0.3")))
	assert.True(t, Sum().IsZero())
	assert.True(t, Avg(d("1"), d("2"), d("3")).Equal(d("2")))
	assert.True(t, Avg().IsZero())
}

func TestToMoney_SafeDefault(t *testing.T) {
	def := d("0")
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, "0"},
		{"empty string", "  ", "0"},
		{"garbage", "12abc", "0"},
		{"numeric string", "1234.56", "1234.56"},
		{"json number", json.Number("99.9"), "99.9"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 10.25, "10.25"},
		{"nan", math.NaN(), "0"},
		{"inf", math.Inf(1), "0"},
		{"unsupported type", struct{}{}, "0"},
		{"nil decimal pointer", (*decimal.Decimal)(nil), "0"},
		{"invalid null decimal", decimal.NullDecimal{}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToMoney(tt.input, def)
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}

	assert.True(t, ToMoney("oops", d("5")).Equal(d("5")), "custom default is returned")
}

func TestToDisplayNumber(t *testing.T) {
	assert.Equal(t, 1234.57, ToDisplayNumber(d("1234.5678"), 2))
	assert.Equal(t, 1234.6, ToDisplayNumber(d("1234.5678"), 1))
	assert.Equal(t, 0.0, Display(decimal.Zero))
}

func TestApplyDeductionCap(t *testing.T) {
	got := ApplyDeductionCap(d("10000"), d("6000"), d("50"))
	assert.True(t, got.Capped.Equal(d("5000")))
	assert.True(t, got.Excess.Equal(d("1000")))
	assert.True(t, got.WasCapped)

	under := ApplyDeductionCap(d("10000"), d("4000"), d("50"))
	assert.True(t, under.Capped.Equal(d("4000")))
	assert.True(t, under.Excess.IsZero())
	assert.False(t, under.WasCapped)
}

func TestCalculateNet(t *testing.T) {
	neg := CalculateNet(d("3000"), d("5000"))
	assert.True(t, neg.Net.IsZero())
	assert.True(t, neg.NegativeBalance.Equal(d("2000")))
	assert.True(t, neg.HasNegativeBalance)

	pos := CalculateNet(d("5000"), d("1200.50"))
	assert.True(t, pos.Net.Equal(d("3799.5")))
	assert.False(t, pos.HasNegativeBalance)
}

func TestRates(t *testing.T) {
	assert.True(t, DailyRate(d("3000"), 0).Equal(d("100")))
	assert.True(t, HourlyRate(d("2400"), 30, 0).Equal(d("10")))
	assert.True(t, ProRata(d("3000"), 15, 30).Equal(d("1500")))
	assert.True(t, ProRata(d("3000"), 15, 0).IsZero())
	assert.True(t, RoundToNearest(d("1234"), d("5")).Equal(d("1235")))
	assert.Equal(t, "1500.50 SAR", FormatCurrency(d("1500.5"), "SAR"))
}
