package shift

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
)

type staticCash decimal.Decimal

func (c staticCash) SumCompletedCash(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return decimal.Decimal(c), nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestExpectedCashIsOpeningPlusCashSales(t *testing.T) {
	engine := NewEngine(DefaultVariancePolicy())
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		opening := decimal.New(rng.Int63n(100000), -2)
		sales := decimal.Zero
		for n := rng.Intn(30); n > 0; n-- {
			sales = sales.Add(decimal.New(rng.Int63n(50000)+1, -2))
		}
		sh := &Shift{ID: uuid.New(), OpeningCash: opening}

		expected, err := engine.CalculateExpectedCash(context.Background(), staticCash(sales), sh)
		require.NoError(t, err)
		assert.True(t, expected.Equal(opening.Add(sales)), "opening %s sales %s got %s", opening, sales, expected)
	}
}

func TestVarianceExamples(t *testing.T) {
	engine := NewEngine(DefaultVariancePolicy())
	expected, err := engine.CalculateExpectedCash(context.Background(), staticCash(d("250.00")), &Shift{OpeningCash: d("100.00")})
	require.NoError(t, err)
	assert.Equal(t, "350.00", expected.StringFixed(2))

	t.Run("within threshold", func(t *testing.T) {
		v := CalculateVariance(d("345.00"), expected)
		ev := engine.EvaluateVarianceThreshold(v, expected)
		assert.Equal(t, "-5.00", v.StringFixed(2))
		assert.False(t, ev.AbsoluteExceeded)
		assert.False(t, ev.Exceeded)
		assert.Equal(t, StatusReconciling, ev.Target)
	})

	t.Run("over both thresholds", func(t *testing.T) {
		v := CalculateVariance(d("340.00"), expected)
		ev := engine.EvaluateVarianceThreshold(v, expected)
		assert.Equal(t, "-10.00", v.StringFixed(2))
		assert.True(t, ev.AbsoluteExceeded)
		assert.True(t, ev.PercentExceeded)
		assert.True(t, ev.Exceeded)
		assert.Equal(t, StatusVarianceReview, ev.Target)
	})
}

func TestThresholdNeedsBothTests(t *testing.T) {
	engine := NewEngine(DefaultVariancePolicy())

	cases := []struct {
		name     string
		variance string
		expected string
		exceeded bool
	}{
		{"large store small fraction", "-6.00", "10000.00", false},
		{"small store large fraction", "4.00", "50.00", false},
		{"exactly five", "5.00", "100.00", false},
		{"just over both", "5.01", "100.00", true},
		{"zero expected any shortfall", "-5.01", "0", true},
		{"zero expected under absolute", "3.00", "0", false},
		{"no variance", "0", "0", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := engine.EvaluateVarianceThreshold(d(tc.variance), d(tc.expected))
			assert.Equal(t, tc.exceeded, ev.Exceeded)
		})
	}
}

func TestCustomPolicy(t *testing.T) {
	engine := NewEngine(VariancePolicy{AbsoluteThreshold: d("1"), PercentThreshold: d("0.001")})
	ev := engine.EvaluateVarianceThreshold(d("2"), d("1000"))
	assert.True(t, ev.Exceeded)
	assert.True(t, engine.Policy().AbsoluteThreshold.Equal(d("1")))
}

func TestReviewIsMonotonicInVariance(t *testing.T) {
	engine := NewEngine(DefaultVariancePolicy())
	expected := d("350.00")

	for _, sign := range []int64{1, -1} {
		flagged := false
		for cents := int64(0); cents <= 5000; cents += 7 {
			ev := engine.EvaluateVarianceThreshold(decimal.New(sign*cents, -2), expected)
			if flagged {
				require.True(t, ev.Exceeded, "variance %d cents flipped back", sign*cents)
			}
			flagged = ev.Exceeded
		}
		assert.True(t, flagged)
	}
}

func TestValidateVarianceReason(t *testing.T) {
	got, err := ValidateVarianceReason(nil, false)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ValidateVarianceReason(strPtr(" \t"), true)
	assert.Equal(t, CodeVarianceReasonRequired, apperr.CodeOf(err))

	got, err = ValidateVarianceReason(strPtr(" counted twice "), true)
	require.NoError(t, err)
	assert.Equal(t, "counted twice", *got)

	exact := strings.Repeat("é", MaxVarianceReasonLength)
	_, err = ValidateVarianceReason(&exact, true)
	assert.NoError(t, err, "length counts characters, not bytes")

	_, err = ValidateVarianceReason(strPtr(exact+"x"), false)
	assert.Equal(t, CodeVarianceReasonTooLong, apperr.CodeOf(err))
}

func TestValidateCash(t *testing.T) {
	assert.NoError(t, validateCash("opening_cash", d("0"), true))
	assert.NoError(t, validateCash("actual_cash", d("12.30"), false))
	assert.Error(t, validateCash("actual_cash", d("0"), false))
	assert.Error(t, validateCash("opening_cash", d("-0.01"), true))

	err := validateCash("opening_cash", d("1.234"), true)
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, CodeInvalidCashAmount, e.Code)
	assert.Equal(t, "opening_cash", e.Details["field"])
}
