package shift

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
)

// MaxVarianceReasonLength bounds variance explanations, in characters.
const MaxVarianceReasonLength = 500

// VariancePolicy holds the dual threshold. A variance needs review only when
// it exceeds both the absolute amount and the fraction of expected cash.
type VariancePolicy struct {
	AbsoluteThreshold decimal.Decimal
	PercentThreshold  decimal.Decimal
}

func DefaultVariancePolicy() VariancePolicy {
	return VariancePolicy{
		AbsoluteThreshold: decimal.RequireFromString("5.00"),
		PercentThreshold:  decimal.RequireFromString("0.01"),
	}
}

// Evaluation is the outcome of checking a variance against the policy.
type Evaluation struct {
	Variance         decimal.Decimal `json:"variance"`
	AbsoluteExceeded bool            `json:"absolute_exceeded"`
	PercentExceeded  bool            `json:"percent_exceeded"`
	Exceeded         bool            `json:"exceeded"`
	Target           Status          `json:"target"`
}

// Engine computes expected cash and classifies variances.
type Engine struct {
	policy VariancePolicy
}

func NewEngine(policy VariancePolicy) *Engine {
	return &Engine{policy: policy}
}

func (e *Engine) Policy() VariancePolicy { return e.policy }

// CalculateExpectedCash is opening cash plus completed cash sales.
func (e *Engine) CalculateExpectedCash(ctx context.Context, totals CashTotals, s *Shift) (decimal.Decimal, error) {
	sales, err := totals.SumCompletedCash(ctx, s.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum cash sales for shift %s: %w", s.ID, err)
	}
	return s.OpeningCash.Add(sales), nil
}

// CalculateVariance is actual minus expected; negative means short.
func CalculateVariance(actual, expected decimal.Decimal) decimal.Decimal {
	return actual.Sub(expected)
}

// EvaluateVarianceThreshold flags the variance when |variance| exceeds the
// absolute threshold and |variance|/|expected| exceeds the percent
// threshold. With zero expected cash any non-zero variance passes the
// relative test.
func (e *Engine) EvaluateVarianceThreshold(variance, expected decimal.Decimal) Evaluation {
	abs := variance.Abs()
	ev := Evaluation{Variance: variance}
	ev.AbsoluteExceeded = abs.GreaterThan(e.policy.AbsoluteThreshold)
	if expected.IsZero() {
		ev.PercentExceeded = !variance.IsZero()
	} else {
		ev.PercentExceeded = abs.GreaterThan(expected.Abs().Mul(e.policy.PercentThreshold))
	}
	ev.Exceeded = ev.AbsoluteExceeded && ev.PercentExceeded
	ev.Target = StatusReconciling
	if ev.Exceeded {
		ev.Target = StatusVarianceReview
	}
	return ev
}

// ValidateVarianceReason returns the trimmed reason. A reason is mandatory
// when required and never longer than MaxVarianceReasonLength.
func ValidateVarianceReason(reason *string, required bool) (*string, error) {
	var trimmed string
	if reason != nil {
		trimmed = strings.TrimSpace(*reason)
	}
	if trimmed == "" {
		if required {
			return nil, apperr.Validation(CodeVarianceReasonRequired,
				"a variance reason is required when the variance exceeds the review threshold")
		}
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > MaxVarianceReasonLength {
		return nil, apperr.Validation(CodeVarianceReasonTooLong,
			"variance reason must be at most %d characters", MaxVarianceReasonLength)
	}
	return &trimmed, nil
}

// validateCash checks a counted or opening cash amount. Zero is accepted
// only when allowZero is set.
func validateCash(field string, amount decimal.Decimal, allowZero bool) error {
	if amount.IsNegative() || (!allowZero && amount.IsZero()) {
		bound := "greater than zero"
		if allowZero {
			bound = "zero or more"
		}
		return apperr.Validation(CodeInvalidCashAmount, "%s must be %s", field, bound).With("field", field)
	}
	if !amount.Equal(amount.Round(2)) {
		return apperr.Validation(CodeInvalidCashAmount, "%s has more than two decimal places", field).With("field", field)
	}
	return nil
}
