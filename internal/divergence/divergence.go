// Package divergence computes weight divergence between checkpoints of a cage.
//
// Two calculators coexist and must not be unified. Signed is evaluated when a
// weighing is recorded and compares it with the hospital departure weight, so a
// loss is negative and a gain positive. Percent is used by reports and gives the
// unsigned magnitude between departure and dispatch.
package divergence

import (
	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultThreshold is the alert threshold in percent.
const DefaultThreshold = 5.0

// Places is the number of fractional digits kept for percentages.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Signed returns round((weight - departure) / departure * 100, 2), or nil when the
// departure weight is not positive.
func Signed(weight, departure decimal.Decimal) *decimal.Decimal {
	if !departure.IsPositive() {
		return nil
	}
	value := weight.Sub(departure).Mul(hundred).Div(departure).Round(Places)
	return &value
}

// Alert reports whether |div| exceeds threshold. A nil divergence never alerts.
func Alert(div *decimal.Decimal, threshold float64) bool {
	if div == nil {
		return false
	}
	return div.Abs().GreaterThan(decimal.NewFromFloat(threshold))
}

// Latest returns the most recent weighing of kind. Equal timestamps resolve to the later entry.
func Latest(weighings []domain.Weighing, kind domain.WeighingKind) (domain.Weighing, bool) {
	var (
		found domain.Weighing
		ok    bool
	)
	for _, w := range weighings {
		if w.Kind != kind {
			continue
		}
		if !ok || !w.Timestamp.Before(found.Timestamp) {
			found = w
			ok = true
		}
	}
	return found, ok
}

// ForInsert derives the divergence fields of a new weighing of kind and weight from the
// cage's existing history. Departure weighings never carry a divergence.
func ForInsert(history []domain.Weighing, kind domain.WeighingKind, weight decimal.Decimal, threshold float64) (*decimal.Decimal, bool) {
	if kind == domain.WeighingDeparture {
		return nil, false
	}
	departure, ok := Latest(history, domain.WeighingDeparture)
	if !ok {
		return nil, false
	}
	div := Signed(weight, departure.Weight)
	return div, Alert(div, threshold)
}

// Percent returns |departure - dispatch| / departure * 100 rounded to 2 places, or nil
// when either weighing is missing or the departure weight is zero.
func Percent(weighings []domain.Weighing) *decimal.Decimal {
	departure, ok := Latest(weighings, domain.WeighingDeparture)
	if !ok {
		return nil
	}
	dispatch, ok := Latest(weighings, domain.WeighingDispatch)
	if !ok {
		return nil
	}
	if departure.Weight.IsZero() {
		return nil
	}
	value := departure.Weight.Sub(dispatch.Weight).Abs().Mul(hundred).Div(departure.Weight).Round(Places)
	return &value
}

// HasCritical reports whether Percent exists and is strictly above threshold.
func HasCritical(weighings []domain.Weighing, threshold float64) bool {
	div := Percent(weighings)
	return div != nil && div.GreaterThan(decimal.NewFromFloat(threshold))
}
