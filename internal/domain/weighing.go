package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WeighingKind is the checkpoint at which a cage was weighed.
type WeighingKind string

const (
	WeighingDeparture WeighingKind = "saida_hospital"
	WeighingArrival   WeighingKind = "recebimento_lavanderia"
	WeighingDispatch  WeighingKind = "expedicao"
)

// WeightPlaces is the number of fractional digits kept for weights.
const WeightPlaces = 3

// Valid reports whether k is a defined weighing kind.
func (k WeighingKind) Valid() bool {
	switch k {
	case WeighingDeparture, WeighingArrival, WeighingDispatch:
		return true
	}
	return false
}

// ParseWeighingKind accepts a stored label, case-insensitively.
func ParseWeighingKind(raw string) (WeighingKind, error) {
	kind := WeighingKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", InvalidInputf("unknown weighing kind %q", raw)
	}
	return kind, nil
}

// Weighing is a weight measurement of a cage at a checkpoint.
// DivergencePercent and DivergenceAlert are derived at insert time.
type Weighing struct {
	ID                uuid.UUID        `json:"id"`
	CageID            uuid.UUID        `json:"cageId"`
	Kind              WeighingKind     `json:"kind"`
	Weight            decimal.Decimal  `json:"weight"`
	ScaleID           *string          `json:"scaleId,omitempty"`
	Timestamp         time.Time        `json:"timestamp"`
	UserID            *uuid.UUID       `json:"userId,omitempty"`
	DivergencePercent *decimal.Decimal `json:"divergencePercent"`
	DivergenceAlert   bool             `json:"divergenceAlert"`
	Notes             *string          `json:"notes,omitempty"`
}

// MaxWeight is the largest weight the weighings.weight column can hold.
var MaxWeight = decimal.RequireFromString("9999999.999")

// ValidateWeight rejects negative weights and weights above MaxWeight once rounded to WeightPlaces.
func ValidateWeight(weight decimal.Decimal) error {
	if weight.IsNegative() {
		return InvalidInputf("weight must be non-negative, got %s", weight.String())
	}
	if weight.Round(WeightPlaces).GreaterThan(MaxWeight) {
		return InvalidInputf("weight must not exceed %s, got %s", MaxWeight.String(), weight.String())
	}
	return nil
}

// RequireWeight validates a submitted weight. An absent weight is invalid, never zero.
func RequireWeight(weight *decimal.Decimal) (decimal.Decimal, error) {
	if weight == nil {
		return decimal.Decimal{}, InvalidInputf("weight is required")
	}
	if err := ValidateWeight(*weight); err != nil {
		return decimal.Decimal{}, err
	}
	return *weight, nil
}
