package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnumsUseStoredLabels(t *testing.T) {
	stage, err := ParseStage(" em_lavagem ")
	require.NoError(t, err)
	assert.Equal(t, StageWashing, stage)

	kind, err := ParseWeighingKind("EXPEDICAO")
	require.NoError(t, err)
	assert.Equal(t, WeighingDispatch, kind)

	step, err := ParseStepKind("dobra")
	require.NoError(t, err)
	assert.Equal(t, StepFolding, step)

	transport, err := ParseTransportKind("volta")
	require.NoError(t, err)
	assert.Equal(t, TransportReturn, transport)

	status, err := ParseTransportStatus("entregue")
	require.NoError(t, err)
	assert.Equal(t, TransportDelivered, status)
}

func TestParseEnumsRejectUnknownLabels(t *testing.T) {
	_, err := ParseStage("LOST")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = ParseWeighingKind("tare")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = ParseStepKind("ironing")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = ParseTransportKind("")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = ParseTransportStatus("lost")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestStagesAreAllValid(t *testing.T) {
	stages := Stages()
	assert.Len(t, stages, 10)
	for _, s := range stages {
		assert.True(t, s.Valid(), s)
	}
	assert.Equal(t, StageCreated, stages[0])
	assert.Equal(t, StageDelivered, stages[len(stages)-1])
}

func TestNextCode(t *testing.T) {
	assert.Equal(t, "GAIOL-001", NextCode("GAIOL", ""))
	assert.Equal(t, "GAIOL-013", NextCode("GAIOL", "GAIOL-012"))
	assert.Equal(t, "GAIOL-1000", NextCode("GAIOL", "GAIOL-999"))
	assert.Equal(t, "GAIOL-001", NextCode("GAIOL", "GAIOL-xyz"))
}

func TestNewCageStartsCreated(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	blank := "  "
	cage := NewCage("GAI-001", uuid.New(), &blank, now)
	assert.Equal(t, StageCreated, cage.Stage)
	assert.Nil(t, cage.Notes)
	assert.Equal(t, now, cage.CreatedAt)
	assert.NotEqual(t, uuid.Nil, cage.ID)
}

func TestQRPayloadEncoding(t *testing.T) {
	cage := Cage{ID: uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"), Code: "GAIOL-007"}
	payload := NewQRPayload(cage, "https://laundry.example.org/")
	raw, err := payload.Encode()
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "GAIOL-007", decoded["codigo"])
	assert.Equal(t, cage.ID.String(), decoded["id"])
	assert.Equal(t, "https://laundry.example.org/gaiolas/0f8fad5b-d9cb-469f-a165-70867728950e", decoded["url"])
}

func TestValidateWeight(t *testing.T) {
	assert.NoError(t, ValidateWeight(decimal.Zero))
	assert.NoError(t, ValidateWeight(decimal.RequireFromString("45.500")))
	err := ValidateWeight(decimal.RequireFromString("-0.001"))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestValidateWeightUpperBound(t *testing.T) {
	assert.NoError(t, ValidateWeight(MaxWeight))
	assert.NoError(t, ValidateWeight(decimal.RequireFromString("9999999.9994")))

	for _, raw := range []string{"9999999.9995", "10000000", "1e12"} {
		err := ValidateWeight(decimal.RequireFromString(raw))
		assert.True(t, errors.Is(err, ErrInvalidInput), raw)
	}
}

func TestRequireWeight(t *testing.T) {
	_, err := RequireWeight(nil)
	assert.EqualError(t, err, "weight is required: invalid input")

	negative := decimal.NewFromInt(-3)
	_, err = RequireWeight(&negative)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	submitted := decimal.RequireFromString("45.5")
	got, err := RequireWeight(&submitted)
	assert.NoError(t, err)
	assert.True(t, got.Equal(submitted))
}

func TestProcessStepDuration(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	step := ProcessStep{StartedAt: start}
	_, ok := step.Duration()
	assert.False(t, ok)

	end := start.Add(30 * time.Minute)
	step.EndedAt = &end
	d, ok := step.Duration()
	assert.True(t, ok)
	assert.Equal(t, 30*time.Minute, d)
}

func TestHospitalUpdateApply(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	h := NewHospital("Santa Casa", now)
	taxID := " 12.345.678/0001-90 "
	inactive := false
	later := now.Add(time.Hour)

	updated := HospitalUpdate{TaxID: &taxID, Active: &inactive}.Apply(h, later)
	require.NotNil(t, updated.TaxID)
	assert.Equal(t, "12.345.678/0001-90", *updated.TaxID)
	assert.False(t, updated.Active)
	assert.Equal(t, "Santa Casa", updated.Name)
	assert.Equal(t, later, updated.UpdatedAt)
	assert.True(t, h.Active, "original must be untouched")
}
