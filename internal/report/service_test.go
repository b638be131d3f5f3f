package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/repository/memory"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var day = time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)

type seeder struct {
	t     *testing.T
	store *memory.Store
}

func (s seeder) hospital(name string) domain.Hospital {
	s.t.Helper()
	h, err := s.store.Repositories().Hospitals.Create(context.Background(), domain.NewHospital(name, day))
	require.NoError(s.t, err)
	return h
}

func (s seeder) cage(code string, hospitalID uuid.UUID, createdAt time.Time, stage domain.Stage) domain.Cage {
	s.t.Helper()
	ctx := context.Background()
	c, err := s.store.Repositories().Cages.Create(ctx, domain.NewCage(code, hospitalID, nil, createdAt))
	require.NoError(s.t, err)
	require.NoError(s.t, s.store.Repositories().Cages.UpdateStage(ctx, c.ID, stage))
	return c.WithStage(stage)
}

func (s seeder) weigh(cageID uuid.UUID, kind domain.WeighingKind, weight string, at time.Time) {
	s.t.Helper()
	_, err := s.store.Repositories().Weighings.Create(context.Background(), domain.Weighing{
		ID:        uuid.New(),
		CageID:    cageID,
		Kind:      kind,
		Weight:    decimal.RequireFromString(weight),
		Timestamp: at,
	})
	require.NoError(s.t, err)
}

func (s seeder) step(cageID uuid.UUID, kind domain.StepKind, start time.Time, minutes int) {
	s.t.Helper()
	step := domain.ProcessStep{ID: uuid.New(), CageID: cageID, Kind: kind, StartedAt: start}
	if minutes >= 0 {
		end := start.Add(time.Duration(minutes) * time.Minute)
		step.EndedAt = &end
	}
	_, err := s.store.Repositories().ProcessSteps.Create(context.Background(), step)
	require.NoError(s.t, err)
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestExpeditionRows(t *testing.T) {
	store := memory.NewStore()
	s := seeder{t: t, store: store}
	h := s.hospital("Hospital Norte")
	other := s.hospital("Hospital Sul")

	full := s.cage("GAIOL-001", h.ID, day, domain.StageReadyForDispatch)
	s.weigh(full.ID, domain.WeighingDeparture, "100", day)
	s.weigh(full.ID, domain.WeighingArrival, "99", day.Add(time.Hour))
	s.weigh(full.ID, domain.WeighingDispatch, "58.5", day.Add(2*time.Hour))

	empty := s.cage("GAIOL-002", h.ID, day.Add(time.Minute), domain.StageCreated)
	s.cage("GAIOL-003", other.ID, day, domain.StageCreated)
	s.cage("GAIOL-004", h.ID, day.AddDate(0, 0, 1), domain.StageCreated)

	svc := NewService(store)
	from := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	rows, err := svc.ExpeditionRows(context.Background(), ExpeditionFilter{HospitalID: &h.ID, From: &from, To: &from})
	require.NoError(t, err)

	want := []ExpeditionRow{
		{
			CageID:       empty.ID,
			Code:         "GAIOL-002",
			HospitalName: "Hospital Norte",
			Stage:        domain.StageCreated,
			CreatedAt:    day.Add(time.Minute),
		},
		{
			CageID:          full.ID,
			Code:            "GAIOL-001",
			HospitalName:    "Hospital Norte",
			DepartureWeight: dec("100"),
			ArrivalWeight:   dec("99"),
			DispatchWeight:  dec("58.5"),
			Divergence:      dec("41.5"),
			Stage:           domain.StageReadyForDispatch,
			CreatedAt:       day,
		},
	}
	if diff := cmp.Diff(want, rows, decimalComparer); diff != "" {
		t.Fatalf("expedition rows mismatch (-want +got):\n%s", diff)
	}
}

func TestExpeditionRowsToDateIsInclusive(t *testing.T) {
	store := memory.NewStore()
	s := seeder{t: t, store: store}
	h := s.hospital("H")
	s.cage("GAIOL-001", h.ID, time.Date(2024, 6, 3, 23, 59, 59, 0, time.UTC), domain.StageCreated)
	s.cage("GAIOL-002", h.ID, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), domain.StageCreated)

	to := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	rows, err := NewService(store).ExpeditionRows(context.Background(), ExpeditionFilter{To: &to})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "GAIOL-001", rows[0].Code)
}

func TestDivergenceReport(t *testing.T) {
	store := memory.NewStore()
	s := seeder{t: t, store: store}
	h := s.hospital("Hospital Norte")

	lossy := s.cage("GAIOL-001", h.ID, day, domain.StageReadyForDispatch)
	s.weigh(lossy.ID, domain.WeighingDeparture, "100", day)
	s.weigh(lossy.ID, domain.WeighingDispatch, "85", day.Add(time.Hour))

	steady := s.cage("GAIOL-002", h.ID, day, domain.StageReadyForDispatch)
	s.weigh(steady.ID, domain.WeighingDeparture, "100", day)
	s.weigh(steady.ID, domain.WeighingDispatch, "95", day.Add(time.Hour))

	open := s.cage("GAIOL-003", h.ID, day, domain.StageOutboundTransit)
	s.weigh(open.ID, domain.WeighingDeparture, "100", day)

	svc := NewService(store)
	rows, err := svc.DivergenceReport(context.Background(), 5)
	require.NoError(t, err)

	want := []DivergenceRow{
		{Code: "GAIOL-001", HospitalName: "Hospital Norte", DepartureWeight: *dec("100"), DispatchWeight: *dec("85"), Divergence: *dec("15")},
		{Code: "GAIOL-002", HospitalName: "Hospital Norte", DepartureWeight: *dec("100"), DispatchWeight: *dec("95"), Divergence: *dec("5")},
	}
	if diff := cmp.Diff(want, rows, decimalComparer); diff != "" {
		t.Fatalf("divergence rows mismatch (-want +got):\n%s", diff)
	}

	rows, err = svc.DivergenceReport(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "GAIOL-001", rows[0].Code)

	_, err = svc.DivergenceReport(context.Background(), -1)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProductivity(t *testing.T) {
	store := memory.NewStore()
	s := seeder{t: t, store: store}
	h := s.hospital("H")

	delivered := s.cage("GAIOL-001", h.ID, day, domain.StageDelivered)
	s.weigh(delivered.ID, domain.WeighingDispatch, "10.1234", day)
	washing := s.cage("GAIOL-002", h.ID, day, domain.StageWashing)
	s.weigh(washing.ID, domain.WeighingDispatch, "5.5", day)
	s.cage("GAIOL-003", h.ID, day.AddDate(0, 0, -2), domain.StageDelivered)

	s.step(washing.ID, domain.StepWashing, day, 20)
	s.step(washing.ID, domain.StepWashing, day.Add(time.Hour), 40)
	s.step(washing.ID, domain.StepDrying, day, -1)
	s.step(washing.ID, domain.StepFolding, day.AddDate(0, 0, -2), 15)

	from := day
	summary, err := NewService(store).Productivity(context.Background(), PeriodFilter{From: &from, To: &from})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalCages)
	assert.Equal(t, 1, summary.Delivered)
	assert.Equal(t, "15.623", summary.TotalDispatchedWeight.String())
	assert.Equal(t, map[domain.Stage]int{domain.StageDelivered: 1, domain.StageWashing: 1}, summary.ByStage)
	assert.Equal(t, map[domain.StepKind]int{domain.StepWashing: 2}, summary.CompletedSteps)
	require.Contains(t, summary.MeanDurationMinutes, domain.StepWashing)
	assert.Equal(t, "30", summary.MeanDurationMinutes[domain.StepWashing].String())
}

func TestProductivityRoundsMeanToOneDecimal(t *testing.T) {
	store := memory.NewStore()
	s := seeder{t: t, store: store}
	h := s.hospital("H")
	c := s.cage("GAIOL-001", h.ID, day, domain.StageDrying)
	s.step(c.ID, domain.StepDrying, day, 10)
	s.step(c.ID, domain.StepDrying, day, 10)
	s.step(c.ID, domain.StepDrying, day, 11)

	summary, err := NewService(store).Productivity(context.Background(), PeriodFilter{})
	require.NoError(t, err)
	assert.Equal(t, "10.3", summary.MeanDurationMinutes[domain.StepDrying].String())
}

func sampleRows() []ExpeditionRow {
	return []ExpeditionRow{
		{
			CageID:          uuid.MustParse("7d1d6f4e-5a8b-4b38-9a53-2a6f0f5b3c11"),
			Code:            "GAIOL-001",
			HospitalName:    "Hospital Norte",
			DepartureWeight: dec("100"),
			DispatchWeight:  dec("58.5"),
			Divergence:      dec("41.5"),
			Stage:           domain.StageReadyForDispatch,
			CreatedAt:       time.Date(2024, 6, 3, 9, 5, 0, 0, time.UTC),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, byteOrderMark))

	records, err := csv.NewReader(bytes.NewReader(raw[len(byteOrderMark):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, expeditionHeaders, records[0])
	assert.Equal(t, []string{
		"7d1d6f4e-5a8b-4b38-9a53-2a6f0f5b3c11", "GAIOL-001", "Hospital Norte",
		"100", "", "58.5", "41.5", "PRONTA_EXPEDICAO", "03/06/2024 09:05",
	}, records[1])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{ExpeditionSheet}, f.GetSheetList())
	rows, err := f.GetRows(ExpeditionSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, expeditionHeaders, rows[0])
	assert.Equal(t, "GAIOL-001", rows[1][1])
	assert.Equal(t, "58.5", rows[1][5])
	assert.Equal(t, "03/06/2024 09:05", rows[1][8])
}

func TestWriteXLSXKeepsStoredPrecision(t *testing.T) {
	row := sampleRows()[0]
	row.DepartureWeight = dec("45.123")
	row.ArrivalWeight = dec("9999.999")
	row.DispatchWeight = dec("0.001")
	row.Divergence = dec("-12.35")

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []ExpeditionRow{row}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	for cell, want := range map[string]string{"D2": "45.123", "E2": "9999.999", "F2": "0.001", "G2": "-12.35"} {
		got, err := f.GetCellValue(ExpeditionSheet, cell, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}
}

func TestNumericCell(t *testing.T) {
	assert.Equal(t, "", numericCell(nil, domain.WeightPlaces))
	assert.Equal(t, 45.123, numericCell(dec("45.1234"), domain.WeightPlaces))
	assert.Equal(t, 41.5, numericCell(dec("41.5"), 2))
}
