// Package report aggregates cages, weighings and process steps into the
// expedition, divergence and productivity reports.
package report

import (
	"context"
	"time"

	"github.com/rpattn/cagetrack/internal/divergence"
	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/hospitalloader"
	"github.com/rpattn/cagetrack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpeditionFilter narrows the expedition report. From and To are calendar days, both inclusive.
type ExpeditionFilter struct {
	HospitalID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// PeriodFilter bounds the productivity report by calendar day, both inclusive.
type PeriodFilter struct {
	From *time.Time
	To   *time.Time
}

// ExpeditionRow is one cage in the expedition export.
type ExpeditionRow struct {
	CageID          uuid.UUID        `json:"cageId"`
	Code            string           `json:"code"`
	HospitalName    string           `json:"hospital"`
	DepartureWeight *decimal.Decimal `json:"departureWeight"`
	ArrivalWeight   *decimal.Decimal `json:"arrivalWeight"`
	DispatchWeight  *decimal.Decimal `json:"dispatchWeight"`
	Divergence      *decimal.Decimal `json:"divergencePercent"`
	Stage           domain.Stage     `json:"stage"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// DivergenceRow is a cage whose dispatch weight strayed from its departure weight.
type DivergenceRow struct {
	Code            string          `json:"code"`
	HospitalName    string          `json:"hospital"`
	DepartureWeight decimal.Decimal `json:"departureWeight"`
	DispatchWeight  decimal.Decimal `json:"dispatchWeight"`
	Divergence      decimal.Decimal `json:"divergencePercent"`
}

// Productivity summarizes throughput for a period.
type Productivity struct {
	TotalCages            int                                 `json:"totalCages"`
	Delivered             int                                 `json:"delivered"`
	TotalDispatchedWeight decimal.Decimal                     `json:"totalDispatchedWeightKg"`
	ByStage               map[domain.Stage]int                `json:"byStage"`
	CompletedSteps        map[domain.StepKind]int             `json:"completedStepsByKind"`
	MeanDurationMinutes   map[domain.StepKind]decimal.Decimal `json:"meanDurationMinutesByKind"`
}

// Service builds reports from the store.
type Service struct {
	store repository.Store
}

// NewService creates a report service.
func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

// DayStart is 00:00:00 UTC of t's calendar day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayEnd is 23:59:59 UTC of t's calendar day.
func DayEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}

func bounds(from, to *time.Time) (*time.Time, *time.Time) {
	var start, end *time.Time
	if from != nil {
		v := DayStart(*from)
		start = &v
	}
	if to != nil {
		v := DayEnd(*to)
		end = &v
	}
	return start, end
}

type cageWeighings struct {
	cages     []domain.Cage
	weighings map[uuid.UUID][]domain.Weighing
	hospitals map[uuid.UUID]string
}

func (s *Service) loadCages(ctx context.Context, filter domain.CageFilter) (cageWeighings, error) {
	repos := s.store.Repositories()

	cages, err := repos.Cages.List(ctx, filter)
	if err != nil {
		return cageWeighings{}, err
	}

	ids := make([]uuid.UUID, len(cages))
	hospitalIDs := make([]uuid.UUID, len(cages))
	for i, c := range cages {
		ids[i] = c.ID
		hospitalIDs[i] = c.HospitalID
	}

	weighings, err := repos.Weighings.ListByCages(ctx, ids)
	if err != nil {
		return cageWeighings{}, err
	}

	loader := hospitalloader.FromContext(ctx)
	if loader == nil {
		loader = hospitalloader.New(repos.Hospitals)
	}
	names, err := loader.Names(ctx, hospitalIDs)
	if err != nil {
		return cageWeighings{}, err
	}

	return cageWeighings{cages: cages, weighings: weighings, hospitals: names}, nil
}

func latestWeight(weighings []domain.Weighing, kind domain.WeighingKind) *decimal.Decimal {
	w, ok := divergence.Latest(weighings, kind)
	if !ok {
		return nil
	}
	return &w.Weight
}

// ExpeditionRows lists every cage created in the filter window with its checkpoint weights.
func (s *Service) ExpeditionRows(ctx context.Context, filter ExpeditionFilter) ([]ExpeditionRow, error) {
	from, to := bounds(filter.From, filter.To)
	data, err := s.loadCages(ctx, domain.CageFilter{HospitalID: filter.HospitalID, CreatedFrom: from, CreatedTo: to})
	if err != nil {
		return nil, err
	}

	rows := make([]ExpeditionRow, 0, len(data.cages))
	for _, c := range data.cages {
		ws := data.weighings[c.ID]
		rows = append(rows, ExpeditionRow{
			CageID:          c.ID,
			Code:            c.Code,
			HospitalName:    data.hospitals[c.HospitalID],
			DepartureWeight: latestWeight(ws, domain.WeighingDeparture),
			ArrivalWeight:   latestWeight(ws, domain.WeighingArrival),
			DispatchWeight:  latestWeight(ws, domain.WeighingDispatch),
			Divergence:      divergence.Percent(ws),
			Stage:           c.Stage,
			CreatedAt:       c.CreatedAt,
		})
	}
	return rows, nil
}

// DivergenceReport lists cages whose unsigned departure/dispatch divergence is at least threshold.
func (s *Service) DivergenceReport(ctx context.Context, threshold float64) ([]DivergenceRow, error) {
	if threshold < 0 {
		return nil, domain.InvalidInputf("threshold must be non-negative, got %v", threshold)
	}
	data, err := s.loadCages(ctx, domain.CageFilter{})
	if err != nil {
		return nil, err
	}

	limit := decimal.NewFromFloat(threshold)
	rows := []DivergenceRow{}
	for _, c := range data.cages {
		ws := data.weighings[c.ID]
		div := divergence.Percent(ws)
		if div == nil || div.LessThan(limit) {
			continue
		}
		departure, _ := divergence.Latest(ws, domain.WeighingDeparture)
		dispatch, _ := divergence.Latest(ws, domain.WeighingDispatch)
		rows = append(rows, DivergenceRow{
			Code:            c.Code,
			HospitalName:    data.hospitals[c.HospitalID],
			DepartureWeight: departure.Weight,
			DispatchWeight:  dispatch.Weight,
			Divergence:      *div,
		})
	}
	return rows, nil
}

// Productivity counts cages created and steps started in the period.
// Only completed steps contribute to the per-kind counts and mean durations.
func (s *Service) Productivity(ctx context.Context, filter PeriodFilter) (Productivity, error) {
	from, to := bounds(filter.From, filter.To)
	repos := s.store.Repositories()

	cages, err := repos.Cages.List(ctx, domain.CageFilter{CreatedFrom: from, CreatedTo: to})
	if err != nil {
		return Productivity{}, err
	}
	ids := make([]uuid.UUID, len(cages))
	for i, c := range cages {
		ids[i] = c.ID
	}
	weighings, err := repos.Weighings.ListByCages(ctx, ids)
	if err != nil {
		return Productivity{}, err
	}
	steps, err := repos.ProcessSteps.List(ctx, domain.ProcessStepFilter{StartedFrom: from, StartedTo: to})
	if err != nil {
		return Productivity{}, err
	}

	out := Productivity{
		TotalCages:          len(cages),
		ByStage:             map[domain.Stage]int{},
		CompletedSteps:      map[domain.StepKind]int{},
		MeanDurationMinutes: map[domain.StepKind]decimal.Decimal{},
	}

	total := decimal.Zero
	for _, c := range cages {
		out.ByStage[c.Stage]++
		if w := latestWeight(weighings[c.ID], domain.WeighingDispatch); w != nil {
			total = total.Add(*w)
		}
	}
	out.Delivered = out.ByStage[domain.StageDelivered]
	out.TotalDispatchedWeight = total.Round(domain.WeightPlaces)

	sums := map[domain.StepKind]time.Duration{}
	for _, step := range steps {
		d, ok := step.Duration()
		if !ok {
			continue
		}
		sums[step.Kind] += d
		out.CompletedSteps[step.Kind]++
	}
	minute := decimal.NewFromInt(int64(time.Minute))
	for kind, sum := range sums {
		count := decimal.NewFromInt(int64(out.CompletedSteps[kind]))
		out.MeanDurationMinutes[kind] = decimal.NewFromInt(int64(sum)).Div(minute).Div(count).Round(1)
	}
	return out, nil
}
