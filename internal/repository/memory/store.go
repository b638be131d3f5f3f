// Package memory provides an in-process implementation of repository.Store.
// Transactions run against a cloned copy of the state that replaces the
// committed state only when the callback succeeds.
package memory

import (
	"context"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	hospitals     map[uuid.UUID]domain.Hospital
	cages         map[uuid.UUID]domain.Cage
	weighings     []domain.Weighing
	weighingIdx   map[uuid.UUID]int
	transports    []domain.Transport
	transportIdx  map[uuid.UUID]int
	processSteps  []domain.ProcessStep
	processStepIx map[uuid.UUID]int
}

func newState() state {
	return state{
		hospitals:     map[uuid.UUID]domain.Hospital{},
		cages:         map[uuid.UUID]domain.Cage{},
		weighingIdx:   map[uuid.UUID]int{},
		transportIdx:  map[uuid.UUID]int{},
		processStepIx: map[uuid.UUID]int{},
	}
}

func (s state) clone() state {
	return state{
		hospitals:     maps.Clone(s.hospitals),
		cages:         maps.Clone(s.cages),
		weighings:     slices.Clone(s.weighings),
		weighingIdx:   maps.Clone(s.weighingIdx),
		transports:    slices.Clone(s.transports),
		transportIdx:  maps.Clone(s.transportIdx),
		processSteps:  slices.Clone(s.processSteps),
		processStepIx: maps.Clone(s.processStepIx),
	}
}

// accessor hides whether operations lock the shared store or run inside a transaction.
type accessor interface {
	read(fn func(*state) error) error
	write(fn func(*state) error) error
}

// Store is a repository.Store kept entirely in memory.
type Store struct {
	mu    sync.RWMutex
	state state
}

var _ repository.Store = (*Store)(nil)

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) read(fn func(*state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.state)
}

// write applies fn to a copy so a failed autocommit operation leaves no trace.
func (s *Store) write(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// Repositories returns autocommit repositories over the shared state.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(s)
}

// WithTx serialises transactions behind the store mutex.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}
	if err := fn(newRepositories(tx)); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

type transaction struct {
	state state
}

func (tx *transaction) read(fn func(*state) error) error  { return fn(&tx.state) }
func (tx *transaction) write(fn func(*state) error) error { return fn(&tx.state) }

func newRepositories(a accessor) repository.Repositories {
	return repository.Repositories{
		Hospitals:    &hospitalRepository{a: a},
		Cages:        &cageRepository{a: a},
		Weighings:    &weighingRepository{a: a},
		Transports:   &transportRepository{a: a},
		ProcessSteps: &processStepRepository{a: a},
	}
}

func page[T any](items []T, limit, offset int) []T {
	start, end := domain.Page(len(items), limit, offset)
	return items[start:end]
}

// hospitals

type hospitalRepository struct{ a accessor }

func (r *hospitalRepository) Create(_ context.Context, h domain.Hospital) (domain.Hospital, error) {
	err := r.a.write(func(s *state) error {
		if _, exists := s.hospitals[h.ID]; exists {
			return domain.Conflictf("hospital %s already exists", h.ID)
		}
		if err := s.checkTaxID(h); err != nil {
			return err
		}
		s.hospitals[h.ID] = h
		return nil
	})
	if err != nil {
		return domain.Hospital{}, err
	}
	return h, nil
}

func (s *state) checkTaxID(h domain.Hospital) error {
	if h.TaxID == nil {
		return nil
	}
	for _, other := range s.hospitals {
		if other.ID != h.ID && other.TaxID != nil && *other.TaxID == *h.TaxID {
			return domain.Conflictf("hospital tax id %s already registered", *h.TaxID)
		}
	}
	return nil
}

func (r *hospitalRepository) GetByID(_ context.Context, id uuid.UUID) (domain.Hospital, error) {
	var out domain.Hospital
	err := r.a.read(func(s *state) error {
		h, ok := s.hospitals[id]
		if !ok {
			return domain.NotFoundf("hospital %s not found", id)
		}
		out = h
		return nil
	})
	return out, err
}

func (r *hospitalRepository) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Hospital, error) {
	out := make([]domain.Hospital, 0, len(ids))
	err := r.a.read(func(s *state) error {
		for _, id := range ids {
			if h, ok := s.hospitals[id]; ok {
				out = append(out, h)
			}
		}
		return nil
	})
	return out, err
}

func (r *hospitalRepository) List(_ context.Context, active *bool, limit int, offset int) ([]domain.Hospital, error) {
	var out []domain.Hospital
	err := r.a.read(func(s *state) error {
		for _, h := range s.hospitals {
			if active != nil && h.Active != *active {
				continue
			}
			out = append(out, h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b domain.Hospital) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return append([]domain.Hospital{}, page(out, limit, offset)...), nil
}

func (r *hospitalRepository) Update(_ context.Context, h domain.Hospital) (domain.Hospital, error) {
	err := r.a.write(func(s *state) error {
		if _, ok := s.hospitals[h.ID]; !ok {
			return domain.NotFoundf("hospital %s not found", h.ID)
		}
		if err := s.checkTaxID(h); err != nil {
			return err
		}
		s.hospitals[h.ID] = h
		return nil
	})
	if err != nil {
		return domain.Hospital{}, err
	}
	return h, nil
}

// cages

type cageRepository struct{ a accessor }

func (r *cageRepository) Create(_ context.Context, c domain.Cage) (domain.Cage, error) {
	err := r.a.write(func(s *state) error {
		if _, ok := s.hospitals[c.HospitalID]; !ok {
			return domain.NotFoundf("hospital %s not found", c.HospitalID)
		}
		if _, exists := s.cages[c.ID]; exists {
			return domain.Conflictf("cage %s already exists", c.ID)
		}
		for _, other := range s.cages {
			if other.Code == c.Code {
				return domain.Conflictf("cage code %s already in use", c.Code)
			}
		}
		s.cages[c.ID] = c
		return nil
	})
	if err != nil {
		return domain.Cage{}, err
	}
	return c, nil
}

func (r *cageRepository) GetByID(_ context.Context, id uuid.UUID) (domain.Cage, error) {
	var out domain.Cage
	err := r.a.read(func(s *state) error {
		c, ok := s.cages[id]
		if !ok {
			return domain.NotFoundf("cage %s not found", id)
		}
		out = c
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock: transactions already hold the store mutex.
func (r *cageRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Cage, error) {
	return r.GetByID(ctx, id)
}

func (r *cageRepository) GetByCode(_ context.Context, code string) (domain.Cage, error) {
	var out domain.Cage
	err := r.a.read(func(s *state) error {
		for _, c := range s.cages {
			if c.Code == code {
				out = c
				return nil
			}
		}
		return domain.NotFoundf("cage %q not found", code)
	})
	return out, err
}

func (r *cageRepository) List(_ context.Context, filter domain.CageFilter) ([]domain.Cage, error) {
	var out []domain.Cage
	err := r.a.read(func(s *state) error {
		for _, c := range s.cages {
			if filter.Stage != nil && c.Stage != *filter.Stage {
				continue
			}
			if filter.HospitalID != nil && c.HospitalID != *filter.HospitalID {
				continue
			}
			if filter.CreatedFrom != nil && c.CreatedAt.Before(*filter.CreatedFrom) {
				continue
			}
			if filter.CreatedTo != nil && c.CreatedAt.After(*filter.CreatedTo) {
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b domain.Cage) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return append([]domain.Cage{}, page(out, filter.Limit, filter.Offset)...), nil
}

func (r *cageRepository) LatestCodeWithPrefix(_ context.Context, prefix string) (string, error) {
	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `-[0-9]+$`)
	var latest string
	err := r.a.read(func(s *state) error {
		for _, c := range s.cages {
			if !pattern.MatchString(c.Code) {
				continue
			}
			if len(c.Code) > len(latest) || (len(c.Code) == len(latest) && c.Code > latest) {
				latest = c.Code
			}
		}
		return nil
	})
	return latest, err
}

func (r *cageRepository) Update(_ context.Context, c domain.Cage) (domain.Cage, error) {
	var out domain.Cage
	err := r.a.write(func(s *state) error {
		current, ok := s.cages[c.ID]
		if !ok {
			return domain.NotFoundf("cage %s not found", c.ID)
		}
		if _, ok := s.hospitals[c.HospitalID]; !ok {
			return domain.NotFoundf("hospital %s not found", c.HospitalID)
		}
		current.HospitalID = c.HospitalID
		current.QRReference = c.QRReference
		current.Notes = c.Notes
		s.cages[c.ID] = current
		out = current
		return nil
	})
	return out, err
}

func (r *cageRepository) UpdateStage(_ context.Context, id uuid.UUID, stage domain.Stage) error {
	return r.a.write(func(s *state) error {
		c, ok := s.cages[id]
		if !ok {
			return domain.NotFoundf("cage %s not found", id)
		}
		s.cages[id] = c.WithStage(stage)
		return nil
	})
}

// weighings

type weighingRepository struct{ a accessor }

func (r *weighingRepository) Create(_ context.Context, w domain.Weighing) (domain.Weighing, error) {
	err := r.a.write(func(s *state) error {
		if _, ok := s.cages[w.CageID]; !ok {
			return domain.NotFoundf("cage %s not found", w.CageID)
		}
		if _, exists := s.weighingIdx[w.ID]; exists {
			return domain.Conflictf("weighing %s already exists", w.ID)
		}
		s.weighingIdx[w.ID] = len(s.weighings)
		s.weighings = append(s.weighings, w)
		return nil
	})
	if err != nil {
		return domain.Weighing{}, err
	}
	return w, nil
}

func (r *weighingRepository) GetByID(_ context.Context, id uuid.UUID) (domain.Weighing, error) {
	var out domain.Weighing
	err := r.a.read(func(s *state) error {
		i, ok := s.weighingIdx[id]
		if !ok {
			return domain.NotFoundf("weighing %s not found", id)
		}
		out = s.weighings[i]
		return nil
	})
	return out, err
}

func (r *weighingRepository) ListByCage(ctx context.Context, cageID uuid.UUID) ([]domain.Weighing, error) {
	return r.List(ctx, domain.WeighingFilter{CageID: &cageID})
}

func (r *weighingRepository) ListByCages(ctx context.Context, cageIDs []uuid.UUID) (map[uuid.UUID][]domain.Weighing, error) {
	wanted := make(map[uuid.UUID]bool, len(cageIDs))
	for _, id := range cageIDs {
		wanted[id] = true
	}
	all, err := r.List(ctx, domain.WeighingFilter{})
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]domain.Weighing, len(cageIDs))
	for _, w := range all {
		if wanted[w.CageID] {
			out[w.CageID] = append(out[w.CageID], w)
		}
	}
	return out, nil
}

func (r *weighingRepository) List(_ context.Context, filter domain.WeighingFilter) ([]domain.Weighing, error) {
	var out []domain.Weighing
	err := r.a.read(func(s *state) error {
		for _, w := range s.weighings {
			if filter.CageID != nil && w.CageID != *filter.CageID {
				continue
			}
			if filter.Kind != nil && w.Kind != *filter.Kind {
				continue
			}
			out = append(out, w)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b domain.Weighing) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return append([]domain.Weighing{}, page(out, filter.Limit, filter.Offset)...), nil
}

// transports

type transportRepository struct{ a accessor }

func (r *transportRepository) Create(_ context.Context, t domain.Transport) (domain.Transport, error) {
	err := r.a.write(func(s *state) error {
		if _, ok := s.cages[t.CageID]; !ok {
			return domain.NotFoundf("cage %s not found", t.CageID)
		}
		if _, exists := s.transportIdx[t.ID]; exists {
			return domain.Conflictf("transport %s already exists", t.ID)
		}
		s.transportIdx[t.ID] = len(s.transports)
		s.transports = append(s.transports, t)
		return nil
	})
	if err != nil {
		return domain.Transport{}, err
	}
	return t, nil
}

func (r *transportRepository) GetByID(_ context.Context, id uuid.UUID) (domain.Transport, error) {
	var out domain.Transport
	err := r.a.read(func(s *state) error {
		i, ok := s.transportIdx[id]
		if !ok {
			return domain.NotFoundf("transport %s not found", id)
		}
		out = s.transports[i]
		return nil
	})
	return out, err
}

func (r *transportRepository) Update(_ context.Context, t domain.Transport) (domain.Transport, error) {
	var out domain.Transport
	err := r.a.write(func(s *state) error {
		i, ok := s.transportIdx[t.ID]
		if !ok {
			return domain.NotFoundf("transport %s not found", t.ID)
		}
		current := s.transports[i]
		current.Driver = t.Driver
		current.Vehicle = t.Vehicle
		current.ArrivedAt = t.ArrivedAt
		current.Status = t.Status
		s.transports[i] = current
		out = current
		return nil
	})
	return out, err
}

func (r *transportRepository) List(_ context.Context, filter domain.TransportFilter) ([]domain.Transport, error) {
	var out []domain.Transport
	err := r.a.read(func(s *state) error {
		for _, t := range s.transports {
			if filter.CageID != nil && t.CageID != *filter.CageID {
				continue
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b domain.Transport) int {
		return b.DepartedAt.Compare(a.DepartedAt)
	})
	return append([]domain.Transport{}, page(out, filter.Limit, filter.Offset)...), nil
}

// process steps

type processStepRepository struct{ a accessor }

func (r *processStepRepository) Create(_ context.Context, p domain.ProcessStep) (domain.ProcessStep, error) {
	err := r.a.write(func(s *state) error {
		if _, ok := s.cages[p.CageID]; !ok {
			return domain.NotFoundf("cage %s not found", p.CageID)
		}
		if _, exists := s.processStepIx[p.ID]; exists {
			return domain.Conflictf("process step %s already exists", p.ID)
		}
		s.processStepIx[p.ID] = len(s.processSteps)
		s.processSteps = append(s.processSteps, p)
		return nil
	})
	if err != nil {
		return domain.ProcessStep{}, err
	}
	return p, nil
}

func (r *processStepRepository) GetByID(_ context.Context, id uuid.UUID) (domain.ProcessStep, error) {
	var out domain.ProcessStep
	err := r.a.read(func(s *state) error {
		i, ok := s.processStepIx[id]
		if !ok {
			return domain.NotFoundf("process step %s not found", id)
		}
		out = s.processSteps[i]
		return nil
	})
	return out, err
}

func (r *processStepRepository) Update(_ context.Context, p domain.ProcessStep) (domain.ProcessStep, error) {
	var out domain.ProcessStep
	err := r.a.write(func(s *state) error {
		i, ok := s.processStepIx[p.ID]
		if !ok {
			return domain.NotFoundf("process step %s not found", p.ID)
		}
		current := s.processSteps[i]
		current.EndedAt = p.EndedAt
		current.MachineID = p.MachineID
		current.Notes = p.Notes
		s.processSteps[i] = current
		out = current
		return nil
	})
	return out, err
}

func (r *processStepRepository) List(_ context.Context, filter domain.ProcessStepFilter) ([]domain.ProcessStep, error) {
	var out []domain.ProcessStep
	err := r.a.read(func(s *state) error {
		for _, p := range s.processSteps {
			if filter.CageID != nil && p.CageID != *filter.CageID {
				continue
			}
			if filter.StartedFrom != nil && p.StartedAt.Before(*filter.StartedFrom) {
				continue
			}
			if filter.StartedTo != nil && p.StartedAt.After(*filter.StartedTo) {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b domain.ProcessStep) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return append([]domain.ProcessStep{}, page(out, filter.Limit, filter.Offset)...), nil
}
