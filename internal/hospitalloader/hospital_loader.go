package hospitalloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

type ctxKey string

const loaderKey ctxKey = "hospitalLoader"

// HospitalLoader batches and caches hospital lookups for the lifetime of one request.
type HospitalLoader struct {
	Loader *dataloader.Loader
}

// New creates a loader backed by repo.GetByIDs.
func New(repo repository.HospitalRepository) *HospitalLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				results := make([]*dataloader.Result, len(keys))
				for j := range results {
					results[j] = &dataloader.Result{Error: fmt.Errorf("invalid UUID: %w", err)}
				}
				return results
			}
			ids[i] = id
		}

		hospitals, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byID := make(map[uuid.UUID]domain.Hospital, len(hospitals))
		for _, h := range hospitals {
			byID[h.ID] = h
		}

		// results must follow key order
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if h, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: h}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))
	return &HospitalLoader{Loader: loader}
}

// Load fetches one hospital. ok is false when it does not exist.
func (l *HospitalLoader) Load(ctx context.Context, id uuid.UUID) (domain.Hospital, bool, error) {
	data, err := l.Loader.Load(ctx, dataloader.StringKey(id.String()))()
	if err != nil {
		return domain.Hospital{}, false, err
	}
	h, ok := data.(domain.Hospital)
	return h, ok, nil
}

// Names resolves the names of ids in a single batch. Unknown hospitals are absent from the map.
func (l *HospitalLoader) Names(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	seen := make(map[uuid.UUID]bool, len(ids))
	keys := make(dataloader.Keys, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, dataloader.StringKey(id.String()))
	}

	values, errs := l.Loader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to load hospitals: %w", err)
		}
	}
	for _, v := range values {
		if h, ok := v.(domain.Hospital); ok {
			names[h.ID] = h.Name
		}
	}
	return names, nil
}

// WithLoader stores loader in ctx.
func WithLoader(ctx context.Context, loader *HospitalLoader) context.Context {
	return context.WithValue(ctx, loaderKey, loader)
}

// FromContext retrieves the request's loader, if any.
func FromContext(ctx context.Context) *HospitalLoader {
	if l, ok := ctx.Value(loaderKey).(*HospitalLoader); ok {
		return l
	}
	return nil
}
