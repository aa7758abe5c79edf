package app

import (
	"context"
	"errors"
	"sync"

	"brandenbed/internal/adapters/observability"
	"brandenbed/internal/domain"
)

// StoreService is the generic record store: collection CRUD with no domain
// rules. Full collection listings are cached when a cache is configured.
type StoreService struct {
	repo     domain.RecordRepository
	cache    domain.Cache
	cacheTTL int

	// gen counts invalidations per collection. A listing read before a
	// write must not be cached after that write's invalidation.
	genMu sync.Mutex
	gen   map[string]uint64
}

// NewStoreService wires the service. cache may be nil.
func NewStoreService(r domain.RecordRepository, c domain.Cache, ttlSec int) *StoreService {
	return &StoreService{repo: r, cache: c, cacheTTL: ttlSec, gen: map[string]uint64{}}
}

func (s *StoreService) List(ctx context.Context, coll string, f domain.Filter) ([]domain.Record, error) {
	recs, err := s.list(ctx, coll)
	if err != nil {
		return nil, err
	}
	if f.Empty() {
		return recs, nil
	}
	out := make([]domain.Record, 0, len(recs))
	for _, r := range recs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *StoreService) list(ctx context.Context, coll string) ([]domain.Record, error) {
	key := cacheKey(coll)
	if s.cache != nil {
		var cached []domain.Record
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}
	s.genMu.Lock()
	gen := s.gen[coll]
	s.genMu.Unlock()

	recs, err := s.repo.List(ctx, coll)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		// Held across Set so a concurrent invalidate either makes us skip
		// or deletes after we wrote.
		s.genMu.Lock()
		if s.gen[coll] == gen {
			_ = s.cache.Set(ctx, key, recs, s.cacheTTL)
		}
		s.genMu.Unlock()
	}
	return recs, nil
}

func (s *StoreService) Get(ctx context.Context, coll, id string) (domain.Record, error) {
	return s.repo.Get(ctx, coll, id)
}

func (s *StoreService) Create(ctx context.Context, coll string, r domain.Record) (domain.Record, error) {
	if r == nil {
		return nil, domain.ErrInvalid
	}
	out, err := s.repo.Insert(ctx, coll, r)
	observeWrite(coll, "create", err)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, coll)
	return out, nil
}

// Replace swaps the whole record; the id in the path wins over the body.
func (s *StoreService) Replace(ctx context.Context, coll, id string, r domain.Record) (domain.Record, error) {
	if r == nil {
		return nil, domain.ErrInvalid
	}
	out, err := s.repo.Update(ctx, coll, id, func(cur domain.Record) (domain.Record, error) {
		return domain.WithID(r, id), nil
	})
	observeWrite(coll, "replace", err)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, coll)
	return out, nil
}

// Patch merges the given fields into the stored record.
func (s *StoreService) Patch(ctx context.Context, coll, id string, patch domain.Record) (domain.Record, error) {
	if patch == nil {
		return nil, domain.ErrInvalid
	}
	out, err := s.repo.Update(ctx, coll, id, func(cur domain.Record) (domain.Record, error) {
		return domain.Merge(cur, patch), nil
	})
	observeWrite(coll, "patch", err)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, coll)
	return out, nil
}

func (s *StoreService) Delete(ctx context.Context, coll, id string) error {
	err := s.repo.Delete(ctx, coll, id)
	observeWrite(coll, "delete", err)
	if err != nil {
		return err
	}
	s.invalidate(ctx, coll)
	return nil
}

// Snapshot returns every collection keyed by name.
func (s *StoreService) Snapshot(ctx context.Context) (map[string][]domain.Record, error) {
	names, err := s.repo.Collections(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]domain.Record, len(names))
	for _, n := range names {
		recs, err := s.list(ctx, n)
		if err != nil {
			// collection dropped between the two calls
			if errors.Is(err, domain.ErrUnknownCollection) {
				continue
			}
			return nil, err
		}
		out[n] = recs
	}
	return out, nil
}

func (s *StoreService) invalidate(ctx context.Context, coll string) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	s.gen[coll]++
	s.genMu.Unlock()
	_ = s.cache.Del(ctx, cacheKey(coll))
}

// observeWrite records a mutation. Collections that do not exist share one
// label so arbitrary paths cannot mint new series.
func observeWrite(coll, op string, err error) {
	if errors.Is(err, domain.ErrUnknownCollection) {
		coll = "unknown"
	}
	observability.ObserveWrite(coll, op, err)
}

func cacheKey(coll string) string { return "collection:" + coll }
