package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"brandenbed/internal/domain"
)

// SeedService pushes fixture records into a running store.
type SeedService struct {
	store domain.StoreClient
}

func NewSeedService(c domain.StoreClient) *SeedService {
	return &SeedService{store: c}
}

type SeedResult struct {
	Collection string
	Created    int
	Skipped    int
}

// SeedCollection creates each record in order. Records whose id already
// exists are skipped so seeding can be re-run; any other error stops the
// collection.
func (s *SeedService) SeedCollection(ctx context.Context, coll string, recs []domain.Record) (SeedResult, error) {
	res := SeedResult{Collection: coll}
	for _, r := range recs {
		var out domain.Record
		err := s.store.Create(ctx, coll, r, &out)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, domain.ErrConflict):
			id, _ := domain.IDOf(r)
			log.Debug().Str("collection", coll).Str("id", id).Msg("seed record exists, skipping")
			res.Skipped++
		default:
			return res, fmt.Errorf("seed %s: %w", coll, err)
		}
	}
	return res, nil
}

// Fixture is a whole-database document: collection name to records.
type Fixture map[string][]domain.Record

// Collections returns the fixture's collection names, sorted.
func (f Fixture) Collections() []string {
	out := make([]string, 0, len(f))
	for c := range f {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ReadFixture parses a db.json style document. Keys whose value is not an
// array of objects are ignored.
func ReadFixture(r io.Reader) (Fixture, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: fixture: %v", domain.ErrInvalid, err)
	}
	out := Fixture{}
	for name, msg := range raw {
		var recs []domain.Record
		d := json.NewDecoder(strings.NewReader(string(msg)))
		d.UseNumber()
		if err := d.Decode(&recs); err != nil {
			log.Warn().Str("key", name).Msg("fixture key is not a collection, skipping")
			continue
		}
		out[name] = recs
	}
	return out, nil
}
