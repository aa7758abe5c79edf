// Package filedb keeps every collection in a single JSON document on disk,
// rewritten on each mutation.
package filedb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"brandenbed/internal/domain"
)

var _ domain.RecordRepository = (*DB)(nil)

type DB struct {
	mu   sync.RWMutex
	path string
	data map[string][]domain.Record
}

// Open loads the database at path. A missing file is created holding the
// given collections, each empty.
func Open(path string, collections []string) (*DB, error) {
	db := &DB{path: path, data: map[string][]domain.Record{}}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		for _, c := range collections {
			db.data[c] = []domain.Record{}
		}
		if err := db.flush(); err != nil {
			return nil, err
		}
		return db, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for name, msg := range raw {
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		var recs []domain.Record
		if err := dec.Decode(&recs); err != nil {
			log.Warn().Str("key", name).Err(err).Msg("skipping non-collection key")
			continue
		}
		if recs == nil {
			recs = []domain.Record{}
		}
		db.data[name] = recs
	}
	return db, nil
}

func (db *DB) Collections(ctx context.Context) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]string, 0, len(db.data))
	for name := range db.data {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (db *DB) List(ctx context.Context, coll string) ([]domain.Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	recs, ok := db.data[coll]
	if !ok {
		return nil, domain.ErrUnknownCollection
	}
	out := make([]domain.Record, len(recs))
	for i, r := range recs {
		out[i] = maps.Clone(r)
	}
	return out, nil
}

func (db *DB) Get(ctx context.Context, coll, id string) (domain.Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	recs, ok := db.data[coll]
	if !ok {
		return nil, domain.ErrUnknownCollection
	}
	i := indexOf(recs, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	return maps.Clone(recs[i]), nil
}

func (db *DB) Insert(ctx context.Context, coll string, r domain.Record) (domain.Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	recs, ok := db.data[coll]
	if !ok {
		return nil, domain.ErrUnknownCollection
	}

	rec := maps.Clone(r)
	if rec == nil {
		rec = domain.Record{}
	}
	if id, ok := domain.IDOf(rec); ok {
		if indexOf(recs, id) >= 0 {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrConflict, coll, id)
		}
	} else {
		rec["id"] = domain.NextID(ids(recs))
	}

	next := make([]domain.Record, len(recs), len(recs)+1)
	copy(next, recs)
	next = append(next, rec)
	if err := db.commit(coll, next); err != nil {
		return nil, err
	}
	return maps.Clone(rec), nil
}

func (db *DB) Update(ctx context.Context, coll, id string, fn func(domain.Record) (domain.Record, error)) (domain.Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	recs, ok := db.data[coll]
	if !ok {
		return nil, domain.ErrUnknownCollection
	}
	i := indexOf(recs, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}

	updated, err := fn(maps.Clone(recs[i]))
	if err != nil {
		return nil, err
	}
	next := make([]domain.Record, len(recs))
	copy(next, recs)
	next[i] = updated
	if err := db.commit(coll, next); err != nil {
		return nil, err
	}
	return maps.Clone(updated), nil
}

func (db *DB) Delete(ctx context.Context, coll, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	recs, ok := db.data[coll]
	if !ok {
		return domain.ErrUnknownCollection
	}
	i := indexOf(recs, id)
	if i < 0 {
		return domain.ErrNotFound
	}
	next := make([]domain.Record, 0, len(recs)-1)
	next = append(next, recs[:i]...)
	next = append(next, recs[i+1:]...)
	return db.commit(coll, next)
}

// commit swaps in the new collection slice and writes the file, restoring the
// previous slice when the write fails. Callers hold db.mu.
func (db *DB) commit(coll string, next []domain.Record) error {
	prev := db.data[coll]
	db.data[coll] = next
	if err := db.flush(); err != nil {
		db.data[coll] = prev
		return err
	}
	return nil
}

// flush writes through a temp file so readers never see a torn document.
func (db *DB) flush() error {
	b, err := json.MarshalIndent(db.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode db: %w", err)
	}
	dir := filepath.Dir(db.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".db-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write db: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close db: %w", err)
	}
	if err := os.Rename(tmp.Name(), db.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace db: %w", err)
	}
	return nil
}

func indexOf(recs []domain.Record, id string) int {
	for i, r := range recs {
		if rid, ok := domain.IDOf(r); ok && rid == id {
			return i
		}
	}
	return -1
}

func ids(recs []domain.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		if id, ok := domain.IDOf(r); ok {
			out = append(out, id)
		}
	}
	return out
}
