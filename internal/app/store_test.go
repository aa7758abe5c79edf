package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"brandenbed/internal/adapters/observability"
	"brandenbed/internal/app"
	"brandenbed/internal/domain"
	"brandenbed/internal/storage/filedb"
)

// ---- fakes ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dels++
	delete(c.store, key)
	return nil
}

func newService(t *testing.T, cache domain.Cache) *app.StoreService {
	t.Helper()
	db, err := filedb.Open(filepath.Join(t.TempDir(), "db.json"), domain.Collections)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return app.NewStoreService(db, cache, 60)
}

func mustCreate(t *testing.T, s *app.StoreService, coll string, r domain.Record) domain.Record {
	t.Helper()
	out, err := s.Create(context.Background(), coll, r)
	if err != nil {
		t.Fatalf("create %s: %v", coll, err)
	}
	return out
}

// ---- tests ----

func TestCreate_AssignsSequentialIDs(t *testing.T) {
	s := newService(t, nil)

	a := mustCreate(t, s, domain.CollTasks, domain.Record{"title": "a"})
	b := mustCreate(t, s, domain.CollTasks, domain.Record{"title": "b"})

	if id, _ := domain.IDOf(a); id != "1" {
		t.Fatalf("first id: %q", id)
	}
	if id, _ := domain.IDOf(b); id != "2" {
		t.Fatalf("second id: %q", id)
	}
}

func TestCreate_KeepsClientIDAndRejectsDuplicate(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	out := mustCreate(t, s, domain.CollPayments, domain.Record{"id": "TX-1001", "tenant": "Lena"})
	if id, _ := domain.IDOf(out); id != "TX-1001" {
		t.Fatalf("client id not kept: %q", id)
	}
	_, err := s.Create(ctx, domain.CollPayments, domain.Record{"id": "TX-1001", "tenant": "Max"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// string ids present: next generated id is a string too
	gen := mustCreate(t, s, domain.CollPayments, domain.Record{"tenant": "Max"})
	if _, isStr := gen["id"].(string); !isStr {
		t.Fatalf("expected string id, got %T", gen["id"])
	}
}

func TestPatch_MergesAndKeepsID(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()
	mustCreate(t, s, domain.CollProperties, domain.Record{"name": "Loft", "district": "Mitte", "rent": json.Number("1000")})

	out, err := s.Patch(ctx, domain.CollProperties, "1", domain.Record{"rent": json.Number("1100"), "id": "99"})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if id, _ := domain.IDOf(out); id != "1" {
		t.Fatalf("id changed to %q", id)
	}
	if out["name"] != "Loft" || out["rent"] != json.Number("1100") {
		t.Fatalf("unexpected merge: %+v", out)
	}
}

func TestReplace_PathIDWins(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()
	mustCreate(t, s, domain.CollProperties, domain.Record{"name": "Loft", "district": "Mitte"})

	out, err := s.Replace(ctx, domain.CollProperties, "1", domain.Record{"id": 5, "name": "Studio"})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if id, _ := domain.IDOf(out); id != "1" {
		t.Fatalf("id: %q", id)
	}
	if _, ok := out["district"]; ok {
		t.Fatalf("replace should drop missing fields: %+v", out)
	}
}

func TestDelete_RemovesOnlyTarget(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		mustCreate(t, s, domain.CollProperties, domain.Record{"name": n})
	}

	if err := s.Delete(ctx, domain.CollProperties, "3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	recs, err := s.List(ctx, domain.CollProperties, domain.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(recs))
	}
	for _, r := range recs {
		if id, _ := domain.IDOf(r); id == "3" {
			t.Fatalf("record 3 still present")
		}
	}
	if err := s.Delete(ctx, domain.CollProperties, "3"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
}

func TestUnknownCollection(t *testing.T) {
	s := newService(t, nil)
	_, err := s.List(context.Background(), "landlords", domain.Filter{})
	if !errors.Is(err, domain.ErrUnknownCollection) {
		t.Fatalf("expected unknown collection, got %v", err)
	}
}

func TestList_FilterAndSearch(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()
	mustCreate(t, s, domain.CollProperties, domain.Record{"name": "Loft", "district": "Mitte"})
	mustCreate(t, s, domain.CollProperties, domain.Record{"name": "Garden Flat", "district": "Kreuzberg"})
	mustCreate(t, s, domain.CollProperties, domain.Record{"name": "Attic", "district": "Mitte"})

	got, _ := s.List(ctx, domain.CollProperties, domain.Filter{Fields: map[string]string{"district": "Mitte"}})
	if len(got) != 2 {
		t.Fatalf("district filter: got %d", len(got))
	}
	got, _ = s.List(ctx, domain.CollProperties, domain.Filter{Q: "garden"})
	if len(got) != 1 || got[0]["name"] != "Garden Flat" {
		t.Fatalf("search: got %+v", got)
	}
	got, _ = s.List(ctx, domain.CollProperties, domain.Filter{Fields: map[string]string{"id": "3"}})
	if len(got) != 1 || got[0]["name"] != "Attic" {
		t.Fatalf("id filter: got %+v", got)
	}
}

func TestList_CacheMissThenHitThenInvalidate(t *testing.T) {
	cache := &fakeCache{}
	s := newService(t, cache)
	ctx := context.Background()
	mustCreate(t, s, domain.CollTasks, domain.Record{"title": "a"})

	if _, err := s.List(ctx, domain.CollTasks, domain.Filter{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, ok := cache.store["collection:tasks"]; !ok {
		t.Fatalf("expected listing to be cached")
	}

	// a write drops the cached listing
	mustCreate(t, s, domain.CollTasks, domain.Record{"title": "b"})
	if _, ok := cache.store["collection:tasks"]; ok {
		t.Fatalf("expected cache entry to be invalidated")
	}
	recs, _ := s.List(ctx, domain.CollTasks, domain.Filter{})
	if len(recs) != 2 {
		t.Fatalf("expected fresh listing of 2, got %d", len(recs))
	}
}

func TestSnapshot(t *testing.T) {
	s := newService(t, nil)
	mustCreate(t, s, domain.CollQueries, domain.Record{"tenant": "Lena", "issue": "Leak", "status": "Pending"})

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != len(domain.Collections) {
		t.Fatalf("expected %d collections, got %d", len(domain.Collections), len(snap))
	}
	if len(snap[domain.CollQueries]) != 1 {
		t.Fatalf("queries: %+v", snap[domain.CollQueries])
	}
}

// pausingRepo holds List after it has read the collection until released.
type pausingRepo struct {
	domain.RecordRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (r *pausingRepo) List(ctx context.Context, coll string) ([]domain.Record, error) {
	recs, err := r.RecordRepository.List(ctx, coll)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return recs, err
}

func TestList_ReadRacingWriteIsNotCached(t *testing.T) {
	db, err := filedb.Open(filepath.Join(t.TempDir(), "db.json"), domain.Collections)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	repo := &pausingRepo{RecordRepository: db, read: make(chan struct{}), release: make(chan struct{})}
	s := app.NewStoreService(repo, &fakeCache{}, 60)
	ctx := context.Background()

	done := make(chan []domain.Record)
	go func() {
		recs, _ := s.List(ctx, domain.CollTasks, domain.Filter{})
		done <- recs
	}()

	<-repo.read
	mustCreate(t, s, domain.CollTasks, domain.Record{"title": "written meanwhile"})
	close(repo.release)
	if stale := <-done; len(stale) != 0 {
		t.Fatalf("the racing read started before the write: %v", stale)
	}

	recs, err := s.List(ctx, domain.CollTasks, domain.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records after create, want 1", len(recs))
	}
}

func TestWrites_UnknownCollectionSharesOneLabel(t *testing.T) {
	s := newService(t, nil)
	reg := observability.InitRegistry()

	for _, coll := range []string{"landlords", "owners-x1", "owners-x2"} {
		if _, err := s.Create(context.Background(), coll, domain.Record{"name": "x"}); !errors.Is(err, domain.ErrUnknownCollection) {
			t.Fatalf("create %s: %v", coll, err)
		}
	}
	mustCreate(t, s, domain.CollTasks, domain.Record{"title": "a"})

	rr := httptest.NewRecorder()
	observability.MetricsHandler(reg).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	if !strings.Contains(out, `brandenbed_store_writes_total{collection="unknown",op="create",result="error"}`) {
		t.Fatalf("missing unknown series:\n%s", out)
	}
	if !strings.Contains(out, `collection="tasks",op="create",result="ok"`) {
		t.Fatalf("missing tasks series")
	}
	for _, raw := range []string{"landlords", "owners-x1", "owners-x2"} {
		if strings.Contains(out, `collection="`+raw+`"`) {
			t.Fatalf("path segment %q leaked into labels", raw)
		}
	}
}
