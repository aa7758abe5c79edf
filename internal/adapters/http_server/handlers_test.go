package httpserver_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	server "brandenbed/internal/adapters/http_server"
	"brandenbed/internal/app"
	"brandenbed/internal/domain"
	"brandenbed/internal/storage/filedb"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := filedb.Open(filepath.Join(t.TempDir(), "db.json"), domain.Collections)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	srv := server.New()
	srv.MountHandlers(&server.Handlers{S: app.NewStoreService(db, nil, 0)})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string, hdr ...string) (*http.Response, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func TestPreflight_ReturnsEmpty200WithCORS(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, http.MethodOptions, ts.URL+"/properties/3", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if body != "" {
		t.Fatalf("expected empty body, got %q", body)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin: %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PATCH") {
		t.Fatalf("allow-methods: %q", got)
	}
}

func TestCRUDLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/tasks", `{"title":"Fix boiler","done":false}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", resp.StatusCode, body)
	}
	var created map[string]any
	_ = json.Unmarshal([]byte(body), &created)
	if created["id"] != float64(1) {
		t.Fatalf("expected id 1, got %v", created["id"])
	}

	resp, body = do(t, http.MethodPatch, ts.URL+"/tasks/1", `{"done":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(body, `"done":true`) || !strings.Contains(body, `"title":"Fix boiler"`) {
		t.Fatalf("patch should return merged record: %s", body)
	}

	resp, body = do(t, http.MethodPut, ts.URL+"/tasks/1", `{"title":"Replace boiler"}`)
	if resp.StatusCode != http.StatusOK || strings.Contains(body, `"done"`) {
		t.Fatalf("put status %d: %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/tasks/1", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Replace boiler") {
		t.Fatalf("get status %d: %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodDelete, ts.URL+"/tasks/1", "")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(body) != "{}" {
		t.Fatalf("delete status %d: %s", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/tasks/1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type: %q", ct)
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name, method, path, body string
		want                     int
	}{
		{"unknown collection", http.MethodGet, "/landlords", "", http.StatusNotFound},
		{"post to unknown collection", http.MethodPost, "/landlords", `{"name":"x"}`, http.StatusNotFound},
		{"malformed body", http.MethodPost, "/tasks", `{"title":`, http.StatusBadRequest},
		{"array body", http.MethodPost, "/tasks", `[1,2]`, http.StatusBadRequest},
		{"patch missing record", http.MethodPatch, "/tasks/42", `{"done":true}`, http.StatusNotFound},
		{"delete missing record", http.MethodDelete, "/tasks/42", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := do(t, tc.method, ts.URL+tc.path, tc.body)
			if resp.StatusCode != tc.want {
				t.Fatalf("status %d, want %d: %s", resp.StatusCode, tc.want, body)
			}
		})
	}
}

func TestCreate_DuplicateIDConflict(t *testing.T) {
	ts := newTestServer(t)
	payment := `{"id":"TX-1001","property":"Apt #05, Mitte","tenant":"Lena","amount":950,"type":"Cash","reviewed":false}`

	if resp, body := do(t, http.MethodPost, ts.URL+"/payments", payment); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create %d: %s", resp.StatusCode, body)
	}
	if resp, _ := do(t, http.MethodPost, ts.URL+"/payments", payment); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestList_ETagAndFilter(t *testing.T) {
	ts := newTestServer(t)
	do(t, http.MethodPost, ts.URL+"/properties", `{"name":"Loft","district":"Mitte","rooms":2,"rent":1200}`)
	do(t, http.MethodPost, ts.URL+"/properties", `{"name":"Attic","district":"Kreuzberg","rooms":1,"rent":800}`)

	resp, body := do(t, http.MethodGet, ts.URL+"/properties?district=Mitte", "")
	var got []map[string]any
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["name"] != "Loft" {
		t.Fatalf("filter: %s", body)
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	resp, _ = do(t, http.MethodGet, ts.URL+"/properties?district=Mitte", "", "If-None-Match", etag)
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
}

func TestSnapshotAndHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || body != "ok" {
		t.Fatalf("healthz: %d %q", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/db", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("db status %d", resp.StatusCode)
	}
	var snap map[string][]any
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, c := range domain.Collections {
		if _, ok := snap[c]; !ok {
			t.Fatalf("snapshot missing %s: %s", c, body)
		}
	}
}
