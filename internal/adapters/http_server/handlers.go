package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"brandenbed/internal/app"
	"brandenbed/internal/domain"
)

const maxBodyBytes = 1 << 20

type Handlers struct{ S *app.StoreService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/db", h.snapshot)

	s.mux.Route("/{collection}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.replace)
		r.Patch("/{id}", h.patch)
		r.Delete("/{id}", h.delete)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps store errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownCollection):
		writeProblem(w, http.StatusNotFound, "Not Found", "collection "+chi.URLParam(r, "collection")+" does not exist")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "record not found")
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrInvalid):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Str("method", r.Method).Msg("store operation failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached serves v with a weak ETag, short-circuiting to 304 when the
// client already holds this version.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	writeBody(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	writeBody(w, status, body)
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func readRecord(w http.ResponseWriter, r *http.Request) (domain.Record, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Join(domain.ErrInvalid, err)
	}
	return domain.DecodeRecord(b)
}

// filterFrom turns query parameters into a list filter. q is the full-text
// term; underscore-prefixed keys are reserved and ignored.
func filterFrom(r *http.Request) domain.Filter {
	var f domain.Filter
	for k, vs := range r.URL.Query() {
		if len(vs) == 0 {
			continue
		}
		switch {
		case k == "q":
			f.Q = vs[0]
		case len(k) > 0 && k[0] == '_':
		default:
			if f.Fields == nil {
				f.Fields = map[string]string{}
			}
			f.Fields[k] = vs[0]
		}
	}
	return f
}

func (h *Handlers) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.S.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, snap)
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	recs, err := h.S.List(r.Context(), chi.URLParam(r, "collection"), filterFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, recs)
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.S.Get(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, rec)
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	in, err := readRecord(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.S.Create(r.Context(), chi.URLParam(r, "collection"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) replace(w http.ResponseWriter, r *http.Request) {
	in, err := readRecord(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.S.Replace(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) patch(w http.ResponseWriter, r *http.Request) {
	in, err := readRecord(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.S.Patch(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.S.Delete(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}
