package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Record is a schemaless store record as held by the record store. Numbers
// are kept as json.Number so integer ids survive a round trip unchanged.
type Record map[string]any

// DecodeRecord parses a JSON object body.
func DecodeRecord(b []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrInvalid)
	}
	return r, nil
}

// IDOf returns the record's id in its path form.
func IDOf(r Record) (string, bool) {
	return idString(r["id"])
}

func idString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	}
	return "", false
}

// NextID picks an id for a new record: 1 for an empty collection, max+1 when
// every existing id is an integer, a random string otherwise.
func NextID(existing []string) any {
	var maxID int64
	for _, s := range existing {
		n, ok := intID(s)
		if !ok {
			return uuid.NewString()
		}
		if n > maxID {
			maxID = n
		}
	}
	return json.Number(strconv.FormatInt(maxID+1, 10))
}

// Merge applies patch on top of base (shallow). The base id is kept.
func Merge(base, patch Record) Record {
	out := maps.Clone(base)
	if out == nil {
		out = Record{}
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// WithID returns a copy of r whose id is set to id, converting integral ids
// to numbers so the stored form matches generated ids.
func WithID(r Record, id string) Record {
	out := maps.Clone(r)
	if out == nil {
		out = Record{}
	}
	if _, ok := intID(id); ok {
		out["id"] = json.Number(id)
	} else {
		out["id"] = id
	}
	return out
}

// Filter selects records on a list request: field equality (compared in
// string form) plus an optional case-insensitive full-text term.
type Filter struct {
	Fields map[string]string
	Q      string
}

func (f Filter) Empty() bool { return len(f.Fields) == 0 && f.Q == "" }

func (f Filter) Match(r Record) bool {
	for k, want := range f.Fields {
		got, ok := scalarString(r[k])
		if !ok || got != want {
			return false
		}
	}
	if f.Q == "" {
		return true
	}
	q := strings.ToLower(f.Q)
	for _, v := range r {
		if s, ok := scalarString(v); ok && strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x), true
	case nil:
		return "", false
	}
	return idString(v)
}
