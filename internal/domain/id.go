package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a record within its collection. The store hands out integer
// ids for integer-keyed collections and strings otherwise, so ID accepts both
// JSON forms and writes integral ids back as numbers.
type ID string

func (id ID) String() string { return string(id) }

// intID reports whether s is an integer in canonical form, the only form
// that can travel as a bare JSON number ("007" and "+5" stay strings).
func intID(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != s {
		return 0, false
	}
	return n, true
}

func (id ID) MarshalJSON() ([]byte, error) {
	if _, ok := intID(string(id)); ok {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID(n.String())
	}
	return nil
}
