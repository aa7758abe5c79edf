// Package collection keeps a local copy of one remote collection in step with
// the record store.
//
// Every mutation is remote-first: local state changes only after the store
// has confirmed the write, and is rebuilt from the store's response rather
// than from what was sent. A failed call leaves local state exactly as it was.
package collection

import (
	"context"
	"fmt"
	"sync"

	"brandenbed/internal/domain"
)

// Record is anything with a store-assigned id.
type Record interface {
	RecordID() domain.ID
}

type Collection[T Record] struct {
	name   string
	remote domain.StoreClient
	blank  func() T

	mu    sync.Mutex
	items []T
	form  T
}

// New creates an empty collection bound to the store path name. blank
// produces the empty form; nil means the zero value.
func New[T Record](name string, remote domain.StoreClient, blank func() T) *Collection[T] {
	if blank == nil {
		blank = func() T { var zero T; return zero }
	}
	return &Collection[T]{name: name, remote: remote, blank: blank, form: blank(), items: []T{}}
}

func (c *Collection[T]) Name() string { return c.name }

// Items returns a copy of the local records in store order.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Collection[T]) Find(id domain.ID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.RecordID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) Form() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

func (c *Collection[T]) SetForm(v T) {
	c.mu.Lock()
	c.form = v
	c.mu.Unlock()
}

func (c *Collection[T]) ResetForm() { c.SetForm(c.blank()) }

// Fetch reads the remote collection without touching local state.
func (c *Collection[T]) Fetch(ctx context.Context) ([]T, error) {
	var out []T
	if err := c.remote.List(ctx, c.name, &out); err != nil {
		return nil, fmt.Errorf("load %s: %w", c.name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Set replaces local state unconditionally.
func (c *Collection[T]) Set(items []T) {
	cp := make([]T, len(items))
	copy(cp, items)
	c.mu.Lock()
	c.items = cp
	c.mu.Unlock()
}

// Load replaces local state with the remote collection. On error the
// previous (possibly stale) state is kept.
func (c *Collection[T]) Load(ctx context.Context) error {
	items, err := c.Fetch(ctx)
	if err != nil {
		return err
	}
	c.Set(items)
	return nil
}

// Create submits the current form. On success the stored record is appended
// and the form reset; on failure the form is kept for another try.
func (c *Collection[T]) Create(ctx context.Context) (T, error) {
	out, err := c.Add(ctx, c.Form())
	if err != nil {
		return out, err
	}
	c.ResetForm()
	return out, nil
}

// Add creates rec remotely and appends the store's copy (with its id).
func (c *Collection[T]) Add(ctx context.Context, rec T) (T, error) {
	var out T
	if err := domain.Validate(rec); err != nil {
		return out, fmt.Errorf("create %s: %w", c.name, err)
	}
	if err := c.remote.Create(ctx, c.name, rec, &out); err != nil {
		return out, fmt.Errorf("create %s: %w", c.name, err)
	}
	c.mu.Lock()
	c.items = append(c.items, out)
	c.mu.Unlock()
	return out, nil
}

// Update sends a partial patch and swaps in the merged record the store
// returns. Records other than id are untouched.
func (c *Collection[T]) Update(ctx context.Context, id domain.ID, patch any) (T, error) {
	var out T
	if err := c.remote.Patch(ctx, c.name, id.String(), patch, &out); err != nil {
		return out, fmt.Errorf("update %s/%s: %w", c.name, id, err)
	}
	c.swap(id, out)
	return out, nil
}

// Save replaces the whole record with rec (PUT) and reconciles like Update.
func (c *Collection[T]) Save(ctx context.Context, rec T) (T, error) {
	var out T
	id := rec.RecordID()
	if id == "" {
		return out, fmt.Errorf("save %s: %w: missing id", c.name, domain.ErrInvalid)
	}
	if err := domain.Validate(rec); err != nil {
		return out, fmt.Errorf("save %s/%s: %w", c.name, id, err)
	}
	if err := c.remote.Replace(ctx, c.name, id.String(), rec, &out); err != nil {
		return out, fmt.Errorf("save %s/%s: %w", c.name, id, err)
	}
	c.swap(id, out)
	return out, nil
}

// Delete removes id remotely, then drops it locally.
func (c *Collection[T]) Delete(ctx context.Context, id domain.ID) error {
	if err := c.remote.Delete(ctx, c.name, id.String()); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, id, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make([]T, 0, len(c.items))
	for _, it := range c.items {
		if it.RecordID() != id {
			kept = append(kept, it)
		}
	}
	c.items = kept
	return nil
}

func (c *Collection[T]) swap(id domain.ID, rec T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if it.RecordID() == id {
			c.items[i] = rec
		}
	}
}
