// Package sqldb stores records as JSON documents in a SQL table, one row per
// record, for MySQL or SQLite.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"brandenbed/internal/domain"
)

var _ domain.RecordRepository = (*Repo)(nil)

type Repo struct {
	db *sql.DB
	d  Dialect
}

func New(db *sql.DB, d Dialect) *Repo { return &Repo{db: db, d: d} }

// Migrate creates the schema and registers the given collections.
func (r *Repo) Migrate(ctx context.Context, collections []string) error {
	for _, stmt := range r.d.Schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s schema: %w", r.d.Name, err)
		}
	}
	for _, c := range collections {
		if _, err := r.db.ExecContext(ctx, r.d.InsertCollection, c); err != nil {
			return fmt.Errorf("register collection %s: %w", c, err)
		}
	}
	return nil
}

func (r *Repo) Collections(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listCollectionsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *Repo) List(ctx context.Context, coll string) ([]domain.Record, error) {
	if err := r.requireCollection(ctx, r.db, coll); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, listRecordsSQL, coll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		rec, err := domain.DecodeRecord(body)
		if err != nil {
			return nil, fmt.Errorf("decode %s record: %w", coll, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, coll, id string) (domain.Record, error) {
	if err := r.requireCollection(ctx, r.db, coll); err != nil {
		return nil, err
	}
	return r.get(ctx, r.db, getRecordSQL, coll, id)
}

func (r *Repo) Insert(ctx context.Context, coll string, rec domain.Record) (domain.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	if err := r.requireCollection(ctx, tx, coll); err != nil {
		return nil, err
	}

	out := maps.Clone(rec)
	if out == nil {
		out = domain.Record{}
	}
	id, ok := domain.IDOf(out)
	if ok {
		if _, err := r.get(ctx, tx, getRecordSQL, coll, id); err == nil {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrConflict, coll, id)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	} else {
		existing, err := r.ids(ctx, tx, coll)
		if err != nil {
			return nil, err
		}
		out["id"] = domain.NextID(existing)
		id, _ = domain.IDOf(out)
	}

	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertRecordSQL, coll, id, string(body)); err != nil {
		return nil, fmt.Errorf("insert %s/%s: %w", coll, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return out, nil
}

func (r *Repo) Update(ctx context.Context, coll, id string, fn func(domain.Record) (domain.Record, error)) (domain.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	if err := r.requireCollection(ctx, tx, coll); err != nil {
		return nil, err
	}
	cur, err := r.get(ctx, tx, getRecordSQL+r.d.LockSuffix, coll, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(cur)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, updateRecordSQL, string(body), coll, id); err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", coll, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return next, nil
}

func (r *Repo) Delete(ctx context.Context, coll, id string) error {
	if err := r.requireCollection(ctx, r.db, coll); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, deleteRecordSQL, coll, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", coll, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *Repo) requireCollection(ctx context.Context, q querier, coll string) error {
	var n int
	if err := q.QueryRowContext(ctx, collectionExistsSQL, coll).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUnknownCollection
	}
	return nil
}

func (r *Repo) get(ctx context.Context, q querier, query, coll, id string) (domain.Record, error) {
	var body []byte
	if err := q.QueryRowContext(ctx, query, coll, id).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return domain.DecodeRecord(body)
}

func (r *Repo) ids(ctx context.Context, q querier, coll string) ([]string, error) {
	rows, err := q.QueryContext(ctx, listIDsSQL, coll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
