// Package entity implements the Entity Store: a single generic, polymorphic
// CRUD/upsert/scope implementation (Store[Row, New, Update]) parameterized
// per entity family by a small Spec descriptor, collapsing what would
// otherwise be one hand-written model per family (domains, subdomains,
// IP addresses, ...) into one implementation plus one descriptor each.
package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcpklmc/sn0int/internal/entity/filter"
	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

// Ext is the subset of *sqlx.DB / *sqlx.Tx this package needs, letting a
// Store run either against the workspace database directly or bound to a
// single per-seed transaction (see internal/runtime).
type Ext interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Spec describes one entity family's schema and mapping in terms the
// generic Store can drive mechanically.
type Spec[Row, New, Update any] struct {
	// Family is the name modules and the CLI refer to this table by.
	Family string
	// Table is the backing SQL table name.
	Table string
	// Columns enumerates the columns a filter expression may reference and
	// their filter-language type, used to validate and compile filter
	// expressions. Float columns (latitude, longitude) have no filter type
	// and are not listed, so filters cannot reference them.
	Columns map[string]filter.ColumnType
	// SelectColumns lists the columns fetched by List/Filter/Get/ByID, in
	// the order the Row struct's db tags expect.
	SelectColumns []string

	NewValue func(New) string
	RowValue func(Row) string
	RowID    func(Row) int64

	// InsertColumns are the non-id, non-unscoped columns written on a full
	// insert (value is always written first automatically).
	InsertColumns []string
	InsertArgs    func(New) []any

	// Diff computes the Update descriptor for an upsert: for every
	// optional attribute, the incoming value replaces the existing one
	// only when present and different. dirty is false when nothing
	// changed, in which case the caller must skip the write entirely.
	Diff func(existing Row, incoming New) (update Update, dirty bool)

	UpdateID          func(Update) int64
	UpdateAssignments func(Update) (sets []string, args []any)
}

// Store is the single generic implementation of every entity family's
// CRUD/upsert/scope surface.
type Store[Row, New, Update any] struct {
	ext  Ext
	spec Spec[Row, New, Update]
}

// NewStore binds a Spec to a database handle (or transaction).
func NewStore[Row, New, Update any](ext Ext, spec Spec[Row, New, Update]) *Store[Row, New, Update] {
	return &Store[Row, New, Update]{ext: ext, spec: spec}
}

// WithExt rebinds the same Spec to a different handle — used to obtain a
// transaction-scoped view of an otherwise identical store.
func (s *Store[Row, New, Update]) WithExt(ext Ext) *Store[Row, New, Update] {
	return &Store[Row, New, Update]{ext: ext, spec: s.spec}
}

func (s *Store[Row, New, Update]) selectSQL(where string) string {
	cols := strings.Join(s.spec.SelectColumns, ", ")
	q := fmt.Sprintf("SELECT %s FROM %s", cols, s.spec.Table)
	if where != "" {
		q += " WHERE " + where
	}
	return q
}

func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	var typed *sferrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return sferrors.Wrap(sferrors.StorageError, "entity store operation failed", err)
}

// List returns every row of the family, in scope or not.
func (s *Store[Row, New, Update]) List(ctx context.Context) ([]Row, error) {
	var rows []Row
	err := s.ext.SelectContext(ctx, &rows, s.selectSQL(""))
	return rows, wrapStorage(err)
}

// Filter returns every row matching the given filter expression.
func (s *Store[Row, New, Update]) Filter(ctx context.Context, expr string) ([]Row, error) {
	compiled, err := filter.Parse(s.spec.Columns, expr)
	if err != nil {
		return nil, err
	}
	var rows []Row
	err = s.ext.SelectContext(ctx, &rows, s.selectSQL(compiled.SQL), compiled.Args...)
	return rows, wrapStorage(err)
}

// DefaultSelect returns the in-scope rows (unscoped = 0), the predicate the
// module runtime feeds seeds from.
func (s *Store[Row, New, Update]) DefaultSelect(ctx context.Context) ([]Row, error) {
	return s.Filter(ctx, "unscoped = 0")
}

// ByID fetches a row by its stable integer id.
func (s *Store[Row, New, Update]) ByID(ctx context.Context, id int64) (Row, error) {
	var row Row
	err := s.ext.GetContext(ctx, &row, s.selectSQL("id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return row, sferrors.New(sferrors.NotFound, fmt.Sprintf("%s id %d not found", s.spec.Family, id))
	}
	return row, wrapStorage(err)
}

// Get fetches a row by its canonical value, failing with NotFound on a
// miss.
func (s *Store[Row, New, Update]) Get(ctx context.Context, value string) (Row, error) {
	var row Row
	err := s.ext.GetContext(ctx, &row, s.selectSQL("value = ?"), value)
	if errors.Is(err, sql.ErrNoRows) {
		return row, sferrors.New(sferrors.NotFound, fmt.Sprintf("%s %q not found", s.spec.Family, value))
	}
	return row, wrapStorage(err)
}

// RowID extracts the stable integer id from a Row, the same accessor the
// Store uses internally — exposed so callers outside this package (the
// host API's family router) can read an id off a row without reaching into
// the Spec directly.
func (s *Store[Row, New, Update]) RowID(row Row) int64 {
	return s.spec.RowID(row)
}

// GetOpt fetches a row by value, returning (nil, nil) on a miss instead of
// an error.
func (s *Store[Row, New, Update]) GetOpt(ctx context.Context, value string) (*Row, error) {
	row, err := s.Get(ctx, value)
	if sferrors.Is(err, sferrors.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Insert creates the row if (family, value) is new; if it already exists,
// it is a no-op returning the existing id unchanged.
func (s *Store[Row, New, Update]) Insert(ctx context.Context, rec New) (int64, error) {
	value := s.spec.NewValue(rec)
	existing, err := s.Get(ctx, value)
	if err == nil {
		return s.spec.RowID(existing), nil
	}
	if !sferrors.Is(err, sferrors.NotFound) {
		return 0, err
	}

	cols := append([]string{"value", "unscoped"}, s.spec.InsertColumns...)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "?"
	}
	args := append([]any{value, false}, s.spec.InsertArgs(rec)...)

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.spec.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	res, err := s.ext.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, wrapStorage(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapStorage(err)
	}
	return id, nil
}

// Upsert inserts the record if new, or applies the monotonic diff of
// differing optional attributes if it already exists. An upsert never
// unsets an attribute the incoming record left absent or equal.
func (s *Store[Row, New, Update]) Upsert(ctx context.Context, rec New) (int64, error) {
	id, _, _, err := s.UpsertCounting(ctx, rec)
	return id, err
}

// UpsertCounting is Upsert, additionally reporting whether the call
// inserted a new row, applied an update to an existing one, or found the
// existing row already up to date (both flags false) — the distinction the
// Host API's db_insert/db_update need to report observation counts.
func (s *Store[Row, New, Update]) UpsertCounting(ctx context.Context, rec New) (id int64, inserted, updated bool, err error) {
	value := s.spec.NewValue(rec)
	existing, err := s.Get(ctx, value)
	if sferrors.Is(err, sferrors.NotFound) {
		id, err = s.Insert(ctx, rec)
		return id, err == nil, false, err
	}
	if err != nil {
		return 0, false, false, err
	}

	update, dirty := s.spec.Diff(existing, rec)
	existingID := s.spec.RowID(existing)
	if !dirty {
		return existingID, false, false, nil
	}
	id, err = s.Update(ctx, update)
	return id, false, err == nil, err
}

// Update applies the given Update descriptor to the row it names, skipping
// the write entirely when the descriptor carries no changes.
func (s *Store[Row, New, Update]) Update(ctx context.Context, upd Update) (int64, error) {
	id := s.spec.UpdateID(upd)
	sets, args := s.spec.UpdateAssignments(upd)
	if len(sets) == 0 {
		return id, nil
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", s.spec.Table, strings.Join(sets, ", "))
	args = append(args, id)
	if _, err := s.ext.ExecContext(ctx, q, args...); err != nil {
		return 0, wrapStorage(err)
	}
	return id, nil
}

// Delete removes every row matching the filter, returning the count
// removed.
func (s *Store[Row, New, Update]) Delete(ctx context.Context, expr string) (int64, error) {
	compiled, err := filter.Parse(s.spec.Columns, expr)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE %s", s.spec.Table, compiled.SQL)
	res, err := s.ext.ExecContext(ctx, q, compiled.Args...)
	if err != nil {
		return 0, wrapStorage(err)
	}
	n, err := res.RowsAffected()
	return n, wrapStorage(err)
}

// DeleteID removes the single row with the given id.
func (s *Store[Row, New, Update]) DeleteID(ctx context.Context, id int64) (int64, error) {
	res, err := s.ext.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.spec.Table), id)
	if err != nil {
		return 0, wrapStorage(err)
	}
	n, err := res.RowsAffected()
	return n, wrapStorage(err)
}

// Scope marks every row matching the filter as in-scope (unscoped=false).
func (s *Store[Row, New, Update]) Scope(ctx context.Context, expr string) (int64, error) {
	return s.setUnscoped(ctx, expr, false)
}

// Noscope marks every row matching the filter as hidden (unscoped=true).
func (s *Store[Row, New, Update]) Noscope(ctx context.Context, expr string) (int64, error) {
	return s.setUnscoped(ctx, expr, true)
}

func (s *Store[Row, New, Update]) setUnscoped(ctx context.Context, expr string, unscoped bool) (int64, error) {
	compiled, err := filter.Parse(s.spec.Columns, expr)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf("UPDATE %s SET unscoped = ? WHERE %s", s.spec.Table, compiled.SQL)
	args := append([]any{unscoped}, compiled.Args...)
	res, err := s.ext.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, wrapStorage(err)
	}
	n, err := res.RowsAffected()
	return n, wrapStorage(err)
}
