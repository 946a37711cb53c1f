package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB answers Query with canned rows. The key found earliest in the SQL wins,
// so an outer FROM beats one inside a subquery.
type fakeDB struct {
	results map[string][][]any
	errs    map[string]error
	queries []string
	args    [][]any
}

func (f *fakeDB) match(sql string) (string, bool) {
	best, bestAt := "", -1
	consider := func(key string) {
		at := strings.Index(sql, key)
		if at >= 0 && (bestAt < 0 || at < bestAt) {
			best, bestAt = key, at
		}
	}
	for key := range f.results {
		consider(key)
	}
	for key := range f.errs {
		consider(key)
	}
	return best, bestAt >= 0
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	key, ok := f.match(sql)
	if !ok {
		return &fakeRows{}, nil
	}
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return &fakeRows{data: f.results[key], idx: -1}, nil
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{errors.New("query row not supported")}
}

func (f *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("exec not supported")
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type fakeRows struct {
	data [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.data == nil {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.idx], nil
}

// Scan assigns each value to the matching destination; nil leaves the zero value.
func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.SetZero()
			continue
		}
		val := reflect.ValueOf(v)
		if !val.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan column %d: %s into %s", i, val.Type(), target.Type())
		}
		target.Set(val)
	}
	return nil
}
