package web

import (
	"context"
	"fmt"
	"sort"

	"github.com/Esaslow/datasette/internal/apperr"
	"github.com/Esaslow/datasette/internal/dbpool"
	"github.com/Esaslow/datasette/internal/querybuilder"
)

// pkColumn is one row of PRAGMA table_info filtered down to primary-key
// members, kept in their declared composite order.
type pkColumn struct {
	name string
	pos  int64
}

// primaryKeys runs PRAGMA table_info(table) and returns the columns
// that are part of the primary key, ordered by their position within
// it (spec.md §4.6 step 2).
func primaryKeys(ctx context.Context, pool *dbpool.Pool, dbName, table string) ([]string, error) {
	sqlText := fmt.Sprintf("PRAGMA table_info(%s)", querybuilder.QuoteIdentifier(table))
	res, err := pool.Execute(ctx, dbName, sqlText, nil)
	if err != nil {
		return nil, err
	}

	var cols []pkColumn
	for _, row := range res.Rows {
		if len(row) < 6 {
			continue
		}
		name, _ := row[1].(string)
		pos := toInt64(row[5])
		if pos > 0 {
			cols = append(cols, pkColumn{name: name, pos: pos})
		}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].pos < cols[j].pos })

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names, nil
}

// toInt64 coerces a value returned from the SQL layer (int64, float64,
// or a numeric string, depending on how the driver typed the column)
// into an int64, defaulting to 0 for anything else.
func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

// tableKind describes whether a name in the schema is a table or a view,
// and captures its original DDL.
type tableKind struct {
	isView     bool
	definition string
}

// inspectKind queries sqlite_master for a table or view called name and
// returns its kind plus DDL, taken from the first matching row.
// NotFound is surfaced if name is neither.
func inspectKind(ctx context.Context, pool *dbpool.Pool, dbName, name string) (tableKind, error) {
	res, err := pool.Execute(ctx, dbName,
		`select type, sql from sqlite_master where type in ('table','view') and name = :p0`,
		map[string]any{"p0": name})
	if err != nil {
		return tableKind{}, err
	}
	if len(res.Rows) == 0 {
		return tableKind{}, apperr.NotFound("no such table %q", name)
	}
	row := res.Rows[0]
	kind, _ := row[0].(string)
	ddl, _ := row[1].(string)
	return tableKind{isView: kind == "view", definition: ddl}, nil
}

// viewNames lists every view defined in the database, sorted by name.
func viewNames(ctx context.Context, pool *dbpool.Pool, dbName string) ([]string, error) {
	res, err := pool.Execute(ctx, dbName,
		`select name from sqlite_master where type = 'view' order by name`, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) > 0 {
			if s, ok := row[0].(string); ok {
				names = append(names, s)
			}
		}
	}
	return names, nil
}

// tableColumnNames runs PRAGMA table_info(table) and returns just the
// column names, in declared order.
func tableColumnNames(ctx context.Context, pool *dbpool.Pool, dbName, table string) ([]string, error) {
	sqlText := fmt.Sprintf("PRAGMA table_info(%s)", querybuilder.QuoteIdentifier(table))
	res, err := pool.Execute(ctx, dbName, sqlText, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) > 1 {
			if s, ok := row[1].(string); ok {
				names = append(names, s)
			}
		}
	}
	return names, nil
}
