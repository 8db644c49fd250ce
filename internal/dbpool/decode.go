package dbpool

import (
	"database/sql"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// textAffinityTypes lists the SQLite declared-type names (as reported
// by database/sql's DatabaseTypeName, matched exactly, not by SQLite's
// substring-based affinity rules, so e.g. "VARCHAR(20)" is not listed)
// that this package treats as text: their raw bytes
// get the UTF-8 replacement pass below rather than being left as
// opaque []byte. Everything else (BLOB, no declared type, etc.) is
// passed through untouched for jsonenc to handle.
var textAffinityTypes = map[string]bool{
	"TEXT":     true,
	"VARCHAR":  true,
	"CHAR":     true,
	"CLOB":     true,
	"DATE":     true,
	"DATETIME": true,
}

// scanRows drains rows into a Result, applying the text-decoding
// strategy per column: TEXT-affinity columns are passed through
// runes.ReplaceIllFormed so a column containing non-UTF-8 bytes still
// produces a valid Go string instead of mojibake or a decode panic;
// BLOB-affinity columns are left as raw []byte for jsonenc's own
// UTF-8-attempt/base64-fallback.
func scanRows(rows *sql.Rows) (Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return Result{}, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return Result{}, err
	}
	isText := make([]bool, len(types))
	for i, t := range types {
		isText[i] = textAffinityTypes[t.DatabaseTypeName()]
	}

	var out [][]any
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, err
		}
		for i, v := range raw {
			if isText[i] {
				raw[i] = decodeText(v)
			}
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	return Result{Columns: columns, Rows: out}, nil
}

// decodeText replaces ill-formed UTF-8 byte sequences in a TEXT-affinity
// value with the Unicode replacement character, rather than letting
// invalid bytes reach the JSON encoder as-is.
func decodeText(v any) any {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return v
	}

	cleaned, _, err := transform.String(runes.ReplaceIllFormed(), s)
	if err != nil {
		return s
	}
	return cleaned
}
