// Package web hosts the four view operations spec.md §4.6 names
// (Index, Database, Table, Row) plus the slug-resolving router they sit
// behind. The HTML templating layer is out of scope (spec.md §1 treats
// it as an external collaborator); these handlers always answer in the
// JSON shape, extensionless requests included, and never call the
// Renderer passed to New.
package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Esaslow/datasette/internal/apperr"
	"github.com/Esaslow/datasette/internal/catalog"
	"github.com/Esaslow/datasette/internal/config"
	"github.com/Esaslow/datasette/internal/dbpool"
	"github.com/Esaslow/datasette/internal/jsonenc"
	"github.com/Esaslow/datasette/internal/querybuilder"
)

// Handlers wires the Catalog and ConnectionPool into the HTTP-facing
// view operations.
type Handlers struct {
	cat      *catalog.Catalog
	pool     *dbpool.Pool
	opts     config.Options
	render   Renderer
	log      *zap.Logger
	indexTop int
}

// New builds a Handlers. render may be nil; see Renderer's doc comment.
func New(cat *catalog.Catalog, pool *dbpool.Pool, opts config.Options, render Renderer, log *zap.Logger) *Handlers {
	return &Handlers{cat: cat, pool: pool, opts: opts, render: render, log: log, indexTop: 5}
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// applyTrace folds query_ms into a {"query_ms","total_ms"} timing
// object when the caller asked for ?_trace=1, per SPEC_FULL.md §12.
func applyTrace(data map[string]any, r *http.Request, queryMS, totalMS float64) {
	if r.URL.Query().Get("_trace") == "1" {
		data["timing"] = map[string]any{"query_ms": queryMS, "total_ms": totalMS}
		delete(data, "query_ms")
		return
	}
	data["query_ms"] = queryMS
}

func (h *Handlers) writeOK(w http.ResponseWriter, r *http.Request, start time.Time, data map[string]any) {
	applyTrace(data, r, elapsedMS(start), elapsedMS(start))
	if h.opts.CacheHeaders {
		w.Header().Set("Cache-Control", "max-age=31536000")
	}
	jsonenc.Encode(w, http.StatusOK, data)
}

// writeErr converts a core error into the structured payload spec.md
// §4.6 describes, except for NotFound, which is a bare 404.
func (h *Handlers) writeErr(w http.ResponseWriter, err error, dbName, dbHash string) {
	appErr, ok := apperr.As(err)
	if !ok {
		jsonenc.Encode(w, http.StatusInternalServerError, map[string]any{
			"ok": false, "error": err.Error(),
		})
		return
	}
	if appErr.Kind == apperr.KindNotFound {
		http.Error(w, appErr.Error(), http.StatusNotFound)
		return
	}
	jsonenc.Encode(w, appErr.Status(), map[string]any{
		"ok":            false,
		"error":         appErr.Error(),
		"database":      dbName,
		"database_hash": dbHash,
	})
}

// resolveSlug implements spec.md §4.5: split on the final hyphen,
// fall back to the whole slug as the name if the candidate isn't
// known, then redirect if the provided hash doesn't match the
// database's current digest prefix. restSuffix is everything after the
// slug in the original path (table/row segments plus extension) that
// must be preserved in a canonical redirect. It returns ok=false once
// it has written a response (a redirect or a 404) itself.
func (h *Handlers) resolveSlug(w http.ResponseWriter, r *http.Request, slug, restSuffix string) (catalog.DatabaseEntry, bool) {
	candidate, providedHash := splitSlugHash(slug)
	name := candidate
	if _, ok := h.cat.Lookup(candidate); !ok {
		name, providedHash = slug, ""
	}

	entry, ok := h.cat.Lookup(name)
	if !ok {
		http.Error(w, fmt.Sprintf("no such database %q", name), http.StatusNotFound)
		return catalog.DatabaseEntry{}, false
	}

	expected := entry.DigestPrefix()
	if providedHash != expected {
		canonical := fmt.Sprintf("/%s-%s%s", entry.Name, expected, restSuffix)
		if q := r.URL.RawQuery; q != "" {
			canonical += "?" + q
		}
		w.Header().Set("Link", fmt.Sprintf("<%s>; rel=preload", canonical))
		http.Redirect(w, r, canonical, http.StatusFound)
		return catalog.DatabaseEntry{}, false
	}
	return entry, true
}

// Index lists every published database, sorted by name.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	data := make(map[string]any)
	for _, e := range h.cat.List() {
		data[e.Name] = map[string]any{
			"name":             e.Name,
			"hash":             e.Digest,
			"path":             fmt.Sprintf("%s-%s", e.Name, e.DigestPrefix()),
			"tables_truncated": e.TopTables(h.indexTop),
			"tables_count":     len(e.Tables),
			"tables_more":      len(e.Tables) > h.indexTop,
			"table_rows":       e.TotalRows(),
		}
	}
	h.writeOK(w, r, start, data)
}

// Database dispatches to DatabaseDownload, custom-SQL execution, or the
// table/view inventory view, depending on the request's suffix and
// query string.
func (h *Handlers) Database(w http.ResponseWriter, r *http.Request, rawSlug string) {
	base, ext := splitDBSlugSuffix(rawSlug)
	entry, ok := h.resolveSlug(w, r, base, ext)
	if !ok {
		return
	}

	if ext == ".db" {
		h.databaseDownload(w, r, entry)
		return
	}

	start := time.Now()
	if sqlText := r.URL.Query().Get("sql"); sqlText != "" {
		h.customQuery(w, r, start, entry, sqlText)
		return
	}
	h.databaseBrowse(w, r, start, entry)
}

func (h *Handlers) databaseDownload(w http.ResponseWriter, r *http.Request, entry catalog.DatabaseEntry) {
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, entry.Name+".db"))
	http.ServeFile(w, r, entry.FilePath)
}

func (h *Handlers) customQuery(w http.ResponseWriter, r *http.Request, start time.Time, entry catalog.DatabaseEntry, sqlText string) {
	if err := querybuilder.ValidateCustomSQL(sqlText); err != nil {
		h.writeErr(w, err, entry.Name, entry.Digest)
		return
	}

	params := map[string]any{}
	for k, vs := range r.URL.Query() {
		if k == "sql" || len(vs) == 0 {
			continue
		}
		params[k] = vs[0]
	}

	res, err := h.pool.Execute(r.Context(), entry.Name, sqlText, params)
	if err != nil {
		h.writeErr(w, err, entry.Name, entry.Digest)
		return
	}

	_, f := splitFormat(r.URL.Path)
	rows := shapeRows(rowShape(r, f), res.Columns, res.Rows)

	h.writeOK(w, r, start, map[string]any{
		"database":      entry.Name,
		"database_hash": entry.Digest,
		"custom_sql":    true,
		"columns":       res.Columns,
		"rows":          rows,
		"query":         map[string]any{"sql": sqlText, "params": params},
	})
}

func (h *Handlers) databaseBrowse(w http.ResponseWriter, r *http.Request, start time.Time, entry catalog.DatabaseEntry) {
	tableNames := entry.TableNames()
	tables := make([]map[string]any, 0, len(tableNames))
	for _, name := range tableNames {
		cols, err := tableColumnNames(r.Context(), h.pool, entry.Name, name)
		if err != nil {
			h.writeErr(w, err, entry.Name, entry.Digest)
			return
		}
		tables = append(tables, map[string]any{
			"name":       name,
			"columns":    cols,
			"table_rows": entry.Tables[name],
		})
	}

	views, err := viewNames(r.Context(), h.pool, entry.Name)
	if err != nil {
		h.writeErr(w, err, entry.Name, entry.Digest)
		return
	}

	h.writeOK(w, r, start, map[string]any{
		"database":      entry.Name,
		"database_hash": entry.Digest,
		"custom_sql":    false,
		"tables":        tables,
		"views":         views,
	})
}

// Table implements spec.md §4.6's TableView.
func (h *Handlers) Table(w http.ResponseWriter, r *http.Request, rawSlug, rawTable string) {
	table, f := splitFormat(rawTable)
	table = strings.ReplaceAll(table, "+", " ")

	entry, ok := h.resolveSlug(w, r, rawSlug, "/"+rawTable)
	if !ok {
		return
	}
	start := time.Now()

	kind, err := inspectKind(r.Context(), h.pool, entry.Name, table)
	if err != nil {
		h.writeErr(w, err, entry.Name, entry.Digest)
		return
	}

	pks, err := primaryKeys(r.Context(), h.pool, entry.Name, table)
	if err != nil {
		h.writeErr(w, err, entry.Name, entry.Digest)
		return
	}

	useRowID := len(pks) == 0 && !kind.isView

	pageSize := h.opts.PageSize
	if sizeStr := r.URL.Query().Get("_size"); sizeStr != "" {
		if n, err := strconv.Atoi(sizeStr); err == nil && n > 0 {
			pageSize = n
		}
	}
	if pageSize > h.opts.MaxPageSize {
		pageSize = h.opts.MaxPageSize
	}

	selectList := "*"
	orderBy := ""
	if useRowID {
		selectList = "rowid, *"
		orderBy = "rowid"
	} else if len(pks) > 0 {
		quoted := make([]string, len(pks))
		for i, pk := range pks {
			quoted[i] = querybuilder.QuoteColumn(pk)
		}
		orderBy = strings.Join(quoted, ", ")
	}

	filterArgs := map[string]string{}
	var afterToken string
	for k, vs := range r.URL.Query() {
		if len(vs) == 0 {
			continue
		}
		if strings.HasPrefix(k, "_") && !strings.Contains(k, "__") {
			if k == "_after" {
				afterToken = vs[0]
			}
			continue
		}
		filterArgs[k] = vs[0]
	}

	clauses, params, err := querybuilder.Where(filterArgs)
	if err != nil {
		h.writeErr(w, err, entry.Name, entry.Digest)
		return
	}

	whereParts := make([]string, len(clauses))
	for i, c := range clauses {
		whereParts[i] = c.SQL
	}

	if afterToken != "" {
		afterSQL, afterParams, err := buildAfterClause(useRowID, pks, afterToken, len(clauses))
		if err != nil {
			h.writeErr(w, err, entry.Name, entry.Digest)
			return
		}
		if afterSQL != "" {
			whereParts = append(whereParts, afterSQL)
			for k, v := range afterParams {
				params[k] = v
			}
		}
	}

	sqlText := fmt.Sprintf(`select %s from %s`, selectList, querybuilder.QuoteTable(table))
	if len(whereParts) > 0 {
		sqlText += " where " + strings.Join(whereParts, " and ")
	}
	if orderBy != "" {
		sqlText += " order by " + orderBy
	}
	sqlText += fmt.Sprintf(" limit %d", pageSize+config.NextPageOverfetch)

	res, err := h.pool.Execute(r.Context(), entry.Name, sqlText, params)
	if err != nil {
		h.writeErr(w, err, entry.Name, entry.Digest)
		return
	}

	displayColumns := res.Columns
	if useRowID && len(res.Columns) > 0 {
		displayColumns = res.Columns[1:]
	}

	var afterLink string
	dataRows := res.Rows
	if len(dataRows) > pageSize {
		boundary := dataRows[len(dataRows)-2]
		afterLink = cursorFor(useRowID, pks, res.Columns, boundary)
		dataRows = dataRows[:pageSize]
	}

	shape := rowShape(r, f)
	rows := shapeRows(shape, res.Columns, dataRows)

	data := map[string]any{
		"database":        entry.Name,
		"database_hash":   entry.Digest,
		"table":           table,
		"columns":         res.Columns,
		"display_columns": displayColumns,
		"primary_keys":    pks,
		"rows":            rows,
	}
	if kind.isView {
		data["view_definition"] = kind.definition
	} else {
		data["table_definition"] = kind.definition
	}
	if afterLink != "" {
		data["after_link"] = afterLink
	}
	h.writeOK(w, r, start, data)
}

// Row implements spec.md §4.6's RowView.
func (h *Handlers) Row(w http.ResponseWriter, r *http.Request, rawSlug, rawTable, rawPKPath string) {
	pkPath, f := splitFormat(rawPKPath)
	table := strings.ReplaceAll(rawTable, "+", " ")

	entry, ok := h.resolveSlug(w, r, rawSlug, "/"+rawTable+"/"+rawPKPath)
	if !ok {
		return
	}
	start := time.Now()

	pks, err := primaryKeys(r.Context(), h.pool, entry.Name, table)
	if err != nil {
		h.writeErr(w, err, entry.Name, entry.Digest)
		return
	}
	pkNames := pks
	if len(pkNames) == 0 {
		pkNames = []string{"rowid"}
	}

	values, err := querybuilder.DecodeCursor(pkPath)
	if err != nil {
		h.writeErr(w, err, entry.Name, entry.Digest)
		return
	}
	if len(values) != len(pkNames) {
		h.writeErr(w, apperr.NotFound("primary key does not match %q", table), entry.Name, entry.Digest)
		return
	}

	whereParts := make([]string, len(pkNames))
	params := make(map[string]any, len(pkNames))
	for i, name := range pkNames {
		p := fmt.Sprintf("p%d", i)
		whereParts[i] = fmt.Sprintf("%s = :%s", querybuilder.QuoteColumn(name), p)
		params[p] = values[i]
	}

	sqlText := fmt.Sprintf(`select * from %s where %s`,
		querybuilder.QuoteTable(table), strings.Join(whereParts, " and "))

	res, err := h.pool.Execute(r.Context(), entry.Name, sqlText, params)
	if err != nil {
		h.writeErr(w, err, entry.Name, entry.Digest)
		return
	}
	if len(res.Rows) == 0 {
		h.writeErr(w, apperr.NotFound("no such row in %q", table), entry.Name, entry.Digest)
		return
	}

	shape := rowShape(r, f)
	rows := shapeRows(shape, res.Columns, res.Rows)

	h.writeOK(w, r, start, map[string]any{
		"database":           entry.Name,
		"database_hash":      entry.Digest,
		"table":              table,
		"columns":            res.Columns,
		"rows":               rows,
		"primary_key_values": values,
	})
}

// rowShape decides positional-vs-keyed encoding: ".jsono" or
// "_shape=objects" means keyed, "_shape=array" forces positional even
// under jsono, per SPEC_FULL.md §12.
func rowShape(r *http.Request, f format) bool {
	objects := f == formatJSONO
	switch r.URL.Query().Get("_shape") {
	case "objects":
		objects = true
	case "array":
		objects = false
	}
	return objects
}

func shapeRows(objects bool, columns []string, rows [][]any) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		if objects && len(columns) > 0 {
			out[i] = jsonenc.RowObject(columns, row)
		} else {
			out[i] = jsonenc.Row(row)
		}
	}
	return out
}

// buildAfterClause implements the keyset-pagination predicate of
// spec.md §4.6 step 6, using SQLite's row-value comparison syntax for
// the composite-PK case so the tuple comparison is lexicographic in a
// single expression.
func buildAfterClause(useRowID bool, pks []string, afterToken string, startIdx int) (string, map[string]any, error) {
	components, err := querybuilder.DecodeCursor(afterToken)
	if err != nil {
		return "", nil, err
	}
	if useRowID {
		if len(components) != 1 {
			return "", nil, nil
		}
		p := fmt.Sprintf("p%d", startIdx)
		return fmt.Sprintf("rowid > :%s", p), map[string]any{p: components[0]}, nil
	}
	if len(components) != len(pks) || len(pks) == 0 {
		return "", nil, nil
	}

	names := make([]string, len(pks))
	placeholders := make([]string, len(pks))
	params := make(map[string]any, len(pks))
	for i, pk := range pks {
		p := fmt.Sprintf("p%d", startIdx+i)
		names[i] = querybuilder.QuoteColumn(pk)
		placeholders[i] = ":" + p
		params[p] = components[i]
	}
	clause := fmt.Sprintf("(%s) > (%s)", strings.Join(names, ", "), strings.Join(placeholders, ", "))
	return clause, params, nil
}

// cursorFor builds the opaque "after" token for the boundary row of a
// page: its primary-key values in PK order, or its rowid alone.
func cursorFor(useRowID bool, pks []string, columns []string, row []any) string {
	if useRowID {
		if len(row) == 0 {
			return ""
		}
		return querybuilder.EncodeCursor([]any{row[0]})
	}
	values := make([]any, 0, len(pks))
	for _, pk := range pks {
		idx := indexOf(columns, pk)
		if idx < 0 {
			return ""
		}
		values = append(values, row[idx])
	}
	return querybuilder.EncodeCursor(values)
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}
