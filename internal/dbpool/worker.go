package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Esaslow/datasette/internal/apperr"
	"github.com/Esaslow/datasette/internal/catalog"
	"github.com/Esaslow/datasette/internal/config"
)

// worker owns one private *sql.DB per database it has been asked to
// query. Handles are opened lazily on first use and never shared with
// another worker, matching the teacher's per-connection ownership
// model in internal/reactive (one registry entry, one set of
// subscribers, no cross-goroutine handle sharing).
type worker struct {
	id    int
	cat   *catalog.Catalog
	conns map[string]*sql.DB
	log   *zap.Logger
}

func newWorker(id int, cat *catalog.Catalog, log *zap.Logger) *worker {
	return &worker{id: id, cat: cat, conns: make(map[string]*sql.DB), log: log}
}

func (w *worker) run(jobs <-chan job, done <-chan struct{}) {
	defer w.closeAll()
	for {
		select {
		case j := <-jobs:
			res, err := w.execute(j)
			j.resultC <- jobResult{res: res, err: err}
		case <-done:
			return
		}
	}
}

func (w *worker) closeAll() {
	for _, db := range w.conns {
		db.Close()
	}
}

// connFor returns this worker's private handle for dbName, opening it
// read-only and immutable on first use.
func (w *worker) connFor(dbName string) (*sql.DB, error) {
	if db, ok := w.conns[dbName]; ok {
		return db, nil
	}
	entry, ok := w.cat.Lookup(dbName)
	if !ok {
		return nil, apperr.NotFound("no such database %q", dbName)
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1&_query_only=1", entry.FilePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperr.Execution(fmt.Errorf("open %q: %w", dbName, err))
	}
	db.SetMaxOpenConns(1)
	w.conns[dbName] = db
	return db, nil
}

// execute runs one statement to completion, enforcing j.timeout as a
// wall-clock deadline via the driver's progress handler. It deliberately
// never uses j.ctx (the awaiting request's context) for the query
// itself: spec.md §5 requires that canceling an HTTP request does not
// abort an in-flight statement, only the deadline does, so the
// statement runs against a detached context and lives or dies solely by
// the progress-handler deadline below.
func (w *worker) execute(j job) (Result, error) {
	db, err := w.connFor(j.dbName)
	if err != nil {
		return Result{}, err
	}

	conn, err := db.Conn(context.Background())
	if err != nil {
		return Result{}, apperr.Execution(fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Close()

	deadline := time.Now().Add(j.timeout)
	interval := config.ProgressHandlerInterval(j.timeout)
	if err := conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type %T", driverConn)
		}
		sc.RegisterProgressHandler(interval, func() bool {
			return time.Now().After(deadline)
		})
		return nil
	}); err != nil {
		return Result{}, apperr.Execution(fmt.Errorf("register progress handler: %w", err))
	}
	defer conn.Raw(func(driverConn any) error {
		if sc, ok := driverConn.(*sqlite3.SQLiteConn); ok {
			sc.RemoveProgressHandler()
		}
		return nil
	})

	args := make([]any, 0, len(j.params))
	for name, value := range j.params {
		args = append(args, sql.Named(name, value))
	}

	rows, err := conn.QueryContext(context.Background(), j.sql, args...)
	if err != nil {
		if isInterrupted(err) {
			return Result{}, apperr.Execution(fmt.Errorf("statement exceeded %s timeout", j.timeout))
		}
		return Result{}, apperr.Execution(err)
	}
	defer rows.Close()

	res, err := scanRows(rows)
	if err != nil {
		if isInterrupted(err) {
			return Result{}, apperr.Execution(fmt.Errorf("statement exceeded %s timeout", j.timeout))
		}
		return Result{}, apperr.Execution(err)
	}
	return res, nil
}

// isInterrupted reports whether err is SQLite's response to the
// progress handler returning true (query aborted mid-execution).
func isInterrupted(err error) bool {
	sqliteErr, ok := err.(sqlite3.Error)
	return ok && sqliteErr.Code == sqlite3.ErrInterrupt
}
