// Package dbpool runs every SQL statement against a fixed, small pool of
// dedicated worker goroutines, each owning its own private SQLite
// connections. This is the same shape as the teacher's
// internal/reactive live-query worker pool generalized from Postgres
// notification fan-out to plain request/response execution, grounded
// additionally on the channel-per-worker pattern in
// other_examples/.../KartikBazzad-bunbase__docdb-internal-pool-pool.go.go.
package dbpool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Esaslow/datasette/internal/apperr"
	"github.com/Esaslow/datasette/internal/catalog"
	"github.com/Esaslow/datasette/internal/config"
)

// Result is the outcome of one executed statement.
type Result struct {
	Columns []string
	Rows    [][]any
}

// job is one unit of work handed to a worker.
type job struct {
	ctx     context.Context
	dbName  string
	sql     string
	params  map[string]any
	timeout time.Duration
	resultC chan<- jobResult
}

type jobResult struct {
	res Result
	err error
}

// Pool is a fixed-size set of worker goroutines, each with its own
// private set of database connections. No connection is ever shared
// across workers, so two statements against the same database can run
// concurrently as long as two different workers pick them up.
type Pool struct {
	cat     *catalog.Catalog
	jobs    chan job
	done    chan struct{}
	workers int
	timeout time.Duration
	log     *zap.Logger
}

// New starts a Pool of opts.Workers goroutines. Cat resolves database
// names to file paths; the pool never opens a connection outside of
// those Cat reports, so serving a path traversal attempt against an
// unknown name fails at Lookup, before any SQL runs.
func New(cat *catalog.Catalog, opts config.Options, log *zap.Logger) *Pool {
	n := opts.Workers
	if n <= 0 {
		n = config.DefaultWorkers
	}
	timeout := opts.StatementTimeout
	if timeout <= 0 {
		timeout = config.DefaultStatementTimeout
	}
	p := &Pool{
		cat:     cat,
		jobs:    make(chan job),
		done:    make(chan struct{}),
		workers: n,
		timeout: timeout,
		log:     log,
	}
	for i := 0; i < n; i++ {
		w := newWorker(i, cat, log)
		go w.run(p.jobs, p.done)
	}
	return p
}

// Close stops every worker, closing each one's private connections.
func (p *Pool) Close() {
	close(p.done)
}

// Execute runs sqlText against dbName with params bound as named
// parameters (":p0", ":p1", ...), enforcing the pool's statement
// timeout as a wall-clock deadline via the SQLite progress handler. It
// blocks until a worker picks up the job and finishes it, or ctx is
// canceled first.
func (p *Pool) Execute(ctx context.Context, dbName, sqlText string, params map[string]any) (Result, error) {
	if _, ok := p.cat.Lookup(dbName); !ok {
		return Result{}, apperr.NotFound("no such database %q", dbName)
	}

	resultC := make(chan jobResult, 1)
	j := job{ctx: ctx, dbName: dbName, sql: sqlText, params: params, timeout: p.timeout, resultC: resultC}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-p.done:
		return Result{}, fmt.Errorf("dbpool: pool closed")
	}

	select {
	case r := <-resultC:
		return r.res, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
