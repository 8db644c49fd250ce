// Command datasette serves one or more SQLite database files read-only
// over HTTP, publishing their schema and rows as browsable JSON.
package main

import (
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/Esaslow/datasette/internal/app"
	"github.com/Esaslow/datasette/internal/config"
)

func main() {
	opts := config.Default()

	addr := flag.String("addr", opts.Addr, "HTTP listen address")
	workers := flag.Int("workers", opts.Workers, "size of the SQL execution pool")
	timeout := flag.Duration("statement-timeout", opts.StatementTimeout, "per-statement wall-clock deadline")
	pageSize := flag.Int("page-size", opts.PageSize, "default rows per table page")
	maxPageSize := flag.Int("max-page-size", opts.MaxPageSize, "upper bound for ?_size=")
	noCache := flag.Bool("no-cache-headers", false, "disable Cache-Control on successful responses")
	flag.Parse()

	opts.Addr = *addr
	opts.Workers = *workers
	opts.StatementTimeout = *timeout
	opts.PageSize = *pageSize
	opts.MaxPageSize = *maxPageSize
	opts.CacheHeaders = !*noCache
	opts.Paths = flag.Args()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if len(opts.Paths) == 0 {
		log.Fatal("no database files given; usage: datasette [flags] file.db [file2.db ...]")
	}

	srv, err := app.NewServer(opts, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	start := time.Now()
	if err := srv.Run(); err != nil {
		log.Fatal("server exited", zap.Error(err), zap.Duration("uptime", time.Since(start)))
	}
}
