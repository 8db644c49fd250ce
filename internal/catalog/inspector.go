package catalog

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Esaslow/datasette/internal/apperr"
	"github.com/Esaslow/datasette/internal/querybuilder"
)

// digestBlockSize is the streaming read size used to hash a database
// file without holding the whole thing in memory.
const digestBlockSize = 1 << 20 // 1 MiB

// Inspect opens each path read-only, computes its digest, enumerates its
// tables and their row counts, and returns the resulting Catalog. It is
// a one-shot startup scan: every handle it opens for scanning is closed
// before Inspect returns, regardless of outcome.
//
// Inspect fails with a *apperr.Error (KindStartup) if two paths share the
// same stem, or if any path can't be opened, hashed, or introspected.
func Inspect(paths []string, log *zap.Logger) (*Catalog, error) {
	entries := make([]DatabaseEntry, 0, len(paths))
	seen := make(map[string]string, len(paths))

	for _, path := range paths {
		name := stem(path)
		if prior, dup := seen[name]; dup {
			return nil, apperr.Startup("duplicate database name %q: %s and %s", name, prior, path)
		}
		seen[name] = path

		entry, err := inspectOne(name, path)
		if err != nil {
			return nil, err
		}
		if log != nil {
			log.Info("inspected database",
				zap.String("name", entry.Name),
				zap.String("digest", entry.Digest),
				zap.Int("tables", len(entry.Tables)),
				zap.Int64("rows", entry.TotalRows()),
			)
		}
		entries = append(entries, entry)
	}

	return New(entries), nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func inspectOne(name, path string) (DatabaseEntry, error) {
	digest, err := digestFile(path)
	if err != nil {
		return DatabaseEntry{}, apperr.StartupWrap(fmt.Sprintf("hash database %q", path), err)
	}

	tables, err := scanTables(path)
	if err != nil {
		return DatabaseEntry{}, apperr.StartupWrap(fmt.Sprintf("inspect database %q", path), err)
	}

	return DatabaseEntry{
		Name:     name,
		Digest:   digest,
		FilePath: path,
		Tables:   tables,
	}, nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, digestBlockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// scanTables opens path read-only/immutable, lists its tables from the
// engine's own catalog, counts each one's rows, and releases the handle
// before returning.
func scanTables(path string) (map[string]int64, error) {
	db, err := sql.Open("sqlite3", scanDSN(path))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	tables := make(map[string]int64, len(names))
	for _, n := range names {
		var count int64
		q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, querybuilder.QuoteTable(n))
		if err := db.QueryRow(q).Scan(&count); err != nil {
			return nil, err
		}
		tables[n] = count
	}
	return tables, nil
}

// scanDSN builds a read-only, immutable connection string for the
// one-shot inspection scan.
func scanDSN(path string) string {
	return fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
}
