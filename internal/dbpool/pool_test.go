package dbpool

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/Esaslow/datasette/internal/catalog"
	"github.com/Esaslow/datasette/internal/config"
)

// newFixtureDB creates a small on-disk SQLite database with one table
// and returns a Catalog pointing at it and the stem name it will be
// known by.
func newFixtureDB(t *testing.T, name string, rows int) (*catalog.Catalog, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name+".db")

	setup, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer setup.Close()

	_, err = setup.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, label TEXT, weight REAL)`)
	require.NoError(t, err)

	tx, err := setup.Begin()
	require.NoError(t, err)
	stmt, err := tx.Prepare(`INSERT INTO widgets (label, weight) VALUES (?, ?)`)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		_, err := stmt.Exec("widget", float64(i)*1.5)
		require.NoError(t, err)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())

	cat, err := catalog.Inspect([]string{path}, nil)
	require.NoError(t, err)
	return cat, name
}

func TestPoolExecuteSelect(t *testing.T) {
	cat, name := newFixtureDB(t, "widgets", 5)
	opts := config.Default()
	pool := New(cat, opts, nil)
	defer pool.Close()

	res, err := pool.Execute(context.Background(), name, `SELECT id, label FROM "widgets" ORDER BY id`, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "label"}, res.Columns)
	require.Len(t, res.Rows, 5)
	require.Equal(t, "widget", res.Rows[0][1])
}

func TestPoolExecuteNamedParams(t *testing.T) {
	cat, name := newFixtureDB(t, "widgets", 5)
	pool := New(cat, config.Default(), nil)
	defer pool.Close()

	res, err := pool.Execute(context.Background(), name,
		`SELECT id FROM "widgets" WHERE id = :p0`,
		map[string]any{"p0": int64(2)})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, int64(2), res.Rows[0][0])
}

func TestPoolExecuteUnknownDatabase(t *testing.T) {
	cat, _ := newFixtureDB(t, "widgets", 1)
	pool := New(cat, config.Default(), nil)
	defer pool.Close()

	_, err := pool.Execute(context.Background(), "nope", "SELECT 1", nil)
	require.Error(t, err)
}

func TestPoolConcurrentQueries(t *testing.T) {
	cat, name := newFixtureDB(t, "widgets", 50)
	pool := New(cat, config.Default(), nil)
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := pool.Execute(context.Background(), name, `SELECT COUNT(*) FROM "widgets"`, nil)
			require.NoError(t, err)
			require.Equal(t, int64(50), res.Rows[0][0])
		}()
	}
	wg.Wait()
}

func TestPoolStatementTimeout(t *testing.T) {
	cat, name := newFixtureDB(t, "widgets", 2000)
	opts := config.Default()
	opts.StatementTimeout = 1 * time.Millisecond
	pool := New(cat, opts, nil)
	defer pool.Close()

	// A self-join across a few thousand rows burns enough VM
	// instructions for the fine-grained progress handler to catch the
	// 1ms deadline before the query finishes.
	_, err := pool.Execute(context.Background(), name,
		`SELECT COUNT(*) FROM "widgets" a, "widgets" b`, nil)
	require.Error(t, err)
}
