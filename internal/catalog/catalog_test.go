package catalog

import "testing"

func TestDigestPrefix(t *testing.T) {
	e := DatabaseEntry{Digest: "a1b2c3d4e5f6"}
	if got := e.DigestPrefix(); got != "a1b2c3d" {
		t.Errorf("DigestPrefix() = %q, want %q", got, "a1b2c3d")
	}
}

func TestDigestPrefixShortDigest(t *testing.T) {
	e := DatabaseEntry{Digest: "abc"}
	if got := e.DigestPrefix(); got != "abc" {
		t.Errorf("DigestPrefix() = %q, want %q", got, "abc")
	}
}

func TestTableNamesSorted(t *testing.T) {
	e := DatabaseEntry{Tables: map[string]int64{"zeta": 1, "alpha": 2, "mid": 3}}
	got := e.TableNames()
	want := []string{"alpha", "mid", "zeta"}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("TableNames()[%d] = %q, want %q", i, got[i], w)
		}
	}
}

func TestTotalRows(t *testing.T) {
	e := DatabaseEntry{Tables: map[string]int64{"a": 3, "b": 4}}
	if got := e.TotalRows(); got != 7 {
		t.Errorf("TotalRows() = %d, want 7", got)
	}
}

func TestTopTablesOrdersByRowsThenName(t *testing.T) {
	e := DatabaseEntry{Tables: map[string]int64{
		"a": 10, "b": 10, "c": 5, "d": 100, "e": 1,
	}}
	got := e.TopTables(3)
	want := []string{"d", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Name != w {
			t.Errorf("TopTables()[%d].Name = %q, want %q", i, got[i].Name, w)
		}
	}
}

func TestCatalogListSortedByName(t *testing.T) {
	c := New([]DatabaseEntry{{Name: "zeta"}, {Name: "alpha"}})
	got := c.List()
	if got[0].Name != "alpha" || got[1].Name != "zeta" {
		t.Errorf("List() = %+v, want alpha before zeta", got)
	}
}

func TestCatalogLookupMiss(t *testing.T) {
	c := New(nil)
	if _, ok := c.Lookup("nope"); ok {
		t.Error("Lookup() ok = true, want false")
	}
}
