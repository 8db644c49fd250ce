package querybuilder

import (
	"testing"

	"github.com/Esaslow/datasette/internal/apperr"
)

func TestWhereDeterministicParamNames(t *testing.T) {
	clauses, params, err := Where(map[string]string{
		"zeta":       "1",
		"alpha__gt":  "5",
		"name__like": "%bob%",
	})
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	if len(clauses) != 3 {
		t.Fatalf("want 3 clauses, got %d", len(clauses))
	}
	// keys sort lexicographically: alpha__gt, name__like, zeta
	if clauses[0].SQL != `"alpha" > :p0` {
		t.Errorf("clause 0 = %q", clauses[0].SQL)
	}
	if clauses[1].SQL != `"name" like :p1` {
		t.Errorf("clause 1 = %q", clauses[1].SQL)
	}
	if clauses[2].SQL != `"zeta" = :p2` {
		t.Errorf("clause 2 = %q", clauses[2].SQL)
	}
	if got, ok := params["p0"].(int64); !ok || got != 5 {
		t.Errorf("p0 = %v, want int64(5)", params["p0"])
	}
}

func TestWhereLookupTemplates(t *testing.T) {
	cases := []struct {
		key, value, wantSQL string
		wantValue           any
	}{
		{"name", "bob", `"name" = :p0`, "bob"},
		{"name__contains", "bob", `"name" like :p0`, "%bob%"},
		{"name__startswith", "bob", `"name" like :p0`, "bob%"},
		{"name__endswith", "bob", `"name" like :p0`, "%bob"},
		{"age__gt", "5", `"age" > :p0`, int64(5)},
		{"age__gte", "5", `"age" >= :p0`, int64(5)},
		{"age__lt", "abc", `"age" < :p0`, "abc"},
		{"age__lte", "5", `"age" <= :p0`, int64(5)},
		{"name__glob", "b*", `"name" glob :p0`, "b*"},
		{"name__like", "b%", `"name" like :p0`, "b%"},
	}
	for _, c := range cases {
		t.Run(c.key, func(t *testing.T) {
			clauses, params, err := Where(map[string]string{c.key: c.value})
			if err != nil {
				t.Fatalf("Where: %v", err)
			}
			if clauses[0].SQL != c.wantSQL {
				t.Errorf("SQL = %q, want %q", clauses[0].SQL, c.wantSQL)
			}
			if params["p0"] != c.wantValue {
				t.Errorf("value = %#v, want %#v", params["p0"], c.wantValue)
			}
		})
	}
}

func TestWhereUnknownLookup(t *testing.T) {
	_, _, err := Where(map[string]string{"name__bogus": "x"})
	if err == nil {
		t.Fatal("want error for unknown lookup")
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindInvalidSQL {
		t.Errorf("want InvalidSQL error, got %v", err)
	}
}

func TestValidateCustomSQL(t *testing.T) {
	ok := []string{
		"select * from t",
		"  SELECT  *  from t",
		"Select 1",
	}
	for _, q := range ok {
		if err := ValidateCustomSQL(q); err != nil {
			t.Errorf("ValidateCustomSQL(%q) = %v, want nil", q, err)
		}
	}

	bad := []string{
		"insert into t values (1)",
		"select * from pragma_table_list",
		"SELECT * FROM PRAGMA_foo",
	}
	for _, q := range bad {
		if err := ValidateCustomSQL(q); err == nil {
			t.Errorf("ValidateCustomSQL(%q) = nil, want error", q)
		}
	}
}

func TestQuoteIdentifier(t *testing.T) {
	cases := map[string]string{
		"users":                 "users",
		"_private":              "_private",
		"camelCase1":            "camelCase1",
		"123_starts_with_digit": "[123_starts_with_digit]",
		"has space":             "[has space]",
		"has-dash":              "[has-dash]",
	}
	for in, want := range cases {
		if got := QuoteIdentifier(in); got != want {
			t.Errorf("QuoteIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQuoteTableAlwaysDoubleQuotes(t *testing.T) {
	if got := QuoteTable("123_starts_with_digits"); got != `"123_starts_with_digits"` {
		t.Errorf("QuoteTable = %q", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	values := []any{"a,b", 42, "needs%encoding"}
	token := EncodeCursor(values)
	decoded, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	want := []string{"a,b", "42", "needs%encoding"}
	if len(decoded) != len(want) {
		t.Fatalf("got %d components, want %d", len(decoded), len(want))
	}
	for i := range want {
		if decoded[i] != want[i] {
			t.Errorf("component %d = %q, want %q", i, decoded[i], want[i])
		}
	}
}

func TestDecodeCursorEmpty(t *testing.T) {
	decoded, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if decoded != nil {
		t.Errorf("decoded = %v, want nil", decoded)
	}
}
