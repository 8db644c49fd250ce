package querybuilder

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Esaslow/datasette/internal/apperr"
)

// EncodeCursor builds the opaque "after" keyset-pagination token for one
// row: its primary-key values (or its rowid, if use_rowid) joined with
// commas, each component percent-encoded. The teacher's
// internal/common.EncodeHandle packed a schema+table+PK-map into a
// single base64 blob; this is the same idea simplified to what spec.md
// §3 asks for — a bare comma-joined, percent-encoded tuple, since the
// table and database are already implied by the request URL.
func EncodeCursor(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = url.QueryEscape(fmt.Sprint(v))
	}
	return strings.Join(parts, ",")
}

// DecodeCursor percent-decodes each comma-separated component of an
// "after" token, in the same order EncodeCursor produced them.
func DecodeCursor(token string) ([]string, error) {
	if token == "" {
		return nil, nil
	}
	rawParts := strings.Split(token, ",")
	out := make([]string, len(rawParts))
	for i, p := range rawParts {
		decoded, err := url.QueryUnescape(p)
		if err != nil {
			return nil, apperr.InvalidSQL("malformed cursor component %q: %v", p, err)
		}
		out[i] = decoded
	}
	return out, nil
}
