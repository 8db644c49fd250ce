package web

import "strings"

// format is which wire encoding a request asked for via its trailing
// path suffix.
type format int

const (
	formatNone format = iota
	formatJSON
	formatJSONO
)

// splitFormat strips a trailing ".json" or ".jsono" suffix from seg,
// returning the base segment and which format (if any) was requested.
func splitFormat(seg string) (base string, f format) {
	switch {
	case strings.HasSuffix(seg, ".jsono"):
		return strings.TrimSuffix(seg, ".jsono"), formatJSONO
	case strings.HasSuffix(seg, ".json"):
		return strings.TrimSuffix(seg, ".json"), formatJSON
	default:
		return seg, formatNone
	}
}

// splitDBSlugSuffix strips a trailing ".db", ".json", or ".jsono" from
// a database-slug path segment, used only on the single-segment
// "/{dbSlug}" route where all three extensions are legal.
func splitDBSlugSuffix(seg string) (base string, ext string) {
	for _, suffix := range []string{".jsono", ".json", ".db"} {
		if strings.HasSuffix(seg, suffix) {
			return strings.TrimSuffix(seg, suffix), suffix
		}
	}
	return seg, ""
}

// splitSlugHash splits a database slug on its final hyphen into a
// candidate name and provided hash, per spec.md §4.5. It does not
// consult the Catalog; resolveSlug retries with the whole slug as the
// name when the candidate name isn't known.
func splitSlugHash(slug string) (name, providedHash string) {
	idx := strings.LastIndex(slug, "-")
	if idx < 0 {
		return slug, ""
	}
	return slug[:idx], slug[idx+1:]
}
