package web

import "net/http"

// Renderer is the templating collaborator spec.md §1 names as external
// to the core: a string-in/string-out renderer given a context map.
// Handlers stores the Renderer given to New (which may be nil) but
// never calls it: extensionless requests get the same JSON body a
// ".json" request would.
type Renderer interface {
	Render(w http.ResponseWriter, status int, template string, data, extra map[string]any) error
}

// extraFunc is the shape of the deferred set of template-only fields
// (spec.md §9): a func, so that building it can be skipped entirely
// for JSON responses. No handler in this package builds one.
type extraFunc func() map[string]any
