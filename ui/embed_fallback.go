//go:build !ui_embed

// Package ui serves the embedded web frontend. This fallback build,
// without the ui_embed tag, redirects to the API documentation
// instead.
package ui

import "net/http"

// Handler redirects everything to the OpenAPI docs.
func Handler() (http.Handler, error) {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs", http.StatusFound)
	}), nil
}
