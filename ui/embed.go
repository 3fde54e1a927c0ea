//go:build ui_embed

// Package ui serves the embedded web frontend.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// The frontend build output is compiled in with:
//
//	go build -tags ui_embed .
//
// after producing ui/dist with the frontend toolchain.

//go:embed all:dist
var distFS embed.FS

// Handler serves the embedded frontend. Paths that don't match a file
// and carry no extension fall back to index.html so client-side routes
// survive a reload.
func Handler() (http.Handler, error) {
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		return nil, err
	}
	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := path.Clean(r.URL.Path)
		if f, err := fsys.Open(strings.TrimPrefix(p, "/")); err == nil {
			stat, statErr := f.Stat()
			_ = f.Close()
			if statErr == nil && !stat.IsDir() {
				fileServer.ServeHTTP(w, r)
				return
			}
		}
		if !strings.Contains(path.Base(p), ".") {
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	}), nil
}
