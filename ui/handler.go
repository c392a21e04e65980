// Package ui serves the single-page web client.
package ui

import (
	"fmt"
	"io/fs"
	"net/http"
)

// Handler serves dist/. Paths without a file fall back to index.html.
func Handler() (http.Handler, error) {
	dist, err := fs.Sub(DistFS(), "dist")
	if err != nil {
		return nil, fmt.Errorf("ui dist: %w", err)
	}
	files := http.FileServerFS(dist)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if name != "/" {
			if _, err := fs.Stat(dist, name[1:]); err != nil {
				r2 := r.Clone(r.Context())
				r2.URL.Path = "/"
				files.ServeHTTP(w, r2)
				return
			}
		}
		files.ServeHTTP(w, r)
	}), nil
}
