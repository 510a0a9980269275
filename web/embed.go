// Package web embeds the built chat client (dist/) and serves it as a
// single-page application behind the API routes.
//
// During development dist/ holds only a placeholder; run the client's dev
// server instead and point it at the API.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed all:dist
var clientFS embed.FS

// SPAHandler serves the embedded chat client. Static assets are served
// directly; every unmatched path falls back to index.html so client-side
// routes survive a reload.
func SPAHandler() http.Handler {
	assets, err := fs.Sub(clientFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(assets))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if f, err := assets.Open(path); err == nil {
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("web: failed to close embedded file", "path", path, "error", closeErr)
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		// No matching asset, hand the client router the app shell.
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
