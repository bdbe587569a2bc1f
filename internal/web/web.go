package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed static
var content embed.FS

// Assets returns the embedded client files rooted at the static directory.
func Assets() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// The directory is part of the binary.
		panic(err)
	}
	return sub
}

// Handler serves the embedded web client. Paths under /static/ map to the
// asset tree and / serves index.html.
func Handler() http.Handler {
	files := http.FileServer(http.FS(Assets()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/static")
		if path == "" || path == "/" || path == "/index.html" {
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeFileFS(w, r, Assets(), "index.html")
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		r2 := r.Clone(r.Context())
		r2.URL.Path = path
		files.ServeHTTP(w, r2)
	})
}
