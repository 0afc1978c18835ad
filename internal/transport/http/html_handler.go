package http

import (
	"io/fs"
	"net/http"
)

// ServeDashboard serves the embedded dashboard page from the given
// filesystem. Unknown paths fall through to index.html so reloading the
// page keeps working.
func ServeDashboard(webFS fs.FS) http.HandlerFunc {
	fileServer := http.FileServer(http.FS(webFS))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			if _, err := fs.Stat(webFS, r.URL.Path[1:]); err != nil {
				r.URL.Path = "/"
			}
		}
		fileServer.ServeHTTP(w, r)
	}
}
