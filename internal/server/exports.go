package server

import (
	"net/http"
	"os"
	"path/filepath"
)

// exportHandler serves written export documents and saved reports from the
// export directory. Paths are flattened to their base name so clients
// cannot walk the tree.
type exportHandler struct {
	dir string
}

func newExportHandler(dir string) *exportHandler {
	return &exportHandler{dir: dir}
}

func (h *exportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(r.URL.Path)
	ext := filepath.Ext(filename)
	if filename == "." || filename == "/" || (ext != ".json" && ext != ".txt") {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.dir, filename)
	if !fileExists(path) {
		http.NotFound(w, r)
		return
	}

	if ext == ".txt" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	http.ServeFile(w, r, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
