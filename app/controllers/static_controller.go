package controllers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"postboard/logger"
)

// IndexFile is served for "/" and for any path without a matching file
const IndexFile = "index.html"

// StaticController serves the single page front end
type StaticController struct {
	dir    string
	logger *logger.Logger
}

func NewStaticController(dir string, log *logger.Logger) *StaticController {
	if log == nil {
		log = logger.Nop()
	}
	return &StaticController{dir: dir, logger: log.WithComponent("static")}
}

// ServeHTTP serves the requested file if it exists and is a regular file,
// otherwise index.html so client side routes resolve.
func (sc *StaticController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r.URL.Path) {
		sendError(w, "not found", http.StatusNotFound)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name != "" && sc.serveFile(w, r, name) {
		return
	}
	if !sc.serveFile(w, r, IndexFile) {
		http.NotFound(w, r)
	}
}

// serveFile writes dir/name and reports whether it was a servable file
func (sc *StaticController) serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	full := filepath.Join(sc.dir, filepath.FromSlash(name))
	f, err := os.Open(full)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			sc.logger.Warnw("Failed to open static file", "path", full, "error", err.Error())
		}
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

func isAPIRequest(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/")
}
