package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/arashi-dev/arashi/internal/mime"
)

// staticFiles serves files of the root directory, then of the public directory.
func (p *Pipeline) staticFiles(req *Request, next Next) *Response {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return next(req)
	}
	filename, fi, ok := p.lookupFile(req.Path)
	if !ok {
		return next(req)
	}

	etag := fmt.Sprintf("w/\"%x-%x\"", fi.ModTime().UnixMilli(), fi.Size())
	if req.Header.Get("If-None-Match") == etag {
		return notModified(etag)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		p.logger.Errorf("read %s: %v", filename, err)
		return errorResponse(http.StatusInternalServerError, "Internal Server Error")
	}
	res := newResponse(http.StatusOK, mime.GetContentType(filename), data)
	res.Header.Set("Cache-Control", ccMustRevalidate)
	res.Header.Set("Etag", etag)
	return res
}

// lookupFile finds the file of the url path in the static roots. Directories resolve to
// their index.html.
func (p *Pipeline) lookupFile(pathname string) (string, os.FileInfo, bool) {
	for _, root := range []string{p.config.RootDir, p.config.PublicDir} {
		if root == "" {
			continue
		}
		filename := filepath.Join(root, filepath.FromSlash(pathname))
		// stay inside the root
		if rel, err := filepath.Rel(root, filename); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		fi, err := os.Stat(filename)
		if err == nil && fi.IsDir() {
			filename = filepath.Join(filename, "index.html")
			fi, err = os.Stat(filename)
		}
		if err == nil && fi.Mode().IsRegular() {
			return filename, fi, true
		}
	}
	return "", nil, false
}
