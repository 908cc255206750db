package mime

import (
	"path"
	"strings"
)

const (
	JavaScript = "application/javascript; charset=utf-8"
	CSS        = "text/css; charset=utf-8"
	HTML       = "text/html; charset=utf-8"
	JSON       = "application/json; charset=utf-8"
	Binary     = "application/octet-stream"
)

// types served as is by the static file interceptor, a trailing ";" adds the utf-8 charset
var mimeExts = map[string][]string{
	"application/javascript;": {"js", "mjs", "cjs"},
	"application/json;":       {"json", "map", "webmanifest"},
	"application/pdf":         {"pdf"},
	"application/wasm":        {"wasm"},
	"application/xml;":        {"xml"},
	"audio/mpeg":              {"mp3"},
	"audio/ogg":               {"ogg", "oga"},
	"audio/wav":               {"wav"},
	"font/otf":                {"otf"},
	"font/ttf":                {"ttf"},
	"font/woff":               {"woff"},
	"font/woff2":              {"woff2"},
	"image/avif":              {"avif"},
	"image/gif":               {"gif"},
	"image/jpeg":              {"jpg", "jpeg"},
	"image/png":               {"png"},
	"image/svg+xml;":          {"svg"},
	"image/webp":              {"webp"},
	"image/x-icon":            {"ico"},
	"text/css":                {"css"},
	"text/csv":                {"csv"},
	"text/html":               {"html", "htm"},
	"text/markdown":           {"md"},
	"text/plain":              {"txt"},
	"video/mp4":               {"mp4"},
	"video/webm":              {"webm"},
}

var mimeMap = map[string]string{}

func init() {
	for k, v := range mimeExts {
		if strings.HasSuffix(k, ";") || strings.HasPrefix(k, "text/") {
			k = strings.TrimSuffix(k, ";") + "; charset=utf-8"
		}
		for _, ext := range v {
			mimeMap["."+ext] = k
		}
	}
	mimeExts = nil
}

// GetContentType returns the content type of the file with the given filename, or
// "application/octet-stream" for unknown extensions.
func GetContentType(filename string) string {
	if ct, ok := mimeMap[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return Binary
}

// IsJavaScript reports whether the content type is a JavaScript module.
func IsJavaScript(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	ct = strings.TrimSpace(ct)
	return ct == "application/javascript" || ct == "text/javascript"
}

// IsHTML reports whether the content type is an HTML document.
func IsHTML(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(ct) == "text/html"
}
