package mime

import "testing"

func TestGetContentType(t *testing.T) {
	tests := map[string]string{
		"index.html":       HTML,
		"/assets/logo.SVG": "image/svg+xml; charset=utf-8",
		"main.js":          JavaScript,
		"style.css":        CSS,
		"favicon.ico":      "image/x-icon",
		"data.bin":         Binary,
		"Makefile":         Binary,
		"manifest.json":    JSON,
		"font/inter.woff2": "font/woff2",
		"notes/readme.txt": "text/plain; charset=utf-8",
	}
	for filename, want := range tests {
		if got := GetContentType(filename); got != want {
			t.Errorf("GetContentType(%q) = %q, want %q", filename, got, want)
		}
	}
}

func TestIsJavaScript(t *testing.T) {
	if !IsJavaScript(JavaScript) || !IsJavaScript("text/javascript") || !IsJavaScript("application/javascript") {
		t.Fatal("should be javascript")
	}
	if IsJavaScript(CSS) || IsJavaScript("") {
		t.Fatal("should not be javascript")
	}
	if !IsHTML(HTML) || IsHTML(JSON) {
		t.Fatal("invalid html check")
	}
}
