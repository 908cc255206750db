package server

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/arashi-dev/arashi/internal/deps"
	"github.com/arashi-dev/arashi/internal/mime"
	esbuild "github.com/evanw/esbuild/pkg/api"
	"github.com/goccy/go-json"
)

var transformLoaders = map[string]esbuild.Loader{
	".ts":  esbuild.LoaderTS,
	".mts": esbuild.LoaderTS,
	".tsx": esbuild.LoaderTSX,
	".jsx": esbuild.LoaderJSX,
}

// TransformOptions configures the source transform of first-party modules.
type TransformOptions struct {
	Target          string
	JSX             string
	JSXImportSource string
}

// TransformError reports a syntax error of a first-party module.
type TransformError struct {
	Filename string
	Messages []esbuild.Message
}

func (e *TransformError) Error() string {
	msgs := esbuild.FormatMessages(e.Messages, esbuild.FormatMessagesOptions{Kind: esbuild.ErrorMessage})
	return fmt.Sprintf("failed to transform %s:\n%s", e.Filename, strings.TrimSpace(strings.Join(msgs, "")))
}

// Transform transpiles TypeScript or JSX source text into a plain ES module.
func Transform(source []byte, filename string, options TransformOptions) ([]byte, error) {
	loader, ok := transformLoaders[path.Ext(filename)]
	if !ok {
		loader = esbuild.LoaderJS
	}
	target, ok := deps.Targets[options.Target]
	if !ok {
		target = esbuild.ES2020
	}
	jsx := esbuild.JSXAutomatic
	if options.JSX == "classic" {
		jsx = esbuild.JSXTransform
	}
	ret := esbuild.Transform(string(source), esbuild.TransformOptions{
		Loader:          loader,
		Format:          esbuild.FormatESModule,
		Target:          target,
		Platform:        esbuild.PlatformBrowser,
		JSX:             jsx,
		JSXDev:          jsx == esbuild.JSXAutomatic,
		JSXImportSource: options.JSXImportSource,
		Sourcefile:      filename,
		LogLevel:        esbuild.LogLevelSilent,
	})
	if len(ret.Errors) > 0 {
		return nil, &TransformError{Filename: filename, Messages: ret.Errors}
	}
	return ret.Code, nil
}

// languageTransform serves TypeScript, JSX and CSS module requests as JavaScript.
func (p *Pipeline) languageTransform(req *Request, next Next) *Response {
	query := req.URL.Query()
	if query.Has("raw") {
		return next(req)
	}
	switch ext := path.Ext(req.Path); ext {
	case ".ts", ".mts", ".tsx", ".jsx":
		filename, fi, ok := p.lookupFile(req.Path)
		if !ok {
			return next(req)
		}
		return p.serveModule(req, filename, fi)
	case ".css":
		if query.Has("module") || req.Header.Get("Sec-Fetch-Dest") == "script" {
			filename, _, ok := p.lookupFile(req.Path)
			if !ok {
				return next(req)
			}
			return p.serveCSSModule(req, filename)
		}
	}
	return next(req)
}

func (p *Pipeline) serveModule(req *Request, filename string, fi os.FileInfo) *Response {
	target := p.config.TransformTarget
	auto := target == "auto"
	if auto {
		target = getTargetByUA(req.UserAgent(), p.config.BuildTarget)
	}

	etag := fmt.Sprintf("w/\"%x-%x-%s-%s\"", fi.ModTime().UnixMilli(), fi.Size(), target, p.config.JSX)
	if req.Header.Get("If-None-Match") == etag {
		return notModified(etag)
	}

	cacheKey := fmt.Sprintf("module-%s?target=%s", req.Path, target)
	etagCacheKey := cacheKey + ".etag"
	js, err := p.moduleCache.Get(cacheKey)
	if err == nil {
		if e, err := p.moduleCache.Get(etagCacheKey); err != nil || string(e) != etag {
			js = nil
		}
	}
	if js == nil {
		source, err := os.ReadFile(filename)
		if err != nil {
			p.logger.Errorf("read %s: %v", filename, err)
			return errorResponse(http.StatusInternalServerError, "Internal Server Error")
		}
		js, err = Transform(source, filename, TransformOptions{
			Target:          target,
			JSX:             p.config.JSX,
			JSXImportSource: p.config.JSXImportSource,
		})
		if err != nil {
			p.logger.Error(err)
			return errorResponse(http.StatusInternalServerError, err.Error())
		}
		p.moduleCache.Set(cacheKey, js)
		p.moduleCache.Set(etagCacheKey, []byte(etag))
	}

	res := newResponse(http.StatusOK, mime.JavaScript, js)
	res.Header.Set("Cache-Control", ccMustRevalidate)
	res.Header.Set("Etag", etag)
	if auto {
		appendVaryHeader(res.Header, "User-Agent")
	}
	return res
}

// serveCSSModule serves a css file as a module that injects a `<style>` element and
// exports the css text.
func (p *Pipeline) serveCSSModule(req *Request, filename string) *Response {
	ret := esbuild.Build(esbuild.BuildOptions{
		EntryPoints:   []string{filename},
		AbsWorkingDir: p.config.RootDir,
		Write:         false,
		Bundle:        true,
		LogLevel:      esbuild.LogLevelSilent,
		// urls are kept as is, the browser resolves them against the css file
		External: []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg", "*.webp", "*.avif", "*.woff", "*.woff2", "*.ttf", "*.otf"},
	})
	if len(ret.Errors) > 0 {
		err := &TransformError{Filename: filename, Messages: ret.Errors}
		p.logger.Error(err)
		return errorResponse(http.StatusInternalServerError, err.Error())
	}
	css := bytes.TrimSpace(ret.OutputFiles[0].Contents)
	etag := contentETag(css)
	if req.Header.Get("If-None-Match") == etag {
		return notModified(etag)
	}
	cssString, err := json.Marshal(string(css))
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err.Error())
	}

	buf := bytes.NewBuffer(nil)
	buf.WriteString("const css = ")
	buf.Write(cssString)
	buf.WriteString(";\n")
	buf.WriteString("const id = ")
	idString, _ := json.Marshal(req.Path)
	buf.Write(idString)
	buf.WriteString(";\n")
	buf.WriteString(`let style = document.querySelector("style[data-module-id=" + JSON.stringify(id) + "]");` + "\n")
	buf.WriteString(`if (!style) { style = document.head.appendChild(document.createElement("style")); style.dataset.moduleId = id; }` + "\n")
	buf.WriteString("style.textContent = css;\n")
	buf.WriteString("export default css;\n")

	res := newResponse(http.StatusOK, mime.JavaScript, buf.Bytes())
	res.Header.Set("Cache-Control", ccMustRevalidate)
	res.Header.Set("Etag", etag)
	return res
}
