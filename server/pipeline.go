package server

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/arashi-dev/arashi/internal/deps"
	"github.com/arashi-dev/arashi/internal/resolver"
	"github.com/arashi-dev/arashi/internal/storage"
	"github.com/ije/gox/log"
)

// Request is the request passed through the interceptor chain.
type Request struct {
	*http.Request
	// Path is the cleaned url path.
	Path    string
	RootDir string
}

// Response is a fully buffered response produced by an interceptor.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Next continues the chain with the remaining interceptors.
type Next func(req *Request) *Response

// Interceptor handles a request or delegates it to the next interceptor.
type Interceptor func(req *Request, next Next) *Response

// Pipeline is an ordered chain of interceptors.
type Pipeline struct {
	config       *Config
	logger       *log.Logger
	resolver     *resolver.Resolver
	buildCache   *deps.BuildCache
	moduleCache  storage.Cache
	interceptors []Interceptor
}

// New creates the request pipeline of the dev server:
// dependency routing, import rewriting, language transform and static files.
func New(config *Config, logger *log.Logger) (*Pipeline, error) {
	var bundler deps.Bundler
	switch config.Bundler {
	case "esbuild":
		bundler = &deps.ESBuildBundler{Target: config.BuildTarget, Dir: config.RootDir}
	default:
		bundler = &deps.ExecBundler{Command: config.BundlerCommand, Target: config.BuildTarget, Dir: config.RootDir}
	}
	return newPipeline(config, logger, bundler)
}

func newPipeline(config *Config, logger *log.Logger, bundler deps.Bundler) (*Pipeline, error) {
	if logger == nil {
		logger = &log.Logger{}
	}
	moduleCache, err := storage.OpenCache(config.ModuleCache)
	if err != nil {
		return nil, fmt.Errorf("failed to open module cache(%s): %w", config.ModuleCache, err)
	}

	p := &Pipeline{
		config:      config,
		logger:      logger,
		resolver:    resolver.New(),
		moduleCache: moduleCache,
		buildCache: deps.NewBuildCache(deps.Options{
			CacheDir:    config.CacheDir,
			Bundler:     bundler,
			Concurrency: int(config.BuildConcurrency),
			WaitTime:    secondsToDuration(config.BuildWaitTime),
			Logger:      logger,
		}),
	}
	p.interceptors = []Interceptor{
		p.depsRouter,
		p.importRewriter,
		p.languageTransform,
		p.staticFiles,
	}
	return p, nil
}

// Use appends interceptors to the end of the chain, before the final not-found response.
func (p *Pipeline) Use(interceptors ...Interceptor) {
	p.interceptors = append(p.interceptors, interceptors...)
}

// Handle runs the request through the interceptor chain.
func (p *Pipeline) Handle(r *http.Request) *Response {
	pathname := path.Clean("/" + r.URL.Path)
	// path.Clean drops the trailing slash of directories
	if strings.HasSuffix(r.URL.Path, "/") && pathname != "/" {
		pathname += "/"
	}
	req := &Request{Request: r, Path: pathname, RootDir: p.config.RootDir}
	return p.next(0)(req)
}

func (p *Pipeline) next(i int) Next {
	return func(req *Request) *Response {
		if i >= len(p.interceptors) {
			return errorResponse(http.StatusNotFound, "Not Found")
		}
		return p.interceptors[i](req, p.next(i+1))
	}
}

// ServeHTTP implements the http.Handler interface.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := p.Handle(r)
	header := w.Header()
	for key, values := range res.Header {
		header[key] = values
	}
	if res.Body != nil && res.Status != http.StatusNotModified {
		header.Set("Content-Length", strconv.Itoa(len(res.Body)))
	}
	w.WriteHeader(res.Status)
	if r.Method != http.MethodHead && res.Status != http.StatusNotModified {
		w.Write(res.Body)
	}
}

func newResponse(status int, contentType string, body []byte) *Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &Response{Status: status, Header: header, Body: body}
}

func errorResponse(status int, message string) *Response {
	res := newResponse(status, "text/plain; charset=utf-8", []byte(message))
	res.Header.Set("Cache-Control", ccNoCache)
	return res
}

func notModified(etag string) *Response {
	res := &Response{Status: http.StatusNotModified, Header: http.Header{}}
	res.Header.Set("Etag", etag)
	return res
}
