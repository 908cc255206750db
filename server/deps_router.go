package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/arashi-dev/arashi/internal/deps"
	"github.com/arashi-dev/arashi/internal/mime"
	"github.com/arashi-dev/arashi/internal/npm"
	"github.com/arashi-dev/arashi/internal/resolver"
	"github.com/arashi-dev/arashi/internal/rewriter"
	"github.com/goccy/go-json"
)

// depsRouter serves `/@modules/<specifier>` requests with the built artifact of the specifier.
func (p *Pipeline) depsRouter(req *Request, next Next) *Response {
	if req.Path == statusPath {
		return p.serveStatus(req)
	}
	if !strings.HasPrefix(req.Path, rewriter.ModulesPrefix) {
		return next(req)
	}

	specifier := strings.TrimSuffix(strings.TrimPrefix(req.Path, rewriter.ModulesPrefix), "/")
	artifact, ok := p.buildCache.Lookup(specifier)
	if !ok {
		entry, err := p.resolver.Resolve(req.RootDir, specifier)
		if err != nil {
			return p.depsError(req, specifier, err)
		}
		artifact, err = p.buildCache.GetOrBuild(req.Context(), specifier, entry)
		if err != nil {
			return p.depsError(req, specifier, err)
		}
	}
	return p.serveArtifact(req, specifier, artifact)
}

func (p *Pipeline) serveArtifact(req *Request, specifier string, artifact string) *Response {
	cacheKey := "deps:" + specifier
	code, err := p.moduleCache.Get(cacheKey)
	if err != nil {
		code, err = os.ReadFile(artifact)
		if err != nil {
			p.logger.Errorf("read artifact of '%s': %v", specifier, err)
			return errorResponse(http.StatusInternalServerError, "Internal Server Error")
		}
		p.moduleCache.Set(cacheKey, code)
	}

	etag := contentETag(code)
	if req.Header.Get("If-None-Match") == etag {
		return notModified(etag)
	}
	res := newResponse(http.StatusOK, mime.JavaScript, code)
	res.Header.Set("Cache-Control", ccMustRevalidate)
	res.Header.Set("Etag", etag)
	return res
}

// depsError maps resolution and build errors to http statuses.
func (p *Pipeline) depsError(req *Request, specifier string, err error) *Response {
	var parseErr *npm.ManifestParseError
	var buildErr *deps.BuildError
	switch {
	case errors.Is(err, npm.ErrNoLockfile):
		p.logger.Errorf("resolve '%s': %v", specifier, err)
		return errorResponse(http.StatusInternalServerError, "Configuration Error: "+err.Error())
	case errors.As(err, &parseErr):
		p.logger.Errorf("resolve '%s': %v", specifier, err)
		return errorResponse(http.StatusInternalServerError, err.Error())
	case errors.Is(err, resolver.ErrInvalidSpecifier):
		return errorResponse(http.StatusBadRequest, err.Error())
	case errors.Is(err, resolver.ErrPackageNotFound), errors.Is(err, resolver.ErrEntryNotFound):
		p.logger.Warnf("resolve '%s': %v", specifier, err)
		return errorResponse(http.StatusNotFound, err.Error())
	case errors.As(err, &buildErr):
		return errorResponse(http.StatusInternalServerError, buildErr.Error())
	case errors.Is(err, deps.ErrBuildTimeout):
		p.logger.Warnf("build '%s': %v", specifier, err)
		return errorResponse(http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// the client is gone
		return &Response{Status: http.StatusServiceUnavailable, Header: http.Header{}}
	default:
		p.logger.Errorf("serve '%s': %v", req.Path, err)
		return errorResponse(http.StatusInternalServerError, "Internal Server Error")
	}
}

type statusInfo struct {
	Version  string              `json:"version"`
	RootDir  string              `json:"rootDir"`
	Layout   string              `json:"layout"`
	Error    string              `json:"error,omitempty"`
	Cached   map[string]string   `json:"cached"`
	Building []deps.BuildingTask `json:"building"`
}

func (p *Pipeline) serveStatus(req *Request) *Response {
	snapshot := p.buildCache.Snapshot()
	info := statusInfo{
		Version:  VERSION,
		RootDir:  req.RootDir,
		Layout:   npm.LayoutUnknown.String(),
		Cached:   snapshot.Cached,
		Building: snapshot.Building,
	}
	if lock, err := p.resolver.Lockfile(req.RootDir); err == nil {
		info.Layout = lock.Layout.String()
	} else {
		info.Error = err.Error()
	}
	data, err := json.Marshal(info)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err.Error())
	}
	res := newResponse(http.StatusOK, mime.JSON, data)
	res.Header.Set("Cache-Control", ccNoCache)
	return res
}
