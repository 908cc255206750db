package server

import (
	"net/http"

	"github.com/arashi-dev/arashi/internal/mime"
	"github.com/arashi-dev/arashi/internal/rewriter"
)

// importRewriter tags the bare imports of every JavaScript or HTML response produced by the
// interceptors after it.
func (p *Pipeline) importRewriter(req *Request, next Next) *Response {
	res := next(req)
	if res.Status != http.StatusOK || len(res.Body) == 0 {
		return res
	}
	contentType := res.Header.Get("Content-Type")
	switch {
	case mime.IsJavaScript(contentType):
		res.Body = []byte(rewriter.Rewrite(string(res.Body)))
	case mime.IsHTML(contentType):
		body, err := rewriter.RewriteHTML(res.Body)
		if err != nil {
			p.logger.Warnf("rewrite %s: %v", req.Path, err)
			return res
		}
		res.Body = body
	}
	return res
}
