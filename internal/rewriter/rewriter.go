package rewriter

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/arashi-dev/arashi/internal/npm"
	"golang.org/x/net/html"
)

// ModulesPrefix is the routing prefix of rewritten bare specifiers.
const ModulesPrefix = "/@modules/"

var (
	// import x from "x", import { a, b } from "x", export * from "x", etc.
	regexpFromClause = regexp.MustCompile(`(?m)(?:^|;)[ \t]*(?:import|export)(?:\s+type)?[\s{*][^'";]*?\bfrom\s*(["'])([^"'\r\n]+)["']`)
	// import "x"
	regexpSideEffect = regexp.MustCompile(`(?m)(?:^|;)[ \t]*import\s*(["'])([^"'\r\n]+)["']`)
	// import("x")
	regexpDynamic = regexp.MustCompile(`\bimport\(\s*(["'])([^"'\r\n]+)["']\s*\)`)
)

// Rewrite prefixes the bare specifiers of the top-level import and export statements with
// ModulesPrefix. Relative, absolute and URL specifiers are left untouched, so rewriting an
// already rewritten source is a no-op.
func Rewrite(source string) string {
	for _, re := range []*regexp.Regexp{regexpFromClause, regexpSideEffect, regexpDynamic} {
		source = replaceSpecifiers(re, source)
	}
	return source
}

func replaceSpecifiers(re *regexp.Regexp, source string) string {
	matches := re.FindAllStringSubmatchIndex(source, -1)
	if len(matches) == 0 {
		return source
	}
	var sb strings.Builder
	sb.Grow(len(source) + len(matches)*len(ModulesPrefix))
	offset := 0
	for _, m := range matches {
		// m[4]:m[5] is the specifier group
		start, end := m[4], m[5]
		specifier := source[start:end]
		if !npm.IsBareSpecifier(specifier) {
			continue
		}
		sb.WriteString(source[offset:start])
		sb.WriteString(ModulesPrefix)
		sb.WriteString(specifier)
		offset = end
	}
	sb.WriteString(source[offset:])
	return sb.String()
}

// RewriteHTML rewrites the inline `<script type="module">` contents of an HTML document.
func RewriteHTML(data []byte) ([]byte, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(data))
	buf := bytes.NewBuffer(make([]byte, 0, len(data)))
	inModuleScript := false
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			if err := tokenizer.Err(); err != io.EOF {
				return nil, err
			}
			break
		}
		// TagName and TagAttr lower-case the underlying buffer in place
		raw := bytes.Clone(tokenizer.Raw())
		switch tt {
		case html.StartTagToken:
			tagName, moreAttr := tokenizer.TagName()
			if string(tagName) == "script" {
				inModuleScript = false
				for moreAttr {
					var key, val []byte
					key, val, moreAttr = tokenizer.TagAttr()
					if string(key) == "type" && string(val) == "module" {
						inModuleScript = true
					}
				}
			}
			buf.Write(raw)
		case html.TextToken:
			if inModuleScript {
				buf.WriteString(Rewrite(string(raw)))
			} else {
				buf.Write(raw)
			}
		case html.EndTagToken:
			inModuleScript = false
			buf.Write(raw)
		default:
			buf.Write(raw)
		}
	}
	return buf.Bytes(), nil
}
