package npm

import (
	"strings"

	"github.com/ije/gox/utils"
	"github.com/ije/gox/valid"
)

var (
	Naming = valid.Validator{valid.Range{'a', 'z'}, valid.Range{'A', 'Z'}, valid.Range{'0', '9'}, valid.Eq('_'), valid.Eq('.'), valid.Eq('-'), valid.Eq('+'), valid.Eq('$'), valid.Eq('!')}
)

// SpecifierKind classifies an import specifier as written in source.
type SpecifierKind int

const (
	// KindBare is a package reference, e.g. "react" or "react-dom/client".
	KindBare SpecifierKind = iota
	// KindRelative starts with ".".
	KindRelative
	// KindAbsolute starts with "/".
	KindAbsolute
	// KindURL starts with a scheme, e.g. "https:", "data:" or "node:".
	KindURL
)

func (k SpecifierKind) String() string {
	switch k {
	case KindRelative:
		return "relative"
	case KindAbsolute:
		return "absolute"
	case KindURL:
		return "url"
	default:
		return "bare"
	}
}

// Package is a package@version pair as enumerated from a lockfile.
type Package struct {
	Name    string
	Version string
}

func (p Package) String() string {
	return p.Name + "@" + p.Version
}

// ClassifySpecifier returns the kind of the given import specifier.
func ClassifySpecifier(specifier string) SpecifierKind {
	switch {
	case strings.HasPrefix(specifier, "."):
		return KindRelative
	case strings.HasPrefix(specifier, "/"):
		return KindAbsolute
	case hasScheme(specifier):
		return KindURL
	default:
		return KindBare
	}
}

// IsBareSpecifier returns true if the specifier names a package.
func IsBareSpecifier(specifier string) bool {
	return specifier != "" && ClassifySpecifier(specifier) == KindBare
}

// SplitSpecifier splits a bare specifier into the package name and the optional sub-path.
// Scoped packages take two segments: "@scope/name/sub" -> ("@scope/name", "sub").
func SplitSpecifier(specifier string) (pkgName string, subPath string) {
	if strings.HasPrefix(specifier, "@") {
		scope, rest := utils.SplitByFirstByte(specifier, '/')
		name, subPath := utils.SplitByFirstByte(rest, '/')
		if name == "" {
			return scope, subPath
		}
		return scope + "/" + name, subPath
	}
	return utils.SplitByFirstByte(specifier, '/')
}

// ValidatePackageName validates the package name.
// based on https://github.com/npm/validate-npm-package-name
func ValidatePackageName(pkgName string) bool {
	if l := len(pkgName); l == 0 || l > 214 {
		return false
	}
	if strings.HasPrefix(pkgName, "@") {
		scope, name := utils.SplitByFirstByte(pkgName, '/')
		return len(scope) > 1 && Naming.Match(scope[1:]) && name != "" && Naming.Match(name) && !isDotName(name)
	}
	return Naming.Match(pkgName) && !isDotName(pkgName)
}

// ValidateSubPath reports whether the sub-path stays inside the package directory.
func ValidateSubPath(subPath string) bool {
	if subPath == "" {
		return true
	}
	if strings.ContainsRune(subPath, '\\') || strings.HasPrefix(subPath, "/") {
		return false
	}
	for _, seg := range strings.Split(subPath, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// splitPackageVersion splits "name@version", keeping the "@" of a scope.
func splitPackageVersion(v string) (string, string) {
	if strings.HasPrefix(v, "@") {
		if i := strings.IndexByte(v[1:], '@'); i > 0 {
			return v[:i+1], v[i+2:]
		}
		return v, ""
	}
	if i := strings.IndexByte(v, '@'); i > 0 {
		return v[:i], v[i+1:]
	}
	return v, ""
}

// stripPeerSuffix removes the peer dependency suffix pnpm appends to versions,
// "18.2.0(react@18.2.0)" or "18.2.0_react@18.2.0" -> "18.2.0".
func stripPeerSuffix(version string) string {
	if i := strings.IndexAny(version, "(_"); i > 0 {
		return version[:i]
	}
	return version
}

func isDotName(name string) bool {
	return name == "." || name == ".." || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func hasScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			continue
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
			continue
		case c == ':' && i > 0:
			return true
		default:
			return false
		}
	}
	return false
}
