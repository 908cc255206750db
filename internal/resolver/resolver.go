package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/arashi-dev/arashi/internal/npm"
	syncx "github.com/ije/gox/sync"
)

var (
	ErrInvalidSpecifier = errors.New("invalid specifier")
	ErrPackageNotFound  = errors.New("package not found")
	ErrEntryNotFound    = errors.New("entry not found")
)

// probeSuffixes are tried in order against a sub-path or a manifest field value.
var probeSuffixes = []string{"", ".js", ".ts", "/index.js", "/index.ts"}

// Resolver maps bare import specifiers to files in the install tree of a project root.
// The lockfile of each root is read once and kept for the life of the resolver.
type Resolver struct {
	lockMutex syncx.KeyedMutex
	lockfiles sync.Map
}

// New returns a new Resolver.
func New() *Resolver {
	return &Resolver{}
}

// Lockfile returns the parsed lockfile of the given root directory.
// Failures are not cached so that a later install is picked up.
func (r *Resolver) Lockfile(rootDir string) (*npm.Lockfile, error) {
	if v, ok := r.lockfiles.Load(rootDir); ok {
		return v.(*npm.Lockfile), nil
	}

	unlock := r.lockMutex.Lock(rootDir)
	defer unlock()

	// check again after lock
	if v, ok := r.lockfiles.Load(rootDir); ok {
		return v.(*npm.Lockfile), nil
	}

	lock, err := npm.ReadLockfile(rootDir)
	if err != nil {
		return nil, err
	}
	r.lockfiles.Store(rootDir, lock)
	return lock, nil
}

// Resolve returns the absolute path of the file that answers the bare specifier.
func (r *Resolver) Resolve(rootDir string, specifier string) (string, error) {
	pkgName, subPath := npm.SplitSpecifier(specifier)
	if !npm.IsBareSpecifier(specifier) || !npm.ValidatePackageName(pkgName) || !npm.ValidateSubPath(subPath) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSpecifier, specifier)
	}

	pkgDir, err := r.PackageDir(rootDir, pkgName)
	if err != nil {
		return "", err
	}

	if subPath != "" {
		if filename, ok := probe(filepath.Join(pkgDir, filepath.FromSlash(subPath))); ok {
			return filename, nil
		}
	}

	pkgJson, err := npm.ReadPackageJSON(pkgDir)
	if err != nil {
		if os.IsNotExist(err) {
			if filename, ok := probe(filepath.Join(pkgDir, "index.js")); ok {
				return filename, nil
			}
			return "", fmt.Errorf("%w: %s", ErrEntryNotFound, specifier)
		}
		return "", err
	}

	entries := []string{}
	if subPath != "" {
		if entry, ok := pkgJson.ExportEntry("./" + subPath); ok {
			entries = append(entries, entry)
		}
	}
	// a sub-path that matches nothing falls back to the package entry
	entries = append(entries, pkgJson.Module, pkgJson.Main)
	if entry, ok := pkgJson.ExportEntry("."); ok {
		entries = append(entries, entry)
	}
	entries = append(entries, "index.js")
	for _, entry := range entries {
		if filename, ok := probeField(pkgDir, entry); ok {
			return filename, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrEntryNotFound, specifier)
}

// PackageDir returns the install directory of the package under the given root directory.
func (r *Resolver) PackageDir(rootDir string, pkgName string) (string, error) {
	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return "", err
	}
	lock, err := r.Lockfile(rootDir)
	if err != nil {
		return "", err
	}

	nodeModules := filepath.Join(rootDir, "node_modules")
	switch lock.Layout {
	case npm.LayoutPnpm:
		storeDir := filepath.Join(nodeModules, ".pnpm")
		dir := filepath.Join(storeDir, "node_modules", filepath.FromSlash(pkgName))
		if isDir(dir) {
			return dir, nil
		}
		for _, entry := range findStoreEntries(storeDir, pkgName, lock.Versions(pkgName)) {
			dir = filepath.Join(storeDir, entry, "node_modules", filepath.FromSlash(pkgName))
			if isDir(dir) {
				return dir, nil
			}
		}
	case npm.LayoutNpm:
		dir := filepath.Join(nodeModules, filepath.FromSlash(pkgName))
		if isDir(dir) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPackageNotFound, pkgName)
}

// findStoreEntries returns the "<name>@<version>" entries of the pnpm store, ranked: versions
// pinned in the lockfile first, then the highest semver, then the lexically greatest name.
func findStoreEntries(storeDir string, pkgName string, lockedVersions []string) []string {
	dirEntries, err := os.ReadDir(storeDir)
	if err != nil {
		return nil
	}

	// scoped packages are stored as "@scope+name@version"
	prefix := strings.ReplaceAll(pkgName, "/", "+") + "@"
	type candidate struct {
		name    string
		version *semver.Version
		locked  bool
	}
	var candidates []candidate
	for _, entry := range dirEntries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		version := trimPeerSuffix(name[len(prefix):])
		c := candidate{name: name}
		for _, v := range lockedVersions {
			if v == version {
				c.locked = true
				break
			}
		}
		if v, err := semver.NewVersion(version); err == nil {
			c.version = v
		}
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.locked != b.locked {
			return a.locked
		}
		if a.version != nil && b.version != nil && !a.version.Equal(b.version) {
			return a.version.GreaterThan(b.version)
		}
		if (a.version == nil) != (b.version == nil) {
			return a.version != nil
		}
		return a.name > b.name
	})
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names
}

// trimPeerSuffix strips the peer dependency part of a store entry,
// "18.2.0_react@18.2.0" -> "18.2.0".
func trimPeerSuffix(version string) string {
	if i := strings.IndexAny(version, "_("); i > 0 {
		return version[:i]
	}
	return version
}

func probeField(pkgDir string, field string) (string, bool) {
	if field == "" {
		return "", false
	}
	p := filepath.FromSlash(strings.TrimPrefix(field, "./"))
	if filepath.IsAbs(p) || p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return "", false
	}
	return probe(filepath.Join(pkgDir, p))
}

func probe(base string) (string, bool) {
	for _, suffix := range probeSuffixes {
		filename := base + filepath.FromSlash(suffix)
		if fi, err := os.Stat(filename); err == nil && fi.Mode().IsRegular() {
			return filename, true
		}
	}
	return "", false
}

func isDir(dir string) bool {
	fi, err := os.Stat(dir)
	return err == nil && fi.IsDir()
}
