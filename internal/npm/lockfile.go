package npm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	PnpmLockfile = "pnpm-lock.yaml"
	NpmLockfile  = "package-lock.json"
)

// ErrNoLockfile is returned when no supported package manager lockfile is found.
var ErrNoLockfile = errors.New("no lockfile found, please run `npm install` or `pnpm install` first")

// ManifestParseError reports a malformed lockfile or package manifest.
type ManifestParseError struct {
	Filename string
	Err      error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Filename, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// Layout is the on-disk directory convention of a package manager.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutPnpm
	LayoutNpm
)

func (l Layout) String() string {
	switch l {
	case LayoutPnpm:
		return "pnpm"
	case LayoutNpm:
		return "npm"
	default:
		return "unknown"
	}
}

// Lockfile is the parsed lockfile of a project root.
type Lockfile struct {
	Layout   Layout
	Filename string
	// Packages are the installed package@version pairs, sorted by name then version.
	Packages []Package
}

// Versions returns the locked versions of the given package.
func (l *Lockfile) Versions(pkgName string) []string {
	var versions []string
	for _, p := range l.Packages {
		if p.Name == pkgName {
			versions = append(versions, p.Version)
		}
	}
	return versions
}

// DetectLayout probes the root directory for a pnpm lockfile and then an npm lockfile.
func DetectLayout(rootDir string) (Layout, error) {
	lock, err := ReadLockfile(rootDir)
	if err != nil {
		return LayoutUnknown, err
	}
	return lock.Layout, nil
}

// ReadLockfile detects the package layout of the root directory and enumerates the
// installed packages recorded by its lockfile.
func ReadLockfile(rootDir string) (*Lockfile, error) {
	filename := filepath.Join(rootDir, PnpmLockfile)
	data, err := os.ReadFile(filename)
	if err == nil {
		packages, err := ParsePnpmLock(data)
		if err != nil {
			return nil, &ManifestParseError{Filename: filename, Err: err}
		}
		return &Lockfile{Layout: LayoutPnpm, Filename: filename, Packages: packages}, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	filename = filepath.Join(rootDir, NpmLockfile)
	data, err = os.ReadFile(filename)
	if err == nil {
		packages, err := ParseNpmLock(data)
		if err != nil {
			return nil, &ManifestParseError{Filename: filename, Err: err}
		}
		return &Lockfile{Layout: LayoutNpm, Filename: filename, Packages: packages}, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return nil, ErrNoLockfile
}

type pnpmLock struct {
	LockfileVersion any                  `yaml:"lockfileVersion"`
	Packages        map[string]yaml.Node `yaml:"packages"`
}

// ParsePnpmLock enumerates the keys of the top-level "packages" mapping of a pnpm lockfile.
// Keys of lockfile v5 ("/name/1.0.0_peer"), v6 ("/name@1.0.0(peer)") and v9 ("name@1.0.0")
// are understood.
func ParsePnpmLock(data []byte) ([]Package, error) {
	var lock pnpmLock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, err
	}
	packages := make([]Package, 0, len(lock.Packages))
	for key := range lock.Packages {
		if p, ok := parsePnpmPackageKey(key); ok {
			packages = append(packages, p)
		}
	}
	sortPackages(packages)
	return packages, nil
}

func parsePnpmPackageKey(key string) (Package, bool) {
	if strings.HasPrefix(key, "/") {
		key = key[1:]
		// v5: "name/1.0.0" or "@scope/name/1.0.0_peer@1.0.0"
		if i := strings.LastIndexByte(key, '/'); i > 0 {
			name, version := key[:i], key[i+1:]
			if version != "" && version[0] >= '0' && version[0] <= '9' && ValidatePackageName(name) {
				return Package{Name: name, Version: stripPeerSuffix(version)}, true
			}
		}
	}
	name, version := splitPackageVersion(key)
	version = stripPeerSuffix(version)
	if !ValidatePackageName(name) || version == "" {
		return Package{}, false
	}
	return Package{Name: name, Version: version}, true
}

type npmLock struct {
	LockfileVersion int `json:"lockfileVersion"`
	Packages        map[string]struct {
		Version string `json:"version"`
		Link    bool   `json:"link"`
	} `json:"packages"`
	Dependencies map[string]struct {
		Version string `json:"version"`
	} `json:"dependencies"`
}

// ParseNpmLock enumerates the installed packages of a package-lock.json, from the
// "packages" section (v2, v3) or the "dependencies" section (v1).
func ParseNpmLock(data []byte) ([]Package, error) {
	var lock npmLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}
	packages := []Package{}
	if len(lock.Packages) > 0 {
		for key, info := range lock.Packages {
			i := strings.LastIndex(key, "node_modules/")
			if i < 0 || info.Link || info.Version == "" {
				continue
			}
			name := key[i+len("node_modules/"):]
			if ValidatePackageName(name) {
				packages = append(packages, Package{Name: name, Version: info.Version})
			}
		}
	} else {
		for name, info := range lock.Dependencies {
			if ValidatePackageName(name) && info.Version != "" {
				packages = append(packages, Package{Name: name, Version: info.Version})
			}
		}
	}
	sortPackages(packages)
	return dedupPackages(packages), nil
}

func sortPackages(packages []Package) {
	sort.Slice(packages, func(i, j int) bool {
		if packages[i].Name != packages[j].Name {
			return packages[i].Name < packages[j].Name
		}
		return packages[i].Version < packages[j].Version
	})
}

func dedupPackages(packages []Package) []Package {
	if len(packages) < 2 {
		return packages
	}
	ret := packages[:1]
	for _, p := range packages[1:] {
		if p != ret[len(ret)-1] {
			ret = append(ret, p)
		}
	}
	return ret
}
