package npm

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// PackageJSONRaw defines the fields of a package.json the resolver reads.
type PackageJSONRaw struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Type    string          `json:"type"`
	Main    JSONAny         `json:"main"`
	Module  JSONAny         `json:"module"`
	Exports json.RawMessage `json:"exports"`
}

// PackageJSON defines the normalized package.json of an installed package.
type PackageJSON struct {
	Name    string
	Version string
	Type    string
	Main    string
	Module  string
	// Exports is either a string or a map decoded from the "exports" field.
	Exports any
}

// ToPackageJSON converts PackageJSONRaw to PackageJSON
func (a *PackageJSONRaw) ToPackageJSON() *PackageJSON {
	p := &PackageJSON{
		Name:    a.Name,
		Version: a.Version,
		Type:    a.Type,
		Main:    a.Main.MainString(),
		Module:  a.Module.MainString(),
	}
	if len(a.Exports) > 0 {
		var exports any
		if json.Unmarshal(a.Exports, &exports) == nil {
			p.Exports = exports
		}
	}
	return p
}

// ReadPackageJSON reads and normalizes the package.json in the given directory.
func ReadPackageJSON(dir string) (*PackageJSON, error) {
	filename := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var raw PackageJSONRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ManifestParseError{Filename: filename, Err: err}
	}
	return raw.ToPackageJSON(), nil
}

// ExportEntry returns the target of the given sub-path ("." for the package root) in the
// "exports" field, preferring browser ESM conditions.
func (p *PackageJSON) ExportEntry(subPath string) (string, bool) {
	switch exports := p.Exports.(type) {
	case string:
		if subPath == "." {
			return exports, true
		}
	case map[string]any:
		if hasSubPathKeys(exports) {
			if v, ok := exports[subPath]; ok {
				return resolveConditions(v)
			}
			return "", false
		}
		// conditions only, applies to the package root
		if subPath == "." {
			return resolveConditions(exports)
		}
	}
	return "", false
}

var exportConditions = []string{"browser", "import", "module", "default"}

func resolveConditions(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case map[string]any:
		for _, cond := range exportConditions {
			if c, ok := v[cond]; ok {
				if s, ok := resolveConditions(c); ok {
					return s, true
				}
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := resolveConditions(item); ok {
				return s, true
			}
		}
	}
	return "", false
}

func hasSubPathKeys(m map[string]any) bool {
	for k := range m {
		if len(k) > 0 && k[0] == '.' {
			return true
		}
	}
	return false
}

// JSONAny holds a package.json field that may be a string or an object.
type JSONAny struct {
	Str string
	Map map[string]any
}

func (a *JSONAny) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		a.Str = s
		return nil
	}
	var m map[string]any
	if json.Unmarshal(b, &m) == nil {
		a.Map = m
	}
	// other values, e.g. `false` or an array, name no entry
	return nil
}

func (a *JSONAny) MainString() string {
	if a.Str != "" {
		return a.Str
	}
	if a.Map != nil {
		if v, ok := a.Map["."]; ok {
			if s, isStr := v.(string); isStr {
				return s
			}
		}
	}
	return ""
}
