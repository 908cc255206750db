package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestESBuildBundler(t *testing.T) {
	dir := t.TempDir()
	pkgDir := filepath.Join(dir, "node_modules", "answer")
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		t.Fatal(err)
	}
	entry := filepath.Join(pkgDir, "index.js")
	err := os.WriteFile(entry, []byte(`import { base } from "./base.js";
export const answer = base + 1;
export const mode = process.env.NODE_ENV;
`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "base.js"), []byte("export const base = 41;\n"), 0644); err != nil {
		t.Fatal(err)
	}

	outfile := filepath.Join(dir, "deps", "answer.js")
	bundler := &ESBuildBundler{Target: "es2020", Dir: dir}
	if err := bundler.Bundle(context.Background(), entry, outfile); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(outfile)
	if err != nil {
		t.Fatal(err)
	}
	code := string(data)
	if strings.Contains(code, "./base.js") || !strings.Contains(code, "41") {
		t.Fatalf("dependency should be inlined: %s", code)
	}
	if !strings.Contains(code, "export {") {
		t.Fatalf("output should be an ES module: %s", code)
	}
	if strings.Contains(code, "process.env") || !strings.Contains(code, `"development"`) {
		t.Fatalf("NODE_ENV should be defined: %s", code)
	}
}

func TestESBuildBundlerError(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "index.js")
	if err := os.WriteFile(entry, []byte(`import "object-assign";`), 0644); err != nil {
		t.Fatal(err)
	}

	bundler := &ESBuildBundler{Dir: dir}
	err := bundler.Bundle(context.Background(), entry, filepath.Join(dir, "out.js"))
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected a BuildError, got %v", err)
	}
	if !strings.Contains(buildErr.Output, "object-assign") {
		t.Fatalf("output should name the missing import: %s", buildErr.Output)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.js")); !os.IsNotExist(err) {
		t.Fatal("no artifact should be written on failure")
	}
}
