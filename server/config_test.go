package server

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, ConfigFilename)
	err := os.WriteFile(filename, []byte(`{
		"port": 8080,
		"publicDir": "static",
		"cacheDir": "/tmp/arashi-cache",
		"bundler": "esbuild",
		"buildTarget": "es2022",
		"jsx": "classic",
		"compress": false
	}`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if config.Port != 8080 {
		t.Errorf("expected port 8080, got %d", config.Port)
	}
	if config.RootDir != dir {
		t.Errorf("root dir should default to the config directory, got %s", config.RootDir)
	}
	if config.PublicDir != filepath.Join(dir, "static") {
		t.Errorf("public dir should be resolved against the config directory, got %s", config.PublicDir)
	}
	if config.CacheDir != "/tmp/arashi-cache" {
		t.Errorf("absolute cache dir should be kept, got %s", config.CacheDir)
	}
	if config.Bundler != "esbuild" || config.BuildTarget != "es2022" || config.JSX != "classic" {
		t.Errorf("unexpected build options: %s %s %s", config.Bundler, config.BuildTarget, config.JSX)
	}
	if config.Compress {
		t.Error("compress should be disabled")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfig(filepath.Join(dir, ConfigFilename)); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
	filename := filepath.Join(dir, ConfigFilename)
	if err := os.WriteFile(filename, []byte(`{"port": `), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(filename); err == nil {
		t.Fatal("expected an error for a malformed config file")
	}
}

func TestNormalizeDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "BUNDLER", "CORS_ALLOW_ORIGINS", "LOG_LEVEL", "ACCESS_LOG", "COMPRESS"} {
		t.Setenv(key, "")
	}
	root := t.TempDir()
	config := &Config{RootDir: root}
	config.Normalize()

	if config.Port != 3000 {
		t.Errorf("expected port 3000, got %d", config.Port)
	}
	if config.PublicDir != filepath.Join(root, "public") {
		t.Errorf("unexpected public dir %s", config.PublicDir)
	}
	if config.CacheDir != filepath.Join(root, "node_modules", ".arashi") {
		t.Errorf("unexpected cache dir %s", config.CacheDir)
	}
	if config.Bundler != "exec" {
		t.Errorf("expected exec bundler, got %s", config.Bundler)
	}
	if len(config.BundlerCommand) != 2 || config.BundlerCommand[0] != "npx" {
		t.Errorf("unexpected bundler command %v", config.BundlerCommand)
	}
	if config.BuildTarget != "es2020" || config.TransformTarget != "auto" || config.JSX != "automatic" {
		t.Errorf("unexpected targets: %s %s %s", config.BuildTarget, config.TransformTarget, config.JSX)
	}
	if int(config.BuildConcurrency) != runtime.NumCPU() {
		t.Errorf("expected build concurrency %d, got %d", runtime.NumCPU(), config.BuildConcurrency)
	}
	if config.BuildWaitTime != 30 {
		t.Errorf("expected build wait time 30, got %d", config.BuildWaitTime)
	}
	if config.ModuleCache != "memoryLRU:default?maxCost=64mb" {
		t.Errorf("unexpected module cache %s", config.ModuleCache)
	}
	if config.LogLevel != "info" || config.AccessLog || !config.Compress {
		t.Errorf("unexpected log options: %s %v %v", config.LogLevel, config.AccessLog, config.Compress)
	}
}

func TestNormalizeEnv(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("BUNDLER", "esbuild")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://example.com/app, ftp://bad.com, http://localhost:5173")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ACCESS_LOG", "true")
	t.Setenv("COMPRESS", "false")

	config := &Config{RootDir: t.TempDir()}
	config.Normalize()

	if config.Port != 4000 {
		t.Errorf("expected port 4000, got %d", config.Port)
	}
	if config.Bundler != "esbuild" {
		t.Errorf("expected esbuild bundler, got %s", config.Bundler)
	}
	if len(config.CorsAllowOrigins) != 2 || config.CorsAllowOrigins[0] != "https://example.com" || config.CorsAllowOrigins[1] != "http://localhost:5173" {
		t.Errorf("unexpected cors origins %v", config.CorsAllowOrigins)
	}
	if config.LogLevel != "debug" || !config.AccessLog || config.Compress {
		t.Errorf("unexpected log options: %s %v %v", config.LogLevel, config.AccessLog, config.Compress)
	}

	// explicit values win over the environment
	config = &Config{RootDir: t.TempDir(), Port: 5000, Bundler: "unknown"}
	config.Normalize()
	if config.Port != 5000 {
		t.Errorf("expected port 5000, got %d", config.Port)
	}
	if config.Bundler != "exec" {
		t.Errorf("unknown bundler should fall back to exec, got %s", config.Bundler)
	}
}
