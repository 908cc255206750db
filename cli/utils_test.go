package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arashi-dev/arashi/server"
)

func TestResolveRootDir(t *testing.T) {
	dir := t.TempDir()
	root, err := resolveRootDir(dir)
	if err != nil || root != dir {
		t.Fatalf("unexpected root %s: %v", root, err)
	}

	filename := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(filename, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveRootDir(filename); err == nil {
		t.Fatal("a file should not be accepted as root")
	}
	if _, err := resolveRootDir(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("a missing directory should not be accepted as root")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "")

	t.Run("NoConfigFile", func(t *testing.T) {
		root := t.TempDir()
		config, err := loadConfig(root, "")
		if err != nil {
			t.Fatal(err)
		}
		if config.RootDir != root || config.Port != 3000 {
			t.Fatalf("unexpected config: %s %d", config.RootDir, config.Port)
		}
	})

	t.Run("ConfigFileInRoot", func(t *testing.T) {
		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, server.ConfigFilename), []byte(`{"port": 8000}`), 0644); err != nil {
			t.Fatal(err)
		}
		config, err := loadConfig(root, "")
		if err != nil {
			t.Fatal(err)
		}
		if config.Port != 8000 || config.RootDir != root {
			t.Fatalf("unexpected config: %s %d", config.RootDir, config.Port)
		}
	})

	t.Run("RootFlagOverride", func(t *testing.T) {
		configDir := t.TempDir()
		root := t.TempDir()
		configFile := filepath.Join(configDir, "dev.json")
		if err := os.WriteFile(configFile, []byte(`{"port": 8001, "publicDir": "assets"}`), 0644); err != nil {
			t.Fatal(err)
		}
		config, err := loadConfig(root, configFile)
		if err != nil {
			t.Fatal(err)
		}
		if config.RootDir != root {
			t.Fatalf("root flag should override the config root, got %s", config.RootDir)
		}
		if config.PublicDir != filepath.Join(configDir, "assets") {
			t.Fatalf("explicit public dir should be kept, got %s", config.PublicDir)
		}
		if config.CacheDir != filepath.Join(root, "node_modules", ".arashi") {
			t.Fatalf("default cache dir should follow the root, got %s", config.CacheDir)
		}
	})

	t.Run("BadConfigFile", func(t *testing.T) {
		root := t.TempDir()
		configFile := filepath.Join(root, "bad.json")
		if err := os.WriteFile(configFile, []byte(`{`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := loadConfig(root, configFile); err == nil {
			t.Fatal("expected an error for a malformed config file")
		}
	})
}
