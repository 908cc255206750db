package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arashi-dev/arashi/server"
)

// parseCommandFlags parses the flags after the command name.
func parseCommandFlags() (args []string, help bool) {
	flag.CommandLine.Usage = func() {}
	rest := make([]string, 0, len(os.Args))
	for _, arg := range os.Args[2:] {
		if arg == "-h" || arg == "--help" {
			return nil, true
		}
		rest = append(rest, arg)
	}
	if err := flag.CommandLine.Parse(rest); err != nil {
		return nil, true
	}
	return flag.Args(), false
}

// resolveRootDir returns the absolute path of the project root, the working directory by default.
func resolveRootDir(dir string) (rootDir string, err error) {
	if dir == "" {
		return os.Getwd()
	}
	rootDir, err = filepath.Abs(dir)
	if err == nil {
		var fi os.FileInfo
		fi, err = os.Stat(rootDir)
		if err == nil && !fi.IsDir() {
			err = fmt.Errorf("stat %s: not a directory", rootDir)
		}
	}
	return
}

// loadConfig loads the config file, or `<root>/arashi.json` if it exists. The root flag
// overrides the root directory of the config file.
func loadConfig(rootFlag string, configFile string) (*server.Config, error) {
	rootDir, err := resolveRootDir(rootFlag)
	if err != nil {
		return nil, err
	}
	if configFile == "" {
		if fi, err := os.Stat(filepath.Join(rootDir, server.ConfigFilename)); err == nil && !fi.IsDir() {
			configFile = filepath.Join(rootDir, server.ConfigFilename)
		}
	}
	if configFile == "" {
		config := &server.Config{RootDir: rootDir}
		config.Normalize()
		return config, nil
	}

	config, err := server.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if rootFlag != "" && config.RootDir != rootDir {
		// defaults derived from the old root follow the new one
		if config.PublicDir == filepath.Join(config.RootDir, "public") {
			config.PublicDir = ""
		}
		if config.CacheDir == filepath.Join(config.RootDir, "node_modules", ".arashi") {
			config.CacheDir = ""
		}
		config.RootDir = rootDir
		config.Normalize()
	}
	return config, nil
}
