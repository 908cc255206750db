package server

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/ije/gox/term"
)

// ConfigFilename is the config file looked up in the project root.
const ConfigFilename = "arashi.json"

// Config represents the configuration of the arashi dev server.
type Config struct {
	Port             uint16          `json:"port"`
	RootDir          string          `json:"rootDir"`
	PublicDir        string          `json:"publicDir"`
	CacheDir         string          `json:"cacheDir"`
	Bundler          string          `json:"bundler"`
	BundlerCommand   []string        `json:"bundlerCommand"`
	BuildTarget      string          `json:"buildTarget"`
	TransformTarget  string          `json:"transformTarget"`
	JSX              string          `json:"jsx"`
	JSXImportSource  string          `json:"jsxImportSource"`
	BuildConcurrency uint16          `json:"buildConcurrency"`
	BuildWaitTime    uint16          `json:"buildWaitTime"`
	ModuleCache      string          `json:"moduleCache"`
	CorsAllowOrigins []string        `json:"corsAllowOrigins"`
	LogDir           string          `json:"logDir"`
	LogLevel         string          `json:"logLevel"`
	AccessLog        bool            `json:"accessLog"`
	CompressRaw      json.RawMessage `json:"compress"`
	Compress         bool            `json:"-"`
}

// LoadConfig loads config from the given file. Relative paths are resolved against the
// directory of the config file, which is also the default root directory.
func LoadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("fail to read config file: %w", err)
	}
	defer file.Close()

	var config Config
	err = json.NewDecoder(file).Decode(&config)
	if err != nil {
		return nil, fmt.Errorf("fail to parse config: %w", err)
	}

	configDir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		return nil, fmt.Errorf("fail to get absolute path of the config directory: %w", err)
	}
	for _, p := range []*string{&config.RootDir, &config.PublicDir, &config.CacheDir, &config.LogDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
	if config.RootDir == "" {
		config.RootDir = configDir
	}
	config.Normalize()
	return &config, nil
}

// DefaultConfig returns the config of the current working directory.
func DefaultConfig() *Config {
	config := &Config{}
	config.Normalize()
	return config
}

// Normalize fills the empty fields with the environment variables or the defaults.
func (config *Config) Normalize() {
	if config.Port == 0 {
		config.Port = 3000
		if v := os.Getenv("PORT"); v != "" {
			if p, e := strconv.Atoi(v); e == nil && p > 0 && p < 65536 {
				config.Port = uint16(p)
			}
		}
	}
	if config.RootDir == "" {
		config.RootDir, _ = os.Getwd()
	}
	if !filepath.IsAbs(config.RootDir) {
		if dir, err := filepath.Abs(config.RootDir); err == nil {
			config.RootDir = dir
		}
	}
	if config.PublicDir == "" {
		config.PublicDir = filepath.Join(config.RootDir, "public")
	}
	if config.CacheDir == "" {
		config.CacheDir = filepath.Join(config.RootDir, "node_modules", ".arashi")
	}
	if config.Bundler == "" {
		config.Bundler = os.Getenv("BUNDLER")
	}
	switch config.Bundler {
	case "exec", "esbuild":
	default:
		if config.Bundler != "" {
			fmt.Println(term.Red("[error] unknown bundler: " + config.Bundler))
		}
		config.Bundler = "exec"
	}
	if len(config.BundlerCommand) == 0 {
		config.BundlerCommand = []string{"npx", "esbuild"}
	}
	if config.BuildTarget == "" {
		config.BuildTarget = "es2020"
	}
	if config.TransformTarget == "" {
		config.TransformTarget = "auto"
	}
	if config.JSX != "classic" {
		config.JSX = "automatic"
	}
	if config.BuildConcurrency == 0 {
		config.BuildConcurrency = uint16(runtime.NumCPU())
	}
	if config.BuildWaitTime == 0 {
		config.BuildWaitTime = 30 // seconds
	}
	if config.ModuleCache == "" {
		config.ModuleCache = "memoryLRU:default?maxCost=64mb"
	}
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" && len(config.CorsAllowOrigins) == 0 {
		for _, p := range strings.Split(v, ",") {
			orig := strings.TrimSpace(p)
			if orig != "" {
				u, e := url.Parse(orig)
				if e == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
					config.CorsAllowOrigins = append(config.CorsAllowOrigins, u.Scheme+"://"+u.Host)
				}
			}
		}
	}
	if config.LogLevel == "" {
		config.LogLevel = os.Getenv("LOG_LEVEL")
		if config.LogLevel == "" {
			config.LogLevel = "info"
		}
	}
	if !config.AccessLog {
		config.AccessLog = os.Getenv("ACCESS_LOG") == "true"
	}
	config.Compress = !(string(config.CompressRaw) == "false" || os.Getenv("COMPRESS") == "false")
}
