package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ije/gox/log"
	"github.com/ije/gox/set"
	"github.com/ije/gox/term"
	"github.com/ije/rex"
)

// Serve starts the dev server and blocks until it is stopped by a signal or fails.
func Serve(config *Config) (err error) {
	if !existsDir(config.RootDir) {
		return fmt.Errorf("root directory %s not found", config.RootDir)
	}

	logger := &log.Logger{}
	if config.LogDir != "" {
		logger, err = log.New(fmt.Sprintf("file:%s?buffer=32k&fileDateFormat=20060102", filepath.Join(config.LogDir, "server.log")))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	logger.SetLevelByName(config.LogLevel)

	accessLogger := &log.Logger{}
	if config.AccessLog && config.LogDir != "" {
		accessLogger, err = log.New(fmt.Sprintf("file:%s?buffer=32k&fileDateFormat=20060102", filepath.Join(config.LogDir, "access.log")))
		if err != nil {
			return fmt.Errorf("failed to initialize access logger: %w", err)
		}
		accessLogger.SetQuite(true)
	}

	pipeline, err := New(config, logger)
	if err != nil {
		return err
	}
	if lock, err := pipeline.resolver.Lockfile(config.RootDir); err == nil {
		logger.Debugf("%s layout detected, %d packages locked", lock.Layout, len(lock.Packages))
	} else {
		// not fatal, dependency requests fail until packages are installed
		logger.Warnf("%v", err)
	}

	rex.Use(
		rex.Header("Server", "arashi"),
		cors(config.CorsAllowOrigins),
		rex.Logger(logger),
		rex.Optional(rex.AccessLogger(accessLogger), config.AccessLog),
		rex.Optional(rex.Compress(), config.Compress),
		pipelineHandle(pipeline),
	)

	C := rex.Serve(rex.ServerConfig{
		Port: config.Port,
	})
	fmt.Println(term.Green(fmt.Sprintf("arashi dev server is ready on http://localhost:%d", config.Port)))
	fmt.Println(term.Dim("root: " + config.RootDir))

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP)
	select {
	case <-c:
	case err = <-C:
		logger.Error(err)
	}

	// release resources
	logger.FlushBuffer()
	accessLogger.FlushBuffer()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// pipelineHandle hosts the pipeline in the rex middleware chain.
func pipelineHandle(pipeline *Pipeline) rex.Handle {
	return func(ctx *rex.Context) any {
		res := pipeline.Handle(ctx.R)
		header := ctx.W.Header()
		for key, values := range res.Header {
			header[key] = values
		}
		switch res.Status {
		case http.StatusOK:
			return res.Body
		case http.StatusNotModified:
			return rex.Status(http.StatusNotModified, nil)
		default:
			return rex.Status(res.Status, string(res.Body))
		}
	}
}

func cors(allowOrigins []string) rex.Handle {
	allowList := set.NewReadOnly(allowOrigins...)
	return func(ctx *rex.Context) any {
		origin := ctx.R.Header.Get("Origin")
		isOptionsMethod := ctx.R.Method == "OPTIONS"
		h := ctx.W.Header()
		if allowList.Len() > 0 {
			if origin != "" {
				if !allowList.Has(origin) {
					return rex.Status(403, "forbidden")
				}
				setCorsHeaders(h, isOptionsMethod, origin)
			} else if isOptionsMethod {
				// not a preflight request
				return rex.Status(405, "method not allowed")
			}
			appendVaryHeader(h, "Origin")
		} else {
			setCorsHeaders(h, isOptionsMethod, "*")
		}
		if isOptionsMethod {
			return rex.NoContent()
		}
		return ctx.Next()
	}
}

func setCorsHeaders(h http.Header, isOptionsMethod bool, origin string) {
	h.Set("Access-Control-Allow-Origin", origin)
	if isOptionsMethod {
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Max-Age", "86400")
	}
}
