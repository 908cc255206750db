package server

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ije/esbuild-internal/xxhash"
)

func existsDir(filepath string) bool {
	fi, err := os.Stat(filepath)
	return err == nil && fi.IsDir()
}

func appendVaryHeader(header http.Header, key string) {
	vary := header.Get("Vary")
	if vary == "" {
		header.Set("Vary", key)
	} else {
		header.Set("Vary", vary+", "+key)
	}
}

func secondsToDuration(seconds uint16) time.Duration {
	return time.Duration(seconds) * time.Second
}

// contentETag returns a weak etag of the content.
func contentETag(content []byte) string {
	xx := xxhash.New()
	xx.Write(content)
	return fmt.Sprintf("w/\"%x\"", xx.Sum64())
}
