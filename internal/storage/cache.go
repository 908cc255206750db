package storage

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/ije/gox/utils"
)

// Cache keeps transformed modules and artifact contents in memory, keyed by request.
type Cache interface {
	// Get returns ErrNotFound for a missing or evicted record.
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// CacheDriver opens a Cache for the address and options of a cache url.
type CacheDriver interface {
	Open(addr string, options url.Values) (cache Cache, err error)
}

var cacheDrivers sync.Map

// OpenCache opens a cache by url, e.g. "memoryLRU:default?maxCost=64mb".
func OpenCache(url string) (cache Cache, err error) {
	if url == "" {
		err = fmt.Errorf("invalid cache url")
		return
	}

	name, addr := utils.SplitByFirstByte(url, ':')
	driver, ok := cacheDrivers.Load(name)
	if !ok {
		err = fmt.Errorf("unknown cache driver '%s'", name)
		return
	}

	path, options, err := parseConfigUrl(addr)
	if err != nil {
		return
	}

	return driver.(CacheDriver).Open(path, options)
}

// RegisterCache registers a cache driver by name.
func RegisterCache(name string, driver CacheDriver) error {
	_, ok := cacheDrivers.Load(name)
	if ok {
		return fmt.Errorf("cache driver '%s' has been registered", name)
	}

	cacheDrivers.Store(name, driver)
	return nil
}
