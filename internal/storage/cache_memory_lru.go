package storage

import (
	"errors"
	"net/url"

	"github.com/dgraph-io/ristretto"
)

// mLRUCache is a size bounded in-memory cache, the cost of a record is its length in bytes.
type mLRUCache struct {
	cache *ristretto.Cache
}

func (mc *mLRUCache) Get(key string) ([]byte, error) {
	item, ok := mc.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return item.([]byte), nil
}

// Set admits the record with its length as cost. The record may be rejected when it does
// not fit the max cost, later reads then miss.
func (mc *mLRUCache) Set(key string, value []byte) error {
	if mc.cache.Set(key, value, int64(len(value))) {
		mc.cache.Wait()
	}
	return nil
}

type mcLRUDriver struct{}

func (mcd *mcLRUDriver) Open(addr string, options url.Values) (Cache, error) {
	maxCost, err := parseBytesValue(options.Get("maxCost"), 64*1024*1024)
	if err != nil || maxCost <= 0 {
		return nil, errors.New("invalid maxCost value")
	}
	impl, err := ristretto.NewCache(&ristretto.Config{
		// 10x the expected number of records, assuming ~1kb per record
		NumCounters: max(maxCost/1024*10, 1000),
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &mLRUCache{cache: impl}, nil
}

func init() {
	RegisterCache("memoryLRU", &mcLRUDriver{})
}
