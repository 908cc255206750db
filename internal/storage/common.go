package storage

import (
	"errors"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/ije/gox/utils"
)

var ErrNotFound = errors.New("not found")

func parseConfigUrl(configUrl string) (root string, options url.Values, err error) {
	root, query := utils.SplitByFirstByte(configUrl, '?')
	options = url.Values{}
	if query != "" {
		options, err = url.ParseQuery(query)
		if err != nil {
			return root, nil, err
		}
	}
	return root, options, nil
}

// parseBytesValue parses sizes like "64mb" or "1GiB".
func parseBytesValue(str string, defaultValue int64) (int64, error) {
	if str != "" {
		n, err := humanize.ParseBytes(str)
		if err != nil {
			return 0, err
		}
		return int64(n), nil
	}
	return defaultValue, nil
}
