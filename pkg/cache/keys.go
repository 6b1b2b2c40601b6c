package cache

import (
	"fmt"
	"strconv"
)

// flightKey renders a cache key for singleflight, avoiding fmt for the key
// types the dataset uses.
func flightKey[K comparable](key K) string {
	switch k := any(key).(type) {
	case string:
		return k
	case int32:
		return strconv.FormatInt(int64(k), 10)
	case int64:
		return strconv.FormatInt(k, 10)
	case int:
		return strconv.Itoa(k)
	case uint32:
		return strconv.FormatUint(uint64(k), 10)
	default:
		return fmt.Sprint(k)
	}
}
