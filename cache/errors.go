package cache

import "errors"

// ErrNoProducer is returned when a load is needed but the cache was built
// without a producer.
var ErrNoProducer = errors.New("cache: no producer configured")
