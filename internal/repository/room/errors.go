package room

import "errors"

var (
	ErrStateNotFound = errors.New("playback state not found")
	ErrItemNotQueued = errors.New("queue item not in ranked set")
	// ErrCacheUnavailable marks a failed round trip to the cache backend.
	ErrCacheUnavailable = errors.New("cache unavailable")
)
