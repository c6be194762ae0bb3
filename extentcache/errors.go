package extentcache

import "errors"

var (
	ErrArenaExhausted = errors.New("extentcache: arena has no free pages left")
	ErrClosed         = errors.New("extentcache: cache is closed")
)
