package extentcache

import "github.com/xelexin/fixedkv/fixedkv"

// Options configures a Cache's backing arena and extent table.
type Options struct {
	arenaPages  int
	lruCapacity uint32
	maxReaders  int
	logger      fixedkv.Logger
}

// DefaultOptions sizes the arena and LRU for tests and small trees: 64k
// pages of address space, a 4096-entry hot set, 256 concurrent readers.
//
//goland:noinspection GoUnusedExportedFunction
func DefaultOptions() Options {
	return Options{arenaPages: 1 << 16, lruCapacity: 4096, maxReaders: 256, logger: fixedkv.DiscardLogger{}}
}

// Option configures Options using the functional options pattern.
type Option func(*Options)

// WithArenaPages sets the number of fixed-size pages the arena reserves
// address space for.
//
//goland:noinspection GoUnusedExportedFunction
func WithArenaPages(n int) Option {
	return func(o *Options) { o.arenaPages = n }
}

// WithLRUCapacity sets how many extents the hot set tracks. An extent
// pushed out of the hot set is marked cold for Compact; it stays resident
// in the extent table.
//
//goland:noinspection GoUnusedExportedFunction
func WithLRUCapacity(n uint32) Option {
	return func(o *Options) { o.lruCapacity = n }
}

// WithMaxReaders sets the number of concurrent reader slots reserved for
// the minimum-visible-transaction watermark.
//
//goland:noinspection GoUnusedExportedFunction
func WithMaxReaders(n int) Option {
	return func(o *Options) { o.maxReaders = n }
}

// WithLogger injects a fixedkv.Logger the Cache reports fatal structural
// violations through before panicking. Defaults to fixedkv.DiscardLogger.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger(l fixedkv.Logger) Option {
	return func(o *Options) { o.logger = l }
}

func resolveOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
