package fixedkv

// Options configures a BTree's structural parameters. Node size in the
// original engine is a compile-time template parameter; here it is a
// runtime capacity pair, since Go generics have no equivalent to a
// non-type template parameter.
type Options struct {
	maxKeys   int
	minKeys   int
	maxDepth  uint8
	logger    Logger
}

// DefaultOptions returns the engine's default structural parameters: 64 keys
// per node, a quarter of that as the underflow floor.
//
//goland:noinspection GoUnusedExportedFunction
func DefaultOptions() Options {
	return Options{
		maxKeys:  64,
		minKeys:  16,
		maxDepth: MaxDepth,
		logger:   DiscardLogger{},
	}
}

// Option configures Options using the functional options pattern.
type Option func(*Options)

// WithMaxKeys sets the maximum number of keys a node may hold before it
// must split.
//
//goland:noinspection GoUnusedExportedFunction
func WithMaxKeys(n int) Option {
	return func(o *Options) { o.maxKeys = n }
}

// WithMinFillFactor sets the minimum number of keys a non-root node may
// hold before it underflows and must borrow or merge.
//
//goland:noinspection GoUnusedExportedFunction
func WithMinFillFactor(n int) Option {
	return func(o *Options) { o.minKeys = n }
}

// WithMaxDepth overrides MaxDepth for trees that need a shallower ceiling.
// Never set higher than MaxDepth.
//
//goland:noinspection GoUnusedExportedFunction
func WithMaxDepth(d uint8) Option {
	return func(o *Options) {
		if d > MaxDepth {
			d = MaxDepth
		}
		o.maxDepth = d
	}
}

// WithLogger injects a Logger. Defaults to DiscardLogger.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger(l Logger) Option {
	return func(o *Options) { o.logger = l }
}

func resolveOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
