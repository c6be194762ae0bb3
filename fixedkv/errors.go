package fixedkv

import (
	"errors"
	"fmt"
)

// Sentinel errors. These are ordinary I/O / precondition failures that
// propagate normally; they are distinct from the "impossible" structural
// panics raised by impossible below, which never surface as an error value.
var (
	ErrKeyNotFound  = errors.New("fixedkv: key not found")
	ErrTreeEmpty    = errors.New("fixedkv: tree has no root")
	ErrWeakReadOnly = errors.New("fixedkv: weak transaction cannot mutate")
)

// impossible panics with a message in the same shape as the original
// engine's ceph_assert(0 == "impossible") fatal checks: these fire only on
// structural invariant violations the engine considers unrecoverable, never
// on ordinary absence or contention. Package-level call sites (test doubles,
// code with no tree handle at hand) have no logger to report through.
func impossible(format string, args ...any) {
	panic("impossible: " + fmt.Sprintf(format, args...))
}

// impossible logs through the tree's configured Logger before panicking,
// giving an operator a chance to see the structural violation in their own
// log sink before the process aborts.
func (t *BTree[K, V]) impossible(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.opts.logger.Error("impossible: " + msg)
	panic("impossible: " + msg)
}
