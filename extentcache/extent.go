package extentcache

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/xelexin/fixedkv/fixedkv"
)

// checksum computes a stability fingerprint over an extent's structural
// identity (its address, size, kind and depth). Node contents have no
// physical byte layout in this engine, so this stands in for the
// in_extent_checksum / last_committed_crc pair the liveness protocol
// asserts on every load.
func checksum(paddr fixedkv.Paddr, size int, leaf bool, depth uint8) uint64 {
	var buf [18]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(paddr))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(size))
	buf[16] = depth
	if leaf {
		buf[17] = 1
	}
	return xxhash.Sum64(buf[:])
}
