package extentcache

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/xelexin/fixedkv/fixedkv"
)

// pageSize is the fixed unit of address space the arena hands out per
// extent. Physical layout of what lives at a paddr is out of scope for
// this engine — the arena exists to give paddr values real backing address
// space rather than being bare integers, and to give tests and drivers
// something a real Cache would actually own.
const pageSize = 4096

// Arena reserves an anonymous mmap region and hands out page-granularity
// physical addresses from it. There is no WAL, no directio and no crash
// recovery here: the arena is volatile-safe only, with no durable medium
// backing it.
type Arena struct {
	mu     sync.Mutex
	region []byte
	pages  int
	next   int
	free   []fixedkv.Paddr
}

// NewArena reserves pages*pageSize bytes of anonymous, read-write memory.
func NewArena(pages int) (*Arena, error) {
	region, err := unix.Mmap(-1, 0, pages*pageSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &Arena{region: region, pages: pages, next: 1}, nil
}

// Alloc hands out the next free page-granular physical address. Paddr 0
// (fixedkv.NoPaddr) is never allocated.
func (a *Arena) Alloc() (fixedkv.Paddr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		p := a.free[n-1]
		a.free = a.free[:n-1]
		return p, nil
	}
	if a.next >= a.pages {
		return fixedkv.NoPaddr, ErrArenaExhausted
	}
	p := fixedkv.Paddr(a.next)
	a.next++
	return p, nil
}

// Free returns a page to the free list, made available to a future Alloc.
func (a *Arena) Free(p fixedkv.Paddr) {
	if p == fixedkv.NoPaddr {
		return
	}
	a.mu.Lock()
	a.free = append(a.free, p)
	a.mu.Unlock()
}

// Bytes returns the raw backing slice for a page, for callers that want to
// exercise the arena's real memory (e.g. checksum tests) without giving
// nodes a physical layout.
func (a *Arena) Bytes(p fixedkv.Paddr) []byte {
	off := int(p) * pageSize
	return a.region[off : off+pageSize]
}

// Close unmaps the arena's backing memory.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.region == nil {
		return nil
	}
	err := unix.Munmap(a.region)
	a.region = nil
	return err
}
