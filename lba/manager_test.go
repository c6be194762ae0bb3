package lba_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xelexin/fixedkv/fixedkv"
	"github.com/xelexin/fixedkv/extentcache"
	"github.com/xelexin/fixedkv/lba"
)

func newManager(t *testing.T) (*lba.Manager, *extentcache.Cache[lba.Laddr, lba.Mapping]) {
	t.Helper()
	cache, err := extentcache.New[lba.Laddr, lba.Mapping](extentcache.WithArenaPages(256))
	require.NoError(t, err)
	ctx := context.Background()
	tx := cache.NewTransaction(false)
	mgr, err := lba.Mkfs(ctx, tx, cache, fixedkv.WithMaxKeys(8), fixedkv.WithMinFillFactor(2))
	require.NoError(t, err)
	tx.Commit()
	return mgr, cache
}

func TestManagerMapResolveUnmap(t *testing.T) {
	ctx := context.Background()
	mgr, cache := newManager(t)

	tx := cache.NewTransaction(false)
	ok, err := mgr.Map(ctx, tx, 100, lba.Mapping{PhysAddr: 8, Length: 4, Kind: lba.RefData})
	require.NoError(t, err)
	require.True(t, ok)
	tx.Commit()

	rtx := cache.NewTransaction(true)
	m, err := mgr.Resolve(ctx, rtx, 100)
	require.NoError(t, err)
	require.Equal(t, uint32(4), m.Length)
	rtx.Commit()

	utx := cache.NewTransaction(false)
	ok, err = mgr.Unmap(ctx, utx, 100)
	require.NoError(t, err)
	require.True(t, ok)
	utx.Commit()

	_, err = mgr.Resolve(ctx, cache.NewTransaction(true), 100)
	require.ErrorIs(t, err, fixedkv.ErrKeyNotFound)
}

func TestManagerResolveRangeFindsOverlaps(t *testing.T) {
	ctx := context.Background()
	mgr, cache := newManager(t)

	tx := cache.NewTransaction(false)
	for _, l := range []lba.Laddr{0, 10, 20, 30} {
		_, err := mgr.Map(ctx, tx, l, lba.Mapping{PhysAddr: fixedkv.Paddr(l), Length: 10, Kind: lba.RefData})
		require.NoError(t, err)
	}
	tx.Commit()

	rtx := cache.NewTransaction(true)
	got, err := mgr.ResolveRange(ctx, rtx, 5, 20)
	require.NoError(t, err)
	require.Len(t, got, 3) // overlaps [0,10), [10,20), [20,30)
	rtx.Commit()
}
