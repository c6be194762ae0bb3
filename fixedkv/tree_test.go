package fixedkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T) (*BTree[uint64, uint64], *testCache[uint64, uint64], *testTransaction) {
	t.Helper()
	cache := newTestCache[uint64, uint64]()
	tx := &testTransaction{}
	ops := Uint64Ops[uint64]()
	ctx := context.Background()
	_, err := Mkfs[uint64, uint64](ctx, tx, cache, ops)
	require.NoError(t, err)
	tree := New[uint64, uint64](cache, ops, WithMaxKeys(4), WithMinFillFactor(1))
	cache.commit()
	return tree, cache, tx
}

func TestMkfsEmptyTreeLookupMisses(t *testing.T) {
	tree, _, tx := newTestTree(t)
	_, err := tree.Lookup(context.Background(), tx, 42)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestInsertLookupRoundTrip(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	for i := uint64(0); i < 40; i++ {
		ok, err := tree.Insert(ctx, tx, i, i*10)
		require.NoError(t, err)
		require.True(t, ok)
		cache.commit()
	}

	for i := uint64(0); i < 40; i++ {
		v, err := tree.Lookup(ctx, tx, i)
		require.NoError(t, err)
		require.Equal(t, i*10, v)
	}

	depth, err := tree.Depth(tx)
	require.NoError(t, err)
	require.Greater(t, depth, uint8(0), "40 inserts at max 4 keys/node must have grown the root")
}

func TestInsertDuplicateIsNoop(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	ok, err := tree.Insert(ctx, tx, 7, 100)
	require.NoError(t, err)
	require.True(t, ok)
	cache.commit()

	ok, err = tree.Insert(ctx, tx, 7, 999)
	require.NoError(t, err)
	require.False(t, ok)
	cache.commit()

	v, err := tree.Lookup(ctx, tx, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(100), v)
}

func TestInsertDuplicateOnFullLeafDoesNotSplit(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	// Fill a leaf to the max-4-keys capacity configured by newTestTree.
	for _, k := range []uint64{1, 2, 3, 4} {
		ok, err := tree.Insert(ctx, tx, k, k*10)
		require.NoError(t, err)
		require.True(t, ok)
		cache.commit()
	}

	root, err := tree.Root(tx)
	require.NoError(t, err)
	require.True(t, root.IsLeaf(), "4 inserts at max 4 keys/node must not have split yet")
	before := root.Paddr()

	// Re-inserting an already-present key on a leaf at max capacity must
	// be a pure no-op: no split, no new root, no fresh extents.
	ok, err := tree.Insert(ctx, tx, uint64(2), 999)
	require.NoError(t, err)
	require.False(t, ok)
	cache.commit()

	root, err = tree.Root(tx)
	require.NoError(t, err)
	require.True(t, root.IsLeaf(), "duplicate insert on a full leaf must not trigger handleSplit")
	require.Equal(t, before, root.Paddr(), "duplicate insert must not duplicate-for-write the root")

	depth, err := tree.Depth(tx)
	require.NoError(t, err)
	require.Equal(t, uint8(0), depth)

	v, err := tree.Lookup(ctx, tx, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(20), v, "original value must survive the no-op re-insert")
}

func TestStatsTrackDepthAndExtentsAcrossRootGrowthAndCollapse(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	for i := uint64(0); i < 40; i++ {
		ok, err := tree.Insert(ctx, tx, i, i*10)
		require.NoError(t, err)
		require.True(t, ok)
		cache.commit()
	}

	depth, err := tree.Depth(tx)
	require.NoError(t, err)
	require.Greater(t, depth, uint8(0))
	require.Equal(t, depth, tx.Stats().Depth, "TreeStats.Depth must track root growth")
	require.Greater(t, tx.Stats().ExtentsNumDelta, int64(0), "net inserts with splits must allocate more extents than they retire")

	for i := uint64(0); i < 40; i++ {
		ok, err := tree.Remove(ctx, tx, i)
		require.NoError(t, err)
		require.True(t, ok)
		cache.commit()
	}

	depth, err = tree.Depth(tx)
	require.NoError(t, err)
	require.Equal(t, uint8(0), depth, "tree should have collapsed back to a single leaf")
	require.Equal(t, uint8(0), tx.Stats().Depth, "TreeStats.Depth must track root collapse")
	require.LessOrEqual(t, tx.Stats().ExtentsNumDelta, int64(0), "removing every key must net-retire at least as many extents as remain allocated")
}

func TestRemoveMissingIsNoop(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	ok, err := tree.Remove(ctx, tx, 123)
	require.NoError(t, err)
	require.False(t, ok)
	cache.commit()
}

func TestInsertThenRemoveAll(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	const n = 60
	for i := uint64(0); i < n; i++ {
		ok, err := tree.Insert(ctx, tx, i, i)
		require.NoError(t, err)
		require.True(t, ok)
		cache.commit()
	}

	for i := uint64(0); i < n; i++ {
		ok, err := tree.Remove(ctx, tx, i)
		require.NoError(t, err)
		require.True(t, ok)
		cache.commit()

		_, err = tree.Lookup(ctx, tx, i)
		require.ErrorIs(t, err, ErrKeyNotFound)
	}

	depth, err := tree.Depth(tx)
	require.NoError(t, err)
	require.Equal(t, uint8(0), depth, "tree should have collapsed back to a single leaf")
}

func TestIteratorWalksInOrder(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	want := []uint64{5, 1, 9, 3, 7, 2, 8, 4, 6, 0}
	for _, k := range want {
		ok, err := tree.Insert(ctx, tx, k, k)
		require.NoError(t, err)
		require.True(t, ok)
		cache.commit()
	}

	it, err := tree.Begin(tx)
	require.NoError(t, err)

	var got []uint64
	for it.Valid() {
		got = append(got, it.GetKey())
		require.NoError(t, it.Next(tx))
	}
	require.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestLowerBoundUpperBound(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	for _, k := range []uint64{10, 20, 30, 40, 50} {
		ok, err := tree.Insert(ctx, tx, k, k)
		require.NoError(t, err)
		require.True(t, ok)
		cache.commit()
	}

	it, err := tree.LowerBound(tx, 25)
	require.NoError(t, err)
	require.True(t, it.Valid())
	require.Equal(t, uint64(30), it.GetKey())

	it, err = tree.UpperBound(tx, 30)
	require.NoError(t, err)
	require.True(t, it.Valid())
	require.Equal(t, uint64(40), it.GetKey())

	it, err = tree.LowerBound(tx, 999)
	require.NoError(t, err)
	require.False(t, it.Valid())
}

func TestUpperBoundRightStaysOnExactMatch(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	// Values here double as their own "length": key 10 covers [10,15).
	for _, k := range []uint64{10, 20, 30} {
		ok, err := tree.Insert(ctx, tx, k, 5)
		require.NoError(t, err)
		require.True(t, ok)
		cache.commit()
	}

	length := func(v uint64) uint64 { return v }
	add := func(a, b uint64) uint64 { return a + b }

	// 10's range [10,15) already extends past 10, so UpperBoundRight(10)
	// should stay put rather than skip to 20.
	it, err := tree.UpperBoundRight(tx, 10, length, add)
	require.NoError(t, err)
	require.True(t, it.Valid())
	require.Equal(t, uint64(10), it.GetKey())
}

func TestUpperBoundRightReturnsCoveringPredecessor(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	// (k=100, len=20) and (k=200, len=5): querying 105 must return the
	// entry at 100, since lower_bound(105) lands on 200 and 200 itself
	// does not cover 105 — only its predecessor's range [100,120) does.
	for _, kv := range []struct{ k, v uint64 }{{100, 20}, {200, 5}} {
		ok, err := tree.Insert(ctx, tx, kv.k, kv.v)
		require.NoError(t, err)
		require.True(t, ok)
		cache.commit()
	}

	length := func(v uint64) uint64 { return v }
	add := func(a, b uint64) uint64 { return a + b }

	it, err := tree.UpperBoundRight(tx, 105, length, add)
	require.NoError(t, err)
	require.True(t, it.Valid())
	require.Equal(t, uint64(100), it.GetKey())
}

func TestUpperBoundRightSkipsPredecessorThatDoesNotCover(t *testing.T) {
	tree, cache, tx := newTestTree(t)
	ctx := context.Background()

	// (k=100, len=20) does not reach 130, so UpperBoundRight(130) must
	// fall through to lower_bound(130) — nothing at all, since 130 is
	// past every entry's covered range in this tree.
	ok, err := tree.Insert(ctx, tx, uint64(100), uint64(20))
	require.NoError(t, err)
	require.True(t, ok)
	cache.commit()

	length := func(v uint64) uint64 { return v }
	add := func(a, b uint64) uint64 { return a + b }

	it, err := tree.UpperBoundRight(tx, 130, length, add)
	require.NoError(t, err)
	require.False(t, it.Valid())
}

func TestWeakTransactionCannotMutate(t *testing.T) {
	tree, _, _ := newTestTree(t)
	weak := &testTransaction{weak: true}

	_, err := tree.Insert(context.Background(), weak, 1, 1)
	require.ErrorIs(t, err, ErrWeakReadOnly)
}
