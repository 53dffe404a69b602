package Chunks

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g-m-twostay/go-rle/Trees/IntervalTree"
)

var rg = rand.New(rand.NewSource(0))

func testConfig() ChunkConfig {
	return ChunkConfig{CompactAfter: 64, CompactMinMergeable: 1}
}

func TestPackUnpack(t *testing.T) {
	for i := range N {
		x, y, z := Unpack(uint16(i))
		require.Equal(t, uint16(i), Pack(x, y, z))
	}
	require.Equal(t, 1<<shiftY|2<<shiftZ|3, Idx(3, 1, 2))
}

func TestChunk_SetGet(t *testing.T) {
	ch := NewChunk(ChunkCoord{1, 2, 3}, testConfig(), nil)
	typ, meta := ch.GetBlock(4, 5, 6)
	require.Zero(t, typ)
	require.Zero(t, meta)

	gen := ch.Generation()
	require.True(t, ch.SetBlock(4, 5, 6, 7, 8))
	require.False(t, ch.SetBlock(4, 5, 6, 7, 8))
	require.Equal(t, gen+1, ch.Generation())
	typ, meta = ch.GetBlock(4, 5, 6)
	require.Equal(t, uint8(7), typ)
	require.Equal(t, uint8(8), meta)

	tn, mn := ch.Nodes()
	require.Equal(t, 3, tn)
	require.Equal(t, 3, mn)
	require.Equal(t, []Edit{{Pack(4, 5, 6), 7, 8}}, ch.DrainEdits(nil))
	require.Empty(t, ch.DrainEdits(nil))
}

func TestChunk_FlattenMatchesReference(t *testing.T) {
	ch := NewChunk(ChunkCoord{}, testConfig(), nil)
	refT, refM := make([]uint8, N), make([]uint8, N)
	for range 5000 {
		x, y, z := uint8(rg.Intn(CW)), uint8(rg.Intn(CH)), uint8(rg.Intn(CD))
		typ, meta := uint8(rg.Intn(3)), uint8(rg.Intn(2))
		ch.SetBlock(x, y, z, typ, meta)
		refT[Idx(x, y, z)], refM[Idx(x, y, z)] = typ, meta
	}
	types, metas := make([]uint8, N), make([]uint8, N)
	ch.Flatten(types, metas)
	require.Equal(t, refT, types)
	require.Equal(t, refM, metas)

	snap := ch.Snapshot()
	ch.Fill(9, 9)
	snap.Flatten(types, nil)
	require.Equal(t, refT, types)
	typ, _ := ch.GetBlock(0, 0, 0)
	require.Equal(t, uint8(9), typ)
}

func TestChunk_Load(t *testing.T) {
	ch := NewChunk(ChunkCoord{}, testConfig(), nil)
	half := uint16(N / 2)
	good := []IntervalTree.LNode[uint8]{{Start: 0, Length: half, Value: 1}, {Start: half, Length: half, Value: 2}}
	require.Error(t, ch.Load(good, nil))
	require.NoError(t, ch.Load(good, []IntervalTree.LNode[uint8]{{Start: 0, Length: N, Value: 3}}))
	typ, meta := ch.GetBlock(0, 31, 31)
	require.Equal(t, uint8(2), typ)
	require.Equal(t, uint8(3), meta)

	err := ch.Load(good[:1], good)
	require.Error(t, err)
	_, ok := errors.Cause(err).(*IntervalTree.RunError)
	require.True(t, ok, "cause is %T", errors.Cause(err))
	typ, _ = ch.GetBlock(0, 31, 31)
	require.Equal(t, uint8(2), typ, "failed load changed the chunk")
}

func TestChunk_RestoreKeepsGenerationIncreasing(t *testing.T) {
	ch := NewChunk(ChunkCoord{}, testConfig(), nil)
	ch.SetBlock(1, 1, 1, 1, 0)
	old := ch.Snapshot()
	ch.SetBlock(2, 2, 2, 2, 0)
	ch.SetBlock(3, 3, 3, 3, 0)
	seen := ch.Generation()

	ch.Restore(old)
	require.Greater(t, ch.Generation(), seen)
	typ, _ := ch.GetBlock(2, 2, 2)
	require.Zero(t, typ)
	ch.SetBlock(4, 4, 4, 4, 0)
	ch.SetBlock(5, 5, 5, 5, 0)
	require.Greater(t, ch.Generation(), seen+1)

	// a snapshot from another chunk can be ahead of this one
	ahead := NewChunk(ChunkCoord{}, testConfig(), nil)
	for x := range 32 {
		ahead.SetBlock(uint8(x), 0, 0, 1, 0)
	}
	fresh := NewChunk(ChunkCoord{}, testConfig(), nil)
	fresh.Restore(ahead.Snapshot())
	require.Greater(t, fresh.Generation(), ahead.Generation())
}

func TestChunk_AdjustsPolicy(t *testing.T) {
	ch := NewChunk(ChunkCoord{}, ChunkConfig{}, nil)
	require.Equal(t, defaultCompactAfter, ch.cfg.CompactAfter)
	ch.SetBlock(0, 0, 0, 1, 0)
	require.False(t, ch.Due())
}

func TestChunk_TopAt(t *testing.T) {
	ch := NewChunk(ChunkCoord{}, testConfig(), nil)
	_, _, ok := ch.TopAt(3, 4)
	require.False(t, ok)
	ch.SetBlock(3, 10, 4, 5, 0)
	ch.SetBlock(3, 2, 4, 6, 0)
	y, typ, ok := ch.TopAt(3, 4)
	require.True(t, ok)
	require.Equal(t, uint8(10), y)
	require.Equal(t, uint8(5), typ)
	ch.SetBlock(3, 10, 4, 0, 0)
	y, typ, _ = ch.TopAt(3, 4)
	require.Equal(t, uint8(2), y)
	require.Equal(t, uint8(6), typ)
}

func TestChunk_MaybeCompact(t *testing.T) {
	ch := NewChunk(ChunkCoord{}, ChunkConfig{CompactAfter: 4, CompactMinMergeable: 1}, nil)
	// two neighbours set to the same value leave a mergeable pair behind
	ch.SetBlock(0, 0, 0, 1, 0)
	ch.SetBlock(1, 0, 0, 1, 0)
	require.False(t, ch.Due())
	require.False(t, ch.MaybeCompact())
	ch.SetBlock(2, 0, 0, 1, 0)
	ch.SetBlock(3, 0, 0, 1, 0)
	require.True(t, ch.Due())
	before, _ := ch.Nodes()
	require.True(t, ch.MaybeCompact())
	after, _ := ch.Nodes()
	require.Equal(t, 2, after)
	require.Less(t, after, before)
	require.False(t, ch.Due())
	typ, _ := ch.GetBlock(3, 0, 0)
	require.Equal(t, uint8(1), typ)
}

func TestChunk_Apply(t *testing.T) {
	src := NewChunk(ChunkCoord{}, testConfig(), nil)
	for range 300 {
		src.SetBlock(uint8(rg.Intn(CW)), uint8(rg.Intn(CH)), uint8(rg.Intn(CD)), uint8(rg.Intn(4)), 1)
	}
	dst := NewChunk(ChunkCoord{}, testConfig(), nil)
	assert.Positive(t, dst.Apply(src.DrainEdits(nil)))
	a, b := make([]uint8, N), make([]uint8, N)
	src.Flatten(a, nil)
	dst.Flatten(b, nil)
	require.Equal(t, a, b)
}

func TestChunk_Concurrent(t *testing.T) {
	ch := NewChunk(ChunkCoord{}, testConfig(), nil)
	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(w)))
			for range 2000 {
				ch.SetBlock(uint8(r.Intn(CW)), uint8(r.Intn(CH)), uint8(w), uint8(1+r.Intn(3)), 0)
				if r.Intn(100) == 0 {
					ch.Compact()
				}
			}
		}()
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(100 + w)))
			for range 2000 {
				ch.GetBlock(uint8(r.Intn(CW)), uint8(r.Intn(CH)), uint8(r.Intn(CD)))
				if r.Intn(200) == 0 {
					snap := ch.Snapshot()
					snap.GetBlock(0, 0, 0)
				}
			}
		}()
	}
	wg.Wait()
	ch.DrainEdits(nil)
	snap := ch.Snapshot()
	types, metas := snap.Runs()
	require.NotEmpty(t, types)
	require.Len(t, metas, 1)
}
