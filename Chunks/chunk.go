// Package Chunks owns compressed interval stores per 32x32x32 block of voxels and provides
// the locking, journaling, compaction, persistence format and registry around them.
//
// Index scheme, fixed for the codec: idx = x | z<<5 | y<<10.
package Chunks

import (
	"fmt"
	"sync/atomic"

	"github.com/pingcap/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	Go_RLE "github.com/g-m-twostay/go-rle"
	"github.com/g-m-twostay/go-rle/Queues"
	"github.com/g-m-twostay/go-rle/Trees/IntervalTree"
)

const (
	CW = 32
	CH = 32
	CD = 32

	shiftZ = 5
	shiftY = 10
	mask5  = 31

	N = CW * CH * CD
)

// ChunkCoord addresses a chunk in chunk units.
type ChunkCoord struct{ X, Y, Z int32 }

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Chunk coordinates on every axis must lie in [MinCoord, MaxCoord].
const (
	MinCoord = -1 << 20
	MaxCoord = 1<<20 - 1
)

// key packs 21 bits of each axis.
func (c ChunkCoord) key() uint64 {
	const m = 1<<21 - 1
	return uint64(uint32(c.X)&m) | uint64(uint32(c.Y)&m)<<21 | uint64(uint32(c.Z)&m)<<42
}

// Edit is a single changed block.
type Edit struct {
	Idx        uint16
	Type, Meta uint8
}

// Pack converts local (x,y,z) (0..31) to a packed position, which is also the linear index.
func Pack(x, y, z uint8) uint16 {
	return uint16(x&mask5) | uint16(z&mask5)<<shiftZ | uint16(y&mask5)<<shiftY
}

func Unpack(p uint16) (x, y, z uint8) {
	x = uint8(p & mask5)
	z = uint8((p >> shiftZ) & mask5)
	y = uint8((p >> shiftY) & mask5)
	return
}

// Idx returns the linear index for local (x,y,z).
func Idx(x, y, z uint8) int { return int(Pack(x, y, z)) }

// Chunk is the authoritative storage for a 32x32x32 region: a Type and a Meta channel,
// each run-length compressed. All methods are safe for concurrent use.
type Chunk struct {
	C ChunkCoord

	mu        *xsync.RBMutex
	typ, meta *IntervalTree.Tree[uint8]
	gen       atomic.Uint64
	queued    atomic.Bool // on the world's dirty queue

	// guarded by mu
	edits        Queues.ArrayQueue[Edit]
	sinceCompact int
	topY         [CW * CD]uint8
	topType      [CW * CD]uint8
	stale        Go_RLE.BitArray // columns whose top cache must be recomputed

	cfg ChunkConfig
	log *zap.Logger
}

func newChannel() *IntervalTree.Tree[uint8] {
	t, err := IntervalTree.New[uint8](N)
	if err != nil {
		panic(err) // N is a valid capacity
	}
	return t
}

// NewChunk returns an all-air chunk. A nil logger discards. Non-positive policy values
// fall back to the defaults.
func NewChunk(c ChunkCoord, cfg ChunkConfig, logger *zap.Logger) *Chunk {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.adjust()
	ch := &Chunk{
		C:     c,
		mu:    xsync.NewRBMutex(),
		typ:   newChannel(),
		meta:  newChannel(),
		edits: Queues.MakeArrayQueue[Edit](16),
		stale: Go_RLE.NewBitArray(CW * CD),
		cfg:   cfg,
		log:   logger.With(zap.Stringer("chunk", c)),
	}
	ch.stale.Fill()
	return ch
}

// Generation increases with every content change.
func (c *Chunk) Generation() uint64 {
	return c.gen.Load()
}

func (c *Chunk) GetBlock(x, y, z uint8) (typ, meta uint8) {
	t := c.mu.RLock()
	defer c.mu.RUnlock(t)
	i := Idx(x, y, z)
	return c.typ.GetData(i), c.meta.GetData(i)
}

// SetBlock changes one block and reports whether anything changed.
func (c *Chunk) SetBlock(x, y, z uint8, typ, meta uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set(Pack(x, y, z), typ, meta)
}

func (c *Chunk) set(p uint16, typ, meta uint8) bool {
	i := int(p)
	if c.typ.GetData(i) == typ && c.meta.GetData(i) == meta {
		return false
	}
	c.typ.Insert(i, typ)
	c.meta.Insert(i, meta)
	c.edits.Push(Edit{p, typ, meta})
	c.sinceCompact++
	x, _, z := Unpack(p)
	c.stale.Up(int(x) + int(z)*CW)
	c.gen.Add(1)
	return true
}

// Apply replays edits in order and returns how many changed the chunk.
func (c *Chunk) Apply(edits []Edit) (n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range edits {
		if int(e.Idx) >= N {
			continue
		}
		if c.set(e.Idx, e.Type, e.Meta) {
			n++
		}
	}
	return
}

// Fill resets the whole chunk to one block.
func (c *Chunk) Fill(typ, meta uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typ.InitSingle(typ)
	c.meta.InitSingle(meta)
	c.reset()
}

// Load replaces both channels with the given runs, which must each tile [0, N).
// The chunk is unchanged on error.
func (c *Chunk) Load(typeRuns, metaRuns []IntervalTree.LNode[uint8]) error {
	typ, meta := newChannel(), newChannel()
	if err := typ.InitFromSortedArray(typeRuns); err != nil {
		return errors.Annotatef(err, "load type channel of chunk %v", c.C)
	}
	if err := meta.InitFromSortedArray(metaRuns); err != nil {
		return errors.Annotatef(err, "load meta channel of chunk %v", c.C)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typ, c.meta = typ, meta
	c.reset()
	return nil
}

// Restore replaces the chunk content with a copy of s. The generation afterwards is
// above both the chunk's previous one and s.Generation.
func (c *Chunk) Restore(s *ChunkSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typ, c.meta = s.typ.Clone(), s.meta.Clone()
	c.reset()
	if s.Generation >= c.gen.Load() {
		c.gen.Store(s.Generation + 1)
	}
}

// reset after a whole-chunk replacement. Requires the write lock.
func (c *Chunk) reset() {
	c.edits.Clear()
	c.sinceCompact = 0
	c.stale.Fill()
	c.gen.Add(1)
}

// Flatten writes the expanded channels into types and metas, either of which may be nil.
// Non-nil buffers must hold N entries.
func (c *Chunk) Flatten(types, metas []uint8) {
	t := c.mu.RLock()
	defer c.mu.RUnlock(t)
	if types != nil {
		c.typ.UncompressIntoBuffer(types)
	}
	if metas != nil {
		c.meta.UncompressIntoBuffer(metas)
	}
}

// Nodes returns the run count of each channel.
func (c *Chunk) Nodes() (types, metas int) {
	t := c.mu.RLock()
	defer c.mu.RUnlock(t)
	return c.typ.Size(), c.meta.Size()
}

// DrainEdits appends the journal of changed blocks since the last drain to dst.
func (c *Chunk) DrainEdits(dst []Edit) []Edit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edits.Drain(dst)
}

// TopAt returns the top-most solid (non zero type) block of column (x,z).
// Stale columns are recomputed on demand.
func (c *Chunk) TopAt(x, z uint8) (y, typ uint8, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col := int(x&mask5) + int(z&mask5)*CW
	if c.stale.Get(col) {
		c.topY[col], c.topType[col] = 0, 0
		for yy := CH - 1; yy >= 0; yy-- {
			if t := c.typ.GetData(Idx(x, uint8(yy), z)); t != 0 {
				c.topY[col], c.topType[col] = uint8(yy), t
				break
			}
		}
		c.stale.Down(col)
	}
	return c.topY[col], c.topType[col], c.topType[col] != 0
}

// Due reports whether enough edits accumulated for MaybeCompact to look at the chunk.
func (c *Chunk) Due() bool {
	t := c.mu.RLock()
	defer c.mu.RUnlock(t)
	return c.sinceCompact >= c.cfg.CompactAfter
}

// MaybeCompact compacts both channels if the chunk is Due and at least CompactMinMergeable
// adjacent runs could be merged. Reports whether it compacted.
func (c *Chunk) MaybeCompact() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sinceCompact < c.cfg.CompactAfter {
		return false
	}
	c.sinceCompact = 0
	m := c.typ.Mergeable() + c.meta.Mergeable()
	if m < c.cfg.CompactMinMergeable {
		return false
	}
	c.compact()
	return true
}

// Compact merges adjacent equal runs in both channels now and returns the number of nodes removed.
func (c *Chunk) Compact() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinceCompact = 0
	return c.compact()
}

func (c *Chunk) compact() int {
	tn, mn := c.typ.Size(), c.meta.Size()
	removed := c.typ.Compact() + c.meta.Compact()
	c.log.Debug("compacted chunk",
		zap.Int("type-nodes", tn), zap.Int("meta-nodes", mn), zap.Int("removed", removed))
	return removed
}

// Snapshot returns an immutable copy of the chunk that can be read without locking.
func (c *Chunk) Snapshot() *ChunkSnapshot {
	t := c.mu.RLock()
	defer c.mu.RUnlock(t)
	return &ChunkSnapshot{C: c.C, Generation: c.gen.Load(), typ: c.typ.Clone(), meta: c.meta.Clone()}
}

// ChunkSnapshot is a point in time copy of a chunk. Its methods are safe for concurrent use.
type ChunkSnapshot struct {
	C          ChunkCoord
	Generation uint64
	typ, meta  *IntervalTree.Tree[uint8]
}

func (s *ChunkSnapshot) GetBlock(x, y, z uint8) (typ, meta uint8) {
	i := Idx(x, y, z)
	return s.typ.GetData(i), s.meta.GetData(i)
}

// Flatten is Chunk.Flatten on the snapshot.
func (s *ChunkSnapshot) Flatten(types, metas []uint8) {
	if types != nil {
		s.typ.UncompressIntoBuffer(types)
	}
	if metas != nil {
		s.meta.UncompressIntoBuffer(metas)
	}
}

// Runs exports both channels' runs.
func (s *ChunkSnapshot) Runs() (types, metas []IntervalTree.LNode[uint8]) {
	return s.typ.Runs(nil), s.meta.Runs(nil)
}
