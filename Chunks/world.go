package Chunks

import (
	"context"
	"time"

	"github.com/alphadose/haxmap"
	"go.uber.org/zap"

	"github.com/g-m-twostay/go-rle/Queues"
)

// World is a concurrent registry of chunks with a background compactor.
type World struct {
	cfg    *Config
	log    *zap.Logger
	chunks *haxmap.Map[uint64, *Chunk]
	dirty  Queues.Queue[ChunkCoord]
}

// NewWorld with a copy of cfg, nil meaning DefaultConfig. Invalid values in cfg fall back
// to the defaults, see Config.Adjust. A nil logger discards.
func NewWorld(cfg *Config, logger *zap.Logger) *World {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		c := *cfg
		c.Adjust()
		cfg = &c
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &World{
		cfg:    cfg,
		log:    logger,
		chunks: haxmap.New[uint64, *Chunk](uintptr(cfg.World.InitialSize)),
		dirty:  Queues.MakeConcurrentLinkedQueue[ChunkCoord](),
	}
}

// SplitCoord turns world block coordinates into a chunk and local coordinates, flooring towards -inf.
func SplitCoord(wx, wy, wz int) (c ChunkCoord, x, y, z uint8) {
	c = ChunkCoord{int32(wx >> shiftZ), int32(wy >> shiftZ), int32(wz >> shiftZ)}
	return c, uint8(wx & mask5), uint8(wy & mask5), uint8(wz & mask5)
}

func (w *World) Get(c ChunkCoord) (*Chunk, bool) {
	return w.chunks.Get(c.key())
}

// GetOrCreate returns the chunk at c, creating an all-air one if absent.
func (w *World) GetOrCreate(c ChunkCoord) *Chunk {
	ch, loaded := w.chunks.GetOrCompute(c.key(), func() *Chunk {
		return NewChunk(c, w.cfg.Chunk, w.log)
	})
	if !loaded {
		w.log.Debug("created chunk", zap.Stringer("chunk", c))
	}
	return ch
}

func (w *World) Delete(c ChunkCoord) {
	w.chunks.Del(c.key())
}

func (w *World) Len() int {
	return int(w.chunks.Len())
}

// Range calls f on every chunk until it returns false.
func (w *World) Range(f func(*Chunk) bool) {
	w.chunks.ForEach(func(_ uint64, ch *Chunk) bool {
		return f(ch)
	})
}

// GetBlock at world coordinates. Absent chunks read as air.
func (w *World) GetBlock(wx, wy, wz int) (typ, meta uint8) {
	c, x, y, z := SplitCoord(wx, wy, wz)
	if ch, ok := w.Get(c); ok {
		return ch.GetBlock(x, y, z)
	}
	return 0, 0
}

// SetBlock at world coordinates, creating the chunk if needed. Chunks that become due
// for compaction are queued for the compactor.
func (w *World) SetBlock(wx, wy, wz int, typ, meta uint8) bool {
	c, x, y, z := SplitCoord(wx, wy, wz)
	ch := w.GetOrCreate(c)
	changed := ch.SetBlock(x, y, z, typ, meta)
	if changed && ch.Due() {
		w.enqueue(ch)
	}
	return changed
}

// MarkDirty queues the chunk at c for the next compaction pass. A chunk is queued
// at most once between passes, absent chunks are ignored.
func (w *World) MarkDirty(c ChunkCoord) {
	if ch, ok := w.Get(c); ok {
		w.enqueue(ch)
	}
}

func (w *World) enqueue(ch *Chunk) {
	if ch.queued.CompareAndSwap(false, true) {
		w.dirty.Push(ch.C)
	}
}

// CompactDirty drains the dirty queue once and returns how many chunks were compacted.
func (w *World) CompactDirty() (n int) {
	coords := w.dirty.Drain(nil)
	for _, c := range coords {
		ch, ok := w.Get(c)
		if !ok {
			continue
		}
		ch.queued.Store(false)
		if ch.MaybeCompact() {
			n++
		}
	}
	if n > 0 {
		w.log.Info("compacted dirty chunks", zap.Int("queued", len(coords)), zap.Int("compacted", n))
	}
	return
}

// Compactor runs CompactDirty every compact-interval until ctx is done, returning ctx.Err().
func (w *World) Compactor(ctx context.Context) error {
	interval := w.cfg.World.CompactInterval.Duration
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	w.log.Info("compactor started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("compactor stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			w.CompactDirty()
		}
	}
}
