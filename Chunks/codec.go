package Chunks

import (
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/pingcap/errors"
	"golang.org/x/exp/constraints"

	"github.com/g-m-twostay/go-rle/Trees/IntervalTree"
)

// Format v1. Every encoding ends in the little endian xxhash64 of everything before it.
//
//	snapshot: "RLEC" v1 | varint X Y Z | uvarint generation | channel(type) channel(meta)
//	channel:  uvarint k | k * (uvarint length, value byte)
//	delta:    "RLED" v1 | varint X Y Z | uvarint n | n * (uvarint idx, type byte, meta byte)
const (
	formatV1 byte = 1
	sumLen        = 8
)

var (
	snapshotMagic = [4]byte{'R', 'L', 'E', 'C'}
	deltaMagic    = [4]byte{'R', 'L', 'E', 'D'}
)

var (
	ErrMagic     = errors.New("chunk codec: bad magic")
	ErrVersion   = errors.New("chunk codec: unsupported format version")
	ErrChecksum  = errors.New("chunk codec: checksum mismatch")
	ErrTruncated = errors.New("chunk codec: truncated input")
	ErrCoord     = errors.New("chunk codec: chunk coordinate out of range")
)

func appendUvarint[U constraints.Unsigned](b []byte, v U) []byte {
	return binary.AppendUvarint(b, uint64(v))
}

func appendVarint[I constraints.Signed](b []byte, v I) []byte {
	return binary.AppendVarint(b, int64(v))
}

func appendHeader(b []byte, magic [4]byte, c ChunkCoord) []byte {
	b = append(b, magic[:]...)
	b = append(b, formatV1)
	b = appendVarint(b, c.X)
	b = appendVarint(b, c.Y)
	return appendVarint(b, c.Z)
}

// appendSum appends the checksum of b[start:].
func appendSum(b []byte, start int) []byte {
	return binary.LittleEndian.AppendUint64(b, xxhash.Sum64(b[start:]))
}

func appendChannel(b []byte, runs []IntervalTree.LNode[uint8]) []byte {
	b = appendUvarint(b, uint(len(runs)))
	for _, r := range runs {
		b = appendUvarint(b, r.Length)
		b = append(b, r.Value)
	}
	return b
}

// AppendSnapshot appends the encoding of s to dst.
func AppendSnapshot(dst []byte, s *ChunkSnapshot) []byte {
	start := len(dst)
	b := appendHeader(dst, snapshotMagic, s.C)
	b = appendUvarint(b, s.Generation)
	types, metas := s.Runs()
	b = appendChannel(b, types)
	b = appendChannel(b, metas)
	return appendSum(b, start)
}

// EncodeSnapshot writes the encoding of s to w.
func EncodeSnapshot(w io.Writer, s *ChunkSnapshot) error {
	_, err := w.Write(AppendSnapshot(nil, s))
	return errors.Trace(err)
}

// DecodeSnapshot parses a snapshot encoding and validates its checksum and run coverage.
func DecodeSnapshot(data []byte) (*ChunkSnapshot, error) {
	d, err := open(data, snapshotMagic)
	if err != nil {
		return nil, err
	}
	c, err := d.coord()
	if err != nil {
		return nil, err
	}
	s := &ChunkSnapshot{C: c, Generation: d.uvarint()}
	if s.typ, err = d.channel(); err != nil {
		return nil, errors.Annotate(err, "type channel")
	}
	if s.meta, err = d.channel(); err != nil {
		return nil, errors.Annotate(err, "meta channel")
	}
	if err = d.finish(); err != nil {
		return nil, err
	}
	return s, nil
}

// AppendDeltaBatch appends the encoding of edits made to chunk c.
func AppendDeltaBatch(dst []byte, c ChunkCoord, edits []Edit) []byte {
	start := len(dst)
	b := appendHeader(dst, deltaMagic, c)
	b = appendUvarint(b, uint(len(edits)))
	for _, e := range edits {
		b = appendUvarint(b, e.Idx)
		b = append(b, e.Type, e.Meta)
	}
	return appendSum(b, start)
}

// EncodeDeltaBatch writes the encoding of edits made to chunk c to w.
func EncodeDeltaBatch(w io.Writer, c ChunkCoord, edits []Edit) error {
	_, err := w.Write(AppendDeltaBatch(nil, c, edits))
	return errors.Trace(err)
}

// DecodeDeltaBatch parses a delta batch, returning the chunk it belongs to and its edits.
func DecodeDeltaBatch(data []byte) (ChunkCoord, []Edit, error) {
	d, err := open(data, deltaMagic)
	if err != nil {
		return ChunkCoord{}, nil, err
	}
	c, err := d.coord()
	if err != nil {
		return ChunkCoord{}, nil, err
	}
	n := d.uvarint()
	if n > uint64(len(d.b)) { // every edit takes at least 3 bytes
		return ChunkCoord{}, nil, errors.Trace(ErrTruncated)
	}
	edits := make([]Edit, 0, n)
	for range n {
		idx := d.uvarint()
		typ, meta := d.u8(), d.u8()
		if d.err == nil && idx >= N {
			return ChunkCoord{}, nil, errors.Errorf("chunk codec: edit index %d out of range", idx)
		}
		edits = append(edits, Edit{uint16(idx), typ, meta})
	}
	if err = d.finish(); err != nil {
		return ChunkCoord{}, nil, err
	}
	return c, edits, nil
}

// decoder reads from b and latches the first error.
type decoder struct {
	b   []byte
	err error
}

// open checks the trailer checksum, magic and version and returns a decoder positioned after them.
func open(data []byte, magic [4]byte) (*decoder, error) {
	if len(data) < len(magic)+1+sumLen {
		return nil, errors.Trace(ErrTruncated)
	}
	body, sum := data[:len(data)-sumLen], data[len(data)-sumLen:]
	if [4]byte(body[:4]) != magic {
		return nil, errors.Trace(ErrMagic)
	}
	if body[4] != formatV1 {
		return nil, errors.Annotatef(ErrVersion, "version %d", body[4])
	}
	if xxhash.Sum64(body) != binary.LittleEndian.Uint64(sum) {
		return nil, errors.Trace(ErrChecksum)
	}
	return &decoder{b: body[5:]}, nil
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.b)
	if n <= 0 {
		d.err = ErrTruncated
		return 0
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.b)
	if n <= 0 {
		d.err = ErrTruncated
		return 0
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) u8() byte {
	if d.err != nil {
		return 0
	}
	if len(d.b) == 0 {
		d.err = ErrTruncated
		return 0
	}
	v := d.b[0]
	d.b = d.b[1:]
	return v
}

func (d *decoder) coord() (ChunkCoord, error) {
	var xyz [3]int32
	for i := range xyz {
		v := d.varint()
		if d.err != nil {
			return ChunkCoord{}, errors.Trace(d.err)
		}
		if v < MinCoord || v > MaxCoord {
			return ChunkCoord{}, errors.Annotatef(ErrCoord, "axis %d is %d", i, v)
		}
		xyz[i] = int32(v)
	}
	return ChunkCoord{xyz[0], xyz[1], xyz[2]}, nil
}

func (d *decoder) channel() (*IntervalTree.Tree[uint8], error) {
	k := d.uvarint()
	if d.err != nil {
		return nil, errors.Trace(d.err)
	}
	if k == 0 || k > N {
		return nil, errors.Errorf("chunk codec: %d runs", k)
	}
	runs := make([]IntervalTree.LNode[uint8], 0, k)
	start := uint64(0)
	for range k {
		l, v := d.uvarint(), d.u8()
		if d.err != nil {
			return nil, errors.Trace(d.err)
		}
		if l == 0 || start+l > N {
			return nil, errors.Errorf("chunk codec: run at %d of length %d exceeds the chunk", start, l)
		}
		runs = append(runs, IntervalTree.LNode[uint8]{Start: uint16(start), Length: uint16(l), Value: v})
		start += l
	}
	t := newChannel()
	if err := t.InitFromSortedArray(runs); err != nil {
		return nil, errors.Trace(err)
	}
	return t, nil
}

func (d *decoder) finish() error {
	if d.err != nil {
		return errors.Trace(d.err)
	}
	if len(d.b) != 0 {
		return errors.Errorf("chunk codec: %d trailing bytes", len(d.b))
	}
	return nil
}
