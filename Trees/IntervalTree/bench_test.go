package IntervalTree

import (
	"testing"
)

const (
	bCap  = MaxCapacity
	bRuns = 512
)

func create(b *testing.B) *Tree[uint8] {
	b.Helper()
	tree := mustNew[uint8](b, bCap)
	runs := make([]LNode[uint8], bRuns)
	for i := range runs {
		runs[i] = LNode[uint8]{uint16(i * bCap / bRuns), bCap / bRuns, uint8(i)}
	}
	if err := tree.InitFromSortedArray(runs); err != nil {
		b.Fatal(err)
	}
	return tree
}

var sideEff uint8

func BenchmarkGetData(b *testing.B) {
	tree := create(b)
	b.ResetTimer()
	for i := range b.N {
		sideEff = tree.GetData(i & (bCap - 1))
	}
}

func BenchmarkInsert(b *testing.B) {
	tree := create(b)
	b.ResetTimer()
	for i := range b.N {
		if i&4095 == 0 {
			b.StopTimer()
			tree.Compact()
			b.StartTimer()
		}
		tree.Insert(rg.Intn(bCap), uint8(rg.Intn(tValues)))
	}
}

func BenchmarkUncompress(b *testing.B) {
	tree := create(b)
	buf := make([]uint8, bCap)
	b.ResetTimer()
	for range b.N {
		tree.UncompressIntoBuffer(buf)
	}
}

func BenchmarkInitFromSortedArray(b *testing.B) {
	tree := create(b)
	runs := tree.Runs(nil)
	b.ResetTimer()
	for range b.N {
		_ = tree.InitFromSortedArray(runs)
	}
}
