package Go_RLE

import (
	"math/bits"
)

// NewBitArray holding at least size bits, all down.
func NewBitArray(size int) BitArray {
	return BitArray{bits: make([]uint, (size+bits.UintSize-1)/bits.UintSize)}
}

// BitArray is a fixed size bitset. Copies share the underlying words.
type BitArray struct {
	bits []uint
}

func (u BitArray) Len() int {
	return len(u.bits) * bits.UintSize
}

func (u BitArray) Get(i int) bool {
	return (u.bits[i/bits.UintSize]>>(i%bits.UintSize))&1 == 1
}

func (u BitArray) Up(i int) {
	u.bits[i/bits.UintSize] |= 1 << (i % bits.UintSize)
}

func (u BitArray) Down(i int) {
	u.bits[i/bits.UintSize] &^= 1 << (i % bits.UintSize)
}

// Fill sets every bit up.
func (u BitArray) Fill() {
	for i := range u.bits {
		u.bits[i] = ^uint(0)
	}
}

// Reset sets every bit down.
func (u BitArray) Reset() {
	clear(u.bits)
}

// Any reports whether some bit is up.
func (u BitArray) Any() bool {
	for _, w := range u.bits {
		if w != 0 {
			return true
		}
	}
	return false
}

// Count of bits up.
func (u BitArray) Count() (c int) {
	for _, w := range u.bits {
		c += bits.OnesCount(w)
	}
	return
}
