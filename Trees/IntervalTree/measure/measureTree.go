package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/g-m-twostay/go-rle/Trees/IntervalTree"
)

var (
	bInsN  = 20000
	bVals  = 4
	bSteps = 20
)

var _R rand.Rand = *rand.New(rand.NewSource(0))

// stats of the last workload run by BenchmarkInsert.
var lastHeight, lastSize, lastMergeable int

func BenchmarkInsert(b *testing.B) {
	for range b.N {
		tree, err := IntervalTree.New[uint8](IntervalTree.MaxCapacity)
		if err != nil {
			b.Fatal(err)
		}
		for range bInsN {
			tree.Insert(_R.Intn(IntervalTree.MaxCapacity), uint8(_R.Intn(bVals)))
		}
		lastHeight, lastSize, lastMergeable = tree.Height(), tree.Size(), tree.Mergeable()
	}
}

func main() {
	testing.Init()
	flag.IntVar(&bInsN, "inserts", bInsN, "inserts per workload at the first step")
	flag.IntVar(&bVals, "values", bVals, "number of distinct values")
	flag.IntVar(&bSteps, "steps", bSteps, "number of workload sizes")
	flag.Parse()

	base := bInsN
	var cs []float64
	for i := 1; i <= bSteps; i++ {
		bInsN = base * i
		br := testing.Benchmark(BenchmarkInsert)
		ns := float64(br.NsPerOp()) / float64(bInsN)
		cs = append(cs, ns)
		bound := 2 * math.Log2(float64(lastSize+1))
		fmt.Printf("inserts=%d size=%d height=%d bound=%.1f mergeable=%d %.1fns/insert\n",
			bInsN, lastSize, lastHeight, bound, lastMergeable, ns)
	}
	var sum float64
	for _, v := range cs {
		sum += v
	}
	avg := sum / float64(len(cs))
	fmt.Printf("average: %fns/insert\n", avg)
	sum = 0
	for _, v := range cs {
		a := v - avg
		sum += a * a
	}
	fmt.Printf("stddev: %fns/insert\n", math.Sqrt(sum/float64(len(cs))))
}
