package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func square(i int) int { return i * i }

func TestParallelize(t *testing.T) {
	expected := []int{0, 1, 4, 9, 16, 25, 36, 49}

	assert.Equal(t, expected, Parallelize[int](nil, len(expected), square))

	pl := NewPool(3)
	defer pl.TearDown()
	assert.Equal(t, expected, Parallelize(pl, len(expected), square))
}

func TestParallelizeConcurrentCallers(t *testing.T) {
	pl := NewPool(2)
	defer pl.TearDown()

	var wg sync.WaitGroup
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := Parallelize(pl, 20, square)
			for i, v := range out {
				assert.Equal(t, i*i, v)
			}
		}()
	}
	wg.Wait()
}
