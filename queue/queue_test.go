package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinglePushPop(t *testing.T) {
	q := New[int]()

	q.Push(42)

	v, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = q.TryPop()
	assert.False(t, ok)
	assert.True(t, q.IsEmpty())
}

func TestFIFOOrderSingleThreaded(t *testing.T) {
	q := New[int]()

	for i := 0; i < 10; i++ {
		q.Push(i)
	}

	for i := 0; i < 10; i++ {
		v, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestParallelDrainPreservesMultiset(t *testing.T) {
	const (
		producers     = 4
		perProducer   = 10000
		consumers     = 4
	)

	q := New[int]()

	var produceWg sync.WaitGroup
	for p := 0; p < producers; p++ {
		produceWg.Add(1)
		go func(id int) {
			defer produceWg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(id)
			}
		}(p)
	}

	popped := make(chan int, producers*perProducer)
	var consumeWg sync.WaitGroup
	var stop sync.Once
	done := make(chan struct{})

	for c := 0; c < consumers; c++ {
		consumeWg.Add(1)
		go func() {
			defer consumeWg.Done()
			for {
				if v, ok := q.TryPop(); ok {
					popped <- v
					continue
				}
				select {
				case <-done:
					// Final drain in case a push lands between our last
					// empty TryPop and the producers finishing.
					for {
						v, ok := q.TryPop()
						if !ok {
							return
						}
						popped <- v
					}
				default:
				}
			}
		}()
	}

	produceWg.Wait()
	stop.Do(func() { close(done) })
	consumeWg.Wait()
	close(popped)

	counts := make(map[int]int)
	total := 0
	for v := range popped {
		counts[v]++
		total++
	}

	assert.Equal(t, producers*perProducer, total)
	for p := 0; p < producers; p++ {
		assert.Equal(t, perProducer, counts[p], "producer %d", p)
	}
	assert.True(t, q.IsEmpty())
}

func TestSizeSandwichAtQuiescence(t *testing.T) {
	q := New[int]()
	assert.Equal(t, 0, q.Size())
	_, ok := q.TryPop()
	assert.False(t, ok)

	q.Push(1)
	q.Push(2)
	assert.Equal(t, 2, q.Size())

	q.TryPop()
	q.TryPop()
	assert.Equal(t, 0, q.Size())
	_, ok = q.TryPop()
	assert.False(t, ok)
}

func TestClearEmptiesQueue(t *testing.T) {
	q := New[string]()
	q.Push("a")
	q.Push("b")

	q.Clear()

	assert.True(t, q.IsEmpty())
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestNoDuplicationUnderConcurrentPushPop(t *testing.T) {
	q := New[int]()
	const total = 5000

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			q.Push(v)
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool, total)
	count := 0
	for {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		require.False(t, seen[v], "duplicate value %d", v)
		seen[v] = true
		count++
	}

	assert.Equal(t, total, count)
}
