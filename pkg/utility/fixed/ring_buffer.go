package fixed

import "fmt"

// RingBuffer is a bounded window over Points. Once full, Add evicts the
// oldest entry. Index 0 is always the most recently added Point.
type RingBuffer struct {
	buffer   []Point
	capacity int
	size     int
	tail     int
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		panic("capacity must be positive")
	}
	return &RingBuffer{
		buffer:   make([]Point, capacity),
		capacity: capacity,
	}
}

func (r *RingBuffer) Size() int {
	return r.size
}

func (r *RingBuffer) Capacity() int {
	return r.capacity
}

func (r *RingBuffer) IsEmpty() bool {
	return r.size == 0
}

func (r *RingBuffer) IsFull() bool {
	return r.size == r.capacity
}

func (r *RingBuffer) Clear() {
	r.size = 0
	r.tail = 0
}

func (r *RingBuffer) Add(p Point) {
	r.buffer[r.tail] = p
	r.tail = (r.tail + 1) % r.capacity

	if r.size < r.capacity {
		r.size++
	}
}

func (r *RingBuffer) Get(idx int) Point {
	if idx < 0 || idx >= r.size {
		panic(fmt.Sprintf("index %d out of range [0, %d)", idx, r.size))
	}

	actualIdx := (r.tail - 1 - idx + r.capacity) % r.capacity
	return r.buffer[actualIdx]
}

func (r *RingBuffer) Latest() Point {
	if r.size == 0 {
		panic("buffer is empty")
	}
	return r.Get(0)
}

func (r *RingBuffer) Oldest() Point {
	if r.size == 0 {
		panic("buffer is empty")
	}
	return r.Get(r.size - 1)
}

func (r *RingBuffer) ToSliceFifo() []Point {
	if r.size == 0 {
		return nil
	}

	result := make([]Point, r.size)
	for i := 0; i < r.size; i++ {
		result[i] = r.Get(r.size - 1 - i)
	}
	return result
}

func (r *RingBuffer) ForEachFifo(f func(Point)) {
	for i := r.size - 1; i >= 0; i-- {
		f(r.Get(i))
	}
}

func (r *RingBuffer) Sum() Point {
	sum := Zero
	r.ForEachFifo(func(p Point) {
		sum = sum.Add(p)
	})
	return sum
}

// Mean carries a running average, so intermediates stay within the
// value range and never overflow the decimal coefficient.
func (r *RingBuffer) Mean() Point {
	mean := Zero
	n := 0
	r.ForEachFifo(func(p Point) {
		n++
		mean = mean.Add(p.Sub(mean).DivInt(n))
	})
	return mean
}

// StdDev is the population standard deviation of the buffered Points.
func (r *RingBuffer) StdDev() Point {
	return r.variance().Sqrt()
}

func (r *RingBuffer) SampleStdDev() Point {
	if r.size <= 1 {
		return Zero
	}
	v := r.variance()
	return v.Add(v.DivInt(r.size - 1)).Sqrt()
}

// variance averages the squared deviations incrementally; see Mean.
func (r *RingBuffer) variance() Point {
	if r.size <= 1 {
		return Zero
	}

	mean := r.Mean()
	avg := Zero
	n := 0

	r.ForEachFifo(func(p Point) {
		n++
		diff := p.Sub(mean)
		avg = avg.Add(diff.Mul(diff).Sub(avg).DivInt(n))
	})
	return avg
}

func (r *RingBuffer) Min() Point {
	if r.size == 0 {
		panic("buffer is empty")
	}

	minVal := r.Get(0)
	for i := 1; i < r.size; i++ {
		val := r.Get(i)
		if val.Lt(minVal) {
			minVal = val
		}
	}
	return minVal
}

func (r *RingBuffer) Max() Point {
	if r.size == 0 {
		panic("buffer is empty")
	}

	maxVal := r.Get(0)
	for i := 1; i < r.size; i++ {
		val := r.Get(i)
		if val.Gt(maxVal) {
			maxVal = val
		}
	}
	return maxVal
}
