package qureg

import (
	"golang.org/x/sync/errgroup"
)

/*
chunks splits [0, n) into at most workers contiguous ranges. Small shards
come back as a single range so the serial path has no goroutine overhead.
*/
func (c *Config) chunks(n int) [][2]int {
	workers := c.workers()
	if n < c.threshold() || workers < 2 {
		return [][2]int{{0, n}}
	}

	if workers > n {
		workers = n
	}

	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}

// parallelFor runs fn over disjoint ranges of [0, n).
func (c *Config) parallelFor(n int, fn func(lo, hi int)) {
	ranges := c.chunks(n)
	if len(ranges) == 1 {
		fn(0, n)
		return
	}

	var g errgroup.Group
	for _, r := range ranges {
		lo, hi := r[0], r[1]
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

/*
parallelSum reduces fn over disjoint ranges of [0, n). Partials are added
in range order, so the result does not depend on scheduling.
*/
func (c *Config) parallelSum(n int, fn func(lo, hi int) complex128) complex128 {
	ranges := c.chunks(n)
	if len(ranges) == 1 {
		return fn(0, n)
	}

	partials := make([]complex128, len(ranges))

	var g errgroup.Group
	for i, r := range ranges {
		i, lo, hi := i, r[0], r[1]
		g.Go(func() error {
			partials[i] = fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()

	var sum complex128
	for _, p := range partials {
		sum += p
	}
	return sum
}
