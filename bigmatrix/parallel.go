package bigmatrix

// Copyright (c) 2025 Colin McRae

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelRange splits [0, n) into contiguous chunks, at most one per CPU, and
// runs fn(lo, hi) on each chunk in its own goroutine. Chunks never overlap, so
// fn may write to disjoint output slices without locking. The first non-nil
// error wins; the remaining chunks still run to completion.
func parallelRange(n int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			return fn(lo, hi)
		})
	}
	return g.Wait()
}
