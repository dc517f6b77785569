package parallel

import "sync"

// minChunk is the smallest range handed to one work item. Smaller inputs
// run on the calling goroutine.
const minChunk = 256

var (
	defaultOnce sync.Once
	defaultPool *WorkerPool
)

// Default returns the shared pool sized to GOMAXPROCS.
// It lives for the life of the process.
func Default() *WorkerPool {
	defaultOnce.Do(func() {
		defaultPool = NewWorkerPool(0)
	})
	return defaultPool
}

// For calls fn over [0, n) split into contiguous [lo, hi) ranges, one per
// worker at most, and returns when every range is done.
// A nil pool uses Default().
func For(p *WorkerPool, n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if p == nil {
		p = Default()
	}
	if n <= minChunk || p.Workers() == 1 {
		fn(0, n)
		return
	}

	chunks := min(p.Workers(), (n+minChunk-1)/minChunk)
	size := (n + chunks - 1) / chunks

	work := make([]func(), 0, chunks)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		work = append(work, func() { fn(lo, hi) })
	}
	p.ExecuteAll(work)
}

// Convert writes conv(src[i]) to dst[i] for every i in parallel.
// dst must be at least as long as src.
func Convert[S, D any](p *WorkerPool, src []S, dst []D, conv func(S) D) {
	if len(dst) < len(src) {
		panic("parallel: Convert destination shorter than source")
	}
	For(p, len(src), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = conv(src[i])
		}
	})
}
