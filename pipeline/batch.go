package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunBatch processes items with a bounded worker pool and returns one result
// per item, in input order.  Per-item failures (including panics) are
// converted into failed FileResults; they never cancel sibling items.  The
// only way RunBatch returns an error is context cancellation.
//
// Width is bounded by concurrency alone.  The handler's batch size governs
// how many items are offered to RunBatch at a time; it does not introduce a
// second level of slicing inside the pool.
func RunBatch(ctx context.Context, items []FileInfo, concurrency int, fn func(context.Context, FileInfo) FileResult) ([]FileResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]FileResult, len(items))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(concurrency)

	for i := range items {
		i := i
		grp.Go(func() error {
			select {
			case <-gctx.Done():
				return context.Cause(gctx)
			default:
			}
			results[i] = runOne(gctx, items[i], fn)
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return results, fmt.Errorf("pipeline: batch cancelled: %w", err)
	}

	return results, nil
}

func runOne(ctx context.Context, item FileInfo, fn func(context.Context, FileInfo) FileResult) (result FileResult) {
	defer func() {
		if r := recover(); r != nil {
			result = FileResult{
				Path: item.Path,
				Err:  Errf(CodeParseFailure, "panic while processing %s: %v", item.Path, r),
			}
		}
	}()

	return fn(ctx, item)
}

// Chunk splits items into groups of at most size elements.  Handlers feed
// each chunk to RunBatch in turn, bounding in-flight file handles and
// repository requests between chunk boundaries.  A size below 1 means no
// batching: everything lands in a single chunk.
func Chunk(items []FileInfo, size int) [][]FileInfo {
	if size < 1 {
		size = len(items)
	}
	if size < 1 {
		return nil
	}

	chunks := make([][]FileInfo, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
