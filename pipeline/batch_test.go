package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchItems(n int) []FileInfo {
	items := make([]FileInfo, n)
	for i := range items {
		items[i] = FileInfo{RelPath: fmt.Sprintf("file%03d.md", i)}
	}
	return items
}

func TestRunBatchPreservesOrder(t *testing.T) {
	items := batchItems(20)

	results, err := RunBatch(context.Background(), items, 8, func(ctx context.Context, f FileInfo) FileResult {
		return FileResult{Path: f.RelPath, Success: true}
	})
	require.NoError(t, err)
	require.Len(t, results, len(items))

	for i, r := range results {
		assert.Equal(t, items[i].RelPath, r.Path)
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	items := batchItems(10)

	results, err := RunBatch(context.Background(), items, 4, func(ctx context.Context, f FileInfo) FileResult {
		if f.RelPath == "file003.md" || f.RelPath == "file007.md" {
			return FileResult{Path: f.RelPath, Err: Errf(CodeFileRead, "boom: %s", f.RelPath)}
		}
		return FileResult{Path: f.RelPath, Success: true}
	})
	require.NoError(t, err)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			assert.True(t, r.Success, "item %s should have succeeded", r.Path)
		}
	}
	assert.Equal(t, 2, failed)
}

func TestRunBatchRecoversPanics(t *testing.T) {
	items := batchItems(5)

	results, err := RunBatch(context.Background(), items, 2, func(ctx context.Context, f FileInfo) FileResult {
		if f.RelPath == "file002.md" {
			panic("worker exploded")
		}
		return FileResult{Path: f.RelPath, Success: true}
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	require.NotNil(t, results[2].Err)
	assert.False(t, results[2].Success)
	assert.True(t, results[3].Success, "panic must not poison later items")
}

func TestRunBatchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBatch(ctx, batchItems(100), 4, func(ctx context.Context, f FileInfo) FileResult {
		return FileResult{Path: f.RelPath, Success: true}
	})
	assert.Error(t, err)
}

func TestChunk(t *testing.T) {
	chunks := Chunk(batchItems(10), 4)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 4)
	assert.Len(t, chunks[1], 4)
	assert.Len(t, chunks[2], 2)

	assert.Empty(t, Chunk(nil, 4))

	// zero size degrades to a single chunk
	whole := Chunk(batchItems(3), 0)
	require.Len(t, whole, 1)
	assert.Len(t, whole[0], 3)
}
