// Package allocdemo synthesizes heterogeneous allocation patterns so a
// heap profile has interesting content. Each generator is a distinct
// function so the sampling allocator attributes its buffers to a distinct
// call stack.
package allocdemo

import (
	"context"
	"fmt"
	"sync"
)

const demoTaskCount = 4

// Batch is an ephemeral set of buffers created for one heap dump. The
// caller must keep it alive until the dump returns; it is never shared
// outside the call that created it.
type Batch struct {
	buffers [][]byte
}

// NewBatch assembles a batch from all four allocation patterns. The
// per-task pattern runs on independently scheduled goroutines to
// diversify the captured call sites.
func NewBatch(ctx context.Context) *Batch {
	b := &Batch{}
	b.buffers = append(b.buffers, largeBlocks()...)
	b.buffers = append(b.buffers, smallBlocks()...)
	b.buffers = append(b.buffers, textBuffers()...)

	results := make([][][]byte, demoTaskCount)
	var wg sync.WaitGroup
	for i := 0; i < demoTaskCount; i++ {
		wg.Add(1)
		go func(taskIndex int) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[taskIndex] = taskBuffers(taskIndex)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		b.buffers = append(b.buffers, r...)
	}
	return b
}

// Len returns the number of buffers in the batch.
func (b *Batch) Len() int {
	return len(b.buffers)
}

// TotalBytes returns the combined size of all buffers in the batch.
func (b *Batch) TotalBytes() uint64 {
	var total uint64
	for _, buf := range b.buffers {
		total += uint64(len(buf))
	}
	return total
}

// largeBlocks allocates ten contiguous blocks of 1..10 MiB.
func largeBlocks() [][]byte {
	blocks := make([][]byte, 0, 10)
	for i := 0; i < 10; i++ {
		block := make([]byte, (i+1)*1024*1024)
		for j := range block {
			block[j] = 0xAA
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// smallBlocks allocates many uniform blocks of 1..100 KiB.
func smallBlocks() [][]byte {
	blocks := make([][]byte, 0, 1000)
	for i := 0; i < 1000; i++ {
		block := make([]byte, (i%100+1)*1024)
		for j := range block {
			block[j] = 0xBB
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// textBuffers allocates variable-length text-like buffers.
func textBuffers() [][]byte {
	bufs := make([][]byte, 0, 500)
	for i := 0; i < 500; i++ {
		s := fmt.Sprintf("demo text buffer %d for heap profile visualization of string-shaped allocations", i)
		bufs = append(bufs, []byte(s))
	}
	return bufs
}

// taskBuffers allocates growing buffers keyed by task index. Called from
// per-task goroutines in NewBatch.
func taskBuffers(taskIndex int) [][]byte {
	bufs := make([][]byte, 0, 100)
	for i := 0; i < 100; i++ {
		buf := make([]byte, (i+1)*1024*(taskIndex+1))
		for j := range buf {
			buf[j] = byte(taskIndex)
		}
		bufs = append(bufs, buf)
	}
	return bufs
}
