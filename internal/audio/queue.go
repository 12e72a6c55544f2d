// SPDX-License-Identifier: MIT
package audio

import (
	"sync"
	"sync/atomic"

	"micpipe/internal/analysis"
)

// Block is one converted buffer travelling from the audio callback to the
// processing goroutine.
type Block struct {
	Buffer    *analysis.SampleBuffer
	Timestamp Timestamp
}

// BlockQueue is a bounded single-producer queue. Push never blocks: when the
// queue is full the oldest block is discarded so the consumer always sees
// the most recent audio.
type BlockQueue struct {
	blocks    chan Block
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewBlockQueue returns a queue holding up to depth blocks (at least 1).
func NewBlockQueue(depth int) *BlockQueue {
	return &BlockQueue{blocks: make(chan Block, max(1, depth))}
}

// Push enqueues b without blocking. It must not be called after Close.
func (q *BlockQueue) Push(b Block) {
	for {
		select {
		case q.blocks <- b:
			return
		default:
		}

		select {
		case <-q.blocks:
			q.dropped.Add(1)
		default:
			// Consumer drained it in the meantime.
		}
	}
}

// Blocks returns the receive side. It is closed by Close.
func (q *BlockQueue) Blocks() <-chan Block {
	return q.blocks
}

// Len returns the number of queued blocks.
func (q *BlockQueue) Len() int {
	return len(q.blocks)
}

// Dropped returns how many blocks were discarded.
func (q *BlockQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close ends the stream of blocks. Blocks already queued are still
// delivered. Safe to call more than once.
func (q *BlockQueue) Close() {
	q.closeOnce.Do(func() { close(q.blocks) })
}
