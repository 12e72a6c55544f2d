/*
Package bitint provides the power-of-two helpers used to size capture blocks,
peak-scan chunks and handoff queues.

All functions are branch-light, allocation free and safe to call from the
real-time audio callback.

	blockSize := bitint.NextPowerOfTwo(6000) // 8192
	ok := bitint.IsPowerOfTwo(512)           // true
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive input
// returns 1. The size-1 keeps exact powers of two unchanged.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// ChunkCount returns how many whole chunks of chunkSize fit in n frames.
// chunkSize must be a power of two; the division becomes a shift.
func ChunkCount(n, chunkSize int) int {
	if n <= 0 || !IsPowerOfTwo(chunkSize) {
		return 0
	}
	return n >> bits.TrailingZeros(uint(chunkSize))
}
