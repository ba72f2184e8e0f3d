package pool

import "sync"

var int16SlicePool = sync.Pool{
	New: func() any { return &[]int16{} },
}

// GetInt16Slice retrieves and resizes an int16 slice from the pool.
//
// The returned slice has length size; its contents are unspecified.
// The caller must call the returned cleanup function to return the slice to the pool.
//
// Parameters:
//   - size: The desired length of the slice
//
// Returns:
//   - []int16: A slice with length equal to size
//   - func(): Cleanup function that must be called (typically with defer) to return the slice to the pool
//
// Example:
//
//	pcm, cleanup := pool.GetInt16Slice(0x3800)
//	defer cleanup()
func GetInt16Slice(size int) ([]int16, func()) {
	ptr, _ := int16SlicePool.Get().(*[]int16)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]int16, size)
	} else {
		slice = slice[:size]
	}
	*ptr = slice

	return slice, func() { int16SlicePool.Put(ptr) }
}
