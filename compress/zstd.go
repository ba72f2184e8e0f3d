package compress

// ZstdCompressor is the Zstandard codec. It trades speed for the best ratio,
// which suits long streams whose decoded blocks stay cached for a while.
//
// The implementation is gozstd on cgo builds for linux and darwin and
// klauspost/compress elsewhere; both produce standard zstd frames.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a Zstd codec.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
