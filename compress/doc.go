// Package compress provides the codecs used to keep decoded audio blocks
// compact in memory.
//
// Decoded PCM is 2 bytes per sample per channel, several times larger than
// the DSP-ADPCM it came from, so the block cache stores it compressed. The
// codec is chosen with a format.CompressionType:
//   - None: bypass, for short streams or when memory does not matter
//   - Zstd: best ratio, slowest; gozstd on cgo builds, klauspost/compress otherwise
//   - S2: balanced
//   - LZ4: fastest decompression, the block cache default
//
// All codecs share the Codec interface:
//
//	codec, err := compress.GetCodec(format.CompressionLZ4)
//	if err != nil {
//		return err
//	}
//	packed, err := codec.Compress(pcm)
//	...
//	pcm, err = codec.Decompress(packed)
//
// Codecs are stateless values and safe for concurrent use; encoder and
// decoder state is pooled internally.
package compress
