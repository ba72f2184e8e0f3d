package compress

import (
	"testing"
)

func BenchmarkAllCodecs_Compress(b *testing.B) {
	data := pcmBlock(14336)
	for ct, codec := range allCodecs() {
		b.Run(ct.String(), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for b.Loop() {
				if _, err := codec.Compress(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkAllCodecs_Decompress(b *testing.B) {
	data := pcmBlock(14336)
	for ct, codec := range allCodecs() {
		packed, err := codec.Compress(data)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(ct.String(), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for b.Loop() {
				if _, err := codec.Decompress(packed); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkLZ4Decompress_Parallel(b *testing.B) {
	codec := NewLZ4Compressor()
	packed, err := codec.Compress(pcmBlock(14336))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := codec.Decompress(packed); err != nil {
				b.Fatal(err)
			}
		}
	})
}
