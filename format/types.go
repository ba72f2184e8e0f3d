package format

import "fmt"

type (
	// Encoding is the sample encoding tag stored in stream and wave containers.
	Encoding uint8
	// CompressionType selects the codec used by the decoded block cache.
	CompressionType uint8
)

const (
	PCM8     Encoding = 0x0 // PCM8 is signed 8-bit PCM.
	PCM16    Encoding = 0x1 // PCM16 is signed 16-bit PCM.
	DSPADPCM Encoding = 0x2 // DSPADPCM is 4-bit DSP-ADPCM in 8-byte frames.
	IMAADPCM Encoding = 0x3 // IMAADPCM is recognized but not supported.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

func (e Encoding) String() string {
	switch e {
	case PCM8:
		return "PCM8"
	case PCM16:
		return "PCM16"
	case DSPADPCM:
		return "DSP-ADPCM"
	case IMAADPCM:
		return "IMA-ADPCM"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(e))
	}
}

// Supported reports whether samples in this encoding can be decoded.
func (e Encoding) Supported() bool {
	return e == PCM8 || e == PCM16 || e == DSPADPCM
}

// BytesPerSample returns the storage width of one PCM sample, or 0 for
// frame-based encodings.
func (e Encoding) BytesPerSample() int {
	switch e {
	case PCM8:
		return 1
	case PCM16:
		return 2
	default:
		return 0
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseCompressionType maps a lowercase codec name to its CompressionType.
func ParseCompressionType(name string) (CompressionType, bool) {
	switch name {
	case "none", "":
		return CompressionNone, true
	case "zstd":
		return CompressionZstd, true
	case "s2":
		return CompressionS2, true
	case "lz4":
		return CompressionLZ4, true
	default:
		return 0, false
	}
}
