// Package dsp implements the DSP-ADPCM codec used by Nintendo stream and
// wave containers.
//
// # Frame Format
//
// Samples are packed in 8-byte frames holding 14 samples:
//
//	byte 0     predictor/scale: high nibble = coefficient pair index (0-7),
//	           low nibble = scale shift
//	bytes 1-7  14 signed 4-bit residuals, high nibble first
//
// Each residual n decodes as
//
//	sample = clamp16((((n * (1 << shift)) << 11) + 1024 + c1*yn1 + c2*yn2) >> 11)
//
// where (c1, c2) is the selected coefficient pair and yn1/yn2 are the two
// previously decoded samples. The pair (yn1, yn2) is the predictor history
// and must be carried across frames, blocks and loop points.
//
// # Encoding
//
// CalculateCoefficients derives the 8 coefficient pairs for a channel with
// the linear-prediction analysis used by the reference encoders; Encode
// then picks, per frame, the pair and scale with the smallest error.
// Encode records the predictor header and history at every frame boundary
// so containers can store start, loop, region and seek contexts.
package dsp
