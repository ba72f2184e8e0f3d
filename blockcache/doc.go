// Package blockcache keeps decoded DSP-ADPCM blocks so that looping and
// region playback do not decode the same frames again.
//
// A block is identified by everything its decoded output depends on: the
// block index, the first sample and the number of samples decoded, the
// channel, and the predictor history entering the first frame. Entries are
// stored compressed with a compress codec (LZ4 by default) together with
// the history leaving the block, so a hit restores both the samples and the
// decoder state.
//
// The cache is bounded by entry count and evicts the least recently used
// block. It is safe for concurrent use.
package blockcache
