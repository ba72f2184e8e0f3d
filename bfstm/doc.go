// Package bfstm reads, writes and synthesizes BFSTM streaming-audio
// containers.
//
// # File Layout
//
//	FSTM header          magic, BOM, header size, version, file size, sections
//	  INFO (0x4000)      stream info, track table, channel table
//	  SEEK (0x4001)      per block, per channel predictor history (DSP-ADPCM)
//	  REGN (0x4003)      optional region records with per-channel contexts
//	  DATA (0x4002)      interleaved sample blocks
//
// Sample data is stored in blocks. Block i of channel j starts at
//
//	i*channelCount*blockSizeBytes + j*thisBlockSize
//
// where thisBlockSize is blockSizeBytes for every block except the last,
// which uses the padded lastBlockSizeBytesRaw.
//
// # Usage
//
//	stream, err := bfstm.Parse(data)
//	if err != nil {
//	    return err
//	}
//	for _, w := range stream.Warnings {
//	    log.Println(w)
//	}
//	fmt.Println(stream.Info.SampleRate, stream.LengthSeconds())
//
// Write is the structural inverse of Parse, and FromPCM builds a File from
// raw PCM, computing DSP-ADPCM coefficients, contexts and the seek table.
package bfstm
