package bfstm

import (
	"github.com/arloliu/bfsnd/section"
)

// Section flags.
const (
	SectionInfo   section.Flag = 0x4000
	SectionSeek   section.Flag = 0x4001
	SectionData   section.Flag = 0x4002
	SectionRegion section.Flag = 0x4003
	SectionPdat   section.Flag = 0x4004
)

// Reference flags inside the INFO block.
const (
	RefStreamInfo  section.Flag = 0x4100
	RefTrackInfo   section.Flag = 0x4101
	RefChannelInfo section.Flag = 0x4102
	RefDSPADPCM    section.Flag = 0x0300
	RefIMAADPCM    section.Flag = 0x0301
)

var (
	FileMagic   = section.MagicOf("FSTM")
	InfoMagic   = section.MagicOf("INFO")
	SeekMagic   = section.MagicOf("SEEK")
	DataMagic   = section.MagicOf("DATA")
	RegionMagic = section.MagicOf("REGN")
)

// Versions.
const (
	// DefaultVersion is the version written by this package.
	DefaultVersion section.Version = 0x00060100
	// versionUnalignedLoop is the last version without the unaligned loop
	// points in stream info; later versions carry them.
	versionUnalignedLoop section.Version = 0x00040000
	// versionChecksum adds the checksum to stream info.
	versionChecksum section.Version = 0x00050000
)

// Layout constants used by the writer.
const (
	// DefaultBlockSize is the per-channel block size in bytes.
	DefaultBlockSize = 0x2000
	// DefaultRegionInfoSize is the stride of region records.
	DefaultRegionInfoSize = 0x100
	// MaxTracks is the number of tracks the parser keeps.
	MaxTracks = 8
	// seekEntrySize is yn1 and yn2 of one channel.
	seekEntrySize = 4
	// dataPadding is the distance from the DATA block origin to the first sample.
	dataPadding = 0x18
	// regionPadding is the distance from the REGN block origin to the first record.
	regionPadding = 0x18
	// blockAlignment is the alignment of the last block's raw size.
	blockAlignment = 0x20
	// dspInfoSize is 16 coefficients, two contexts and padding.
	dspInfoSize = 0x30
	// regionRecordFixedSize is start and end sample.
	regionRecordFixedSize = 8
	// contextSize is header, yn1 and yn2.
	contextSize = 6
)

// hasUnalignedLoop reports whether stream info of version v carries the
// unaligned loop points. Version 4.0.0 itself does not.
func hasUnalignedLoop(v section.Version) bool {
	return v > versionUnalignedLoop
}
