package bfsar

import (
	"github.com/arloliu/bfsnd/section"
)

// Section flags.
const (
	SectionStrings section.Flag = 0x2000
	SectionInfo    section.Flag = 0x2001
	SectionFile    section.Flag = 0x2002
)

// STRG references.
const (
	RefStringTable section.Flag = 0x2400
	RefLookupTable section.Flag = 0x2401
)

// INFO references, in the order they are stored.
const (
	RefSoundTable       section.Flag = 0x2100
	RefBankTable        section.Flag = 0x2101
	RefPlayerTable      section.Flag = 0x2102
	RefWaveArchiveTable section.Flag = 0x2103
	RefSoundGroupTable  section.Flag = 0x2104
	RefGroupTable       section.Flag = 0x2105
	RefFileTable        section.Flag = 0x2106
)

// INFO table element and record flags.
const (
	FlagSoundInfo         section.Flag = 0x2200
	FlagStreamSoundInfo   section.Flag = 0x2201
	FlagWaveSoundInfo     section.Flag = 0x2202
	FlagSequenceSoundInfo section.Flag = 0x2203
	FlagSoundGroupInfo    section.Flag = 0x2204
	FlagBankInfo          section.Flag = 0x2206
	FlagWaveArchiveInfo   section.Flag = 0x2207
	FlagGroupInfo         section.Flag = 0x2208
	FlagPlayerInfo        section.Flag = 0x2209
	FlagFileInfo          section.Flag = 0x220A
	FlagArchivePlayerInfo section.Flag = 0x220B
	FlagInternalFileInfo  section.Flag = 0x220C
	FlagExternalFileInfo  section.Flag = 0x220D
)

var (
	FileMagic      = section.MagicOf("FSAR")
	StringsMagic   = section.MagicOf("STRG")
	InfoMagic      = section.MagicOf("INFO")
	FileBlockMagic = section.MagicOf("FILE")
)

const (
	// DefaultVersion is written by Write.
	DefaultVersion section.Version = 0x00020400
	// NoName marks a record without a name.
	NoName uint32 = 0xFFFFFFFF
	// fileInfoBodyOffset is the distance from a file info record to its body.
	fileInfoBodyOffset = 0x0C
	// fileDataPadding is the distance from the FILE block origin to the first file.
	fileDataPadding = 0x18
	// fileAlignment is the alignment of files inside the FILE block.
	fileAlignment = 0x20
)
