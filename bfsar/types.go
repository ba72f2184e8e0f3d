package bfsar

import (
	"fmt"

	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/section"
	"github.com/arloliu/bfsnd/trie"
)

// ItemType is the kind of an archive item, stored in the top byte of its ID.
type ItemType uint8

const (
	ItemNull        ItemType = 0
	ItemSound       ItemType = 1
	ItemSoundGroup  ItemType = 2
	ItemBank        ItemType = 3
	ItemPlayer      ItemType = 4
	ItemWaveArchive ItemType = 5
	ItemGroup       ItemType = 6

	itemTypeCount = 7
)

func (t ItemType) String() string {
	switch t {
	case ItemNull:
		return "Null"
	case ItemSound:
		return "Sound"
	case ItemSoundGroup:
		return "SoundGroup"
	case ItemBank:
		return "Bank"
	case ItemPlayer:
		return "Player"
	case ItemWaveArchive:
		return "WaveArchive"
	case ItemGroup:
		return "Group"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// ItemID identifies an archive item.
type ItemID uint32

// NewItemID packs a type and a table index.
func NewItemID(t ItemType, index int) ItemID {
	return ItemID(uint32(t)<<24 | uint32(index)&0xFFFFFF) //nolint:gosec
}

// Type returns the item kind.
func (id ItemID) Type() ItemType { return ItemType(id >> 24) }

// Index returns the index into the kind's table.
func (id ItemID) Index() int { return int(id & 0xFFFFFF) }

func (id ItemID) String() string {
	return fmt.Sprintf("%s#%d", id.Type(), id.Index())
}

// SoundType is the flag of a sound's detail record.
type SoundType = section.Flag

// SoundInfo is one sound.
type SoundInfo struct {
	FileID       uint32
	PlayerID     uint32
	Volume       uint8
	RemoteFilter uint8
	Type         SoundType
	// DetailOffset locates the type-specific record, relative to the sound record.
	DetailOffset int32
	Flags        uint32
	NameID       uint32
}

// SoundGroupInfo is a contiguous range of sound IDs.
type SoundGroupInfo struct {
	StartID ItemID
	EndID   ItemID
	NameID  uint32
}

// BankInfo is an instrument bank.
type BankInfo struct {
	FileID uint32
	NameID uint32
}

// WaveArchiveInfo is a wave archive.
type WaveArchiveInfo struct {
	FileID    uint32
	WaveCount uint32
	Flags     uint32
	NameID    uint32
}

// GroupInfo is a file group.
type GroupInfo struct {
	FileID uint32
	NameID uint32
}

// PlayerInfo is a sound player.
type PlayerInfo struct {
	PlayableSoundMax uint32
	Flags            uint32
	NameID           uint32
}

// FileLocation says where a file's body lives.
type FileLocation = section.Flag

// FileInfo locates one file. Internal files are stored in the FILE block
// at Offset, or in a group when Offset is section.NullOffset; external
// files are named by path.
type FileInfo struct {
	Location FileLocation
	Offset   int32
	Size     uint32
	External string
}

// Internal reports whether the file body is stored in this archive.
func (f FileInfo) Internal() bool {
	return f.Location == FlagInternalFileInfo
}

// PlayerSettings holds the archive-wide player limits.
type PlayerSettings struct {
	SequenceSoundMax  uint16
	SequenceTrackMax  uint16
	StreamSoundMax    uint16
	StreamTrackMax    uint16
	StreamChannelMax  uint16
	WaveSoundMax      uint16
	WaveTrackMax      uint16
	StreamBufferTimes uint8
	IsAdvancedWave    uint8
}

// Archive is a parsed sound archive.
type Archive struct {
	Version section.Version
	Engine  endian.EndianEngine

	// Strings is the STRG string table; NameID fields index it.
	Strings []string
	// Tree is the name lookup trie, nil without a STRG section.
	Tree *trie.Tree

	Sounds       []SoundInfo
	SoundGroups  []SoundGroupInfo
	Banks        []BankInfo
	WaveArchives []WaveArchiveInfo
	Groups       []GroupInfo
	Players      []PlayerInfo
	Files        []FileInfo
	Settings     PlayerSettings

	// Warnings holds recoverable problems found while parsing.
	Warnings []error

	fileBody []byte
}

// Item is a named archive entry.
type Item struct {
	ID   ItemID
	Name string
}

// ItemName binds a name to an item for WriteStrings.
type ItemName = Item
