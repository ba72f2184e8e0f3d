package bfsar

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bfsnd/bytestream"
	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/section"
	"github.com/arloliu/bfsnd/trie"
)

func testArchive() *Archive {
	a := &Archive{
		Strings: []string{
			"STRM_BGM_TITLE", "SE_JUMP", "SE_COIN", "GRP_MAIN",
			"PLAYER_BGM", "BANK_SE", "WARC_SE", "SG_SE",
		},
	}
	wave := a.AddInternalFile([]byte("FWSD wave sound data"))
	bank := a.AddInternalFile(bytes.Repeat([]byte{0xAB}, 100))
	stream := a.AddExternalFile("stream/STRM_BGM_TITLE.bfstm")

	a.Sounds = []SoundInfo{
		{FileID: stream, PlayerID: 0, Volume: 100, Type: FlagStreamSoundInfo, DetailOffset: 0x1C, Flags: 1, NameID: 0},
		{FileID: wave, Volume: 127, RemoteFilter: 2, Type: FlagWaveSoundInfo, DetailOffset: 0x1C, NameID: 1},
		{FileID: wave, Volume: 90, Type: FlagSequenceSoundInfo, DetailOffset: 0x20, NameID: 2},
	}
	a.SoundGroups = []SoundGroupInfo{{StartID: NewItemID(ItemSound, 1), EndID: NewItemID(ItemSound, 2), NameID: 7}}
	a.Banks = []BankInfo{{FileID: bank, NameID: 5}}
	a.WaveArchives = []WaveArchiveInfo{{FileID: bank, WaveCount: 3, NameID: 6}}
	a.Groups = []GroupInfo{{FileID: bank, NameID: 3}}
	a.Players = []PlayerInfo{{PlayableSoundMax: 1, Flags: 0, NameID: 4}}
	a.Settings = PlayerSettings{
		SequenceSoundMax: 8, SequenceTrackMax: 16, StreamSoundMax: 2, StreamTrackMax: 2,
		StreamChannelMax: 4, WaveSoundMax: 32, WaveTrackMax: 32, StreamBufferTimes: 1,
	}

	return a
}

func sectionOffset(data []byte, i int) int {
	pos := section.FileHeaderFixedSize + i*section.SectionEntrySize + 4
	return int(int32(binary.LittleEndian.Uint32(data[pos:])))
}

func TestItemID(t *testing.T) {
	id := NewItemID(ItemWaveArchive, 0x123)
	require.Equal(t, ItemID(0x05000123), id)
	require.Equal(t, ItemWaveArchive, id.Type())
	require.Equal(t, 0x123, id.Index())
	require.Equal(t, "WaveArchive#291", id.String())
	require.Equal(t, "Unknown(9)", ItemType(9).String())
}

func TestRoundTrip(t *testing.T) {
	for _, engine := range []endian.EndianEngine{endian.GetLittleEndianEngine(), endian.GetBigEndianEngine()} {
		t.Run(endian.Name(engine), func(t *testing.T) {
			want := testArchive()
			want.Engine = engine

			data, err := Write(want)
			require.NoError(t, err)

			got, err := Parse(data)
			require.NoError(t, err)
			require.Empty(t, got.Warnings)
			require.Equal(t, DefaultVersion, got.Version)
			require.Equal(t, engine, got.Engine)
			require.Equal(t, want.Strings, got.Strings)
			require.Equal(t, want.Sounds, got.Sounds)
			require.Equal(t, want.SoundGroups, got.SoundGroups)
			require.Equal(t, want.Banks, got.Banks)
			require.Equal(t, want.WaveArchives, got.WaveArchives)
			require.Equal(t, want.Groups, got.Groups)
			require.Equal(t, want.Players, got.Players)
			require.Equal(t, want.Settings, got.Settings)

			require.Len(t, got.Files, len(want.Files))
			for i, f := range want.Files {
				require.Equal(t, f.Location, got.Files[i].Location)
				require.Equal(t, f.Size, got.Files[i].Size)
				require.Equal(t, f.External, got.Files[i].External)
				if !f.Internal() {
					continue
				}
				wantBody, err := want.FileData(uint32(i))
				require.NoError(t, err)
				gotBody, err := got.FileData(uint32(i))
				require.NoError(t, err)
				require.Equal(t, wantBody, gotBody)
				require.Zero(t, (int(got.Files[i].Offset)+section.BlockHeaderSize)%fileAlignment)
			}

			again, err := Write(got)
			require.NoError(t, err)
			require.Equal(t, data, again)
		})
	}
}

func TestLookup(t *testing.T) {
	data, err := Write(testArchive())
	require.NoError(t, err)
	arc, err := Parse(data)
	require.NoError(t, err)

	tests := []struct {
		name string
		want ItemID
	}{
		{"STRM_BGM_TITLE", NewItemID(ItemSound, 0)},
		{"SE_JUMP", NewItemID(ItemSound, 1)},
		{"SE_COIN", NewItemID(ItemSound, 2)},
		{"SG_SE", NewItemID(ItemSoundGroup, 0)},
		{"BANK_SE", NewItemID(ItemBank, 0)},
		{"PLAYER_BGM", NewItemID(ItemPlayer, 0)},
		{"WARC_SE", NewItemID(ItemWaveArchive, 0)},
		{"GRP_MAIN", NewItemID(ItemGroup, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := arc.Lookup(tt.name)
			require.NoError(t, err)
			require.Equal(t, tt.want, id)

			name, ok := arc.Name(id)
			require.True(t, ok)
			require.Equal(t, tt.name, name)
		})
	}

	_, err = arc.Lookup("SE_MISSING")
	require.ErrorIs(t, err, errs.ErrItemNotFound)

	_, ok := arc.Name(NewItemID(ItemSound, 9))
	require.False(t, ok)

	items := arc.Items()
	require.Len(t, items, len(tests))
	for i := 1; i < len(items); i++ {
		require.Less(t, items[i-1].ID, items[i].ID)
	}
}

func TestFileData(t *testing.T) {
	arc := testArchive()

	body, err := arc.FileData(0)
	require.NoError(t, err)
	require.Equal(t, []byte("FWSD wave sound data"), body)

	_, err = arc.FileData(2)
	require.ErrorIs(t, err, errs.ErrInvalidFileInfo)

	_, err = arc.FileData(3)
	require.ErrorIs(t, err, errs.ErrItemNotFound)

	arc.Files = append(arc.Files, FileInfo{Location: FlagInternalFileInfo, Offset: section.NullOffset})
	_, err = arc.FileData(3)
	require.ErrorIs(t, err, errs.ErrInvalidFileInfo)

	arc.Files[3].Offset = 0x7FFF
	_, err = arc.FileData(3)
	require.ErrorIs(t, err, errs.ErrInvalidFileInfo)
}

func TestWriteStrings(t *testing.T) {
	names := []ItemName{
		{ID: NewItemID(ItemSound, 0), Name: "SE_A"},
		{ID: NewItemID(ItemSound, 1), Name: "SE_B"},
		{ID: NewItemID(ItemGroup, 0), Name: "GRP"},
	}

	data, err := WriteStrings(names, WithEngine(endian.GetBigEndianEngine()))
	require.NoError(t, err)
	require.Zero(t, len(data)%section.BlockAlignment)

	r := bytestream.NewReaderWithEngine(data, endian.GetBigEndianEngine())
	base, size, err := section.ReadBlockHeader(r, section.SectionEntry{Offset: 0}, StringsMagic)
	require.NoError(t, err)
	require.Equal(t, uint32(len(data)), size)

	tableRef, err := section.ReadReferenceEntry(r)
	require.NoError(t, err)
	require.Equal(t, RefStringTable, tableRef.Flag)
	lutRef, err := section.ReadReferenceEntry(r)
	require.NoError(t, err)
	require.Equal(t, RefLookupTable, lutRef.Flag)

	require.NoError(t, r.Seek(base.Resolve(tableRef.Offset)))
	count, err := r.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(3), count)
	first, err := section.ReadSizedReference(r)
	require.NoError(t, err)
	require.Equal(t, section.FlagStringEntry, first.Flag)
	require.Equal(t, uint32(len("SE_A")+1), first.Size)

	require.NoError(t, r.Seek(base.Resolve(lutRef.Offset)))
	tree, err := trie.Decode(r, []string{"SE_A", "SE_B", "GRP"})
	require.NoError(t, err)
	for i, n := range names {
		leaf, ok := tree.Lookup(n.Name)
		require.True(t, ok)
		require.Equal(t, uint32(n.ID), leaf.ItemID)
		require.Equal(t, uint32(i), leaf.StringIndex)
	}

	_, err = WriteStrings(nil)
	require.ErrorIs(t, err, errs.ErrEmptyTrie)

	_, err = WriteStrings([]ItemName{{Name: "X"}, {Name: "X", ID: 1}})
	require.ErrorIs(t, err, errs.ErrDuplicateTrieKey)
}

func TestWriteErrors(t *testing.T) {
	a := testArchive()
	a.Banks[0].NameID = 99
	_, err := Write(a)
	require.ErrorIs(t, err, errs.ErrInvalidStringTable)

	a = testArchive()
	a.Banks[0].NameID = a.Groups[0].NameID
	_, err = Write(a)
	require.ErrorIs(t, err, errs.ErrDuplicateTrieKey)

	a = testArchive()
	a.Files[0].Location = 0x1234
	_, err = Write(a)
	require.ErrorIs(t, err, errs.ErrInvalidFileInfo)
}

func TestParseWithoutNames(t *testing.T) {
	a := testArchive()
	for i := range a.Sounds {
		a.Sounds[i].NameID = NoName
	}
	a.SoundGroups[0].NameID = NoName
	a.Banks[0].NameID = NoName
	a.WaveArchives[0].NameID = NoName
	a.Groups[0].NameID = NoName
	a.Players[0].NameID = NoName

	data, err := Write(a)
	require.NoError(t, err)

	arc, err := Parse(data)
	require.NoError(t, err)
	require.Nil(t, arc.Tree)
	require.Empty(t, arc.Strings)
	require.Len(t, arc.Sounds, 3)

	_, err = arc.Lookup("SE_JUMP")
	require.ErrorIs(t, err, errs.ErrItemNotFound)
	require.Empty(t, arc.Items())
}

func TestParseWarnings(t *testing.T) {
	t.Run("item count mismatch", func(t *testing.T) {
		a := testArchive()
		a.Sounds[2].NameID = NoName

		data, err := Write(a)
		require.NoError(t, err)
		arc, err := Parse(data)
		require.NoError(t, err)
		require.Len(t, arc.Warnings, 1)
		require.ErrorIs(t, arc.Warnings[0], errs.ErrItemCountMismatch)
	})

	t.Run("wave archives are exempt", func(t *testing.T) {
		a := testArchive()
		a.WaveArchives[0].NameID = NoName

		data, err := Write(a)
		require.NoError(t, err)
		arc, err := Parse(data)
		require.NoError(t, err)
		require.Empty(t, arc.Warnings)
	})

	t.Run("newer version", func(t *testing.T) {
		data, err := Write(testArchive())
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(data[8:], 0x00020500)

		arc, err := Parse(data)
		require.NoError(t, err)
		require.Len(t, arc.Warnings, 1)
		require.ErrorIs(t, arc.Warnings[0], errs.ErrUnsupportedVersion)
	})

	t.Run("unknown sound type", func(t *testing.T) {
		a := testArchive()
		a.Sounds[0].Type = 0x2299

		data, err := Write(a)
		require.NoError(t, err)
		arc, err := Parse(data)
		require.NoError(t, err)
		require.Len(t, arc.Warnings, 1)
		require.ErrorIs(t, arc.Warnings[0], errs.ErrUnsupportedSectionFlag)
	})
}

func TestParseErrors(t *testing.T) {
	good, err := Write(testArchive())
	require.NoError(t, err)
	strgOff := sectionOffset(good, 0)
	infoOff := sectionOffset(good, 1)

	patch := func(fn func(b []byte)) []byte {
		b := append([]byte(nil), good...)
		fn(b)

		return b
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", patch(func(b []byte) { copy(b, "FSTM") }), errs.ErrMalformedMagic},
		{"truncated", good[:0x20], errs.ErrOutOfBounds},
		{"unknown section", patch(func(b []byte) {
			binary.LittleEndian.PutUint16(b[section.FileHeaderFixedSize:], 0x2010)
		}), errs.ErrUnsupportedSectionFlag},
		{"missing file", patch(func(b []byte) {
			binary.LittleEndian.PutUint16(b[section.FileHeaderFixedSize+2*section.SectionEntrySize:], uint16(SectionStrings))
		}), errs.ErrMissingRequiredSection},
		{"bad info reference", patch(func(b []byte) {
			binary.LittleEndian.PutUint16(b[infoOff+8:], 0x1234)
		}), errs.ErrMissingReference},
		{"bad string reference", patch(func(b []byte) {
			binary.LittleEndian.PutUint16(b[strgOff+8:], 0x1234)
		}), errs.ErrInvalidStringTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
