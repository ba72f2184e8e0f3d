package bfsar

import (
	"fmt"

	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/section"
)

// Lookup returns the ID of the item named name.
func (a *Archive) Lookup(name string) (ItemID, error) {
	if a.Tree == nil {
		return 0, fmt.Errorf("%w: %q: archive has no names", errs.ErrItemNotFound, name)
	}
	leaf, ok := a.Tree.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", errs.ErrItemNotFound, name)
	}

	return ItemID(leaf.ItemID), nil
}

// Name returns the name of an item.
func (a *Archive) Name(id ItemID) (string, bool) {
	nameID, ok := a.nameID(id)
	if !ok || nameID == NoName || int(nameID) >= len(a.Strings) {
		return "", false
	}

	return a.Strings[nameID], true
}

// Items returns every named item ordered by ID, which is kind then index.
func (a *Archive) Items() []Item {
	var items []Item
	add := func(t ItemType, n int) {
		for i := range n {
			id := NewItemID(t, i)
			if name, ok := a.Name(id); ok {
				items = append(items, Item{ID: id, Name: name})
			}
		}
	}
	add(ItemSound, len(a.Sounds))
	add(ItemSoundGroup, len(a.SoundGroups))
	add(ItemBank, len(a.Banks))
	add(ItemPlayer, len(a.Players))
	add(ItemWaveArchive, len(a.WaveArchives))
	add(ItemGroup, len(a.Groups))

	return items
}

// FileData returns the body of an internal file.
//
// Returns errs.ErrItemNotFound for an unknown file ID and
// errs.ErrInvalidFileInfo for external files, files stored in groups and
// files that do not fit the FILE block.
func (a *Archive) FileData(fileID uint32) ([]byte, error) {
	if int(fileID) >= len(a.Files) {
		return nil, fmt.Errorf("%w: file %d of %d", errs.ErrItemNotFound, fileID, len(a.Files))
	}
	f := a.Files[fileID]
	switch {
	case !f.Internal():
		return nil, fmt.Errorf("%w: file %d is external (%q)", errs.ErrInvalidFileInfo, fileID, f.External)
	case f.Offset == section.NullOffset:
		return nil, fmt.Errorf("%w: file %d is stored in a group", errs.ErrInvalidFileInfo, fileID)
	case f.Offset < 0 || int64(f.Offset)+int64(f.Size) > int64(len(a.fileBody)):
		return nil, fmt.Errorf("%w: file %d at 0x%x+0x%x exceeds the file block",
			errs.ErrInvalidFileInfo, fileID, f.Offset, f.Size)
	}

	return a.fileBody[f.Offset : int64(f.Offset)+int64(f.Size)], nil
}

func (a *Archive) nameID(id ItemID) (uint32, bool) {
	i := id.Index()
	switch id.Type() {
	case ItemSound:
		if i < len(a.Sounds) {
			return a.Sounds[i].NameID, true
		}
	case ItemSoundGroup:
		if i < len(a.SoundGroups) {
			return a.SoundGroups[i].NameID, true
		}
	case ItemBank:
		if i < len(a.Banks) {
			return a.Banks[i].NameID, true
		}
	case ItemPlayer:
		if i < len(a.Players) {
			return a.Players[i].NameID, true
		}
	case ItemWaveArchive:
		if i < len(a.WaveArchives) {
			return a.WaveArchives[i].NameID, true
		}
	case ItemGroup:
		if i < len(a.Groups) {
			return a.Groups[i].NameID, true
		}
	}

	return NoName, false
}

// setNameID stores nameID in the record of id and reports whether the
// record exists.
func (a *Archive) setNameID(id ItemID, nameID uint32) bool {
	i := id.Index()
	switch id.Type() {
	case ItemSound:
		if i < len(a.Sounds) {
			a.Sounds[i].NameID = nameID
			return true
		}
	case ItemSoundGroup:
		if i < len(a.SoundGroups) {
			a.SoundGroups[i].NameID = nameID
			return true
		}
	case ItemBank:
		if i < len(a.Banks) {
			a.Banks[i].NameID = nameID
			return true
		}
	case ItemPlayer:
		if i < len(a.Players) {
			a.Players[i].NameID = nameID
			return true
		}
	case ItemWaveArchive:
		if i < len(a.WaveArchives) {
			a.WaveArchives[i].NameID = nameID
			return true
		}
	case ItemGroup:
		if i < len(a.Groups) {
			a.Groups[i].NameID = nameID
			return true
		}
	}

	return false
}
