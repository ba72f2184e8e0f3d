// Package bfsar reads and writes BFSAR sound archives.
//
// An archive has three sections:
//
//	STRG (0x2000)  item names: a string table plus a critical-bit trie
//	               mapping each name to its item ID
//	INFO (0x2001)  one table per item kind (sounds, sound groups, banks,
//	               wave archives, groups, players, files) and the archive
//	               player settings
//	FILE (0x2002)  the bodies of internal files
//
// Item IDs pack the item kind in the top byte and the index into that
// kind's table in the low 24 bits. Names are attached to items through the
// trie leaves; records without a leaf have no name.
//
//	arc, err := bfsar.Parse(data)
//	if err != nil {
//	    return err
//	}
//	id, err := arc.Lookup("STRM_BGM_TITLE")
//	if err != nil {
//	    return err
//	}
//	sound := arc.Sounds[id.Index()]
//	body, err := arc.FileData(sound.FileID)
package bfsar
