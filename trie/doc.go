// Package trie builds, encodes and queries the critical-bit string trie
// that sound archives use to map item names to item IDs.
//
// The trie is stored as a flat array of 20-byte nodes. An internal node
// holds a discriminator selecting one bit of the key and the indices of
// its two children; a leaf holds the key's string table index and its
// item ID. Nodes are laid out in in-order traversal, so a node's left
// subtree precedes it and its right subtree follows it.
//
// The discriminator packs a byte index and an MSB-first bit position:
//
//	disc = byteIndex<<3 | position
//	bit  = key[byteIndex] >> (7 - position) & 1
//
// Bytes past the end of a key read as zero. A set bit selects the right child.
package trie
