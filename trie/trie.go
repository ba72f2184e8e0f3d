package trie

import (
	"fmt"
	"strings"

	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/internal/collision"
)

const (
	// NoChild marks a missing child, and the string index and item ID of
	// internal nodes.
	NoChild uint32 = 0xFFFFFFFF
	// LeafDiscriminator is stored in the discriminator field of leaves.
	LeafDiscriminator uint16 = 0xFFFF
	// NodeSize is the encoded size of one node.
	NodeSize = 20
	// maxKeyLen keeps every discriminator below LeafDiscriminator.
	maxKeyLen = 0x1FFF
)

// Key is one entry to index.
type Key struct {
	Name        string
	StringIndex uint32
	ItemID      uint32
}

// Node is one element of the flat node array.
type Node struct {
	Leaf          bool
	Discriminator uint16
	Left          uint32
	Right         uint32
	StringIndex   uint32
	ItemID        uint32
}

// Tree is a built or decoded trie.
type Tree struct {
	// Root is the index of the root node, NoChild for an empty tree.
	Root  uint32
	Nodes []Node

	names map[uint32]string
}

// Build constructs the trie for keys.
//
// Parameters:
//   - keys: entries with distinct, non-empty names
//
// Returns:
//   - *Tree: 2*len(keys)-1 nodes in in-order layout
//   - error: errs.ErrEmptyTrie, errs.ErrInvalidName or errs.ErrDuplicateTrieKey
func Build(keys []Key) (*Tree, error) {
	if len(keys) == 0 {
		return nil, errs.ErrEmptyTrie
	}

	reg := collision.NewRegistry()
	t := &Tree{
		Nodes: make([]Node, 0, 2*len(keys)-1),
		names: make(map[uint32]string, len(keys)),
	}
	for _, k := range keys {
		if len(k.Name) > maxKeyLen {
			return nil, fmt.Errorf("%w: name of %d bytes", errs.ErrInvalidName, len(k.Name))
		}
		// Names are stored NUL-terminated, so an embedded NUL is not representable.
		if strings.IndexByte(k.Name, 0) >= 0 {
			return nil, fmt.Errorf("%w: %q contains a NUL byte", errs.ErrInvalidName, k.Name)
		}
		if _, err := reg.Add(k.Name); err != nil {
			return nil, err
		}
		t.names[k.StringIndex] = k.Name
	}

	root, err := t.build(keys)
	if err != nil {
		return nil, err
	}
	t.Root = root

	return t, nil
}

// build appends the subtree for group in in-order layout and returns the
// index of its root.
func (t *Tree) build(group []Key) (uint32, error) {
	if len(group) == 1 {
		idx := uint32(len(t.Nodes)) //nolint:gosec
		t.Nodes = append(t.Nodes, Node{
			Leaf:          true,
			Discriminator: LeafDiscriminator,
			Left:          NoChild,
			Right:         NoChild,
			StringIndex:   group[0].StringIndex,
			ItemID:        group[0].ItemID,
		})

		return idx, nil
	}

	disc, ok := criticalBit(group)
	if !ok {
		return 0, fmt.Errorf("%w: %q has no distinguishing bit", errs.ErrDuplicateTrieKey, group[0].Name)
	}
	var left, right []Key
	for _, k := range group {
		if bitAt(k.Name, disc) {
			right = append(right, k)
		} else {
			left = append(left, k)
		}
	}

	l, err := t.build(left)
	if err != nil {
		return 0, err
	}
	idx := uint32(len(t.Nodes)) //nolint:gosec
	t.Nodes = append(t.Nodes, Node{
		Discriminator: disc,
		Left:          l,
		StringIndex:   NoChild,
		ItemID:        NoChild,
	})
	r, err := t.build(right)
	if err != nil {
		return 0, err
	}
	t.Nodes[idx].Right = r

	return idx, nil
}

// criticalBit returns the first bit, in MSB-first order, on which the group
// is not uniform. It reports false when every name reads the same once
// zero-padded.
func criticalBit(group []Key) (uint16, bool) {
	best := -1
	first := group[0].Name
	for _, k := range group[1:] {
		d := firstDifference(first, k.Name)
		if d >= 0 && (best < 0 || d < best) {
			best = d
		}
	}
	if best < 0 {
		return 0, false
	}

	return uint16(best), true //nolint:gosec
}

// firstDifference returns the MSB-first position of the first differing bit
// of two zero-padded strings, or -1 when there is none.
func firstDifference(a, b string) int {
	n := max(len(a), len(b))
	for i := range n {
		x := byteAt(a, i) ^ byteAt(b, i)
		if x == 0 {
			continue
		}
		pos := 0
		for x&0x80 == 0 {
			x <<= 1
			pos++
		}

		return i<<3 | pos
	}

	return -1
}

func byteAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}

	return 0
}

func bitAt(s string, disc uint16) bool {
	return byteAt(s, int(disc>>3))>>(7-disc&7)&1 == 1
}

// Walk follows name from the root to a leaf. Every path ends at a leaf, so
// a name that is not indexed still yields the leaf it would have replaced.
// It returns false only for an empty or malformed tree.
func (t *Tree) Walk(name string) (Node, bool) {
	if len(t.Nodes) == 0 {
		return Node{}, false
	}

	i := t.Root
	for range len(t.Nodes) {
		if i >= uint32(len(t.Nodes)) { //nolint:gosec
			return Node{}, false
		}
		n := t.Nodes[i]
		if n.Leaf {
			return n, true
		}
		if bitAt(name, n.Discriminator) {
			i = n.Right
		} else {
			i = n.Left
		}
	}

	return Node{}, false
}

// Lookup returns the leaf indexed under name. It reports false when the
// walk ends at a leaf for a different name or when the tree has no names
// to compare against.
func (t *Tree) Lookup(name string) (Node, bool) {
	n, ok := t.Walk(name)
	if !ok {
		return Node{}, false
	}
	if leafName, known := t.names[n.StringIndex]; !known || leafName != name {
		return n, false
	}

	return n, true
}

// Name returns the name of the leaf with the given string index.
func (t *Tree) Name(stringIndex uint32) (string, bool) {
	name, ok := t.names[stringIndex]
	return name, ok
}

// Leaves returns the leaf nodes in array order.
func (t *Tree) Leaves() []Node {
	leaves := make([]Node, 0, (len(t.Nodes)+1)/2)
	for _, n := range t.Nodes {
		if n.Leaf {
			leaves = append(leaves, n)
		}
	}

	return leaves
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return (len(t.Nodes) + 1) / 2
}
