package trie

import (
	"fmt"

	"github.com/arloliu/bfsnd/bytestream"
	"github.com/arloliu/bfsnd/errs"
)

// EncodedSize returns the number of bytes Encode writes.
func (t *Tree) EncodedSize() int {
	return 8 + len(t.Nodes)*NodeSize
}

// Encode writes the root index, the node count and every node.
func (t *Tree) Encode(w *bytestream.Writer) {
	w.PutU32(t.Root)
	w.PutU32(uint32(len(t.Nodes))) //nolint:gosec
	for _, n := range t.Nodes {
		if n.Leaf {
			w.PutU8(1)
		} else {
			w.PutU8(0)
		}
		w.PutU8(0)
		w.PutU16(n.Discriminator)
		w.PutU32(n.Left)
		w.PutU32(n.Right)
		w.PutU32(n.StringIndex)
		w.PutU32(n.ItemID)
	}
}

// Decode reads a tree at the reader's cursor.
//
// Parameters:
//   - r: reader positioned at the root index
//   - names: the archive's string table, indexed by string index; may be nil
//
// Returns:
//   - *Tree: the decoded tree; Lookup compares against names
//   - error: errs.ErrOutOfBounds or errs.ErrInvalidTrie for child indices
//     outside the node array
func Decode(r *bytestream.Reader, names []string) (*Tree, error) {
	var root, count uint32
	if err := r.Fields(&root, &count); err != nil {
		return nil, err
	}
	if int64(count)*NodeSize > int64(r.Remaining()) {
		return nil, fmt.Errorf("%w: trie declares %d nodes", errs.ErrOutOfBounds, count)
	}

	t := &Tree{Root: root, Nodes: make([]Node, count), names: make(map[uint32]string, len(names))}
	for i, name := range names {
		t.names[uint32(i)] = name //nolint:gosec
	}

	for i := range t.Nodes {
		n := &t.Nodes[i]
		var leaf, pad uint8
		if err := r.Fields(&leaf, &pad, &n.Discriminator, &n.Left, &n.Right, &n.StringIndex, &n.ItemID); err != nil {
			return nil, err
		}
		n.Leaf = leaf != 0
	}

	if count == 0 {
		if root != NoChild {
			return nil, fmt.Errorf("%w: empty trie with root %d", errs.ErrInvalidTrie, root)
		}

		return t, nil
	}
	if root >= count {
		return nil, fmt.Errorf("%w: root %d of %d nodes", errs.ErrInvalidTrie, root, count)
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Left >= count || n.Right >= count {
			return nil, fmt.Errorf("%w: node %d has children %d and %d of %d nodes",
				errs.ErrInvalidTrie, i, n.Left, n.Right, count)
		}
	}

	return t, nil
}
