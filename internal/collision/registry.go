package collision

import (
	"fmt"

	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/internal/hash"
)

// Registry records item names in insertion order and rejects duplicates.
// Names are indexed by their xxHash64; a name whose hash is already taken
// by a different name goes to an overflow set so lookups stay exact.
type Registry struct {
	hashFn   func(string) uint64
	byHash   map[uint64]int // Hash → insertion index of the first name with that hash
	overflow map[string]int // Names that collided → insertion index
	names    []string       // Insertion order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		hashFn:   hash.ID,
		byHash:   make(map[uint64]int),
		overflow: make(map[string]int),
	}
}

// Add records name and returns its insertion index.
//
// Returns errs.ErrInvalidName for an empty name and errs.ErrDuplicateTrieKey
// when the name was added before.
func (r *Registry) Add(name string) (int, error) {
	if name == "" {
		return -1, errs.ErrInvalidName
	}
	if _, ok := r.Index(name); ok {
		return -1, fmt.Errorf("%w: %q", errs.ErrDuplicateTrieKey, name)
	}

	idx := len(r.names)
	h := r.hashFn(name)
	if _, taken := r.byHash[h]; taken {
		r.overflow[name] = idx
	} else {
		r.byHash[h] = idx
	}
	r.names = append(r.names, name)

	return idx, nil
}

// Index returns the insertion index of name.
func (r *Registry) Index(name string) (int, bool) {
	if idx, ok := r.byHash[r.hashFn(name)]; ok && r.names[idx] == name {
		return idx, true
	}
	idx, ok := r.overflow[name]

	return idx, ok
}

// HasCollision reports whether two different names shared a hash.
func (r *Registry) HasCollision() bool {
	return len(r.overflow) > 0
}

// Names returns the names in insertion order.
func (r *Registry) Names() []string {
	return r.names
}

// Count returns the number of names.
func (r *Registry) Count() int {
	return len(r.names)
}

// Reset clears the registry, keeping its allocations.
func (r *Registry) Reset() {
	clear(r.byHash)
	clear(r.overflow)
	r.names = r.names[:0]
}
