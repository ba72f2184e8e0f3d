package blockcache

import (
	"bytes"
	"container/list"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/arloliu/bfsnd/compress"
	"github.com/arloliu/bfsnd/dsp"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/format"
	"github.com/arloliu/bfsnd/internal/hash"
	"github.com/arloliu/bfsnd/internal/options"
	"github.com/arloliu/bfsnd/internal/pool"
)

// DefaultMaxEntries bounds a cache created without WithMaxEntries: about
// two minutes of stereo audio at 0x3800 samples per block and 32 kHz.
const DefaultMaxEntries = 512

// Key identifies one decoded run of samples. Stream and LegacyClamp keep
// entries of different streams and decoder modes apart when one cache is
// shared between players.
type Key struct {
	Stream      uint64
	LegacyClamp bool
	Block       int
	Offset      int
	Frames      int
	Channel     int
	History     dsp.History
}

func (k Key) sum(b *hash.Builder) uint64 {
	clamp := 0
	if k.LegacyClamp {
		clamp = 1
	}

	return b.Reset().
		Uint64(k.Stream).
		Int(clamp).
		Int(k.Block).
		Int(k.Offset).
		Int(k.Frames).
		Int(k.Channel).
		Int16(k.History.Yn1).
		Int16(k.History.Yn2).
		Sum()
}

type entry struct {
	id     uint64
	key    Key
	packed []byte
	exit   dsp.History
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
	// Bytes is the compressed size of all entries.
	Bytes int
	// RawBytes is the decoded size of all entries.
	RawBytes int
}

// Cache is an LRU cache of decoded blocks.
type Cache struct {
	mu          sync.Mutex
	compression format.CompressionType
	codec       compress.Codec
	maxEntries  int
	keys        *hash.Builder
	entries     map[uint64]*list.Element
	order       *list.List
	stats       Stats
}

// Option configures a Cache.
type Option = options.Option[*Cache]

// WithCompression selects the codec of stored blocks.
//
// Returns errs.ErrInvalidCompressionType for unknown types.
func WithCompression(ct format.CompressionType) Option {
	return options.New(func(c *Cache) error {
		codec, err := compress.GetCodec(ct)
		if err != nil {
			return err
		}
		c.compression = ct
		c.codec = codec

		return nil
	})
}

// WithMaxEntries bounds the number of cached blocks. n must be positive.
func WithMaxEntries(n int) Option {
	return options.New(func(c *Cache) error {
		if n <= 0 {
			return fmt.Errorf("blockcache: max entries must be positive, got %d", n)
		}
		c.maxEntries = n

		return nil
	})
}

// New creates an empty cache.
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		compression: format.CompressionLZ4,
		codec:       compress.NewLZ4Compressor(),
		maxEntries:  DefaultMaxEntries,
		keys:        hash.NewBuilder(),
		entries:     make(map[uint64]*list.Element),
		order:       list.New(),
	}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	return c, nil
}

// Compression returns the codec type of stored blocks.
func (c *Cache) Compression() format.CompressionType {
	return c.compression
}

// Get decodes the block stored under key into dst, which must hold
// key.Frames samples, and returns the history leaving it.
//
// Returns errs.ErrCacheMiss when the block is not cached.
func (c *Cache) Get(key Key, dst []int16) (dsp.History, error) {
	if len(dst) != key.Frames {
		return dsp.History{}, fmt.Errorf("%w: dst holds %d samples, key wants %d", errs.ErrOutOfBounds, len(dst), key.Frames)
	}

	c.mu.Lock()
	id := key.sum(c.keys)
	elem, ok := c.entries[id]
	if !ok || elem.Value.(*entry).key != key { //nolint:forcetypeassert
		c.stats.Misses++
		c.mu.Unlock()

		return dsp.History{}, errs.ErrCacheMiss
	}
	c.order.MoveToFront(elem)
	e := elem.Value.(*entry) //nolint:forcetypeassert
	c.stats.Hits++
	c.mu.Unlock()

	raw, err := c.codec.Decompress(e.packed)
	if err != nil {
		return dsp.History{}, fmt.Errorf("blockcache: %w", err)
	}
	if len(raw) != 2*key.Frames {
		return dsp.History{}, fmt.Errorf("%w: cached block has %d bytes, want %d", errs.ErrInvalidBlock, len(raw), 2*key.Frames)
	}
	for i := range dst {
		dst[i] = int16(binary.LittleEndian.Uint16(raw[2*i:])) //nolint:gosec
	}

	return e.exit, nil
}

// Put stores samples decoded under key together with the history leaving
// the block. Storing an existing key replaces it.
func (c *Cache) Put(key Key, samples []int16, exit dsp.History) error {
	if len(samples) != key.Frames {
		return fmt.Errorf("%w: %d samples for a %d sample key", errs.ErrOutOfBounds, len(samples), key.Frames)
	}

	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)
	buf.ZeroExtend(2 * len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf.B[2*i:], uint16(s)) //nolint:gosec
	}

	packed, err := c.codec.Compress(buf.Bytes())
	if err != nil {
		return fmt.Errorf("blockcache: %w", err)
	}
	if c.compression == format.CompressionNone {
		packed = bytes.Clone(packed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := key.sum(c.keys)
	if elem, ok := c.entries[id]; ok {
		c.remove(elem)
	}
	e := &entry{id: id, key: key, packed: packed, exit: exit}
	c.entries[id] = c.order.PushFront(e)
	c.stats.Bytes += len(packed)
	c.stats.RawBytes += 2 * len(samples)

	for c.order.Len() > c.maxEntries {
		c.remove(c.order.Back())
	}

	return nil
}

func (c *Cache) remove(elem *list.Element) {
	e := c.order.Remove(elem).(*entry) //nolint:forcetypeassert
	delete(c.entries, e.id)
	c.stats.Bytes -= len(e.packed)
	c.stats.RawBytes -= 2 * e.key.Frames
}

// Len returns the number of cached blocks.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = c.order.Len()

	return s
}

// Reset drops every entry and clears the counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.order.Init()
	c.stats = Stats{}
}
