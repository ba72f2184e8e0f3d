package bytestream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/errs"
)

func TestReader_Integers(t *testing.T) {
	data := []byte{0x01, 0xFF, 0x34, 0x12, 0xFE, 0xFF, 0x78, 0x56, 0x34, 0x12, 0xFF, 0xFF, 0xFF, 0xFF}

	t.Run("little endian", func(t *testing.T) {
		r := NewReader(data)

		u8, err := r.U8()
		require.NoError(t, err)
		require.Equal(t, uint8(0x01), u8)

		s8, err := r.S8()
		require.NoError(t, err)
		require.Equal(t, int8(-1), s8)

		u16, err := r.U16()
		require.NoError(t, err)
		require.Equal(t, uint16(0x1234), u16)

		s16, err := r.S16()
		require.NoError(t, err)
		require.Equal(t, int16(-2), s16)

		u32, err := r.U32()
		require.NoError(t, err)
		require.Equal(t, uint32(0x12345678), u32)

		s32, err := r.S32()
		require.NoError(t, err)
		require.Equal(t, int32(-1), s32)
		require.Equal(t, 0, r.Remaining())
	})

	t.Run("big endian", func(t *testing.T) {
		r := NewReaderWithEngine(data, endian.GetBigEndianEngine())
		require.NoError(t, r.Seek(2))

		u16, err := r.U16()
		require.NoError(t, err)
		require.Equal(t, uint16(0x3412), u16)

		require.NoError(t, r.Skip(2))
		u32, err := r.U32()
		require.NoError(t, err)
		require.Equal(t, uint32(0x78563412), u32)
	})
}

func TestReader_Bounds(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})

	tests := []struct {
		name string
		fn   func() error
	}{
		{name: "u32 past end", fn: func() error { _, err := r.U32(); return err }},
		{name: "seek past end", fn: func() error { return r.Seek(4) }},
		{name: "negative seek", fn: func() error { return r.Seek(-1) }},
		{name: "skip past end", fn: func() error { return r.Skip(4) }},
		{name: "bytes past end", fn: func() error { _, err := r.Bytes(5); return err }},
		{name: "span past end", fn: func() error { _, err := r.Span(2, 2); return err }},
		{name: "negative span", fn: func() error { _, err := r.Span(0, -1); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, r.Seek(0))
			require.ErrorIs(t, tt.fn(), errs.ErrOutOfBounds)
			require.Equal(t, 0, r.Tell(), "failed access must not move the cursor")
		})
	}

	t.Run("seek to end is allowed", func(t *testing.T) {
		require.NoError(t, r.Seek(3))
		_, err := r.U8()
		require.ErrorIs(t, err, errs.ErrOutOfBounds)
	})

	t.Run("partial u16 at the tail", func(t *testing.T) {
		require.NoError(t, r.Seek(2))
		_, err := r.U16()
		require.ErrorIs(t, err, errs.ErrOutOfBounds)
		require.Equal(t, 2, r.Tell())
	})
}

func TestReader_ReadBOM(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    uint16
		wantErr error
	}{
		{name: "big endian file", data: []byte{0xFE, 0xFF, 0x00, 0x01}, want: 0x0001},
		{name: "little endian file", data: []byte{0xFF, 0xFE, 0x01, 0x00}, want: 0x0001},
		{name: "bad mark", data: []byte{0x12, 0x34, 0x00, 0x01}, wantErr: errs.ErrMalformedByteOrderMark},
		{name: "truncated", data: []byte{0xFE}, wantErr: errs.ErrOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			bom, err := r.ReadBOM()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, endian.BOMValue, bom)

			v, err := r.U16()
			require.NoError(t, err)
			require.Equal(t, tt.want, v)
		})
	}
}

func TestReader_CString(t *testing.T) {
	r := NewReader([]byte("STRM_A\x00B\x00C"))

	s, err := r.CString()
	require.NoError(t, err)
	require.Equal(t, "STRM_A", s)

	s, err = r.CString()
	require.NoError(t, err)
	require.Equal(t, "B", s)

	_, err = r.CString()
	require.ErrorIs(t, err, errs.ErrOutOfBounds)
}

func TestReader_Fields(t *testing.T) {
	w := NewWriter(endian.GetBigEndianEngine())
	defer w.Release()
	w.PutU8(2)
	w.PutU8(1)
	w.PutU16(0x4100)
	w.PutU16(0)
	w.PutS32(-8)

	var (
		enc, loop uint8
		flag      uint16
		off       int32
	)
	r := NewReaderWithEngine(w.Bytes(), endian.GetBigEndianEngine())
	require.NoError(t, r.Fields(&enc, &loop, &flag, nil, &off))
	require.Equal(t, uint8(2), enc)
	require.Equal(t, uint8(1), loop)
	require.Equal(t, uint16(0x4100), flag)
	require.Equal(t, int32(-8), off)

	require.ErrorIs(t, r.Fields(&off), errs.ErrOutOfBounds)
}
