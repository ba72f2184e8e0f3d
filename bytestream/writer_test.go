package bytestream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/errs"
)

func TestWriter_PutAndRead(t *testing.T) {
	for _, engine := range []endian.EndianEngine{endian.GetLittleEndianEngine(), endian.GetBigEndianEngine()} {
		t.Run(endian.Name(engine), func(t *testing.T) {
			w := NewWriter(engine)
			defer w.Release()

			_, _ = w.Write([]byte("FSTM"))
			w.PutBOM()
			w.PutU16(0x40)
			w.PutU32(0x00060100)
			w.PutS16(-3)
			w.PutS8(-4)
			w.PutS32(-5)

			r := NewReader(w.Bytes())
			magic, err := r.Bytes(4)
			require.NoError(t, err)
			require.Equal(t, "FSTM", string(magic))

			_, err = r.ReadBOM()
			require.NoError(t, err)
			require.Equal(t, engine, r.Engine())

			var (
				hdr     uint16
				version uint32
				s16     int16
				s8      int8
				s32     int32
			)
			require.NoError(t, r.Fields(&hdr, &version, &s16, &s8, &s32))
			require.Equal(t, uint16(0x40), hdr)
			require.Equal(t, uint32(0x00060100), version)
			require.Equal(t, int16(-3), s16)
			require.Equal(t, int8(-4), s8)
			require.Equal(t, int32(-5), s32)
		})
	}
}

func TestWriter_SeekAndPatch(t *testing.T) {
	w := NewWriter(endian.GetLittleEndianEngine())
	defer w.Release()

	sizePos := w.Reserve32()
	flagPos := w.Reserve16()
	require.NoError(t, w.Seek(0x10))
	w.PutU8(0xAA)
	require.Equal(t, 0x11, w.Len())

	require.NoError(t, w.PatchU32(sizePos, uint32(w.Len())))
	require.NoError(t, w.PatchU16(flagPos, 0x4002))
	require.Equal(t, 0x11, w.Tell(), "patching must not move the cursor")

	r := NewReader(w.Bytes())
	size, err := r.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x11), size)
	flag, err := r.U16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x4002), flag)

	gap, err := r.Span(6, 10)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 10), gap)

	require.ErrorIs(t, w.PatchU32(0x10, 1), errs.ErrOutOfBounds)
	require.ErrorIs(t, w.Seek(-1), errs.ErrOutOfBounds)
}

func TestWriter_OverwriteInside(t *testing.T) {
	w := NewWriter(endian.GetBigEndianEngine())
	defer w.Release()

	_, _ = w.Write([]byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, w.Seek(2))
	w.PutU16(0xBEEF)
	require.Equal(t, []byte{1, 2, 0xBE, 0xEF, 5, 6}, w.Bytes())

	w.SeekEnd()
	require.Equal(t, 6, w.Tell())
}

func TestWriter_Align(t *testing.T) {
	w := NewWriter(endian.GetLittleEndianEngine())
	defer w.Release()

	pos, err := w.Align(0x20)
	require.NoError(t, err)
	require.Equal(t, 0, pos, "aligned position stays")

	w.PutU8(1)
	pos, err = w.Align(0x20)
	require.NoError(t, err)
	require.Equal(t, 0x20, pos)
	require.Equal(t, 0x20, w.Len())

	_, err = w.Align(3)
	require.ErrorIs(t, err, errs.ErrInvalidAlignment)
}

func TestWriter_Detach(t *testing.T) {
	w := NewWriter(endian.GetLittleEndianEngine())
	w.PutCString("abc")
	out := w.Detach()
	require.Equal(t, []byte("abc\x00"), out)
}
