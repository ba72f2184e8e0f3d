package bfsnd

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bfsnd/bfsar"
	"github.com/arloliu/bfsnd/bfstm"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/format"
	"github.com/arloliu/bfsnd/player"
)

const (
	testRate    = 32000
	testSamples = 2000
)

func stereoTone() [][]int16 {
	pcm := make([][]int16, 2)
	for ch := range pcm {
		pcm[ch] = make([]int16, testSamples)
		for i := range pcm[ch] {
			pcm[ch][i] = int16(8000 * math.Sin(float64(i)*0.05*float64(ch+1)))
		}
	}

	return pcm
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestOpenStream(t *testing.T) {
	data, err := EncodeStream(stereoTone(), testRate, bfstm.WithLoop(700, 0))
	require.NoError(t, err)

	s, err := OpenStream(writeTemp(t, "loop.bfstm", data))
	require.NoError(t, err)
	require.Empty(t, s.Warnings)
	require.Equal(t, 2, s.ChannelCount())
	require.Equal(t, format.DSPADPCM, s.Info.Encoding)
	require.True(t, s.Info.Loop)
	require.Equal(t, uint32(700), s.Info.LoopStart)
	require.Equal(t, uint32(testSamples), s.Info.SampleCount)

	_, err = OpenStream(filepath.Join(t.TempDir(), "missing.bfstm"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = OpenStream(writeTemp(t, "junk.bfstm", []byte("not a stream container")))
	require.Error(t, err)
}

func TestEncodeStreamErrors(t *testing.T) {
	_, err := EncodeStream(nil, testRate)
	require.ErrorIs(t, err, errs.ErrInvalidStreamInfo)

	_, err = EncodeStream([][]int16{{1, 2}, {1}}, testRate)
	require.ErrorIs(t, err, errs.ErrChannelCountMismatch)
}

func TestRender(t *testing.T) {
	t.Run("once", func(t *testing.T) {
		data, err := EncodeStream(stereoTone(), testRate)
		require.NoError(t, err)
		s, err := bfstm.Parse(data)
		require.NoError(t, err)

		out, err := Render(context.Background(), s, 3)
		require.NoError(t, err)
		require.Len(t, out, 2)
		require.Len(t, out[0], testSamples)
		require.Len(t, out[1], testSamples)
	})

	t.Run("loops", func(t *testing.T) {
		data, err := EncodeStream(stereoTone(), testRate, bfstm.WithLoop(700, 0))
		require.NoError(t, err)
		s, err := bfstm.Parse(data)
		require.NoError(t, err)

		once, err := Render(context.Background(), s, 0)
		require.NoError(t, err)
		require.Len(t, once[0], testSamples)

		out, err := Render(context.Background(), s, 2)
		require.NoError(t, err)
		loopLen := testSamples - 700
		require.Len(t, out[0], testSamples+2*loopLen)
		require.Equal(t, once[0], out[0][:testSamples])
		require.Equal(t, once[0][700:], out[0][testSamples:testSamples+loopLen])
		require.Equal(t, once[1][700:], out[1][testSamples+loopLen:])
	})

	t.Run("mono pair", func(t *testing.T) {
		data, err := EncodeStream([][]int16{stereoTone()[0]}, testRate)
		require.NoError(t, err)
		s, err := bfstm.Parse(data)
		require.NoError(t, err)

		out, err := Render(context.Background(), s, 0, player.WithLogger(nil))
		require.NoError(t, err)
		require.Len(t, out, 1)
	})

	t.Run("errors", func(t *testing.T) {
		data, err := EncodeStream(stereoTone(), testRate)
		require.NoError(t, err)
		s, err := bfstm.Parse(data)
		require.NoError(t, err)

		_, err = Render(context.Background(), s, -1)
		require.Error(t, err)

		_, err = Render(context.Background(), s, 0, player.WithChannelPair(1))
		require.ErrorIs(t, err, errs.ErrInvalidChannel)
	})
}

func TestNewPlayer(t *testing.T) {
	data, err := EncodeStream(stereoTone(), testRate)
	require.NoError(t, err)
	s, err := bfstm.Parse(data)
	require.NoError(t, err)

	sink := player.NewMemorySink()
	sched, err := NewPlayer(s, sink)
	require.NoError(t, err)
	require.Equal(t, player.Idle, sched.State())
	require.NoError(t, sched.Run(context.Background()))
	require.Equal(t, testSamples, sink.Frames())
	require.True(t, sink.Stopped())
}

func TestOpenArchive(t *testing.T) {
	a := &bfsar.Archive{Strings: []string{"STRM_TITLE", "BANK_SE"}}
	bank := a.AddInternalFile([]byte("bank body"))
	stream := a.AddExternalFile("stream/STRM_TITLE.bfstm")
	a.Sounds = []bfsar.SoundInfo{{FileID: stream, Volume: 100, Type: bfsar.FlagStreamSoundInfo, NameID: 0}}
	a.Banks = []bfsar.BankInfo{{FileID: bank, NameID: 1}}

	data, err := bfsar.Write(a)
	require.NoError(t, err)

	got, err := OpenArchive(writeTemp(t, "sound.bfsar", data))
	require.NoError(t, err)

	id, err := got.Lookup("BANK_SE")
	require.NoError(t, err)
	require.Equal(t, bfsar.NewItemID(bfsar.ItemBank, 0), id)

	body, err := got.FileData(bank)
	require.NoError(t, err)
	require.Equal(t, []byte("bank body"), body)

	_, err = OpenArchive(filepath.Join(t.TempDir(), "missing.bfsar"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
