// Package bfsnd reads, writes and plays Nintendo binary sound containers.
//
// A BFSTM stream container holds block-interleaved PCM or DSP-ADPCM
// samples with an optional loop, performance regions and a seek table.
// A BFSAR sound archive indexes sounds, banks, wave archives, groups and
// players by name through a critical-bit trie.
//
// # Basic Usage
//
// Playing a stream into a sink:
//
//	stream, err := bfsnd.OpenStream("bgm.bfstm")
//	if err != nil {
//		return err
//	}
//	sched, err := bfsnd.NewPlayer(stream, sink)
//	if err != nil {
//		return err
//	}
//	return sched.Run(ctx)
//
// Encoding PCM into a looping stream:
//
//	data, err := bfsnd.EncodeStream(pcm, 32000, bfstm.WithLoop(44800, 0))
//
// Looking up a name in an archive:
//
//	archive, err := bfsnd.OpenArchive("sound.bfsar")
//	id, err := archive.Lookup("BGM_TITLE")
//
// # Package Structure
//
// This package wraps the most common calls. The bfstm, bfsar, player and
// dsp packages expose the full API.
package bfsnd

import (
	"context"
	"fmt"
	"os"

	"github.com/arloliu/bfsnd/bfsar"
	"github.com/arloliu/bfsnd/bfstm"
	"github.com/arloliu/bfsnd/player"
)

// OpenStream reads and parses a stream container file.
//
// Recoverable problems are reported in Stream.Warnings.
func OpenStream(path string, opts ...bfstm.ParseOption) (*bfstm.Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return bfstm.Parse(data, opts...)
}

// OpenArchive reads and parses a sound archive file.
func OpenArchive(path string, opts ...bfsar.ParseOption) (*bfsar.Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return bfsar.Parse(data, opts...)
}

// NewPlayer creates an idle scheduler playing stream into sink.
func NewPlayer(stream *bfstm.Stream, sink player.Sink, opts ...player.Option) (*player.Scheduler, error) {
	return player.New(stream, sink, opts...)
}

// EncodeStream encodes per-channel PCM into a complete stream container.
//
// Parameters:
//   - channels: PCM samples per channel, all of the same length
//   - sampleRate: samples per second
//   - opts: encoding options such as bfstm.WithLoop or bfstm.WithEncoding
//
// Returns:
//   - []byte: the container bytes
//   - error: any error from bfstm.FromPCM or bfstm.Write
func EncodeStream(channels [][]int16, sampleRate uint32, opts ...bfstm.EncodeOption) ([]byte, error) {
	f, err := bfstm.FromPCM(channels, sampleRate, opts...)
	if err != nil {
		return nil, err
	}

	return bfstm.Write(f)
}

// Render decodes stream into memory as fast as it can be decoded. A
// looping stream plays its loop body loops more times after the first
// pass; a stream without a loop plays once.
//
// The samples of the selected channel pair are returned, one slice per
// channel. An observer passed in opts is replaced.
func Render(ctx context.Context, stream *bfstm.Stream, loops int, opts ...player.Option) ([][]int16, error) {
	if loops < 0 {
		return nil, fmt.Errorf("bfsnd: negative loop count %d", loops)
	}

	sink := player.NewMemorySink()
	var sched *player.Scheduler
	wraps := 0
	stopAtLoop := player.WithObserver(func(ev player.Event) {
		if !ev.Wrapped {
			return
		}
		wraps++
		if wraps > loops {
			sched.Stop()
		}
	})

	sched, err := player.New(stream, sink, append(opts, stopAtLoop)...)
	if err != nil {
		return nil, err
	}
	if err := sched.Run(ctx); err != nil {
		return nil, err
	}

	return sink.Channels(), nil
}
