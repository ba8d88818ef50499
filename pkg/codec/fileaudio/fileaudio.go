// Package fileaudio adapts the mp3/flac/wav decoders in pkg/decoders into a
// codec.Demuxer. It is audio-only: there is no container to carry a video
// stream, so Streams always reports video as codec.NoStream.
package fileaudio

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/drgolem/mediacore/pkg/bytesource"
	"github.com/drgolem/mediacore/pkg/codec"
	"github.com/drgolem/mediacore/pkg/decoders"
	"github.com/drgolem/mediacore/pkg/types"
)

// ErrUnsupportedBitDepth is returned by Open when the file's native bit
// depth isn't 16, the only depth mediacore's resample stage accepts.
var ErrUnsupportedBitDepth = errors.New("fileaudio: only 16-bit PCM sources are supported")

// chunkSamples is how many samples ReadRawPacket decodes per call. There is
// no real packet boundary in these formats; this just bounds how much PCM
// sits in a single queue entry.
const chunkSamples = 4096

// Demuxer wraps a types.AudioDecoder (mp3, flac, or wav) as a codec.Demuxer.
type Demuxer struct {
	decoder  types.AudioDecoder
	rate     int
	channels int
	bps      int
	cursor   int64 // samples emitted so far, for PTS bookkeeping
}

// Open opens src's file with the decoder selected by its extension. The
// underlying mp3/flac/wav decoder libraries are C-bound and need a real
// filesystem path, so src.Name() is what actually gets opened; src itself
// stays with its caller, who owns closing it once decoding is done.
func Open(src *bytesource.FileSource) (*Demuxer, error) {
	fileName := src.Name()

	decoder, err := decoders.NewDecoder(fileName)
	if err != nil {
		return nil, err
	}

	rate, channels, bps := decoder.GetFormat()
	if bps != 16 {
		decoder.Close()
		return nil, fmt.Errorf("%s: %w (got %d-bit)", fileName, ErrUnsupportedBitDepth, bps)
	}

	if size, err := src.Size(); err == nil {
		slog.Debug("fileaudio: opened", "file", fileName, "bytes", size, "rate", rate, "channels", channels)
	}

	return &Demuxer{decoder: decoder, rate: rate, channels: channels, bps: bps}, nil
}

func (d *Demuxer) Streams() (audio, video codec.StreamInfo) {
	return codec.StreamInfo{Index: 0}, codec.StreamInfo{Index: codec.NoStream}
}

// Duration is unknown: none of the wrapped decoders expose a total sample
// count or container-level duration field.
func (d *Demuxer) Duration() (samples int64, exact bool) {
	return 0, false
}

// Seek is a no-op: none of the wrapped decoders support random access, so
// an offset is realized by decoding and discarding frames at the consumer
// layer instead.
func (d *Demuxer) Seek(seconds float64) error {
	return nil
}

func (d *Demuxer) ReadRawPacket() (codec.Packet, bool, error) {
	bytesPerSample := d.bps / 8
	buf := make([]byte, chunkSamples*d.channels*bytesPerSample)

	n, err := d.decoder.DecodeSamples(chunkSamples, buf)
	if n == 0 {
		if err != nil && err.Error() != "EOF" {
			return codec.Packet{}, false, fmt.Errorf("fileaudio: decode: %w", err)
		}
		return codec.Packet{}, true, nil
	}

	pkt := codec.Packet{
		Stream:   codec.AudioStream,
		PTS:      d.cursor,
		TimeBase: 1.0 / float64(d.rate),
		Data:     buf[:n*d.channels*bytesPerSample],
	}
	d.cursor += int64(n)

	return pkt, false, nil
}

// DecodeAudio wraps the already-decoded PCM bytes into an AudioFrame; a
// nil-Data packet signals that ReadRawPacket has nothing left to drain.
func (d *Demuxer) DecodeAudio(pkt codec.Packet) ([]codec.AudioFrame, error) {
	if pkt.Data == nil {
		return nil, codec.ErrEOF
	}

	bytesPerSample := d.bps / 8
	frame := codec.AudioFrame{
		PTSSeconds: pkt.PTSSeconds(),
		SampleRate: d.rate,
		Channels:   d.channels,
		Format:     codec.SampleFormatS16,
		NumSamples: len(pkt.Data) / (d.channels * bytesPerSample),
		Data:       pkt.Data,
	}
	return []codec.AudioFrame{frame}, nil
}

// DecodeVideo always reports end-of-stream: fileaudio never has a video
// stream to decode.
func (d *Demuxer) DecodeVideo(pkt codec.Packet) (*codec.VideoFrame, error) {
	return nil, codec.ErrEOF
}

func (d *Demuxer) Close() error {
	return d.decoder.Close()
}
