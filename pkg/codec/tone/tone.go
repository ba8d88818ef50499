// Package tone implements a synthetic sine-wave codec.Demuxer with no
// container, no subprocess, and no video stream. It exists so
// internal/mediastate's test suite can exercise skip monotonicity,
// duration bounds, ordered delivery, and EOF behavior deterministically,
// without needing a real audio file on disk.
package tone

import (
	"encoding/binary"
	"math"

	"github.com/drgolem/mediacore/pkg/codec"
)

// Config describes the sine wave to generate.
type Config struct {
	SampleRate      int     // native sample rate of the generated tone
	Channels        int     // 1 (mono) or 2 (stereo, both channels identical)
	FrequencyHz     float64 // tone frequency
	DurationSeconds float64 // total length; 0 means "never ends"
	ChunkSamples    int     // samples per synthesized packet (default 1024)
}

// Demuxer is a codec.Demuxer generating a sine wave instead of demuxing a
// real container. It always reports video.Index == codec.NoStream.
type Demuxer struct {
	cfg         Config
	cursor      int64 // next sample index to emit
	totalSample int64 // 0 means unbounded
}

// New creates a tone Demuxer from cfg, filling in defaults for zero fields.
func New(cfg Config) *Demuxer {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.ChunkSamples == 0 {
		cfg.ChunkSamples = 1024
	}

	d := &Demuxer{cfg: cfg}
	if cfg.DurationSeconds > 0 {
		d.totalSample = int64(cfg.DurationSeconds * float64(cfg.SampleRate))
	}
	return d
}

func (d *Demuxer) Streams() (audio, video codec.StreamInfo) {
	return codec.StreamInfo{Index: 0}, codec.StreamInfo{Index: codec.NoStream}
}

func (d *Demuxer) Duration() (samples int64, exact bool) {
	return d.totalSample, d.totalSample > 0
}

func (d *Demuxer) Seek(seconds float64) error {
	pos := int64(seconds * float64(d.cfg.SampleRate))
	if pos < 0 {
		pos = 0
	}
	d.cursor = pos
	return nil
}

// ReadRawPacket synthesizes the next chunk of sine wave as a single packet.
// Packets are always tagged codec.AudioStream; there is no video stream to
// route to.
func (d *Demuxer) ReadRawPacket() (codec.Packet, bool, error) {
	if d.totalSample > 0 && d.cursor >= d.totalSample {
		return codec.Packet{}, true, nil
	}

	n := int64(d.cfg.ChunkSamples)
	if d.totalSample > 0 && d.cursor+n > d.totalSample {
		n = d.totalSample - d.cursor
	}

	data := make([]byte, n*int64(d.cfg.Channels)*2)
	for i := int64(0); i < n; i++ {
		t := float64(d.cursor+i) / float64(d.cfg.SampleRate)
		sample := int16(math.Sin(2*math.Pi*d.cfg.FrequencyHz*t) * 0.8 * math.MaxInt16)
		for ch := 0; ch < d.cfg.Channels; ch++ {
			off := (i*int64(d.cfg.Channels) + int64(ch)) * 2
			binary.LittleEndian.PutUint16(data[off:], uint16(sample))
		}
	}

	pkt := codec.Packet{
		Stream:   codec.AudioStream,
		PTS:      d.cursor,
		TimeBase: 1.0 / float64(d.cfg.SampleRate),
		Data:     data,
	}
	d.cursor += n

	return pkt, false, nil
}

// DecodeAudio wraps the packet's already-PCM bytes into an AudioFrame; a
// nil-Data packet (the EOF sentinel) means there is nothing left to drain.
func (d *Demuxer) DecodeAudio(pkt codec.Packet) ([]codec.AudioFrame, error) {
	if pkt.Data == nil {
		return nil, codec.ErrEOF
	}

	numSamples := len(pkt.Data) / (d.cfg.Channels * 2)
	frame := codec.AudioFrame{
		PTSSeconds: pkt.PTSSeconds(),
		SampleRate: d.cfg.SampleRate,
		Channels:   d.cfg.Channels,
		Format:     codec.SampleFormatS16,
		NumSamples: numSamples,
		Data:       pkt.Data,
	}
	return []codec.AudioFrame{frame}, nil
}

// DecodeVideo always reports end-of-stream: tone never has a video stream.
func (d *Demuxer) DecodeVideo(pkt codec.Packet) (*codec.VideoFrame, error) {
	return nil, codec.ErrEOF
}

func (d *Demuxer) Close() error { return nil }
