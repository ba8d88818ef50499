// Package codec defines the seam between mediacore's decode pipeline and
// the container/codec library that actually demuxes and decodes media.
// That library is assumed available as a black box and is never implemented
// here — this package is the interface a concrete backend
// (pkg/codec/fileaudio, pkg/codec/ffmpegdemux, pkg/codec/tone) implements to
// plug into internal/mediastate.
package codec

import "errors"

// StreamKind distinguishes the two stream types mediacore cares about.
type StreamKind int

const (
	AudioStream StreamKind = iota
	VideoStream
)

// NoStream is the sentinel StreamInfo.Index value for an absent stream.
const NoStream = -1

// StreamInfo identifies a selected stream within the container. Index is
// NoStream if the container has no stream of that kind.
type StreamInfo struct {
	Index int
}

// SampleFormat names the native sample encoding of a decoded AudioFrame,
// before it has been resampled into mediacore's fixed output format.
type SampleFormat int

const (
	SampleFormatS16 SampleFormat = iota
	SampleFormatS32
	SampleFormatF32
)

// Packet is one demuxed container unit, not yet decoded. A Packet with a
// nil Data is the EOF sentinel: the container has no more data for this
// stream, but the decoder may still have buffered frames to drain.
type Packet struct {
	Stream    StreamKind
	PTS       int64
	TimeBase  float64 // seconds per PTS tick; PTSSeconds = PTS * TimeBase
	Data      []byte
}

// PTSSeconds converts the packet's PTS to seconds using its time base.
func (p Packet) PTSSeconds() float64 {
	return float64(p.PTS) * p.TimeBase
}

// AudioFrame is one decoded (but not yet resampled) audio unit, in the
// codec's native sample format, channel count, and sample rate.
type AudioFrame struct {
	PTSSeconds float64
	SampleRate int
	Channels   int
	Format     SampleFormat
	NumSamples int
	Data       []byte
}

// VideoFrame is a decoded video unit. mediacore never delivers video to a
// surface; PTSSeconds is retained for sync bookkeeping and logging, and so
// a future surface-delivery extension would not need to touch this type.
type VideoFrame struct {
	PTSSeconds float64
}

// ErrEOF is returned by Demuxer.DecodeAudio/DecodeVideo to mean "this
// packet (and the codec-internal buffer behind it) produced no more
// frames" — the signal that latches audio_finished/video_finished.
var ErrEOF = errors.New("codec: end of stream")

// Demuxer is the black-box codec/demuxer library surface a backend
// implements. internal/mediastate owns the per-stream packet queues and the
// read-one-packet-and-route-it loop; a Demuxer only has to hand back one
// raw container packet at a time and decode a packet belonging to a given
// stream into zero or more frames.
type Demuxer interface {
	// Streams reports which stream indices were selected during container
	// probing. A stream with Index == NoStream is absent.
	Streams() (audio, video StreamInfo)

	// Duration reports the container's inferred audio duration in samples
	// at the stream's native rate, and whether that duration came from an
	// exact container field (as opposed to a bitrate estimate). Backends
	// that can't tell the difference should report exact=false.
	Duration() (samples int64, exact bool)

	// Seek discards everything before the given offset (in seconds) from
	// the start of the stream. Only ever called before decoding begins.
	Seek(seconds float64) error

	// ReadRawPacket reads exactly one packet from the container, tagged
	// with the stream it belongs to. eof is true once the container is
	// exhausted; in that case Data is nil.
	ReadRawPacket() (pkt Packet, eof bool, err error)

	// DecodeAudio decodes one audio packet into zero or more frames in the
	// codec's native format. A Packet with nil Data asks the codec to
	// drain any frames buffered internally. Returning ErrEOF signals that
	// the audio stream has produced its last frame.
	DecodeAudio(pkt Packet) ([]AudioFrame, error)

	// DecodeVideo decodes one video packet. A nil frame with no error
	// means "no frame yet, keep feeding packets." Returning ErrEOF signals
	// the video stream is exhausted. Backends that don't need video
	// back-pressure may implement this as an immediate ErrEOF.
	DecodeVideo(pkt Packet) (*VideoFrame, error)

	// Close releases all resources the backend holds (subprocess, codec
	// contexts, decoder handles). Called exactly once, during teardown: by
	// the decode goroutine, or by MediaState.Close if Start was never called.
	Close() error
}
