// Package ffmpegdemux implements a codec.Demuxer backed by the ffmpeg CLI,
// for containers the mp3/flac/wav decoders in pkg/decoders can't open. It
// shells out through github.com/u2takey/ffmpeg-go the same way
// audio.ffmpegBaseDevice does: build a command piping raw PCM to a
// io.Pipe, run it in a background goroutine, and read the pipe. Probing
// still needs a real path (ffprobe reads the file directly), but decoding
// reads the source's own bytes through pkg/bytesource.BufferedReader and
// feeds them to ffmpeg over stdin, rather than handing ffmpeg the path a
// second time.
//
// There is no real packet-level demuxing available through the ffmpeg CLI:
// what this backend calls a "packet" is really a fixed-size chunk of
// already-decoded native PCM read off the pipe. The output args request
// audio only, so the pipe never carries a video stream's bytes; Streams
// always reports video as absent accordingly (see its doc comment) —
// wiring actual video frame extraction through the CLI would mean parsing
// a second raw video pipe and is out of scope for this backend.
package ffmpegdemux

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/drgolem/mediacore/pkg/bytesource"
	"github.com/drgolem/mediacore/pkg/codec"
)

const chunkSamples = 4096

type probeFormat struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// Demuxer drives an ffmpeg subprocess decoding one byte source's audio
// stream to raw s16le PCM at its native rate and channel count.
type Demuxer struct {
	src      *bytesource.FileSource
	rate     int
	channels int
	hasVideo bool

	seekSeconds float64

	cmd        *exec.Cmd
	pipeReader io.ReadCloser
	started    bool
	cursor     int64
}

// Open probes src's file for its audio format (and whether it has a video
// stream) but does not yet start decoding; the ffmpeg process is started
// lazily by the first ReadRawPacket call, so that Seek (only ever called
// before decoding begins) can still influence the process's -ss argument.
// src is not read here — ffprobe reads the file by path directly — but is
// retained so start() can stream its bytes into ffmpeg's stdin.
func Open(src *bytesource.FileSource) (*Demuxer, error) {
	d := &Demuxer{src: src, rate: 44100, channels: 2}
	fileName := src.Name()

	raw, err := ffmpeg.Probe(fileName)
	if err != nil {
		slog.Warn("ffmpegdemux: probe failed, assuming 44100Hz stereo", "file", fileName, "error", err)
		return d, nil
	}

	var pf probeFormat
	if err := json.Unmarshal([]byte(raw), &pf); err != nil {
		slog.Warn("ffmpegdemux: probe output unparseable, assuming 44100Hz stereo", "file", fileName, "error", err)
		return d, nil
	}

	for _, s := range pf.Streams {
		switch s.CodecType {
		case "audio":
			if s.Channels > 0 {
				d.channels = s.Channels
			}
			if rate, err := parseRate(s.SampleRate); err == nil && rate > 0 {
				d.rate = rate
			}
		case "video":
			d.hasVideo = true
		}
	}

	if d.hasVideo {
		slog.Info("ffmpegdemux: container has a video stream, audio-only extraction", "file", fileName)
	}

	return d, nil
}

func parseRate(s string) (int, error) {
	var rate int
	_, err := fmt.Sscanf(s, "%d", &rate)
	return rate, err
}

// Streams always reports video as absent: the raw PCM pipe ReadRawPacket
// reads from never carries a video packet, so claiming a video stream here
// would send decodeVideo's reader spinning through readPacket, shelving
// every audio packet onto audioPacketQ until ffmpeg hits EOF, to look for a
// video packet that will never arrive. hasVideo is logged only.
func (d *Demuxer) Streams() (audio, video codec.StreamInfo) {
	return codec.StreamInfo{Index: 0}, codec.StreamInfo{Index: codec.NoStream}
}

// Duration is unknown: extracting it would mean parsing ffprobe's format
// duration field, which this minimal backend doesn't do.
func (d *Demuxer) Duration() (samples int64, exact bool) {
	return 0, false
}

// Seek records the start offset to pass to ffmpeg as -ss, and starts the
// packet PTS cursor at that offset so timestamps stay measured from the
// start of the stream. Only valid before the subprocess has started.
func (d *Demuxer) Seek(seconds float64) error {
	if d.started {
		return fmt.Errorf("ffmpegdemux: Seek called after decoding started")
	}
	d.seekSeconds = seconds
	d.cursor = int64(seconds * float64(d.rate))
	return nil
}

func (d *Demuxer) start() error {
	if _, err := d.src.Seek(0, bytesource.SeekStart); err != nil {
		return fmt.Errorf("ffmpegdemux: rewind source: %w", err)
	}

	inputArgs := ffmpeg.KwArgs{}
	if d.seekSeconds > 0 {
		inputArgs["ss"] = fmt.Sprintf("%.3f", d.seekSeconds)
	}

	outputArgs := ffmpeg.KwArgs{
		"f":   "s16le",
		"c:a": "pcm_s16le",
		"ar":  fmt.Sprintf("%d", d.rate),
		"ac":  fmt.Sprintf("%d", d.channels),
	}

	pipeReader, pipeWriter := io.Pipe()
	d.pipeReader = pipeReader

	// "pipe:" (stdin) rather than d.src.Name() feeds the byte source's own
	// bytes to ffmpeg, instead of having ffmpeg reopen the path itself —
	// the same bridge pkg/bytesource exists for.
	cmd := ffmpeg.Input("pipe:", inputArgs).
		Output("pipe:", outputArgs).
		WithInput(bytesource.BufferedReader(d.src)).
		WithOutput(pipeWriter).
		ErrorToStdOut().
		Compile()
	d.cmd = cmd

	if err := cmd.Start(); err != nil {
		pipeWriter.Close()
		return fmt.Errorf("ffmpegdemux: start ffmpeg: %w", err)
	}

	go func() {
		cmd.Wait()
		pipeWriter.Close()
	}()

	d.started = true
	return nil
}

func (d *Demuxer) ReadRawPacket() (codec.Packet, bool, error) {
	if !d.started {
		if err := d.start(); err != nil {
			return codec.Packet{}, false, err
		}
	}

	buf := make([]byte, chunkSamples*d.channels*2)
	n, err := io.ReadFull(d.pipeReader, buf)
	if n == 0 {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return codec.Packet{}, true, nil
		}
		if err != nil {
			return codec.Packet{}, false, fmt.Errorf("ffmpegdemux: read: %w", err)
		}
	}

	// ReadFull returns ErrUnexpectedEOF when it filled part of buf before
	// the pipe closed; that partial chunk is still valid data to deliver.
	data := buf[:n]
	numSamples := int64(n / (d.channels * 2))

	pkt := codec.Packet{
		Stream:   codec.AudioStream,
		PTS:      d.cursor,
		TimeBase: 1.0 / float64(d.rate),
		Data:     data,
	}
	d.cursor += numSamples

	return pkt, false, nil
}

func (d *Demuxer) DecodeAudio(pkt codec.Packet) ([]codec.AudioFrame, error) {
	if pkt.Data == nil {
		return nil, codec.ErrEOF
	}

	frame := codec.AudioFrame{
		PTSSeconds: pkt.PTSSeconds(),
		SampleRate: d.rate,
		Channels:   d.channels,
		Format:     codec.SampleFormatS16,
		NumSamples: len(pkt.Data) / (d.channels * 2),
		Data:       pkt.Data,
	}
	return []codec.AudioFrame{frame}, nil
}

// DecodeVideo never produces a frame: see the package doc comment.
func (d *Demuxer) DecodeVideo(pkt codec.Packet) (*codec.VideoFrame, error) {
	return nil, codec.ErrEOF
}

func (d *Demuxer) Close() error {
	if d.pipeReader != nil {
		d.pipeReader.Close()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	return nil
}
