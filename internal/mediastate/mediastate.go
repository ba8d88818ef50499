// Package mediastate implements the decode pipeline shared between a
// background decode goroutine and a real-time audio pull call: a demuxer
// backend feeds per-stream packet queues, the audio path resamples decoded
// frames into a fixed output format and enqueues them behind a single
// mutex, and Pull drains that queue without ever blocking on decode
// progress once the stream is ready.
package mediastate

import (
	"log/slog"
	"sync"
	"time"

	"github.com/drgolem/mediacore/internal/queue"
	"github.com/drgolem/mediacore/pkg/bytesource"
	"github.com/drgolem/mediacore/pkg/codec"
	"github.com/drgolem/mediacore/pkg/resample"
	"github.com/drgolem/mediacore/pkg/types"
)

const (
	outputBytesPerFrame = resample.OutputChannels * 2 // stereo, s16
	defaultTargetSeconds = 2.0
	maxDurationHours     = 3600
)

// MediaState is the object shared between the decode goroutine and the
// caller/consumer. Fields below the sync primitives are partitioned by
// which side owns them; only the ones listed as lock-guarded are touched
// from more than one goroutine.
type MediaState struct {
	label   string
	source  bytesource.Source
	demuxer codec.Demuxer

	outputRate int

	lock sync.Mutex
	cond *sync.Cond

	// Lifecycle flags, all guarded by lock.
	started       bool
	ready         bool
	needsDecode   bool
	quit          bool
	audioFinished bool
	videoFinished bool

	teardownGuard sync.Once

	// Stream identification, decode-goroutine-owned after setup.
	audioStreamIdx int
	videoStreamIdx int

	// Packet queues: decode-goroutine-only, no locking needed.
	audioPacketQ *queue.Queue[codec.Packet]
	videoPacketQ *queue.Queue[codec.Packet]

	// PCM output queue and its draining state, guarded by lock.
	frameQ            *queue.Queue[codec.AudioFrame]
	audioOutFrame     *codec.AudioFrame
	audioOutIndex     int
	audioQueueSamples int64
	audioReadSamples  uint64

	// Playback bounds, published before Start and read-only after.
	skip          float64
	audioDuration int64 // output samples, 0 = until natural EOF

	targetSeconds float64

	// Resampler, recreated whenever the native format of incoming frames
	// changes; decode-goroutine-owned.
	resampler         *resample.Resampler
	resamplerRate     int
	resamplerChannels int

	startWallTime time.Time
}

// New allocates a MediaState over an already-opened demuxer backend and the
// byte source it (or its caller) reads from. The byte source is retained
// only so it can be closed exactly once, during teardown; the demuxer does
// its own I/O independently.
func New(source bytesource.Source, label string, demuxer codec.Demuxer, outputRate int) *MediaState {
	ms := &MediaState{
		label:          label,
		source:         source,
		demuxer:        demuxer,
		outputRate:     outputRate,
		audioStreamIdx: codec.NoStream,
		videoStreamIdx: codec.NoStream,
		audioPacketQ:   queue.New[codec.Packet](),
		videoPacketQ:   queue.New[codec.Packet](),
		frameQ:         queue.New[codec.AudioFrame](),
		targetSeconds:  defaultTargetSeconds,
	}
	ms.cond = sync.NewCond(&ms.lock)
	return ms
}

// StartEnd configures the leading skip offset and, if endSeconds > 0, the
// stream position at which to latch EOF; both are measured from the start
// of the stream, so the output duration is endSeconds - startSeconds
// (clamped at 0). It must be called before Start.
func (ms *MediaState) StartEnd(startSeconds, endSeconds float64) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	if ms.started {
		return types.ErrAlreadyStarted
	}

	ms.skip = startSeconds
	if endSeconds > 0 {
		dur := endSeconds - startSeconds
		if dur < 0 {
			dur = 0
		}
		ms.audioDuration = int64(dur * float64(ms.outputRate))
	}
	return nil
}

// Start spawns the decode goroutine. Ownership of MediaState, including
// closing the demuxer and byte source, transfers to that goroutine.
func (ms *MediaState) Start() error {
	ms.lock.Lock()
	if ms.started {
		ms.lock.Unlock()
		return types.ErrAlreadyStarted
	}
	ms.started = true
	ms.startWallTime = time.Now()
	ms.lock.Unlock()

	go ms.run()
	return nil
}

// Close requests teardown. It is safe to call at any point after New, any
// number of times, from any goroutine. If Start was never called, Close
// performs the teardown itself since no decode goroutine exists to do it.
func (ms *MediaState) Close() {
	ms.lock.Lock()
	ms.quit = true
	ms.ready = true // unblocks a Pull call that would otherwise wait forever for a goroutine that never started
	started := ms.started
	ms.cond.Broadcast()
	ms.lock.Unlock()

	if !started {
		ms.teardown()
	}
}

// Status reports a snapshot of playback progress for monitoring.
func (ms *MediaState) Status() types.PlaybackStatus {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	return types.PlaybackStatus{
		FileName:        ms.label,
		SampleRate:      ms.outputRate,
		Channels:        resample.OutputChannels,
		BitsPerSample:   16,
		PlayedSamples:   ms.audioReadSamples,
		BufferedSamples: uint64(ms.audioQueueSamples),
		ElapsedTime:     time.Since(ms.startWallTime),
	}
}

// Pull fills buf with interleaved stereo s16 PCM and returns the number of
// bytes written. It blocks only until the stream becomes ready; once ready,
// it never blocks on decode progress — a shortfall against len(buf) means
// the queue ran dry or the configured duration was reached, not that the
// caller should retry synchronously.
func (ms *MediaState) Pull(buf []byte) int {
	ms.lock.Lock()
	for !ms.ready {
		ms.cond.Wait()
	}

	remaining := len(buf)
	if ms.audioDuration > 0 {
		left := ms.audioDuration - int64(ms.audioReadSamples)
		if left < 0 {
			left = 0
		}
		if maxBytes := int(left) * outputBytesPerFrame; remaining > maxBytes {
			remaining = maxBytes
		}
		if left == 0 {
			ms.audioFinished = true
		}
	}

	written := 0
	for remaining > 0 {
		if ms.audioOutFrame == nil {
			f, ok := ms.frameQ.Pop()
			if !ok {
				break
			}
			ms.audioOutFrame = &f
			ms.audioOutIndex = 0
		}

		avail := len(ms.audioOutFrame.Data) - ms.audioOutIndex
		n := avail
		if n > remaining {
			n = remaining
		}

		copy(buf[written:written+n], ms.audioOutFrame.Data[ms.audioOutIndex:ms.audioOutIndex+n])

		ms.audioOutIndex += n
		written += n
		remaining -= n
		ms.audioQueueSamples -= int64(n / outputBytesPerFrame)
		ms.audioReadSamples += uint64(n / outputBytesPerFrame)

		if ms.audioOutIndex >= len(ms.audioOutFrame.Data) {
			ms.audioOutFrame = nil
			ms.audioOutIndex = 0
		}
	}

	if written > 0 {
		ms.needsDecode = true
		ms.cond.Broadcast()
	}

	ms.lock.Unlock()
	return written
}

// run is the decode goroutine's entry point.
func (ms *MediaState) run() {
	defer ms.teardown()

	if !ms.setup() {
		ms.lock.Lock()
		ms.audioFinished = true
		ms.videoFinished = true
		ms.lock.Unlock()
		ms.parkUntilQuit()
		return
	}

	for {
		ms.lock.Lock()
		quit := ms.quit
		audioDone := ms.audioFinished
		videoDone := ms.videoFinished
		ms.lock.Unlock()
		if quit {
			break
		}

		if !audioDone {
			ms.decodeAudio()
		}
		if ms.videoStreamIdx != codec.NoStream && !videoDone {
			ms.decodeVideo()
		}

		ms.lock.Lock()
		if !ms.ready {
			ms.ready = true
			ms.cond.Broadcast()
		}
		if !ms.needsDecode && !ms.quit {
			ms.cond.Wait()
		}
		ms.needsDecode = false
		quit = ms.quit
		ms.lock.Unlock()

		if quit {
			break
		}
	}

	ms.parkUntilQuit()
}

// parkUntilQuit makes ready visible to any blocked Pull caller and then
// waits for Close before returning, so the decode thread's exit is always
// the one that actually frees state (when Start was called).
func (ms *MediaState) parkUntilQuit() {
	ms.lock.Lock()
	if !ms.ready {
		ms.ready = true
	}
	ms.cond.Broadcast()
	for !ms.quit {
		ms.cond.Wait()
	}
	ms.lock.Unlock()
}

// setup probes the demuxer for stream indices, logs the container's own
// duration estimate (diagnostic only — see DESIGN.md for why it does not
// clamp audioDuration), and issues the initial seek if a skip was
// configured. Returns false on a setup failure (no audio stream selected).
func (ms *MediaState) setup() bool {
	audio, video := ms.demuxer.Streams()
	if audio.Index == codec.NoStream {
		slog.Error("mediastate: no audio stream selected", "label", ms.label)
		return false
	}
	ms.audioStreamIdx = audio.Index
	ms.videoStreamIdx = video.Index

	if samples, exact := ms.demuxer.Duration(); exact {
		if samples <= 0 || samples > int64(maxDurationHours*ms.outputRate) {
			slog.Debug("mediastate: container duration out of bounds, ignoring", "label", ms.label, "samples", samples)
		} else {
			slog.Info("mediastate: container duration", "label", ms.label, "samples", samples)
		}
	}

	if ms.skip > 0 {
		if err := ms.demuxer.Seek(ms.skip); err != nil {
			slog.Warn("mediastate: seek failed, skip will be applied by discarding decoded frames instead", "label", ms.label, "error", err)
		}
	}

	slog.Info("mediastate: ready", "label", ms.label, "audio_stream", ms.audioStreamIdx, "video_stream", ms.videoStreamIdx)
	return true
}

// readPacket implements the packet router: drain the target stream's own
// queue first; failing that, keep reading raw packets from the container,
// routing each to whichever stream it belongs to, until one matches the
// target or the container is exhausted.
func (ms *MediaState) readPacket(kind codec.StreamKind) (codec.Packet, bool) {
	if pkt, ok := ms.queueFor(kind).Pop(); ok {
		return pkt, true
	}

	for {
		pkt, eof, err := ms.demuxer.ReadRawPacket()
		if err != nil {
			slog.Debug("mediastate: read raw packet failed", "label", ms.label, "error", err)
			return codec.Packet{}, false
		}
		if eof {
			return codec.Packet{}, false
		}
		if pkt.Stream == kind {
			return pkt, true
		}
		ms.queueFor(pkt.Stream).Push(pkt)
	}
}

func (ms *MediaState) queueFor(kind codec.StreamKind) *queue.Queue[codec.Packet] {
	if kind == codec.VideoStream {
		return ms.videoPacketQ
	}
	return ms.audioPacketQ
}

// decodeAudio drains audio packets until the PCM output queue holds at
// least targetSeconds worth of samples, or the audio stream latches EOF.
func (ms *MediaState) decodeAudio() {
	targetSamples := int64(ms.targetSeconds * float64(ms.outputRate))

	for {
		ms.lock.Lock()
		haveEnough := ms.audioQueueSamples >= targetSamples
		if ms.audioDuration > 0 {
			totalProduced := int64(ms.audioReadSamples) + ms.audioQueueSamples
			haveEnough = haveEnough || totalProduced >= ms.audioDuration
		}
		ms.lock.Unlock()
		if haveEnough {
			return
		}

		pkt, ok := ms.readPacket(codec.AudioStream)

		frames, err := ms.demuxer.DecodeAudio(pkt)
		if err != nil {
			if err == codec.ErrEOF {
				ms.flushResamplerTail()
				ms.lock.Lock()
				ms.audioFinished = true
				ms.lock.Unlock()
				slog.Debug("mediastate: audio stream finished", "label", ms.label)
			} else {
				slog.Debug("mediastate: audio decode error, dropping packet", "label", ms.label, "error", err)
			}
			return
		}

		for _, f := range frames {
			ms.deliverAudioFrame(f)
		}

		if !ok && len(frames) == 0 {
			return
		}
	}
}

// deliverAudioFrame applies the skip policy at the frame's native sample
// rate (discarding entirely, passing through whole, or trimming the frame
// that straddles skip) before resampling, so no sample earlier than skip
// ever reaches the output queue.
func (ms *MediaState) deliverAudioFrame(f codec.AudioFrame) {
	start := f.PTSSeconds
	end := start + float64(f.NumSamples)/float64(f.SampleRate)

	var native []byte
	switch {
	case start >= ms.skip:
		native = f.Data
	case end <= ms.skip:
		return
	default:
		keepFromSample := int(float64(f.SampleRate) * (ms.skip - start))
		if keepFromSample < 0 {
			keepFromSample = 0
		}
		bytesPerNativeSample := 2 * f.Channels
		offset := keepFromSample * bytesPerNativeSample
		if offset > len(f.Data) {
			offset = len(f.Data)
		}
		native = f.Data[offset:]
	}
	if len(native) == 0 {
		return
	}

	ms.resampleAndEnqueue(f.SampleRate, f.Channels, native)
}

func (ms *MediaState) resampleAndEnqueue(nativeRate, nativeChannels int, native []byte) {
	if ms.resampler == nil || ms.resamplerRate != nativeRate || ms.resamplerChannels != nativeChannels {
		r, err := resample.New(nativeRate, nativeChannels, ms.outputRate)
		if err != nil {
			slog.Debug("mediastate: resample setup failed, dropping frame", "label", ms.label, "error", err)
			return
		}
		ms.resampler = r
		ms.resamplerRate = nativeRate
		ms.resamplerChannels = nativeChannels
	}

	out, err := ms.resampler.Write(native)
	if err != nil {
		slog.Debug("mediastate: resample failed, dropping frame", "label", ms.label, "error", err)
		return
	}
	ms.enqueueOutput(out)
}

// flushResamplerTail releases any PCM soxr is still holding in its internal
// filter buffer so it reaches the output queue instead of being lost when
// the stream latches EOF before the caller ever closes the handle.
func (ms *MediaState) flushResamplerTail() {
	if ms.resampler == nil {
		return
	}
	tail, err := ms.resampler.Flush()
	if err != nil {
		slog.Debug("mediastate: resampler flush error", "label", ms.label, "error", err)
		return
	}
	ms.enqueueOutput(tail)
	ms.resampler = nil
}

func (ms *MediaState) enqueueOutput(out []byte) {
	if len(out) == 0 {
		return
	}

	numSamples := len(out) / outputBytesPerFrame

	ms.lock.Lock()
	ms.frameQ.Push(codec.AudioFrame{
		SampleRate: ms.outputRate,
		Channels:   resample.OutputChannels,
		Format:     codec.SampleFormatS16,
		NumSamples: numSamples,
		Data:       out,
	})
	ms.audioQueueSamples += int64(numSamples)
	ms.lock.Unlock()
}

// decodeVideo drains exactly one video packet per call, discarding its
// decoded output. This preserves demux backpressure on the video queue
// without standing up any frame delivery.
func (ms *MediaState) decodeVideo() {
	pkt, _ := ms.readPacket(codec.VideoStream)

	_, err := ms.demuxer.DecodeVideo(pkt)
	if err != nil {
		if err == codec.ErrEOF {
			ms.lock.Lock()
			ms.videoFinished = true
			ms.lock.Unlock()
			slog.Debug("mediastate: video stream finished", "label", ms.label)
		}
	}
}

func (ms *MediaState) teardown() {
	ms.teardownGuard.Do(func() {
		if err := ms.demuxer.Close(); err != nil {
			slog.Debug("mediastate: demuxer close error", "label", ms.label, "error", err)
		}

		if ms.resampler != nil {
			// Teardown only ever runs once quit is set, so any tail PCM
			// soxr still has buffered is about to be drained away below
			// anyway; Flush just releases its resources.
			if _, err := ms.resampler.Flush(); err != nil {
				slog.Debug("mediastate: resampler flush error", "label", ms.label, "error", err)
			}
		}

		if err := ms.source.Close(); err != nil {
			slog.Debug("mediastate: source close error", "label", ms.label, "error", err)
		}

		ms.audioPacketQ.Drain(func(codec.Packet) {})
		ms.videoPacketQ.Drain(func(codec.Packet) {})

		ms.lock.Lock()
		ms.frameQ.Drain(func(codec.AudioFrame) {})
		ms.audioOutFrame = nil
		ms.audioQueueSamples = 0
		ms.audioFinished = true
		ms.videoFinished = true
		ms.lock.Unlock()

		slog.Info("mediastate: closed", "label", ms.label, "samples_delivered", ms.audioReadSamples)
	})
}
