// Package mediacore is the public surface of the media decode/playback
// core: a process-wide Init, a per-stream Open returning a Handle, and the
// Handle methods a real-time audio callback drives (Pull) alongside the
// setup calls a caller makes once (StartEnd, Start, Close, Status).
package mediacore

import (
	"log/slog"
	"os"
	"sync"

	"github.com/drgolem/mediacore/internal/mediastate"
	"github.com/drgolem/mediacore/pkg/bytesource"
	"github.com/drgolem/mediacore/pkg/codec"
	"github.com/drgolem/mediacore/pkg/types"
)

var (
	initOnce   sync.Once
	outputRate int = 44100
)

// Init configures the process-wide output sample rate and log verbosity.
// It should be called once before the first Open; later calls are
// ignored, matching the original media layer's one-shot process
// initialization.
func Init(rate int, verboseLogging bool) {
	initOnce.Do(func() {
		if rate > 0 {
			outputRate = rate
		}

		level := slog.LevelInfo
		if verboseLogging {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	})
}

// Handle is the caller-facing reference to one open media stream.
type Handle struct {
	ms *mediastate.MediaState

	surfaceMu       sync.Mutex
	sampleSurfaces  [2]interface{}
}

// Open allocates a Handle over an already-opened demuxer backend and the
// byte source backing it. The byte source is retained only so it can be
// closed exactly once during teardown; ownership passes to the Handle.
func Open(source bytesource.Source, label string, backend codec.Demuxer) (*Handle, error) {
	if backend == nil {
		return nil, types.ErrSetup
	}
	return &Handle{ms: mediastate.New(source, label, backend, outputRate)}, nil
}

// StartEnd configures the leading skip (startSeconds) and, if endSeconds is
// greater than zero, the stream position at which to latch EOF: both are
// offsets from the start of the stream, so endSeconds - startSeconds
// seconds of audio are delivered. Must be called before Start.
func (h *Handle) StartEnd(startSeconds, endSeconds float64) error {
	return h.ms.StartEnd(startSeconds, endSeconds)
}

// Start spawns the decode goroutine. After Start, the Handle owns
// teardown of the backend and byte source; Close is the only further
// action the caller needs to take.
func (h *Handle) Start() error {
	return h.ms.Start()
}

// Pull fills buf with interleaved stereo s16 PCM at the configured output
// rate and returns the number of bytes written. It returns less than
// len(buf), down to 0, at EOF, after Close, and also whenever the decode
// goroutine has not yet refilled the queue; a 0 return alone does not
// distinguish EOF from a momentarily empty queue. Safe to call from a
// real-time audio callback: it blocks only until the stream is ready.
func (h *Handle) Pull(buf []byte) int {
	return h.ms.Pull(buf)
}

// Close requests teardown. Safe to call at any point after Open, any
// number of times, from any goroutine.
func (h *Handle) Close() {
	h.ms.Close()
}

// Status reports a snapshot of playback progress.
func (h *Handle) Status() types.PlaybackStatus {
	return h.ms.Status()
}

// SetSampleSurfaces is retained for interface parity with the legacy
// surface-delivery API; the values are stored but never consumed, since
// no backend in this core decodes video frames (every DecodeVideo reports
// EOF at once) and nothing is delivered to a surface.
func (h *Handle) SetSampleSurfaces(primary, secondary interface{}) {
	h.surfaceMu.Lock()
	h.sampleSurfaces[0] = primary
	h.sampleSurfaces[1] = secondary
	h.surfaceMu.Unlock()
}
