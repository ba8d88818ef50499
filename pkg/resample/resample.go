// Package resample converts decoded audio frames, in whatever native rate
// and channel count the source has, into mediacore's single fixed output
// format: signed 16-bit PCM, stereo, at a configured target sample rate.
// It is a thin wrapper over soxr (github.com/zaf/resample), run
// continuously across many small frames instead of one whole file at a
// time; cmd/transform.go reaches it only through the mediacore pipeline.
package resample

import (
	"bytes"
	"fmt"

	soxr "github.com/zaf/resample"
)

// OutputChannels is the channel count of mediacore's fixed PCM output
// format; the output rate is passed to New. OutputChannels is always 2
// (stereo); mono sources are duplicated across
// both channels, and sources with more than two channels are downmixed by
// averaging before duplication.
const (
	OutputChannels = 2
	bytesPerSample = 2 // s16
)

// Resampler rate-converts one source stream (fixed native rate and channel
// count) into mediacore's fixed output format. It is not safe for
// concurrent use; internal/mediastate only touches it from the decode
// goroutine (or from Close's teardown when no decode goroutine was started).
type Resampler struct {
	toRate       int
	fromChannels int

	buf  bytes.Buffer
	soxr *soxr.Resampler
}

// New creates a Resampler converting fromRate/fromChannels audio into
// OutputChannels-channel PCM at toRate. fromChannels may be 1, 2, or more;
// soxr itself never changes channel count, so channel mapping to stereo
// happens after resampling, in Write.
func New(fromRate, fromChannels, toRate int) (*Resampler, error) {
	if fromChannels < 1 {
		return nil, fmt.Errorf("resample: invalid channel count %d", fromChannels)
	}

	r := &Resampler{toRate: toRate, fromChannels: fromChannels}

	sx, err := soxr.New(&r.buf, float64(fromRate), float64(toRate), fromChannels, soxr.I16, soxr.HighQ)
	if err != nil {
		return nil, fmt.Errorf("resample: create resampler: %w", err)
	}
	r.soxr = sx

	return r, nil
}

// Write feeds native-format PCM bytes (fromChannels interleaved s16) into
// the resampler and returns the resulting mediacore-format stereo s16 PCM
// produced so far. The returned slice is only valid until the next call.
func (r *Resampler) Write(nativePCM []byte) ([]byte, error) {
	if _, err := r.soxr.Write(nativePCM); err != nil {
		return nil, fmt.Errorf("resample: write: %w", err)
	}

	native := r.buf.Bytes()
	r.buf.Reset()

	return toStereo(native, r.fromChannels), nil
}

// Flush drains any audio soxr has buffered internally (resamplers hold back
// a few samples to do their filtering) and closes the underlying resampler.
// Call exactly once, when the source stream has no more native PCM to feed.
func (r *Resampler) Flush() ([]byte, error) {
	if err := r.soxr.Close(); err != nil {
		return nil, fmt.Errorf("resample: close: %w", err)
	}

	native := r.buf.Bytes()
	r.buf.Reset()

	return toStereo(native, r.fromChannels), nil
}

// toStereo maps nativeChannels-channel interleaved s16 PCM to stereo:
// mono is duplicated across both channels, stereo passes through unchanged,
// and anything wider is averaged down to mono first.
func toStereo(native []byte, nativeChannels int) []byte {
	if nativeChannels == OutputChannels {
		return native
	}

	frameBytes := nativeChannels * bytesPerSample
	numFrames := len(native) / frameBytes
	out := make([]byte, numFrames*OutputChannels*bytesPerSample)

	for i := 0; i < numFrames; i++ {
		var sum int32
		for ch := 0; ch < nativeChannels; ch++ {
			off := i*frameBytes + ch*bytesPerSample
			sum += int32(int16(uint16(native[off]) | uint16(native[off+1])<<8))
		}
		mono := int16(sum / int32(nativeChannels))

		outOff := i * OutputChannels * bytesPerSample
		for ch := 0; ch < OutputChannels; ch++ {
			off := outOff + ch*bytesPerSample
			out[off] = byte(mono)
			out[off+1] = byte(mono >> 8)
		}
	}

	return out
}
