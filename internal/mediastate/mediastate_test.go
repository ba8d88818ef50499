package mediastate

import (
	"testing"
	"time"

	"github.com/drgolem/mediacore/pkg/bytesource"
	"github.com/drgolem/mediacore/pkg/codec/tone"
)

const outputRate = 44100

func newToneMediaState(t *testing.T, cfg tone.Config) *MediaState {
	t.Helper()
	src := bytesource.NewMemSource(nil)
	d := tone.New(cfg)
	return New(src, "tone-test", d, outputRate)
}

// pullAll pulls chunkBytes at a time until Pull returns 0 or maxPulls is
// exceeded (a safety valve so a bug can't hang the test suite).
func pullAll(ms *MediaState, chunkBytes, maxPulls int) (total int) {
	buf := make([]byte, chunkBytes)
	for i := 0; i < maxPulls; i++ {
		n := ms.Pull(buf)
		total += n
		if n == 0 {
			return total
		}
	}
	return total
}

func TestCleanPlaybackDeliversFullDurationThenZero(t *testing.T) {
	ms := newToneMediaState(t, tone.Config{SampleRate: 22050, Channels: 1, FrequencyHz: 440, DurationSeconds: 1})
	if err := ms.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ms.Close()

	total := pullAll(ms, 4096, 10000)
	want := int(1 * outputRate * 4) // 1 second, stereo s16 at the output rate

	tolerance := 4 * 100 // a few output frames of resampler slack
	if diff := total - want; diff < -tolerance || diff > tolerance {
		t.Errorf("total bytes = %d, want ~%d (+/- %d)", total, want, tolerance)
	}

	// One more pull past natural EOF must return 0, not block or panic.
	if n := ms.Pull(make([]byte, 4096)); n != 0 {
		t.Errorf("Pull after EOF = %d, want 0", n)
	}
}

func TestBoundedEndNeverExceedsConfiguredDuration(t *testing.T) {
	ms := newToneMediaState(t, tone.Config{SampleRate: 44100, Channels: 2, FrequencyHz: 220, DurationSeconds: 2})
	if err := ms.StartEnd(0, 0.25); err != nil {
		t.Fatalf("StartEnd: %v", err)
	}
	if err := ms.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ms.Close()

	total := pullAll(ms, 4096, 10000)
	maxAllowed := int(0.25 * outputRate * 4)

	if total > maxAllowed {
		t.Errorf("total bytes = %d, exceeds configured bound %d", total, maxAllowed)
	}
	if total < maxAllowed/2 {
		t.Errorf("total bytes = %d, suspiciously low vs bound %d", total, maxAllowed)
	}
}

func TestSkipNeverDeliversBeforeStart(t *testing.T) {
	ms := newToneMediaState(t, tone.Config{SampleRate: 44100, Channels: 1, FrequencyHz: 330, DurationSeconds: 2})
	if err := ms.StartEnd(0.5, 0); err != nil {
		t.Fatalf("StartEnd: %v", err)
	}
	if err := ms.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ms.Close()

	total := pullAll(ms, 4096, 10000)
	want := int(1.5 * outputRate * 4) // 2s track minus 0.5s skip

	tolerance := 4 * 200
	if diff := total - want; diff < -tolerance || diff > tolerance {
		t.Errorf("total bytes after 0.5s skip = %d, want ~%d (+/- %d)", total, want, tolerance)
	}
}

func TestStartEndAfterStartReturnsError(t *testing.T) {
	ms := newToneMediaState(t, tone.Config{SampleRate: 44100, Channels: 2, DurationSeconds: 1})
	if err := ms.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ms.Close()

	if err := ms.StartEnd(0, 1); err == nil {
		t.Error("StartEnd after Start: expected error, got nil")
	}
	if err := ms.Start(); err == nil {
		t.Error("second Start: expected error, got nil")
	}
}

func TestCloseBeforeReadyUnblocksPull(t *testing.T) {
	ms := newToneMediaState(t, tone.Config{SampleRate: 44100, Channels: 2, DurationSeconds: 1})
	if err := ms.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ms.Close()

	done := make(chan int, 1)
	go func() {
		done <- ms.Pull(make([]byte, 4096))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pull did not return after immediate Close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ms := newToneMediaState(t, tone.Config{SampleRate: 44100, Channels: 2, DurationSeconds: 1})
	if err := ms.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ms.Close()
	ms.Close() // must not panic or block
}

func TestCloseWithoutStartTearsDownDirectly(t *testing.T) {
	ms := newToneMediaState(t, tone.Config{SampleRate: 44100, Channels: 2, DurationSeconds: 1})
	ms.Close() // never Start: caller-side teardown path

	if n := ms.Pull(make([]byte, 1024)); n != 0 {
		t.Errorf("Pull on a never-started, closed handle = %d, want 0", n)
	}
}

func TestStatusReflectsProgress(t *testing.T) {
	ms := newToneMediaState(t, tone.Config{SampleRate: 44100, Channels: 2, FrequencyHz: 440, DurationSeconds: 1})
	if err := ms.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ms.Close()

	pullAll(ms, 4096, 10000)

	status := ms.Status()
	if status.SampleRate != outputRate {
		t.Errorf("Status.SampleRate = %d, want %d", status.SampleRate, outputRate)
	}
	if status.Channels != 2 {
		t.Errorf("Status.Channels = %d, want 2", status.Channels)
	}
	if status.PlayedSamples == 0 {
		t.Error("Status.PlayedSamples = 0 after full playback")
	}
}
