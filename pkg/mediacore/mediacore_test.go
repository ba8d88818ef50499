package mediacore

import (
	"testing"

	"github.com/drgolem/mediacore/pkg/bytesource"
	"github.com/drgolem/mediacore/pkg/codec/tone"
)

func TestOpenStartPullClose(t *testing.T) {
	Init(44100, false)

	h, err := Open(bytesource.NewMemSource(nil), "tone", tone.New(tone.Config{
		SampleRate:      44100,
		Channels:        2,
		FrequencyHz:     440,
		DurationSeconds: 0.1,
	}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	buf := make([]byte, 4096)
	total := 0
	for i := 0; i < 1000; i++ {
		n := h.Pull(buf)
		total += n
		if n == 0 {
			break
		}
	}
	if total == 0 {
		t.Error("Pull never returned any data")
	}

	status := h.Status()
	if status.SampleRate != 44100 {
		t.Errorf("Status.SampleRate = %d, want 44100", status.SampleRate)
	}
}

func TestOpenRejectsNilBackend(t *testing.T) {
	if _, err := Open(bytesource.NewMemSource(nil), "nil-backend", nil); err == nil {
		t.Error("Open with nil backend: expected error, got nil")
	}
}

func TestSetSampleSurfacesIsAcceptedAndInert(t *testing.T) {
	h, err := Open(bytesource.NewMemSource(nil), "tone", tone.New(tone.Config{DurationSeconds: 0.05}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	// Must not panic; the values are stored but never acted on.
	h.SetSampleSurfaces("primary", 42)
}
