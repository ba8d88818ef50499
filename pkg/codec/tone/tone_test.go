package tone

import (
	"testing"

	"github.com/drgolem/mediacore/pkg/codec"
)

func TestDemuxerStreams(t *testing.T) {
	d := New(Config{DurationSeconds: 1})
	audio, video := d.Streams()
	if audio.Index != 0 {
		t.Errorf("audio.Index = %d, want 0", audio.Index)
	}
	if video.Index != codec.NoStream {
		t.Errorf("video.Index = %d, want %d", video.Index, codec.NoStream)
	}
}

func TestDemuxerReadRawPacketExhausts(t *testing.T) {
	d := New(Config{SampleRate: 8000, ChunkSamples: 100, DurationSeconds: 0.05})
	samples, exact := d.Duration()
	if !exact || samples != 400 {
		t.Fatalf("Duration() = (%d, %v), want (400, true)", samples, exact)
	}

	var got int64
	for {
		pkt, eof, err := d.ReadRawPacket()
		if err != nil {
			t.Fatalf("ReadRawPacket: %v", err)
		}
		if eof {
			break
		}
		if pkt.Stream != codec.AudioStream {
			t.Fatalf("pkt.Stream = %v, want AudioStream", pkt.Stream)
		}
		got += int64(len(pkt.Data) / 2)
	}
	if got != samples {
		t.Errorf("total samples read = %d, want %d", got, samples)
	}
}

func TestDemuxerDecodeAudioEOFSentinel(t *testing.T) {
	d := New(Config{})
	_, err := d.DecodeAudio(codec.Packet{Data: nil})
	if err != codec.ErrEOF {
		t.Errorf("DecodeAudio(nil-data) = %v, want codec.ErrEOF", err)
	}
}

func TestDemuxerDecodeAudioRoundTrip(t *testing.T) {
	d := New(Config{SampleRate: 8000, Channels: 2, ChunkSamples: 64})
	pkt, eof, err := d.ReadRawPacket()
	if err != nil || eof {
		t.Fatalf("ReadRawPacket: eof=%v err=%v", eof, err)
	}
	frames, err := d.DecodeAudio(pkt)
	if err != nil {
		t.Fatalf("DecodeAudio: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}
	f := frames[0]
	if f.Channels != 2 || f.SampleRate != 8000 || f.NumSamples != 64 {
		t.Errorf("unexpected frame: %+v", f)
	}
}

func TestDemuxerSeekAdvancesCursor(t *testing.T) {
	d := New(Config{SampleRate: 1000, ChunkSamples: 10, DurationSeconds: 1})
	if err := d.Seek(0.5); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	pkt, _, err := d.ReadRawPacket()
	if err != nil {
		t.Fatalf("ReadRawPacket: %v", err)
	}
	if pkt.PTS != 500 {
		t.Errorf("pkt.PTS = %d, want 500", pkt.PTS)
	}
}
