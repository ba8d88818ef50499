// Package bytesource adapts a caller-supplied random-access byte source to
// the read/seek contract the codec/demuxer backends need: a buffered
// front-end over something that merely knows how to read, seek, and report
// its size.
package bytesource

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// Whence values for Seek, re-exporting the io.Seek* constants so callers
// don't need to import "io" just to call Seek.
const (
	SeekStart   = io.SeekStart
	SeekCurrent = io.SeekCurrent
	SeekEnd     = io.SeekEnd
)

// ErrWriteUnsupported names the unsupported write operation. Source has no
// Write method, so nothing in this package returns it.
var ErrWriteUnsupported = errors.New("bytesource: write not supported")

// Source is the byte-source contract: read, seek (SET/CUR/END), a size
// query, and close. Implementations are exclusively owned by whoever opened
// them; Close is called exactly once, during MediaState teardown.
type Source interface {
	Read(buf []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Size() (int64, error)
	Close() error
}

const bufferSize = 64 * 1024

// BufferedReader wraps a Source in a buffered io.Reader, for backends (like
// ffmpegdemux) that want a streaming read interface instead of raw
// Read/Seek calls. The Source is read from its current position; callers
// that need to start from the beginning should Seek(0, SeekStart) first.
func BufferedReader(src Source) io.Reader {
	return bufio.NewReaderSize(&readerAdapter{src: src}, bufferSize)
}

type readerAdapter struct {
	src Source
}

func (r *readerAdapter) Read(p []byte) (int, error) {
	return r.src.Read(p)
}

// FileSource is a Source backed by an *os.File — the common case, and the
// only case pkg/codec/fileaudio can use, since the underlying C decoder
// libraries need a filesystem path rather than an arbitrary reader.
type FileSource struct {
	f *os.File
}

// OpenFile opens fileName and wraps it as a Source.
func OpenFile(fileName string) (*FileSource, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	return &FileSource{f: f}, nil
}

func (s *FileSource) Read(buf []byte) (int, error) { return s.f.Read(buf) }

func (s *FileSource) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}

func (s *FileSource) Size() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (s *FileSource) Close() error { return s.f.Close() }

// Name returns the underlying file path, for backends that need a path
// rather than a reader (pkg/codec/fileaudio's mp3/flac/wav decoders).
func (s *FileSource) Name() string { return s.f.Name() }

// MemSource is a Source backed by an in-memory byte slice. Used by tests and
// by callers that already have the whole stream buffered.
type MemSource struct {
	data []byte
	pos  int64
}

// NewMemSource wraps data (not copied; callers must not mutate it afterward).
func NewMemSource(data []byte) *MemSource {
	return &MemSource{data: data}
}

func (s *MemSource) Read(buf []byte) (int, error) {
	if s.pos >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(buf, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *MemSource) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case SeekStart:
		newPos = offset
	case SeekCurrent:
		newPos = s.pos + offset
	case SeekEnd:
		newPos = int64(len(s.data)) + offset
	default:
		return 0, errors.New("bytesource: invalid whence")
	}
	if newPos < 0 {
		return 0, errors.New("bytesource: negative seek position")
	}
	s.pos = newPos
	return newPos, nil
}

func (s *MemSource) Size() (int64, error) { return int64(len(s.data)), nil }

func (s *MemSource) Close() error { return nil }
