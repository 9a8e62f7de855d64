package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/zsiec/austream/internal/media"
)

// DefaultChunkSize is how much a File reads from disk at a time.
const DefaultChunkSize = 1 << 20

// FileOptions configures a File source.
type FileOptions struct {
	ChunkSize int
	Log       *slog.Logger
}

// File reads a raw elementary-stream file and yields one access unit per
// NextUnit call. It is not safe for concurrent use, except for Stats.
type File struct {
	path string
	f    *os.File
	log  *slog.Logger

	chunk []byte
	cache []byte
	start int // first unconsumed byte in cache

	units  atomic.Int64
	bytes  atomic.Int64
	cached atomic.Int64
}

// OpenFile opens path for reading. A file that cannot be opened yields an
// error wrapping media.ErrSourceUnavailable.
func OpenFile(path string, opts FileOptions) (*File, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "file-source", "path", path)

	if path == "" {
		return nil, fmt.Errorf("source: empty file path: %w", media.ErrInvalidArgument)
	}
	f, err := os.Open(path)
	if err != nil {
		log.Error("open failed", "error", err)
		return nil, fmt.Errorf("source: open %s: %w: %w", path, media.ErrSourceUnavailable, err)
	}

	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	log.Debug("opened", "chunk_size", size)
	return &File{
		path:  path,
		f:     f,
		log:   log,
		chunk: make([]byte, size),
	}, nil
}

// NextUnit returns the next access unit. When the file is exhausted the
// remaining cached bytes are returned as a final unit with last set; that
// unit may be empty or not well-formed.
func (s *File) NextUnit(ctx context.Context) ([]byte, bool, error) {
	if s.f == nil {
		return nil, false, fmt.Errorf("source: %s: %w", s.path, media.ErrClosed)
	}
	for {
		if n := FindBoundary(s.cache[s.start:]); n > 0 {
			unit := make([]byte, n)
			copy(unit, s.cache[s.start:])
			s.start += n
			s.units.Add(1)
			s.cached.Store(int64(len(s.cache) - s.start))
			return unit, false, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		s.compact()
		n, err := s.f.Read(s.chunk)
		if n > 0 {
			s.cache = append(s.cache, s.chunk[:n]...)
			s.bytes.Add(int64(n))
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, false, fmt.Errorf("source: read %s: %w", s.path, err)
		}

		unit := make([]byte, len(s.cache)-s.start)
		copy(unit, s.cache[s.start:])
		s.cache = s.cache[:0]
		s.start = 0
		s.cached.Store(0)
		s.log.Debug("end of file", "units", s.units.Load(), "final_unit_bytes", len(unit))
		return unit, true, nil
	}
}

// compact moves the unconsumed tail to the front of the cache.
func (s *File) compact() {
	if s.start == 0 {
		return
	}
	n := copy(s.cache, s.cache[s.start:])
	s.cache = s.cache[:n]
	s.start = 0
}

// Reload rewinds the file to its first byte. Bytes already cached but not
// yet returned are kept and will precede the re-read data.
func (s *File) Reload(context.Context) error {
	if s.f == nil {
		return fmt.Errorf("source: %s: %w", s.path, media.ErrClosed)
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("source: rewind %s: %w", s.path, err)
	}
	s.log.Debug("rewound", "cached_bytes", len(s.cache)-s.start)
	return nil
}

// Close closes the file.
func (s *File) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// FileStats reports what a File has produced.
type FileStats struct {
	Units     int64
	BytesRead int64
	Cached    int64
}

// Stats returns the file source counters.
func (s *File) Stats() FileStats {
	return FileStats{Units: s.units.Load(), BytesRead: s.bytes.Load(), Cached: s.cached.Load()}
}
