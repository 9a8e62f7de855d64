package puller

import (
	"context"

	"github.com/zsiec/austream/internal/media"
)

// Library opens live sources. It is the entry point of a demuxing backend.
type Library interface {
	Open(ctx context.Context, uri string) (Demuxer, error)
}

// Demuxer is an opened source handle. After Streams returns, only the
// puller's loop goroutine calls ReadPacket and ReleasePacket; Close may be
// called from any goroutine and must unblock a pending ReadPacket.
type Demuxer interface {
	// Streams resolves the elementary streams in the source.
	Streams(ctx context.Context) ([]media.StreamInfo, error)
	// ReadPacket returns the next packet, or io.EOF at end of stream.
	ReadPacket(ctx context.Context) (*media.Packet, error)
	// ReleasePacket returns a packet obtained from ReadPacket.
	ReleasePacket(p *media.Packet)
	Close() error
}

// Handler receives classified packets on the loop goroutine. The packet is
// released when the call returns, so a handler must copy what it keeps.
type Handler interface {
	OnVideoPacket(p *media.Packet)
	OnAudioPacket(p *media.Packet)
}

// LibraryFunc adapts a function to Library.
type LibraryFunc func(ctx context.Context, uri string) (Demuxer, error)

// Open calls f.
func (f LibraryFunc) Open(ctx context.Context, uri string) (Demuxer, error) {
	return f(ctx, uri)
}
