// Package pullertest provides an in-memory demuxing library for tests.
package pullertest

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/zsiec/austream/internal/media"
	"github.com/zsiec/austream/internal/puller"
)

// ErrHandleClosed is returned by ReadPacket after Close.
var ErrHandleClosed = errors.New("pullertest: handle closed")

// Demuxer is a scripted puller.Demuxer. Packets pushed with Push are
// returned in order; once drained, ReadPacket blocks until more arrive,
// End is called, or the handle is closed.
type Demuxer struct {
	StreamList []media.StreamInfo
	StreamsErr error
	ReadErr    error // returned once the queue is drained, instead of blocking

	packets chan *media.Packet
	ended   chan struct{}
	closed  chan struct{}

	endOnce   sync.Once
	closeOnce sync.Once

	Reads    atomic.Int64
	Released atomic.Int64
	Closes   atomic.Int64
}

// NewDemuxer returns a Demuxer exposing streams.
func NewDemuxer(streams ...media.StreamInfo) *Demuxer {
	return &Demuxer{
		StreamList: streams,
		packets:    make(chan *media.Packet, 4096),
		ended:      make(chan struct{}),
		closed:     make(chan struct{}),
	}
}

// AV returns the streams of a typical source: H.264 video on index 0 and
// stereo AAC on index 1.
func AV() []media.StreamInfo {
	return []media.StreamInfo{
		{Index: 0, Class: media.ClassVideo, Codec: media.CodecH264, Width: 1920, Height: 1080},
		{Index: 1, Class: media.ClassAudio, Codec: media.CodecAAC, Channels: 2, SampleRate: 48000},
	}
}

// Push queues packets for ReadPacket.
func (d *Demuxer) Push(pkts ...*media.Packet) {
	for _, p := range pkts {
		d.packets <- p
	}
}

// PushData queues one packet per payload on stream index.
func (d *Demuxer) PushData(index int, payloads ...[]byte) {
	for _, b := range payloads {
		d.packets <- &media.Packet{StreamIndex: index, PTS: media.NoTimestamp, DTS: media.NoTimestamp, Data: b}
	}
}

// End makes ReadPacket return io.EOF once the queue is drained.
func (d *Demuxer) End() {
	d.endOnce.Do(func() { close(d.ended) })
}

// Streams implements puller.Demuxer.
func (d *Demuxer) Streams(context.Context) ([]media.StreamInfo, error) {
	if d.StreamsErr != nil {
		return nil, d.StreamsErr
	}
	return d.StreamList, nil
}

// ReadPacket implements puller.Demuxer.
func (d *Demuxer) ReadPacket(ctx context.Context) (*media.Packet, error) {
	d.Reads.Add(1)
	select {
	case <-d.closed:
		return nil, ErrHandleClosed
	default:
	}
	select {
	case p := <-d.packets:
		return p, nil
	default:
	}
	if d.ReadErr != nil {
		return nil, d.ReadErr
	}
	select {
	case p := <-d.packets:
		return p, nil
	case <-d.ended:
		return nil, io.EOF
	case <-d.closed:
		return nil, ErrHandleClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReleasePacket implements puller.Demuxer.
func (d *Demuxer) ReleasePacket(*media.Packet) {
	d.Released.Add(1)
}

// Close implements puller.Demuxer.
func (d *Demuxer) Close() error {
	d.Closes.Add(1)
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}

// Library serves one Demuxer per Open call from a fixed list, or OpenErr.
type Library struct {
	mu       sync.Mutex
	demuxers []*Demuxer
	OpenErr  error
	URIs     []string
}

// NewLibrary returns a Library handing out demuxers in order. The last one
// is reused once the list is exhausted.
func NewLibrary(demuxers ...*Demuxer) *Library {
	return &Library{demuxers: demuxers}
}

// Open implements puller.Library.
func (l *Library) Open(_ context.Context, uri string) (puller.Demuxer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.URIs = append(l.URIs, uri)
	if l.OpenErr != nil {
		return nil, l.OpenErr
	}
	if len(l.demuxers) == 0 {
		return nil, errors.New("pullertest: no demuxer")
	}
	d := l.demuxers[0]
	if len(l.demuxers) > 1 {
		l.demuxers = l.demuxers[1:]
	}
	return d, nil
}

// Recorder is a puller.Handler that keeps copies of what it receives.
type Recorder struct {
	mu    sync.Mutex
	Video [][]byte
	Audio [][]byte
}

// OnVideoPacket implements puller.Handler.
func (r *Recorder) OnVideoPacket(p *media.Packet) {
	r.mu.Lock()
	r.Video = append(r.Video, append([]byte(nil), p.Data...))
	r.mu.Unlock()
}

// OnAudioPacket implements puller.Handler.
func (r *Recorder) OnAudioPacket(p *media.Packet) {
	r.mu.Lock()
	r.Audio = append(r.Audio, append([]byte(nil), p.Data...))
	r.mu.Unlock()
}

// Counts returns the number of video and audio packets received.
func (r *Recorder) Counts() (video, audio int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Video), len(r.Audio)
}
