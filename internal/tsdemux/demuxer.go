package tsdemux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zsiec/austream/internal/codec"
	"github.com/zsiec/austream/internal/media"
	"github.com/zsiec/austream/internal/mpegts"
	"github.com/zsiec/austream/internal/puller"
)

// DefaultProbeSize bounds how many input bytes stream discovery reads.
const DefaultProbeSize = 5_000_000

var _ puller.Demuxer = (*Demuxer)(nil)

type stream struct {
	info     media.StreamInfo
	resolved bool
}

// countingReader counts bytes consumed from the source.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Demuxer yields packets from one transport stream. Packets read while
// discovering streams are kept and returned first by ReadPacket.
type Demuxer struct {
	src       *countingReader
	closer    io.Closer
	r         *mpegts.Reader
	log       *slog.Logger
	probeSize int64

	pmtPID  int
	streams []*stream
	byPID   map[uint16]*stream
	probed  []*media.Packet
	ready   bool

	pool sync.Pool

	statsMu sync.Mutex
	stats   mpegts.Stats

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// NewDemuxer wraps rc. Closing the Demuxer closes rc, which must unblock a
// pending Read.
func NewDemuxer(rc io.ReadCloser, probeSize int64, log *slog.Logger) *Demuxer {
	if log == nil {
		log = slog.Default()
	}
	if probeSize <= 0 {
		probeSize = DefaultProbeSize
	}
	src := &countingReader{r: rc}
	d := &Demuxer{
		src:       src,
		closer:    rc,
		r:         mpegts.NewReader(src, mpegts.WithLogger(log)),
		log:       log.With("component", "tsdemux"),
		probeSize: probeSize,
		pmtPID:    -1,
		byPID:     make(map[uint16]*stream),
	}
	d.pool.New = func() any { return new(media.Packet) }
	return d
}

// Streams reads the stream until the PMT of the first program is known and
// every stream with in-band parameters has them, or the probe size is
// exhausted.
func (d *Demuxer) Streams(ctx context.Context) ([]media.StreamInfo, error) {
	if !d.ready {
		stop := context.AfterFunc(ctx, func() { d.closer.Close() })
		err := d.probe(ctx)
		stop()
		if err != nil {
			return nil, err
		}
		d.ready = true
	}

	infos := make([]media.StreamInfo, len(d.streams))
	for i, s := range d.streams {
		infos[i] = s.info
	}
	return infos, nil
}

func (d *Demuxer) probe(ctx context.Context) error {
	for !d.resolved() {
		if d.consumed() > d.probeSize {
			if d.pmtPID < 0 {
				return fmt.Errorf("tsdemux: no PMT within %d bytes: %w", d.probeSize, media.ErrNoStreamInfo)
			}
			d.log.Warn("stream parameters unresolved after probing", "probe_size", d.probeSize)
			return nil
		}

		u, err := d.next(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("tsdemux: probing: %w", ctxErr)
			}
			if d.pmtPID < 0 {
				return fmt.Errorf("tsdemux: probing: %w: %w", media.ErrNoStreamInfo, err)
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("tsdemux: probing: %w", err)
		}

		switch {
		case u.PAT != nil:
			d.log.Debug("PAT", "programs", len(u.PAT.Programs))
		case u.PMT != nil:
			d.onPMT(u)
		case u.PES != nil:
			if p := d.packet(u); p != nil {
				d.inspect(p)
				d.probed = append(d.probed, p)
			}
		}
	}
	d.log.Debug("streams resolved", "streams", len(d.streams), "probed_packets", len(d.probed))
	return nil
}

// consumed returns how many input bytes the reader has parsed, which lags
// BytesRead by whatever is buffered.
func (d *Demuxer) consumed() int64 {
	st := d.Stats()
	return st.Packets*mpegts.PacketSize + st.ResyncBytes
}

func (d *Demuxer) resolved() bool {
	if d.pmtPID < 0 {
		return false
	}
	for _, s := range d.streams {
		if !s.resolved {
			return false
		}
	}
	return true
}

// onPMT registers the streams of the first PMT seen. Later PMTs, for this
// or another program, are ignored since stream layout is fixed once
// discovered.
func (d *Demuxer) onPMT(u *mpegts.Unit) {
	if d.pmtPID >= 0 {
		return
	}
	d.pmtPID = int(u.PID)
	for _, es := range u.PMT.Streams {
		id := codecFor(es)
		s := &stream{
			info: media.StreamInfo{
				Index: len(d.streams),
				Class: id.Class(),
				Codec: id,
			},
			resolved: !needsProbe(id),
		}
		d.streams = append(d.streams, s)
		d.byPID[es.PID] = s
		d.log.Debug("stream discovered", "index", s.info.Index, "pid", es.PID,
			"stream_type", es.StreamType, "codec", id)
	}
}

func (d *Demuxer) inspect(p *media.Packet) {
	s := d.streams[p.StreamIndex]
	if s.resolved {
		return
	}
	params, ok := codec.Inspect(s.info.Codec, p.Data)
	if !ok {
		return
	}
	s.info.Width, s.info.Height = params.Width, params.Height
	s.info.SampleRate, s.info.Channels = params.SampleRate, params.Channels
	s.info.ChannelLayout = media.DefaultChannelLayout(params.Channels)
	s.resolved = true
}

// ReadPacket returns the next PES of a discovered stream, or io.EOF.
func (d *Demuxer) ReadPacket(ctx context.Context) (*media.Packet, error) {
	if len(d.probed) > 0 {
		p := d.probed[0]
		d.probed[0] = nil
		d.probed = d.probed[1:]
		return p, nil
	}
	for {
		u, err := d.next(ctx)
		if err != nil {
			if d.closed.Load() && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("tsdemux: %w", media.ErrClosed)
			}
			return nil, err
		}
		if u.PES == nil {
			continue
		}
		if p := d.packet(u); p != nil {
			return p, nil
		}
	}
}

// ReleasePacket returns p to the pool.
func (d *Demuxer) ReleasePacket(p *media.Packet) {
	*p = media.Packet{}
	d.pool.Put(p)
}

func (d *Demuxer) next(ctx context.Context) (*mpegts.Unit, error) {
	u, err := d.r.Next(ctx)
	d.statsMu.Lock()
	d.stats = d.r.Stats()
	d.statsMu.Unlock()
	return u, err
}

func (d *Demuxer) packet(u *mpegts.Unit) *media.Packet {
	s, ok := d.byPID[u.PID]
	if !ok {
		return nil
	}
	pes := u.PES
	p := d.pool.Get().(*media.Packet)
	p.Class = s.info.Class
	p.StreamIndex = s.info.Index
	p.Data = pes.Data
	p.PTS, p.DTS = media.NoTimestamp, media.NoTimestamp
	if pes.HasPTS {
		p.PTS, p.DTS = pes.PTS, pes.PTS
	}
	if pes.HasDTS {
		p.DTS = pes.DTS
	}
	p.Keyframe = codec.IsKeyframe(s.info.Codec, pes.Data)
	return p
}

// Stats returns the transport stream counters seen so far.
func (d *Demuxer) Stats() mpegts.Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

// BytesRead returns the number of input bytes consumed.
func (d *Demuxer) BytesRead() int64 {
	return d.src.n.Load()
}

// Close closes the underlying stream.
func (d *Demuxer) Close() error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		d.closeErr = d.closer.Close()
	})
	return d.closeErr
}
