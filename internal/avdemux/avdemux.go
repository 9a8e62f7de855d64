//go:build astiav

package avdemux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/zsiec/austream/internal/media"
	"github.com/zsiec/austream/internal/puller"
)

var timeBase90k = astiav.NewRational(1, 90000)

// Options configures a Library.
type Options struct {
	// ProbeSize is passed to libavformat as the probesize option.
	ProbeSize int64
	// InputOptions are extra libavformat options such as rtsp_transport.
	InputOptions map[string]string
	Log          *slog.Logger
}

// Library opens sources with libavformat.
type Library struct {
	opts Options
	log  *slog.Logger
}

var _ puller.Library = (*Library)(nil)

// New returns a Library and routes FFmpeg log lines to the logger.
func New(opts Options) *Library {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "avdemux")
	installLogCallback(log)
	return &Library{opts: opts, log: log}
}

var logOnce sync.Once

func installLogCallback(log *slog.Logger) {
	logOnce.Do(func() {
		astiav.SetLogLevel(astiav.LogLevelWarning)
		astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, _, msg string) {
			msg = strings.TrimSpace(msg)
			if msg == "" {
				return
			}
			if c != nil {
				if cl := c.Class(); cl != nil {
					msg += ": " + cl.String()
				}
			}
			switch l {
			case astiav.LogLevelError, astiav.LogLevelFatal, astiav.LogLevelPanic:
				log.Error("libav: " + msg)
			case astiav.LogLevelWarning:
				log.Warn("libav: " + msg)
			case astiav.LogLevelInfo:
				log.Info("libav: " + msg)
			default:
				log.Debug("libav: " + msg)
			}
		})
	})
}

// Demuxer is one opened libavformat input.
type Demuxer struct {
	c    *astikit.Closer
	fc   *astiav.FormatContext
	ii   astiav.IOInterrupter
	pkt  *astiav.Packet
	log  *slog.Logger
	pool sync.Pool

	// ioMu is held across every libavformat call so Close never frees the
	// format context under a read.
	ioMu     sync.Mutex
	streams  []*astiav.Stream
	probed   bool
	closed   atomic.Bool
	closeErr error
}

var _ puller.Demuxer = (*Demuxer)(nil)

// Open opens uri. Cancelling ctx interrupts a blocking open.
func (l *Library) Open(ctx context.Context, uri string) (puller.Demuxer, error) {
	d := &Demuxer{
		c:   astikit.NewCloser(),
		fc:  astiav.AllocFormatContext(),
		log: l.log.With("uri", uri),
	}
	if d.fc == nil {
		return nil, fmt.Errorf("avdemux: allocating format context: %w", media.ErrSourceUnavailable)
	}
	d.pool.New = func() any { return new(media.Packet) }
	d.c.Add(d.fc.Free)
	d.ii = d.fc.SetInterruptCallback()

	dict := astiav.NewDictionary()
	defer dict.Free()
	if l.opts.ProbeSize > 0 {
		dict.Set("probesize", strconv.FormatInt(l.opts.ProbeSize, 10), 0)
	}
	for k, v := range l.opts.InputOptions {
		dict.Set(k, v, 0)
	}

	stop := context.AfterFunc(ctx, d.ii.Interrupt)
	defer stop()

	if err := d.fc.OpenInput(uri, nil, dict); err != nil {
		d.c.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, fmt.Errorf("avdemux: opening %s: %w: %w", uri, media.ErrSourceUnavailable, err)
	}
	d.c.Add(d.fc.CloseInput)

	d.pkt = astiav.AllocPacket()
	d.c.Add(d.pkt.Free)
	return d, nil
}

// Streams runs stream discovery once and reports every stream.
func (d *Demuxer) Streams(ctx context.Context) ([]media.StreamInfo, error) {
	d.ioMu.Lock()
	defer d.ioMu.Unlock()
	if d.closed.Load() {
		return nil, fmt.Errorf("avdemux: %w", media.ErrClosed)
	}
	if !d.probed {
		stop := context.AfterFunc(ctx, d.ii.Interrupt)
		err := d.fc.FindStreamInfo(nil)
		stop()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return nil, fmt.Errorf("avdemux: finding stream info: %w: %w", media.ErrNoStreamInfo, err)
		}
		d.streams = d.fc.Streams()
		d.probed = true
	}

	infos := make([]media.StreamInfo, 0, len(d.streams))
	for _, s := range d.streams {
		infos = append(infos, streamInfo(s))
	}
	return infos, nil
}

func streamInfo(s *astiav.Stream) media.StreamInfo {
	cp := s.CodecParameters()
	id := codecID(cp.CodecID())
	info := media.StreamInfo{
		Index:   s.Index(),
		Class:   class(cp.MediaType()),
		Codec:   id,
		BitRate: cp.BitRate(),
	}
	switch info.Class {
	case media.ClassVideo:
		info.Width, info.Height = cp.Width(), cp.Height()
	case media.ClassAudio:
		info.SampleRate = cp.SampleRate()
		l := cp.ChannelLayout()
		info.Channels = l.NbChannels()
		info.ChannelLayout = channelLayout(l)
	}
	return info
}

var knownLayouts = []struct {
	av   astiav.ChannelLayout
	mask media.ChannelLayout
}{
	{astiav.ChannelLayoutMono, media.LayoutMono},
	{astiav.ChannelLayoutStereo, media.LayoutStereo},
	{astiav.ChannelLayout2Point1, media.LayoutStereo | media.ChLowFrequency},
	{astiav.ChannelLayout21, media.LayoutStereo | media.ChBackCenter},
	{astiav.ChannelLayoutSurround, media.LayoutSurround},
	{astiav.ChannelLayout3Point1, media.LayoutSurround | media.ChLowFrequency},
	{astiav.ChannelLayout4Point0, media.Layout4Point0},
	{astiav.ChannelLayout4Point1, media.Layout4Point0 | media.ChLowFrequency},
	{astiav.ChannelLayout22, media.LayoutStereo | media.ChSideLeft | media.ChSideRight},
	{astiav.ChannelLayoutQuad, media.LayoutStereo | media.ChBackLeft | media.ChBackRight},
	{astiav.ChannelLayout5Point0, media.LayoutSurround | media.ChSideLeft | media.ChSideRight},
	{astiav.ChannelLayout5Point1, media.LayoutSurround | media.ChSideLeft | media.ChSideRight | media.ChLowFrequency},
	{astiav.ChannelLayout5Point0Back, media.Layout5Point0},
	{astiav.ChannelLayout5Point1Back, media.Layout5Point1},
	{astiav.ChannelLayout6Point0, media.LayoutSurround | media.ChSideLeft | media.ChSideRight | media.ChBackCenter},
	{astiav.ChannelLayoutHexagonal, media.Layout5Point0 | media.ChBackCenter},
	{astiav.ChannelLayout6Point1, media.LayoutSurround | media.ChSideLeft | media.ChSideRight | media.ChLowFrequency | media.ChBackCenter},
	{astiav.ChannelLayout6Point1Back, media.Layout5Point1 | media.ChBackCenter},
	{astiav.ChannelLayout7Point0, media.Layout5Point0 | media.ChSideLeft | media.ChSideRight},
	{astiav.ChannelLayout7Point1, media.Layout7Point1},
}

// channelLayout maps the stream's own layout onto a speaker mask. Layouts
// with positions media does not name fall back to the count's default.
func channelLayout(l astiav.ChannelLayout) media.ChannelLayout {
	for _, k := range knownLayouts {
		if l.Equal(k.av) {
			return k.mask
		}
	}
	return media.DefaultChannelLayout(l.NbChannels())
}

// ReadPacket reads the next packet. Timestamps are rescaled to 90 kHz.
func (d *Demuxer) ReadPacket(ctx context.Context) (*media.Packet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.ioMu.Lock()
	defer d.ioMu.Unlock()
	if d.closed.Load() {
		return nil, fmt.Errorf("avdemux: %w", media.ErrClosed)
	}
	stop := context.AfterFunc(ctx, d.ii.Interrupt)
	defer stop()

	if err := d.fc.ReadFrame(d.pkt); err != nil {
		switch {
		case errors.Is(err, astiav.ErrEof):
			return nil, io.EOF
		case d.closed.Load():
			return nil, fmt.Errorf("avdemux: %w", media.ErrClosed)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("avdemux: reading frame: %w", err)
	}
	defer d.pkt.Unref()

	idx := d.pkt.StreamIndex()
	p := d.pool.Get().(*media.Packet)
	p.StreamIndex = idx
	p.Data = d.pkt.Data()
	p.Keyframe = d.pkt.Flags().Has(astiav.PacketFlagKey)
	p.PTS, p.DTS = media.NoTimestamp, media.NoTimestamp
	if idx >= 0 && idx < len(d.streams) {
		tb := d.streams[idx].TimeBase()
		p.Class = class(d.streams[idx].CodecParameters().MediaType())
		if pts := d.pkt.Pts(); pts != astiav.NoPtsValue {
			p.PTS = astiav.RescaleQ(pts, tb, timeBase90k)
		}
		if dts := d.pkt.Dts(); dts != astiav.NoPtsValue {
			p.DTS = astiav.RescaleQ(dts, tb, timeBase90k)
		}
	}
	return p, nil
}

// ReleasePacket returns p to the pool.
func (d *Demuxer) ReleasePacket(p *media.Packet) {
	*p = media.Packet{}
	d.pool.Put(p)
}

// Close interrupts pending I/O, waits for it to return and frees the FFmpeg
// resources.
func (d *Demuxer) Close() error {
	if d.closed.Swap(true) {
		d.ioMu.Lock()
		defer d.ioMu.Unlock()
		return d.closeErr
	}
	d.ii.Interrupt()
	d.ioMu.Lock()
	defer d.ioMu.Unlock()
	d.closeErr = d.c.Close()
	return d.closeErr
}

func class(t astiav.MediaType) media.StreamClass {
	switch t {
	case astiav.MediaTypeVideo:
		return media.ClassVideo
	case astiav.MediaTypeAudio:
		return media.ClassAudio
	}
	return media.ClassOther
}

func codecID(id astiav.CodecID) media.CodecID {
	switch id {
	case astiav.CodecIDH264:
		return media.CodecH264
	case astiav.CodecIDHevc:
		return media.CodecH265
	case astiav.CodecIDMpeg2Video:
		return media.CodecMPEG2Video
	case astiav.CodecIDMpeg1Video:
		return media.CodecMPEG1Video
	case astiav.CodecIDAac:
		return media.CodecAAC
	case astiav.CodecIDAacLatm:
		return media.CodecAACLATM
	case astiav.CodecIDMp3:
		return media.CodecMP3
	case astiav.CodecIDMp2:
		return media.CodecMP2
	case astiav.CodecIDAc3:
		return media.CodecAC3
	case astiav.CodecIDEac3:
		return media.CodecEAC3
	case astiav.CodecIDOpus:
		return media.CodecOpus
	case astiav.CodecIDNone:
		return media.CodecNone
	}
	return media.CodecUnknown
}
