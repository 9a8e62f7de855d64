// Package puller runs the background loop that pulls demuxed packets from a
// live source and hands them to a Handler by stream class.
package puller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zsiec/austream/internal/logging"
	"github.com/zsiec/austream/internal/media"
)

// Options configures a Puller.
type Options struct {
	Library Library
	Handler Handler
	Log     *slog.Logger
}

// Stats holds received-packet counters. They reset on Prepare and keep
// counting across Stop and Start.
type Stats struct {
	VideoPackets int64
	AudioPackets int64
	OtherPackets int64
	VideoBytes   int64
	AudioBytes   int64
}

// Puller owns one demuxer handle and the goroutine that drains it.
type Puller struct {
	lib     Library
	handler Handler
	log     *slog.Logger

	mu     sync.Mutex
	state  State
	uri    string
	dmx    Demuxer
	md     media.Metadata
	done   chan struct{}
	cancel context.CancelFunc
	err    error

	// running is the loop's continue flag; stopped is set once the loop has
	// exited and cleared by Start.
	running atomic.Bool
	stopped atomic.Bool

	videoPackets atomic.Int64
	audioPackets atomic.Int64
	otherPackets atomic.Int64
	videoBytes   atomic.Int64
	audioBytes   atomic.Int64
}

// New returns an idle Puller.
func New(opts Options) *Puller {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	p := &Puller{
		lib:     opts.Library,
		handler: opts.Handler,
		log:     log.With("component", "puller"),
	}
	p.stopped.Store(true)
	return p
}

// Prepare opens uri, resolves its streams and selects one video and one
// audio stream. Either may be absent. Prepare is allowed from Idle and from
// Ready (reconnect); on failure the puller is left Idle with no handle.
func (p *Puller) Prepare(ctx context.Context, uri string) error {
	if uri == "" {
		return fmt.Errorf("puller: prepare: empty source identifier: %w", media.ErrInvalidArgument)
	}
	if p.lib == nil {
		return fmt.Errorf("puller: prepare: no demuxing library: %w", media.ErrInvalidArgument)
	}

	p.mu.Lock()
	switch p.state {
	case StateIdle, StateReady:
	case StateClosed:
		p.mu.Unlock()
		return fmt.Errorf("puller: prepare: %w", media.ErrClosed)
	default:
		st := p.state
		p.mu.Unlock()
		return fmt.Errorf("puller: prepare while %s: %w", st, media.ErrInvalidState)
	}
	old := p.dmx
	p.dmx = nil
	p.md = media.Metadata{}
	p.state = StatePreparing
	p.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			p.log.Debug("closing previous source", "error", err)
		}
	}
	p.log.Debug("preparing", "uri", uri)

	dmx, md, err := p.open(ctx, uri)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePreparing {
		// Closed concurrently.
		if dmx != nil {
			dmx.Close()
		}
		return fmt.Errorf("puller: prepare: %w", media.ErrClosed)
	}
	if err != nil {
		p.state = StateIdle
		return err
	}

	p.uri = uri
	p.dmx = dmx
	p.md = md
	p.err = nil
	p.state = StateReady
	p.resetCounters()
	p.log.Debug("prepared",
		"uri", uri,
		"video", md.HasVideo, "video_codec", md.VideoCodec, "width", md.Width, "height", md.Height,
		"audio", md.HasAudio, "audio_codec", md.AudioCodec, "channels", md.Channels,
		"layout", md.ChannelLayout, "sample_rate", md.SampleRate)
	return nil
}

func (p *Puller) open(ctx context.Context, uri string) (Demuxer, media.Metadata, error) {
	dmx, err := p.lib.Open(ctx, uri)
	if err != nil {
		return nil, media.Metadata{}, classify(fmt.Errorf("puller: open %s: %w", uri, err), media.ErrSourceUnavailable)
	}

	streams, err := dmx.Streams(ctx)
	if err != nil {
		dmx.Close()
		return nil, media.Metadata{}, classify(fmt.Errorf("puller: stream info for %s: %w", uri, err), media.ErrNoStreamInfo)
	}

	md := media.SelectStreams(streams)
	if !md.HasVideo && !md.HasAudio {
		dmx.Close()
		return nil, media.Metadata{}, fmt.Errorf("puller: %s has %d streams, none audio or video: %w", uri, len(streams), media.ErrNoUsableStream)
	}
	return dmx, md, nil
}

// classify wraps err with kind unless it already carries a taxonomy error.
func classify(err, kind error) error {
	for _, k := range []error{
		media.ErrInvalidArgument, media.ErrSourceUnavailable, media.ErrNoStreamInfo,
		media.ErrNoUsableStream, media.ErrClosed,
	} {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func (p *Puller) resetCounters() {
	p.videoPackets.Store(0)
	p.audioPackets.Store(0)
	p.otherPackets.Store(0)
	p.videoBytes.Store(0)
	p.audioBytes.Store(0)
}

// Start launches the pull loop. It does nothing unless the puller is Ready,
// which also means a previous loop has fully exited.
func (p *Puller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateReady {
		p.log.Debug("start ignored", "state", p.state)
		return
	}

	p.running.Store(true)
	p.stopped.Store(false)
	p.done = make(chan struct{})
	p.state = StateRunning
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.log.Debug("starting pull loop", "uri", p.uri)
	go p.loop(ctx, p.dmx, p.md, p.done)
}

// Stop asks the loop to exit after its current read and returns at once.
// Use IsStopped, Done or WaitStopped to observe quiescence.
func (p *Puller) Stop() {
	p.running.Store(false)
	p.mu.Lock()
	if p.state == StateRunning {
		p.state = StateStopping
		p.log.Debug("stop requested")
	}
	p.mu.Unlock()
}

// IsStopped reports whether no pull loop is running.
func (p *Puller) IsStopped() bool {
	return p.stopped.Load()
}

// Done returns a channel closed when the current loop exits. Before the
// first Start it returns a closed channel.
func (p *Puller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.done
}

// WaitStopped blocks until the loop has exited or ctx is done.
func (p *Puller) WaitStopped(ctx context.Context) error {
	select {
	case <-p.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Puller) loop(ctx context.Context, dmx Demuxer, md media.Metadata, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		if p.state == StateRunning || p.state == StateStopping {
			p.state = StateReady
		}
		p.stopped.Store(true)
		p.mu.Unlock()
		close(done)
		p.log.Debug("pull loop exited")
	}()

	for p.running.Load() {
		pkt, err := dmx.ReadPacket(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				p.log.Debug("end of stream")
			case ctx.Err() != nil:
				p.log.Debug("pull loop cancelled")
			default:
				p.log.Debug("read failed, ending pull loop", "error", err)
				p.setErr(err)
			}
			return
		}
		if !p.running.Load() {
			dmx.ReleasePacket(pkt)
			return
		}
		p.dispatch(md, pkt)
		dmx.ReleasePacket(pkt)
	}
}

func (p *Puller) dispatch(md media.Metadata, pkt *media.Packet) {
	pkt.Class = md.Classify(pkt.StreamIndex)
	logging.Trace(p.log, "packet", "class", pkt.Class, "stream", pkt.StreamIndex,
		"size", len(pkt.Data), "pts", pkt.PTS, "keyframe", pkt.Keyframe)
	switch pkt.Class {
	case media.ClassVideo:
		p.videoPackets.Add(1)
		p.videoBytes.Add(int64(len(pkt.Data)))
		if p.handler != nil {
			p.handler.OnVideoPacket(pkt)
		}
	case media.ClassAudio:
		p.audioPackets.Add(1)
		p.audioBytes.Add(int64(len(pkt.Data)))
		if p.handler != nil {
			p.handler.OnAudioPacket(pkt)
		}
	default:
		p.otherPackets.Add(1)
	}
}

func (p *Puller) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Err returns the error that ended the last loop, or nil when it ended on
// end of stream or Stop.
func (p *Puller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// State returns the current lifecycle state.
func (p *Puller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Metadata returns the selected stream metadata. ok is false until a
// Prepare has succeeded.
func (p *Puller) Metadata() (md media.Metadata, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateReady, StateRunning, StateStopping:
		return p.md, true
	}
	return media.Metadata{}, false
}

// Stats returns a snapshot of the received counters.
func (p *Puller) Stats() Stats {
	return Stats{
		VideoPackets: p.videoPackets.Load(),
		AudioPackets: p.audioPackets.Load(),
		OtherPackets: p.otherPackets.Load(),
		VideoBytes:   p.videoBytes.Load(),
		AudioBytes:   p.audioBytes.Load(),
	}
}

// Close stops the loop, closes the source handle and waits for the loop to
// exit. The puller cannot be used afterwards.
func (p *Puller) Close() error {
	p.running.Store(false)

	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return nil
	}
	p.state = StateClosed
	dmx, done, cancel := p.dmx, p.done, p.cancel
	p.dmx = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if dmx != nil {
		// Closing the handle unblocks a loop parked in ReadPacket.
		err = dmx.Close()
	}
	if done != nil {
		<-done
	}
	p.stopped.Store(true)
	p.log.Debug("closed")
	return err
}
