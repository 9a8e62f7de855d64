package mpegts

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
)

// Reader pulls units out of a transport stream. It is not safe for
// concurrent use.
type Reader struct {
	r   *bufio.Reader
	log *slog.Logger
	buf []byte

	asm     *assemblers
	pending []*Unit
	eof     bool

	// lostSync is set until a sync byte has been confirmed by the one a
	// packet later. Sync bytes at the expected boundary are taken as is.
	lostSync bool

	stats Stats
}

// Stats counts what a Reader has seen so far.
type Stats struct {
	Packets          int64
	ResyncBytes      int64
	ContinuityErrors int64
	SectionErrors    int64
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithLogger sets the logger used for resync and section diagnostics.
func WithLogger(log *slog.Logger) ReaderOption {
	return func(r *Reader) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReader returns a Reader consuming 188-byte packets from r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{
		r:   bufio.NewReaderSize(r, 64*PacketSize),
		log: slog.Default(),
		buf: make([]byte, PacketSize),
		asm: newAssemblers(),

		lostSync: true,
	}
	for _, opt := range opts {
		opt(rd)
	}
	rd.log = rd.log.With("component", "mpegts")
	return rd
}

// Stats returns a snapshot of the reader counters.
func (r *Reader) Stats() Stats {
	s := r.stats
	s.ContinuityErrors = int64(r.asm.continuityErrors())
	return s
}

// Next returns the next unit. Partial units still buffered at end of input
// are returned before io.EOF.
func (r *Reader) Next(ctx context.Context) (*Unit, error) {
	for {
		if len(r.pending) > 0 {
			u := r.pending[0]
			r.pending = r.pending[1:]
			return u, nil
		}
		if r.eof {
			return nil, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pkt, err := r.readPacket()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				r.eof = true
				r.drain()
				continue
			}
			return nil, err
		}
		r.stats.Packets++
		if pkt.Header.PID == PIDNull {
			continue
		}

		if pu := r.asm.push(pkt); pu != nil {
			r.pending = append(r.pending, r.parse(pu)...)
		}
	}
}

// readPacket reads one aligned packet, scanning forward to the next sync
// byte when alignment is lost.
func (r *Reader) readPacket() (*Packet, error) {
	skipped := 0
	for {
		if _, err := io.ReadFull(r.r, r.buf[:1]); err != nil {
			return nil, err
		}
		if r.buf[0] == syncByte && (!r.lostSync || r.aligned()) {
			break
		}
		r.lostSync = true
		skipped++
	}
	r.lostSync = false
	if skipped > 0 {
		r.stats.ResyncBytes += int64(skipped)
		r.log.Debug("resynchronized", "skipped_bytes", skipped)
	}
	if _, err := io.ReadFull(r.r, r.buf[1:]); err != nil {
		return nil, err
	}
	return parsePacket(r.buf)
}

// aligned reports whether the byte after the current candidate packet is a
// sync byte too, or whether the input ends there.
func (r *Reader) aligned() bool {
	next, err := r.r.Peek(PacketSize)
	if err != nil {
		// Short tail: accept the candidate, ReadFull reports truncation.
		return true
	}
	return next[PacketSize-1] == syncByte
}

func (r *Reader) drain() {
	for _, pu := range r.asm.drain() {
		r.pending = append(r.pending, r.parse(pu)...)
	}
}

func (r *Reader) parse(pu *pendingUnit) []*Unit {
	pid := pu.first.Header.PID
	if r.asm.isPSI(pid) {
		units, err := parseSections(pid, pu.payload)
		if err != nil {
			r.stats.SectionErrors++
			r.log.Debug("dropping PSI section", "pid", pid, "error", err)
		}
		for _, u := range units {
			if u.PAT != nil {
				for _, p := range u.PAT.Programs {
					r.asm.markPSI(p.PMTPID)
				}
			}
		}
		return units
	}

	if !isPESStart(pu.payload) {
		return nil
	}
	pes, err := parsePES(pu.payload)
	if err != nil {
		r.log.Debug("dropping PES", "pid", pid, "error", err)
		return nil
	}
	return []*Unit{{PID: pid, PES: pes}}
}
