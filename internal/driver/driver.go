// Package driver runs the decoder-side loop: it pulls access units from a
// packet source and hands them to a sink, reloading the source on request
// or, when looping, at end of data.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zsiec/austream/internal/logging"
	"github.com/zsiec/austream/internal/source"
)

// Options configures a Driver.
type Options struct {
	// Loop reloads the source when it reports its last unit instead of
	// returning.
	Loop bool
	Log  *slog.Logger
}

// ErrEmptySource is returned when a looping source reaches its end
// without having produced a unit since the last reload.
var ErrEmptySource = errors.New("driver: source produced no data")

// Stats are the driver counters.
type Stats struct {
	Units      int64
	Bytes      int64
	EmptyPolls int64
	Reloads    int64
	LastUnitAt time.Time
}

// Driver feeds the units of one source to a sink. Write errors on the sink
// end the run.
type Driver struct {
	src  source.PacketSource
	sink io.Writer
	opts Options
	log  *slog.Logger

	reload chan struct{}

	units      atomic.Int64
	bytes      atomic.Int64
	emptyPolls atomic.Int64
	reloads    atomic.Int64
	lastUnitAt atomic.Int64
}

// New returns a Driver reading src and writing units to sink. A nil sink
// discards the units.
func New(src source.PacketSource, sink io.Writer, opts Options) *Driver {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = io.Discard
	}
	return &Driver{
		src:    src,
		sink:   sink,
		opts:   opts,
		log:    log.With("component", "driver"),
		reload: make(chan struct{}, 1),
	}
}

// RequestReload asks the running loop to reload the source before its next
// unit. Requests made while one is pending are merged.
func (d *Driver) RequestReload() {
	select {
	case d.reload <- struct{}{}:
	default:
	}
}

// Run loops until ctx is cancelled, the source fails, or, without Loop, the
// source reports its last unit. Cancellation is not an error.
func (d *Driver) Run(ctx context.Context) error {
	d.log.Debug("driver started", "loop", d.opts.Loop)
	defer d.log.Debug("driver stopped", "units", d.units.Load())

	sinceReload := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.reload:
			if err := d.doReload(ctx); err != nil {
				return err
			}
			sinceReload = 0
		default:
		}

		unit, last, err := d.src.NextUnit(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return fmt.Errorf("driver: next unit: %w", err)
		}

		if len(unit) == 0 {
			d.emptyPolls.Add(1)
		} else {
			if _, err := d.sink.Write(unit); err != nil {
				return fmt.Errorf("driver: write unit: %w", err)
			}
			d.units.Add(1)
			sinceReload++
			d.bytes.Add(int64(len(unit)))
			d.lastUnitAt.Store(time.Now().UnixNano())
			logging.Trace(d.log, "unit", "size", len(unit), "last", last)
		}

		if last {
			if !d.opts.Loop {
				d.log.Info("end of source", "units", d.units.Load())
				return nil
			}
			if sinceReload == 0 {
				return ErrEmptySource
			}
			if err := d.doReload(ctx); err != nil {
				return err
			}
			sinceReload = 0
		}
	}
}

func (d *Driver) doReload(ctx context.Context) error {
	if err := d.src.Reload(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("driver: reload: %w", err)
	}
	d.reloads.Add(1)
	d.log.Debug("source reloaded", "reloads", d.reloads.Load())
	return nil
}

// Stats returns a snapshot of the driver counters.
func (d *Driver) Stats() Stats {
	s := Stats{
		Units:      d.units.Load(),
		Bytes:      d.bytes.Load(),
		EmptyPolls: d.emptyPolls.Load(),
		Reloads:    d.reloads.Load(),
	}
	if ns := d.lastUnitAt.Load(); ns != 0 {
		s.LastUnitAt = time.Unix(0, ns)
	}
	return s
}
