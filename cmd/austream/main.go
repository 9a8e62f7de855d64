package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/austream/internal/certs"
	"github.com/zsiec/austream/internal/config"
	"github.com/zsiec/austream/internal/driver"
	"github.com/zsiec/austream/internal/logging"
	"github.com/zsiec/austream/internal/metrics"
	"github.com/zsiec/austream/internal/puller"
	"github.com/zsiec/austream/internal/source"
	"github.com/zsiec/austream/internal/transport"
	"github.com/zsiec/austream/internal/tsdemux"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("austream failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lib, err := newLibrary(cfg, log)
	if err != nil {
		return err
	}

	slog.Info("austream starting",
		"version", version,
		"input", cfg.Input,
		"live", source.IsLive(cfg.Input),
		"backend", cfg.LiveBackend,
	)

	src, err := source.Open(ctx, cfg.Input, source.Options{
		Library:       lib.Library,
		ChunkSize:     cfg.ChunkSize,
		QueueCapacity: cfg.QueueCapacity,
		PollWait:      cfg.PollWait,
		ReloadTimeout: cfg.ReloadTimeout,
		Log:           log,
	})
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer src.Close()
	if live, ok := src.(*source.Live); ok {
		md := live.Metadata()
		slog.Info("live source ready",
			"video", md.VideoCodec, "width", md.Width, "height", md.Height,
			"audio", md.AudioCodec, "sample_rate", md.SampleRate, "layout", md.ChannelLayout,
		)
	}

	sink, closeSink, err := openSink(cfg.Output)
	if err != nil {
		return err
	}
	defer closeSink()

	d := driver.New(src, sink, driver.Options{Loop: cfg.Loop, Log: log})

	g, ctx := errgroup.WithContext(ctx)
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g.Go(func() error {
		// The input ending ends the process.
		defer stop()
		return d.Run(ctx)
	})

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				slog.Info("received SIGHUP, reloading source")
				d.RequestReload()
			}
		}
	})

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			metrics.NewCollector(sources(src, lib, d)),
		)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			slog.Info("metrics server listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	st := d.Stats()
	slog.Info("austream stopped", "units", st.Units, "bytes", st.Bytes, "reloads", st.Reloads)
	return err
}

// library is the live demuxing backend plus its optional statistics.
type library struct {
	Library        puller.Library
	transportStats func() (transport.Stats, bool)
	demuxStats     func() (tsdemux.Stats, bool)
}

func newLibrary(cfg config.Config, log *slog.Logger) (library, error) {
	var lib library
	switch cfg.LiveBackend {
	case config.BackendFFmpeg:
		l, err := newFFmpegLibrary(cfg, log)
		if err != nil {
			return lib, err
		}
		lib.Library = l
	default:
		topts := transport.Options{Log: log}
		if cfg.QUICFingerprint != "" {
			fp, err := certs.ParseFingerprint(cfg.QUICFingerprint)
			if err != nil {
				return lib, fmt.Errorf("QUIC_FINGERPRINT: %w", err)
			}
			topts.QUICFingerprint = fp
		}
		l := tsdemux.New(tsdemux.Options{ProbeSize: cfg.ProbeSize, Transport: topts, Log: log})
		lib.Library = l
		lib.transportStats = l.TransportStats
		lib.demuxStats = l.DemuxStats
	}
	return lib, nil
}

func sources(src source.PacketSource, lib library, d *driver.Driver) metrics.Sources {
	s := metrics.Sources{
		Transport: lib.transportStats,
		Demux:     lib.demuxStats,
		Driver:    d.Stats,
	}
	switch v := src.(type) {
	case *source.Live:
		s.Live = func() (source.LiveStats, bool) { return v.Stats(), true }
	case *source.File:
		s.File = func() (source.FileStats, bool) { return v.Stats(), true }
	}
	return s
}

func openSink(path string) (io.Writer, func() error, error) {
	switch path {
	case "":
		return io.Discard, func() error { return nil }, nil
	case "-":
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
