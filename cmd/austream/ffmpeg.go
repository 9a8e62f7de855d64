//go:build astiav

package main

import (
	"log/slog"

	"github.com/zsiec/austream/internal/avdemux"
	"github.com/zsiec/austream/internal/config"
	"github.com/zsiec/austream/internal/puller"
)

func newFFmpegLibrary(cfg config.Config, log *slog.Logger) (puller.Library, error) {
	return avdemux.New(avdemux.Options{ProbeSize: cfg.ProbeSize, Log: log}), nil
}
