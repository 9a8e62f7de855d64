//go:build !astiav

package main

import (
	"errors"
	"log/slog"

	"github.com/zsiec/austream/internal/config"
	"github.com/zsiec/austream/internal/puller"
)

func newFFmpegLibrary(config.Config, *slog.Logger) (puller.Library, error) {
	return nil, errors.New("LIVE_BACKEND=ffmpeg requires a build with -tags astiav")
}
