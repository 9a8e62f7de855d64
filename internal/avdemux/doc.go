// Package avdemux is a demuxing library backed by FFmpeg through go-astiav.
// It accepts anything libavformat can open (RTSP, RTMP, HLS, SRT, any
// container) and is built only with the astiav build tag, since it needs
// the FFmpeg shared libraries at link time.
package avdemux
