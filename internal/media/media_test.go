package media

import "testing"

func TestSelectStreams(t *testing.T) {
	t.Parallel()

	streams := []StreamInfo{
		{Index: 0, Class: ClassOther, Codec: CodecUnknown},
		{Index: 1, Class: ClassVideo, Codec: CodecH264, Width: 1920, Height: 1080},
		{Index: 2, Class: ClassAudio, Codec: CodecAAC, Channels: 2, SampleRate: 48000},
		{Index: 3, Class: ClassVideo, Codec: CodecH265, Width: 640, Height: 360},
		{Index: 4, Class: ClassAudio, Codec: CodecAC3, Channels: 6, SampleRate: 44100},
	}

	md := SelectStreams(streams)
	if !md.HasVideo || md.VideoStream != 1 || md.VideoCodec != CodecH264 {
		t.Errorf("video selection = %+v, want stream 1 h264", md)
	}
	if md.Width != 1920 || md.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", md.Width, md.Height)
	}
	if !md.HasAudio || md.AudioStream != 2 || md.AudioCodec != CodecAAC {
		t.Errorf("audio selection = %+v, want stream 2 aac", md)
	}
	if md.ChannelLayout != LayoutStereo {
		t.Errorf("ChannelLayout = %v, want stereo", md.ChannelLayout)
	}

	if got := md.Classify(1); got != ClassVideo {
		t.Errorf("Classify(1) = %v, want video", got)
	}
	if got := md.Classify(3); got != ClassOther {
		t.Errorf("Classify(3) = %v, want other (second video stream is ignored)", got)
	}
}

func TestSelectStreamsPartial(t *testing.T) {
	t.Parallel()

	md := SelectStreams([]StreamInfo{{Index: 0, Class: ClassAudio, Codec: CodecAAC, Channels: 1}})
	if md.HasVideo {
		t.Error("HasVideo = true for audio-only input")
	}
	if md.VideoStream != -1 {
		t.Errorf("VideoStream = %d, want -1", md.VideoStream)
	}
	if md.Classify(-1) != ClassOther {
		t.Error("index -1 must not classify as video when no video stream exists")
	}
	if md.ChannelLayout != LayoutMono {
		t.Errorf("ChannelLayout = %v, want mono", md.ChannelLayout)
	}
}

func TestChannelLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		channels int
		want     string
	}{
		{1, "mono"},
		{2, "stereo"},
		{6, "5.1(back)"},
		{8, "7.1"},
		{7, "unknown"},
	}
	for _, tc := range tests {
		l := DefaultChannelLayout(tc.channels)
		if l.String() != tc.want {
			t.Errorf("DefaultChannelLayout(%d) = %q, want %q", tc.channels, l, tc.want)
		}
		if l != 0 && l.Channels() != tc.channels {
			t.Errorf("DefaultChannelLayout(%d).Channels() = %d", tc.channels, l.Channels())
		}
	}
}

func TestPacketClone(t *testing.T) {
	t.Parallel()

	p := &Packet{Class: ClassVideo, Data: []byte{1, 2, 3}}
	c := p.Clone()
	p.Data[0] = 9
	if c.Data[0] != 1 {
		t.Error("Clone shares payload with the original")
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestCodecClass(t *testing.T) {
	t.Parallel()

	if CodecH265.Class() != ClassVideo {
		t.Error("hevc should be video")
	}
	if CodecOpus.Class() != ClassAudio {
		t.Error("opus should be audio")
	}
	if CodecUnknown.String() != "unknown" || CodecID(99).String() != "unknown" {
		t.Error("unknown codec names")
	}
}
