package media

// StreamInfo describes one elementary stream discovered in a source.
// Dimension fields are set for video, sample fields for audio; either may be
// zero when the container did not expose them within the probe window.
type StreamInfo struct {
	Index         int
	Class         StreamClass
	Codec         CodecID
	Width         int
	Height        int
	Channels      int
	ChannelLayout ChannelLayout
	SampleRate    int
	BitRate       int64
}

// Metadata is the codec information of the one video and one audio stream
// selected from a source. It is resolved once during preparation and never
// changes for the lifetime of that source.
type Metadata struct {
	HasVideo    bool
	VideoStream int
	VideoCodec  CodecID
	Width       int
	Height      int

	HasAudio      bool
	AudioStream   int
	AudioCodec    CodecID
	Channels      int
	ChannelLayout ChannelLayout
	SampleRate    int
}

// SelectStreams picks the first video and the first audio stream from
// streams, ignoring any further stream of an already selected class.
func SelectStreams(streams []StreamInfo) Metadata {
	md := Metadata{VideoStream: -1, AudioStream: -1}
	for _, s := range streams {
		switch s.Class {
		case ClassVideo:
			if md.HasVideo {
				continue
			}
			md.HasVideo = true
			md.VideoStream = s.Index
			md.VideoCodec = s.Codec
			md.Width = s.Width
			md.Height = s.Height
		case ClassAudio:
			if md.HasAudio {
				continue
			}
			md.HasAudio = true
			md.AudioStream = s.Index
			md.AudioCodec = s.Codec
			md.Channels = s.Channels
			md.ChannelLayout = s.ChannelLayout
			if md.ChannelLayout == 0 {
				md.ChannelLayout = DefaultChannelLayout(s.Channels)
			}
			md.SampleRate = s.SampleRate
		}
		if md.HasVideo && md.HasAudio {
			break
		}
	}
	return md
}

// Classify returns the class of the stream at index, or ClassOther when the
// index belongs to neither selected stream.
func (m Metadata) Classify(index int) StreamClass {
	switch {
	case m.HasVideo && index == m.VideoStream:
		return ClassVideo
	case m.HasAudio && index == m.AudioStream:
		return ClassAudio
	default:
		return ClassOther
	}
}
