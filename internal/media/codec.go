package media

// CodecID identifies the compression format of an elementary stream.
type CodecID int

// Codec identifiers recognized by the demuxing backends.
const (
	CodecNone CodecID = iota
	CodecH264
	CodecH265
	CodecMPEG2Video
	CodecMPEG1Video
	CodecAAC
	CodecAACLATM
	CodecMP3
	CodecMP2
	CodecAC3
	CodecEAC3
	CodecOpus
	CodecUnknown
)

var codecNames = map[CodecID]string{
	CodecNone:       "none",
	CodecH264:       "h264",
	CodecH265:       "hevc",
	CodecMPEG2Video: "mpeg2video",
	CodecMPEG1Video: "mpeg1video",
	CodecAAC:        "aac",
	CodecAACLATM:    "aac_latm",
	CodecMP3:        "mp3",
	CodecMP2:        "mp2",
	CodecAC3:        "ac3",
	CodecEAC3:       "eac3",
	CodecOpus:       "opus",
	CodecUnknown:    "unknown",
}

func (c CodecID) String() string {
	if s, ok := codecNames[c]; ok {
		return s
	}
	return "unknown"
}

// Class reports whether the codec carries video or audio.
func (c CodecID) Class() StreamClass {
	switch c {
	case CodecH264, CodecH265, CodecMPEG2Video, CodecMPEG1Video:
		return ClassVideo
	case CodecAAC, CodecAACLATM, CodecMP3, CodecMP2, CodecAC3, CodecEAC3, CodecOpus:
		return ClassAudio
	default:
		return ClassOther
	}
}

// ChannelLayout is a speaker-position bitmask using the same bit assignment
// as FFmpeg's AV_CH_* constants, so values round-trip with FFmpeg tooling.
type ChannelLayout uint64

// Speaker positions.
const (
	ChFrontLeft    ChannelLayout = 0x1
	ChFrontRight   ChannelLayout = 0x2
	ChFrontCenter  ChannelLayout = 0x4
	ChLowFrequency ChannelLayout = 0x8
	ChBackLeft     ChannelLayout = 0x10
	ChBackRight    ChannelLayout = 0x20
	ChBackCenter   ChannelLayout = 0x100
	ChSideLeft     ChannelLayout = 0x200
	ChSideRight    ChannelLayout = 0x400
)

// Common layouts.
const (
	LayoutMono      = ChFrontCenter
	LayoutStereo    = ChFrontLeft | ChFrontRight
	LayoutSurround  = LayoutStereo | ChFrontCenter
	Layout4Point0   = LayoutSurround | ChBackCenter
	Layout5Point0   = LayoutSurround | ChBackLeft | ChBackRight
	Layout5Point1   = Layout5Point0 | ChLowFrequency
	Layout7Point1   = Layout5Point1 | ChSideLeft | ChSideRight
	layoutUndefined = ChannelLayout(0)
)

// DefaultChannelLayout returns the layout conventionally implied by a channel
// count (the mapping AAC channel_configuration uses), or 0 when none applies.
func DefaultChannelLayout(channels int) ChannelLayout {
	switch channels {
	case 1:
		return LayoutMono
	case 2:
		return LayoutStereo
	case 3:
		return LayoutSurround
	case 4:
		return Layout4Point0
	case 5:
		return Layout5Point0
	case 6:
		return Layout5Point1
	case 8:
		return Layout7Point1
	default:
		return layoutUndefined
	}
}

// Channels returns the number of speaker positions set in the layout.
func (l ChannelLayout) Channels() int {
	n := 0
	for v := uint64(l); v != 0; v &= v - 1 {
		n++
	}
	return n
}

func (l ChannelLayout) String() string {
	switch l {
	case LayoutMono:
		return "mono"
	case LayoutStereo:
		return "stereo"
	case LayoutSurround:
		return "3.0"
	case Layout4Point0:
		return "4.0"
	case Layout5Point0:
		return "5.0(back)"
	case Layout5Point1:
		return "5.1(back)"
	case Layout7Point1:
		return "7.1"
	case layoutUndefined:
		return "unknown"
	}
	return "custom"
}
