package media

import "fmt"

// StreamClass tags a packet or stream as video, audio, or something the
// ingestion pipeline does not track (data, subtitles, SCTE-35, ...).
type StreamClass int

// Stream classes.
const (
	ClassOther StreamClass = iota
	ClassVideo
	ClassAudio
)

func (c StreamClass) String() string {
	switch c {
	case ClassVideo:
		return "video"
	case ClassAudio:
		return "audio"
	default:
		return "other"
	}
}

// Packet is one compressed unit of audio or video data as yielded by a
// demuxing library. Timestamps are in 90 kHz units; NoTimestamp marks an
// absent value.
type Packet struct {
	Class       StreamClass
	StreamIndex int
	PTS         int64
	DTS         int64
	Keyframe    bool
	Data        []byte
}

// NoTimestamp is stored in PTS/DTS when the container carries no timestamp.
const NoTimestamp int64 = -1 << 63

// Len returns the payload length in bytes.
func (p *Packet) Len() int {
	return len(p.Data)
}

// Clone returns a deep copy of p whose payload does not alias the original.
func (p *Packet) Clone() *Packet {
	c := *p
	c.Data = make([]byte, len(p.Data))
	copy(c.Data, p.Data)
	return &c
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s packet stream=%d size=%d pts=%d keyframe=%t",
		p.Class, p.StreamIndex, len(p.Data), p.PTS, p.Keyframe)
}
