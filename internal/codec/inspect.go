package codec

import "github.com/zsiec/austream/internal/media"

// Params are stream parameters recovered from an elementary stream payload.
type Params struct {
	Width      int
	Height     int
	SampleRate int
	Channels   int
}

// Inspect looks for in-band parameters in one access unit or audio frame.
// It reports false when data carries none (no SPS, no ADTS header).
func Inspect(id media.CodecID, data []byte) (Params, bool) {
	switch id {
	case media.CodecH264:
		for _, nal := range SplitH264(data) {
			if nal.Type != NALTypeSPS {
				continue
			}
			if sps, err := ParseSPS(nal.Data); err == nil {
				return Params{Width: sps.Width, Height: sps.Height}, true
			}
		}
	case media.CodecH265:
		for _, nal := range SplitH265(data) {
			if nal.Type != HEVCNALSPS {
				continue
			}
			if sps, err := ParseHEVCSPS(nal.Data); err == nil {
				return Params{Width: sps.Width, Height: sps.Height}, true
			}
		}
	case media.CodecAAC:
		if h, err := ParseADTSHeader(data); err == nil {
			return Params{SampleRate: h.SampleRate, Channels: h.Channels}, true
		}
	}
	return Params{}, false
}

// IsKeyframe reports whether a video payload contains a random access
// picture. Audio payloads are always keyframes.
func IsKeyframe(id media.CodecID, data []byte) bool {
	switch id {
	case media.CodecH264:
		for _, nal := range SplitH264(data) {
			if nal.Type == NALTypeIDR {
				return true
			}
		}
		return false
	case media.CodecH265:
		for _, nal := range SplitH265(data) {
			if IsHEVCRandomAccess(nal.Type) {
				return true
			}
		}
		return false
	case media.CodecMPEG1Video, media.CodecMPEG2Video:
		// A sequence header (00 00 01 B3) precedes every I-frame GOP.
		for i := 0; i+3 < len(data); i++ {
			if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 && data[i+3] == 0xB3 {
				return true
			}
		}
		return false
	}
	return id.Class() == media.ClassAudio
}
