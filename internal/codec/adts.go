package codec

import "errors"

// ErrInvalidADTS is returned when an ADTS header is malformed.
var ErrInvalidADTS = errors.New("codec: invalid ADTS header")

// Sampling frequency index table (ISO/IEC 14496-3).
var aacSampleRates = [...]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350,
}

// ADTSHeader is the fixed part of an ADTS frame header.
type ADTSHeader struct {
	Profile    int // audio object type minus one
	SampleRate int
	Channels   int
	FrameLen   int // header and payload
	HeaderLen  int
}

// ParseADTSHeader decodes the ADTS header at the start of b.
func ParseADTSHeader(b []byte) (ADTSHeader, error) {
	if len(b) < 7 || b[0] != 0xFF || b[1]&0xF6 != 0xF0 {
		return ADTSHeader{}, ErrInvalidADTS
	}
	idx := int(b[2]>>2) & 0x0F
	if idx >= len(aacSampleRates) {
		return ADTSHeader{}, ErrInvalidADTS
	}
	h := ADTSHeader{
		Profile:    int(b[2] >> 6),
		SampleRate: aacSampleRates[idx],
		Channels:   int(b[2]&0x01)<<2 | int(b[3]>>6),
		FrameLen:   int(b[3]&0x03)<<11 | int(b[4])<<3 | int(b[5]>>5),
		HeaderLen:  7,
	}
	if b[1]&0x01 == 0 {
		h.HeaderLen = 9 // CRC present
	}
	if h.FrameLen < h.HeaderLen {
		return ADTSHeader{}, ErrInvalidADTS
	}
	// Channel configuration 7 is 7.1 (eight channels).
	if h.Channels == 7 {
		h.Channels = 8
	}
	return h, nil
}

// SplitADTS returns the complete ADTS frames in data, skipping bytes until a
// sync word is found. A truncated final frame is left out.
func SplitADTS(data []byte) ([][]byte, error) {
	var frames [][]byte
	for off := 0; len(data)-off >= 7; {
		if data[off] != 0xFF || data[off+1]&0xF0 != 0xF0 {
			off++
			continue
		}
		h, err := ParseADTSHeader(data[off:])
		if err != nil {
			return frames, err
		}
		if off+h.FrameLen > len(data) {
			break
		}
		frames = append(frames, data[off:off+h.FrameLen])
		off += h.FrameLen
	}
	return frames, nil
}
