package mpegts

import "fmt"

func isPESStart(b []byte) bool {
	return len(b) >= 3 && b[0] == 0x00 && b[1] == 0x00 && b[2] == 0x01
}

// Stream IDs without the optional PES header: padding, private_stream_2,
// ECM, EMM, DSMCC, H.222.1 type E and the program stream directory.
func hasOptionalHeader(streamID uint8) bool {
	switch streamID {
	case 0xBE, 0xBF, 0xF0, 0xF1, 0xF2, 0xF8, 0xFF:
		return false
	}
	return true
}

func parsePES(b []byte) (*PES, error) {
	if len(b) < 6 {
		return nil, fmt.Errorf("mpegts: PES packet too short (%d bytes)", len(b))
	}
	if !isPESStart(b) {
		return nil, fmt.Errorf("mpegts: invalid PES start code")
	}

	pes := &PES{StreamID: b[3]}
	// PES_packet_length 0 is allowed for video and means "until the next unit".
	end := len(b)
	if n := int(b[4])<<8 | int(b[5]); n > 0 && 6+n < end {
		end = 6 + n
	}

	if !hasOptionalHeader(pes.StreamID) {
		pes.Data = b[6:end]
		return pes, nil
	}
	if len(b) < 9 {
		return nil, fmt.Errorf("mpegts: PES optional header too short")
	}

	// b[7] bits 7-6: PTS_DTS_flags; b[8]: PES_header_data_length.
	flags := b[7] >> 6
	start := 9 + int(b[8])
	if start > end {
		return nil, fmt.Errorf("mpegts: PES header length %d overruns packet", b[8])
	}

	switch flags {
	case 2:
		if len(b) >= 14 {
			pes.PTS, pes.HasPTS = timestamp(b[9:14]), true
		}
	case 3:
		if len(b) >= 19 {
			pes.PTS, pes.HasPTS = timestamp(b[9:14]), true
			pes.DTS, pes.HasDTS = timestamp(b[14:19]), true
		}
	}

	pes.Data = b[start:end]
	return pes, nil
}

// timestamp decodes a 33-bit PTS/DTS from its 5-byte marker-bit encoding.
func timestamp(b []byte) int64 {
	return int64(b[0]>>1&0x07)<<30 |
		int64(b[1])<<22 |
		int64(b[2]>>1&0x7F)<<15 |
		int64(b[3])<<7 |
		int64(b[4]>>1&0x7F)
}
