package mpegts

import "fmt"

func parsePacket(buf []byte) (*Packet, error) {
	if len(buf) != PacketSize {
		return nil, fmt.Errorf("mpegts: packet size %d, expected %d", len(buf), PacketSize)
	}
	if buf[0] != syncByte {
		return nil, fmt.Errorf("mpegts: invalid sync byte 0x%02X", buf[0])
	}

	p := &Packet{}
	h := &p.Header
	h.TransportErrorIndicator = buf[1]&0x80 != 0
	h.PayloadUnitStartIndicator = buf[1]&0x40 != 0
	h.PID = uint16(buf[1]&0x1F)<<8 | uint16(buf[2])
	h.HasAdaptationField = buf[3]&0x20 != 0
	h.HasPayload = buf[3]&0x10 != 0
	h.ContinuityCounter = buf[3] & 0x0F

	off := 4
	if h.HasAdaptationField {
		afLen := int(buf[off])
		if afLen > 0 {
			h.DiscontinuityIndicator = buf[off+1]&0x80 != 0
		}
		off += 1 + afLen
		if off > PacketSize {
			return nil, fmt.Errorf("mpegts: adaptation field length %d overruns packet", afLen)
		}
	}

	if h.HasPayload && off < PacketSize {
		p.Payload = make([]byte, PacketSize-off)
		copy(p.Payload, buf[off:])
	}
	return p, nil
}
