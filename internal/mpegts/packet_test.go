package mpegts

import "testing"

func makePacket(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	buf := make([]byte, PacketSize)
	buf[0] = syncByte
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	buf[3] = 0x10 | (cc & 0x0F) // payload only
	if pusi {
		buf[1] |= 0x40
	}
	copy(buf[4:], payload)
	return buf
}

func TestParsePacket_Normal(t *testing.T) {
	t.Parallel()
	p, err := parsePacket(makePacket(0x100, 5, false, []byte{0x01, 0x02, 0x03}))
	if err != nil {
		t.Fatal(err)
	}
	if p.Header.PID != 0x100 {
		t.Errorf("PID = %d, want %d", p.Header.PID, 0x100)
	}
	if p.Header.ContinuityCounter != 5 {
		t.Errorf("CC = %d, want 5", p.Header.ContinuityCounter)
	}
	if p.Header.PayloadUnitStartIndicator {
		t.Error("PUSI should be false")
	}
	if len(p.Payload) != 184 {
		t.Errorf("payload length = %d, want 184", len(p.Payload))
	}
	if p.Payload[0] != 0x01 || p.Payload[2] != 0x03 {
		t.Error("payload content mismatch")
	}
}

func TestParsePacket_AdaptationField(t *testing.T) {
	t.Parallel()
	buf := makePacket(0x101, 0, true, nil)
	buf[3] = 0x30
	buf[4] = 10   // adaptation_field_length
	buf[5] = 0x80 // discontinuity_indicator
	buf[15] = 0xAB

	p, err := parsePacket(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Header.DiscontinuityIndicator {
		t.Error("DiscontinuityIndicator should be set")
	}
	if len(p.Payload) != PacketSize-15 {
		t.Errorf("payload length = %d, want %d", len(p.Payload), PacketSize-15)
	}
	if p.Payload[0] != 0xAB {
		t.Errorf("payload[0] = %#x, want 0xAB", p.Payload[0])
	}
}

func TestParsePacket_Errors(t *testing.T) {
	t.Parallel()
	overrun := makePacket(0x101, 0, false, nil)
	overrun[3] = 0x30
	overrun[4] = 200

	badSync := makePacket(0x101, 0, false, nil)
	badSync[0] = 0x00

	tests := []struct {
		name string
		buf  []byte
	}{
		{"short", make([]byte, 100)},
		{"bad sync", badSync},
		{"adaptation overrun", overrun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := parsePacket(tt.buf); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCRC32_SectionSumsToZero(t *testing.T) {
	t.Parallel()
	section := []byte{0x00, 0xB0, 0x0D, 0x00, 0x01, 0xC1, 0x00, 0x00, 0x00, 0x01, 0xF0, 0x00}
	crc := CRC32(section)
	section = append(section, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	if err := checkCRC(section); err != nil {
		t.Fatal(err)
	}
	section[4] ^= 0x01
	if err := checkCRC(section); err == nil {
		t.Error("expected CRC mismatch after corruption")
	}
}

func TestSectionsComplete(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		payload []byte
		want    bool
	}{
		{"empty", nil, false},
		{"pointer only", []byte{0x00}, false},
		{"header cut", []byte{0x00, 0x00, 0xB0}, false},
		{"body cut", []byte{0x00, 0x00, 0xB0, 0x05, 0x01, 0x02}, false},
		{"exact", []byte{0x00, 0x00, 0xB0, 0x02, 0x01, 0x02}, true},
		{"stuffed", []byte{0x00, 0x00, 0xB0, 0x02, 0x01, 0x02, 0xFF, 0xFF}, true},
		{"pointer skips", []byte{0x02, 0xAA, 0xBB, 0x00, 0xB0, 0x00}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sectionsComplete(tt.payload); got != tt.want {
				t.Errorf("sectionsComplete = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssembler_ContinuityLoss(t *testing.T) {
	t.Parallel()
	a := &pidAssembler{}
	push := func(cc uint8, pusi bool, payload []byte) []byte {
		p, err := parsePacket(makePacket(0x100, cc, pusi, payload))
		if err != nil {
			t.Fatal(err)
		}
		_, out := a.push(p)
		return out
	}

	push(0, true, []byte{0x00, 0x00, 0x01, 0xE0})
	push(1, false, []byte{0xAA})
	push(1, false, []byte{0xAA}) // duplicate, ignored
	if got := push(3, false, []byte{0xBB}); got != nil {
		t.Fatalf("unexpected unit on CC gap")
	}
	if a.ccErrors != 1 {
		t.Errorf("ccErrors = %d, want 1", a.ccErrors)
	}
	// The unit broken by the gap is discarded; the next start begins cleanly.
	push(4, true, []byte{0x00, 0x00, 0x01, 0xE0})
	if got := push(5, true, []byte{0x00, 0x00, 0x01, 0xE0}); len(got) != 184 {
		t.Errorf("completed unit length = %d, want 184", len(got))
	}
}

func TestParsePES_Timestamps(t *testing.T) {
	t.Parallel()
	// PTS=DTS+3000, PTS_DTS_flags=3
	pts, dts := int64(1<<32+12345), int64(1<<32+9345)
	b := []byte{0x00, 0x00, 0x01, 0xE0, 0x00, 0x00, 0x80, 0xC0, 10}
	b = append(b, encodeTS(0x30, pts)...)
	b = append(b, encodeTS(0x10, dts)...)
	b = append(b, 0xDE, 0xAD)

	pes, err := parsePES(b)
	if err != nil {
		t.Fatal(err)
	}
	if !pes.HasPTS || pes.PTS != pts {
		t.Errorf("PTS = %d (%v), want %d", pes.PTS, pes.HasPTS, pts)
	}
	if !pes.HasDTS || pes.DTS != dts {
		t.Errorf("DTS = %d (%v), want %d", pes.DTS, pes.HasDTS, dts)
	}
	if len(pes.Data) != 2 || pes.Data[0] != 0xDE {
		t.Errorf("Data = %x, want dead", pes.Data)
	}
}

func encodeTS(prefix byte, ts int64) []byte {
	return []byte{
		prefix | byte(ts>>29)&0x0E | 0x01,
		byte(ts >> 22),
		byte(ts>>14)&0xFE | 0x01,
		byte(ts >> 7),
		byte(ts<<1)&0xFE | 0x01,
	}
}
