// Package tstest builds synthetic transport streams for tests.
package tstest

import (
	"bytes"
	"encoding/binary"

	"github.com/zsiec/austream/internal/mpegts"
)

// NoPTS omits the timestamp field from a PES header.
const NoPTS int64 = -1

// PATSection returns a complete PAT section with CRC.
func PATSection(tsID uint16, programs ...mpegts.Program) []byte {
	body := make([]byte, 0, 4*len(programs))
	for _, p := range programs {
		body = binary.BigEndian.AppendUint16(body, p.Number)
		body = binary.BigEndian.AppendUint16(body, 0xE000|p.PMTPID)
	}
	return section(0x00, tsID, body)
}

// PMTSection returns a complete PMT section with CRC.
func PMTSection(program, pcrPID uint16, streams ...mpegts.ElementaryStream) []byte {
	body := binary.BigEndian.AppendUint16(nil, 0xE000|pcrPID)
	body = binary.BigEndian.AppendUint16(body, 0xF000) // no program descriptors
	for _, es := range streams {
		var desc []byte
		for _, d := range es.Descriptors {
			desc = append(desc, d.Tag, byte(len(d.Data)))
			desc = append(desc, d.Data...)
		}
		body = append(body, es.StreamType)
		body = binary.BigEndian.AppendUint16(body, 0xE000|es.PID)
		body = binary.BigEndian.AppendUint16(body, 0xF000|uint16(len(desc)))
		body = append(body, desc...)
	}
	return section(0x02, program, body)
}

func section(tableID byte, idExt uint16, body []byte) []byte {
	// header(3) + id(2) + version(1) + section numbers(2) + body + CRC(4)
	length := 5 + len(body) + 4
	s := []byte{tableID, 0xB0 | byte(length>>8)&0x0F, byte(length)}
	s = binary.BigEndian.AppendUint16(s, idExt)
	s = append(s, 0xC1, 0x00, 0x00) // version 0, current_next=1
	s = append(s, body...)
	return binary.BigEndian.AppendUint32(s, mpegts.CRC32(s))
}

// PES returns a PES packet. pts and dts are 90 kHz values; pass NoPTS to omit
// them. A dts equal to pts is not written.
func PES(streamID byte, pts, dts int64, data []byte) []byte {
	var hdr []byte
	flags := byte(0)
	switch {
	case pts >= 0 && dts >= 0 && dts != pts:
		flags = 0xC0
		hdr = append(encodeTimestamp(0x30, pts), encodeTimestamp(0x10, dts)...)
	case pts >= 0:
		flags = 0x80
		hdr = encodeTimestamp(0x20, pts)
	}

	out := []byte{0x00, 0x00, 0x01, streamID, 0, 0, 0x80, flags, byte(len(hdr))}
	out = append(out, hdr...)
	out = append(out, data...)
	// Video streams may leave PES_packet_length at zero when it does not fit.
	if n := len(out) - 6; n <= 0xFFFF {
		binary.BigEndian.PutUint16(out[4:], uint16(n))
	}
	return out
}

func encodeTimestamp(prefix byte, ts int64) []byte {
	return []byte{
		prefix | byte(ts>>29)&0x0E | 0x01,
		byte(ts >> 22),
		byte(ts>>14)&0xFE | 0x01,
		byte(ts >> 7),
		byte(ts<<1)&0xFE | 0x01,
	}
}

// Writer packetizes sections and PES packets into 188-byte TS packets,
// stuffing the last packet of each unit through its adaptation field.
type Writer struct {
	buf bytes.Buffer
	cc  map[uint16]uint8
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{cc: make(map[uint16]uint8)}
}

// WriteSection writes a PSI section on pid, prefixed by a zero pointer field.
func (w *Writer) WriteSection(pid uint16, section []byte) {
	payload := append([]byte{0x00}, section...)
	w.WriteUnit(pid, payload)
}

// WritePES writes a PES packet on pid.
func (w *Writer) WritePES(pid uint16, pes []byte) {
	w.WriteUnit(pid, pes)
}

// WriteUnit splits payload across as many packets as needed.
func (w *Writer) WriteUnit(pid uint16, payload []byte) {
	first := true
	for first || len(payload) > 0 {
		n := min(len(payload), mpegts.PacketSize-4)
		w.writePacket(pid, first, payload[:n])
		payload = payload[n:]
		first = false
	}
}

// WritePacket writes one raw packet with an explicit continuity counter.
func (w *Writer) WritePacket(pid uint16, cc uint8, pusi bool, payload []byte) {
	w.buf.Write(Packet(pid, cc, pusi, payload))
	w.cc[pid] = (cc + 1) & 0x0F
}

func (w *Writer) writePacket(pid uint16, pusi bool, payload []byte) {
	cc := w.cc[pid]
	w.WritePacket(pid, cc, pusi, payload)
}

// Write appends raw bytes, for example garbage to force a resync.
func (w *Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Bytes returns everything written so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Packet returns a single 188-byte TS packet. Payloads shorter than 184
// bytes are stuffed through the adaptation field.
func Packet(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	pkt := make([]byte, mpegts.PacketSize)
	pkt[0] = 0x47
	pkt[1] = byte(pid>>8) & 0x1F
	if pusi {
		pkt[1] |= 0x40
	}
	pkt[2] = byte(pid)

	room := mpegts.PacketSize - 4
	if len(payload) >= room {
		pkt[3] = 0x10 | cc&0x0F
		copy(pkt[4:], payload[:room])
		return pkt
	}

	pkt[3] = 0x30 | cc&0x0F
	afLen := room - len(payload) - 1
	pkt[4] = byte(afLen)
	if afLen > 0 {
		pkt[5] = 0x00 // no flags
		for i := 6; i < 5+afLen; i++ {
			pkt[i] = 0xFF
		}
	}
	copy(pkt[5+afLen:], payload)
	return pkt
}
