package mpegts

import "fmt"

const (
	tableIDPAT = 0x00
	tableIDPMT = 0x02
)

// parseSections walks the sections of a PSI payload (pointer field first)
// and returns a unit per PAT or PMT section. Other tables are ignored.
func parseSections(pid uint16, payload []byte) ([]*Unit, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("mpegts: PSI payload too short")
	}
	off := 1 + int(payload[0])
	if off >= len(payload) {
		return nil, fmt.Errorf("mpegts: PSI pointer field out of range")
	}

	var units []*Unit
	for off+3 <= len(payload) {
		tableID := payload[off]
		if tableID == 0xFF || payload[off+1]&0x80 == 0 {
			break
		}
		end := off + 3 + (int(payload[off+1]&0x0F)<<8 | int(payload[off+2]))
		if end > len(payload) {
			break
		}
		section := payload[off:end]
		off = end

		switch tableID {
		case tableIDPAT:
			pat, err := parsePAT(section)
			if err != nil {
				return units, err
			}
			units = append(units, &Unit{PID: pid, PAT: pat})
		case tableIDPMT:
			pmt, err := parsePMT(section)
			if err != nil {
				return units, err
			}
			units = append(units, &Unit{PID: pid, PMT: pmt})
		}
	}
	return units, nil
}

// parsePAT decodes a PAT section:
//
//	[0] table_id  [1-2] flags + section_length  [3-4] transport_stream_id
//	[5] version + current_next  [6-7] section numbers  [8..n-4] programs  [n-4..n] CRC
func parsePAT(s []byte) (*PAT, error) {
	if len(s) < 12 {
		return nil, fmt.Errorf("mpegts: PAT too short")
	}
	if err := checkCRC(s); err != nil {
		return nil, fmt.Errorf("mpegts: PAT: %w", err)
	}

	pat := &PAT{
		TransportStreamID: uint16(s[3])<<8 | uint16(s[4]),
		Version:           (s[5] >> 1) & 0x1F,
	}
	for i := 8; i+4 <= len(s)-4; i += 4 {
		number := uint16(s[i])<<8 | uint16(s[i+1])
		pid := uint16(s[i+2]&0x1F)<<8 | uint16(s[i+3])
		if number == 0 {
			continue // network PID
		}
		pat.Programs = append(pat.Programs, Program{Number: number, PMTPID: pid})
	}
	return pat, nil
}

// parsePMT decodes a PMT section:
//
//	[3-4] program_number  [5] version  [8-9] PCR_PID  [10-11] program_info_length
//	then program descriptors, then ES entries of type(1) PID(2) ES_info_length(2) + descriptors
func parsePMT(s []byte) (*PMT, error) {
	if len(s) < 16 {
		return nil, fmt.Errorf("mpegts: PMT too short")
	}
	if err := checkCRC(s); err != nil {
		return nil, fmt.Errorf("mpegts: PMT: %w", err)
	}

	pmt := &PMT{
		ProgramNumber: uint16(s[3])<<8 | uint16(s[4]),
		Version:       (s[5] >> 1) & 0x1F,
		PCRPID:        uint16(s[8]&0x1F)<<8 | uint16(s[9]),
	}

	end := len(s) - 4
	off := 12 + (int(s[10]&0x0F)<<8 | int(s[11]))
	for off+5 <= end {
		es := ElementaryStream{
			StreamType: s[off],
			PID:        uint16(s[off+1]&0x1F)<<8 | uint16(s[off+2]),
		}
		infoLen := int(s[off+3]&0x0F)<<8 | int(s[off+4])
		off += 5
		if off+infoLen > end {
			return nil, fmt.Errorf("mpegts: PMT ES_info_length %d overruns section", infoLen)
		}
		es.Descriptors = parseDescriptors(s[off : off+infoLen])
		off += infoLen
		pmt.Streams = append(pmt.Streams, es)
	}
	return pmt, nil
}

func parseDescriptors(b []byte) []Descriptor {
	var ds []Descriptor
	for len(b) >= 2 {
		n := int(b[1])
		if 2+n > len(b) {
			break
		}
		ds = append(ds, Descriptor{Tag: b[0], Data: append([]byte(nil), b[2:2+n]...)})
		b = b[2+n:]
	}
	return ds
}
