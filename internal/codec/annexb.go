package codec

// NALUnit is one NAL unit from an Annex-B stream, without its start code.
type NALUnit struct {
	Type byte // 5-bit for H.264, 6-bit for H.265
	Data []byte
}

// SplitAnnexB returns the NAL units in data. Both 3-byte and 4-byte start
// codes are recognized; typeOf extracts the codec-specific type and minLen
// is the NAL header size.
func SplitAnnexB(data []byte, minLen int, typeOf func([]byte) byte) []NALUnit {
	n := len(data)
	if n < 4 {
		return nil
	}

	type span struct{ sc, start int }
	var spans []span
	for i := 0; i < n-2; {
		if data[i] == 0 && data[i+1] == 0 {
			if i < n-3 && data[i+2] == 0 && data[i+3] == 1 {
				spans = append(spans, span{i, i + 4})
				i += 4
				continue
			}
			if data[i+2] == 1 {
				spans = append(spans, span{i, i + 3})
				i += 3
				continue
			}
		}
		i++
	}

	var units []NALUnit
	for idx, s := range spans {
		end := n
		if idx+1 < len(spans) {
			end = spans[idx+1].sc
		}
		if end-s.start < minLen {
			continue
		}
		nal := data[s.start:end]
		units = append(units, NALUnit{Type: typeOf(nal), Data: nal})
	}
	return units
}

// SplitH264 splits an H.264 Annex-B payload.
func SplitH264(data []byte) []NALUnit {
	return SplitAnnexB(data, 1, func(d []byte) byte { return d[0] & 0x1F })
}

// SplitH265 splits an H.265 Annex-B payload.
func SplitH265(data []byte) []NALUnit {
	return SplitAnnexB(data, 2, func(d []byte) byte { return HEVCNALType(d[0]) })
}
