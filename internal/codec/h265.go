package codec

// H.265 NAL unit types (ITU-T H.265 Table 7-1).
const (
	HEVCNALBlaWLP   = 16
	HEVCNALIDRWRadl = 19
	HEVCNALIDRNlp   = 20
	HEVCNALCraNut   = 21
	HEVCNALVPS      = 32
	HEVCNALSPS      = 33
	HEVCNALPPS      = 34
	HEVCNALAUD      = 35
)

// HEVCNALType extracts the type from the first byte of a 2-byte HEVC NAL
// header.
func HEVCNALType(b byte) byte {
	return (b >> 1) & 0x3F
}

// IsHEVCRandomAccess reports whether t is a BLA, IDR or CRA picture.
func IsHEVCRandomAccess(t byte) bool {
	return t >= HEVCNALBlaWLP && t <= HEVCNALCraNut
}

// HEVCSPSInfo holds the H.265 SPS fields needed to describe a stream.
type HEVCSPSInfo struct {
	Width           int
	Height          int
	ProfileIDC      byte
	TierFlag        byte
	LevelIDC        byte
	ChromaFormatIdc byte
}

// ParseHEVCSPS reads the resolution and profile of an H.265 SPS. nalu
// starts at the 2-byte NAL header. A truncated conformance window still
// yields the coded size.
func ParseHEVCSPS(nalu []byte) (HEVCSPSInfo, error) {
	if len(nalu) < 4 {
		return HEVCSPSInfo{}, errShortBitstream
	}
	br := newBitReader(unescapeRBSP(nalu[2:]))

	br.skip(4) // sps_video_parameter_set_id
	subLayers := br.u(3)
	br.skip(1) // sps_temporal_id_nesting_flag

	var info HEVCSPSInfo
	readProfileTierLevel(br, &info, subLayers)
	br.ue() // sps_seq_parameter_set_id
	chroma := br.ue()
	if chroma == 3 {
		br.skip(1) // separate_colour_plane_flag
	}
	width, height := br.ue(), br.ue()
	if br.err != nil {
		return HEVCSPSInfo{}, br.err
	}
	info.ChromaFormatIdc = byte(chroma)
	info.Width, info.Height = int(width), int(height)

	if !br.flag() {
		return info, nil
	}
	left, right, top, bottom := br.ue(), br.ue(), br.ue(), br.ue()
	if br.err != nil {
		return info, nil
	}
	unitX, unitY := uint(1), uint(1)
	switch chroma {
	case 1:
		unitX, unitY = 2, 2
	case 2:
		unitX = 2
	}
	info.Width -= int((left + right) * unitX)
	info.Height -= int((top + bottom) * unitY)
	return info, nil
}

func readProfileTierLevel(br *bitReader, info *HEVCSPSInfo, subLayers uint) {
	br.skip(2) // general_profile_space
	info.TierFlag = byte(br.u(1))
	info.ProfileIDC = byte(br.u(5))
	br.skip(32 + 48) // compatibility and constraint flags
	info.LevelIDC = byte(br.u(8))

	if subLayers == 0 {
		return
	}
	var profile, level [8]bool
	for i := uint(0); i < subLayers; i++ {
		profile[i], level[i] = br.flag(), br.flag()
	}
	br.skip(2 * int(8-subLayers)) // reserved_zero_2bits
	for i := uint(0); i < subLayers; i++ {
		if profile[i] {
			br.skip(88)
		}
		if level[i] {
			br.skip(8)
		}
	}
}
