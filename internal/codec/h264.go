package codec

import "fmt"

// H.264 NAL unit types (ITU-T H.264 Table 7-1).
const (
	NALTypeSlice = 1
	NALTypeIDR   = 5
	NALTypeSEI   = 6
	NALTypeSPS   = 7
	NALTypePPS   = 8
	NALTypeAUD   = 9
)

// SPSInfo holds the H.264 SPS fields needed to describe a stream.
type SPSInfo struct {
	Width           int
	Height          int
	ProfileIDC      byte
	ConstraintFlags byte
	LevelIDC        byte
}

// CodecString returns the RFC 6381 codec string, e.g. "avc1.42E01E".
func (s SPSInfo) CodecString() string {
	return fmt.Sprintf("avc1.%02X%02X%02X", s.ProfileIDC, s.ConstraintFlags, s.LevelIDC)
}

// ParseSPS reads the resolution and profile of an H.264 SPS. nalu starts
// at the NAL header byte; the start code is not included. Fields after the
// frame cropping rectangle are ignored.
func ParseSPS(nalu []byte) (SPSInfo, error) {
	if len(nalu) < 4 {
		return SPSInfo{}, errShortBitstream
	}
	br := newBitReader(unescapeRBSP(nalu[1:]))

	info := SPSInfo{
		ProfileIDC:      byte(br.u(8)),
		ConstraintFlags: byte(br.u(8)),
		LevelIDC:        byte(br.u(8)),
	}
	br.ue() // seq_parameter_set_id

	chroma, separatePlanes := uint(1), false
	if hasChromaInfo(info.ProfileIDC) {
		chroma = br.ue()
		if chroma == 3 {
			separatePlanes = br.flag()
		}
		br.ue()    // bit_depth_luma_minus8
		br.ue()    // bit_depth_chroma_minus8
		br.skip(1) // qpprime_y_zero_transform_bypass_flag
		if br.flag() {
			skipScalingLists(br, chroma)
		}
	}

	br.ue() // log2_max_frame_num_minus4
	skipPicOrderCount(br)
	br.ue()    // max_num_ref_frames
	br.skip(1) // gaps_in_frame_num_value_allowed_flag

	mbW, mapH := br.ue()+1, br.ue()+1
	frames := uint(1)
	if !br.flag() { // frame_mbs_only_flag
		frames = 2
		br.skip(1)
	}
	br.skip(1) // direct_8x8_inference_flag

	var left, right, top, bottom uint
	if br.flag() {
		left, right, top, bottom = br.ue(), br.ue(), br.ue(), br.ue()
	}
	if br.err != nil {
		return SPSInfo{}, br.err
	}

	// Crop units are chroma samples, doubled vertically for field coding.
	cropX, cropY := uint(2), uint(2)
	switch {
	case separatePlanes || chroma == 0 || chroma == 3:
		cropX, cropY = 1, 1
	case chroma == 2:
		cropY = 1
	}
	info.Width = int(mbW*16 - cropX*(left+right))
	info.Height = int(mapH*16*frames - cropY*frames*(top+bottom))
	return info, nil
}

// hasChromaInfo lists the profile_idc values whose SPS carries
// chroma_format_idc and the bit depths.
func hasChromaInfo(profile byte) bool {
	switch profile {
	case 44, 83, 86, 100, 110, 118, 122, 128, 134, 138, 139, 244:
		return true
	}
	return false
}

func skipScalingLists(br *bitReader, chroma uint) {
	n := 8
	if chroma == 3 {
		n = 12
	}
	for i := 0; i < n && br.err == nil; i++ {
		if !br.flag() {
			continue
		}
		size := 16
		if i >= 6 {
			size = 64
		}
		last, next := 8, 8
		for j := 0; j < size && next != 0; j++ {
			next = (last + br.se() + 256) % 256
			if next != 0 {
				last = next
			}
		}
	}
}

func skipPicOrderCount(br *bitReader) {
	switch br.ue() {
	case 0:
		br.ue() // log2_max_pic_order_cnt_lsb_minus4
	case 1:
		br.skip(1) // delta_pic_order_always_zero_flag
		br.se()    // offset_for_non_ref_pic
		br.se()    // offset_for_top_to_bottom_field
		for n := br.ue(); n > 0 && br.err == nil; n-- {
			br.se()
		}
	}
}
