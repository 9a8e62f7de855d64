package tsdemux

import (
	"github.com/zsiec/austream/internal/media"
	"github.com/zsiec/austream/internal/mpegts"
)

// codecFor maps a PMT entry to a codec. Private data streams (0x06) are
// identified from their registration or codec descriptors.
func codecFor(es mpegts.ElementaryStream) media.CodecID {
	switch es.StreamType {
	case mpegts.StreamTypeMPEG1Video:
		return media.CodecMPEG1Video
	case mpegts.StreamTypeMPEG2Video:
		return media.CodecMPEG2Video
	case mpegts.StreamTypeMPEG1Audio, mpegts.StreamTypeMPEG2Audio:
		return media.CodecMP3
	case mpegts.StreamTypeAACADTS:
		return media.CodecAAC
	case mpegts.StreamTypeAACLATM:
		return media.CodecAACLATM
	case mpegts.StreamTypeH264:
		return media.CodecH264
	case mpegts.StreamTypeH265:
		return media.CodecH265
	case mpegts.StreamTypeAC3:
		return media.CodecAC3
	case mpegts.StreamTypeEAC3:
		return media.CodecEAC3
	case mpegts.StreamTypeSCTE35:
		return media.CodecUnknown
	}

	switch es.Registration() {
	case "Opus":
		return media.CodecOpus
	case "AC-3":
		return media.CodecAC3
	case "EAC3":
		return media.CodecEAC3
	case "HEVC":
		return media.CodecH265
	}
	if es.StreamType == mpegts.StreamTypePrivate {
		switch {
		case es.HasDescriptor(mpegts.DescriptorAC3):
			return media.CodecAC3
		case es.HasDescriptor(mpegts.DescriptorEAC3):
			return media.CodecEAC3
		}
	}
	return media.CodecUnknown
}

// needsProbe reports whether parameters of id can be recovered in-band and
// so are worth waiting for during discovery.
func needsProbe(id media.CodecID) bool {
	switch id {
	case media.CodecH264, media.CodecH265, media.CodecAAC:
		return true
	}
	return false
}
