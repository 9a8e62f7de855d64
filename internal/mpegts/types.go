package mpegts

// PacketSize is the size of a standard transport stream packet.
const PacketSize = 188

const syncByte = 0x47

// Well-known PIDs.
const (
	PIDPAT  uint16 = 0x0000
	PIDNull uint16 = 0x1FFF
)

// Stream types carried in the PMT (ISO/IEC 13818-1 Table 2-34 and common
// registrations).
const (
	StreamTypeMPEG1Video = 0x01
	StreamTypeMPEG2Video = 0x02
	StreamTypeMPEG1Audio = 0x03
	StreamTypeMPEG2Audio = 0x04
	StreamTypePrivate    = 0x06
	StreamTypeAACADTS    = 0x0F
	StreamTypeAACLATM    = 0x11
	StreamTypeH264       = 0x1B
	StreamTypeH265       = 0x24
	StreamTypeAC3        = 0x81
	StreamTypeSCTE35     = 0x86
	StreamTypeEAC3       = 0x87
)

// Packet is a parsed transport stream packet.
type Packet struct {
	Header  PacketHeader
	Payload []byte
}

// PacketHeader holds the 4-byte TS header fields plus the adaptation field
// discontinuity flag.
type PacketHeader struct {
	PID                       uint16
	ContinuityCounter         uint8
	HasAdaptationField        bool
	HasPayload                bool
	PayloadUnitStartIndicator bool
	TransportErrorIndicator   bool
	DiscontinuityIndicator    bool
}

// Unit is one logical item read from the stream. Exactly one of PAT, PMT or
// PES is set; PID is the transport PID it arrived on.
type Unit struct {
	PID uint16
	PAT *PAT
	PMT *PMT
	PES *PES
}

// PAT is a Program Association Table.
type PAT struct {
	TransportStreamID uint16
	Version           uint8
	Programs          []Program
}

// Program maps a program number to the PID carrying its PMT.
type Program struct {
	Number uint16
	PMTPID uint16
}

// PMT is a Program Map Table.
type PMT struct {
	ProgramNumber uint16
	Version       uint8
	PCRPID        uint16
	Streams       []ElementaryStream
}

// ElementaryStream is one PMT entry. Descriptors are kept raw so callers can
// look for registration or codec descriptors.
type ElementaryStream struct {
	PID         uint16
	StreamType  uint8
	Descriptors []Descriptor
}

// Descriptor is a raw tag-length-value descriptor.
type Descriptor struct {
	Tag  uint8
	Data []byte
}

// Descriptor tags inspected by callers.
const (
	DescriptorRegistration = 0x05
	DescriptorISO639       = 0x0A
	DescriptorAC3          = 0x6A
	DescriptorEAC3         = 0x7A
)

// Registration returns the format_identifier of a registration descriptor
// (for example "Opus", "AC-3" or "HEVC"), or "" when there is none.
func (es ElementaryStream) Registration() string {
	for _, d := range es.Descriptors {
		if d.Tag == DescriptorRegistration && len(d.Data) >= 4 {
			return string(d.Data[:4])
		}
	}
	return ""
}

// HasDescriptor reports whether a descriptor with tag is present.
func (es ElementaryStream) HasDescriptor(tag uint8) bool {
	for _, d := range es.Descriptors {
		if d.Tag == tag {
			return true
		}
	}
	return false
}

// PES is a reassembled Packetized Elementary Stream packet. PTS and DTS are
// 33-bit 90 kHz values; HasPTS/HasDTS report their presence.
type PES struct {
	StreamID uint8
	HasPTS   bool
	HasDTS   bool
	PTS      int64
	DTS      int64
	Data     []byte
}
