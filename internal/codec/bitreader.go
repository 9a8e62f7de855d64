package codec

import "errors"

var errShortBitstream = errors.New("codec: bitstream too short")

// bitReader reads MSB-first fields and Exp-Golomb codes from an RBSP.
// The first read past the end latches err; every later read returns zero,
// so a parser can read a run of fields and check err once.
type bitReader struct {
	data []byte
	off  int // in bits
	err  error
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (br *bitReader) fail() {
	br.off = len(br.data) * 8
	if br.err == nil {
		br.err = errShortBitstream
	}
}

func (br *bitReader) u(n int) uint {
	if br.err != nil {
		return 0
	}
	if n > len(br.data)*8-br.off {
		br.fail()
		return 0
	}
	var v uint
	for ; n > 0; n-- {
		v = v<<1 | uint(br.data[br.off>>3]>>(7-uint(br.off&7))&1)
		br.off++
	}
	return v
}

func (br *bitReader) flag() bool { return br.u(1) == 1 }

func (br *bitReader) skip(n int) {
	if br.err != nil {
		return
	}
	if n > len(br.data)*8-br.off {
		br.fail()
		return
	}
	br.off += n
}

// ue reads an unsigned Exp-Golomb code ue(v).
func (br *bitReader) ue() uint {
	lead := 0
	for !br.flag() {
		if br.err != nil {
			return 0
		}
		if lead++; lead > 31 {
			br.fail()
			return 0
		}
	}
	rest := br.u(lead)
	if br.err != nil {
		return 0
	}
	return 1<<lead - 1 + rest
}

// se reads a signed Exp-Golomb code se(v): 1, -1, 2, -2, ...
func (br *bitReader) se() int {
	k := br.ue()
	v := int(k+1) / 2
	if k&1 == 0 {
		v = -v
	}
	return v
}

// unescapeRBSP drops the emulation prevention byte of every 00 00 03 xx
// sequence where xx <= 3, or where 03 ends the NAL.
func unescapeRBSP(data []byte) []byte {
	out := make([]byte, 0, len(data))
	zeros := 0
	for i, b := range data {
		if zeros >= 2 && b == 3 && (i+1 == len(data) || data[i+1] <= 3) {
			zeros = 0
			continue
		}
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, b)
	}
	return out
}
