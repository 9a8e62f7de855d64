package mpegts

import "sort"

// pidAssembler collects the payloads of one PID until a unit boundary: the
// next payload_unit_start for PES, or a complete section for PSI.
type pidAssembler struct {
	psi     bool
	started bool
	lastCC  uint8
	first   *Packet
	payload []byte

	ccErrors int
}

// push adds p and returns the completed payload, if any, along with the
// packet that started it.
func (a *pidAssembler) push(p *Packet) (*Packet, []byte) {
	h := p.Header
	if h.TransportErrorIndicator {
		a.reset()
		return nil, nil
	}
	if !h.HasPayload {
		return nil, nil
	}

	if a.started && !h.DiscontinuityIndicator {
		want := (a.lastCC + 1) & 0x0F
		switch h.ContinuityCounter {
		case want:
		case a.lastCC:
			return nil, nil // retransmitted duplicate
		default:
			// Unsignaled loss; the partial unit is unusable.
			a.ccErrors++
			a.reset()
		}
	}

	var first *Packet
	var done []byte
	if h.PayloadUnitStartIndicator {
		if a.first != nil && len(a.payload) > 0 {
			first, done = a.first, a.payload
		}
		a.first = p
		a.payload = append([]byte(nil), p.Payload...)
	} else if a.first != nil {
		a.payload = append(a.payload, p.Payload...)
	}
	a.started = true
	a.lastCC = h.ContinuityCounter

	if done == nil && a.psi && a.first != nil && sectionsComplete(a.payload) {
		first, done = a.first, a.payload
		a.first, a.payload = nil, nil
	}
	return first, done
}

func (a *pidAssembler) flush() (*Packet, []byte) {
	first, payload := a.first, a.payload
	a.first, a.payload = nil, nil
	if first == nil || len(payload) == 0 {
		return nil, nil
	}
	return first, payload
}

func (a *pidAssembler) reset() {
	a.first = nil
	a.payload = nil
	a.started = false
}

// sectionsComplete reports whether payload, starting with a pointer field,
// holds only complete sections (trailing stuffing allowed).
func sectionsComplete(payload []byte) bool {
	if len(payload) < 1 {
		return false
	}
	off := 1 + int(payload[0])
	if off >= len(payload) {
		return false
	}
	for off < len(payload) {
		if payload[off] == 0xFF {
			return true
		}
		if off+3 > len(payload) {
			return false
		}
		if payload[off+1]&0x80 == 0 {
			return true
		}
		n := 3 + (int(payload[off+1]&0x0F)<<8 | int(payload[off+2]))
		if off+n > len(payload) {
			return false
		}
		off += n
	}
	return true
}

type pendingUnit struct {
	first   *Packet
	payload []byte
}

// assemblers routes packets to per-PID assemblers. psiPIDs marks the PIDs
// whose payloads are sections rather than PES.
type assemblers struct {
	byPID   map[uint16]*pidAssembler
	psiPIDs map[uint16]bool
}

func newAssemblers() *assemblers {
	return &assemblers{
		byPID:   make(map[uint16]*pidAssembler),
		psiPIDs: map[uint16]bool{PIDPAT: true},
	}
}

func (as *assemblers) markPSI(pid uint16) {
	as.psiPIDs[pid] = true
	if a, ok := as.byPID[pid]; ok {
		a.psi = true
	}
}

func (as *assemblers) isPSI(pid uint16) bool {
	return as.psiPIDs[pid]
}

func (as *assemblers) continuityErrors() int {
	n := 0
	for _, a := range as.byPID {
		n += a.ccErrors
	}
	return n
}

func (as *assemblers) push(p *Packet) *pendingUnit {
	pid := p.Header.PID
	a, ok := as.byPID[pid]
	if !ok {
		a = &pidAssembler{psi: as.psiPIDs[pid]}
		as.byPID[pid] = a
	}
	first, payload := a.push(p)
	if first == nil {
		return nil
	}
	return &pendingUnit{first: first, payload: payload}
}

// drain flushes every partial unit, PAT first so that PMT PIDs it announces
// are known before their own payloads are parsed.
func (as *assemblers) drain() []*pendingUnit {
	pids := make([]int, 0, len(as.byPID))
	for pid := range as.byPID {
		pids = append(pids, int(pid))
	}
	sort.Ints(pids)

	var out []*pendingUnit
	for _, pid := range pids {
		if first, payload := as.byPID[uint16(pid)].flush(); first != nil {
			out = append(out, &pendingUnit{first: first, payload: payload})
		}
	}
	return out
}
