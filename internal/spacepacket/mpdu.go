package spacepacket

import "fmt"

// First header pointer reserved values.
const (
	// FHPFill means the MPDU carries no packet data at all (idle fill).
	FHPFill = 0x7fe
	// FHPNoHeader means the MPDU's payload is pure continuation data: no
	// packet starts within this frame.
	FHPNoHeader = 0x7ff
)

// MPDUHeader is the 2-byte header prefixing a Virtual Channel's frame data
// field, pointing to where (if anywhere) a new Space Packet begins.
type MPDUHeader struct {
	FirstHeaderPointer int
}

// HasHeader reports whether a packet primary header begins somewhere in
// this MPDU's payload.
func (h MPDUHeader) HasHeader() bool {
	return h.FirstHeaderPointer != FHPNoHeader && h.FirstHeaderPointer != FHPFill
}

// IsFill reports whether the MPDU carries only idle fill.
func (h MPDUHeader) IsFill() bool { return h.FirstHeaderPointer == FHPFill }

// DecodeMPDU splits a VCDU's frame data field into its MPDU header and
// payload.
func DecodeMPDU(frameData []byte) (MPDUHeader, []byte, error) {
	if len(frameData) < 2 {
		return MPDUHeader{}, nil, fmt.Errorf("spacepacket: mpdu header: got %d bytes, want at least 2", len(frameData))
	}
	fhp := int(uint16(frameData[0])<<8|uint16(frameData[1])) & 0x7ff
	return MPDUHeader{FirstHeaderPointer: fhp}, frameData[2:], nil
}

// extractComplete greedily decodes as many complete packets as possible
// from the front of buf, returning them along with whatever bytes remain
// (an in-progress trailing packet, or nothing).
func extractComplete(buf []byte) ([]Packet, []byte) {
	var out []Packet
	for {
		pkt, n, err := DecodePacket(buf)
		if err != nil {
			break
		}
		out = append(out, Packet{Header: pkt.Header, Data: append([]byte(nil), pkt.Data...)})
		buf = buf[n:]
	}
	return out, append([]byte(nil), buf...)
}

// VcidTracker reassembles Space Packets from a single Virtual Channel's
// sequence of frame data fields. It must see a frame whose first-header
// pointer marks a packet start before it can usefully consume NoHeader
// continuation frames; call Reset whenever a frame-counter gap or an
// unusable frame is detected upstream, since a lost frame makes any
// buffered partial packet unrecoverable.
type VcidTracker struct {
	cache  []byte
	synced bool
	// rsCorrected records whether any frame contributing to the current
	// cache was repaired by the FEC stage.
	rsCorrected bool
}

// NewVcidTracker returns an unsynchronized tracker.
func NewVcidTracker() *VcidTracker {
	return &VcidTracker{}
}

// Reset discards any buffered partial packet and drops synchronization,
// forcing the tracker to wait for the next frame carrying a usable first
// header pointer.
func (t *VcidTracker) Reset() {
	t.cache = nil
	t.synced = false
	t.rsCorrected = false
}

// AddFrame feeds one frame's MPDU payload (after MPDUHeader has already
// been stripped) and first header pointer into the tracker, returning any
// packets that became complete as a result.
//
// Once synchronized the whole payload belongs to this VCID and is appended
// as-is; packet boundaries come from the packet length fields, not the
// pointer. The pointer is consulted only to acquire synchronization.
func (t *VcidTracker) AddFrame(payload []byte, fhp int) []Packet {
	switch {
	case fhp == FHPFill:
		return nil
	case t.synced:
		t.cache = append(t.cache, payload...)
	case fhp == FHPNoHeader:
		// No way to get sync without a header.
		return nil
	default:
		if fhp > len(payload) {
			// A pointer past the payload means the configured frame
			// length is wrong; resynchronize rather than guess.
			t.Reset()
			return nil
		}
		t.cache = append([]byte(nil), payload[fhp:]...)
		t.synced = true
	}

	pkts, rest := extractComplete(t.cache)
	t.cache = rest
	return pkts
}
