package spacepacket

import "github.com/zsiec/downlink/internal/framing"

// Extractor reassembles Space Packets from a stream of decoded transfer
// frames spanning potentially many Virtual Channels. It owns one
// VcidTracker per VCID and applies the frame-integrity/gap discipline that
// keeps a corrupt or lost frame from poisoning later packets on the same
// channel: a frame that fails its integrity check (IntegrityOK false), or a
// missing-frame gap, silently drops that
// VCID's cache and its synchronization; the loss is already observable via
// the frame's own Missing counter. Corrupt and missing data are handled
// identically on purpose.
type Extractor struct {
	izoneLength   int
	trailerLength int
	trackers      map[uint8]*VcidTracker
}

// NewExtractor returns an Extractor for frames carrying an insert zone
// and/or trailer of the given lengths (both usually zero).
func NewExtractor(izoneLength, trailerLength int) *Extractor {
	return &Extractor{
		izoneLength:   izoneLength,
		trailerLength: trailerLength,
		trackers:      make(map[uint8]*VcidTracker),
	}
}

// Add feeds one decoded frame into its VCID's tracker and returns any
// packets that became complete as a result. A frame whose integrity check
// failed outright loses its VCID's sync and contributes no packets. A
// frame-counter gap also drops sync, but the frame's own MPDU is still
// processed; its first-header pointer can re-establish sync immediately.
func (e *Extractor) Add(frame framing.Frame) ([]Packet, error) {
	if frame.IsFill() {
		return nil, nil
	}
	t := e.tracker(frame.Header.VCID)

	if !frame.Integrity.IntegrityOK() {
		t.Reset()
		return nil, nil
	}
	if frame.Missing > 0 {
		t.Reset()
	}
	if _, corrected := frame.Integrity.CorrectedCount(); corrected {
		t.rsCorrected = true
	}

	payload, err := frame.Payload(e.izoneLength, e.trailerLength)
	if err != nil {
		t.Reset()
		return nil, err
	}
	header, mpduPayload, err := DecodeMPDU(payload)
	if err != nil {
		t.Reset()
		return nil, err
	}
	return t.AddFrame(mpduPayload, header.FirstHeaderPointer), nil
}

// tracker returns (creating if necessary) the VcidTracker for vcid.
func (e *Extractor) tracker(vcid uint8) *VcidTracker {
	t, ok := e.trackers[vcid]
	if !ok {
		t = NewVcidTracker()
		e.trackers[vcid] = t
	}
	return t
}
