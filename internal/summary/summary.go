// Package summary maintains running aggregate statistics over a stream of
// decoded Space Packets, broken out per APID.
package summary

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/zsiec/downlink/internal/spacepacket"
	"github.com/zsiec/downlink/internal/timecode"
)

// ApidSummary is the running tally for one APID.
type ApidSummary struct {
	APID    uint16
	Count   int
	Bytes   int
	Missing int
	First   time.Time
	Last    time.Time

	lastSeqID uint16
	haveSeq   bool
}

// Summary observes a stream of packets (optionally timestamped) and
// maintains a per-APID ApidSummary, computing missing counts
// incrementally from each APID's sequence counter.
type Summary struct {
	apids map[uint16]*ApidSummary
}

// New returns an empty Summary.
func New() *Summary {
	return &Summary{apids: make(map[uint16]*ApidSummary)}
}

// Add folds one packet into the summary. t, if non-zero, is the packet's
// decoded timecode used to track the first/last-seen instants for its
// APID.
func (s *Summary) Add(pkt spacepacket.Packet, t timecode.Timecode) {
	apid := pkt.Header.APID
	a, ok := s.apids[apid]
	if !ok {
		a = &ApidSummary{APID: apid}
		s.apids[apid] = a
	}
	a.Count++
	a.Bytes += len(pkt.Data)
	if a.haveSeq {
		a.Missing += spacepacket.MissingPackets(a.lastSeqID, pkt.Header.SeqID)
	}
	a.lastSeqID = pkt.Header.SeqID
	a.haveSeq = true

	if t == (timecode.Timecode{}) {
		return
	}
	ct := t.Time()
	if a.First.IsZero() || ct.Before(a.First) {
		a.First = ct
	}
	if ct.After(a.Last) {
		a.Last = ct
	}
}

// APIDs returns the observed APIDs' summaries, sorted by APID for
// deterministic reporting.
func (s *Summary) APIDs() []ApidSummary {
	out := make([]ApidSummary, 0, len(s.apids))
	for _, a := range s.apids {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].APID < out[j].APID })
	return out
}

// Report renders a human-readable multi-line summary.
func (s *Summary) Report() string {
	var out string
	for _, a := range s.APIDs() {
		out += fmt.Sprintf(
			"apid %5d: %s packets, %s, missing=%d, first=%s last=%s\n",
			a.APID,
			humanize.Comma(int64(a.Count)),
			humanize.Bytes(uint64(a.Bytes)),
			a.Missing,
			a.First.Format(time.RFC3339Nano),
			a.Last.Format(time.RFC3339Nano),
		)
	}
	return out
}
