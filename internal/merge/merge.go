// Package merge combines multiple Space Packet stream files into a single
// time-ordered, de-duplicated, optionally filtered output stream.
package merge

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/zsiec/downlink/internal/spacepacket"
	"github.com/zsiec/downlink/internal/timecode"
)

// entry is one candidate group for the merged output: a packet group plus
// enough bookkeeping to filter, de-duplicate, order, and seek-copy it.
type entry struct {
	group  spacepacket.PacketGroup
	path   string
	offset int64
	size   int64
	order  int
	t      timecode.Timecode
}

// dedupKey identifies logically identical groups across input files,
// independent of which file, offset, or sort rank they were found at.
type dedupKey struct {
	apid  uint16
	nanos int64
	seqID uint16
}

// Stats reports what a Merge call did, for CLI diagnostics.
type Stats struct {
	FilesRead        int
	GroupsConsidered int
	GroupsFiltered   int
	GroupsDeduped    int
	GroupsWritten    int
	BytesWritten     int64
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"read %d files, %d groups considered, %d filtered out, %d duplicates dropped, %d written (%s)",
		s.FilesRead, s.GroupsConsidered, s.GroupsFiltered, s.GroupsDeduped, s.GroupsWritten,
		humanize.Bytes(uint64(s.BytesWritten)),
	)
}

// Merger merges Space Packet files subject to a time window and APID
// allow-list.
type Merger struct {
	tdec  *timecode.Decoder
	after time.Time
	// before is exclusive: the window is the half-open interval
	// [after, before).
	before time.Time
	apids  map[uint16]bool
	// order maps an APID to its sort rank when several APIDs share a
	// timecode at merge time: a listed APID at position i ranks 4096-i,
	// well clear of the 0..2047 numeric ranks unlisted APIDs get.
	order map[uint16]int
}

// defaultAfter and defaultBefore bound an effectively unrestricted window.
var (
	defaultAfter  = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultBefore = time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
)

// NewMerger returns a Merger with an unrestricted time window and no APID
// filter, decoding timecodes with tdec.
func NewMerger(tdec *timecode.Decoder) *Merger {
	return &Merger{tdec: tdec, after: defaultAfter, before: defaultBefore}
}

// WithWindow restricts the merge to groups whose representative timecode
// falls in the half-open interval [after, before). A zero time.Time leaves
// that bound at its default.
func (m *Merger) WithWindow(after, before time.Time) *Merger {
	if !after.IsZero() {
		m.after = after
	}
	if !before.IsZero() {
		m.before = before
	}
	return m
}

// WithAPIDs restricts the merge to the given APIDs. An empty slice leaves
// the merger unrestricted.
func (m *Merger) WithAPIDs(apids []uint16) *Merger {
	if len(apids) == 0 {
		m.apids = nil
		return m
	}
	set := make(map[uint16]bool, len(apids))
	for _, a := range apids {
		set[a] = true
	}
	m.apids = set
	return m
}

// WithAPIDOrder sets the tiebreak rank used when multiple APIDs share a
// timecode: the APID at position i ranks 4096-i, and an APID not present
// in apids ranks by its own numeric value. An empty slice clears the
// ranking (every APID then ranks by its own number).
func (m *Merger) WithAPIDOrder(apids []uint16) *Merger {
	if len(apids) == 0 {
		m.order = nil
		return m
	}
	rank := make(map[uint16]int, len(apids))
	for i, a := range apids {
		rank[a] = 4096 - i
	}
	m.order = rank
	return m
}

// rankOf returns apid's sort rank: 4096 minus its position in the
// configured APID-order list if one was provided and apid appears in it,
// otherwise apid's own numeric value.
func (m *Merger) rankOf(apid uint16) int {
	if m.order != nil {
		if r, ok := m.order[apid]; ok {
			return r
		}
	}
	return int(apid)
}

// Merge scans every path as a concatenated Space Packet stream, filters
// and de-duplicates the resulting groups, and writes them to w in
// (time, order) order. Each input stays open for the duration with its
// own cursor; the output phase seeks back to each surviving group's span
// and copies it verbatim.
func (m *Merger) Merge(w io.Writer, paths []string) (Stats, error) {
	var stats Stats
	var entries []entry
	files := make(map[string]*os.File, len(paths))
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return stats, fmt.Errorf("merge: %s: %w", path, err)
		}
		files[path] = f
		stats.FilesRead++

		es, err := m.scanFile(path, bufio.NewReader(f))
		if err != nil {
			return stats, fmt.Errorf("merge: %s: %w", path, err)
		}
		entries = append(entries, es...)
	}
	stats.GroupsConsidered = len(entries)

	var kept []entry
	for _, e := range entries {
		// An incomplete head (a group whose first packet is a stray
		// Continuation or Last with no preceding First) has no usable
		// timecode-bearing packet and is dropped rather than merged.
		first := e.group.Packets[0].Header
		if !first.IsFirst() && !first.IsStandalone() {
			stats.GroupsFiltered++
			continue
		}
		if m.apids != nil && !m.apids[e.group.APID] {
			stats.GroupsFiltered++
			continue
		}
		ct := e.t.Time()
		if ct.Before(m.after) || !ct.Before(m.before) {
			stats.GroupsFiltered++
			continue
		}
		kept = append(kept, e)
	}

	seen := make(map[dedupKey]bool, len(kept))
	var deduped []entry
	for _, e := range kept {
		key := dedupKey{apid: e.group.APID, nanos: e.t.NanosSince1958, seqID: e.group.Packets[0].Header.SeqID}
		if seen[key] {
			stats.GroupsDeduped++
			continue
		}
		seen[key] = true
		deduped = append(deduped, e)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		ti, tj := deduped[i].t.NanosSince1958, deduped[j].t.NanosSince1958
		if ti != tj {
			return ti < tj
		}
		return deduped[i].order < deduped[j].order
	})

	for _, e := range deduped {
		f := files[e.path]
		if _, err := f.Seek(e.offset, io.SeekStart); err != nil {
			return stats, fmt.Errorf("merge: seek %s: %w", e.path, err)
		}
		n, err := io.CopyN(w, f, e.size)
		stats.BytesWritten += n
		if err != nil {
			return stats, fmt.Errorf("merge: copy %s: %w", e.path, err)
		}
		stats.GroupsWritten++
	}

	return stats, nil
}

// scanFile walks r as a sequential Space Packet stream, passing each
// packet through a spacepacket.Grouper (so interleaved APIDs fragment each
// other's groups exactly as the live decode pipeline would), and records
// each closed group's byte span within the file. The trailing group still
// in progress at EOF, if any, is flushed and included too; Merge drops it
// as an incomplete head if it doesn't start with a First or Unsegmented
// packet. A truncated trailing packet ends the scan; any other read error
// aborts it.
func (m *Merger) scanFile(path string, r *bufio.Reader) ([]entry, error) {
	var entries []entry
	grouper := spacepacket.NewGrouper()
	var offset int64

	for {
		pkt, n, err := readPacket(r)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			slog.Warn("truncated trailing packet, ignoring", "path", path, "offset", offset)
			break
		}
		if err != nil {
			return nil, err
		}
		pkt.Offset = offset
		offset += int64(n)

		for _, grp := range grouper.Add(pkt) {
			if e, ok := m.makeEntry(grp, path); ok {
				entries = append(entries, e)
			}
		}
	}

	for _, grp := range grouper.Flush() {
		if e, ok := m.makeEntry(grp, path); ok {
			entries = append(entries, e)
		}
	}

	return entries, nil
}

// readPacket reads one whole Space Packet from r: a 6-byte primary header
// followed by the data field the header's length describes. io.EOF means a
// clean end between packets; io.ErrUnexpectedEOF means the stream ended
// mid-packet.
func readPacket(r *bufio.Reader) (spacepacket.Packet, int, error) {
	header := make([]byte, spacepacket.PrimaryHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return spacepacket.Packet{}, 0, io.ErrUnexpectedEOF
		}
		return spacepacket.Packet{}, 0, err
	}
	h, err := spacepacket.DecodePrimaryHeader(header)
	if err != nil {
		return spacepacket.Packet{}, 0, err
	}

	buf := make([]byte, spacepacket.PrimaryHeaderLen+h.PacketLength())
	copy(buf, header)
	if _, err := io.ReadFull(r, buf[spacepacket.PrimaryHeaderLen:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return spacepacket.Packet{}, 0, err
	}
	return spacepacket.Packet{Header: h, Data: buf}, len(buf), nil
}

// makeEntry derives the group's byte span in path from its member packets'
// recorded offsets (every packet decoded from path lands in exactly one
// group, so a group's members are always file-contiguous) and decodes the
// group's representative timecode from its first packet. A group whose
// timecode cannot be decoded is dropped with a diagnostic; without a time
// there is nothing to merge it by.
func (m *Merger) makeEntry(group spacepacket.PacketGroup, path string) (entry, bool) {
	if len(group.Packets) == 0 {
		return entry{}, false
	}
	first := group.Packets[0]
	last := group.Packets[len(group.Packets)-1]
	offset := first.Offset
	size := last.Offset + int64(len(last.Data)) - offset

	var tc timecode.Timecode
	if m.tdec != nil {
		t, err := m.tdec.Decode(group.APID, first.UserData())
		if err != nil {
			slog.Warn("timecode decode failed, dropping group",
				"apid", group.APID, "path", path, "error", err)
			return entry{}, false
		}
		tc = t
	}
	return entry{group: group, path: path, offset: offset, size: size, order: m.rankOf(group.APID), t: tc}, true
}
