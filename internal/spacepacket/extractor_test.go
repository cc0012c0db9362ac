package spacepacket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/downlink/internal/framing"
)

// mpduFrame builds a framing.Frame carrying a single MPDU: a placeholder
// 6-byte VCDU header, a 2-byte first header pointer, and payload, with Ok
// integrity and the given missing count. Callers needing a different
// integrity outcome override the returned Frame's Integrity field.
func mpduFrame(vcid uint8, missing int, fhp int, payload []byte) framing.Frame {
	data := make([]byte, 8, 8+len(payload))
	v := uint16(fhp) & 0x7ff
	data[6] = byte(v >> 8)
	data[7] = byte(v)
	data = append(data, payload...)

	return framing.Frame{
		Header:    framing.VCDUHeader{Version: framing.VersionAOS, VCID: vcid},
		Data:      data,
		Integrity: framing.NewOkIntegrity(),
		Missing:   missing,
	}
}

func TestExtractorAssemblesPacketAcrossFrames(t *testing.T) {
	e := NewExtractor(0, 0)

	pkt := buildRawPacket(t, 10, SeqUnsegmented, 0, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	first, second := pkt[:4], pkt[4:]

	pkts, err := e.Add(mpduFrame(1, 0, 0, first))
	require.NoError(t, err)
	assert.Empty(t, pkts)

	pkts, err = e.Add(mpduFrame(1, 0, 0x7ff, second))
	require.NoError(t, err)
	require.Len(t, pkts, 1)
	assert.Equal(t, uint16(10), pkts[0].Header.APID)
	assert.Equal(t, pkt, pkts[0].Data)
}

func TestExtractorDropsSyncOnFailedIntegrity(t *testing.T) {
	e := NewExtractor(0, 0)
	pkt := buildRawPacket(t, 11, SeqUnsegmented, 0, []byte{0x01, 0x02})

	_, err := e.Add(mpduFrame(2, 0, 0, pkt[:2]))
	require.NoError(t, err)

	failed := mpduFrame(2, 0, 0x7ff, pkt[2:])
	failed.Integrity = framing.NewUncorrectableIntegrity()
	pkts, err := e.Add(failed)
	require.NoError(t, err)
	assert.Empty(t, pkts)

	// sync was dropped: a subsequent no-header frame produces nothing
	// until a fresh first-header-pointer re-establishes it.
	pkts, err = e.Add(mpduFrame(2, 0, 0x7ff, []byte{0xFF}))
	require.NoError(t, err)
	assert.Empty(t, pkts)
}

func TestExtractorGapDropsCacheButUsesCurrentFrame(t *testing.T) {
	e := NewExtractor(0, 0)
	stale := buildRawPacket(t, 12, SeqUnsegmented, 0, []byte{9, 9, 9, 9})
	fresh := buildRawPacket(t, 13, SeqUnsegmented, 1, []byte{1, 2})

	// Begin a packet, then lose frames: the partial cache must go, but
	// the gapped frame's own pointer re-establishes sync immediately.
	_, err := e.Add(mpduFrame(3, 0, 0, stale[:5]))
	require.NoError(t, err)

	pkts, err := e.Add(mpduFrame(3, 2, 0, fresh))
	require.NoError(t, err)
	require.Len(t, pkts, 1)
	assert.Equal(t, uint16(13), pkts[0].Header.APID)
}

func TestExtractorStripsIZoneAndTrailer(t *testing.T) {
	e := NewExtractor(2, 1)
	pkt := buildRawPacket(t, 14, SeqUnsegmented, 0, []byte{0x0A, 0x0B})

	frame := mpduFrame(4, 0, 0, pkt)
	// Rebuild the frame data with an insert zone between the VCDU header
	// and the MPDU, and a trailing byte.
	data := append([]byte(nil), frame.Data[:6]...)
	data = append(data, 0xEE, 0xEE) // insert zone
	data = append(data, frame.Data[6:]...)
	data = append(data, 0xFF) // trailer
	frame.Data = data

	pkts, err := e.Add(frame)
	require.NoError(t, err)
	require.Len(t, pkts, 1)
	assert.Equal(t, pkt, pkts[0].Data)
}

func TestExtractorFillVCIDSkipped(t *testing.T) {
	e := NewExtractor(0, 0)
	pkts, err := e.Add(mpduFrame(framing.FillVCID, 0, 0, []byte{0x00}))
	require.NoError(t, err)
	assert.Nil(t, pkts)
}

// buildRawPacket encodes a minimal primary header plus data of length
// len(data) for use as raw MPDU payload bytes in tests.
func buildRawPacket(t *testing.T, apid uint16, seqFlags uint8, seqID uint16, data []byte) []byte {
	t.Helper()
	buf := make([]byte, 6+len(data))
	word0 := apid & 0x7ff
	buf[0] = byte(word0 >> 8)
	buf[1] = byte(word0)
	word1 := uint16(seqFlags)<<14 | (seqID & 0x3fff)
	buf[2] = byte(word1 >> 8)
	buf[3] = byte(word1)
	lenMinus1 := uint16(len(data) - 1)
	buf[4] = byte(lenMinus1 >> 8)
	buf[5] = byte(lenMinus1)
	copy(buf[6:], data)
	return buf
}
