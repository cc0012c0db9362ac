package merge

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/downlink/internal/spacepacket"
	"github.com/zsiec/downlink/internal/timecode"
)

// buildPacket encodes a minimal Space Packet: a 6-byte primary header
// followed by a CUC timecode (4-byte coarse seconds) as the packet's
// entire data field, so every packet can double as the timecode-bearing
// first packet of its group.
func buildPacket(apid uint16, seqFlags uint8, seqID uint16, coarseSecs uint32) []byte {
	dataLen := 4
	buf := make([]byte, 6+dataLen)
	word0 := uint16(0)<<15 | uint16(0)<<14 | uint16(0)<<13 | (apid & 0x7ff)
	buf[0] = byte(word0 >> 8)
	buf[1] = byte(word0)
	word1 := uint16(seqFlags)<<14 | (seqID & 0x3fff)
	buf[2] = byte(word1 >> 8)
	buf[3] = byte(word1)
	lenMinus1 := uint16(dataLen - 1)
	buf[4] = byte(lenMinus1 >> 8)
	buf[5] = byte(lenMinus1)
	buf[6] = byte(coarseSecs >> 24)
	buf[7] = byte(coarseSecs >> 16)
	buf[8] = byte(coarseSecs >> 8)
	buf[9] = byte(coarseSecs)
	return buf
}

func cucDecoder() *timecode.Decoder {
	d := timecode.NewDecoder()
	d.SetDefault(timecode.Format{Kind: timecode.CUC, NumCoarse: 4, NumFine: 0, FineMult: 1})
	return d
}

func TestMergeSingleFileUnsegmented(t *testing.T) {
	var file bytes.Buffer
	file.Write(buildPacket(100, spacepacket.SeqUnsegmented, 0, 10))
	file.Write(buildPacket(100, spacepacket.SeqUnsegmented, 1, 11))

	dir := t.TempDir() + "/a.dat"
	require.NoError(t, writeFile(dir, file.Bytes()))

	var out bytes.Buffer
	stats, err := NewMerger(cucDecoder()).Merge(&out, []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.GroupsWritten)
	assert.Equal(t, file.Bytes(), out.Bytes())
}

func TestMergeDedupAcrossFiles(t *testing.T) {
	pkt := buildPacket(200, spacepacket.SeqUnsegmented, 5, 42)

	pathA := t.TempDir() + "/a.dat"
	pathB := t.TempDir() + "/b.dat"
	require.NoError(t, writeFile(pathA, pkt))
	require.NoError(t, writeFile(pathB, pkt))

	var out bytes.Buffer
	stats, err := NewMerger(cucDecoder()).Merge(&out, []string{pathA, pathB})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GroupsWritten)
	assert.Equal(t, 1, stats.GroupsDeduped)
	assert.Equal(t, pkt, out.Bytes())
}

func TestMergeOrdersByTimeThenAPIDRank(t *testing.T) {
	var file bytes.Buffer
	file.Write(buildPacket(200, spacepacket.SeqUnsegmented, 0, 100)) // listed first: rank 4096
	file.Write(buildPacket(300, spacepacket.SeqUnsegmented, 0, 100)) // listed second: rank 4095
	file.Write(buildPacket(100, spacepacket.SeqUnsegmented, 0, 100)) // unlisted: rank 100

	dir := t.TempDir() + "/a.dat"
	require.NoError(t, writeFile(dir, file.Bytes()))

	var out bytes.Buffer
	_, err := NewMerger(cucDecoder()).WithAPIDOrder([]uint16{200, 300}).Merge(&out, []string{dir})
	require.NoError(t, err)

	// Same timecode throughout, so rank alone decides: the unlisted APID's
	// numeric rank sorts first, then the listed APIDs by 4096-index.
	want := append([]byte{}, buildPacket(100, spacepacket.SeqUnsegmented, 0, 100)...)
	want = append(want, buildPacket(300, spacepacket.SeqUnsegmented, 0, 100)...)
	want = append(want, buildPacket(200, spacepacket.SeqUnsegmented, 0, 100)...)
	assert.Equal(t, want, out.Bytes())
}

func TestMergeDropsIncompleteHead(t *testing.T) {
	var file bytes.Buffer
	// a stray Continuation with no preceding First: incomplete head, dropped.
	file.Write(buildPacket(400, spacepacket.SeqContinuation, 3, 1))
	file.Write(buildPacket(400, spacepacket.SeqLast, 4, 1))

	dir := t.TempDir() + "/a.dat"
	require.NoError(t, writeFile(dir, file.Bytes()))

	var out bytes.Buffer
	stats, err := NewMerger(cucDecoder()).Merge(&out, []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.GroupsWritten)
	assert.Empty(t, out.Bytes())
}

func TestMergeAPIDFilter(t *testing.T) {
	var file bytes.Buffer
	file.Write(buildPacket(1, spacepacket.SeqUnsegmented, 0, 1))
	file.Write(buildPacket(2, spacepacket.SeqUnsegmented, 0, 1))

	dir := t.TempDir() + "/a.dat"
	require.NoError(t, writeFile(dir, file.Bytes()))

	var out bytes.Buffer
	stats, err := NewMerger(cucDecoder()).WithAPIDs([]uint16{1}).Merge(&out, []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GroupsWritten)
	assert.Equal(t, buildPacket(1, spacepacket.SeqUnsegmented, 0, 1), out.Bytes())
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
