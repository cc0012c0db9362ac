package framing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureMessage() []byte {
	msg := make([]byte, rsK)
	for i := range msg {
		msg[i] = byte(i*31 + 7)
	}
	return msg
}

// interleaveCodewords builds a wire-order codeblock from whole 255-byte
// codewords: byte j of codeword m lands at block[m + j*interleave].
func interleaveCodewords(codewords [][]byte) []byte {
	interleave := len(codewords)
	block := make([]byte, interleave*rsN)
	for m, cw := range codewords {
		for j, b := range cw {
			block[m+j*interleave] = b
		}
	}
	return block
}

func fixtureCodeblock(t *testing.T, interleave int) []byte {
	t.Helper()
	codewords := make([][]byte, interleave)
	for m := range codewords {
		msg := make([]byte, rsK)
		for i := range msg {
			msg[i] = byte((i + m*13) % 256)
		}
		parity, err := defaultRSCodec.encode(msg)
		require.NoError(t, err)
		codewords[m] = append(msg, parity...)
	}
	return interleaveCodewords(codewords)
}

func TestRSEncodeDecodeNoErrors(t *testing.T) {
	codec := defaultRSCodec
	msg := fixtureMessage()
	parity, err := codec.encode(msg)
	require.NoError(t, err)
	require.Len(t, parity, rsParity)

	codeword := append(append([]byte(nil), msg...), parity...)
	assert.False(t, codec.hasErrors(codeword))
	decoded, n, err := codec.decode(codeword)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, msg, decoded)
}

func TestRSCorrectsSingleByteError(t *testing.T) {
	codec := defaultRSCodec
	msg := fixtureMessage()
	parity, err := codec.encode(msg)
	require.NoError(t, err)
	codeword := append(append([]byte(nil), msg...), parity...)

	codeword[100] ^= 0xFF
	assert.True(t, codec.hasErrors(codeword))

	decoded, n, err := codec.decode(codeword)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, msg, decoded)
}

func TestRSCorrectsMaximumErrors(t *testing.T) {
	codec := defaultRSCodec
	msg := fixtureMessage()
	parity, err := codec.encode(msg)
	require.NoError(t, err)
	codeword := append(append([]byte(nil), msg...), parity...)

	for i := 0; i < rsT; i++ {
		codeword[i*7] ^= byte(0x55 + i)
	}

	decoded, n, err := codec.decode(codeword)
	require.NoError(t, err)
	assert.Equal(t, rsT, n)
	assert.Equal(t, msg, decoded)
}

func TestRSFailsBeyondCapacity(t *testing.T) {
	codec := defaultRSCodec
	msg := fixtureMessage()
	parity, err := codec.encode(msg)
	require.NoError(t, err)
	codeword := append(append([]byte(nil), msg...), parity...)

	for i := 0; i <= rsT; i++ {
		codeword[i*7] ^= byte(0x99 + i)
	}

	_, _, err = codec.decode(codeword)
	assert.Error(t, err)
}

func TestReedSolomonPerformCleanBlock(t *testing.T) {
	const interleave = 4
	rs, err := NewReedSolomon(interleave)
	require.NoError(t, err)

	block := fixtureCodeblock(t, interleave)
	data, integrity, err := rs.Perform(VCDUHeader{VCID: 1}, block)
	require.NoError(t, err)
	assert.True(t, integrity.Usable())
	assert.Equal(t, block[:interleave*rsK], data)
}

func TestReedSolomonPerformCorrectsInterleaved(t *testing.T) {
	const interleave = 4
	rs, err := NewReedSolomon(interleave)
	require.NoError(t, err)

	block := fixtureCodeblock(t, interleave)
	want := append([]byte(nil), block[:interleave*rsK]...)

	corrupt := append([]byte(nil), block...)
	corrupt[100] ^= 1

	data, integrity, err := rs.Perform(VCDUHeader{VCID: 1}, corrupt)
	require.NoError(t, err)
	n, isCorrected := integrity.CorrectedCount()
	assert.True(t, isCorrected)
	assert.GreaterOrEqual(t, n, 1)
	assert.Equal(t, want, data, "corrected data must equal the pre-corruption frame bytes in stream order")
}

func TestReedSolomonPerformUncorrectable(t *testing.T) {
	const interleave = 1
	rs, err := NewReedSolomon(interleave)
	require.NoError(t, err)

	block := fixtureCodeblock(t, interleave)
	corrupt := append([]byte(nil), block...)
	for i := 0; i <= rsT; i++ {
		corrupt[i*7] ^= byte(0x99 + i)
	}

	data, integrity, err := rs.Perform(VCDUHeader{VCID: 1}, corrupt)
	require.NoError(t, err)
	assert.False(t, integrity.IntegrityOK())
	assert.Equal(t, corrupt[:rsK], data, "uncorrectable data is the received bytes minus parity")
}

func TestReedSolomonPerformDetectionOnly(t *testing.T) {
	const interleave = 1
	rs, err := NewReedSolomon(interleave)
	require.NoError(t, err)
	rs.Correct = false

	block := fixtureCodeblock(t, interleave)
	corrupt := append([]byte(nil), block...)
	corrupt[10] ^= 0x40

	data, integrity, err := rs.Perform(VCDUHeader{VCID: 1}, corrupt)
	require.NoError(t, err)
	assert.False(t, integrity.IntegrityOK())
	assert.Equal(t, corrupt, data, "not-corrected blocks are returned unchanged, parity included")
}

func TestReedSolomonPerformSkipsFillFrames(t *testing.T) {
	const interleave = 2
	rs, err := NewReedSolomon(interleave)
	require.NoError(t, err)

	// Garbage block: never touched because the fill VCID short-circuits.
	block := make([]byte, interleave*rsN)
	for i := range block {
		block[i] = byte(i)
	}
	data, integrity, err := rs.Perform(VCDUHeader{VCID: FillVCID}, block)
	require.NoError(t, err)
	assert.True(t, integrity.IntegrityOK())
	assert.False(t, integrity.Usable())
	assert.Equal(t, block[:interleave*rsK], data)
}

func TestReedSolomonPerformVirtualFill(t *testing.T) {
	const interleave = 1
	rs, err := NewReedSolomon(interleave)
	require.NoError(t, err)
	rs.VirtualFill = 10

	// Encode a message whose first 10 bytes are zero, then omit them from
	// the wire block as virtual fill.
	msg := make([]byte, rsK)
	for i := 10; i < rsK; i++ {
		msg[i] = byte(i)
	}
	parity, err := defaultRSCodec.encode(msg)
	require.NoError(t, err)
	full := append(append([]byte(nil), msg...), parity...)
	wire := full[10:]

	data, integrity, err := rs.Perform(VCDUHeader{VCID: 1}, wire)
	require.NoError(t, err)
	assert.True(t, integrity.Usable())
	assert.Equal(t, msg[10:], data)
}

func TestReedSolomonEncodePerformRoundTrip(t *testing.T) {
	for _, interleave := range []int{1, 4} {
		rs, err := NewReedSolomon(interleave)
		require.NoError(t, err)

		frame := make([]byte, interleave*rsK)
		for i := range frame {
			frame[i] = byte(i*3 + 1)
		}
		block, err := rs.Encode(frame)
		require.NoError(t, err)
		require.Len(t, block, interleave*rsN)

		data, integrity, err := rs.Perform(VCDUHeader{VCID: 1}, block)
		require.NoError(t, err)
		assert.True(t, integrity.Usable(), "interleave=%d", interleave)
		assert.Equal(t, frame, data, "interleave=%d", interleave)
	}
}

func TestReedSolomonPerformRejectsWrongSize(t *testing.T) {
	rs, err := NewReedSolomon(2)
	require.NoError(t, err)
	_, _, err = rs.Perform(VCDUHeader{VCID: 1}, make([]byte, 10))
	assert.Error(t, err)
}

func TestNewReedSolomonRejectsBadInterleave(t *testing.T) {
	_, err := NewReedSolomon(0)
	assert.Error(t, err)
	_, err = NewReedSolomon(9)
	assert.Error(t, err)
}

func TestCRC32IntegrityAlwaysFails(t *testing.T) {
	alg := CRC32Integrity{}
	data, integrity, err := alg.Perform(VCDUHeader{VCID: 1}, []byte{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.False(t, integrity.IntegrityOK())
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, data)
}
