package framing

import "fmt"

// IntegrityAlgorithm is the capability interface for codeblock error
// control, allowing callers to supply an alternative to the default
// interleaved Reed-Solomon stage (e.g. CRC32Integrity, or a no-op for
// uncoded streams).
type IntegrityAlgorithm interface {
	// Perform checks and, where possible, corrects block. The returned
	// bytes are the frame data with parity stripped when the Integrity is
	// Ok, Corrected, or Skipped; for the error dispositions the input is
	// returned best-effort (see each variant's documentation).
	Perform(header VCDUHeader, block []byte) ([]byte, Integrity, error)
}

// ReedSolomon is the default IntegrityAlgorithm: interleaved RS(255,223)
// detection/correction laid out as in CCSDS 131.0-B-5 Section 4. The code
// itself is a conventional-basis RS(255,223) over GF(2^8) with field
// polynomial 0x11D, alpha = 2 and generator roots alpha^0..alpha^31; it
// applies no dual-basis transformation and does not use CCSDS's first
// consecutive root 112 or root spacing 11, so it checks and corrects
// codeblocks produced by Encode, not those of a CCSDS-parameter encoder.
type ReedSolomon struct {
	codec *rsCodec
	// Interleave is the interleaving depth I (1..8): the block is composed
	// of I byte-interleaved RS(255,223) codewords.
	Interleave int
	// VirtualFill is the number of zero bytes the transmitter omitted from
	// the front of each codeblock (spread across the interleaved
	// codewords); they are re-inserted before decoding and stripped from
	// the output. A virtually filled codeblock is correspondingly shorter
	// than Interleave*255 on the wire.
	VirtualFill int
	// Correct enables error correction; when false, errors are detected
	// but left in place and the block is reported NotCorrected.
	Correct bool
	// Detect enables the algorithm at all; when false, blocks are passed
	// through with parity stripped and reported Skipped.
	Detect bool
}

// NewReedSolomon returns a ReedSolomon integrity stage with detection and
// correction enabled and no virtual fill, matching CCSDS's typical
// configuration.
func NewReedSolomon(interleave int) (*ReedSolomon, error) {
	if interleave < 1 || interleave > 8 {
		return nil, fmt.Errorf("framing: reed-solomon: interleave depth must be 1..8, got %d", interleave)
	}
	return &ReedSolomon{
		codec:      defaultRSCodec,
		Interleave: interleave,
		Correct:    true,
		Detect:     true,
	}, nil
}

// Perform implements IntegrityAlgorithm. Parity is stripped for Ok,
// Corrected, Skipped, and Uncorrectable results; a NotCorrected block is
// returned exactly as received, parity included.
func (rs *ReedSolomon) Perform(header VCDUHeader, block []byte) ([]byte, Integrity, error) {
	if len(block)+rs.VirtualFill != rs.Interleave*rsN {
		return nil, Integrity{}, fmt.Errorf(
			"framing: reed-solomon: codeblock len=%d cannot be corrected with interleave=%d virtual fill=%d",
			len(block), rs.Interleave, rs.VirtualFill)
	}
	if header.VCID == FillVCID || !rs.Detect {
		return rs.stripParity(block), skippedIntegrity(), nil
	}

	filled := block
	if rs.VirtualFill > 0 {
		filled = append(make([]byte, rs.VirtualFill, rs.VirtualFill+len(block)), block...)
	}

	codewords := deinterleave(filled, rs.Interleave)
	corrected := make([]byte, len(filled))
	totalCorrected := 0

	for m, cw := range codewords {
		if !rs.Correct && rs.codec.hasErrors(cw) {
			return append([]byte(nil), block...), notCorrectedIntegrity(), nil
		}
		msg, n, err := rs.codec.decode(cw)
		if err != nil {
			return rs.stripParity(block), uncorrectableIntegrity(), nil
		}
		totalCorrected += n
		// Reinterleave the corrected message back into stream order; the
		// parity positions are never read again, so only message bytes
		// need placing.
		for j, b := range msg {
			corrected[m+j*rs.Interleave] = b
		}
	}

	data := corrected[:len(filled)-rs.Interleave*rsParity]
	data = append([]byte(nil), data[rs.VirtualFill:]...)
	if totalCorrected == 0 {
		return data, okIntegrity(), nil
	}
	return data, correctedIntegrity(totalCorrected), nil
}

// Encode produces the wire codeblock for frame: the frame bytes followed
// by Interleave*32 check symbols in interleaved order, minus any virtual
// fill. The frame must be Interleave*223 - VirtualFill bytes. The inverse
// of Perform for clean blocks; used by tests and link simulation.
func (rs *ReedSolomon) Encode(frame []byte) ([]byte, error) {
	want := rs.Interleave*rsK - rs.VirtualFill
	if len(frame) != want {
		return nil, fmt.Errorf("framing: reed-solomon: frame must be %d bytes (interleave=%d, virtual fill=%d), got %d",
			want, rs.Interleave, rs.VirtualFill, len(frame))
	}

	filled := frame
	if rs.VirtualFill > 0 {
		filled = append(make([]byte, rs.VirtualFill, rs.VirtualFill+len(frame)), frame...)
	}

	out := make([]byte, rs.Interleave*rsN)
	copy(out, filled)
	for m := 0; m < rs.Interleave; m++ {
		msg := make([]byte, rsK)
		for j := 0; j < rsK; j++ {
			msg[j] = filled[m+j*rs.Interleave]
		}
		parity, err := rs.codec.encode(msg)
		if err != nil {
			return nil, err
		}
		for j, b := range parity {
			out[m+(rsK+j)*rs.Interleave] = b
		}
	}
	return out[rs.VirtualFill:], nil
}

// stripParity removes the trailing interleave*32 parity bytes without
// touching the data bytes; in stream order all parity sits at the tail of
// the codeblock.
func (rs *ReedSolomon) stripParity(block []byte) []byte {
	return append([]byte(nil), block[:len(block)-rs.Interleave*rsParity]...)
}

// deinterleave splits a block of I*255 bytes into I codewords of 255 bytes
// each: byte j of the interleaved stream belongs to codeword j mod I at
// position j div I.
func deinterleave(block []byte, interleave int) [][]byte {
	codewords := make([][]byte, interleave)
	for m := 0; m < interleave; m++ {
		cw := make([]byte, rsN)
		for j := 0; j < rsN; j++ {
			cw[j] = block[m+j*interleave]
		}
		codewords[m] = cw
	}
	return codewords
}

// CRC32Integrity is a stub IntegrityAlgorithm for TM Transfer Frame CRC32
// trailers. It always reports Failed: CRC32 verification is not
// implemented, but the type exists so a caller can wire it in without an
// interface change.
type CRC32Integrity struct{}

// Perform implements IntegrityAlgorithm. It never validates the trailer.
func (CRC32Integrity) Perform(_ VCDUHeader, block []byte) ([]byte, Integrity, error) {
	if len(block) < 4 {
		return nil, Integrity{}, fmt.Errorf("framing: crc32 integrity: block shorter than a CRC32 trailer")
	}
	return block, failedIntegrity(), nil
}
