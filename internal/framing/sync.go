package framing

import (
	"errors"
	"fmt"
	"io"

	"github.com/zsiec/downlink/internal/streambuf"
)

// ErrASMTooShort is returned by NewSynchronizer when the attached sync
// marker is shorter than 2 bytes.
var ErrASMTooShort = errors.New("framing: attached sync marker must be at least 2 bytes")

// pattern is one of the 8 possible bit-shifted views of the ASM, used to
// scan a byte stream for a marker that may not be byte-aligned. shift is
// the bit offset within the first byte at which the marker begins; for
// shift > 0 the pattern is one byte longer than the ASM and its first and
// last bytes carry partial (masked) bits.
type pattern struct {
	shift int
	want  []byte
	mask  []byte
}

// bit returns the Loc bit value reported for a match on this pattern.
func (p pattern) bit() int {
	return (8 - p.shift) % 8
}

// Synchronizer scans a byte stream for an attached sync marker (ASM) and
// yields fixed-size codeblocks following each match, matching the CCSDS
// 131.0-B-5 frame synchronization procedure.
type Synchronizer struct {
	asm         []byte
	blockLength int
	patterns    []pattern
	buf         *streambuf.Buffer

	// lastShift is the bit shift in effect at the most recent sync match,
	// applied when realigning the following block.
	lastShift int
}

// NewSynchronizer builds a Synchronizer for the given ASM and fixed block
// length (the number of bytes following the marker that make up one
// codeblock, e.g. 1020 for an I=4 interleaved RS(255,223) codeblock).
func NewSynchronizer(r io.Reader, asm []byte, blockLength int) (*Synchronizer, error) {
	if len(asm) < 2 {
		return nil, ErrASMTooShort
	}
	return &Synchronizer{
		asm:         asm,
		blockLength: blockLength,
		patterns:    createPatterns(asm),
		buf:         streambuf.New(r),
	}, nil
}

// leftShift shifts every byte of dat left by k bits (0..7), pulling the
// vacated low bits from the following byte. The final byte's low k bits
// are left zero.
func leftShift(dat []byte, k int) []byte {
	out := make([]byte, len(dat))
	for i, b := range dat {
		out[i] = b << uint(k)
	}
	if k != 0 {
		for i := 0; i < len(dat)-1; i++ {
			out[i] |= dat[i+1] >> uint(8-k)
		}
	}
	return out
}

// createPatterns builds the byte-aligned pattern plus the 7 bit-shifted
// patterns for asm. Shifted patterns are formed by left-shifting a
// zero-padded copy of the ASM, with a matching significance mask so the
// junk bits preceding the marker and trailing it are ignored.
func createPatterns(asm []byte) []pattern {
	patterns := make([]pattern, 0, 8)

	mask := make([]byte, len(asm))
	for i := range mask {
		mask[i] = 0xff
	}
	patterns = append(patterns, pattern{shift: 0, want: append([]byte(nil), asm...), mask: mask})

	padded := append([]byte{0}, asm...)
	paddedMask := make([]byte, len(asm)+1)
	for i := 1; i < len(paddedMask); i++ {
		paddedMask[i] = 0xff
	}
	for shift := 1; shift < 8; shift++ {
		patterns = append(patterns, pattern{
			shift: shift,
			want:  leftShift(padded, 8-shift),
			mask:  leftShift(paddedMask, 8-shift),
		})
	}
	return patterns
}

// Scan consumes bytes from the underlying reader until it finds a location
// matching the ASM (at any of the 8 bit shifts) or the stream is exhausted.
// A false return with a nil error means clean end of stream.
//
// The returned Loc's Offset is one past the marker's trailing edge (the
// first byte holding block data); Bit is 0 for a byte-aligned marker, else
// the bit in the byte at Offset where the block data begins, counted such
// that a marker starting s bits into a byte reports Bit = 8-s.
func (s *Synchronizer) Scan() (Loc, bool, error) {
	working := make([]byte, 0, len(s.asm)+1)
	patternIdx := 0

nextPattern:
	for {
		p := s.patterns[patternIdx]
		working = working[:0]
		var b byte
		for byteIdx := range p.want {
			var err error
			b, err = s.buf.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return Loc{}, false, nil
				}
				return Loc{}, false, fmt.Errorf("framing: scan: %w", err)
			}
			working = append(working, b)

			if b&p.mask[byteIdx] != p.want[byteIdx] {
				patternIdx++
				if patternIdx == len(s.patterns) {
					// Every shift has been ruled out for this starting
					// byte: it's consumed for good, the rest goes back.
					patternIdx = 0
					s.buf.Push(working[1:])
				} else {
					s.buf.Push(working)
				}
				continue nextPattern
			}
		}

		loc := Loc{Offset: s.buf.Offset(), Bit: p.bit()}
		if loc.Bit == 0 {
			// Exact sync: block data starts at the next byte.
			loc.Offset++
		}
		if p.shift != 0 {
			// The last matched byte also carries the block's leading bits.
			s.buf.Push([]byte{b})
		}
		s.lastShift = p.shift
		return loc, true, nil
	}
}

// Block reads the blockLength bytes following the most recent sync match.
// If the marker was bit-shifted, one extra byte is read to cover the
// spillover, the block is realigned to byte boundaries, and the partially
// consumed trailing byte is pushed back so it can contribute to the next
// marker scan.
func (s *Synchronizer) Block() ([]byte, error) {
	n := s.blockLength
	if s.lastShift != 0 {
		n++
	}
	buf := make([]byte, n)
	ok, err := s.buf.Fill(buf)
	if err != nil {
		return nil, fmt.Errorf("framing: block: %w", err)
	}
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	if s.lastShift != 0 {
		s.buf.Push(buf[len(buf)-1:])
		buf = leftShift(buf, s.lastShift)
	}
	return buf[:s.blockLength], nil
}

// NextBlock scans for the next sync marker and returns the following block
// in one call, returning ok=false on clean end of stream. A partial block
// at the end of the stream is dropped.
func (s *Synchronizer) NextBlock() ([]byte, Loc, bool, error) {
	loc, ok, err := s.Scan()
	if err != nil || !ok {
		return nil, Loc{}, ok, err
	}
	block, err := s.Block()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, loc, false, nil
		}
		return nil, loc, false, err
	}
	return block, loc, true, nil
}
