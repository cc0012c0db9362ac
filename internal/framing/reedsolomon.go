package framing

import "fmt"

// RS(255,223) constants: n total symbols, k message symbols, 2t parity
// symbols, capable of correcting up to t symbol errors per codeword.
const (
	rsN      = 255
	rsK      = 223
	rsParity = rsN - rsK // 32
	rsT      = rsParity / 2
)

// rsCodec implements a classical Reed-Solomon(255,223) encoder/decoder over
// GF(256), following the generator-polynomial/syndrome/Berlekamp-Massey/
// Chien-search/Forney structure common to public-domain RS codecs.
type rsCodec struct {
	gf        *gf256
	generator []byte // monic, degree rsParity, highest-degree coefficient first
}

func newRSCodec() *rsCodec {
	g := defaultGF
	gen := []byte{1}
	for i := 0; i < rsParity; i++ {
		gen = polyMul(g, gen, []byte{1, g.exp(i)})
	}
	return &rsCodec{gf: g, generator: gen}
}

var defaultRSCodec = newRSCodec()

// polyMul multiplies two polynomials given low-degree-coefficient-first,
// returning the product in the same convention.
func polyMul(g *gf256, a, b []byte) []byte {
	out := make([]byte, len(a)+len(b)-1)
	for i, ca := range a {
		if ca == 0 {
			continue
		}
		for j, cb := range b {
			out[i+j] ^= g.mul(ca, cb)
		}
	}
	return out
}

// encode produces the 32 parity bytes for a 223-byte message, computed via
// the standard LFSR-based systematic RS encoder.
func (rs *rsCodec) encode(msg []byte) ([]byte, error) {
	if len(msg) != rsK {
		return nil, fmt.Errorf("framing: rs encode: message must be %d bytes, got %d", rsK, len(msg))
	}
	g := rs.gf
	parity := make([]byte, rsParity)
	for _, b := range msg {
		feedback := b ^ parity[0]
		copy(parity, parity[1:])
		parity[len(parity)-1] = 0
		if feedback != 0 {
			for j := 0; j < len(parity); j++ {
				parity[j] ^= g.mul(rs.generator[j+1], feedback)
			}
		}
	}
	return parity, nil
}

// hasErrors reports whether any syndrome of the received 255-byte codeword
// is non-zero, without attempting correction.
func (rs *rsCodec) hasErrors(received []byte) bool {
	if len(received) != rsN {
		return true
	}
	g := rs.gf
	for i := 0; i < rsParity; i++ {
		if g.polyEval(received, g.exp(i)) != 0 {
			return true
		}
	}
	return false
}

// decode corrects up to rsT symbol errors in a 255-byte received codeword
// (message || parity, both high-degree-coefficient-first, matching
// transmission order) and returns the corrected 223-byte message and the
// number of symbols corrected. An error is returned when more errors are
// present than the code can correct (detected via a non-degree-matching
// error locator or a failed Chien search).
func (rs *rsCodec) decode(received []byte) ([]byte, int, error) {
	if len(received) != rsN {
		return nil, 0, fmt.Errorf("framing: rs decode: codeword must be %d bytes, got %d", rsN, len(received))
	}
	g := rs.gf

	syndromes := make([]byte, rsParity)
	allZero := true
	for i := range syndromes {
		syndromes[i] = g.polyEval(received, g.exp(i))
		if syndromes[i] != 0 {
			allZero = false
		}
	}
	if allZero {
		out := make([]byte, rsK)
		copy(out, received[:rsK])
		return out, 0, nil
	}

	sigma := berlekampMassey(g, syndromes)
	numErrors := len(sigma) - 1
	if numErrors <= 0 || numErrors > rsT {
		return nil, 0, fmt.Errorf("framing: rs decode: too many errors to correct")
	}

	positions, err := chienSearch(g, sigma, numErrors)
	if err != nil {
		return nil, 0, err
	}

	omega := polyMul(g, syndromes, sigma)
	if len(omega) > rsParity {
		omega = omega[:rsParity]
	}
	deriv := polyFormalDerivative(sigma)

	corrected := append([]byte(nil), received...)
	for _, pos := range positions {
		power := rsN - 1 - pos
		xk := g.exp(power)
		xkInv := g.inv(xk)
		omegaVal := g.polyEvalLow(omega, xkInv)
		derivVal := g.polyEvalLow(deriv, xkInv)
		if derivVal == 0 {
			return nil, 0, fmt.Errorf("framing: rs decode: forney algorithm singular, uncorrectable")
		}
		magnitude := g.mul(xk, g.div(omegaVal, derivVal))
		corrected[pos] ^= magnitude
	}

	// Verify: recomputed syndromes of the corrected word must all be zero.
	for i := 0; i < rsParity; i++ {
		if g.polyEval(corrected, g.exp(i)) != 0 {
			return nil, 0, fmt.Errorf("framing: rs decode: correction failed verification")
		}
	}

	out := make([]byte, rsK)
	copy(out, corrected[:rsK])
	return out, len(positions), nil
}

// berlekampMassey computes the error locator polynomial (low-degree-first,
// constant term 1) for the given syndrome sequence.
func berlekampMassey(g *gf256, s []byte) []byte {
	n := len(s)
	C := make([]byte, n+1)
	B := make([]byte, n+1)
	C[0] = 1
	B[0] = 1
	L := 0
	m := 1
	b := byte(1)

	for i := 0; i < n; i++ {
		delta := s[i]
		for j := 1; j <= L; j++ {
			delta ^= g.mul(C[j], s[i-j])
		}
		if delta == 0 {
			m++
			continue
		}
		coef := g.div(delta, b)
		if 2*L <= i {
			T := append([]byte(nil), C...)
			for j := 0; j < len(B); j++ {
				if j+m < len(C) {
					C[j+m] ^= g.mul(coef, B[j])
				}
			}
			L = i + 1 - L
			B = T
			b = delta
			m = 1
		} else {
			for j := 0; j < len(B); j++ {
				if j+m < len(C) {
					C[j+m] ^= g.mul(coef, B[j])
				}
			}
			m++
		}
	}
	return C[:L+1]
}

// chienSearch finds the roots of the error locator polynomial by brute
// force, returning the corresponding byte positions within a 255-byte
// codeword (0 = first/highest-degree byte).
func chienSearch(g *gf256, sigma []byte, wantRoots int) ([]int, error) {
	var positions []int
	for pos := 0; pos < rsN; pos++ {
		power := rsN - 1 - pos
		xinv := g.exp(-power)
		if g.polyEvalLow(sigma, xinv) == 0 {
			positions = append(positions, pos)
		}
	}
	if len(positions) != wantRoots {
		return nil, fmt.Errorf("framing: rs decode: chien search found %d roots, expected %d", len(positions), wantRoots)
	}
	return positions, nil
}

// polyFormalDerivative computes the formal derivative of a low-degree-first
// polynomial over a characteristic-2 field (even-power terms vanish).
func polyFormalDerivative(poly []byte) []byte {
	if len(poly) <= 1 {
		return nil
	}
	deriv := make([]byte, len(poly)-1)
	for i := 1; i < len(poly); i++ {
		if i%2 == 1 {
			deriv[i-1] = poly[i]
		}
	}
	return deriv
}
