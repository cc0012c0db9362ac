// Package streambuf provides a buffered byte reader with arbitrary-length
// push-back, used by the framing synchronizer to re-read bytes it
// speculatively consumed while probing for a sync marker.
package streambuf

import "io"

// Buffer wraps an io.Reader with a LIFO push-back cache. Bytes pushed back
// are returned by subsequent Next calls before the underlying reader is
// touched again, in the same order they were pushed.
type Buffer struct {
	r       io.Reader
	cache   []byte
	numRead int
}

// New returns a Buffer reading from r.
func New(r io.Reader) *Buffer {
	return &Buffer{r: r}
}

// Offset returns the number of bytes yielded by Next and Fill so far, not counting
// bytes currently sitting in the push-back cache.
func (b *Buffer) Offset() int {
	return b.numRead
}

// Next returns the next byte, preferring the push-back cache. It returns
// io.EOF when the underlying reader is exhausted and the cache is empty.
func (b *Buffer) Next() (byte, error) {
	if n := len(b.cache); n > 0 {
		v := b.cache[n-1]
		b.cache = b.cache[:n-1]
		b.numRead++
		return v, nil
	}
	var one [1]byte
	if _, err := io.ReadFull(b.r, one[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}
	b.numRead++
	return one[0], nil
}

// Fill reads exactly len(buf) bytes, draining the push-back cache first.
// It reports whether enough data was available; on a clean EOF with zero
// bytes read it returns (false, nil), matching io.Reader conventions for
// callers that want to distinguish "no more blocks" from a mid-block
// truncation (io.ErrUnexpectedEOF).
func (b *Buffer) Fill(buf []byte) (bool, error) {
	n := 0
	for n < len(buf) && len(b.cache) > 0 {
		last := len(b.cache) - 1
		buf[n] = b.cache[last]
		b.cache = b.cache[:last]
		n++
	}
	if n < len(buf) {
		rn, err := io.ReadFull(b.r, buf[n:])
		n += rn
		if err != nil {
			if err == io.EOF && n == 0 {
				return false, nil
			}
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				b.numRead += n
				return false, io.ErrUnexpectedEOF
			}
			return false, err
		}
	}
	b.numRead += n
	return true, nil
}

// Push returns p to the front of the stream, in order: the next calls to
// Next will yield p[0], p[1], ... before resuming the underlying reader.
func (b *Buffer) Push(p []byte) {
	if len(p) == 0 {
		return
	}
	if b.numRead < len(p) {
		b.numRead = 0
	} else {
		b.numRead -= len(p)
	}
	for i := len(p) - 1; i >= 0; i-- {
		b.cache = append(b.cache, p[i])
	}
}
