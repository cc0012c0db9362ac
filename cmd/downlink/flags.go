package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// parseUint16CSV parses a plain comma-separated list of APIDs, as used by
// merge's --apids and --apid-order flags. An empty string yields a nil
// slice.
func parseUint16CSV(s string) ([]uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []uint16
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.ParseUint(tok, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid apid %q: %w", tok, err)
		}
		out = append(out, uint16(n))
	}
	return out, nil
}

// parseAPIDRanges parses a comma-separated list of APIDs and inclusive
// ranges ("10-20"), as used by filter's --include and --exclude flags.
func parseAPIDRanges(s string) ([]uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []uint16
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(tok, "-"); ok {
			loN, err := strconv.ParseUint(lo, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", tok, err)
			}
			hiN, err := strconv.ParseUint(hi, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", tok, err)
			}
			for v := loN; v <= hiN; v++ {
				out = append(out, uint16(v))
			}
			continue
		}
		n, err := strconv.ParseUint(tok, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid apid %q: %w", tok, err)
		}
		out = append(out, uint16(n))
	}
	return out, nil
}

// parseUint8CSV parses a plain comma-separated list of VCIDs, as used by
// frame's --include and --exclude flags.
func parseUint8CSV(s string) ([]uint8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []uint8
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.ParseUint(tok, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid vcid %q: %w", tok, err)
		}
		out = append(out, uint8(n))
	}
	return out, nil
}

func toUint16Set(vals []uint16) map[uint16]bool {
	m := make(map[uint16]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

func toUint8Set(vals []uint8) map[uint8]bool {
	m := make(map[uint8]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// openOutput opens path for writing, refusing to overwrite an existing file
// unless clobber is set.
func openOutput(path string, clobber bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if clobber {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}
	return f, nil
}
