// Package leapsecs provides a TAI↔UTC oracle: historical leap-second
// (TAI-UTC) offsets, either from a compiled-in table or parsed from an IERS
// "Leap_Second.dat" bulletin.
//
// internal/timecode never needs this package to produce its nanoseconds-
// since-1958 output; that arithmetic is deliberately leap-second-naive. This
// package only matters to a caller that wants to render a civil UTC
// timestamp alongside the raw decoded value.
package leapsecs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LeapEntry records the TAI-UTC offset (in whole seconds) that takes effect
// at and after a given UTC instant.
type LeapEntry struct {
	UTC       time.Time
	TAIOffset int
}

// Oracle converts between UTC and TAI using a table of historical leap
// seconds.
type Oracle interface {
	UTCToTAI(t time.Time) time.Time
	TAIToUTC(t time.Time) time.Time
}

// TableOracle is an Oracle backed by a fixed, sorted table of LeapEntry.
type TableOracle struct {
	entries []LeapEntry // sorted ascending by UTC
}

// NewTableOracle returns a TableOracle over entries, sorted by UTC instant.
func NewTableOracle(entries []LeapEntry) *TableOracle {
	sorted := append([]LeapEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UTC.Before(sorted[j].UTC) })
	return &TableOracle{entries: sorted}
}

// UTCToTAI adds the TAI-UTC offset in effect at t (UTC) to t.
func (o *TableOracle) UTCToTAI(t time.Time) time.Time {
	offset := 0
	for _, e := range o.entries {
		if t.Before(e.UTC) {
			break
		}
		offset = e.TAIOffset
	}
	return t.Add(time.Duration(offset) * time.Second)
}

// TAIToUTC subtracts the TAI-UTC offset in effect at TAI instant t,
// searching the table by each entry's TAI-side instant (UTC + offset).
func (o *TableOracle) TAIToUTC(t time.Time) time.Time {
	offset := 0
	for _, e := range o.entries {
		taiInstant := e.UTC.Add(time.Duration(e.TAIOffset) * time.Second)
		if t.Before(taiInstant) {
			break
		}
		offset = e.TAIOffset
	}
	return t.Add(-time.Duration(offset) * time.Second)
}

// ParseIERS parses the IERS "Leap_Second.dat" bulletin format (as published
// at hpiers.obspm.fr) into a TableOracle. Each data record is five
// whitespace-separated fields: MJD, day, month, year, TAI-UTC seconds.
// Lines starting with '#' are comments and blank lines are ignored.
func ParseIERS(data []byte) (*TableOracle, error) {
	var entries []LeapEntry
	for i, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("leapsecs: invalid record at line %d: %q", i+1, raw)
		}
		t, leaps, err := parseRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("leapsecs: invalid record at line %d: %w", i+1, err)
		}
		entries = append(entries, LeapEntry{UTC: t, TAIOffset: leaps})
	}
	return NewTableOracle(entries), nil
}

func parseRecord(fields []string) (time.Time, int, error) {
	day, err := strconv.Atoi(fields[1])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("day: %w", err)
	}
	month, err := strconv.Atoi(fields[2])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("month: %w", err)
	}
	year, err := strconv.Atoi(fields[3])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("year: %w", err)
	}
	leaps, err := strconv.Atoi(fields[4])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("leaps: %w", err)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), leaps, nil
}

// builtinEntries is the historical TAI-UTC leap-second table through the
// last known leap second as of writing, 2017-01-01 (37s). No leap second
// has been scheduled since.
var builtinEntries = []LeapEntry{
	{time.Date(1972, 1, 1, 0, 0, 0, 0, time.UTC), 10},
	{time.Date(1972, 7, 1, 0, 0, 0, 0, time.UTC), 11},
	{time.Date(1973, 1, 1, 0, 0, 0, 0, time.UTC), 12},
	{time.Date(1974, 1, 1, 0, 0, 0, 0, time.UTC), 13},
	{time.Date(1975, 1, 1, 0, 0, 0, 0, time.UTC), 14},
	{time.Date(1976, 1, 1, 0, 0, 0, 0, time.UTC), 15},
	{time.Date(1977, 1, 1, 0, 0, 0, 0, time.UTC), 16},
	{time.Date(1978, 1, 1, 0, 0, 0, 0, time.UTC), 17},
	{time.Date(1979, 1, 1, 0, 0, 0, 0, time.UTC), 18},
	{time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC), 19},
	{time.Date(1981, 7, 1, 0, 0, 0, 0, time.UTC), 20},
	{time.Date(1982, 7, 1, 0, 0, 0, 0, time.UTC), 21},
	{time.Date(1983, 7, 1, 0, 0, 0, 0, time.UTC), 22},
	{time.Date(1985, 7, 1, 0, 0, 0, 0, time.UTC), 23},
	{time.Date(1988, 1, 1, 0, 0, 0, 0, time.UTC), 24},
	{time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), 25},
	{time.Date(1991, 1, 1, 0, 0, 0, 0, time.UTC), 26},
	{time.Date(1992, 7, 1, 0, 0, 0, 0, time.UTC), 27},
	{time.Date(1993, 7, 1, 0, 0, 0, 0, time.UTC), 28},
	{time.Date(1994, 7, 1, 0, 0, 0, 0, time.UTC), 29},
	{time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC), 30},
	{time.Date(1997, 7, 1, 0, 0, 0, 0, time.UTC), 31},
	{time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), 32},
	{time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC), 33},
	{time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC), 34},
	{time.Date(2012, 7, 1, 0, 0, 0, 0, time.UTC), 35},
	{time.Date(2015, 7, 1, 0, 0, 0, 0, time.UTC), 36},
	{time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 37},
}

// Builtin returns a TableOracle over the compiled-in leap-second table.
func Builtin() *TableOracle {
	return NewTableOracle(builtinEntries)
}
