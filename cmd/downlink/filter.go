package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zsiec/downlink/internal/spacepacket"
	"github.com/zsiec/downlink/internal/timecode"
)

// filterCandidate is one packet or packet-group span considered by filter,
// with just enough information to apply the APID and time-window rules.
type filterCandidate struct {
	apid   uint16
	t      time.Time
	offset int
	size   int
}

// filterDefaultBefore and filterDefaultAfter bound an effectively
// unrestricted window.
var (
	filterDefaultAfter  = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	filterDefaultBefore = time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
)

func newFilterCommand() *cobra.Command {
	var includeRaw, excludeRaw string
	var beforeRaw, afterRaw string
	var output string
	var clobber bool

	cmd := &cobra.Command{
		Use:   "filter <input>",
		Short: "Filter a Space Packet stream by APID and/or time window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			include, err := parseAPIDRanges(includeRaw)
			if err != nil {
				return fmt.Errorf("filter: --include: %w", err)
			}
			exclude, err := parseAPIDRanges(excludeRaw)
			if err != nil {
				return fmt.Errorf("filter: --exclude: %w", err)
			}

			haveBefore, haveAfter := beforeRaw != "", afterRaw != ""
			before, after := filterDefaultBefore, filterDefaultAfter
			if haveBefore {
				before, err = time.Parse(time.RFC3339, beforeRaw)
				if err != nil {
					return fmt.Errorf("filter: --before: %w", err)
				}
			}
			if haveAfter {
				after, err = time.Parse(time.RFC3339, afterRaw)
				if err != nil {
					return fmt.Errorf("filter: --after: %w", err)
				}
			}

			including, excluding := len(include) > 0, len(exclude) > 0
			if !including && !excluding && !haveBefore && !haveAfter {
				return fmt.Errorf("filter: no filters specified")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("filter: %w", err)
			}

			var candidates []filterCandidate
			if haveBefore || haveAfter {
				candidates = filterCandidatesWithTimes(data)
			} else {
				candidates = filterCandidatesPlain(data)
			}

			includeSet, excludeSet := toUint16Set(include), toUint16Set(exclude)

			out, err := openOutput(output, clobber)
			if err != nil {
				return err
			}
			defer out.Close()

			var written int64
			for _, c := range candidates {
				// Legacy precedence: when both bounds are given the first
				// arm binds its conditions so that a stamp at or past
				// --before is skipped regardless of --after.
				skip := false
				switch {
				case haveBefore && haveAfter && c.t.Before(after) || !c.t.Before(before):
					skip = true
				case haveBefore && !c.t.Before(before):
					skip = true
				case haveAfter && c.t.Before(after):
					skip = true
				}
				if skip {
					continue
				}

				write := false
				switch {
				case including && excluding:
					write = includeSet[c.apid] && !excludeSet[c.apid]
				case including && includeSet[c.apid]:
					write = true
				case excluding && !excludeSet[c.apid]:
					write = true
				case !including && !excluding:
					write = true
				}
				if !write {
					continue
				}

				n, err := out.Write(data[c.offset : c.offset+c.size])
				if err != nil {
					return fmt.Errorf("filter: write: %w", err)
				}
				written += int64(n)
			}
			slog.Info("filter complete", "bytesWritten", written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&includeRaw, "include", "i", "", "comma-separated APIDs (and ranges, e.g. 10-20) to include")
	cmd.Flags().StringVarP(&excludeRaw, "exclude", "e", "", "comma-separated APIDs (and ranges) to exclude")
	cmd.Flags().StringVarP(&beforeRaw, "before", "b", "", "only packets timestamped strictly before this RFC3339 instant")
	cmd.Flags().StringVarP(&afterRaw, "after", "a", "", "only packets timestamped at or after this RFC3339 instant")
	cmd.Flags().StringVarP(&output, "output", "o", "filtered.dat", "output file path")
	cmd.Flags().BoolVar(&clobber, "clobber", false, "overwrite the output file if it exists")
	return cmd
}

// filterCandidatesPlain walks data as a flat Space Packet stream, with no
// grouping or timestamp decode, used when neither --before nor --after is
// set.
func filterCandidatesPlain(data []byte) []filterCandidate {
	var out []filterCandidate
	offset := 0
	for offset < len(data) {
		pkt, n, err := spacepacket.DecodePacket(data[offset:])
		if err != nil {
			break
		}
		out = append(out, filterCandidate{apid: pkt.Header.APID, offset: offset, size: n})
		offset += n
	}
	return out
}

// filterCandidatesWithTimes groups data's packets and decodes each group's
// representative timecode from its leading packet, dropping groups whose
// head is a stray Continuation or Last with no usable timecode.
func filterCandidatesWithTimes(data []byte) []filterCandidate {
	tdec := timecode.NewDecoder()
	tdec.SetDefault(timecode.Format{Kind: timecode.CDS, NumDay: 2, NumSubMillis: 2})

	var out []filterCandidate
	grouper := spacepacket.NewGrouper()
	offset := 0
	for offset < len(data) {
		pkt, n, err := spacepacket.DecodePacket(data[offset:])
		if err != nil {
			break
		}
		pkt.Offset = int64(offset)
		offset += n
		for _, g := range grouper.Add(pkt) {
			if c, ok := filterGroupCandidate(g, tdec); ok {
				out = append(out, c)
			}
		}
	}
	for _, g := range grouper.Flush() {
		if c, ok := filterGroupCandidate(g, tdec); ok {
			out = append(out, c)
		}
	}
	return out
}

func filterGroupCandidate(g spacepacket.PacketGroup, tdec *timecode.Decoder) (filterCandidate, bool) {
	if len(g.Packets) == 0 {
		return filterCandidate{}, false
	}
	first := g.Packets[0]
	if !first.Header.IsFirst() && !first.Header.IsStandalone() {
		return filterCandidate{}, false
	}
	last := g.Packets[len(g.Packets)-1]
	offset := int(first.Offset)
	size := int(last.Offset) + len(last.Data) - offset

	var stamp time.Time
	if t, err := tdec.Decode(first.Header.APID, first.UserData()); err == nil {
		stamp = t.Time()
	}
	return filterCandidate{apid: g.APID, t: stamp, offset: offset, size: size}, true
}
