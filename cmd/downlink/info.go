package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zsiec/downlink/internal/leapsecs"
	"github.com/zsiec/downlink/internal/spacepacket"
	"github.com/zsiec/downlink/internal/summary"
	"github.com/zsiec/downlink/internal/timecode"
)

// infoReport is the JSON rendering of one APID's summary.
type infoReport struct {
	APID    uint16 `json:"apid"`
	Count   int    `json:"packets"`
	Bytes   int    `json:"bytes"`
	Missing int    `json:"missing"`
	First   string `json:"first,omitempty"`
	Last    string `json:"last,omitempty"`
}

func newInfoCommand() *cobra.Command {
	var format string
	var tcFormat string
	var utc bool

	cmd := &cobra.Command{
		Use:   "info <input>",
		Short: "Summarize a Space Packet stream's APIDs, packet counts, and time span",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tdec *timecode.Decoder
			switch tcFormat {
			case "cds":
				tdec = timecode.NewDecoder()
				tdec.SetDefault(timecode.Format{Kind: timecode.CDS, NumDay: 2, NumSubMillis: 2})
			case "none":
				tdec = nil
			default:
				return fmt.Errorf("info: unknown --timecode %q", tcFormat)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("info: %w", err)
			}

			s := summary.New()
			offset := 0
			for offset < len(data) {
				pkt, n, err := spacepacket.DecodePacket(data[offset:])
				if err != nil {
					break
				}
				var t timecode.Timecode
				if tdec != nil {
					if decoded, err := tdec.Decode(pkt.Header.APID, pkt.UserData()); err == nil {
						t = decoded
					}
				}
				s.Add(pkt, t)
				offset += n
			}

			// Decoded timecodes sit on the TAI timeline; --utc renders
			// them as civil UTC instead via the built-in leap second table.
			var oracle leapsecs.Oracle
			if utc {
				oracle = leapsecs.Builtin()
			}

			switch format {
			case "text":
				if oracle == nil {
					fmt.Print(s.Report())
					return nil
				}
				for _, a := range s.APIDs() {
					fmt.Printf(
						"apid %5d: %s packets, %s, missing=%d, first=%s last=%s\n",
						a.APID,
						humanize.Comma(int64(a.Count)),
						humanize.Bytes(uint64(a.Bytes)),
						a.Missing,
						renderTime(a.First, oracle), renderTime(a.Last, oracle),
					)
				}
				return nil
			case "json":
				return printJSON(s, oracle)
			default:
				return fmt.Errorf("info: unknown --format %q", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text|json")
	cmd.Flags().StringVarP(&tcFormat, "timecode", "t", "cds", "timecode format to decode: cds|none")
	cmd.Flags().BoolVar(&utc, "utc", false, "render timestamps as civil UTC (leap-second corrected)")
	return cmd
}

func renderTime(t time.Time, oracle leapsecs.Oracle) string {
	if t.IsZero() {
		return "-"
	}
	if oracle != nil {
		t = oracle.TAIToUTC(t)
	}
	return t.Format(time.RFC3339Nano)
}

func printJSON(s *summary.Summary, oracle leapsecs.Oracle) error {
	reports := make([]infoReport, 0, len(s.APIDs()))
	for _, a := range s.APIDs() {
		r := infoReport{APID: a.APID, Count: a.Count, Bytes: a.Bytes, Missing: a.Missing}
		if !a.First.IsZero() {
			r.First = renderTime(a.First, oracle)
		}
		if !a.Last.IsZero() {
			r.Last = renderTime(a.Last, oracle)
		}
		reports = append(reports, r)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
