package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/zsiec/downlink/internal/merge"
	"github.com/zsiec/downlink/internal/timecode"
)

func newMergeCommand() *cobra.Command {
	var output string
	var clobber bool
	var apidsRaw, orderRaw string
	var fromRaw, toRaw string

	cmd := &cobra.Command{
		Use:   "merge <input>...",
		Short: "Merge and de-duplicate Space Packet streams into one time-ordered output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apids, err := parseUint16CSV(apidsRaw)
			if err != nil {
				return fmt.Errorf("merge: --apids: %w", err)
			}
			order, err := parseUint16CSV(orderRaw)
			if err != nil {
				return fmt.Errorf("merge: --apid-order: %w", err)
			}

			var from, to time.Time
			if fromRaw != "" {
				from, err = time.Parse(time.RFC3339, fromRaw)
				if err != nil {
					return fmt.Errorf("merge: --from: %w", err)
				}
			}
			if toRaw != "" {
				to, err = time.Parse(time.RFC3339, toRaw)
				if err != nil {
					return fmt.Errorf("merge: --to: %w", err)
				}
			}

			tdec := timecode.NewDecoder()
			tdec.SetDefault(timecode.Format{Kind: timecode.CDS, NumDay: 2, NumSubMillis: 2})

			m := merge.NewMerger(tdec).WithAPIDs(apids).WithAPIDOrder(order).WithWindow(from, to)

			out, err := openOutput(output, clobber)
			if err != nil {
				return err
			}
			defer out.Close()

			stats, err := m.Merge(out, args)
			if err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			slog.Info(stats.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "merged.dat", "output file path")
	cmd.Flags().BoolVar(&clobber, "clobber", false, "overwrite the output file if it exists")
	cmd.Flags().StringVarP(&apidsRaw, "apids", "a", "", "comma-separated list of APIDs to keep (default: all)")
	cmd.Flags().StringVarP(&orderRaw, "apid-order", "O", "", "comma-separated APID tiebreak order for same-timestamp groups")
	cmd.Flags().StringVarP(&fromRaw, "from", "f", "", "only packets timestamped at or after this RFC3339 instant")
	cmd.Flags().StringVarP(&toRaw, "to", "t", "", "only packets timestamped strictly before this RFC3339 instant")
	return cmd
}
