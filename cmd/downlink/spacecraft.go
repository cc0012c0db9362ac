package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zsiec/downlink/internal/catalog"
)

func newSpacecraftCommand() *cobra.Command {
	var scid uint16
	var dbPath string

	cmd := &cobra.Command{
		Use:   "spacecraft",
		Short: "List known spacecraft, or show one spacecraft's framing parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cat *catalog.Catalog
			var err error
			if dbPath != "" {
				cat, err = catalog.Load(dbPath)
			} else {
				cat = catalog.Default()
			}
			if err != nil {
				return fmt.Errorf("spacecraft: %w", err)
			}

			if cmd.Flags().Changed("scid") {
				sc, ok := cat.Lookup(scid)
				if !ok {
					return fmt.Errorf("spacecraft: unknown scid %d", scid)
				}
				printSpacecraft(sc)
				return nil
			}
			for _, sc := range cat.All() {
				printSpacecraft(sc)
			}
			return nil
		},
	}

	cmd.Flags().Uint16VarP(&scid, "scid", "s", 0, "spacecraft id to show")
	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "path to a spacecraft database file layered over the built-in one")
	return cmd
}

func printSpacecraft(sc catalog.Spacecraft) {
	fmt.Printf(
		"%-6d %-14s block=%-5d interleave=%-2d pn=%-5v aliases=%v\n",
		sc.SCID, sc.Name, sc.Framing.BlockLength, sc.Framing.Interleave, sc.Framing.PNEnabled, sc.Aliases,
	)
}
