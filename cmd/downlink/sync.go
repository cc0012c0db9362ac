package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zsiec/downlink/internal/framing"
)

func newSyncCommand() *cobra.Command {
	var ff framingFlags

	cmd := &cobra.Command{
		Use:   "sync <input> <output>",
		Short: "Resynchronize a raw downlink capture into ASM-delimited codeblocks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fr, err := ff.resolve()
			if err != nil {
				return err
			}
			asm, err := resolveASM(fr)
			if err != nil {
				return err
			}

			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			defer in.Close()

			out, err := openOutput(args[1], ff.clobber)
			if err != nil {
				return err
			}
			defer out.Close()

			s, err := framing.NewSynchronizer(in, asm, fr.BlockLength)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}

			var blocks int
			for {
				block, _, ok, err := s.NextBlock()
				if err != nil {
					return fmt.Errorf("sync: %w", err)
				}
				if !ok {
					break
				}
				if _, err := out.Write(asm); err != nil {
					return fmt.Errorf("sync: write: %w", err)
				}
				if _, err := out.Write(block); err != nil {
					return fmt.Errorf("sync: write: %w", err)
				}
				blocks++
			}
			slog.Info("sync complete", "blocks", blocks)
			return nil
		},
	}

	addFramingFlags(cmd, &ff)
	return cmd
}
