package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisper-subs-go/audio"
)

func fetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url> <dest>",
		Short: "Download a model file, skipping files already present",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Fetch(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("✓ %s\n", args[1])
			return nil
		},
	}
}
