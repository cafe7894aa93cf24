package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"whisper-subs-go/asr"
)

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the pipeline configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists", configPath)
			}
			if err := asr.WriteFileConfig(configPath, asr.DefaultFileConfig()); err != nil {
				return err
			}
			fmt.Printf("✓ wrote %s\n", configPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := asr.LoadFileConfig(configPath)
			if err != nil {
				return err
			}
			fmt.Printf("model dir:  %s\n", cfg.Model.Dir)
			fmt.Printf("backend:    %s\n", cfg.Model.Backend)
			fmt.Printf("language:   %s\n", cfg.Decode.Language)
			fmt.Printf("beam size:  %d\n", cfg.Decode.BeamSize)
			fmt.Printf("output dir: %s\n", cfg.Output.Dir)
			fmt.Printf("store:      %s\n", cfg.Output.Store)
			return nil
		},
	})

	return cmd
}
