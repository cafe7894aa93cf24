package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"whisper-subs-go/asr"
)

func scoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "score <reference.srt> <hypothesis.srt>",
		Short: "Compare two subtitle files by word and character error rate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := srtText(args[0])
			if err != nil {
				return err
			}
			hyp, err := srtText(args[1])
			if err != nil {
				return err
			}

			fmt.Printf("WER: %.4f\n", asr.WER(ref, hyp))
			fmt.Printf("CER: %.4f\n", asr.CER(ref, hyp))
			return nil
		},
	}
}

// srtText concatenates every cue's text in order
func srtText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	cues, err := asr.ParseSRT(f)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}

	texts := make([]string, len(cues))
	for i, cue := range cues {
		texts[i] = cue.Text
	}
	return strings.Join(texts, " "), nil
}
