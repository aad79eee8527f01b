package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/go-diarist/internal/config"
	"github.com/alnah/go-diarist/internal/timeline"
)

// demoEntries is a canned timeline showing the output format without any
// audio input, embedding service, or API key.
func demoEntries() []timeline.Entry {
	return []timeline.Entry{
		{Speaker: "Target", Start: 0.50, End: 3.20, Text: "Hello, this is the target speaker talking.", Similarity: 0.82},
		{Speaker: "Target", Start: 5.10, End: 8.40, Text: "Here is another segment from the same voice.", Similarity: 0.75},
		{Speaker: "Other", Start: 8.90, End: 11.00, Text: "", Similarity: 0.32},
		{Speaker: "Target", Start: 11.60, End: 14.30, Text: "And a final target segment to close the demo.", Similarity: 0.79},
	}
}

// DemoCmd creates the demo command. It writes a sample timeline so users can
// inspect the output schema before wiring up the real collaborators.
func DemoCmd(env *Env) *cobra.Command {
	var outputDir string
	var targetOnly bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write a sample diarization timeline",
		Long: `Write a canned diarization timeline to the output directory.

No audio is processed and no external services are contacted; the command
exists to show the exact shape of the JSON the extract command produces.`,
		Example: `  diarist demo
  diarist demo -o /tmp/diarist-demo`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if outputDir == "" {
				cfg, err := env.ConfigLoader.Load()
				if err != nil {
					fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
				}
				outputDir = cfg.OutputDir
			}
			if outputDir == "" {
				outputDir = "output"
			}
			outputDir = config.ExpandPath(outputDir)
			if err := os.MkdirAll(outputDir, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create output directory: %w", err)
			}

			entries := demoEntries()
			if targetOnly {
				entries = timeline.FilterTarget(entries)
			}

			p := filepath.Join(outputDir, timelineName)
			if err := timeline.WriteJSON(p, entries); err != nil {
				return err
			}

			env.Logger.Warn("demo mode: canned data, nothing was diarized")
			fmt.Fprintf(env.Stderr, "\nSample timeline: %s (%d entries)\n", p, len(entries))
			for _, e := range entries {
				fmt.Fprintf(env.Stderr, "  %-6s %6.2fs-%6.2fs (similarity %.2f)\n",
					e.Speaker, e.Start, e.End, e.Similarity)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory (default: output)")
	cmd.Flags().BoolVar(&targetOnly, "target-only", false, "Omit Other-speaker entries")

	return cmd
}
