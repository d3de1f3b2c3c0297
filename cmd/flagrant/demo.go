package main

import (
	"bytes"
	"fmt"

	"github.com/Veraticus/flagrant/internal/common"
	"github.com/Veraticus/flagrant/internal/config"
	"github.com/Veraticus/flagrant/internal/demo"
	"github.com/Veraticus/flagrant/internal/loader"
	"github.com/Veraticus/flagrant/internal/report"
	"github.com/Veraticus/flagrant/internal/rules"
	"github.com/spf13/cobra"
)

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run detection on a small built-in dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extended, _ := cmd.Flags().GetBool("extended")
			summary, _ := cmd.Flags().GetBool("summary")

			txns := demo.Transactions()
			if extended {
				txns = demo.Extended()
			}

			// The sample goes through the CSV loader like a real input file.
			var buf bytes.Buffer
			if err := report.WriteTransactionsCSV(&buf, txns); err != nil {
				return fmt.Errorf("failed to write demo data: %w", err)
			}

			detector := rules.NewDetector(loader.NewCSVReader(&buf), rules.DefaultThreshold)
			if err := detector.Load(cmd.Context()); err != nil {
				return err
			}

			annotated, err := detector.Annotated()
			if err != nil {
				return common.NewUserError("Could not evaluate rules", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "--- Transaction Analyzer ---")
			return writeResults(cmd.OutOrStdout(), annotated,
				config.OutputConfig{Format: "table", Summary: summary},
				report.TableOptions{})
		},
	}

	cmd.Flags().Bool("extended", false, "use the six-row sample instead of the four-row one")
	cmd.Flags().BoolP("summary", "s", false, "print summary metrics")

	return cmd
}
