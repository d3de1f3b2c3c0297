package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/flagrant/internal/cli"
	"github.com/Veraticus/flagrant/internal/common"
	"github.com/Veraticus/flagrant/internal/config"
	"github.com/Veraticus/flagrant/internal/loader"
	"github.com/Veraticus/flagrant/internal/model"
	"github.com/Veraticus/flagrant/internal/report"
	"github.com/Veraticus/flagrant/internal/rules"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [files...]",
		Short: "Flag suspicious transactions in CSV, OFX/QFX or SQLite files",
		Long: `Load one or more transaction files and print the rows that trigger a rule.

CSV files need a header with user_id, amount, country and time columns. OFX/QFX
statements use the account as user and the payee country (or --default-country).
SQLite databases are read from the table named by --table.

Examples:
  # Flag rows in a single file
  flagrant detect transactions.csv

  # Raise the amount threshold and include every row
  flagrant detect --threshold 10000 --all transactions.csv

  # Combine statements and export JSON with a summary
  flagrant detect --format json --summary ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDetect,
	}

	cmd.Flags().Float64P("threshold", "t", rules.DefaultThreshold, "amount above which a transaction is flagged")
	cmd.Flags().BoolP("all", "a", false, "print every row, not only flagged ones")
	cmd.Flags().StringP("format", "f", "table", "output format (table, json, csv)")
	cmd.Flags().BoolP("summary", "s", false, "print summary metrics")
	cmd.Flags().String("default-country", "US", "country for OFX transactions without a payee country")
	cmd.Flags().String("table", loader.DefaultTable, "table to read from SQLite databases")

	_ = viper.BindPFlag("threshold", cmd.Flags().Lookup("threshold"))
	_ = viper.BindPFlag("output.all", cmd.Flags().Lookup("all"))
	_ = viper.BindPFlag("output.format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("output.summary", cmd.Flags().Lookup("summary"))
	_ = viper.BindPFlag("default_country", cmd.Flags().Lookup("default-country"))
	_ = viper.BindPFlag("table", cmd.Flags().Lookup("table"))

	return cmd
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	source := &fileSet{
		files:    files,
		opts:     loader.Options{DefaultCountry: cfg.DefaultCountry, Table: cfg.Table},
		progress: cmd.ErrOrStderr(),
	}

	detector := rules.NewDetector(source, cfg.Threshold)
	if err := detector.Load(ctx); err != nil {
		return common.NewUserError("Could not load transactions", err)
	}

	annotated, err := detector.Annotated()
	if err != nil {
		return common.NewUserError("Could not evaluate rules", err)
	}

	return writeResults(cmd.OutOrStdout(), annotated, cfg.Output, report.TableOptions{ShowTime: true, ShowFlag: cfg.Output.All})
}

var errNoFiles = errors.New("no files found to load")

// expandFiles resolves glob patterns, keeping literal paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		pattern = config.ExpandPath(pattern)

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}

	if len(files) == 0 {
		return nil, errNoFiles
	}
	return files, nil
}

// fileSet loads several files as one dataset, in argument order.
type fileSet struct {
	progress io.Writer
	opts     loader.Options
	files    []string
}

func (f *fileSet) Load(ctx context.Context) ([]model.Transaction, error) {
	var bar interface{ Add(int) error }
	if len(f.files) > 1 {
		bar = cli.NewProgressBar(f.progress, len(f.files), "Loading transaction files...")
	}

	var all []model.Transaction
	for _, path := range f.files {
		src, err := loader.FileSource(path, f.opts)
		if err != nil {
			return nil, err
		}

		txns, err := src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		slog.Debug("Loaded file", "file", filepath.Base(path), "transactions", len(txns))
		all = append(all, txns...)

		if bar != nil {
			if err := bar.Add(1); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
		}
	}

	return all, nil
}

// writeResults prints either every row or only flagged rows in the configured format.
func writeResults(w io.Writer, annotated []model.AnnotatedTransaction, out config.OutputConfig, tableOpts report.TableOptions) error {
	rows := annotated
	if !out.All {
		rows = rules.Flagged(annotated)
	}
	summary := report.Summarize(annotated)

	switch out.Format {
	case "json":
		var s *report.Summary
		if out.Summary {
			s = &summary
		}
		return report.WriteJSON(w, rows, s)
	case "csv":
		return report.WriteCSV(w, rows)
	}

	if out.Summary {
		fmt.Fprintln(w, report.RenderSummary(summary))
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, cli.FormatSuccess("No suspicious transactions detected!"))
		return nil
	}

	title := "Flagged Transactions"
	if out.All {
		title = "All Transactions"
	}
	fmt.Fprintln(w, cli.FormatTitle(title))
	fmt.Fprintln(w, report.RenderTable(rows, tableOpts))

	return nil
}
