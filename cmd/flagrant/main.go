package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/flagrant/internal/cli"
	"github.com/Veraticus/flagrant/internal/common"
	"github.com/Veraticus/flagrant/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "flagrant",
		Short: "🚩 Rule-based suspicious transaction flagging",
		Long: `flagrant reads a transaction log and flags rows that match one or more
suspicion rules:

  High Amount      amount above the configured threshold
  Unusual Country  country other than CA or US
  High Frequency   same user within 60 seconds of their previous transaction`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/flagrant/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	config.Configure(viper.GetViper())

	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	if err := execute(context.Background(), os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute runs the root command, logging and printing any failure to errOut.
func execute(ctx context.Context, errOut io.Writer) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		common.LogError(err, "Command failed", common.Fields{"args": os.Args[1:]})
		fmt.Fprintln(errOut, cli.FormatError(err.Error()))
	}
	return err
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(config.ExpandPath(cfgFile))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/flagrant", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := common.SetupLogger(cmd.ErrOrStderr(), viper.GetString("logging.level"), viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flagrant %s\n", version)
			slog.Debug("flagrant version", "version", version)
		},
	}
}
