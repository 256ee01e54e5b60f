// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the cb2pdf CLI. Run with no
// subcommand, it converts every .cbz and .cbr file in the working
// directory to PDF and moves the archives into old/.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/cb2pdf/internal/batch"
	"github.com/pdiddy/cb2pdf/internal/convert"
	"github.com/pdiddy/cb2pdf/internal/errlog"
	"github.com/pdiddy/cb2pdf/internal/logging"
	"github.com/pdiddy/cb2pdf/internal/metrics"
	"github.com/pdiddy/cb2pdf/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// envKeyReplacer maps flag names to environment variables, e.g.
// batch-size to CB2PDF_BATCH_SIZE.
var envKeyReplacer = strings.NewReplacer("-", "_")

// rootCmd is the base command for the cb2pdf CLI.
var rootCmd = &cobra.Command{
	Use:   "cb2pdf",
	Short: "Batch-convert comic book archives to PDF",
	Long: `cb2pdf converts every CBZ (zip) and CBR (rar) archive in a directory into a
PDF with one page per image, in file-name order. Converted archives are moved
into the old/ subdirectory. Failures are appended to error_log.txt and never
stop the run.

Files are processed in batches of --batch-size, with up to --workers
conversions running at once and a --sleep pause between batches.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runConvert,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./cb2pdf.yaml or ~/.config/cb2pdf/cb2pdf.yaml)")
	pf.String("log-level", "warn", "diagnostic log level: debug, info, warn, error")
	pf.String("log-file", "", "also write diagnostic logs to this file (rotated)")

	f := rootCmd.Flags()
	f.String("dir", ".", "working directory holding the archives")
	f.Int("batch-size", types.DefaultBatchSize, "files per batch")
	f.Duration("sleep", types.DefaultSleepInterval, "pause between batches")
	f.Int("workers", types.DefaultMaxWorkers, "maximum concurrent conversions per batch")
	f.Bool("relocate-failed", false, "move archives to old/ even when conversion fails")
	f.String("report", "", "write a YAML run report to this path")
	f.String("metrics-file", "", "write Prometheus metrics in textfile format to this path")

	for _, name := range []string{"log-level", "log-file"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
	for _, name := range []string{"dir", "batch-size", "sleep", "workers", "relocate-failed", "report", "metrics-file"} {
		_ = viper.BindPFlag(name, f.Lookup(name))
	}
}

func initConfig() {
	// A missing .env is not an error.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cb2pdf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cb2pdf"))
		}
	}

	viper.SetEnvPrefix("CB2PDF")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// batchConfig builds the run configuration from flags, config file, and
// environment, in viper's precedence order.
func batchConfig() (types.BatchConfig, error) {
	dir, err := filepath.Abs(viper.GetString("dir"))
	if err != nil {
		return types.BatchConfig{}, fmt.Errorf("resolving working directory: %w", err)
	}
	cfg := types.NewBatchConfig(dir)
	cfg.BatchSize = viper.GetInt("batch-size")
	cfg.SleepInterval = viper.GetDuration("sleep")
	cfg.MaxWorkers = viper.GetInt("workers")
	cfg.RelocateFailed = viper.GetBool("relocate-failed")
	return cfg, cfg.Validate()
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := batchConfig()
	if err != nil {
		return err
	}

	log, closer, err := logging.New(types.LogConfig{
		Level: viper.GetString("log-level"),
		File:  viper.GetString("log-file"),
	}, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	runID := uuid.NewString()
	log = log.With().Str("run_id", runID).Logger()

	rec := metrics.New()
	proc := convert.NewProcessor(cfg, errlog.New(cfg.LogPath),
		convert.WithLogger(log),
		convert.WithMetrics(rec),
	)
	sched, err := batch.NewScheduler(cfg, proc,
		batch.WithOutput(os.Stdout),
		batch.WithProgress(batch.BarProgress(os.Stdout)),
		batch.WithLogger(log),
		batch.WithMetrics(rec),
		batch.WithRunID(runID),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, runErr := sched.Run(ctx)
	interrupted := errors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted {
		return runErr
	}
	if interrupted {
		fmt.Fprintln(os.Stdout, "Interrupted; remaining batches skipped.")
	}
	reportRun(os.Stdout, log, sum, rec, viper.GetString("report"), viper.GetString("metrics-file"))
	return nil
}

// reportRun prints the summary and writes the optional run report and
// metrics file. An interrupted run reports the batches it finished.
func reportRun(w io.Writer, log zerolog.Logger, sum batch.Summary, rec *metrics.Recorder, reportPath, metricsPath string) {
	batch.PrintSummary(w, sum)

	if reportPath != "" {
		if err := batch.WriteReport(reportPath, sum); err != nil {
			log.Warn().Err(err).Msg("run report not written")
		}
	}
	if metricsPath != "" {
		if err := rec.WriteTextfile(metricsPath); err != nil {
			log.Warn().Err(err).Msg("metrics not written")
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
