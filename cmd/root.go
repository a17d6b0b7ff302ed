package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chrisdamba/coastersim/internal/coaster"
	"github.com/chrisdamba/coastersim/internal/models"
	"github.com/chrisdamba/coastersim/internal/simulator"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags onto their config keys.
var flagKeys = map[string]string{
	"seed":                     "seed",
	"cars":                     "cars",
	"seats-per-car":            "seats_per_car",
	"passengers":               "passengers",
	"min-ride-duration":        "min_ride_duration",
	"max-ride-duration":        "max_ride_duration",
	"passenger-arrival-jitter": "passenger_arrival_jitter",
	"output-destination":       "output_destination",
	"output-path":              "output_path",
	"output-folder":            "output_folder",
	"kafka-broker-list":        "kafka_broker_list",
	"kafka-topic-prefix":       "kafka_topic_prefix",
	"bucket-name":              "cloud_storage.bucket_name",
	"cloud-provider":           "cloud_storage.provider",
	"log-level":                "log_level",
	"log-format":               "log_format",
	"show-progress":            "show_progress",
	"invariant-checks":         "invariant_checks",
}

func newRootCmd() *cobra.Command {
	var cfgFile, reportFile string
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "coastersim",
		Short: "Simulates passengers riding a multi-car roller coaster",
		Long: `coastersim runs the roller-coaster boarding protocol: car drivers load,
run and unload their cars in strict rotation while passengers queue, board and
disembark. Every protocol step is streamed to the configured output.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := models.LoadConfig(v, cfgFile)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			if err := configureLogging(cfg); err != nil {
				return err
			}

			sim := simulator.NewSimulator(cfg)
			report, err := sim.Run(cmd.Context())
			if report != nil && reportFile != "" {
				if werr := writeReport(reportFile, report); werr != nil {
					log.WithError(werr).Error("Failed to write report")
				}
			}
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (json or yaml)")
	rootCmd.Flags().StringVar(&reportFile, "report-file", "", "write the run report as JSON to this file")

	flags := rootCmd.Flags()
	flags.Int64("seed", 42, "Random seed for passenger names, arrivals and ride durations")
	flags.Int("cars", 2, "Number of cars on the track")
	flags.Int("seats-per-car", 4, "Seats in every car")
	flags.Int("passengers", 8, "Number of passengers to simulate")
	flags.Duration("min-ride-duration", 0, "Shortest ride")
	flags.Duration("max-ride-duration", 5*time.Second, "Longest ride (exclusive)")
	flags.Duration("passenger-arrival-jitter", 100*time.Millisecond, "Passengers arrive within this window")
	flags.String("output-destination", models.OutputConsole, "console, json, csv, parquet, kafka or postgres")
	flags.String("output-path", "", "Base directory for json, csv and local parquet output")
	flags.String("output-folder", "rides", "Folder under the output path or bucket")
	flags.String("kafka-broker-list", "localhost:9092", "Comma separated Kafka brokers")
	flags.String("kafka-topic-prefix", "", "Prefix for Kafka topic names")
	flags.String("cloud-provider", "local", "Parquet storage: local or s3")
	flags.String("bucket-name", "", "S3 bucket for parquet output")
	flags.String("log-level", "info", "trace, debug, info, warn or error")
	flags.String("log-format", "text", "text or json")
	flags.Bool("show-progress", true, "Show a progress bar on stderr")
	flags.Bool("invariant-checks", false, "Verify the rotation after every car movement")

	cobra.CheckErr(bindFlags(v, flags))
	return rootCmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

func configureLogging(cfg *models.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", coaster.ErrInvalidConfiguration, err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("%w: unsupported log format %q", coaster.ErrInvalidConfiguration, cfg.LogFormat)
	}
	return nil
}

func writeReport(path string, report *models.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Execute runs the root command until it finishes or the process is
// interrupted. Invalid configuration exits with status 2, other failures
// with 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		if errors.Is(err, coaster.ErrInvalidConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
