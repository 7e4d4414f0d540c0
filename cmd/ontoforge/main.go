// OntoForge - Government open-data normalization and ontology builder.
// Ingests provider datasets (CSV, JSON, JSONL, XLSX), filters low-quality
// rows, profiles schemas, routes enrichment strategies, and exports
// canonical ontology records.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ontoforge/ontoforge/pkg/checkpoint"
	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/pipeline"
	"github.com/ontoforge/ontoforge/pkg/telemetry"
	"github.com/ontoforge/ontoforge/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	rawDir          string
	outputDir       string
	providerFlag    string
	formatFlags     []string
	compressionFlag string
	thresholdFlag   float64
	modelPath       string
	workers         int
	dedupe          bool
	force           bool
	verbose         bool

	// Checkpoint backend flags
	backendFlag   string
	checkpointDir string
	redisAddr     string
	s3Bucket      string

	// Telemetry flags
	otlpEndpoint string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ontoforge",
	Short: "OntoForge - Normalize open data into canonical ontology records",
	Long: `OntoForge ingests government open-data extracts (CSV, JSON, JSONL, XLSX),
drops structurally poor rows, profiles each dataset's schema, routes a
domain enrichment strategy, and exports canonical ontology records.

Examples:
  ontoforge run data/licenses.csv --provider nyc_dca
  ontoforge run --raw-dir ./raw --output ./out --format json --format parquet
  ontoforge profile -i data/licenses.csv
  ontoforge watch --raw-dir ./raw`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Process datasets through the full pipeline",
	Long: `Process one or more datasets end to end. With no file arguments the raw
directory is scanned for processable files.

A dataset whose previous run completed with the same schema fingerprint is
skipped; use --force to reprocess.`,
	RunE: runRun,
}

func init() {
	cfg := config.Global().Get()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	runCmd.Flags().StringVar(&rawDir, "raw-dir", cfg.Pipeline.RawDir, "Directory scanned for datasets when no files are given")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", cfg.Pipeline.OutputDir, "Output directory")
	runCmd.Flags().StringVarP(&providerFlag, "provider", "p", cfg.Pipeline.Provider, "Provenance label for ontology records")
	runCmd.Flags().StringArrayVar(&formatFlags, "format", cfg.Export.Formats, "Export formats (json, parquet, duckdb); repeatable")
	runCmd.Flags().StringVar(&compressionFlag, "compression", cfg.Export.Compression, "Parquet compression (snappy, zstd, gzip, none)")
	runCmd.Flags().Float64Var(&thresholdFlag, "threshold", cfg.Classifier.Threshold, "Row drop-probability cutoff")
	runCmd.Flags().StringVar(&modelPath, "model", cfg.Classifier.ModelPath, "Classifier model file (empty disables persistence)")
	runCmd.Flags().IntVar(&workers, "workers", cfg.Pipeline.Workers, "Concurrent datasets")
	runCmd.Flags().BoolVar(&dedupe, "dedupe", false, "Drop exact duplicate rows after normalization")
	runCmd.Flags().BoolVar(&force, "force", false, "Reprocess even when a completed checkpoint matches")

	addBackendFlags(runCmd)
	runCmd.Flags().StringVar(&otlpEndpoint, "otlp", cfg.Telemetry.Endpoint, "OTLP gRPC endpoint for trace export")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(checkpointsCmd)
}

func addBackendFlags(cmd *cobra.Command) {
	cfg := config.Global().Get()
	cmd.Flags().StringVar(&backendFlag, "backend", cfg.Checkpoints.Backend, "Checkpoint backend (local, redis, s3)")
	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", cfg.Checkpoints.Dir, "Local checkpoint directory")
	cmd.Flags().StringVar(&redisAddr, "redis", cfg.Checkpoints.RedisAddress, "Redis address for the redis backend")
	cmd.Flags().StringVar(&s3Bucket, "s3-bucket", cfg.Checkpoints.S3Bucket, "S3 bucket for the s3 backend")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	paths := args
	if len(paths) == 0 {
		var err error
		paths, err = pipeline.Discover(rawDir)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", rawDir, err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no datasets found in %s", rawDir)
		}
	}

	if otlpEndpoint != "" {
		otlpCfg := telemetry.DefaultOTLPConfig("ontoforge")
		otlpCfg.Endpoint = otlpEndpoint
		otlpCfg.ServiceVersion = version
		shutdown, err := telemetry.InitOTLP(otlpCfg)
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer shutdown(context.Background())
	}

	backend, err := buildBackend(ctx)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(pipeline.Options{
		Provider:    providerFlag,
		OutputDir:   outputDir,
		Formats:     formatFlags,
		Compression: compressionFlag,
		Threshold:   thresholdFlag,
		ModelPath:   modelPath,
		Workers:     workers,
		Dedupe:      dedupe,
		Force:       force,
	}, backend)

	if verbose {
		tui.PrintHeader(version)
		fmt.Printf("  Datasets:   %d\n", len(paths))
		fmt.Printf("  Provider:   %s\n", providerFlag)
		fmt.Printf("  Backend:    %s\n", backend.Name())
		fmt.Println()
	}

	results, err := runner.RunAll(ctx, paths)
	for _, res := range results {
		if res.SourcePath == "" {
			continue
		}
		tui.PrintRunReport(&tui.RunReport{
			SourcePath:   res.SourcePath,
			Provider:     res.Provider,
			Strategy:     res.Strategy,
			RowsIngested: int64(res.RowsIngested),
			RowsKept:     int64(res.RowsKept),
			RowsDropped:  int64(res.RowsDropped),
			Skipped:      res.Skipped,
			Duration:     res.Duration,
			OutputPaths:  res.OutputPaths,
		})
	}
	if err != nil {
		return err
	}

	if verbose {
		if data, jerr := runner.Metrics().Summary().ToJSON(); jerr == nil {
			fmt.Printf("  Metrics: %s\n", data)
		}
	}
	return nil
}

// buildBackend constructs the configured checkpoint backend.
func buildBackend(ctx context.Context) (checkpoint.Backend, error) {
	switch backendFlag {
	case "", "local":
		return checkpoint.NewLocalBackend(checkpointDir)
	case "redis":
		if redisAddr == "" {
			return nil, fmt.Errorf("redis backend requires --redis address")
		}
		return checkpoint.NewRedisBackend(checkpoint.DefaultRedisConfig(redisAddr))
	case "s3":
		if s3Bucket == "" {
			return nil, fmt.Errorf("s3 backend requires --s3-bucket")
		}
		return checkpoint.NewS3Backend(ctx, checkpoint.DefaultS3Config(s3Bucket))
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", backendFlag)
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
