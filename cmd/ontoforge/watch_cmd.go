package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/pipeline"
	"github.com/ontoforge/ontoforge/pkg/tui"
	"github.com/ontoforge/ontoforge/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and process datasets as they arrive",
	Long: `Watch the raw directory for new or changed dataset files and run each
through the full pipeline once its writes settle. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	cfg := config.Global().Get()

	watchCmd.Flags().StringVar(&rawDir, "raw-dir", cfg.Pipeline.RawDir, "Directory to watch")
	watchCmd.Flags().StringVarP(&outputDir, "output", "o", cfg.Pipeline.OutputDir, "Output directory")
	watchCmd.Flags().StringVarP(&providerFlag, "provider", "p", cfg.Pipeline.Provider, "Provenance label for ontology records")
	watchCmd.Flags().StringArrayVar(&formatFlags, "format", cfg.Export.Formats, "Export formats (json, parquet, duckdb); repeatable")
	watchCmd.Flags().StringVar(&compressionFlag, "compression", cfg.Export.Compression, "Parquet compression")
	watchCmd.Flags().Float64Var(&thresholdFlag, "threshold", cfg.Classifier.Threshold, "Row drop-probability cutoff")
	watchCmd.Flags().StringVar(&modelPath, "model", cfg.Classifier.ModelPath, "Classifier model file")
	watchCmd.Flags().BoolVar(&dedupe, "dedupe", false, "Drop exact duplicate rows after normalization")
	addBackendFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

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
		Dedupe:      dedupe,
		Workers:     1,
	}, backend)

	watcher, err := watch.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	watcher.OnDataset = func(path string) error {
		res, err := runner.ProcessDataset(ctx, path)
		if err != nil {
			return err
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
		return nil
	}
	watcher.OnError = func(path string, err error) {
		if path != "" {
			tui.PrintError(fmt.Sprintf("%s: %v", path, err))
			return
		}
		tui.PrintError(err.Error())
	}

	if err := watcher.WatchDir(rawDir); err != nil {
		return fmt.Errorf("watching %s: %w", rawDir, err)
	}

	tui.PrintHeader(version)
	fmt.Printf("  Watching %s (Ctrl-C to stop)\n\n", rawDir)

	return watcher.Run(ctx)
}
