package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ontoforge/ontoforge/pkg/checkpoint"
	"github.com/ontoforge/ontoforge/pkg/classifier"
	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/ingest"
	"github.com/ontoforge/ontoforge/pkg/normalize"
	"github.com/ontoforge/ontoforge/pkg/profile"
	"github.com/ontoforge/ontoforge/pkg/tui"
)

var (
	inputFile string
	maxAge    time.Duration
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile a dataset's schema and column statistics",
	Long: `Ingest and normalize a dataset, then print per-column statistics,
detected patterns, and the schema fingerprint without exporting anything.`,
	RunE: runProfile,
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Score a dataset's rows for structural quality",
	Long: `Ingest and normalize a dataset, fit the row-quality classifier on the
batch, and report how many rows fall above the drop threshold.`,
	RunE: runClassify,
}

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspect and clean up run checkpoints",
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incomplete dataset runs",
	RunE:  runCheckpointsList,
}

var checkpointsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove completed checkpoints older than --max-age",
	RunE:  runCheckpointsCleanup,
}

func init() {
	cfg := config.Global().Get()

	profileCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input dataset path (required)")
	profileCmd.MarkFlagRequired("input")

	classifyCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input dataset path (required)")
	classifyCmd.Flags().Float64Var(&thresholdFlag, "threshold", cfg.Classifier.Threshold, "Row drop-probability cutoff")
	classifyCmd.MarkFlagRequired("input")

	checkpointsListCmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", cfg.Checkpoints.Dir, "Local checkpoint directory")
	checkpointsCleanupCmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", cfg.Checkpoints.Dir, "Local checkpoint directory")
	checkpointsCleanupCmd.Flags().DurationVar(&maxAge, "max-age", cfg.Checkpoints.Retention, "Age beyond which completed checkpoints are removed")

	checkpointsCmd.AddCommand(checkpointsListCmd)
	checkpointsCmd.AddCommand(checkpointsCleanupCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	records, err := ingest.NewManager().Load(ctx, inputFile)
	if err != nil {
		return err
	}
	normalized := normalize.Normalize(records)

	prof := profile.NewManager().Evaluate(normalized)
	tui.PrintProfile(prof)
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	records, err := ingest.NewManager().Load(ctx, inputFile)
	if err != nil {
		return err
	}
	normalized := normalize.Normalize(records)

	clf := classifier.New().Fit(normalized)
	if thresholdFlag > 0 {
		clf.Threshold = thresholdFlag
	}

	probs := clf.PredictProba(normalized)
	dropped := 0
	sum := 0.0
	for _, p := range probs {
		sum += p
		if p >= clf.Threshold {
			dropped++
		}
	}
	mean := 0.0
	if len(probs) > 0 {
		mean = sum / float64(len(probs))
	}

	tui.PrintClassifierReport(&tui.ClassifierReport{
		Threshold:    clf.Threshold,
		RowsScored:   int64(len(probs)),
		RowsDropped:  int64(dropped),
		MeanDropProb: mean,
	})
	return nil
}

func runCheckpointsList(cmd *cobra.Command, args []string) error {
	mgr, err := checkpoint.NewManager(checkpointDir)
	if err != nil {
		return err
	}

	incomplete, err := mgr.ListIncomplete()
	if err != nil {
		return err
	}
	if len(incomplete) == 0 {
		fmt.Println("No incomplete runs.")
		return nil
	}

	fmt.Printf("%-36s %-10s %-20s %s\n", "ID", "PHASE", "STARTED", "SOURCE")
	for _, cp := range incomplete {
		fmt.Printf("%-36s %-10s %-20s %s\n",
			cp.ID, cp.Phase, cp.StartedAt.Format(time.RFC3339), cp.SourcePath)
	}
	return nil
}

func runCheckpointsCleanup(cmd *cobra.Command, args []string) error {
	mgr, err := checkpoint.NewManager(checkpointDir)
	if err != nil {
		return err
	}

	removed, err := mgr.Cleanup(maxAge)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d checkpoint(s).\n", removed)
	return nil
}
