// Package tui renders pipeline reports to the terminal.
// Simple streaming output, no full-screen TUI.
package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/ontoforge/ontoforge/pkg/profile"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	codeStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#1a1a1a")).Foreground(white).Padding(0, 1)
)

// PrintHeader prints the program banner.
func PrintHeader(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  ONTOFORGE") + mutedStyle.Render(" v"+version))
	fmt.Println(mutedStyle.Render("  Open-data normalization and ontology builder"))
	fmt.Println()
}

// RunReport summarizes one dataset run for display.
type RunReport struct {
	SourcePath   string
	Provider     string
	Strategy     string
	RowsIngested int64
	RowsKept     int64
	RowsDropped  int64
	Skipped      bool
	Duration     time.Duration
	OutputPaths  []string
}

// PrintRunReport prints results after processing a dataset.
func PrintRunReport(report *RunReport) {
	fmt.Println()
	if report.Skipped {
		fmt.Println(mutedStyle.Render("  ○ SKIPPED (already complete) ") + codeStyle.Render(report.SourcePath))
		return
	}

	fmt.Println(successStyle.Render("  ✓ DATASET COMPLETE"))
	fmt.Println()
	fmt.Printf("  %s %s\n", mutedStyle.Render("Source:"), titleStyle.Render(report.SourcePath))
	fmt.Printf("  %s %s\n", mutedStyle.Render("Provider:"), titleStyle.Render(report.Provider))
	fmt.Printf("  %s %s\n", mutedStyle.Render("Strategy:"), accentStyle.Render(report.Strategy))
	fmt.Printf("  %s %s kept / %s dropped of %s\n",
		mutedStyle.Render("Rows:"),
		successStyle.Render(formatNumber(report.RowsKept)),
		accentStyle.Render(formatNumber(report.RowsDropped)),
		titleStyle.Render(formatNumber(report.RowsIngested)))

	if report.Duration > 0 {
		throughput := float64(report.RowsIngested) / report.Duration.Seconds()
		fmt.Printf("  %s %s %s\n",
			mutedStyle.Render("Time:"),
			titleStyle.Render(formatDuration(report.Duration)),
			mutedStyle.Render(fmt.Sprintf("(%s rows/sec)", formatNumber(int64(throughput)))))
	}
	for _, p := range report.OutputPaths {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Output:"), codeStyle.Render(p))
	}
	fmt.Println()
}

// PrintProfile prints a dataset profile as a column table.
func PrintProfile(p profile.DatasetProfile) {
	fmt.Println()
	fmt.Println(accentStyle.Render("▸ DATASET PROFILE"))
	fmt.Printf("  %s %s rows, %d columns\n",
		mutedStyle.Render("Shape:"),
		titleStyle.Render(formatNumber(int64(p.RowCount))), p.ColumnCount)
	fmt.Printf("  %s %s\n", mutedStyle.Render("Fingerprint:"), codeStyle.Render(p.SchemaFingerprint))
	fmt.Println(mutedStyle.Render("  ─────────────────────────────────────"))

	for _, name := range p.ColumnOrder {
		rep := p.Columns[name]
		line := fmt.Sprintf("  %-28s %s null %s distinct",
			titleStyle.Render(name),
			formatRatio(rep.Summary.NullRatio),
			formatRatio(rep.Summary.DistinctRatio))
		if len(rep.Tags) > 0 {
			line += "  " + mutedStyle.Render(joinTags(rep.Tags))
		}
		fmt.Println(line)
	}
	fmt.Println(mutedStyle.Render("  ─────────────────────────────────────"))
	fmt.Println()
}

// ClassifierReport summarizes row-quality filtering for display.
type ClassifierReport struct {
	Threshold    float64
	RowsScored   int64
	RowsDropped  int64
	MeanDropProb float64
}

// PrintClassifierReport prints row-quality filter results.
func PrintClassifierReport(report *ClassifierReport) {
	fmt.Println()
	fmt.Println(accentStyle.Render("▸ ROW QUALITY"))
	fmt.Printf("  %s %s scored, %s dropped %s\n",
		mutedStyle.Render("Rows:"),
		titleStyle.Render(formatNumber(report.RowsScored)),
		accentStyle.Render(formatNumber(report.RowsDropped)),
		mutedStyle.Render(fmt.Sprintf("(threshold %.2f)", report.Threshold)))
	fmt.Printf("  %s %.3f\n", mutedStyle.Render("Mean drop probability:"), report.MeanDropProb)
	fmt.Println()
}

// PrintError prints a styled error line.
func PrintError(msg string) {
	fmt.Println(accentStyle.Render("  ✗ " + msg))
}

func formatRatio(r float64) string {
	s := fmt.Sprintf("%5.1f%%", r*100)
	if r >= 0.5 {
		return accentStyle.Render(s)
	}
	return titleStyle.Render(s)
}

func joinTags(tags []string) string {
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	out := ""
	for i, t := range sorted {
		if i > 0 {
			out += " "
		}
		out += "[" + t + "]"
	}
	return out
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// ShowProgress creates a progress bar for dataset processing.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// Spinner shows a simple loading indicator until done is closed.
func Spinner(message string, done chan bool) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	i := 0
	for {
		select {
		case <-done:
			fmt.Printf("\r%s %s\n", successStyle.Render("✓"), message)
			return
		default:
			fmt.Printf("\r%s %s", accentStyle.Render(frames[i]), message)
			i = (i + 1) % len(frames)
			time.Sleep(80 * time.Millisecond)
		}
	}
}
