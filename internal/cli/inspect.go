package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-thermal/internal/models"
	"github.com/miradorstack/mirador-thermal/internal/tui"
)

var (
	inspectLatest bool
	inspectTable  bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Parse an AIDA64 log and print its sensor table",
	Long: `Inspect parses a log file offline. By default every data row is
aggregated into per-sensor averages and maxima, the same way an uploaded
file is processed. With --latest only the last row is read.

Examples:
  thermal-dash inspect aida64_log_log.csv
  thermal-dash inspect aida64_log_log.csv --latest --table
  thermal-dash inspect aida64_log_log.csv --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectLatest, "latest", false, "read only the most recent row")
	inspectCmd.Flags().BoolVar(&inspectTable, "table", false, "classify with the device-table policy (implies --latest)")
	inspectCmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format: text, json")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	path := args[0]
	cfg.Source.LogPath = path
	cfg.Upstream.BaseURL = ""
	cfg.Cache.Enabled = false

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := inspectSnapshot(cmd, a, path)
	if err != nil {
		return err
	}
	return printSnapshot(cmd, snap)
}

func inspectSnapshot(cmd *cobra.Command, a *app, path string) (models.Snapshot, error) {
	ctx := cmd.Context()
	if !inspectLatest && !inspectTable {
		content, err := os.ReadFile(path)
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("read %s: %w", path, err)
		}
		// The upload path only accepts .csv and .txt; inspect takes any name.
		name := filepath.Base(path)
		if ext := strings.ToLower(filepath.Ext(name)); ext != ".csv" && ext != ".txt" {
			name += ".csv"
		}
		return a.service.ProcessUpload(ctx, name, content)
	}

	if _, err := a.service.Latest(ctx); err != nil {
		return models.Snapshot{}, err
	}
	if inspectTable {
		return a.service.TableSnapshot(ctx)
	}
	return a.service.Snapshot(ctx)
}

func printSnapshot(cmd *cobra.Command, snap models.Snapshot) error {
	out := cmd.OutOrStdout()
	switch strings.ToLower(outputFmt) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "", "text":
		_, err := fmt.Fprintln(out, tui.RenderSnapshot(snap))
		return err
	default:
		return fmt.Errorf("unknown output format %q", outputFmt)
	}
}
