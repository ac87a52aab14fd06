package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/miradorstack/mirador-thermal/internal/api"
	"github.com/miradorstack/mirador-thermal/internal/models"
	"github.com/miradorstack/mirador-thermal/internal/tui"
	"github.com/miradorstack/mirador-thermal/internal/utils"
)

var (
	watchRemote   string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live terminal view of the sensor table",
	Long: `Watch renders the page feed in the terminal and refreshes it on the
configured interval. With --remote it subscribes to a running server's
gRPC stream instead of reading the log itself.

Examples:
  thermal-dash watch
  thermal-dash watch --remote localhost:50051`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchRemote, "remote", "r", "", "gRPC address of a running thermal-dash server")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "refresh interval (default: polling.pageInterval)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	// The terminal belongs to bubbletea; logs below warn would corrupt it.
	logger := utils.NewLoggerTo(cmd.ErrOrStderr(), "error", cfg.Logging.JSON)

	interval := watchInterval
	if interval <= 0 {
		interval = cfg.Polling.PageInterval
	}

	if watchRemote != "" {
		return watchRemoteServer(cmd.Context(), watchRemote, interval, logger)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	model := tui.New(a.service.Snapshot, a.service.TableSnapshot, interval)
	_, err = tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
	return ignoreKilled(err)
}

func watchRemoteServer(ctx context.Context, addr string, interval time.Duration, logger *slog.Logger) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	client := api.NewDashboardClient(conn)

	fetchPage := func(ctx context.Context) (models.Snapshot, error) { return client.GetSnapshot(ctx) }
	fetchTable := func(ctx context.Context) (models.Snapshot, error) { return client.GetTable(ctx) }

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(tui.New(fetchPage, fetchTable, interval), tea.WithContext(ctx))
	go func() {
		err := client.WatchSnapshots(ctx, func(snap models.Snapshot) error {
			program.Send(tui.SnapshotMsg(snap))
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("snapshot stream ended", slog.Any("error", err))
			program.Send(tui.ErrorMsg(err))
		}
	}()

	_, err = program.Run()
	return ignoreKilled(err)
}

func ignoreKilled(err error) error {
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
