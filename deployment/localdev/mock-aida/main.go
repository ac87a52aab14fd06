// Command mock-aida stands in for an AIDA64 sensor logger during local
// development. It appends synthetic rows to a CSV log and serves the most
// recent row on the latest-log endpoint so thermal-dash can also run
// against it as an upstream.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-thermal/internal/mock"
	"github.com/miradorstack/mirador-thermal/internal/models"
	"github.com/miradorstack/mirador-thermal/internal/utils"
)

type logWriter struct {
	mu      sync.Mutex
	path    string
	gen     *mock.Generator
	started time.Time
	last    []models.SensorReading
	lastAt  time.Time
}

var (
	logPath  string
	addr     string
	interval time.Duration
	seed     uint64
	level    string
)

var rootCmd = &cobra.Command{
	Use:   "mock-aida",
	Short: "Append synthetic AIDA64 rows and serve the latest one",
	Long: `mock-aida writes a CSV log in the AIDA64 layout, one row per interval,
and answers /api/aida64 with the most recent row so thermal-dash can use it
as an upstream.

Examples:
  mock-aida --log aida64_log_log.csv
  mock-aida --addr "" --interval 500ms --seed 42`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&logPath, "log", "aida64_log_log.csv", "CSV log file to append to")
	rootCmd.Flags().StringVar(&addr, "addr", ":8081", "address for the latest-log endpoint (empty disables it)")
	rootCmd.Flags().DurationVar(&interval, "interval", time.Second, "time between rows")
	rootCmd.Flags().Uint64Var(&seed, "seed", 0, "mock seed (0 is random)")
	rootCmd.Flags().StringVar(&level, "log-level", "info", "logging level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	logger := utils.NewLogger(level, false).With(slog.String("component", "mock-aida"))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := &logWriter{path: logPath, gen: mock.New(seed), started: time.Now()}
	if err := w.writeHeader(); err != nil {
		return fmt.Errorf("prepare log: %w", err)
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if err := w.appendRow(now); err != nil {
					logger.Warn("append row failed", slog.Any("error", err))
				}
			}
		}
	}()
	logger.Info("appending rows", slog.String("log", logPath), slog.Duration("interval", interval))

	if addr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/aida64", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Query().Get("fail") != "" {
			writeJSON(rw, logger, http.StatusNotFound, models.LatestEnvelope{
				Success:       false,
				Error:         "AIDA64 log file not found",
				Message:       "simulated failure",
				UsingMockData: true,
				MockData:      w.gen.Payload(),
			})
			return
		}
		writeJSON(rw, logger, http.StatusOK, w.envelope())
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: logRequests(logger, mux),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", slog.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (w *logWriter) writeHeader() error {
	if info, err := os.Stat(w.path); err == nil && info.Size() > 0 {
		return nil
	}
	units := make([]string, len(mock.Sensors))
	for i := range units {
		units[i] = models.CelsiusUnit
	}
	// The header must be the first line: latest-row mode reads it positionally.
	header := fmt.Sprintf("Date,Time,UpTime,%s\n,,,%s\n",
		strings.Join(mock.Sensors, ","),
		strings.Join(units, ","))
	return os.WriteFile(w.path, []byte(header), 0o644)
}

func (w *logWriter) appendRow(now time.Time) error {
	readings := w.gen.Readings()

	cells := []string{now.Format("1/2/2006"), now.Format("3:04:05 PM"), uptime(now.Sub(w.started))}
	for _, r := range readings {
		cells = append(cells, strconv.FormatFloat(r.Value, 'f', -1, 64))
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(strings.Join(cells, ",") + "\n"); err != nil {
		return err
	}

	w.mu.Lock()
	w.last, w.lastAt = readings, now
	w.mu.Unlock()
	return nil
}

func (w *logWriter) envelope() models.LatestEnvelope {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.last) == 0 {
		return models.LatestEnvelope{
			Success:       false,
			Error:         "Failed to read AIDA64 log file",
			Message:       "no rows written yet",
			UsingMockData: true,
			MockData:      w.gen.Payload(),
		}
	}
	raw := make(map[string]string, len(w.last))
	for _, r := range w.last {
		raw[r.Name] = strconv.FormatFloat(r.Value, 'f', -1, 64)
	}
	return models.LatestEnvelope{
		Success:      true,
		Timestamp:    utils.FormatRFC3339(w.lastAt),
		Temperatures: w.last,
		RawData:      raw,
		Source:       models.SourceLog,
	}
}

func uptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("encode response", slog.Any("error", err))
	}
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("duration", time.Since(start)))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
