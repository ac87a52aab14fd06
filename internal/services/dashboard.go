// Package services composes the log reader, parsers, aggregator and mock
// generator into the dashboard's endpoint contracts.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/miradorstack/mirador-thermal/internal/aggregator"
	"github.com/miradorstack/mirador-thermal/internal/cache"
	"github.com/miradorstack/mirador-thermal/internal/logsource"
	"github.com/miradorstack/mirador-thermal/internal/metrics"
	"github.com/miradorstack/mirador-thermal/internal/mock"
	"github.com/miradorstack/mirador-thermal/internal/models"
	"github.com/miradorstack/mirador-thermal/internal/parser"
	"github.com/miradorstack/mirador-thermal/internal/utils"
)

const (
	actionToggleMode = "toggle_mode"

	errLabelNotFound = "AIDA64 log file not found"
	errLabelRead     = "Failed to read AIDA64 log file"
	errLabelCompose  = "Failed to fetch temperature data"
)

// UploadFailedLabel is the error label of a rejected upload response.
const UploadFailedLabel = "Failed to process uploaded log"

// LatestFetcher retrieves the latest-log envelope from a remote instance.
type LatestFetcher interface {
	Configured() bool
	FetchLatest(ctx context.Context) (models.LatestEnvelope, int, error)
}

// Options wires a DashboardService. Reader, Aggregator and Mock are required.
type Options struct {
	Reader      *logsource.Reader
	Aggregator  *aggregator.Aggregator
	TablePolicy aggregator.ThresholdPolicy
	Mock        *mock.Generator
	// Upstream, when configured, replaces the local reader in Temperature.
	Upstream LatestFetcher
	Cache    cache.Provider
	CacheTTL time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// DashboardService implements the latest-log and composed temperature
// contracts plus upload, sample and table feeds.
type DashboardService struct {
	reader    *logsource.Reader
	agg       *aggregator.Aggregator
	tableAgg  *aggregator.Aggregator
	mock      *mock.Generator
	upstream  LatestFetcher
	cache     cache.Provider
	cacheTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time
	latencies *utils.LatencyTracker
}

// NewDashboardService constructs the service facade.
func NewDashboardService(opts Options) (*DashboardService, error) {
	if opts.Reader == nil || opts.Aggregator == nil || opts.Mock == nil {
		return nil, fmt.Errorf("dashboard service requires a reader, an aggregator and a mock generator")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopProvider{}
	}
	if opts.TablePolicy.Name == "" {
		opts.TablePolicy = aggregator.TablePolicy()
	}
	return &DashboardService{
		reader:    opts.Reader,
		agg:       opts.Aggregator,
		tableAgg:  opts.Aggregator.WithPolicy(opts.TablePolicy),
		mock:      opts.Mock,
		upstream:  opts.Upstream,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		logger:    opts.Logger,
		now:       opts.Now,
		latencies: utils.NewLatencyTracker(1024),
	}, nil
}

// cachedLatest is the single cache entry for the latest-log envelope. Version
// is the file identity it was parsed from.
type cachedLatest struct {
	Version  string                `json:"version"`
	Envelope models.LatestEnvelope `json:"envelope"`
}

// Latest reads the configured log and returns its most recent temperature
// readings as a success envelope. The last parse is cached until the file
// changes.
func (s *DashboardService) Latest(ctx context.Context) (models.LatestEnvelope, error) {
	info, err := s.reader.Stat(ctx)
	if err != nil {
		return models.LatestEnvelope{}, err
	}

	if env, ok := s.cachedLatest(ctx, info); ok {
		return env, nil
	}

	content, err := s.reader.Read(ctx)
	if err != nil {
		return models.LatestEnvelope{}, err
	}

	start := time.Now()
	latest, err := parser.ParseLatest(content.Data, s.now)
	if err != nil {
		return models.LatestEnvelope{}, err
	}
	readings := aggregator.FilterTemperatures(latest.Columns, latest.Fields)
	s.observe("latest", time.Since(start))
	if len(readings) == 0 {
		return models.LatestEnvelope{}, utils.NewAppError("services.Latest", "log has no temperature columns", aggregator.ErrNoTemperatureColumns)
	}

	env := models.LatestEnvelope{
		Success:      true,
		Timestamp:    latest.Timestamp,
		Temperatures: readings,
		RawData:      latest.Fields,
		Source:       models.SourceLog,
	}
	if s.cacheTTL > 0 {
		if payload, err := json.Marshal(cachedLatest{Version: content.Key(), Envelope: env}); err == nil {
			_ = s.cache.Set(ctx, s.latestCacheKey(), payload, s.cacheTTL)
		}
	}
	return env, nil
}

func (s *DashboardService) cachedLatest(ctx context.Context, info logsource.FileInfo) (models.LatestEnvelope, bool) {
	if s.cacheTTL <= 0 {
		return models.LatestEnvelope{}, false
	}
	data, err := s.cache.Get(ctx, s.latestCacheKey())
	if err != nil {
		metrics.ObserveCacheLookup(false)
		return models.LatestEnvelope{}, false
	}
	var entry cachedLatest
	if err := json.Unmarshal(data, &entry); err != nil || entry.Version != info.Key() {
		metrics.ObserveCacheLookup(false)
		return models.LatestEnvelope{}, false
	}
	metrics.ObserveCacheLookup(true)

	env := entry.Envelope
	// Without a Time cell the timestamp is the read time, not the parse time.
	if ts, ok := env.RawData[parser.TimeColumn]; !ok || ts == "" {
		env.Timestamp = utils.FormatRFC3339(s.now())
	}
	return env, true
}

// Invalidate drops the cached latest-log envelope so the next read reparses.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Del(ctx, s.latestCacheKey()); err != nil {
		s.logger.Warn("cache invalidation failed", slog.Any("error", err))
	}
}

// LatestEnvelope is Latest with failures folded into a mock-carrying envelope
// and the HTTP status the endpoint answers with.
func (s *DashboardService) LatestEnvelope(ctx context.Context) (models.LatestEnvelope, int) {
	env, err := s.Latest(ctx)
	if err == nil {
		return env, http.StatusOK
	}

	kind := Kind(err)
	metrics.ObserveFallback(kind)
	s.logger.Warn("latest log unavailable, serving mock data", slog.String("kind", kind), slog.Any("error", err))

	status, label := http.StatusInternalServerError, errLabelRead
	if kind == KindNotFound {
		status, label = http.StatusNotFound, errLabelNotFound
	}
	return models.LatestEnvelope{
		Success:       false,
		Error:         label,
		Message:       utils.Message(err),
		UsingMockData: true,
		MockData:      s.mock.Payload(),
	}, status
}

// composition is the outcome of resolving the latest envelope for the
// composed feeds.
type composition struct {
	readings  []models.SensorReading
	connected bool
	source    models.Provenance
	logTime   string
}

func (s *DashboardService) compose(ctx context.Context) composition {
	env, err := s.fetchEnvelope(ctx)
	if err != nil {
		metrics.ObserveFallback(Kind(err))
		s.logger.Warn("latest endpoint unreachable, using mock data", slog.Any("error", err))
		return composition{readings: s.mock.Readings(), source: models.SourceMock}
	}
	if env.Success && len(env.Temperatures) > 0 {
		return composition{readings: env.Temperatures, connected: true, source: models.SourceLog, logTime: env.Timestamp}
	}
	if env.MockData != nil && len(env.MockData.Temperatures) > 0 {
		return composition{readings: env.MockData.Temperatures, source: models.SourceMock}
	}
	return composition{readings: s.mock.Readings(), source: models.SourceMock}
}

func (s *DashboardService) fetchEnvelope(ctx context.Context) (models.LatestEnvelope, error) {
	if s.upstream != nil && s.upstream.Configured() {
		env, _, err := s.upstream.FetchLatest(ctx)
		return env, err
	}
	env, _ := s.LatestEnvelope(ctx)
	return env, nil
}

// Temperature composes the latest envelope with a summary. Upstream failures
// degrade to mock data; only an internal failure returns an error, and the
// returned response is still a complete mock-backed body in that case.
func (s *DashboardService) Temperature(ctx context.Context) (models.TemperatureResponse, error) {
	c := s.compose(ctx)
	summary, err := s.agg.Summarize(c.readings)
	if err != nil {
		s.logger.Error("temperature composition failed", slog.Any("error", err))
		readings := s.mock.Readings()
		fallback, _ := s.agg.Summarize(readings)
		return models.TemperatureResponse{
			Success:    false,
			Timestamp:  utils.FormatRFC3339(s.now()),
			DataSource: models.SourceMock,
			Data:       models.TemperatureData{Temperatures: readings, Summary: fallback},
			Error:      errLabelCompose,
			Message:    utils.Message(err),
		}, err
	}
	return models.TemperatureResponse{
		Success:    true,
		Connected:  c.connected,
		Timestamp:  utils.FormatRFC3339(s.now()),
		DataSource: c.source,
		Data:       models.TemperatureData{Temperatures: c.readings, Summary: summary},
	}, nil
}

// Snapshot is the page feed: the composed readings as per-sensor aggregates
// under the default policy.
func (s *DashboardService) Snapshot(ctx context.Context) (models.Snapshot, error) {
	c := s.compose(ctx)
	return s.build(s.agg, c.readings, c.source, c.connected, c.logTime)
}

// TableSnapshot is the device-table feed. It classifies with the table policy
// and, when no log is connected, uses independent per-device mock readings.
func (s *DashboardService) TableSnapshot(ctx context.Context) (models.Snapshot, error) {
	c := s.compose(ctx)
	readings := c.readings
	if !c.connected {
		readings = s.mock.DeviceReadings()
	}
	return s.build(s.tableAgg, readings, c.source, c.connected, c.logTime)
}

func (s *DashboardService) build(agg *aggregator.Aggregator, readings []models.SensorReading, source models.Provenance, connected bool, logTime string) (models.Snapshot, error) {
	sensors, summary, err := agg.FromReadings(readings)
	if err != nil {
		return models.Snapshot{}, err
	}
	return models.Snapshot{
		Timestamp: s.now().UTC(),
		LogTime:   logTime,
		Source:    source,
		Connected: connected,
		Synthetic: source == models.SourceMock,
		Policy:    agg.Policy().Name,
		Readings:  readings,
		Sensors:   sensors,
		Summary:   summary,
	}, nil
}

// ProcessUpload parses an uploaded AIDA64 log with the multi-row parser. On a
// parse failure it returns a mock snapshot together with the error.
func (s *DashboardService) ProcessUpload(ctx context.Context, name string, content []byte) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".csv" && ext != ".txt" {
		return models.Snapshot{}, utils.NewAppError("services.ProcessUpload", fmt.Sprintf("%q is not a .csv or .txt file", name), ErrUnsupportedFile)
	}

	start := time.Now()
	snap, err := s.history(string(content))
	s.observe("history", time.Since(start))
	if err != nil {
		kind := Kind(err)
		metrics.ObserveFallback(kind)
		s.logger.Warn("upload rejected, serving mock data", slog.String("file", name), slog.String("kind", kind), slog.Any("error", err))
		mockSnap, buildErr := s.build(s.agg, s.mock.Readings(), models.SourceMock, false, "")
		if buildErr != nil {
			return models.Snapshot{}, buildErr
		}
		return mockSnap, err
	}
	s.logger.Info("upload processed", slog.String("file", name), slog.Int("sensors", len(snap.Sensors)))
	return snap, nil
}

// Sample processes the embedded AIDA64 capture.
func (s *DashboardService) Sample(ctx context.Context) (models.Snapshot, error) {
	return s.ProcessUpload(ctx, "sample.csv", []byte(parser.SampleLog))
}

func (s *DashboardService) history(content string) (models.Snapshot, error) {
	h, err := parser.ParseHistory(content)
	if err != nil {
		return models.Snapshot{}, err
	}
	sensors, summary, err := s.agg.FromHistory(h)
	if err != nil {
		return models.Snapshot{}, err
	}
	return models.Snapshot{
		Timestamp: s.now().UTC(),
		LogTime:   logTime(h.LastDate, h.LastTime),
		Source:    models.SourceUpload,
		Policy:    s.agg.Policy().Name,
		Readings:  aggregator.Readings(sensors),
		Sensors:   sensors,
		Summary:   summary,
	}, nil
}

// ApplyAction acknowledges a mode action. No mode state is kept.
func (s *DashboardService) ApplyAction(action string) (string, error) {
	if action != actionToggleMode {
		return "", utils.NewAppError("services.ApplyAction", "Invalid action", ErrInvalidAction)
	}
	s.logger.Info("mode toggle requested")
	return "Mode toggled successfully", nil
}

// LatencyP95 reports the 95th percentile parse latency.
func (s *DashboardService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func (s *DashboardService) observe(variant string, d time.Duration) {
	s.latencies.Observe(d)
	metrics.ObserveParse(variant, d)
	if count := s.latencies.Count(); count >= 100 && count%100 == 0 {
		s.logger.Debug("parse latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}
}

func (s *DashboardService) latestCacheKey() string {
	return "thermal:latest:" + s.reader.Pattern()
}

func logTime(date, clock string) string {
	if date == "" && clock == "" {
		return ""
	}
	if t, err := utils.ParseLogTime(date, clock); err == nil {
		return utils.FormatRFC3339(t)
	}
	return strings.TrimSpace(date + " " + clock)
}
