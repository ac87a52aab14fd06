package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/miradorstack/mirador-thermal/internal/aggregator"
	"github.com/miradorstack/mirador-thermal/internal/cache"
	"github.com/miradorstack/mirador-thermal/internal/logsource"
	"github.com/miradorstack/mirador-thermal/internal/mock"
	"github.com/miradorstack/mirador-thermal/internal/models"
	"github.com/miradorstack/mirador-thermal/internal/parser"
	"github.com/miradorstack/mirador-thermal/internal/repo"
)

var fixedNow = time.Date(2025, 6, 5, 9, 36, 43, 0, time.UTC)

type upstreamStub struct {
	env   models.LatestEnvelope
	err   error
	calls int
}

func (u *upstreamStub) Configured() bool { return true }

func (u *upstreamStub) FetchLatest(context.Context) (models.LatestEnvelope, int, error) {
	u.calls++
	return u.env, http.StatusOK, u.err
}

func newService(t *testing.T, logPath string, mutate func(*Options)) *DashboardService {
	t.Helper()
	opts := Options{
		Reader:     logsource.NewReader(logPath, nil),
		Aggregator: aggregator.New(aggregator.DefaultPolicy(), nil, mock.New(7)),
		Mock:       mock.New(11),
		Now:        func() time.Time { return fixedNow },
	}
	if mutate != nil {
		mutate(&opts)
	}
	svc, err := NewDashboardService(opts)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aida64_log_log.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestNewDashboardServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewDashboardService(Options{}); err == nil {
		t.Fatalf("expected error for missing collaborators")
	}
}

func TestLatestEnvelopeMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.csv")
	svc := newService(t, path, nil)

	env, status := svc.LatestEnvelope(context.Background())
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if env.Success || !env.UsingMockData || env.MockData == nil {
		t.Fatalf("expected mock-carrying failure envelope: %+v", env)
	}
	if len(env.MockData.Temperatures) != 5 || env.MockData.Source != models.SourceMock {
		t.Fatalf("expected 5 mock readings, got %+v", env.MockData)
	}
	if !strings.Contains(env.Message, "file not found at") || !strings.Contains(env.Message, "absent.csv") {
		t.Fatalf("unexpected message: %q", env.Message)
	}
}

func TestLatestEnvelopeSuccess(t *testing.T) {
	svc := newService(t, writeLog(t, "CPU,Time,Fan1\n50,12:00,1200\n"), nil)

	env, status := svc.LatestEnvelope(context.Background())
	if status != http.StatusOK || !env.Success {
		t.Fatalf("expected success, got %d %+v", status, env)
	}
	if env.Timestamp != "12:00" || env.Source != models.SourceLog {
		t.Fatalf("unexpected envelope metadata: %+v", env)
	}
	if len(env.Temperatures) != 1 || env.Temperatures[0].Value != 50 {
		t.Fatalf("unexpected temperatures: %+v", env.Temperatures)
	}
	if env.RawData["Fan1"] != "1200" {
		t.Fatalf("raw data missing non-temperature column: %+v", env.RawData)
	}
}

func TestLatestEnvelopeParseFailureIs500(t *testing.T) {
	for _, content := range []string{"CPU,Time\n", "Date,Time\n6/5/2025,12:00"} {
		svc := newService(t, writeLog(t, content), nil)
		env, status := svc.LatestEnvelope(context.Background())
		if status != http.StatusInternalServerError || env.Success || env.MockData == nil {
			t.Fatalf("%q: expected 500 with mock data, got %d %+v", content, status, env)
		}
	}
}

func TestLatestUsesCachePerFileVersion(t *testing.T) {
	path := writeLog(t, "CPU,Time\n50,12:00")
	store := cache.NewMemoryProvider()
	svc := newService(t, path, func(o *Options) {
		o.Cache = store
		o.CacheTTL = time.Minute
	})

	info, err := logsource.NewReader(path, nil).Stat(context.Background())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	planted, _ := json.Marshal(cachedLatest{
		Version: info.Key(),
		Envelope: models.LatestEnvelope{
			Success:      true,
			Timestamp:    "12:00",
			Temperatures: []models.SensorReading{{Name: "CPU", Value: 99, Unit: models.CelsiusUnit}},
			RawData:      map[string]string{"CPU": "99", "Time": "12:00"},
			Source:       models.SourceLog,
		},
	})
	if err := store.Set(context.Background(), svc.latestCacheKey(), planted, time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	env, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if env.Timestamp != "12:00" || env.Temperatures[0].Value != 99 {
		t.Fatalf("expected cached envelope, got %+v", env)
	}

	// A new file version must not be served from the old entry.
	if err := os.WriteFile(path, []byte("CPU,Time\n50,12:00\n61,12:01"), 0644); err != nil {
		t.Fatalf("rewrite log: %v", err)
	}
	env, err = svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if env.Temperatures[0].Value != 61 || env.Timestamp != "12:01" {
		t.Fatalf("expected reparse of the new version, got %+v", env)
	}
}

func TestLatestCacheStaysBoundedAcrossVersions(t *testing.T) {
	path := writeLog(t, "CPU,Time\n50,12:00")
	store := cache.NewMemoryProvider()
	svc := newService(t, path, func(o *Options) {
		o.Cache = store
		o.CacheTTL = 30 * time.Second
	})

	var b strings.Builder
	b.WriteString("CPU,Time\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "%d,12:%02d\n", 40+i%20, i)
		if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
			t.Fatalf("write log: %v", err)
		}
		if _, err := svc.Latest(context.Background()); err != nil {
			t.Fatalf("latest: %v", err)
		}
	}
	if store.Len() != 1 {
		t.Fatalf("expected a single cache entry across file versions, got %d", store.Len())
	}
}

func TestLatestCacheHitRefreshesFallbackTimestamp(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := cache.NewMemoryProvider()
	svc := newService(t, writeLog(t, "CPU\n50\n"), func(o *Options) {
		o.Cache = store
		o.CacheTTL = time.Minute
		o.Now = func() time.Time { return now }
	})

	first, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	now = now.Add(20 * time.Second)
	second, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if first.Timestamp != "2025-01-01T00:00:00Z" || second.Timestamp != "2025-01-01T00:00:20Z" {
		t.Fatalf("expected read-time timestamps, got first=%s second=%s", first.Timestamp, second.Timestamp)
	}
}

func TestInvalidateDropsCachedLatest(t *testing.T) {
	store := cache.NewMemoryProvider()
	svc := newService(t, writeLog(t, "CPU,Time\n50,12:00"), func(o *Options) {
		o.Cache = store
		o.CacheTTL = time.Minute
	})
	if _, err := svc.Latest(context.Background()); err != nil {
		t.Fatalf("latest: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", store.Len())
	}
	svc.Invalidate(context.Background())
	if store.Len() != 0 {
		t.Fatalf("expected cache to be empty after invalidation, got %d", store.Len())
	}
}

func TestLatestPopulatesCache(t *testing.T) {
	store := cache.NewMemoryProvider()
	svc := newService(t, writeLog(t, "CPU,Time\n50,12:00"), func(o *Options) {
		o.Cache = store
		o.CacheTTL = time.Minute
	})
	if _, err := svc.Latest(context.Background()); err != nil {
		t.Fatalf("latest: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", store.Len())
	}
}

func TestTemperatureFallsBackToMock(t *testing.T) {
	svc := newService(t, filepath.Join(t.TempDir(), "absent.csv"), nil)

	resp, err := svc.Temperature(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || resp.Connected || resp.DataSource != models.SourceMock {
		t.Fatalf("expected successful mock composition: %+v", resp)
	}
	if len(resp.Data.Temperatures) != 5 {
		t.Fatalf("expected 5 mock readings, got %d", len(resp.Data.Temperatures))
	}
	s := resp.Data.Summary
	if s.MinTemp > s.AvgTemp || s.AvgTemp > s.MaxTemp || s.CriticalCount+s.WarningCount > 5 {
		t.Fatalf("summary invariants violated: %+v", s)
	}
}

func TestTemperatureConnected(t *testing.T) {
	svc := newService(t, writeLog(t, "CPU,Time\n85,12:00"), nil)

	resp, err := svc.Temperature(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Connected || resp.DataSource != models.SourceLog {
		t.Fatalf("expected connected log data: %+v", resp)
	}
	if resp.Data.Summary.CriticalCount != 1 || resp.Data.Summary.WarningCount != 0 {
		t.Fatalf("unexpected counts: %+v", resp.Data.Summary)
	}
	if resp.Timestamp != "2025-06-05T09:36:43Z" {
		t.Fatalf("unexpected timestamp: %s", resp.Timestamp)
	}
}

func TestTemperatureUsesUpstream(t *testing.T) {
	stub := &upstreamStub{env: models.LatestEnvelope{
		Success:      true,
		Temperatures: []models.SensorReading{{Name: "CPU", Value: 75, Unit: models.CelsiusUnit}},
	}}
	svc := newService(t, filepath.Join(t.TempDir(), "absent.csv"), func(o *Options) { o.Upstream = stub })

	resp, err := svc.Temperature(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 1 || !resp.Connected || resp.Data.Summary.WarningCount != 1 {
		t.Fatalf("expected upstream readings: calls=%d %+v", stub.calls, resp)
	}
}

func TestTemperatureUpstreamFailureDegrades(t *testing.T) {
	stub := &upstreamStub{err: repo.ErrUpstreamUnavailable}
	svc := newService(t, filepath.Join(t.TempDir(), "absent.csv"), func(o *Options) { o.Upstream = stub })

	resp, err := svc.Temperature(context.Background())
	if err != nil {
		t.Fatalf("upstream failure must not surface: %v", err)
	}
	if resp.Connected || resp.DataSource != models.SourceMock || len(resp.Data.Temperatures) != 5 {
		t.Fatalf("expected mock fallback: %+v", resp)
	}
}

func TestTemperatureUsesEnvelopeMockData(t *testing.T) {
	stub := &upstreamStub{env: models.LatestEnvelope{
		Success:       false,
		UsingMockData: true,
		MockData: &models.MockPayload{
			Temperatures: []models.SensorReading{{Name: "CPU", Value: 44.4, Unit: models.CelsiusUnit}},
		},
	}}
	svc := newService(t, filepath.Join(t.TempDir(), "absent.csv"), func(o *Options) { o.Upstream = stub })

	resp, _ := svc.Temperature(context.Background())
	if len(resp.Data.Temperatures) != 1 || resp.Data.Temperatures[0].Value != 44.4 {
		t.Fatalf("expected envelope mock data to be reused: %+v", resp.Data)
	}
}

func TestSnapshotPageFeed(t *testing.T) {
	svc := newService(t, writeLog(t, "CPU,CPU Package,HDD1,Time\n72,60,36,12:00"), nil)

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Policy != "default" || !snap.Connected || snap.Synthetic || snap.LogTime != "12:00" {
		t.Fatalf("unexpected snapshot metadata: %+v", snap)
	}
	if len(snap.Sensors) != 3 || snap.Sensors[0].Status != models.StatusWarning {
		t.Fatalf("unexpected sensors: %+v", snap.Sensors)
	}
	if snap.Sensors[2].Usage != 0 || snap.Sensors[2].UsageSynthetic {
		t.Fatalf("storage sensor should not carry usage: %+v", snap.Sensors[2])
	}
	if !snap.Sensors[0].UsageSynthetic {
		t.Fatalf("fabricated usage must be flagged: %+v", snap.Sensors[0])
	}
}

func TestTableSnapshotUsesTablePolicy(t *testing.T) {
	svc := newService(t, writeLog(t, "CPU,HDD1,Time\n76,40,12:00"), nil)

	snap, err := svc.TableSnapshot(context.Background())
	if err != nil {
		t.Fatalf("table snapshot: %v", err)
	}
	if snap.Policy != "table" {
		t.Fatalf("expected table policy, got %s", snap.Policy)
	}
	cpu, hdd := snap.Sensors[0], snap.Sensors[1]
	if cpu.Status != models.StatusWarning || cpu.Action != "Fan Speed Up" {
		t.Fatalf("unexpected cpu row: %+v", cpu)
	}
	if hdd.Status != models.StatusCool || hdd.Action != "Auto" {
		t.Fatalf("unexpected hdd row: %+v", hdd)
	}
	// The summary counts follow the same policy as the rows.
	if snap.Summary.WarningCount != 1 || snap.Summary.CriticalCount != 0 {
		t.Fatalf("unexpected summary: %+v", snap.Summary)
	}
}

func TestTableSnapshotDisconnectedUsesDeviceReadings(t *testing.T) {
	svc := newService(t, filepath.Join(t.TempDir(), "absent.csv"), nil)

	snap, err := svc.TableSnapshot(context.Background())
	if err != nil {
		t.Fatalf("table snapshot: %v", err)
	}
	if snap.Connected || !snap.Synthetic || len(snap.Sensors) != 5 {
		t.Fatalf("expected synthetic device rows: %+v", snap)
	}
	for _, s := range snap.Sensors {
		if s.Name == "HDD1" && (s.CurrentTemperature < 27.5 || s.CurrentTemperature > 42.5) {
			t.Fatalf("HDD1 outside device range: %v", s.CurrentTemperature)
		}
	}
}

func TestProcessUploadRejectsExtension(t *testing.T) {
	svc := newService(t, "unused.csv", nil)
	_, err := svc.ProcessUpload(context.Background(), "capture.xlsx", []byte(parser.SampleLog))
	if !errors.Is(err, ErrUnsupportedFile) || Kind(err) != KindUnsupportedFile {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestProcessUploadFailureReturnsMock(t *testing.T) {
	svc := newService(t, "unused.csv", nil)
	snap, err := svc.ProcessUpload(context.Background(), "capture.CSV", []byte("just,some\nrandom,text\n"))
	if Kind(err) != KindHeaderNotFound {
		t.Fatalf("expected HeaderNotFound, got %v", err)
	}
	if snap.Source != models.SourceMock || !snap.Synthetic || len(snap.Sensors) != 5 {
		t.Fatalf("expected mock snapshot alongside the error: %+v", snap)
	}
}

func TestSample(t *testing.T) {
	svc := newService(t, "unused.csv", nil)
	snap, err := svc.Sample(context.Background())
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if snap.Source != models.SourceUpload || len(snap.Sensors) != 5 || snap.Synthetic {
		t.Fatalf("unexpected sample snapshot: %+v", snap)
	}
	if snap.LogTime == "" {
		t.Fatalf("expected log time from the last row")
	}
	if len(snap.Readings) != 5 || snap.Readings[0].Value != 61 {
		t.Fatalf("readings should carry the latest sample per sensor: %+v", snap.Readings)
	}
}

func TestApplyAction(t *testing.T) {
	svc := newService(t, "unused.csv", nil)
	msg, err := svc.ApplyAction("toggle_mode")
	if err != nil || msg == "" {
		t.Fatalf("expected toggle to be acknowledged: %q %v", msg, err)
	}
	if _, err := svc.ApplyAction("reboot"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{logsource.ErrNotFound, KindNotFound},
		{logsource.ErrReadFailed, KindReadError},
		{parser.ErrInsufficientData, KindInsufficientData},
		{parser.ErrNoValidSamples, KindNoValidSamples},
		{aggregator.ErrNoTemperatureColumns, KindNoTemperatureColumns},
		{repo.ErrUpstreamUnavailable, KindUpstreamUnavailable},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
