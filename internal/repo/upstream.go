package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/mirador-thermal/internal/cache"
	"github.com/miradorstack/mirador-thermal/internal/models"
)

// maxEnvelopeBytes bounds how much of an upstream body is decoded.
const maxEnvelopeBytes = 4 << 20

// ErrUpstreamUnavailable signals that the latest-log endpoint could not be
// reached or answered with something other than an envelope.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// LatestClient fetches the latest-log envelope from a remote dashboard
// instance. Failure envelopes (404/500 with mock data) are returned as values,
// not errors.
type LatestClient struct {
	baseURL    string
	latestPath string
	httpClient *http.Client
	cache      cache.Provider
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewLatestClient constructs a client targeting baseURL. A positive cacheTTL
// enables cache-through reads.
func NewLatestClient(baseURL, latestPath string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration, logger *slog.Logger) *LatestClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LatestClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		latestPath: latestPath,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cacheProvider,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Configured reports whether a base URL was supplied.
func (c *LatestClient) Configured() bool {
	return c != nil && c.baseURL != ""
}

// FetchLatest returns the remote envelope and the HTTP status it came with.
func (c *LatestClient) FetchLatest(ctx context.Context) (models.LatestEnvelope, int, error) {
	if c == nil {
		return models.LatestEnvelope{}, 0, fmt.Errorf("latest client not initialised")
	}
	if c.baseURL == "" {
		return models.LatestEnvelope{}, 0, fmt.Errorf("upstream base URL not configured")
	}

	endpoint := c.resolvePath(c.latestPath)
	key := cacheLatestKey(endpoint)
	if c.cacheTTL > 0 {
		if data, err := c.cache.Get(ctx, key); err == nil {
			var cached cachedEnvelope
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached.Envelope, cached.Status, nil
			}
		}
	}

	env, status, err := c.getEnvelope(ctx, endpoint)
	if err != nil {
		c.logger.Warn("upstream latest request failed", slog.String("endpoint", endpoint), slog.Any("error", err))
		return models.LatestEnvelope{}, status, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if c.cacheTTL > 0 {
		if payload, err := json.Marshal(cachedEnvelope{Envelope: env, Status: status}); err == nil {
			_ = c.cache.Set(ctx, key, payload, c.cacheTTL)
		}
	}
	return env, status, nil
}

type cachedEnvelope struct {
	Envelope models.LatestEnvelope `json:"envelope"`
	Status   int                   `json:"status"`
}

func (c *LatestClient) getEnvelope(ctx context.Context, endpoint string) (models.LatestEnvelope, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.LatestEnvelope{}, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.LatestEnvelope{}, 0, err
	}
	defer resp.Body.Close()

	var env models.LatestEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxEnvelopeBytes)).Decode(&env); err != nil {
		return models.LatestEnvelope{}, resp.StatusCode, fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}
	return env, resp.StatusCode, nil
}

func (c *LatestClient) resolvePath(p string) string {
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func cacheLatestKey(endpoint string) string {
	return "thermal:upstream:latest:" + endpoint
}
