package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/infra/logging"
	"salah-reminder-bot/internal/infra/metrics"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "SalahReminderBot/1.0"

	// the cache is dropped wholesale once it holds this many names
	maxCached = 10000
)

// Nominatim resolves coordinates to a locality name through the OpenStreetMap
// reverse geocoding API. Successful lookups are cached per location key.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       *zerolog.Logger

	mu    sync.Mutex
	cache map[string]string
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration, logger *zerolog.Logger) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		log:       logging.Component(logger, "geocoding"),
		cache:     make(map[string]string),
	}
}

type reverseResponse struct {
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		County       string `json:"county"`
		State        string `json:"state"`
		Country      string `json:"country"`
	} `json:"address"`
	DisplayName string `json:"display_name"`
}

// CityName never fails: when the lookup does, it falls back to the rounded
// coordinates, which are not cached.
func (n *Nominatim) CityName(ctx context.Context, loc model.Location) string {
	key := loc.Key()
	n.mu.Lock()
	name, ok := n.cache[key]
	n.mu.Unlock()
	if ok {
		metrics.IncCacheRequest("geocoding", "hit")
		return name
	}
	metrics.IncCacheRequest("geocoding", "miss")

	name, err := n.reverse(ctx, loc)
	if err != nil {
		n.log.Warn().Err(err).Str("location", loc.String()).Msg("reverse geocoding failed")
		return fmt.Sprintf("%.2f°, %.2f°", loc.Latitude, loc.Longitude)
	}

	n.mu.Lock()
	if len(n.cache) >= maxCached {
		n.cache = make(map[string]string)
	}
	n.cache[key] = name
	n.mu.Unlock()
	return name
}

func (n *Nominatim) reverse(ctx context.Context, loc model.Location) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("zoom", "10")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	// Nominatim rejects requests without an identifying agent
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}
	var body reverseResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return localityName(body), nil
}

// localityName picks the most specific locality Nominatim returned.
func localityName(r reverseResponse) string {
	a := r.Address
	for _, v := range []string{a.City, a.Town, a.Village, a.Municipality, a.County, a.State, a.Country} {
		if v != "" {
			return v
		}
	}
	return "Unknown Location"
}
