package prayertimes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/adapter"
	"salah-reminder-bot/internal/infra/metrics"
)

var _ adapter.PrayerTimesProvider = (*ServiceProvider)(nil)

// ServiceProvider calls the standalone prayer-times microservice.
type ServiceProvider struct {
	baseURL string
	client  *http.Client
}

func NewServiceProvider(baseURL string, timeout time.Duration) *ServiceProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ServiceProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ScheduleResponse is the wire format of GET /prayer-times. The REST API in
// infra/web serves the same shape.
type ScheduleResponse struct {
	Date     string         `json:"date"`
	Location model.Location `json:"location"`
	City     string         `json:"city,omitempty"`
	Prayers  []PrayerEntry  `json:"prayers"`
}

type PrayerEntry struct {
	Name    string `json:"name"`
	Time    string `json:"time"`
	Time12h string `json:"time12h"`
}

type serviceError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewScheduleResponse renders s in the wire format.
func NewScheduleResponse(s *model.PrayerSchedule) ScheduleResponse {
	out := ScheduleResponse{Date: s.Date(), Location: s.Location()}
	for _, p := range s.All() {
		out.Prayers = append(out.Prayers, PrayerEntry{Name: string(p.Name), Time: p.Time24, Time12h: p.Time12})
	}
	return out
}

func (p *ServiceProvider) GetSchedule(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error) {
	s, err := p.getSchedule(ctx, loc, date)
	metrics.IncScheduleRequest("service", statusOf(err))
	return s, err
}

func (p *ServiceProvider) getSchedule(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("date", model.FormatDate(date))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/prayer-times?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", domain.ErrScheduleUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %w", domain.ErrScheduleUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", domain.ErrScheduleUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, errorText(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: prayer-times service status %d: %s", domain.ErrScheduleUnavailable, resp.StatusCode, errorText(body))
	}

	var response ScheduleResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %w", domain.ErrScheduleUnavailable, err)
	}
	if response.Date == "" {
		response.Date = model.FormatDate(date)
	}

	prayers := make([]model.PrayerTime, 0, len(response.Prayers))
	for _, e := range response.Prayers {
		name, err := model.ParsePrayerName(e.Name)
		if err != nil {
			return nil, err
		}
		pt, err := model.NewPrayerTime(name, e.Time)
		if err != nil {
			return nil, err
		}
		prayers = append(prayers, pt)
	}
	return model.NewPrayerSchedule(response.Date, loc, prayers)
}

func errorText(body []byte) string {
	var e serviceError
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		if e.Message != "" {
			return e.Error + ": " + e.Message
		}
		return e.Error
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
