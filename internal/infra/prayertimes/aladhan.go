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

var _ adapter.PrayerTimesProvider = (*AladhanProvider)(nil)

const (
	DefaultAladhanURL = "https://api.aladhan.com/v1"
	MethodUmmAlQura   = 4
)

// AladhanProvider reads monthly calendars from the Aladhan API and picks the
// requested day out of them.
type AladhanProvider struct {
	baseURL string
	method  int
	client  *http.Client
}

func NewAladhanProvider(baseURL string, method int, timeout time.Duration) *AladhanProvider {
	if baseURL == "" {
		baseURL = DefaultAladhanURL
	}
	if method <= 0 {
		method = MethodUmmAlQura
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AladhanProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		method:  method,
		client:  &http.Client{Timeout: timeout},
	}
}

// aladhanCalendarResponse is the subset of /calendar/{year}/{month} we read.
type aladhanCalendarResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   []struct {
		Timings map[string]string `json:"timings"`
		Date    struct {
			Gregorian struct {
				Date string `json:"date"`
				Day  string `json:"day"`
			} `json:"gregorian"`
		} `json:"date"`
	} `json:"data"`
}

func (p *AladhanProvider) GetSchedule(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error) {
	s, err := p.getSchedule(ctx, loc, date)
	metrics.IncScheduleRequest("aladhan", statusOf(err))
	return s, err
}

func (p *AladhanProvider) getSchedule(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("method", strconv.Itoa(p.method))
	endpoint := fmt.Sprintf("%s/calendar/%d/%d?%s", p.baseURL, date.Year(), int(date.Month()), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", domain.ErrScheduleUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %w", domain.ErrScheduleUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", domain.ErrScheduleUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: aladhan returned status %d", domain.ErrScheduleUnavailable, resp.StatusCode)
	}

	var response aladhanCalendarResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %w", domain.ErrScheduleUnavailable, err)
	}

	day := date.Day()
	for _, entry := range response.Data {
		d, err := strconv.Atoi(strings.TrimSpace(entry.Date.Gregorian.Day))
		if err != nil || d != day {
			continue
		}
		return buildSchedule(model.FormatDate(date), loc, entry.Timings)
	}
	return nil, fmt.Errorf("%w: no calendar entry for %s", domain.ErrScheduleNotFound, model.FormatDate(date))
}

// buildSchedule converts Aladhan's name -> "HH:MM (+TZ)" timings.
func buildSchedule(date string, loc model.Location, timings map[string]string) (*model.PrayerSchedule, error) {
	prayers := make([]model.PrayerTime, 0, len(model.AllPrayers))
	for _, name := range model.AllPrayers {
		raw, ok := timings[string(name)]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s timing", domain.ErrInvalidSchedule, name)
		}
		pt, err := model.NewPrayerTime(name, raw)
		if err != nil {
			return nil, err
		}
		prayers = append(prayers, pt)
	}
	return model.NewPrayerSchedule(date, loc, prayers)
}
